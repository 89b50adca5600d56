package account

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes account read endpoints.
type Handler struct {
	store Store
}

// NewHandler constructs an account handler.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

type accountResponse struct {
	ID        string `json:"id"`
	Phone     string `json:"phone"`
	KYCStatus string `json:"kyc_status"`
	HasCard   bool   `json:"has_card"`
	Balance   string `json:"balance"`
	CreatedAt string `json:"created_at"`
}

// Me returns the authenticated user's account.
func (h *Handler) Me(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	acct, err := h.store.Get(c.UserContext(), uid)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(toResponse(acct))
}

// Balance returns the authenticated user's current balance.
func (h *Handler) Balance(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	balance, err := h.store.GetBalance(c.UserContext(), uid)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{
		"account_id": uid,
		"balance":    balance.StringFixed(2),
		"as_of":      time.Now().UTC().Format(time.RFC3339),
	})
}

// List is the administrative account listing.
func (h *Handler) List(c *fiber.Ctx) error {
	accounts, err := h.store.List(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	out := make([]accountResponse, 0, len(accounts))
	for _, acct := range accounts {
		out = append(out, toResponse(acct))
	}
	return c.JSON(fiber.Map{"accounts": out})
}

func toResponse(acct Account) accountResponse {
	return accountResponse{
		ID:        acct.ID,
		Phone:     acct.Phone,
		KYCStatus: string(acct.KYCStatus),
		HasCard:   acct.HasCard,
		Balance:   acct.Balance.StringFixed(2),
		CreatedAt: acct.CreatedAt.Format(time.RFC3339),
	}
}
