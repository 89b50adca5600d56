package cards

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/greenpay/greenpay/internal/account"
)

// Handler exposes virtual-card endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a card handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type issueRequest struct {
	Currency string `json:"currency"`
	Label    string `json:"label"`
}

type cardResponse struct {
	ID        string `json:"id"`
	Label     string `json:"label,omitempty"`
	Currency  string `json:"currency"`
	Last4     string `json:"last4"`
	ExpMonth  int    `json:"exp_month"`
	ExpYear   int    `json:"exp_year"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// Issue provisions a virtual card for the caller.
func (h *Handler) Issue(c *fiber.Ctx) error {
	var req issueRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)

	card, err := h.service.Issue(c.UserContext(), IssueInput{
		AccountID: uid,
		Currency:  req.Currency,
		Label:     req.Label,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrKYCRequired):
			return fiber.NewError(http.StatusPaymentRequired, err.Error())
		case errors.Is(err, ErrCardExists):
			return fiber.NewError(http.StatusConflict, err.Error())
		case errors.Is(err, account.ErrNotFound):
			return fiber.NewError(http.StatusNotFound, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.Status(http.StatusCreated).JSON(toResponse(card))
}

// Get returns the caller's card.
func (h *Handler) Get(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	card, err := h.service.GetForAccount(c.UserContext(), uid)
	if err != nil {
		if errors.Is(err, ErrCardNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(toResponse(card))
}

type freezeRequest struct {
	Frozen bool `json:"frozen"`
}

// SetFrozen freezes or unfreezes the caller's card.
func (h *Handler) SetFrozen(c *fiber.Ctx) error {
	var req freezeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)

	card, err := h.service.SetFrozen(c.UserContext(), uid, req.Frozen)
	if err != nil {
		if errors.Is(err, ErrCardNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(toResponse(card))
}

func toResponse(card Card) cardResponse {
	return cardResponse{
		ID:        card.ID,
		Label:     card.Label,
		Currency:  card.Currency,
		Last4:     card.Last4,
		ExpMonth:  card.ExpMonth,
		ExpYear:   card.ExpYear,
		Status:    card.Status,
		CreatedAt: card.CreatedAt.Format(time.RFC3339),
	}
}
