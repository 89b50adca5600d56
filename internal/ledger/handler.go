package ledger

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/greenpay/greenpay/internal/account"
	"github.com/greenpay/greenpay/internal/rates"
)

// Handler exposes transaction endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a transaction handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	Type           string            `json:"type"`
	Amount         string            `json:"amount"`
	Currency       string            `json:"currency"`
	TargetCurrency string            `json:"target_currency,omitempty"`
	Recipient      *RecipientDetails `json:"recipient,omitempty"`
	Description    string            `json:"description,omitempty"`
}

type transactionResponse struct {
	ID          string              `json:"id"`
	AccountID   string              `json:"account_id"`
	Type        string              `json:"type"`
	Amount      string              `json:"amount"`
	Currency    string              `json:"currency"`
	Fee         string              `json:"fee"`
	Rate        string              `json:"exchange_rate,omitempty"`
	Status      string              `json:"status"`
	Recipient   *RecipientDetails   `json:"recipient,omitempty"`
	Description string              `json:"description,omitempty"`
	Metadata    *conversionResponse `json:"metadata,omitempty"`
	CreatedAt   string              `json:"created_at"`
	CompletedAt string              `json:"completed_at,omitempty"`
}

type conversionResponse struct {
	ConvertedAmount string `json:"converted_amount"`
	TargetCurrency  string `json:"target_currency"`
}

// Create records a new transaction for the authenticated account.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid amount")
	}

	txn, err := h.service.Create(c.UserContext(), CreateInput{
		AccountID:      uid,
		Type:           Type(req.Type),
		Amount:         amount,
		Currency:       req.Currency,
		TargetCurrency: req.TargetCurrency,
		Recipient:      req.Recipient,
		Description:    req.Description,
	})
	if err != nil {
		return mapError(err)
	}

	return c.Status(http.StatusCreated).JSON(toResponse(txn))
}

// List returns the authenticated account's transactions newest first.
func (h *Handler) List(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	txns, err := h.service.ListForAccount(c.UserContext(), uid)
	if err != nil {
		return mapError(err)
	}
	out := make([]transactionResponse, 0, len(txns))
	for _, txn := range txns {
		out = append(out, toResponse(txn))
	}
	return c.JSON(fiber.Map{"transactions": out})
}

// Get returns a single transaction owned by the caller.
func (h *Handler) Get(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	txn, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return mapError(err)
	}
	if txn.AccountID != uid {
		return fiber.NewError(http.StatusNotFound, ErrNotFound.Error())
	}
	return c.JSON(toResponse(txn))
}

type overrideRequest struct {
	Status string `json:"status"`
}

// OverrideStatus is the administrative transition endpoint. The same
// lifecycle rules apply: terminal states are frozen.
func (h *Handler) OverrideStatus(c *fiber.Ctx) error {
	var req overrideRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	txn, err := h.service.UpdateStatus(c.UserContext(), c.Params("id"), Status(req.Status))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(toResponse(txn))
}

// ListForAccount is the administrative listing for any account.
func (h *Handler) ListForAccount(c *fiber.Ctx) error {
	txns, err := h.service.ListForAccount(c.UserContext(), c.Params("accountId"))
	if err != nil {
		return mapError(err)
	}
	out := make([]transactionResponse, 0, len(txns))
	for _, txn := range txns {
		out = append(out, toResponse(txn))
	}
	return c.JSON(fiber.Map{"transactions": out})
}

func toResponse(txn Transaction) transactionResponse {
	resp := transactionResponse{
		ID:          txn.ID,
		AccountID:   txn.AccountID,
		Type:        string(txn.Type),
		Amount:      txn.Amount.StringFixed(2),
		Currency:    txn.Currency,
		Fee:         txn.Fee.StringFixed(2),
		Status:      string(txn.Status),
		Recipient:   txn.Recipient,
		Description: txn.Description,
		CreatedAt:   txn.CreatedAt.Format(time.RFC3339),
	}
	if txn.Rate != nil {
		resp.Rate = txn.Rate.String()
	}
	if txn.Conversion != nil {
		resp.Metadata = &conversionResponse{
			ConvertedAmount: txn.Conversion.ConvertedAmount.StringFixed(2),
			TargetCurrency:  txn.Conversion.TargetCurrency,
		}
	}
	if txn.CompletedAt != nil {
		resp.CompletedAt = txn.CompletedAt.Format(time.RFC3339)
	}
	return resp
}

func mapError(err error) error {
	switch {
	case errors.Is(err, account.ErrNotFound), errors.Is(err, ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidType), errors.Is(err, account.ErrInsufficientFunds):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrPreconditionFailed):
		return fiber.NewError(http.StatusPaymentRequired, err.Error())
	case errors.Is(err, rates.ErrRateUnavailable):
		return fiber.NewError(http.StatusBadGateway, err.Error())
	case errors.Is(err, ErrInvalidTransition):
		return fiber.NewError(http.StatusConflict, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
