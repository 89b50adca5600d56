package identity

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes identity endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs an identity HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type registerRequest struct {
	Phone string `json:"phone"`
	PIN   string `json:"pin"`
}

// Register creates a user and their zero-balance account.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	user, err := h.service.Register(c.UserContext(), Credentials{Phone: req.Phone, PIN: req.PIN})
	if err != nil {
		if errors.Is(err, ErrPhoneTaken) {
			return fiber.NewError(http.StatusConflict, err.Error())
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"user_id": user.ID,
		"phone":   user.Phone,
		"role":    user.Role,
	})
}

// SubmitKYC moves the caller's account into review.
func (h *Handler) SubmitKYC(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if err := h.service.SubmitKYC(c.UserContext(), uid); err != nil {
		if errors.Is(err, ErrKYCState) {
			return fiber.NewError(http.StatusConflict, err.Error())
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(fiber.Map{"status": "submitted"})
}

type reviewRequest struct {
	Approve bool `json:"approve"`
}

// ReviewKYC is the administrative verdict endpoint.
func (h *Handler) ReviewKYC(c *fiber.Ctx) error {
	var req reviewRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.service.ReviewKYC(c.UserContext(), c.Params("accountId"), req.Approve); err != nil {
		if errors.Is(err, ErrKYCState) {
			return fiber.NewError(http.StatusConflict, err.Error())
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	verdict := "rejected"
	if req.Approve {
		verdict = "verified"
	}
	return c.JSON(fiber.Map{"status": verdict})
}
