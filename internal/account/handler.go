package account

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/payfast/payfast/internal/apierr"
	"github.com/payfast/payfast/internal/money"
	"github.com/payfast/payfast/internal/payid"
)

// Handler exposes account endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs an account HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type registerRequest struct {
	FullName     string `json:"fullName"`
	EmailAddress string `json:"emailAddress"`
	Password     string `json:"password"`
}

type signInRequest struct {
	EmailAddress string `json:"emailAddress"`
	Password     string `json:"password"`
}

type summaryResponse struct {
	UPI          string          `json:"upi"`
	FullName     string          `json:"fullName"`
	EmailAddress string          `json:"emailAddress"`
	Balance      decimal.Decimal `json:"balance"`
	CreatedAt    time.Time       `json:"createdAt"`
}

func toSummaryResponse(s Summary) summaryResponse {
	return summaryResponse{
		UPI:          s.ID,
		FullName:     s.OwnerName,
		EmailAddress: s.OwnerEmail,
		Balance:      money.ToDecimal(s.Balance),
		CreatedAt:    s.CreatedAt,
	}
}

// Register handles account opening.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return apierr.New(http.StatusBadRequest, apierr.KindValidation, err.Error())
	}
	acc, err := h.service.Register(c.UserContext(), RegisterInput{
		FullName: req.FullName,
		Email:    req.EmailAddress,
		Password: req.Password,
	})
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"message": "Registration successful!",
		"upi":     acc.ID,
	})
}

// SignIn verifies credentials and returns the account summary.
func (h *Handler) SignIn(c *fiber.Ctx) error {
	var req signInRequest
	if err := c.BodyParser(&req); err != nil {
		return apierr.New(http.StatusBadRequest, apierr.KindValidation, err.Error())
	}
	if req.EmailAddress == "" || req.Password == "" {
		return apierr.New(http.StatusBadRequest, apierr.KindValidation, "emailAddress and password are required")
	}
	summary, err := h.service.Authenticate(c.UserContext(), req.EmailAddress, req.Password)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"message": "Login successful",
		"account": toSummaryResponse(summary),
	})
}

// Details returns the public view of one account.
func (h *Handler) Details(c *fiber.Ctx) error {
	id := c.Params("id")
	if !payid.Valid(id) {
		return apierr.New(http.StatusBadRequest, apierr.KindValidation, "malformed payment identifier")
	}
	summary, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(toSummaryResponse(summary))
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrValidation):
		return apierr.New(http.StatusBadRequest, apierr.KindValidation, err.Error())
	case errors.Is(err, ErrDuplicateEmail):
		return apierr.New(http.StatusConflict, apierr.KindDuplicateEmail, "user already exists")
	case errors.Is(err, ErrInvalidCredentials):
		return apierr.New(http.StatusUnauthorized, apierr.KindInvalidCredentials, "invalid credentials")
	case errors.Is(err, ErrNotFound):
		return apierr.New(http.StatusNotFound, apierr.KindNotFound, "account not found")
	case errors.Is(err, payid.ErrGenerationExhausted):
		return apierr.New(http.StatusServiceUnavailable, apierr.KindGenerationExhausted, "could not assign a payment identifier, retry later")
	default:
		return err
	}
}
