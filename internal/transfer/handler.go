package transfer

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/payfast/payfast/internal/apierr"
	"github.com/payfast/payfast/internal/ledger"
	"github.com/payfast/payfast/internal/money"
)

// Handler exposes the transfer endpoint.
type Handler struct {
	executor *Executor
}

// NewHandler constructs a transfer HTTP handler.
func NewHandler(executor *Executor) *Handler {
	return &Handler{executor: executor}
}

type transferRequest struct {
	FromUPI           string          `json:"fromUPI"`
	ToUPI             string          `json:"toUPI"`
	TransactionAmount decimal.Decimal `json:"transactionAmount"`
}

// RecordResponse is the JSON view of a ledger record.
type RecordResponse struct {
	ID        string          `json:"id"`
	FromUPI   string          `json:"fromUPI"`
	ToUPI     string          `json:"toUPI"`
	Amount    decimal.Decimal `json:"transactionAmount"`
	CreatedAt time.Time       `json:"createdAt"`
}

// ToRecordResponse renders a record with a major-unit amount.
func ToRecordResponse(rec ledger.Record) RecordResponse {
	return RecordResponse{
		ID:        rec.ID,
		FromUPI:   rec.FromID,
		ToUPI:     rec.ToID,
		Amount:    money.ToDecimal(rec.Amount),
		CreatedAt: rec.CreatedAt,
	}
}

// Create executes a transfer.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return apierr.New(http.StatusBadRequest, apierr.KindValidation, "invalid request body")
	}
	if req.FromUPI == "" || req.ToUPI == "" {
		return apierr.New(http.StatusBadRequest, apierr.KindValidation, "fromUPI and toUPI are required")
	}
	amount, err := money.FromDecimal(req.TransactionAmount)
	if err != nil {
		return mapError(err)
	}

	rec, err := h.executor.Transfer(c.UserContext(), req.FromUPI, req.ToUPI, amount)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"message":     "Transaction successful",
		"transaction": ToRecordResponse(rec),
	})
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidAmount):
		return apierr.New(http.StatusBadRequest, apierr.KindInvalidAmount, err.Error())
	case errors.Is(err, ErrSenderNotFound):
		return apierr.New(http.StatusNotFound, apierr.KindSenderNotFound, "sender not found")
	case errors.Is(err, ErrReceiverNotFound):
		return apierr.New(http.StatusNotFound, apierr.KindReceiverNotFound, "receiver not found")
	case errors.Is(err, ErrSelfTransfer):
		return apierr.New(http.StatusUnprocessableEntity, apierr.KindSelfTransfer, "sender and receiver must differ")
	case errors.Is(err, ErrInsufficientFunds):
		return apierr.New(http.StatusUnprocessableEntity, apierr.KindInsufficientFunds, "insufficient funds")
	case errors.Is(err, ledger.ErrStoreUnavailable):
		return apierr.New(http.StatusServiceUnavailable, apierr.KindStoreUnavailable, "transfer could not complete, retry later")
	default:
		return err
	}
}
