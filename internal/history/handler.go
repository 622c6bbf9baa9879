package history

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/payfast/payfast/internal/apierr"
	"github.com/payfast/payfast/internal/money"
	"github.com/payfast/payfast/internal/payid"
)

// Handler exposes the history endpoint.
type Handler struct {
	reader *Reader
}

// NewHandler constructs a history HTTP handler.
func NewHandler(reader *Reader) *Handler {
	return &Handler{reader: reader}
}

type entryResponse struct {
	ID            string          `json:"id"`
	FromUPI       string          `json:"fromUPI"`
	ToUPI         string          `json:"toUPI"`
	Amount        decimal.Decimal `json:"transactionAmount"`
	Direction     Direction       `json:"direction"`
	SenderName    string          `json:"senderName"`
	SenderEmail   string          `json:"senderEmail"`
	ReceiverName  string          `json:"receiverName"`
	ReceiverEmail string          `json:"receiverEmail"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// List returns one page of an account's transfers. Query parameters page and limit default
// to 1 and DefaultPageSize.
func (h *Handler) List(c *fiber.Ctx) error {
	id := c.Params("id")
	if !payid.Valid(id) {
		return apierr.New(http.StatusBadRequest, apierr.KindValidation, "malformed payment identifier")
	}
	page, err := intQuery(c, "page", 1)
	if err != nil {
		return err
	}
	limit, err := intQuery(c, "limit", DefaultPageSize)
	if err != nil {
		return err
	}

	entries, err := h.reader.History(c.UserContext(), id, page, limit)
	if err != nil {
		if errors.Is(err, ErrInvalidPage) {
			return apierr.New(http.StatusBadRequest, apierr.KindValidation, err.Error())
		}
		return err
	}

	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryResponse{
			ID:            e.ID,
			FromUPI:       e.FromID,
			ToUPI:         e.ToID,
			Amount:        money.ToDecimal(e.Amount),
			Direction:     e.Direction,
			SenderName:    e.SenderName,
			SenderEmail:   e.SenderEmail,
			ReceiverName:  e.ReceiverName,
			ReceiverEmail: e.ReceiverEmail,
			CreatedAt:     e.CreatedAt,
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"page":         page,
		"limit":        NormalizePageSize(limit),
		"transactions": out,
	})
}

func intQuery(c *fiber.Ctx, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apierr.New(http.StatusBadRequest, apierr.KindValidation, name+" must be an integer")
	}
	return v, nil
}
