package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/payfast/payfast/internal/history"
	"github.com/payfast/payfast/internal/transfer"
)

// RegisterTransferRoutes wires transfer execution behind the idempotency guard.
func RegisterTransferRoutes(r fiber.Router, h *transfer.Handler, idempotency fiber.Handler) {
	r.Post("/transfers", idempotency, h.Create)
}

// RegisterHistoryRoutes wires the per-account transfer history.
func RegisterHistoryRoutes(r fiber.Router, h *history.Handler) {
	r.Get("/accounts/:id/transfers", h.List)
}
