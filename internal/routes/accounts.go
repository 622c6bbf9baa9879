package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/payfast/payfast/internal/account"
)

// RegisterAccountRoutes wires registration, sign-in and account details.
func RegisterAccountRoutes(r fiber.Router, h *account.Handler) {
	r.Post("/accounts", h.Register)
	r.Post("/sessions", h.SignIn)
	r.Get("/accounts/:id", h.Details)
}
