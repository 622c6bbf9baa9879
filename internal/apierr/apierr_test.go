package apierr

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/payfast/payfast/internal/logging"
)

func TestHandlerRendersEnvelope(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"domain error", New(fiber.StatusUnprocessableEntity, KindInsufficientFunds, "insufficient funds"), 422, KindInsufficientFunds},
		{"fiber error", fiber.NewError(fiber.StatusNotFound, "Cannot GET /nope"), 404, KindNotFound},
		{"unexpected error", errors.New("boom"), 500, KindInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New(fiber.Config{ErrorHandler: Handler(logging.Discard())})
			app.Get("/", func(c *fiber.Ctx) error { return tc.err })

			resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tc.status {
				t.Fatalf("expected %d got %d", tc.status, resp.StatusCode)
			}

			raw, _ := io.ReadAll(resp.Body)
			var body map[string]string
			if err := json.Unmarshal(raw, &body); err != nil {
				t.Fatalf("decode %s: %v", raw, err)
			}
			if body["error"] != tc.kind || body["message"] == "" {
				t.Fatalf("unexpected envelope %v", body)
			}
			if tc.kind == KindInternal && body["message"] == "boom" {
				t.Fatal("internal error details leaked to the client")
			}
		})
	}
}
