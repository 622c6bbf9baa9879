package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/payfast/payfast/internal/apierr"
	"github.com/payfast/payfast/internal/config"
	"github.com/payfast/payfast/internal/logging"
	"github.com/payfast/payfast/internal/payid"
)

func testConfig() config.Config {
	return config.Config{
		AppName:          "PayFast",
		AppEnv:           "test",
		IdempotencyTTL:   time.Minute,
		TransferTimeout:  5 * time.Second,
		PayIDNamespace:   "payfast",
		PayIDMaxAttempts: 1000,
		StartingBalance:  12_500_000,
		RateLimitMax:     1_000,
		RateLimitWindow:  time.Minute,
		NotifyChannel:    "payfast:notifications",
	}
}

func newTestApp(t *testing.T, cfg config.Config, cache *redis.Client) *fiber.App {
	t.Helper()
	logger := logging.Discard()
	app := fiber.New(fiber.Config{ErrorHandler: apierr.Handler(logger)})
	require.NoError(t, Setup(app, Deps{Cfg: cfg, Cache: cache, Logger: logger}))
	return app
}

func call(t *testing.T, app *fiber.App, method, path string, body any, headers ...string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := app.Test(req, 5_000)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), "body: %s", raw)
	}
	return resp.StatusCode, decoded
}

func register(t *testing.T, app *fiber.App, name, email string) string {
	t.Helper()
	return registerIn(t, app, "payfast", name, email)
}

func registerIn(t *testing.T, app *fiber.App, namespace, name, email string) string {
	t.Helper()
	status, body := call(t, app, fiber.MethodPost, "/api/v1/accounts", map[string]string{
		"fullName":     name,
		"emailAddress": email,
		"password":     "secret123",
	})
	require.Equal(t, fiber.StatusCreated, status, "body: %v", body)
	upi, _ := body["upi"].(string)
	require.Regexp(t, `^[0-9a-f]{8}@`+regexp.QuoteMeta(namespace)+`$`, upi)
	return upi
}

func TestWalletFlow(t *testing.T) {
	app := newTestApp(t, testConfig(), nil)

	alice := register(t, app, "Alice Example", "alice@example.com")
	bob := register(t, app, "Bob Example", "bob@example.com")
	require.NotEqual(t, alice, bob)

	status, body := call(t, app, fiber.MethodPost, "/api/v1/sessions", map[string]string{
		"emailAddress": "ALICE@example.com ",
		"password":     "secret123",
	})
	require.Equal(t, fiber.StatusOK, status)
	acc := body["account"].(map[string]any)
	require.Equal(t, alice, acc["upi"])
	require.Equal(t, "125000", acc["balance"])
	require.NotContains(t, acc, "passwordHash")

	status, body = call(t, app, fiber.MethodPost, "/api/v1/transfers", map[string]any{
		"fromUPI":           alice,
		"toUPI":             bob,
		"transactionAmount": "300.50",
	})
	require.Equal(t, fiber.StatusCreated, status, "body: %v", body)
	tx := body["transaction"].(map[string]any)
	require.Equal(t, "300.5", tx["transactionAmount"])

	status, body = call(t, app, fiber.MethodGet, "/api/v1/accounts/"+bob, nil)
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, "125300.5", body["balance"])

	status, body = call(t, app, fiber.MethodGet, "/api/v1/accounts/"+alice+"/transfers", nil)
	require.Equal(t, fiber.StatusOK, status)
	require.EqualValues(t, 1, body["page"])
	require.EqualValues(t, 10, body["limit"])
	entries := body["transactions"].([]any)
	require.Len(t, entries, 1)
	entry := entries[0].(map[string]any)
	require.Equal(t, "sent", entry["direction"])
	require.Equal(t, "Bob Example", entry["receiverName"])
	require.Equal(t, "alice@example.com", entry["senderEmail"])
}

func TestCustomNamespaceRoundTrips(t *testing.T) {
	cfg := testConfig()
	cfg.PayIDNamespace = "bank.example"
	app := newTestApp(t, cfg, nil)

	alice := registerIn(t, app, "bank.example", "Alice Example", "alice@example.com")
	bob := registerIn(t, app, "bank.example", "Bob Example", "bob@example.com")

	status, body := call(t, app, fiber.MethodGet, "/api/v1/accounts/"+alice, nil)
	require.Equal(t, fiber.StatusOK, status, "body: %v", body)
	require.Equal(t, alice, body["upi"])

	status, body = call(t, app, fiber.MethodPost, "/api/v1/transfers", map[string]any{
		"fromUPI":           alice,
		"toUPI":             bob,
		"transactionAmount": 25,
	})
	require.Equal(t, fiber.StatusCreated, status, "body: %v", body)

	status, body = call(t, app, fiber.MethodGet, "/api/v1/accounts/"+bob+"/transfers", nil)
	require.Equal(t, fiber.StatusOK, status, "body: %v", body)
	entries := body["transactions"].([]any)
	require.Len(t, entries, 1)
	require.Equal(t, "received", entries[0].(map[string]any)["direction"])
}

func TestSetupRejectsNamespaceOutsideIdentifierGrammar(t *testing.T) {
	for _, ns := range []string{"PayFast", "pay_fast"} {
		cfg := testConfig()
		cfg.PayIDNamespace = ns
		err := Setup(fiber.New(), Deps{Cfg: cfg, Logger: logging.Discard()})
		require.ErrorIs(t, err, payid.ErrInvalidNamespace, ns)
	}
}

func TestErrorEnvelope(t *testing.T) {
	app := newTestApp(t, testConfig(), nil)
	alice := register(t, app, "Alice Example", "alice@example.com")
	bob := register(t, app, "Bob Example", "bob@example.com")
	ghost := "00000000@payfast"

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		kind   string
	}{
		{"zero amount", fiber.MethodPost, "/api/v1/transfers", map[string]any{"fromUPI": alice, "toUPI": bob, "transactionAmount": 0}, 400, apierr.KindInvalidAmount},
		{"sub-cent amount", fiber.MethodPost, "/api/v1/transfers", map[string]any{"fromUPI": alice, "toUPI": bob, "transactionAmount": "0.001"}, 400, apierr.KindInvalidAmount},
		{"unknown sender", fiber.MethodPost, "/api/v1/transfers", map[string]any{"fromUPI": ghost, "toUPI": bob, "transactionAmount": 1}, 404, apierr.KindSenderNotFound},
		{"unknown receiver", fiber.MethodPost, "/api/v1/transfers", map[string]any{"fromUPI": alice, "toUPI": ghost, "transactionAmount": 1}, 404, apierr.KindReceiverNotFound},
		{"self transfer", fiber.MethodPost, "/api/v1/transfers", map[string]any{"fromUPI": alice, "toUPI": alice, "transactionAmount": 1}, 422, apierr.KindSelfTransfer},
		{"insufficient funds", fiber.MethodPost, "/api/v1/transfers", map[string]any{"fromUPI": alice, "toUPI": bob, "transactionAmount": 125000.01}, 422, apierr.KindInsufficientFunds},
		{"duplicate email", fiber.MethodPost, "/api/v1/accounts", map[string]string{"fullName": "Alice Again", "emailAddress": "alice@example.com", "password": "secret123"}, 409, apierr.KindDuplicateEmail},
		{"short name", fiber.MethodPost, "/api/v1/accounts", map[string]string{"fullName": "Al", "emailAddress": "al@example.com", "password": "secret123"}, 400, apierr.KindValidation},
		{"wrong password", fiber.MethodPost, "/api/v1/sessions", map[string]string{"emailAddress": "alice@example.com", "password": "nope12"}, 401, apierr.KindInvalidCredentials},
		{"unknown account", fiber.MethodGet, "/api/v1/accounts/" + ghost, nil, 404, apierr.KindNotFound},
		{"page zero", fiber.MethodGet, "/api/v1/accounts/" + alice + "/transfers?page=0", nil, 400, apierr.KindValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := call(t, app, tc.method, tc.path, tc.body)
			require.Equal(t, tc.status, status, "body: %v", body)
			require.Equal(t, tc.kind, body["error"])
			require.NotEmpty(t, body["message"])
		})
	}

	status, body := call(t, app, fiber.MethodGet, "/api/v1/accounts/"+alice, nil)
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, "125000", body["balance"])
}

func TestTransferIdempotencyWithRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	sub := cache.Subscribe(context.Background(), "payfast:notifications")
	defer sub.Close()
	_, err = sub.Receive(context.Background())
	require.NoError(t, err)

	app := newTestApp(t, testConfig(), cache)
	alice := register(t, app, "Alice Example", "alice@example.com")
	bob := register(t, app, "Bob Example", "bob@example.com")

	req := map[string]any{"fromUPI": alice, "toUPI": bob, "transactionAmount": 100}
	status, first := call(t, app, fiber.MethodPost, "/api/v1/transfers", req, "Idempotency-Key", "retry-1")
	require.Equal(t, fiber.StatusCreated, status)
	status, second := call(t, app, fiber.MethodPost, "/api/v1/transfers", req, "Idempotency-Key", "retry-1")
	require.Equal(t, fiber.StatusCreated, status)
	require.Equal(t, first, second)

	_, body := call(t, app, fiber.MethodGet, "/api/v1/accounts/"+alice, nil)
	require.Equal(t, "124900", body["balance"])

	select {
	case msg := <-sub.Channel():
		require.Contains(t, msg.Payload, bob)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a transfer notification")
	}
}

func TestRateLimit(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	cfg := testConfig()
	cfg.RateLimitMax = 2
	app := newTestApp(t, cfg, cache)

	for i := 0; i < 2; i++ {
		status, _ := call(t, app, fiber.MethodGet, "/api/v1/ping", nil)
		require.Equal(t, fiber.StatusOK, status)
	}
	status, body := call(t, app, fiber.MethodGet, "/api/v1/ping", nil)
	require.Equal(t, fiber.StatusTooManyRequests, status)
	require.Equal(t, apierr.KindRateLimited, body["error"])
}

func TestHealthWithoutBackends(t *testing.T) {
	app := newTestApp(t, testConfig(), nil)
	status, body := call(t, app, fiber.MethodGet, "/healthz", nil)
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, map[string]any{"postgres": "disabled", "redis": "disabled"}, body["status"])
}

func TestSetupRequiresBackendsOutsideDev(t *testing.T) {
	cfg := testConfig()
	cfg.AppEnv = "production"
	err := Setup(fiber.New(), Deps{Cfg: cfg, Logger: logging.Discard()})
	require.Error(t, err)
}
