package ledger

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/greenpay/greenpay/internal/account"
)

func setupHandlerApp(t *testing.T) (*fiber.App, account.Account, account.Store) {
	t.Helper()
	svc, accounts, _ := newTestService(&stubResolver{rate: decimal.NewFromInt(820)})
	acct := seedAccount(t, accounts, account.KYCVerified, true, "500")

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", acct.ID)
		return c.Next()
	})
	h := NewHandler(svc)
	app.Post("/transactions", h.Create)
	app.Get("/transactions", h.List)
	app.Get("/transactions/:id", h.Get)
	return app, acct, accounts
}

func TestHandlerCreateDeposit(t *testing.T) {
	app, _, _ := setupHandlerApp(t)

	req := httptest.NewRequest(fiber.MethodPost, "/transactions", strings.NewReader(`{"type":"deposit","amount":"50","currency":"USD"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	payload, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	var body map[string]any
	if err := json.Unmarshal(payload, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["amount"] != "50.00" || body["fee"] != "0.00" || body["status"] != "completed" {
		t.Fatalf("unexpected response: %v", body)
	}
	if _, ok := body["completed_at"]; !ok {
		t.Fatalf("completed deposit missing completed_at")
	}
}

func TestHandlerErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		status int
	}{
		{"invalid amount", `{"type":"deposit","amount":"0","currency":"USD"}`, fiber.StatusBadRequest},
		{"malformed amount", `{"type":"deposit","amount":"abc","currency":"USD"}`, fiber.StatusBadRequest},
		{"unknown type", `{"type":"teleport","amount":"10","currency":"USD"}`, fiber.StatusBadRequest},
		{"insufficient funds", `{"type":"send","amount":"100000","currency":"USD"}`, fiber.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app, _, _ := setupHandlerApp(t)
			req := httptest.NewRequest(fiber.MethodPost, "/transactions", strings.NewReader(tc.body))
			req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			if resp.StatusCode != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, resp.StatusCode)
			}
		})
	}
}

func TestHandlerPreconditionFailed(t *testing.T) {
	svc, accounts, _ := newTestService(&stubResolver{})
	acct := seedAccount(t, accounts, account.KYCPending, false, "500")

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", acct.ID)
		return c.Next()
	})
	app.Post("/transactions", NewHandler(svc).Create)

	req := httptest.NewRequest(fiber.MethodPost, "/transactions", strings.NewReader(`{"type":"send","amount":"10","currency":"USD"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d", resp.StatusCode)
	}
}

func TestHandlerGetHidesForeignTransactions(t *testing.T) {
	svc, accounts, _ := newTestService(&stubResolver{})
	owner := seedAccount(t, accounts, account.KYCPending, false, "")
	other := seedAccount(t, accounts, account.KYCPending, false, "")

	txn, err := svc.Create(context.Background(), CreateInput{
		AccountID: owner.ID,
		Type:      TypeDeposit,
		Amount:    decimal.NewFromInt(10),
		Currency:  "USD",
	})
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", other.ID)
		return c.Next()
	})
	app.Get("/transactions/:id", NewHandler(svc).Get)

	req := httptest.NewRequest(fiber.MethodGet, "/transactions/"+txn.ID, nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("foreign transaction should read as 404, got %d", resp.StatusCode)
	}
}
