package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"

	"github.com/xraph/debtbook"
	"github.com/xraph/debtbook/counterparty"
	"github.com/xraph/debtbook/debt"
	"github.com/xraph/debtbook/payment"
	"github.com/xraph/debtbook/store/memory"
)

var secret = []byte("test-secret")

type client struct {
	t      *testing.T
	server *httptest.Server
	token  string
}

func newClient(t *testing.T, account string) *client {
	t.Helper()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	l := debtbook.New(memory.New(), debtbook.WithLogger(quiet))
	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	srv := httptest.NewServer(New(l, secret, WithLogger(quiet)).Router())
	t.Cleanup(srv.Close)

	token, err := IssueToken(secret, account, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	return &client{t: t, server: srv, token: token}
}

func (c *client) do(method, path string, body any, out any) int {
	c.t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.server.URL+path, r)
	if err != nil {
		c.t.Fatalf("NewRequest: %v", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			c.t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func TestPaymentFlow(t *testing.T) {
	c := newClient(t, "shop-1")

	var cp counterparty.Counterparty
	if code := c.do(http.MethodPost, "/counterparties", CreateCounterpartyRequest{Kind: "customer", Name: "Asha"}, &cp); code != http.StatusCreated {
		t.Fatalf("create counterparty: status %d", code)
	}

	var d debt.Debt
	code := c.do(http.MethodPost, "/debts", map[string]any{
		"counterparty_id": cp.ID.String(),
		"amount":          "200",
		"due_date":        "2024-06-30",
	}, &d)
	if code != http.StatusCreated {
		t.Fatalf("create debt: status %d", code)
	}
	if !d.RemainingAmount.Equal(decimal.NewFromInt(200)) || d.Status != debt.StatusActive {
		t.Fatalf("debt = %+v", d)
	}

	var p payment.Payment
	code = c.do(http.MethodPost, "/debts/"+d.ID.String()+"/payments", map[string]any{"amount": "50"}, &p)
	if code != http.StatusCreated {
		t.Fatalf("record payment: status %d", code)
	}
	if p.Method != payment.MethodCash {
		t.Errorf("method = %q, want Cash", p.Method)
	}

	var errResp ErrorResponse
	code = c.do(http.MethodPost, "/debts/"+d.ID.String()+"/payments", map[string]any{"amount": "500"}, &errResp)
	if code != http.StatusConflict || errResp.Error != "overpayment_rejected" {
		t.Errorf("overpayment: status %d, error %q", code, errResp.Error)
	}

	var got debt.Debt
	if code := c.do(http.MethodGet, "/debts/"+d.ID.String(), nil, &got); code != http.StatusOK {
		t.Fatalf("get debt: status %d", code)
	}
	if !got.RemainingAmount.Equal(decimal.NewFromInt(150)) {
		t.Errorf("remaining = %s, want 150", got.RemainingAmount)
	}

	var active []debt.Debt
	if code := c.do(http.MethodGet, "/debts/active?kind=customer", nil, &active); code != http.StatusOK || len(active) != 1 {
		t.Errorf("active: status %d, %d debts", code, len(active))
	}

	var out OutstandingResponse
	if code := c.do(http.MethodGet, "/outstanding?kind=customer", nil, &out); code != http.StatusOK {
		t.Fatalf("outstanding: status %d", code)
	}
	if out.Total != "150.00" || out.Formatted != "₹150.00" {
		t.Errorf("outstanding = %+v", out)
	}

	var ps []payment.Payment
	if code := c.do(http.MethodGet, "/debts/"+d.ID.String()+"/payments", nil, &ps); code != http.StatusOK || len(ps) != 1 {
		t.Errorf("payments: status %d, %d payments", code, len(ps))
	}

	var report debtbook.Report
	if code := c.do(http.MethodGet, "/reports/debts?kind=customer&from=2024-06-01&to=2024-06-30", nil, &report); code != http.StatusOK {
		t.Fatalf("report: status %d", code)
	}
	if len(report.Lines) != 1 || report.Lines[0].CounterpartyName != "Asha" {
		t.Errorf("report lines = %+v", report.Lines)
	}
}

func TestErrorStatuses(t *testing.T) {
	c := newClient(t, "shop-1")

	var cp counterparty.Counterparty
	c.do(http.MethodPost, "/counterparties", CreateCounterpartyRequest{Kind: "supplier", Name: "Metro"}, &cp)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"bad kind", http.MethodPost, "/counterparties", map[string]any{"kind": "vendor", "name": "X"}, http.StatusBadRequest, "invalid_input"},
		{"duplicate supplier", http.MethodPost, "/counterparties", map[string]any{"kind": "supplier", "name": "Metro"}, http.StatusConflict, "already_exists"},
		{"unknown field", http.MethodPost, "/counterparties", map[string]any{"kind": "customer", "name": "A", "age": 3}, http.StatusBadRequest, "invalid_input"},
		{"negative amount", http.MethodPost, "/debts", map[string]any{"counterparty_id": cp.ID.String(), "amount": "-1", "due_date": "2024-01-01"}, http.StatusUnprocessableEntity, "invalid_amount"},
		{"missing amount", http.MethodPost, "/debts", map[string]any{"counterparty_id": cp.ID.String(), "due_date": "2024-01-01"}, http.StatusBadRequest, "invalid_input"},
		{"null amount", http.MethodPost, "/debts", map[string]any{"counterparty_id": cp.ID.String(), "amount": nil, "due_date": "2024-01-01"}, http.StatusBadRequest, "invalid_input"},
		{"missing payment amount", http.MethodPost, "/debts/debt_01h2xcejqtf2nbrexx3vqjhp41/payments", map[string]any{"method": "Cash"}, http.StatusBadRequest, "invalid_input"},
		{"bad due date", http.MethodPost, "/debts", map[string]any{"counterparty_id": cp.ID.String(), "amount": "1", "due_date": "01/02/2024"}, http.StatusBadRequest, "invalid_input"},
		{"unknown debt", http.MethodGet, "/debts/debt_01h2xcejqtf2nbrexx3vqjhp41", nil, http.StatusNotFound, "not_found"},
		{"malformed debt id", http.MethodGet, "/debts/nope", nil, http.StatusNotFound, "not_found"},
		{"bad limit", http.MethodGet, "/debts?limit=-2", nil, http.StatusBadRequest, "invalid_input"},
		{"bad list kind", http.MethodGet, "/payments?kind=vendor", nil, http.StatusBadRequest, "invalid_kind"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp ErrorResponse
			status := c.do(tt.method, tt.path, tt.body, &resp)
			if status != tt.status || resp.Error != tt.code {
				t.Errorf("got %d %q (%s), want %d %q", status, resp.Error, resp.Message, tt.status, tt.code)
			}
		})
	}

	var active []json.RawMessage
	if code := c.do(http.MethodGet, "/debts/active?kind=supplier", nil, &active); code != http.StatusOK || len(active) != 0 {
		t.Errorf("rejected requests created debts: %d %s", code, active)
	}
}

func TestAuthentication(t *testing.T) {
	c := newClient(t, "shop-1")

	expired, err := IssueToken(secret, "shop-1", -time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	otherKey, err := IssueToken([]byte("other"), "shop-1", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{}).SignedString(secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	for name, token := range map[string]string{
		"missing":    "",
		"expired":    expired,
		"wrong key":  otherKey,
		"no subject": noSubject,
	} {
		t.Run(name, func(t *testing.T) {
			c.token = token
			var resp ErrorResponse
			if status := c.do(http.MethodGet, "/debts", nil, &resp); status != http.StatusUnauthorized || resp.Error != "unauthorized" {
				t.Errorf("status %d %q, want 401 unauthorized", status, resp.Error)
			}
		})
	}

	c.token = ""
	var health map[string]string
	if status := c.do(http.MethodGet, "/healthz", nil, &health); status != http.StatusOK || health["status"] != "ok" {
		t.Errorf("healthz: %d %v", status, health)
	}
}

func TestAccountsAreIsolated(t *testing.T) {
	c := newClient(t, "shop-1")

	var cp counterparty.Counterparty
	c.do(http.MethodPost, "/counterparties", CreateCounterpartyRequest{Kind: "customer", Name: "Asha"}, &cp)
	var d debt.Debt
	c.do(http.MethodPost, "/debts", map[string]any{"counterparty_id": cp.ID.String(), "amount": 100, "due_date": "2024-06-30"}, &d)

	other, err := IssueToken(secret, "shop-2", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	c.token = other

	var resp ErrorResponse
	if status := c.do(http.MethodGet, "/debts/"+d.ID.String(), nil, &resp); status != http.StatusNotFound {
		t.Errorf("foreign debt: status %d, want 404", status)
	}
	if status := c.do(http.MethodPost, "/debts/"+d.ID.String()+"/payments", map[string]any{"amount": "10"}, &resp); status != http.StatusNotFound {
		t.Errorf("foreign payment: status %d, want 404", status)
	}
}
