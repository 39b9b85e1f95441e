// Package api exposes a debtbook Ledger over HTTP.
//
// Every route except /healthz requires a bearer JWT whose subject claim is
// the account the request acts for.
package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/xraph/debtbook"
	"github.com/xraph/debtbook/counterparty"
	"github.com/xraph/debtbook/debt"
	"github.com/xraph/debtbook/history"
	"github.com/xraph/debtbook/id"
	"github.com/xraph/debtbook/payment"
	"github.com/xraph/debtbook/types"
)

// Handler serves the debtbook HTTP API.
type Handler struct {
	ledger   *debtbook.Ledger
	validate *validator.Validate
	logger   *slog.Logger
	secret   []byte
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// New creates a Handler for l. Tokens are verified with secret.
func New(l *debtbook.Ledger, secret []byte, opts ...Option) *Handler {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterCustomTypeFunc(nullDecimalValue, decimal.NullDecimal{})

	h := &Handler{
		ledger:   l,
		validate: v,
		logger:   slog.Default(),
		secret:   secret,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Router returns a router with every route registered.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	h.Register(r)
	return r
}

// Register mounts the API on r.
func (h *Handler) Register(r *mux.Router) {
	r.Use(h.logRequests)
	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)

	authed := r.NewRoute().Subrouter()
	authed.Use(AuthMiddleware(h.secret))

	authed.HandleFunc("/counterparties", h.createCounterparty).Methods(http.MethodPost)
	authed.HandleFunc("/counterparties", h.listCounterparties).Methods(http.MethodGet)
	authed.HandleFunc("/counterparties/{id}", h.getCounterparty).Methods(http.MethodGet)

	authed.HandleFunc("/debts", h.createDebt).Methods(http.MethodPost)
	authed.HandleFunc("/debts", h.listDebts).Methods(http.MethodGet)
	authed.HandleFunc("/debts/active", h.listActive).Methods(http.MethodGet)
	authed.HandleFunc("/debts/{id}", h.getDebt).Methods(http.MethodGet)
	authed.HandleFunc("/debts/{id}/payments", h.recordPayment).Methods(http.MethodPost)
	authed.HandleFunc("/debts/{id}/payments", h.listDebtPayments).Methods(http.MethodGet)

	authed.HandleFunc("/payments", h.listPayments).Methods(http.MethodGet)
	authed.HandleFunc("/outstanding", h.outstanding).Methods(http.MethodGet)
	authed.HandleFunc("/reports/debts", h.debtReport).Methods(http.MethodGet)
	authed.HandleFunc("/history", h.listHistory).Methods(http.MethodGet)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.Health(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ──────────────────────────────────────────────────
// Counterparties
// ──────────────────────────────────────────────────

func (h *Handler) createCounterparty(w http.ResponseWriter, r *http.Request) {
	account := mustAccount(r)

	var req CreateCounterpartyRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	c := &counterparty.Counterparty{
		Kind:    counterparty.Kind(req.Kind),
		Name:    req.Name,
		Phone:   req.Phone,
		Email:   req.Email,
		Address: req.Address,
	}
	if err := h.ledger.CreateCounterparty(r.Context(), account, c); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) listCounterparties(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset, err := pageParams(q)
	if err != nil {
		writeError(w, err)
		return
	}

	cs, err := h.ledger.ListCounterparties(r.Context(), mustAccount(r), counterparty.ListOpts{
		Kind:   counterparty.Kind(q.Get("kind")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

func (h *Handler) getCounterparty(w http.ResponseWriter, r *http.Request) {
	cid, err := id.ParseCounterpartyID(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, debtbook.ErrCounterpartyNotFound)
		return
	}
	c, err := h.ledger.GetCounterparty(r.Context(), mustAccount(r), cid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// ──────────────────────────────────────────────────
// Debts
// ──────────────────────────────────────────────────

func (h *Handler) createDebt(w http.ResponseWriter, r *http.Request) {
	var req CreateDebtRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	cid, err := id.ParseCounterpartyID(req.CounterpartyID)
	if err != nil {
		writeError(w, debtbook.ErrCounterpartyNotFound)
		return
	}
	dueDate, err := types.ParseDate(req.DueDate)
	if err != nil {
		writeError(w, debtbook.ValidationError{Field: "due_date", Message: err.Error()})
		return
	}

	d, err := h.ledger.CreateDebt(r.Context(), mustAccount(r), cid, req.Amount.Decimal, req.Description, dueDate)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (h *Handler) listDebts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := debt.ListOpts{
		Kind:   counterparty.Kind(q.Get("kind")),
		Status: debt.Status(q.Get("status")),
	}

	var err error
	if opts.Limit, opts.Offset, err = pageParams(q); err != nil {
		writeError(w, err)
		return
	}
	if opts.DueFrom, err = dateParam(q, "due_from"); err != nil {
		writeError(w, err)
		return
	}
	if opts.DueTo, err = dateParam(q, "due_to"); err != nil {
		writeError(w, err)
		return
	}
	if s := q.Get("counterparty_id"); s != "" {
		if opts.CounterpartyID, err = id.ParseCounterpartyID(s); err != nil {
			writeError(w, debtbook.ValidationError{Field: "counterparty_id", Message: err.Error()})
			return
		}
	}

	ds, err := h.ledger.ListDebts(r.Context(), mustAccount(r), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

func (h *Handler) listActive(w http.ResponseWriter, r *http.Request) {
	ds, err := h.ledger.ListActive(r.Context(), mustAccount(r), counterparty.Kind(r.URL.Query().Get("kind")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

func (h *Handler) getDebt(w http.ResponseWriter, r *http.Request) {
	debtID, ok := debtIDVar(w, r)
	if !ok {
		return
	}
	d, err := h.ledger.GetDebt(r.Context(), mustAccount(r), debtID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// ──────────────────────────────────────────────────
// Payments
// ──────────────────────────────────────────────────

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	debtID, ok := debtIDVar(w, r)
	if !ok {
		return
	}

	var req RecordPaymentRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	p, err := h.ledger.RecordPayment(r.Context(), mustAccount(r), debtID, req.Amount.Decimal, payment.Method(req.Method))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) listDebtPayments(w http.ResponseWriter, r *http.Request) {
	debtID, ok := debtIDVar(w, r)
	if !ok {
		return
	}
	h.writePayments(w, r, payment.ListOpts{DebtID: debtID})
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	opts := payment.ListOpts{Kind: counterparty.Kind(r.URL.Query().Get("kind"))}
	if s := r.URL.Query().Get("debt_id"); s != "" {
		debtID, err := id.ParseDebtID(s)
		if err != nil {
			writeError(w, debtbook.ValidationError{Field: "debt_id", Message: err.Error()})
			return
		}
		opts.DebtID = debtID
	}
	h.writePayments(w, r, opts)
}

func (h *Handler) writePayments(w http.ResponseWriter, r *http.Request, opts payment.ListOpts) {
	var err error
	if opts.Limit, opts.Offset, err = pageParams(r.URL.Query()); err != nil {
		writeError(w, err)
		return
	}
	ps, err := h.ledger.ListPayments(r.Context(), mustAccount(r), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

// ──────────────────────────────────────────────────
// Reports
// ──────────────────────────────────────────────────

// OutstandingResponse is the body of GET /outstanding.
type OutstandingResponse struct {
	Kind      counterparty.Kind `json:"kind,omitempty"`
	Total     string            `json:"total"`
	Formatted string            `json:"formatted"`
}

func (h *Handler) outstanding(w http.ResponseWriter, r *http.Request) {
	kind := counterparty.Kind(r.URL.Query().Get("kind"))
	total, err := h.ledger.Outstanding(r.Context(), mustAccount(r), kind)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, OutstandingResponse{
		Kind:      kind,
		Total:     total.StringFixed(2),
		Formatted: types.Format(total, h.ledger.Currency()),
	})
}

func (h *Handler) debtReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := dateParam(q, "from")
	if err != nil {
		writeError(w, err)
		return
	}
	to, err := dateParam(q, "to")
	if err != nil {
		writeError(w, err)
		return
	}

	report, err := h.ledger.DebtReport(r.Context(), mustAccount(r), counterparty.Kind(q.Get("kind")), from, to)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) listHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset, err := pageParams(q)
	if err != nil {
		writeError(w, err)
		return
	}

	entries, err := h.ledger.ListHistory(r.Context(), mustAccount(r), history.ListOpts{
		EntityTypes: q["entity_type"],
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

// mustAccount reads the account set by AuthMiddleware. Handlers are only
// reachable through it, so an empty account falls through to the engine's
// own validation.
func mustAccount(r *http.Request) string {
	account, _ := AccountFrom(r.Context())
	return account
}

func debtIDVar(w http.ResponseWriter, r *http.Request) (id.DebtID, bool) {
	debtID, err := id.ParseDebtID(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, debtbook.ErrDebtNotFound)
		return id.Nil, false
	}
	return debtID, true
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		level := slog.LevelInfo
		if rec.status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		h.logger.Log(r.Context(), level, "http request",
			"method", r.Method,
			"path", strings.TrimSuffix(r.URL.Path, "/"),
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
