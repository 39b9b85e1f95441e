package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/xraph/debtbook"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// statusOf maps engine errors onto an HTTP status and a stable error code.
func statusOf(err error) (int, string) {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, debtbook.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, debtbook.ErrInvalidAmount):
		return http.StatusUnprocessableEntity, "invalid_amount"
	case errors.Is(err, debtbook.ErrOverpaymentRejected):
		return http.StatusConflict, "overpayment_rejected"
	case errors.Is(err, debtbook.ErrAlreadySettled):
		return http.StatusConflict, "already_settled"
	case errors.Is(err, debtbook.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, debtbook.ErrAlreadyExists):
		return http.StatusConflict, "already_exists"
	case debtbook.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, debtbook.ErrInvalidKind):
		return http.StatusBadRequest, "invalid_kind"
	case errors.Is(err, debtbook.ErrInvalidInput), errors.As(err, &verrs):
		return http.StatusBadRequest, "invalid_input"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, code := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = http.StatusText(status)
	}
	writeJSON(w, status, ErrorResponse{Error: code, Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // client went away
}
