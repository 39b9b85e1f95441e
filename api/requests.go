package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/debtbook"
	"github.com/xraph/debtbook/types"
)

// CreateCounterpartyRequest is the body of POST /counterparties.
type CreateCounterpartyRequest struct {
	Kind    string `json:"kind"    validate:"required,oneof=customer supplier"`
	Name    string `json:"name"    validate:"required,max=255"`
	Phone   string `json:"phone"   validate:"omitempty,max=64"`
	Email   string `json:"email"   validate:"omitempty,email"`
	Address string `json:"address" validate:"omitempty,max=1000"`
}

// CreateDebtRequest is the body of POST /debts. Amount accepts a JSON
// number or string and must be present; due_date is a calendar date.
type CreateDebtRequest struct {
	CounterpartyID string              `json:"counterparty_id" validate:"required"`
	Amount         decimal.NullDecimal `json:"amount"          validate:"required"`
	Description    string              `json:"description"     validate:"omitempty,max=1000"`
	DueDate        string              `json:"due_date"        validate:"required,datetime=2006-01-02"`
}

// RecordPaymentRequest is the body of POST /debts/{id}/payments.
type RecordPaymentRequest struct {
	Amount decimal.NullDecimal `json:"amount" validate:"required"`
	Method string              `json:"method" validate:"omitempty,max=64"`
}

// nullDecimalValue lets the validator see a missing or null amount as
// empty, so "required" rejects it instead of it decoding to zero.
func nullDecimalValue(v reflect.Value) any {
	nd, ok := v.Interface().(decimal.NullDecimal)
	if !ok || !nd.Valid {
		return nil
	}
	return nd.Decimal.String()
}

// decode reads a JSON body into v and validates it.
func (h *Handler) decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return debtbook.ValidationError{Field: "body", Message: err.Error()}
	}
	return h.validate.Struct(v)
}

// pageParams reads limit/offset query parameters.
func pageParams(q url.Values) (limit, offset int, err error) {
	if limit, err = intParam(q, "limit"); err != nil {
		return 0, 0, err
	}
	if offset, err = intParam(q, "offset"); err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

func intParam(q url.Values, key string) (int, error) {
	s := q.Get(key)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, debtbook.ValidationError{Field: key, Message: fmt.Sprintf("%q is not a non-negative integer", s)}
	}
	return n, nil
}

func dateParam(q url.Values, key string) (time.Time, error) {
	s := q.Get(key)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := types.ParseDate(s)
	if err != nil {
		return time.Time{}, debtbook.ValidationError{Field: key, Message: fmt.Sprintf("%q is not a YYYY-MM-DD date", s)}
	}
	return t, nil
}
