// Package id defines TypeID-based identity types for all debtbook entities.
//
// Every entity uses a single ID struct whose prefix names the entity type.
// IDs are K-sortable (UUIDv7-based), globally unique, and URL-safe in the
// format "prefix_suffix". Customers and suppliers get distinct prefixes so a
// counterparty ID alone tells which side of the obligation it sits on.
package id

import (
	"database/sql/driver"
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix identifies the entity type encoded in a TypeID.
type Prefix string

// Prefix constants for all debtbook entity types.
const (
	PrefixCustomer Prefix = "cust" // Counterparty that owes the account
	PrefixSupplier Prefix = "supp" // Counterparty the account owes
	PrefixDebt     Prefix = "debt" // Debt record
	PrefixPayment  Prefix = "pay"  // Payment against a debt
	PrefixHistory  Prefix = "hist" // Audit trail entry
)

// ID is the primary identifier type for all debtbook entities.
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receivers for UnmarshalText/Scan.
type ID struct {
	inner typeid.TypeID
	valid bool
}

// Nil is the zero-value ID.
var Nil ID

// New generates a new globally unique ID with the given prefix.
// It panics if prefix is not a valid TypeID prefix (programming error).
func New(prefix Prefix) ID {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: invalid prefix %q: %v", prefix, err))
	}

	return ID{inner: tid, valid: true}
}

// Parse parses a TypeID string (e.g., "debt_01h2xcejqtf2nbrexx3vqjhp41")
// into an ID.
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse %q: empty string", s)
	}

	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}

	return ID{inner: tid, valid: true}, nil
}

// ParseWithPrefix parses a TypeID string and validates that its prefix
// matches the expected value.
func ParseWithPrefix(s string, expected Prefix) (ID, error) {
	parsed, err := Parse(s)
	if err != nil {
		return Nil, err
	}

	if parsed.Prefix() != expected {
		return Nil, fmt.Errorf("id: expected prefix %q, got %q", expected, parsed.Prefix())
	}

	return parsed, nil
}

// ParseOneOf parses a TypeID string and accepts any of the given prefixes.
func ParseOneOf(s string, allowed ...Prefix) (ID, error) {
	parsed, err := Parse(s)
	if err != nil {
		return Nil, err
	}

	for _, p := range allowed {
		if parsed.Prefix() == p {
			return parsed, nil
		}
	}

	return Nil, fmt.Errorf("id: unexpected prefix %q in %q", parsed.Prefix(), s)
}

// MustParse is like Parse but panics on error. Use for hardcoded ID values.
func MustParse(s string) ID {
	parsed, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("id: must parse %q: %v", s, err))
	}

	return parsed
}

// ──────────────────────────────────────────────────
// Type aliases
// ──────────────────────────────────────────────────

// CounterpartyID identifies a customer ("cust") or a supplier ("supp").
type CounterpartyID = ID

// DebtID is a type-safe identifier for debts (prefix: "debt").
type DebtID = ID

// PaymentID is a type-safe identifier for payments (prefix: "pay").
type PaymentID = ID

// HistoryID is a type-safe identifier for audit entries (prefix: "hist").
type HistoryID = ID

// ──────────────────────────────────────────────────
// Convenience constructors
// ──────────────────────────────────────────────────

// NewCustomerID generates a new unique customer ID.
func NewCustomerID() ID { return New(PrefixCustomer) }

// NewSupplierID generates a new unique supplier ID.
func NewSupplierID() ID { return New(PrefixSupplier) }

// NewDebtID generates a new unique debt ID.
func NewDebtID() ID { return New(PrefixDebt) }

// NewPaymentID generates a new unique payment ID.
func NewPaymentID() ID { return New(PrefixPayment) }

// NewHistoryID generates a new unique audit entry ID.
func NewHistoryID() ID { return New(PrefixHistory) }

// ──────────────────────────────────────────────────
// Convenience parsers
// ──────────────────────────────────────────────────

// ParseCounterpartyID parses a string and accepts either "cust" or "supp".
func ParseCounterpartyID(s string) (ID, error) {
	return ParseOneOf(s, PrefixCustomer, PrefixSupplier)
}

// ParseDebtID parses a string and validates the "debt" prefix.
func ParseDebtID(s string) (ID, error) { return ParseWithPrefix(s, PrefixDebt) }

// ParsePaymentID parses a string and validates the "pay" prefix.
func ParsePaymentID(s string) (ID, error) { return ParseWithPrefix(s, PrefixPayment) }

// ParseHistoryID parses a string and validates the "hist" prefix.
func ParseHistoryID(s string) (ID, error) { return ParseWithPrefix(s, PrefixHistory) }

// ──────────────────────────────────────────────────
// ID methods
// ──────────────────────────────────────────────────

// String returns the full TypeID string representation (prefix_suffix).
// Returns an empty string for the Nil ID.
func (i ID) String() string {
	if !i.valid {
		return ""
	}

	return i.inner.String()
}

// Prefix returns the prefix component of this ID.
func (i ID) Prefix() Prefix {
	if !i.valid {
		return ""
	}

	return Prefix(i.inner.Prefix())
}

// IsNil reports whether this ID is the zero value.
func (i ID) IsNil() bool {
	return !i.valid
}

// MarshalText implements encoding.TextMarshaler.
func (i ID) MarshalText() ([]byte, error) {
	if !i.valid {
		return []byte{}, nil
	}

	return []byte(i.inner.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil

		return nil
	}

	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}

	*i = parsed

	return nil
}

// Value implements driver.Valuer. The Nil ID is stored as NULL.
func (i ID) Value() (driver.Value, error) {
	if !i.valid {
		return nil, nil //nolint:nilnil // nil is the canonical NULL for driver.Valuer
	}

	return i.inner.String(), nil
}

// Scan implements sql.Scanner.
func (i *ID) Scan(src any) error {
	if src == nil {
		*i = Nil

		return nil
	}

	switch v := src.(type) {
	case string:
		if v == "" {
			*i = Nil

			return nil
		}

		return i.UnmarshalText([]byte(v))
	case []byte:
		if len(v) == 0 {
			*i = Nil

			return nil
		}

		return i.UnmarshalText(v)
	default:
		return fmt.Errorf("id: cannot scan %T into ID", src)
	}
}
