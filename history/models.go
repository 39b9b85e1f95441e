// Package history holds the per-account audit trail.
package history

import (
	"time"

	"github.com/xraph/debtbook/id"
)

// Common actions recorded in the trail.
const (
	ActionCreate  = "create"
	ActionPayment = "payment"
)

// Entry is one append-only audit record.
type Entry struct {
	ID         id.HistoryID `json:"id"`
	Account    string       `json:"account"`
	EntityType string       `json:"entity_type"`
	EntityID   string       `json:"entity_id,omitempty"`
	Action     string       `json:"action"`
	Details    string       `json:"details"`
	Timestamp  time.Time    `json:"timestamp"`
}
