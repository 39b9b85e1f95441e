package audithook

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/debtbook/history"
	"github.com/xraph/debtbook/id"
)

// historyActions maps audit actions onto the actions kept in the history
// trail. Actions without an entry are not persisted.
var historyActions = map[string]string{
	ActionCounterpartyCreated: history.ActionCreate,
	ActionDebtCreated:         history.ActionCreate,
	ActionPaymentRecorded:     history.ActionPayment,
}

// HistoryRecorder persists audit events as history entries.
type HistoryRecorder struct {
	store history.Store
	now   func() time.Time
}

// HistoryRecorderOption configures a HistoryRecorder.
type HistoryRecorderOption func(*HistoryRecorder)

// WithRecorderClock sets the clock used for events that carry no
// timestamp of their own.
func WithRecorderClock(now func() time.Time) HistoryRecorderOption {
	return func(r *HistoryRecorder) {
		if now != nil {
			r.now = now
		}
	}
}

// NewHistoryRecorder returns a Recorder writing to s. Entries are stamped
// with the event's timestamp, falling back to the recorder's clock.
func NewHistoryRecorder(s history.Store, opts ...HistoryRecorderOption) *HistoryRecorder {
	r := &HistoryRecorder{store: s, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record implements Recorder.
func (r *HistoryRecorder) Record(ctx context.Context, event *AuditEvent) error {
	action, ok := historyActions[event.Action]
	if !ok || event.Account == "" {
		return nil
	}

	ts := event.Timestamp
	if ts.IsZero() {
		ts = r.now()
	}

	return r.store.AppendHistory(ctx, &history.Entry{
		ID:         id.NewHistoryID(),
		Account:    event.Account,
		EntityType: event.Resource,
		EntityID:   event.ResourceID,
		Action:     action,
		Details:    event.Details,
		Timestamp:  ts.UTC(),
	})
}

// NewLogRecorder returns a Recorder that writes every event to logger.
func NewLogRecorder(logger *slog.Logger) Recorder {
	return RecorderFunc(func(ctx context.Context, event *AuditEvent) error {
		level := slog.LevelInfo
		if event.Severity == SeverityWarning {
			level = slog.LevelWarn
		}
		logger.Log(ctx, level, "audit",
			"account", event.Account,
			"action", event.Action,
			"resource", event.Resource,
			"resource_id", event.ResourceID,
			"outcome", event.Outcome,
			"details", event.Details,
		)
		return nil
	})
}
