package audithook

// Action constants for audit events.
const (
	// Counterparty actions
	ActionCounterpartyCreated = "counterparty.created"

	// Debt actions
	ActionDebtCreated = "debt.created"

	// Payment actions
	ActionPaymentRecorded = "payment.recorded"
	ActionPaymentRejected = "payment.rejected"
)

// Category constants for audit events.
const (
	CategoryDirectory = "directory"
	CategoryDebt      = "debt"
	CategoryPayment   = "payment"
)

// Severity levels for audit events.
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
