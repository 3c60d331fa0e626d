package audithook

// Action constants for audit events.
const (
	// Session actions
	ActionSessionOpened = "session.opened"
	ActionSessionClosed = "session.closed"

	// Outbound actions
	ActionOutboundRejected = "outbound.rejected"

	// Fee actions
	ActionChargeComputed = "charge.computed"

	// Store actions
	ActionStoreError = "store.error"
)

// Resource constants for audit events.
const (
	ResourceSession = "session"
	ResourceCharge  = "charge"
	ResourceStore   = "store"
)

// Category constants for audit events.
const (
	CategoryAccess     = "access"
	CategoryBilling    = "billing"
	CategoryOperations = "operations"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
