package ports

import "errors"

// Standard application-level errors.
// Adapters should wrap underlying infrastructure errors with these standard errors.
var (
	// General Errors
	ErrUnknown            = errors.New("unknown error occurred")
	ErrInvalidRequest     = errors.New("invalid request parameters or format")
	ErrNotFound           = errors.New("resource not found")
	ErrTimeout            = errors.New("operation timed out")
	ErrContextCanceled    = errors.New("operation canceled via context")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Market Data Errors
	ErrPriceSourceUnavailable = errors.New("price source is unavailable")
	ErrRateLimited            = errors.New("API rate limit exceeded")
	ErrAuthenticationFailed   = errors.New("price source authentication failed (check API keys)")
	ErrSymbolNotFound         = errors.New("symbol not found at the price source")

	// Ledger Errors
	ErrNotAdmitted       = errors.New("proposal was not admitted by validation")
	ErrAdmissionMismatch = errors.New("admission was issued for a different agent")
	ErrAdmissionSpent    = errors.New("admission has already been applied")
	ErrAdmissionStale    = errors.New("portfolio changed since the admission was issued")
	ErrAgentDisabled     = errors.New("agent is disabled")

	// Arena Errors
	ErrArenaPaused     = errors.New("arena is paused")
	ErrRoundOutOfOrder = errors.New("round is not open for this agent")

	// Database Specific Errors
	ErrDuplicateEntry = errors.New("database record already exists")
	ErrDBConnection   = errors.New("database connection error")
	ErrQueryFailed    = errors.New("database query failed")
	ErrUpdateFailed   = errors.New("database update failed")
)
