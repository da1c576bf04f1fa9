package ports

import "errors"

// Standard application-level errors.
// Adapters and services wrap these with context; callers match them with errors.Is.
var (
	// Challenge engine errors
	ErrNotFound         = errors.New("resource not found")
	ErrInvalidState     = errors.New("operation not allowed in current state")
	ErrPriceUnavailable = errors.New("price unavailable")
	ErrValidation       = errors.New("validation failed")
	ErrConflict         = errors.New("concurrent modification detected")

	// General Errors
	ErrUnknown            = errors.New("unknown error occurred")
	ErrTimeout            = errors.New("operation timed out")
	ErrContextCanceled    = errors.New("operation canceled via context")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Market data errors
	ErrExchangeUnavailable  = errors.New("exchange API is unavailable")
	ErrConnectionFailed     = errors.New("failed to connect to the exchange")
	ErrRateLimited          = errors.New("API rate limit exceeded")
	ErrAuthenticationFailed = errors.New("exchange authentication failed (check API keys)")
	ErrUnknownSymbol        = errors.New("unknown symbol")

	// Database Specific Errors
	ErrDBConnection = errors.New("database connection error")
	ErrQueryFailed  = errors.New("database query failed")
	ErrUpdateFailed = errors.New("database update failed")
)
