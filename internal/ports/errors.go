package ports

import (
	"errors"

	"barreplay/internal/domain"
)

// Standard application-level errors.
// Adapters and core components wrap underlying errors with these standard
// errors so callers can branch with errors.Is.
var (
	// General Errors
	ErrUnknown       = errors.New("unknown error occurred")
	ErrValidation    = errors.New("invalid request parameters")
	ErrNotFound      = errors.New("resource not found")
	ErrTimeout       = errors.New("operation timed out")
	ErrContextDone   = errors.New("operation canceled via context")
	ErrConfiguration = errors.New("invalid or missing configuration")

	// Replay Specific Errors
	ErrEmptySeries = errors.New("bar series is empty")
	// ErrInvalidSeries lives in domain (the series constructor returns it);
	// re-exported here so adapters can branch on the same vocabulary.
	ErrInvalidSeries = domain.ErrInvalidSeries

	// Market Data Specific Errors
	ErrProviderUnavailable  = errors.New("market data provider is unavailable")
	ErrRateLimited          = errors.New("API rate limit exceeded")
	ErrAuthenticationFailed = errors.New("market data authentication failed (check API keys)")

	// Persistence Specific Errors
	ErrDBConnection = errors.New("database connection error")
	ErrQueryFailed  = errors.New("database query failed")
	ErrUpdateFailed = errors.New("database update failed")
)
