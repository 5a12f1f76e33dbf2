package ai

import "errors"

// Transport error classes. Completer implementations wrap their failures in
// one of these so the retry client can decide whether to try again.
var (
	// ErrConnection indicates the service could not be reached.
	ErrConnection = errors.New("llm connection error")

	// ErrRateLimited indicates the service rejected the call for rate or quota reasons.
	ErrRateLimited = errors.New("llm rate limited")

	// ErrUpstream indicates a server-side failure or an empty reply.
	ErrUpstream = errors.New("llm upstream error")

	// ErrInvalidRequest indicates the service rejected the request itself.
	ErrInvalidRequest = errors.New("llm invalid request")
)

// ErrInvalidMaxAttempts is returned when a retry policy allows no attempts.
var ErrInvalidMaxAttempts = errors.New("max attempts must be greater than 0")

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrConnection) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrUpstream)
}
