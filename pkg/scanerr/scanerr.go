// Package scanerr is the pipeline's error taxonomy. Every error the
// orchestrator can return classifies into exactly one of these kinds, so
// a caller (CLI, HTTP handler, whatever sits on top) can map it to the
// right response without string-matching error text.
package scanerr

import "fmt"

// Kind classifies a scan failure.
type Kind string

const (
	// InvalidInput means C1 normalization rejected the raw input —
	// maps to HTTP 422.
	InvalidInput Kind = "invalid_input"

	// AuthError means a caller-facing auth check failed. The pipeline
	// itself never produces this; it exists so a wrapping transport can
	// reuse the same taxonomy for its own 401/403s.
	AuthError Kind = "auth_error"

	// RateLimited means the caller was throttled before a scan ran —
	// maps to HTTP 429.
	RateLimited Kind = "rate_limited"

	// Transient means a probe step (DNS/TLS/HTTP/WHOIS) failed in a way
	// that's swallowed internally; it's recorded here only when it
	// escapes a stage that has no fallback.
	Transient Kind = "transient"

	// ModelError means C5 failed to produce a score. Non-fatal: the
	// orchestrator still returns a verdict built from risk factors alone.
	ModelError Kind = "model_error"

	// BudgetExceeded means the global request deadline elapsed before
	// the pipeline reached a stage it needed to finish.
	BudgetExceeded Kind = "budget_exceeded"

	// Internal is anything else — maps to a redacted HTTP 500.
	Internal Kind = "internal"
)

// Error wraps an underlying cause with a Kind for classification.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds an Error of the given kind around an underlying cause.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the Kind from err, defaulting to Internal for anything
// not produced by this package.
func KindOf(err error) Kind {
	var se *Error
	if ok := asError(err, &se); ok {
		return se.Kind
	}
	return Internal
}

func asError(err error, target **Error) bool {
	for err != nil {
		if se, ok := err.(*Error); ok {
			*target = se
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// HTTPStatus maps a Kind to the HTTP status code a transport layer
// should surface for it.
func HTTPStatus(kind Kind) int {
	switch kind {
	case InvalidInput:
		return 422
	case AuthError:
		return 403
	case RateLimited:
		return 429
	case BudgetExceeded:
		return 504
	case Transient, ModelError:
		return 200 // degraded but successful partial result
	default:
		return 500
	}
}
