package lookup

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound means no provider could resolve the symbol.
var ErrNotFound = errors.New("symbol not found")

// Kind classifies a failed lookup.
type Kind int

const (
	KindInvalid Kind = iota + 1
	KindNotFound
	KindFx
	// KindStore is never returned by Lookup; store failures only degrade it.
	KindStore
	// KindTimeout means ctx ended before any provider or the FX API answered.
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindNotFound:
		return "not_found"
	case KindFx:
		return "fx"
	case KindStore:
		return "store"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error is the typed failure returned by Service.Lookup.
type Error struct {
	Kind   Kind
	Symbol string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("lookup %s (%s): %v", e.Symbol, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of err, or 0 when err is not a lookup error.
func KindOf(err error) Kind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return 0
}

// HTTPStatus maps a lookup error to a caller-facing status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInvalid:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindFx:
		return http.StatusBadGateway
	case KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
