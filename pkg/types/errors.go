package types

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an error for the command surface. Transports map
// kinds to their own status semantics; the core only distinguishes kinds.
type ErrorKind string

const (
	KindValidation       ErrorKind = "validation"        // bad input: royalty out of range, unknown symbol, ...
	KindConflict         ErrorKind = "conflict"          // already joined, round full, wrong lifecycle state
	KindNotFound         ErrorKind = "not_found"         // round/participant/strategy missing
	KindStoreUnavailable ErrorKind = "store_unavailable" // external store down, strict mode
	KindLLMUpstream      ErrorKind = "llm_upstream"      // chat-completion failure (never leaves the tick)
	KindPriceUpstream    ErrorKind = "price_upstream"    // price feed failure (never leaves the tick)
	KindInternal         ErrorKind = "internal"          // catch-all
)

// Error is the typed error carried across component boundaries.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error // wrapped cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Validationf builds a validation error.
func Validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Conflictf builds a conflict error.
func Conflictf(format string, args ...any) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf builds a not-found error.
func NotFoundf(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// StoreUnavailable wraps a store failure for strict mode.
func StoreUnavailable(err error) error {
	return &Error{Kind: KindStoreUnavailable, Message: "store unavailable", Err: err}
}

// LLMUpstream wraps a non-429 chat-completion failure.
func LLMUpstream(err error) error {
	return &Error{Kind: KindLLMUpstream, Message: "llm upstream", Err: err}
}

// PriceUpstream wraps a price-feed failure.
func PriceUpstream(err error) error {
	return &Error{Kind: KindPriceUpstream, Message: "price upstream", Err: err}
}

// Internalf builds a catch-all internal error.
func Internalf(format string, args ...any) error {
	return &Error{Kind: KindInternal, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind of an error, defaulting to KindInternal for
// untyped errors and "" for nil.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
