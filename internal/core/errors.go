package core

import "errors"

// Validation errors. These are rejected before any mutation is applied.
var (
	ErrInvalidDate           = errors.New("invalid date")
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrInvalidStatus         = errors.New("invalid status")
	ErrEmptyDescription      = errors.New("empty description")
	ErrMissingPaymentDate    = errors.New("paid bill requires a payment date")
	ErrUnexpectedPaymentDate = errors.New("pending bill cannot carry a payment date")
	ErrInvalidInstallment    = errors.New("invalid installment numbering")
	ErrGroupTooSmall         = errors.New("installment group requires at least 2 installments")
	ErrCountOutOfRange       = errors.New("installment count out of range")
)

var (
	// ErrNotFound signals that the target id does not exist in the store.
	ErrNotFound = errors.New("bill not found")

	// ErrGroupConflict signals a broken group invariant, such as paying an
	// installment whose group no longer exists.
	ErrGroupConflict = errors.New("installment group conflict")

	// ErrUpstreamUnavailable wraps store or network failures. The core never
	// retries; callers decide whether to queue the write locally.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrUnauthorized is propagated verbatim from the session verifier. It
	// terminates the in-flight operation and invalidates cached credentials.
	ErrUnauthorized = errors.New("unauthorized")
)
