package domain

import "errors"

// Client-facing failures. Every one of them is recoverable by retrying with
// different input; none is fatal to the process.
var (
	ErrInvalidTransition      = errors.New("invalid status transition")
	ErrPredecessorNotComplete = errors.New("predecessor leg not delivered")
	ErrNotAuthorizedForLeg    = errors.New("courier not authorized for leg")
	ErrCodeMismatch           = errors.New("tracking code does not match leg")
	ErrCodeNotFound           = errors.New("tracking code not found")
	ErrVerificationRequired   = errors.New("tracking code verification required before pickup")
	ErrProofNotAllowed        = errors.New("proof of delivery not allowed for leg")
	ErrInsufficientBalance    = errors.New("deposit exceeds outstanding cod balance")
	ErrInvalidRoute           = errors.New("invalid route")
)

// ErrConcurrentModification means a version-checked write lost a race. The
// caller should refetch and retry the whole operation.
var ErrConcurrentModification = errors.New("concurrent modification, refetch and retry")

var (
	ErrLegNotFound          = errors.New("leg not found")
	ErrShipmentNotFound     = errors.New("shipment not found")
	ErrShipmentExists       = errors.New("shipment already dispatched")
	ErrTransactionNotFound  = errors.New("ledger transaction not found")
	ErrDuplicateTransaction = errors.New("ledger transaction already recorded")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidEntryType     = errors.New("invalid ledger entry type")
	ErrForbidden            = errors.New("access forbidden")
	ErrInvalidFilter        = errors.New("invalid filter")
)
