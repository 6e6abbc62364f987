package billing

import "errors"

// Error kinds surfaced by the service. Validation and not-found conditions
// are always detected before any persistence write; a conflict means the
// bounded compare-and-swap retry in RecordPayment or UpdateInvoice was
// exhausted. Everything else is a persistence error propagated unchanged.
var (
	ErrValidation = errors.New("billing: validation failed")
	ErrNotFound   = errors.New("billing: not found")
	ErrConflict   = errors.New("billing: concurrent update conflict")
)
