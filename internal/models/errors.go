package models

import "errors"

// Error kinds surfaced by the engine and its storage adapters.
// Wrap with fmt.Errorf("%w: ...") and classify with errors.Is.
var (
	ErrValidation          = errors.New("validation failed")
	ErrNotFound            = errors.New("not found")
	ErrAlreadyDecided      = errors.New("already decided")
	ErrAlreadyProcessed    = errors.New("already processed")
	ErrAlreadySettled      = errors.New("cycle already settled")
	ErrNotReady            = errors.New("payout trigger not met")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrConflict            = errors.New("concurrent modification")
)

// ErrorKind returns a short label for the error's kind, used in logs and
// metrics. Unknown errors are reported as "internal".
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyDecided):
		return "already_decided"
	case errors.Is(err, ErrAlreadyProcessed):
		return "already_processed"
	case errors.Is(err, ErrAlreadySettled):
		return "already_settled"
	case errors.Is(err, ErrNotReady):
		return "not_ready"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "internal"
	}
}
