package planreview

import "fmt"

// ValidationReason identifies why an operation input was rejected.
type ValidationReason string

// Validation error reasons.
const (
	ErrUnknownChange   ValidationReason = "unknown_change"
	ErrChangeApplied   ValidationReason = "change_applied"
	ErrBadThreshold    ValidationReason = "bad_threshold"
	ErrUnsupportedType ValidationReason = "unsupported_type"
	ErrValueShape      ValidationReason = "value_shape"
	ErrStatusConflict  ValidationReason = "status_conflict"
	ErrNoPlan          ValidationReason = "no_plan"
	ErrBadFormat       ValidationReason = "bad_format"
)

// ValidationError describes malformed input to an operation. The operation
// fails fast; no mutation was performed.
type ValidationError struct {
	Op       string           // the operation that rejected the input
	Reason   ValidationReason // why the input is invalid
	ChangeID string           // the offending change, when applicable
	Detail   string           // extra context for the message
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	switch e.Reason {
	case ErrUnknownChange:
		return fmt.Sprintf("%s: unknown change %q", e.Op, e.ChangeID)
	case ErrChangeApplied:
		return fmt.Sprintf("%s: change %q has been applied and its triage state is frozen", e.Op, e.ChangeID)
	case ErrBadThreshold:
		return fmt.Sprintf("%s: confidence threshold %s is outside [0,1]", e.Op, e.Detail)
	case ErrUnsupportedType:
		return fmt.Sprintf("%s: unsupported value type %q", e.Op, e.Detail)
	case ErrValueShape:
		return fmt.Sprintf("%s: change %q: %s", e.Op, e.ChangeID, e.Detail)
	case ErrStatusConflict:
		return fmt.Sprintf("%s: change %q cannot be accepted and rejected at once", e.Op, e.ChangeID)
	case ErrNoPlan:
		return fmt.Sprintf("%s: no plan loaded", e.Op)
	case ErrBadFormat:
		return fmt.Sprintf("%s: unsupported format %q", e.Op, e.Detail)
	default:
		return fmt.Sprintf("%s: invalid input (%s)", e.Op, e.Reason)
	}
}

// TransportError describes a failed backend call. For single-change
// operations the local optimistic state is preserved and the caller decides
// whether to retry; for bulk operations no local mutation had occurred.
type TransportError struct {
	Op     string
	Status int // HTTP status, 0 when the request never completed
	Err    error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: backend returned status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: backend call failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying transport failure.
func (e *TransportError) Unwrap() error { return e.Err }

// ReconciliationError means the refetch after a bulk operation failed. The
// store remains at its last known-good state, but the bulk action may or may
// not have been applied by the backend: callers should retry the refetch, not
// the bulk action.
type ReconciliationError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("%s: bulk action outcome indeterminate, plan refetch failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying refetch failure.
func (e *ReconciliationError) Unwrap() error { return e.Err }
