package errors

import "fmt"

// ErrorCode represents a Glyphline error code.
type ErrorCode string

const (
	ErrInvalidRequest    ErrorCode = "INVALID_REQUEST"    // 400
	ErrValidation        ErrorCode = "VALIDATION"         // 400
	ErrMissingProject    ErrorCode = "MISSING_PROJECT"    // 400
	ErrNotFound          ErrorCode = "NOT_FOUND"          // 404
	ErrInvalidTransition ErrorCode = "INVALID_TRANSITION" // 409
	ErrClaimConflict     ErrorCode = "CLAIM_CONFLICT"     // 409
	ErrDependencyCycle   ErrorCode = "DEPENDENCY_CYCLE"   // 422
	ErrStorageIO         ErrorCode = "STORAGE_IO"         // 500
	ErrInternal          ErrorCode = "INTERNAL"           // 500
)

// GlyphError represents a structured error with code, status, and details.
type GlyphError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *GlyphError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *GlyphError {
	return &GlyphError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewValidation creates a 400 error for a malformed card field.
func NewValidation(field, msg string) *GlyphError {
	return &GlyphError{
		Code:    ErrValidation,
		Status:  400,
		Message: fmt.Sprintf("invalid %s: %s", field, msg),
		Details: map[string]any{"field": field},
	}
}

// NewMissingProject creates a 400 error for card creation without a
// resolvable project context.
func NewMissingProject() *GlyphError {
	return &GlyphError{
		Code:    ErrMissingProject,
		Status:  400,
		Message: "no project specified and no active project; activate a project or pass one explicitly",
	}
}

// NewNotFound creates a 404 error for an unknown card or project reference.
func NewNotFound(kind, identifier string) *GlyphError {
	return &GlyphError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, identifier),
		Details: map[string]any{"kind": kind, "identifier": identifier},
	}
}

// NewInvalidTransition creates a 409 error for a state change whose guard
// failed. The card's stored status is left unchanged.
func NewInvalidTransition(cardID int64, from, event string) *GlyphError {
	return &GlyphError{
		Code:    ErrInvalidTransition,
		Status:  409,
		Message: fmt.Sprintf("card %d: cannot %s from status %q", cardID, event, from),
		Details: map[string]any{"card_id": cardID, "from": from, "event": event},
	}
}

// NewClaimConflict creates a 409 error for the loser of a concurrent claim race.
func NewClaimConflict(cardID int64) *GlyphError {
	return &GlyphError{
		Code:    ErrClaimConflict,
		Status:  409,
		Message: fmt.Sprintf("card %d was claimed by another agent", cardID),
		Details: map[string]any{"card_id": cardID},
	}
}

// NewDependencyCycle creates a 422 error for a linked_to edge that would
// close a cycle. Raised before any mutation is applied.
func NewDependencyCycle(cardID int64, chain []int64) *GlyphError {
	return &GlyphError{
		Code:    ErrDependencyCycle,
		Status:  422,
		Message: fmt.Sprintf("linking card %d would create a dependency cycle", cardID),
		Details: map[string]any{"card_id": cardID, "chain": chain},
	}
}

// NewStorageIO creates a 500 error for a durable-write failure. Not retried
// automatically: a blind retry on an uncertain write risks duplicate
// transitions.
func NewStorageIO(op string, err error) *GlyphError {
	msg := "storage failure"
	if err != nil {
		msg = err.Error()
	}
	return &GlyphError{
		Code:    ErrStorageIO,
		Status:  500,
		Message: fmt.Sprintf("%s: %s", op, msg),
		Details: map[string]any{"op": op},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *GlyphError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &GlyphError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is a GlyphError with the given code.
func Is(err error, code ErrorCode) bool {
	if gErr, ok := err.(*GlyphError); ok {
		return gErr.Code == code
	}
	return false
}
