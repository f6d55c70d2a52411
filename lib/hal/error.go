package hal

import "fmt"

// Error is the error form of a failed ReturnCode.
//
// Two errors match with errors.Is if their codes are equal, so callers can write:
//
//	if errors.Is(err, hal.CodeNotFound.Err()) { ... }
type Error struct {
	Code ReturnCode
	Op   string // optional operation name, e.g. "open"
}

// NewError returns the error of a failed operation, nil for CodeNormal.
func NewError(op string, code ReturnCode) error {
	if code == CodeNormal {
		return nil
	}
	return &Error{Code: code, Op: op}
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("storage: %s", e.Code)
	}
	return fmt.Sprintf("storage: %s: %s", e.Op, e.Code)
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}
