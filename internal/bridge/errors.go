package bridge

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrToolNotFound is returned when invoking a name that was never registered (or was unregistered).
	ErrToolNotFound = errors.New("tool not found")
	// ErrDuplicateTool is returned when a name is already registered. The existing tool is kept.
	ErrDuplicateTool = errors.New("tool already registered")
	// ErrBridgeUnavailable is returned when no dispatcher was bound within the ready timeout.
	ErrBridgeUnavailable = errors.New("bridge unavailable")
	// ErrAlreadyBound is returned by a second Bind.
	ErrAlreadyBound = errors.New("bridge already bound to a dispatcher")
	// ErrNoChange aborts a State.Update without replacing the value or rendering.
	ErrNoChange = errors.New("no change")
	// ErrOverflow is returned when arithmetic on a tool argument leaves the int range.
	ErrOverflow = errors.New("integer overflow")
	// ErrUnsupportedResult is returned when a handler result is neither a Reply nor a string.
	ErrUnsupportedResult = errors.New("unsupported result type")
)

// InputValidationError reports arguments that do not satisfy a tool's input schema.
// The handler is never invoked when this is returned.
type InputValidationError struct {
	Tool   string
	Field  string
	Reason string
}

func (e *InputValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid input for %s: %s", e.Tool, e.Reason)
	}
	return fmt.Sprintf("invalid input for %s: %s: %s", e.Tool, e.Field, e.Reason)
}

// IsInputValidation reports whether err wraps an *InputValidationError.
func IsInputValidation(err error) bool {
	var target *InputValidationError
	return errors.As(err, &target)
}

func fieldPath(parts []string) string {
	return strings.Join(parts, ".")
}
