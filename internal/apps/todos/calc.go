package todos

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"time"

	"github.com/dop251/goja"
)

// ErrBadExpression is returned for expressions outside four-function arithmetic.
var ErrBadExpression = errors.New("invalid expression")

var arithmetic = regexp.MustCompile(`^[0-9+\-*/().\s]+$`)

// evalTimeout bounds a single evaluation.
const evalTimeout = 100 * time.Millisecond

// Calculate evaluates an arithmetic expression of numbers, + - * / and parentheses.
// Anything else is rejected before it reaches the VM.
func Calculate(ctx context.Context, expression string) (float64, error) {
	if !arithmetic.MatchString(expression) {
		return 0, fmt.Errorf("%w: only numbers, + - * / and parentheses are allowed", ErrBadExpression)
	}

	vm := goja.New()
	vm.SetMaxCallStackSize(64)

	done := make(chan struct{})
	defer close(done)
	timer := time.NewTimer(evalTimeout)
	defer timer.Stop()
	go func() {
		select {
		case <-timer.C:
			vm.Interrupt("evaluation timeout exceeded")
		case <-ctx.Done():
			vm.Interrupt("context cancelled")
		case <-done:
		}
	}()

	val, err := vm.RunString("(" + expression + ")")
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			return 0, fmt.Errorf("calculate: %v", interrupted.Value())
		}
		return 0, fmt.Errorf("%w: %v", ErrBadExpression, err)
	}

	result := val.ToFloat()
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0, fmt.Errorf("%w: result is not a finite number", ErrBadExpression)
	}
	return result, nil
}
