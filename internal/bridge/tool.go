package bridge

import (
	"context"
	"fmt"
	"math"
)

// MaxIntArg bounds integer tool parameters. Schemas publish it as minimum/maximum so sums of
// a few arguments stay far from the int range.
const MaxIntArg = 1_000_000_000

// maxExactInt is the largest magnitude float64 holds without losing integer precision.
const maxExactInt = 1 << 53

// Tool describes the contract for bridge tool implementations.
type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]interface{}
	Execute(ctx context.Context, args map[string]interface{}) (interface{}, error)
}

// Func adapts a closure into a Tool.
type Func struct {
	ToolName        string
	ToolDescription string
	Schema          map[string]interface{}
	Handler         func(ctx context.Context, args map[string]interface{}) (interface{}, error)
}

func (f *Func) Name() string                        { return f.ToolName }
func (f *Func) Description() string                 { return f.ToolDescription }
func (f *Func) InputSchema() map[string]interface{} { return f.Schema }
func (f *Func) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	return f.Handler(ctx, args)
}

// NoArgs is the input schema for tools without parameters.
func NoArgs() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

// StringArg returns args[key] when it is a string, "" otherwise.
func StringArg(args map[string]interface{}, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

// NumberArg returns args[key] as float64. Validated args always carry JSON numbers as float64.
func NumberArg(args map[string]interface{}, key string) (float64, bool) {
	switch v := args[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// IntArg returns args[key] truncated to an int. Values beyond ±2^53 are rejected rather than
// wrapped.
func IntArg(args map[string]interface{}, key string) (int, bool) {
	f, ok := NumberArg(args, key)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > maxExactInt {
		return 0, false
	}
	return int(f), true
}

// IntSchema is the schema of a bounded integer parameter.
func IntSchema(description string, minimum int) map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": description,
		"minimum":     minimum,
		"maximum":     MaxIntArg,
	}
}

// AddInt returns a+b, or ErrOverflow when the sum leaves the int range.
func AddInt(a, b int) (int, error) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return a, fmt.Errorf("%d + %d: %w", a, b, ErrOverflow)
	}
	return sum, nil
}

// BoolArg returns args[key] when it is a bool.
func BoolArg(args map[string]interface{}, key string) (bool, bool) {
	v, ok := args[key].(bool)
	return v, ok
}
