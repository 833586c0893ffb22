// Package counter is the minimal counter widget: a button showing "count is N".
package counter

import (
	"context"
	"fmt"
	"html/template"
	"strconv"

	"go.uber.org/zap"

	"webmcp-bridge/internal/apps"
	"webmcp-bridge/internal/bridge"
)

const Name = "counter"

// State is the counter's domain state.
type State struct {
	Count int
}

var regions = template.Must(template.New("counter").Parse(
	`{{define "counter"}}<form method="post" action="actions/increment"><button type="submit" id="counter">count is {{.}}</button></form>{{end}}`,
))

func render(s State) bridge.Regions {
	return bridge.Regions{
		{ID: "counter", HTML: bridge.Execute(regions, "counter", s.Count)},
	}
}

// App is the counter bridge.
type App struct {
	host     *bridge.Host
	notifier *bridge.Notifier
	logger   *zap.Logger
	state    *bridge.State[State]
}

var _ apps.App = (*App)(nil)

// New creates a counter at zero.
func New(deps apps.Deps) *App {
	deps = deps.Normalize()
	return &App{
		host:     deps.Host,
		notifier: deps.Notifier,
		logger:   deps.Logger,
		state:    bridge.NewState(func() State { return State{} }, render),
	}
}

func (a *App) Name() string                     { return Name }
func (a *App) Title() string                    { return "Vite + TypeScript" }
func (a *App) Host() *bridge.Host               { return a.host }
func (a *App) Notifier() *bridge.Notifier       { return a.notifier }
func (a *App) Regions() bridge.Regions          { return a.state.Regions() }
func (a *App) OnRender(fn func(bridge.Regions)) { a.state.OnRender(fn) }
func (a *App) Visit()                           {}

// Install registers increment_counter, set_counter and get_counter.
func (a *App) Install(ctx context.Context) error {
	return a.host.RegisterAll(ctx, &IncrementCounterTool{app: a}, &SetCounterTool{app: a}, &GetCounterTool{app: a})
}

// Value returns the current count.
func (a *App) Value() int { return a.state.Get().Count }

// Increment adds amount, notifies, and returns the new count. The count is left untouched when
// the sum would overflow.
func (a *App) Increment(amount int) (int, error) {
	next, err := a.state.Update(func(s State) (State, error) {
		sum, err := bridge.AddInt(s.Count, amount)
		if err != nil {
			return s, err
		}
		return State{Count: sum}, nil
	})
	if err != nil {
		a.notifier.Notify("Counter unchanged: "+err.Error(), bridge.LevelError)
		return next.Count, fmt.Errorf("increment counter: %w", err)
	}
	a.notifier.Notify(fmt.Sprintf("Counter incremented by %d to %d", amount, next.Count), bridge.LevelSuccess)
	return next.Count, nil
}

// Set replaces the count.
func (a *App) Set(value int) int {
	next, _ := a.state.Update(func(State) (State, error) {
		return State{Count: value}, nil
	})
	a.notifier.Notify(fmt.Sprintf("Counter set to %d", value), bridge.LevelInfo)
	return next.Count
}

// Actions exposes the counter button.
func (a *App) Actions() map[string]apps.Action {
	return map[string]apps.Action{
		"increment": func(context.Context, map[string]string) error {
			_, err := a.Increment(1)
			return err
		},
	}
}

type IncrementCounterTool struct {
	app *App
}

func (t *IncrementCounterTool) Name() string { return "increment_counter" }
func (t *IncrementCounterTool) Description() string {
	return "Increment the counter by a specified amount"
}
func (t *IncrementCounterTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"amount": map[string]interface{}{
				"type":        "integer",
				"description": "Amount to increment by",
				"default":     1,
				"minimum":     -bridge.MaxIntArg,
				"maximum":     bridge.MaxIntArg,
			},
		},
	}
}
func (t *IncrementCounterTool) Execute(_ context.Context, args map[string]interface{}) (interface{}, error) {
	amount, ok := bridge.IntArg(args, "amount")
	if !ok {
		return nil, fmt.Errorf("amount is not an integer in range")
	}
	next, err := t.app.Increment(amount)
	if err != nil {
		return nil, err
	}
	return bridge.Ok(fmt.Sprintf("Incremented counter by %d to %d", amount, next)), nil
}

type SetCounterTool struct {
	app *App
}

func (t *SetCounterTool) Name() string        { return "set_counter" }
func (t *SetCounterTool) Description() string { return "Set the counter to a specific value" }
func (t *SetCounterTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"value": map[string]interface{}{
				"type":        "string",
				"description": "Value to set the counter to (whole number)",
				"pattern":     `^-?[0-9]+$`,
			},
		},
		"required": []string{"value"},
	}
}
func (t *SetCounterTool) Execute(_ context.Context, args map[string]interface{}) (interface{}, error) {
	raw := bridge.StringArg(args, "value")
	value, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("value %q is out of range: %w", raw, err)
	}
	t.app.Set(value)
	return bridge.Ok(fmt.Sprintf("Set counter to %d", value)), nil
}

type GetCounterTool struct {
	app *App
}

func (t *GetCounterTool) Name() string                        { return "get_counter" }
func (t *GetCounterTool) Description() string                 { return "Get the current counter value" }
func (t *GetCounterTool) InputSchema() map[string]interface{} { return bridge.NoArgs() }
func (t *GetCounterTool) Execute(context.Context, map[string]interface{}) (interface{}, error) {
	value := t.app.Value()
	return bridge.Ok(fmt.Sprintf("Current counter value is %d", value)).With("value", value), nil
}
