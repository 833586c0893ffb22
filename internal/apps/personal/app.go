// Package personal is the personal AI website demo: a status panel editable by tools and form
// controls, plus a counter button with its own increment tools.
package personal

import (
	"context"
	"fmt"
	"html/template"

	"go.uber.org/zap"

	"webmcp-bridge/internal/apps"
	"webmcp-bridge/internal/bridge"
)

const Name = "personal"

// State is the personal page's domain state.
type State struct {
	Profile Profile
	Counter int
}

func initialState() State {
	return State{Profile: InitialProfile()}
}

var counterTemplate = template.Must(template.New("counter").Parse(
	`{{define "counter"}}<form method="post" action="actions/increment"><button type="submit" id="counter">count is {{.}}</button></form>{{end}}`,
))

func render(s State) bridge.Regions {
	profile := s.Profile
	return bridge.Regions{
		RenderStatus(&profile),
		{ID: "counter", HTML: bridge.Execute(counterTemplate, "counter", s.Counter)},
	}
}

// App is the personal website bridge.
type App struct {
	host     *bridge.Host
	notifier *bridge.Notifier
	logger   *zap.Logger
	state    *bridge.State[State]
}

var (
	_ apps.App = (*App)(nil)
	_ Editor   = (*App)(nil)
)

// New creates the page with the initial profile and a zero counter.
func New(deps apps.Deps) *App {
	deps = deps.Normalize()
	return &App{
		host:     deps.Host,
		notifier: deps.Notifier,
		logger:   deps.Logger,
		state:    bridge.NewState(initialState, render),
	}
}

func (a *App) Name() string                     { return Name }
func (a *App) Title() string                    { return "My AI-Powered Website" }
func (a *App) Host() *bridge.Host               { return a.host }
func (a *App) Notifier() *bridge.Notifier       { return a.notifier }
func (a *App) Regions() bridge.Regions          { return a.state.Regions() }
func (a *App) OnRender(fn func(bridge.Regions)) { a.state.OnRender(fn) }
func (a *App) Snapshot() State                  { return a.state.Get() }

// Install registers the profile tools and the counter tools.
func (a *App) Install(ctx context.Context) error {
	tools := append(ProfileTools(a), &IncrementTool{app: a}, &IncrementByTool{app: a})
	return a.host.RegisterAll(ctx, tools...)
}

// Visit counts a page view.
func (a *App) Visit() {
	a.UpdateProfile(func(p Profile) Profile {
		p.Visits++
		return p
	})
}

// Profile implements Editor.
func (a *App) Profile() Profile { return a.state.Get().Profile }

// UpdateProfile implements Editor.
func (a *App) UpdateProfile(fn func(Profile) Profile) Profile {
	next, _ := a.state.Update(func(s State) (State, error) {
		s.Profile = fn(s.Profile)
		return s, nil
	})
	return next.Profile
}

// IncrementBy adds amount to the counter, notifies, and returns the new value. The counter is
// left untouched when the sum would overflow.
func (a *App) IncrementBy(amount int) (int, error) {
	next, err := a.state.Update(func(s State) (State, error) {
		sum, err := bridge.AddInt(s.Counter, amount)
		if err != nil {
			return s, err
		}
		s.Counter = sum
		return s, nil
	})
	if err != nil {
		a.notifier.Notify("Counter unchanged: "+err.Error(), bridge.LevelError)
		return next.Counter, fmt.Errorf("increment counter: %w", err)
	}

	verb := "incremented"
	if amount <= 0 {
		verb = "decremented"
	}
	magnitude := amount
	if magnitude < 0 {
		magnitude = -magnitude
	}
	a.notifier.Notify(fmt.Sprintf("Counter %s by %d to %d", verb, magnitude, next.Counter), bridge.LevelSuccess)
	return next.Counter, nil
}

// Actions exposes the interactive controls: the four text inputs and the counter button.
func (a *App) Actions() map[string]apps.Action {
	text := func(field string, apply func(Editor, string) Profile) apps.Action {
		return func(_ context.Context, params map[string]string) error {
			value := apps.CleanText(params[field])
			if value == "" {
				return nil
			}
			apply(a, value)
			return nil
		}
	}
	return map[string]apps.Action{
		"mood":    text("mood", UpdateMood),
		"project": text("project", SetCurrentProject),
		"todo":    text("item", AddTodo),
		"thought": text("thought", RecordThought),
		"increment": func(context.Context, map[string]string) error {
			_, err := a.IncrementBy(1)
			return err
		},
	}
}

type IncrementTool struct {
	app *App
}

func (t *IncrementTool) Name() string                        { return "increment" }
func (t *IncrementTool) Description() string                 { return "Increment the page counter by one" }
func (t *IncrementTool) InputSchema() map[string]interface{} { return bridge.NoArgs() }
func (t *IncrementTool) Execute(context.Context, map[string]interface{}) (interface{}, error) {
	if _, err := t.app.IncrementBy(1); err != nil {
		return nil, err
	}
	return bridge.Ok("incremented!"), nil
}

type IncrementByTool struct {
	app *App
}

func (t *IncrementByTool) Name() string { return "increment_by" }
func (t *IncrementByTool) Description() string {
	return "Increment the page counter by an amount (can be negative or positive)"
}
func (t *IncrementByTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"amount": bridge.IntSchema("the amount to increment by (can be negative or positive)", -bridge.MaxIntArg),
		},
		"required": []string{"amount"},
	}
}
func (t *IncrementByTool) Execute(_ context.Context, args map[string]interface{}) (interface{}, error) {
	amount, ok := bridge.IntArg(args, "amount")
	if !ok {
		return nil, fmt.Errorf("amount is not an integer in range")
	}
	if _, err := t.app.IncrementBy(amount); err != nil {
		return nil, err
	}

	verb := "incremented"
	if amount <= 0 {
		verb = "decremented"
	}
	return bridge.Ok(fmt.Sprintf("counter %s by %d!", verb, amount)), nil
}

const controls = `<div class="controls">
<form method="post" action="actions/mood"><input type="text" name="mood" placeholder="How are you feeling?"><button type="submit">Set mood</button></form>
<form method="post" action="actions/project"><input type="text" name="project" placeholder="Current project"><button type="submit">Set project</button></form>
<form method="post" action="actions/todo"><input type="text" name="item" placeholder="New todo"><button type="submit">Add todo</button></form>
<form method="post" action="actions/thought"><input type="text" name="thought" placeholder="A thought"><button type="submit">Record</button></form>
</div>`

// Controls renders the four text inputs.
func (a *App) Controls() template.HTML { return template.HTML(controls) }
