// Package todos is the single-script demo: a plain todo list and a calculator, four tools in all.
package todos

import (
	"context"
	"fmt"
	"html/template"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"webmcp-bridge/internal/apps"
	"webmcp-bridge/internal/bridge"
)

const Name = "todos"

// State is the todo list plus the bridge status line.
type State struct {
	Todos []string
	Ready bool
}

func initialState() State {
	return State{Todos: []string{"Learn MCP-B", "Chat with AI", "See it work"}}
}

// App is the todo bridge.
type App struct {
	host     *bridge.Host
	notifier *bridge.Notifier
	logger   *zap.Logger
	state    *bridge.State[State]
}

var _ apps.App = (*App)(nil)

// New creates the list with its three starter todos.
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
func (a *App) Title() string                    { return "MCP-B Script Tag Demo" }
func (a *App) Host() *bridge.Host               { return a.host }
func (a *App) Notifier() *bridge.Notifier       { return a.notifier }
func (a *App) Regions() bridge.Regions          { return a.state.Regions() }
func (a *App) OnRender(fn func(bridge.Regions)) { a.state.OnRender(fn) }
func (a *App) State() *bridge.State[State]      { return a.state }
func (a *App) Visit()                           {}

// Install registers the four tools and flips the status line once all of them are in.
func (a *App) Install(ctx context.Context) error {
	err := a.host.RegisterAll(ctx,
		&bridge.Func{
			ToolName:        "addTodo",
			ToolDescription: "Add a new todo item",
			Schema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"text": map[string]interface{}{
						"type":        "string",
						"description": "The todo text",
						"minLength":   1,
					},
				},
				"required": []string{"text"},
			},
			Handler: a.addTodo,
		},
		&bridge.Func{
			ToolName:        "getTodos",
			ToolDescription: "Get all todo items",
			Schema:          bridge.NoArgs(),
			Handler:         a.getTodos,
		},
		&bridge.Func{
			ToolName:        "deleteTodo",
			ToolDescription: "Delete a todo by its zero-based index",
			Schema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"index": bridge.IntSchema("Index of the todo to delete", 0),
				},
				"required": []string{"index"},
			},
			Handler: a.deleteTodo,
		},
		&bridge.Func{
			ToolName:        "calculate",
			ToolDescription: "Evaluate an arithmetic expression using + - * / and parentheses",
			Schema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"expression": map[string]interface{}{
						"type":        "string",
						"description": "Expression to evaluate, e.g. (2 + 3) * 4",
						"minLength":   1,
					},
				},
				"required": []string{"expression"},
			},
			Handler: a.calculate,
		},
	)
	if err != nil {
		return err
	}
	_, _ = a.state.Update(func(s State) (State, error) {
		s.Ready = true
		return s, nil
	})
	return nil
}

// Todos returns the current list.
func (a *App) Todos() []string {
	return a.state.Get().Todos
}

// Add appends text to the list.
func (a *App) Add(text string) int {
	next, _ := a.state.Update(func(s State) (State, error) {
		todos := make([]string, 0, len(s.Todos)+1)
		todos = append(todos, s.Todos...)
		s.Todos = append(todos, text)
		return s, nil
	})
	a.notifier.Notify("Added: "+text, bridge.LevelSuccess)
	return len(next.Todos)
}

// Delete removes the todo at index.
func (a *App) Delete(index int) (string, bool) {
	var removed string
	var found bool
	_, _ = a.state.Update(func(s State) (State, error) {
		if index < 0 || index >= len(s.Todos) {
			return s, bridge.ErrNoChange
		}
		found = true
		removed = s.Todos[index]
		todos := make([]string, 0, len(s.Todos)-1)
		todos = append(todos, s.Todos[:index]...)
		s.Todos = append(todos, s.Todos[index+1:]...)
		return s, nil
	})
	if !found {
		a.notifier.Notify("Todo not found", bridge.LevelError)
		return "", false
	}
	a.notifier.Notify("Deleted: "+removed, bridge.LevelSuccess)
	return removed, true
}

func (a *App) addTodo(_ context.Context, args map[string]interface{}) (interface{}, error) {
	text := apps.CleanText(bridge.StringArg(args, "text"))
	if text == "" {
		return nil, fmt.Errorf("text is empty after sanitizing")
	}
	count := a.Add(text)
	return bridge.Ok(fmt.Sprintf("Added todo: \"%s\". You now have %d todos.", text, count)), nil
}

func (a *App) getTodos(context.Context, map[string]interface{}) (interface{}, error) {
	todos := a.Todos()
	if len(todos) == 0 {
		return bridge.Ok("No todos").With("todos", todos), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Todos (%d):", len(todos))
	for i, todo := range todos {
		fmt.Fprintf(&b, "\n%d. %s", i, todo)
	}
	return bridge.Ok(b.String()).With("todos", todos), nil
}

func (a *App) deleteTodo(_ context.Context, args map[string]interface{}) (interface{}, error) {
	index, ok := bridge.IntArg(args, "index")
	if !ok {
		return nil, fmt.Errorf("index is not an integer in range")
	}
	removed, ok := a.Delete(index)
	if !ok {
		return bridge.Failed(fmt.Sprintf("No todo at index %d", index)), nil
	}
	return bridge.Ok(fmt.Sprintf("Deleted todo: \"%s\"", removed)), nil
}

func (a *App) calculate(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	expression := bridge.StringArg(args, "expression")
	result, err := Calculate(ctx, expression)
	if err != nil {
		return bridge.Failed(err.Error()), nil
	}
	return bridge.Ok(fmt.Sprintf("%s = %s", strings.TrimSpace(expression), strconv.FormatFloat(result, 'f', -1, 64))).
		With("result", result), nil
}

// Actions exposes the add box and the per-row delete buttons.
func (a *App) Actions() map[string]apps.Action {
	return map[string]apps.Action{
		"add": func(_ context.Context, params map[string]string) error {
			text := apps.CleanText(params["text"])
			if text == "" {
				return nil
			}
			a.Add(text)
			return nil
		},
		"delete": func(_ context.Context, params map[string]string) error {
			index, err := strconv.Atoi(params["index"])
			if err != nil {
				return fmt.Errorf("invalid index %q", params["index"])
			}
			a.Delete(index)
			return nil
		},
	}
}

// Controls renders the add box.
func (a *App) Controls() template.HTML {
	return `<form method="post" action="actions/add"><input type="text" id="input" name="text" placeholder="Add a todo"><button type="submit">Add</button></form>`
}

var regions = template.Must(template.New("todos").Parse(`
{{define "status"}}<div id="status" class="status{{if .}} ready{{end}}">{{if .}}MCP Ready{{else}}Loading MCP...{{end}}</div>{{end}}
{{define "todos"}}<div id="todos">{{range $i, $t := .}}
  <div class="todo"><span>{{$t}}</span><form method="post" action="actions/delete"><input type="hidden" name="index" value="{{$i}}"><button type="submit">×</button></form></div>{{end}}
</div>{{end}}
`))

func render(s State) bridge.Regions {
	return bridge.Regions{
		{ID: "status", HTML: bridge.Execute(regions, "status", s.Ready)},
		{ID: "todos", HTML: bridge.Execute(regions, "todos", s.Todos)},
	}
}
