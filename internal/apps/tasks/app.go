// Package tasks is the task manager demo: tasks with priorities and categories, a status filter
// on the page and six tools for the agent.
package tasks

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"webmcp-bridge/internal/apps"
	"webmcp-bridge/internal/bridge"
)

const Name = "tasks"

const notFound = "Task not found"

// State is the task manager's domain state. Filter is page state and never touches the
// tools' view of the list.
type State struct {
	Tasks  []Task
	Filter Filter
}

func initialState() State {
	return State{Tasks: []Task{}, Filter: FilterAll}
}

// App is the task manager bridge.
type App struct {
	host     *bridge.Host
	notifier *bridge.Notifier
	logger   *zap.Logger
	state    *bridge.State[State]
	now      func() time.Time
}

var _ apps.App = (*App)(nil)

// New creates an empty task manager.
func New(deps apps.Deps) *App {
	deps = deps.Normalize()
	return &App{
		host:     deps.Host,
		notifier: deps.Notifier,
		logger:   deps.Logger,
		state:    bridge.NewState(initialState, render),
		now:      time.Now,
	}
}

func (a *App) Name() string                     { return Name }
func (a *App) Title() string                    { return "Task Manager" }
func (a *App) Host() *bridge.Host               { return a.host }
func (a *App) Notifier() *bridge.Notifier       { return a.notifier }
func (a *App) Regions() bridge.Regions          { return a.state.Regions() }
func (a *App) OnRender(fn func(bridge.Regions)) { a.state.OnRender(fn) }
func (a *App) State() *bridge.State[State]      { return a.state }
func (a *App) Visit()                           {}

// Install registers the task tools.
func (a *App) Install(ctx context.Context) error {
	return a.host.RegisterAll(ctx,
		&AddTaskTool{app: a},
		&CompleteTaskTool{app: a},
		&DeleteTaskTool{app: a},
		&ListTasksTool{app: a},
		&UpdateTaskPriorityTool{app: a},
		&GetTaskStatsTool{app: a},
	)
}

// Tasks returns every task in creation order.
func (a *App) Tasks() []Task {
	return a.state.Get().Tasks
}

// Add appends a new active task.
func (a *App) Add(title, description string, priority Priority, category string) Task {
	task := NewTask(title, description, priority, category, a.now())
	_, _ = a.state.Update(func(s State) (State, error) {
		next := make([]Task, 0, len(s.Tasks)+1)
		next = append(next, s.Tasks...)
		s.Tasks = append(next, task)
		return s, nil
	})
	a.notifier.Notify("Added task: "+task.Title, bridge.LevelSuccess)
	return task
}

// Complete marks the task with id as completed.
func (a *App) Complete(id string) (Task, bool) {
	task, ok := a.replace(id, func(t Task) Task {
		t.Completed = true
		return t
	})
	if ok {
		a.notifier.Notify("Completed: "+task.Title, bridge.LevelSuccess)
	}
	return task, ok
}

// SetPriority changes the priority of the task with id.
func (a *App) SetPriority(id string, priority Priority) (Task, bool) {
	task, ok := a.replace(id, func(t Task) Task {
		t.Priority = priority
		return t
	})
	if ok {
		a.notifier.Notify("Updated priority for: "+task.Title, bridge.LevelSuccess)
	}
	return task, ok
}

// Delete removes the task with id.
func (a *App) Delete(id string) (Task, bool) {
	var removed Task
	var found bool
	_, _ = a.state.Update(func(s State) (State, error) {
		s.Tasks, removed, found = Remove(s.Tasks, id)
		if !found {
			return s, bridge.ErrNoChange
		}
		return s, nil
	})
	if !found {
		a.notifier.Notify(notFound, bridge.LevelError)
		return Task{}, false
	}
	a.notifier.Notify("Deleted: "+removed.Title, bridge.LevelSuccess)
	return removed, true
}

// SetFilter changes which tasks the page lists.
func (a *App) SetFilter(f Filter) {
	_, _ = a.state.Update(func(s State) (State, error) {
		if s.Filter == f {
			return s, bridge.ErrNoChange
		}
		s.Filter = f
		return s, nil
	})
}

func (a *App) replace(id string, fn func(Task) Task) (Task, bool) {
	var updated Task
	var found bool
	_, _ = a.state.Update(func(s State) (State, error) {
		s.Tasks, updated, found = Replace(s.Tasks, id, fn)
		if !found {
			return s, bridge.ErrNoChange
		}
		return s, nil
	})
	if !found {
		a.notifier.Notify(notFound, bridge.LevelError)
	}
	return updated, found
}

// Actions exposes the filter buttons plus the per-task controls.
func (a *App) Actions() map[string]apps.Action {
	return map[string]apps.Action{
		"filter": func(_ context.Context, params map[string]string) error {
			a.SetFilter(ParseFilter(params["filter"]))
			return nil
		},
		"add": func(_ context.Context, params map[string]string) error {
			title := apps.CleanText(params["title"])
			if title == "" {
				a.notifier.Notify("Task title is required", bridge.LevelError)
				return fmt.Errorf("title is required")
			}
			a.Add(title, apps.CleanText(params["description"]), ParsePriority(params["priority"]), apps.CleanText(params["category"]))
			return nil
		},
		"complete": func(_ context.Context, params map[string]string) error {
			a.Complete(params["taskId"])
			return nil
		},
		"delete": func(_ context.Context, params map[string]string) error {
			a.Delete(params["taskId"])
			return nil
		},
	}
}
