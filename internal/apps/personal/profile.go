package personal

import (
	"fmt"
	"html/template"
	"strings"

	"webmcp-bridge/internal/bridge"
)

// Profile is the personal status record shown in the status panel.
type Profile struct {
	Mood    string   `json:"mood"`
	Project string   `json:"currentProject"`
	Todos   []string `json:"todoList"`
	Color   string   `json:"favoriteColor"`
	Thought string   `json:"lastThought"`
	Visits  int      `json:"visitCount"`
}

// InitialProfile returns the documented starting values. Every call returns a fresh todo slice.
func InitialProfile() Profile {
	return Profile{
		Mood:    "excited about MCP-B",
		Project: "Building an AI-powered personal website",
		Todos:   []string{"Learn MCP-B", "Build cool tools", "Show off to friends"},
		Color:   "#6366f1",
		Thought: "This MCP-B thing is pretty amazing!",
		Visits:  0,
	}
}

// WithTodo returns p with item appended to a new todo slice.
func (p Profile) WithTodo(item string) Profile {
	todos := make([]string, 0, len(p.Todos)+1)
	todos = append(todos, p.Todos...)
	p.Todos = append(todos, item)
	return p
}

// StatusReport is the getMyStatus text.
func StatusReport(p Profile) string {
	return fmt.Sprintf(`Current Status Report:
🎭 Mood: %s
🚀 Project: %s
📋 Todos: %d items (%s)
🎨 Favorite Color: %s
💭 Last Thought: "%s"
👀 Visits Today: %d`,
		p.Mood, p.Project, len(p.Todos), strings.Join(p.Todos, ", "), p.Color, p.Thought, p.Visits)
}

// Editor is a bridge whose state carries a Profile. Both the personal and the login apps
// implement it, so the profile tools and controls are shared.
type Editor interface {
	Profile() Profile
	// UpdateProfile applies fn through the owning State and returns the new profile.
	UpdateProfile(fn func(Profile) Profile) Profile
	Notifier() *bridge.Notifier
}

// UpdateMood sets the mood.
func UpdateMood(ed Editor, mood string) Profile {
	next := ed.UpdateProfile(func(p Profile) Profile {
		p.Mood = mood
		return p
	})
	ed.Notifier().Notify("Updated mood to: "+mood, bridge.LevelSuccess)
	return next
}

// AddTodo appends a todo item.
func AddTodo(ed Editor, item string) Profile {
	next := ed.UpdateProfile(func(p Profile) Profile {
		return p.WithTodo(item)
	})
	ed.Notifier().Notify("Added todo: "+item, bridge.LevelSuccess)
	return next
}

// RecordThought replaces the last thought.
func RecordThought(ed Editor, thought string) Profile {
	next := ed.UpdateProfile(func(p Profile) Profile {
		p.Thought = thought
		return p
	})
	ed.Notifier().Notify("Recorded new thought", bridge.LevelSuccess)
	return next
}

// SetCurrentProject replaces the current project.
func SetCurrentProject(ed Editor, project string) Profile {
	next := ed.UpdateProfile(func(p Profile) Profile {
		p.Project = project
		return p
	})
	ed.Notifier().Notify("Updated current project to: "+project, bridge.LevelSuccess)
	return next
}

// ChangeFavoriteColor replaces the theme color. Callers validate the hex format.
func ChangeFavoriteColor(ed Editor, color string) Profile {
	next := ed.UpdateProfile(func(p Profile) Profile {
		p.Color = color
		return p
	})
	ed.Notifier().Notify("Changed favorite color to: "+color, bridge.LevelSuccess)
	return next
}

var statusTemplate = template.Must(template.New("personal").Parse(`
{{define "personal-status"}}<div id="personal-status">
{{- with .}}
  <div class="status-card" style="border-color: {{.Color}}">
    <h3 style="color: {{.Color}}">🤖 My AI Assistant Status</h3>
    <div class="mood"><strong>Current Mood:</strong> <span data-field="mood">{{.Mood}}</span></div>
    <div class="project"><strong>Working on:</strong> <span data-field="project">{{.Project}}</span></div>
    <div class="visits"><strong>Visits today:</strong> <span data-field="visits">{{.Visits}}</span></div>
    <div class="thought"><strong>Last thought:</strong> <em data-field="thought">"{{.Thought}}"</em></div>
    <div class="todos"><strong>Todo List ({{len .Todos}} items):</strong>
      <ul>{{range .Todos}}<li>{{.}}</li>{{end}}</ul>
    </div>
  </div>
{{- end}}
</div>{{end}}
`))

// RenderStatus renders the personal-status panel. A nil profile renders the empty panel.
func RenderStatus(p *Profile) bridge.Region {
	return bridge.Region{ID: "personal-status", HTML: bridge.Execute(statusTemplate, "personal-status", p)}
}
