package personal

import (
	"context"
	"fmt"

	"webmcp-bridge/internal/apps"
	"webmcp-bridge/internal/bridge"
)

// ProfileTools returns ping, updateMood, addTodo, recordThought, setCurrentProject and
// getMyStatus bound to ed.
func ProfileTools(ed Editor) []bridge.Tool {
	return []bridge.Tool{
		&PingTool{},
		&UpdateMoodTool{ed: ed},
		&AddTodoTool{ed: ed},
		&RecordThoughtTool{ed: ed},
		&SetCurrentProjectTool{ed: ed},
		&GetMyStatusTool{ed: ed},
	}
}

func textArg(name, description string) map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			name: map[string]interface{}{
				"type":        "string",
				"description": description,
				"minLength":   1,
			},
		},
		"required": []string{name},
	}
}

func cleanArg(args map[string]interface{}, key string) (string, error) {
	v := apps.CleanText(bridge.StringArg(args, key))
	if v == "" {
		return "", fmt.Errorf("%s is empty after sanitizing", key)
	}
	return v, nil
}

type PingTool struct{}

func (t *PingTool) Name() string                        { return "ping" }
func (t *PingTool) Description() string                 { return "Simple ping test" }
func (t *PingTool) InputSchema() map[string]interface{} { return bridge.NoArgs() }
func (t *PingTool) Execute(context.Context, map[string]interface{}) (interface{}, error) {
	return bridge.Ok("pong"), nil
}

type UpdateMoodTool struct {
	ed Editor
}

func (t *UpdateMoodTool) Name() string { return "updateMood" }
func (t *UpdateMoodTool) Description() string {
	return "Update my current mood and see it reflect on the page"
}
func (t *UpdateMoodTool) InputSchema() map[string]interface{} {
	return textArg("mood", "Your new mood (e.g., 'excited', 'focused', 'creative')")
}
func (t *UpdateMoodTool) Execute(_ context.Context, args map[string]interface{}) (interface{}, error) {
	mood, err := cleanArg(args, "mood")
	if err != nil {
		return nil, err
	}
	UpdateMood(t.ed, mood)
	return bridge.Ok(fmt.Sprintf("Mood updated to: %s. You can see it reflected on the page!", mood)), nil
}

type AddTodoTool struct {
	ed Editor
}

func (t *AddTodoTool) Name() string        { return "addTodo" }
func (t *AddTodoTool) Description() string { return "Add a new item to my todo list" }
func (t *AddTodoTool) InputSchema() map[string]interface{} {
	return textArg("item", "Todo item to add")
}
func (t *AddTodoTool) Execute(_ context.Context, args map[string]interface{}) (interface{}, error) {
	item, err := cleanArg(args, "item")
	if err != nil {
		return nil, err
	}
	p := AddTodo(t.ed, item)
	return bridge.Ok(fmt.Sprintf("Added \"%s\" to todo list. Total items: %d", item, len(p.Todos))), nil
}

type RecordThoughtTool struct {
	ed Editor
}

func (t *RecordThoughtTool) Name() string        { return "recordThought" }
func (t *RecordThoughtTool) Description() string { return "Record my latest thought or insight" }
func (t *RecordThoughtTool) InputSchema() map[string]interface{} {
	return textArg("thought", "Your current thought or insight")
}
func (t *RecordThoughtTool) Execute(_ context.Context, args map[string]interface{}) (interface{}, error) {
	thought, err := cleanArg(args, "thought")
	if err != nil {
		return nil, err
	}
	RecordThought(t.ed, thought)
	return bridge.Ok(fmt.Sprintf("Thought recorded: \"%s\"", thought)), nil
}

type SetCurrentProjectTool struct {
	ed Editor
}

func (t *SetCurrentProjectTool) Name() string        { return "setCurrentProject" }
func (t *SetCurrentProjectTool) Description() string { return "Update the current project I am working on" }
func (t *SetCurrentProjectTool) InputSchema() map[string]interface{} {
	return textArg("project", "Name of the current project")
}
func (t *SetCurrentProjectTool) Execute(_ context.Context, args map[string]interface{}) (interface{}, error) {
	project, err := cleanArg(args, "project")
	if err != nil {
		return nil, err
	}
	SetCurrentProject(t.ed, project)
	return bridge.Ok("Current project updated to: " + project), nil
}

type ChangeFavoriteColorTool struct {
	ed Editor
}

func NewChangeFavoriteColorTool(ed Editor) *ChangeFavoriteColorTool {
	return &ChangeFavoriteColorTool{ed: ed}
}

func (t *ChangeFavoriteColorTool) Name() string { return "changeFavoriteColor" }
func (t *ChangeFavoriteColorTool) Description() string {
	return "Change my favorite color and update the page theme"
}
func (t *ChangeFavoriteColorTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"color": map[string]interface{}{
				"type":        "string",
				"description": "New favorite color in hex format (e.g., #ff5733)",
				"pattern":     ColorPattern,
			},
		},
		"required": []string{"color"},
	}
}
func (t *ChangeFavoriteColorTool) Execute(_ context.Context, args map[string]interface{}) (interface{}, error) {
	color := bridge.StringArg(args, "color")
	ChangeFavoriteColor(t.ed, color)
	return bridge.Ok("Favorite color changed to: " + color), nil
}

// ColorPattern accepts #rgb and #rrggbb.
const ColorPattern = `^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`

type GetMyStatusTool struct {
	ed Editor
}

func (t *GetMyStatusTool) Name() string                        { return "getMyStatus" }
func (t *GetMyStatusTool) Description() string                 { return "Get a complete overview of my current status" }
func (t *GetMyStatusTool) InputSchema() map[string]interface{} { return bridge.NoArgs() }
func (t *GetMyStatusTool) Execute(context.Context, map[string]interface{}) (interface{}, error) {
	t.ed.Notifier().Notify("Generated status report", bridge.LevelInfo)
	p := t.ed.Profile()
	return bridge.Ok(StatusReport(p)).With("status", p), nil
}
