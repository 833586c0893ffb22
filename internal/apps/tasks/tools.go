package tasks

import (
	"context"
	"fmt"
	"strings"

	"webmcp-bridge/internal/apps"
	"webmcp-bridge/internal/bridge"
)

func priorityEnum() []string {
	out := make([]string, len(Priorities))
	for i, p := range Priorities {
		out[i] = string(p)
	}
	return out
}

func taskIDSchema(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

type AddTaskTool struct {
	app *App
}

func (t *AddTaskTool) Name() string        { return "add_task" }
func (t *AddTaskTool) Description() string { return "Add a new task to the task manager" }
func (t *AddTaskTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"title": map[string]interface{}{
				"type":        "string",
				"description": "Task title",
				"minLength":   1,
			},
			"description": map[string]interface{}{
				"type":        "string",
				"description": "Task description",
				"default":     "",
			},
			"priority": map[string]interface{}{
				"type":        "string",
				"description": "Task priority",
				"enum":        priorityEnum(),
				"default":     string(PriorityMedium),
			},
			"category": map[string]interface{}{
				"type":        "string",
				"description": "Task category",
				"default":     "general",
			},
		},
		"required": []string{"title"},
	}
}
func (t *AddTaskTool) Execute(_ context.Context, args map[string]interface{}) (interface{}, error) {
	title := apps.CleanText(bridge.StringArg(args, "title"))
	if title == "" {
		return nil, fmt.Errorf("title is empty after sanitizing")
	}
	task := t.app.Add(
		title,
		apps.CleanText(bridge.StringArg(args, "description")),
		ParsePriority(bridge.StringArg(args, "priority")),
		apps.CleanText(bridge.StringArg(args, "category")),
	)
	return bridge.Ok(fmt.Sprintf("Task \"%s\" added successfully with %s priority", task.Title, task.Priority)).
		With("success", true).
		With("taskId", task.ID), nil
}

type CompleteTaskTool struct {
	app *App
}

func (t *CompleteTaskTool) Name() string        { return "complete_task" }
func (t *CompleteTaskTool) Description() string { return "Mark a task as completed" }
func (t *CompleteTaskTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"taskId": taskIDSchema("ID of the task to complete"),
		},
		"required": []string{"taskId"},
	}
}
func (t *CompleteTaskTool) Execute(_ context.Context, args map[string]interface{}) (interface{}, error) {
	task, ok := t.app.Complete(bridge.StringArg(args, "taskId"))
	if !ok {
		return bridge.Failed(notFound), nil
	}
	return bridge.Ok(fmt.Sprintf("Task \"%s\" marked as completed", task.Title)).With("success", true), nil
}

type DeleteTaskTool struct {
	app *App
}

func (t *DeleteTaskTool) Name() string        { return "delete_task" }
func (t *DeleteTaskTool) Description() string { return "Delete a task permanently" }
func (t *DeleteTaskTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"taskId": taskIDSchema("ID of the task to delete"),
		},
		"required": []string{"taskId"},
	}
}
func (t *DeleteTaskTool) Execute(_ context.Context, args map[string]interface{}) (interface{}, error) {
	task, ok := t.app.Delete(bridge.StringArg(args, "taskId"))
	if !ok {
		return bridge.Failed(notFound), nil
	}
	return bridge.Ok(fmt.Sprintf("Task \"%s\" deleted", task.Title)).With("success", true), nil
}

// taskView is the list_tasks projection of a task.
type taskView struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
	Category    string   `json:"category"`
	Completed   bool     `json:"completed"`
}

type ListTasksTool struct {
	app *App
}

func (t *ListTasksTool) Name() string        { return "list_tasks" }
func (t *ListTasksTool) Description() string { return "Get a list of all tasks with optional filtering" }
func (t *ListTasksTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"filter": map[string]interface{}{
				"type":        "string",
				"description": "Filter tasks by status",
				"enum":        []string{string(FilterAll), string(FilterActive), string(FilterCompleted)},
				"default":     string(FilterAll),
			},
			"category": map[string]interface{}{
				"type":        "string",
				"description": "Filter by category (optional)",
			},
		},
	}
}
func (t *ListTasksTool) Execute(_ context.Context, args map[string]interface{}) (interface{}, error) {
	all := t.app.Tasks()
	filtered := FilterTasks(all, ParseFilter(bridge.StringArg(args, "filter")), bridge.StringArg(args, "category"))

	views := make([]taskView, 0, len(filtered))
	var b strings.Builder
	fmt.Fprintf(&b, "Showing %d of %d tasks", len(filtered), len(all))
	for _, task := range filtered {
		views = append(views, taskView{
			ID:          task.ID,
			Title:       task.Title,
			Description: task.Description,
			Priority:    task.Priority,
			Category:    task.Category,
			Completed:   task.Completed,
		})
		mark := " "
		if task.Completed {
			mark = "x"
		}
		fmt.Fprintf(&b, "\n- [%s] %s (%s, %s) id=%s", mark, task.Title, task.Priority, task.Category, task.ID)
	}

	return bridge.Ok(b.String()).
		With("success", true).
		With("totalTasks", len(all)).
		With("filteredCount", len(filtered)).
		With("tasks", views), nil
}

type UpdateTaskPriorityTool struct {
	app *App
}

func (t *UpdateTaskPriorityTool) Name() string        { return "update_task_priority" }
func (t *UpdateTaskPriorityTool) Description() string { return "Change the priority level of a task" }
func (t *UpdateTaskPriorityTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"taskId": taskIDSchema("ID of the task to update"),
			"priority": map[string]interface{}{
				"type":        "string",
				"description": "New priority level",
				"enum":        priorityEnum(),
			},
		},
		"required": []string{"taskId", "priority"},
	}
}
func (t *UpdateTaskPriorityTool) Execute(_ context.Context, args map[string]interface{}) (interface{}, error) {
	priority := ParsePriority(bridge.StringArg(args, "priority"))
	task, ok := t.app.SetPriority(bridge.StringArg(args, "taskId"), priority)
	if !ok {
		return bridge.Failed(notFound), nil
	}
	return bridge.Ok(fmt.Sprintf("Task \"%s\" priority updated to %s", task.Title, priority)).With("success", true), nil
}

type GetTaskStatsTool struct {
	app *App
}

func (t *GetTaskStatsTool) Name() string                        { return "get_task_stats" }
func (t *GetTaskStatsTool) Description() string                 { return "Get statistics about tasks" }
func (t *GetTaskStatsTool) InputSchema() map[string]interface{} { return bridge.NoArgs() }
func (t *GetTaskStatsTool) Execute(context.Context, map[string]interface{}) (interface{}, error) {
	stats := ComputeStats(t.app.Tasks())
	text := fmt.Sprintf("%d tasks: %d active, %d completed (%d%% complete). Active by priority: high %d, medium %d, low %d",
		stats.Total, stats.Active, stats.Completed, stats.CompletionRate,
		stats.ByPriority[PriorityHigh], stats.ByPriority[PriorityMedium], stats.ByPriority[PriorityLow])
	return bridge.Ok(text).With("success", true).With("stats", stats), nil
}
