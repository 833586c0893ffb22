package tasks

import (
	"context"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webmcp-bridge/internal/apps"
	"webmcp-bridge/internal/bridge"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	host := bridge.NewHost(Name)
	require.NoError(t, host.Bind(bridge.NewDispatcher("test", "0")))
	notifier := bridge.NewNotifier(bridge.DefaultNotificationTTL)
	t.Cleanup(notifier.Close)

	app := New(apps.Deps{Host: host, Notifier: notifier})
	require.NoError(t, app.Install(context.Background()))
	return app
}

func call(t *testing.T, app *App, tool string, args map[string]interface{}) bridge.Reply {
	t.Helper()
	result, err := app.Host().ExecuteTool(tool, args)
	require.NoError(t, err)
	return result.(bridge.Reply)
}

func document(t *testing.T, app *App, id string) *goquery.Document {
	t.Helper()
	region, ok := app.Regions().Get(id)
	require.True(t, ok, "region %s", id)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(region.HTML)))
	require.NoError(t, err)
	return doc
}

func lastNotification(t *testing.T, app *App) bridge.Notification {
	t.Helper()
	active := app.Notifier().Active()
	require.NotEmpty(t, active)
	return active[len(active)-1]
}

func TestInstallRegistersTools(t *testing.T) {
	app := newTestApp(t)
	assert.Equal(t, []string{
		"add_task", "complete_task", "delete_task", "get_task_stats", "list_tasks", "update_task_priority",
	}, app.Host().Tools())
}

func TestAddTaskAppliesDefaults(t *testing.T) {
	app := newTestApp(t)

	reply := call(t, app, "add_task", map[string]interface{}{"title": "Write report"})
	assert.Equal(t, `Task "Write report" added successfully with medium priority`, reply.Text)
	assert.Equal(t, true, reply.Fields["success"])

	tasks := app.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, tasks[0].ID, reply.Fields["taskId"])
	assert.Equal(t, PriorityMedium, tasks[0].Priority)
	assert.Equal(t, "general", tasks[0].Category)
	assert.Equal(t, "", tasks[0].Description)
	assert.False(t, tasks[0].CreatedAt.IsZero())

	assert.Equal(t, "Added task: Write report", lastNotification(t, app).Message)
	assert.Equal(t, "Write report", strings.TrimSpace(document(t, app, "task-list").Find(".task-card h3").Text()))
}

func TestAddTaskRejectsBadInput(t *testing.T) {
	app := newTestApp(t)

	_, err := app.Host().ExecuteTool("add_task", map[string]interface{}{"title": ""})
	assert.True(t, bridge.IsInputValidation(err))

	_, err = app.Host().ExecuteTool("add_task", map[string]interface{}{"title": "x", "priority": "urgent"})
	assert.True(t, bridge.IsInputValidation(err))

	assert.Empty(t, app.Tasks())
}

func TestCompleteTaskUpdatesStats(t *testing.T) {
	app := newTestApp(t)
	id := call(t, app, "add_task", map[string]interface{}{"title": "A", "priority": "high"}).Fields["taskId"].(string)
	call(t, app, "add_task", map[string]interface{}{"title": "B"})

	reply := call(t, app, "complete_task", map[string]interface{}{"taskId": id})
	assert.Equal(t, `Task "A" marked as completed`, reply.Text)
	assert.Equal(t, "Completed: A", lastNotification(t, app).Message)

	stats := call(t, app, "get_task_stats", nil).Fields["stats"].(Stats)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 50, stats.CompletionRate)
	assert.Equal(t, 0, stats.ByPriority[PriorityHigh])
	assert.Equal(t, 1, stats.ByPriority[PriorityMedium])

	doc := document(t, app, "task-stats")
	assert.Equal(t, "2", doc.Find(`[data-stat="total"]`).Text())
	assert.Equal(t, "1", doc.Find(`[data-stat="active"]`).Text())
	assert.Equal(t, "1", doc.Find(`[data-stat="completed"]`).Text())
}

func TestUnknownTaskIDs(t *testing.T) {
	app := newTestApp(t)
	call(t, app, "add_task", map[string]interface{}{"title": "A"})
	before := app.Tasks()

	for _, tc := range []struct {
		tool string
		args map[string]interface{}
	}{
		{"complete_task", map[string]interface{}{"taskId": "nope"}},
		{"delete_task", map[string]interface{}{"taskId": "nope"}},
		{"update_task_priority", map[string]interface{}{"taskId": "nope", "priority": "low"}},
	} {
		t.Run(tc.tool, func(t *testing.T) {
			reply := call(t, app, tc.tool, tc.args)
			assert.Equal(t, "Task not found", reply.Text)
			assert.False(t, reply.Succeeded())

			n := lastNotification(t, app)
			assert.Equal(t, "Task not found", n.Message)
			assert.Equal(t, bridge.LevelError, n.Level)
			assert.Equal(t, before, app.Tasks())
		})
	}
}

func TestDeleteAndPriority(t *testing.T) {
	app := newTestApp(t)
	a := call(t, app, "add_task", map[string]interface{}{"title": "A"}).Fields["taskId"].(string)
	b := call(t, app, "add_task", map[string]interface{}{"title": "B"}).Fields["taskId"].(string)

	reply := call(t, app, "update_task_priority", map[string]interface{}{"taskId": b, "priority": "high"})
	assert.Equal(t, `Task "B" priority updated to high`, reply.Text)
	assert.Equal(t, "Updated priority for: B", lastNotification(t, app).Message)

	reply = call(t, app, "delete_task", map[string]interface{}{"taskId": a})
	assert.Equal(t, `Task "A" deleted`, reply.Text)
	assert.Equal(t, "Deleted: A", lastNotification(t, app).Message)

	tasks := app.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, PriorityHigh, tasks[0].Priority)
}

func TestListTasks(t *testing.T) {
	app := newTestApp(t)
	a := call(t, app, "add_task", map[string]interface{}{"title": "A", "category": "Work"}).Fields["taskId"].(string)
	call(t, app, "add_task", map[string]interface{}{"title": "B", "category": "home"})
	call(t, app, "complete_task", map[string]interface{}{"taskId": a})

	reply := call(t, app, "list_tasks", nil)
	assert.Equal(t, 2, reply.Fields["totalTasks"])
	assert.Equal(t, 2, reply.Fields["filteredCount"])

	reply = call(t, app, "list_tasks", map[string]interface{}{"filter": "active"})
	assert.Equal(t, 1, reply.Fields["filteredCount"])
	views := reply.Fields["tasks"].([]taskView)
	require.Len(t, views, 1)
	assert.Equal(t, "B", views[0].Title)

	reply = call(t, app, "list_tasks", map[string]interface{}{"category": "work"})
	assert.Equal(t, 1, reply.Fields["filteredCount"])
	assert.Contains(t, reply.Text, "[x] A")
}

func TestFilterIsPageState(t *testing.T) {
	app := newTestApp(t)
	a := call(t, app, "add_task", map[string]interface{}{"title": "A"}).Fields["taskId"].(string)
	call(t, app, "add_task", map[string]interface{}{"title": "B"})
	call(t, app, "complete_task", map[string]interface{}{"taskId": a})

	ctx := context.Background()
	require.NoError(t, apps.Dispatch(ctx, app, "filter", map[string]string{"filter": "completed"}))

	titles := document(t, app, "task-list").Find(".task-card h3").Map(func(_ int, s *goquery.Selection) string {
		return s.Text()
	})
	assert.Equal(t, []string{"A"}, titles)
	assert.Equal(t, "completed", document(t, app, "task-filter").Find("button.active").Text())

	// the agent still sees everything
	assert.Equal(t, 2, call(t, app, "list_tasks", nil).Fields["filteredCount"])

	require.NoError(t, apps.Dispatch(ctx, app, "filter", map[string]string{"filter": "active"}))
	assert.Equal(t, "B", document(t, app, "task-list").Find(".task-card h3").Text())
}

func TestEmptyListPlaceholder(t *testing.T) {
	app := newTestApp(t)
	assert.Contains(t, document(t, app, "task-list").Find(".empty-state").Text(), "No tasks found. Ask AI to add some tasks!")
}

func TestUIActionsShareMutators(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	require.NoError(t, apps.Dispatch(ctx, app, "add", map[string]string{
		"title": "<b>Plan</b> trip", "priority": "low", "category": "travel",
	}))
	tasks := app.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "Plan trip", tasks[0].Title)
	assert.Equal(t, PriorityLow, tasks[0].Priority)

	require.NoError(t, apps.Dispatch(ctx, app, "complete", map[string]string{"taskId": tasks[0].ID}))
	assert.True(t, app.Tasks()[0].Completed)

	require.NoError(t, apps.Dispatch(ctx, app, "delete", map[string]string{"taskId": tasks[0].ID}))
	assert.Empty(t, app.Tasks())

	assert.Error(t, apps.Dispatch(ctx, app, "add", map[string]string{"title": "  "}))
}
