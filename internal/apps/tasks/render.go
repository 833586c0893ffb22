package tasks

import (
	"html/template"

	"webmcp-bridge/internal/bridge"
)

var priorityColors = map[Priority]string{
	PriorityHigh:   "#ef4444",
	PriorityMedium: "#f59e0b",
	PriorityLow:    "#10b981",
}

func priorityColor(p Priority) template.CSS {
	if c, ok := priorityColors[p]; ok {
		return template.CSS(c)
	}
	return "#6b7280"
}

var regions = template.Must(template.New("tasks").Funcs(template.FuncMap{
	"color": priorityColor,
}).Parse(`
{{define "task-stats"}}<section class="stats-section" id="task-stats">
  <div class="stat-card"><div class="stat-number" data-stat="total">{{.Total}}</div><div class="stat-label">Total Tasks</div></div>
  <div class="stat-card active"><div class="stat-number" data-stat="active">{{.Active}}</div><div class="stat-label">Active</div></div>
  <div class="stat-card completed"><div class="stat-number" data-stat="completed">{{.Completed}}</div><div class="stat-label">Completed</div></div>
</section>{{end}}
{{define "task-filter"}}<form class="filter-section" id="task-filter" method="post" action="actions/filter">
{{- range .Options}}
  <button type="submit" name="filter" value="{{.}}"{{if eq . $.Current}} class="active"{{end}}>{{.}}</button>
{{- end}}
</form>{{end}}
{{define "task-list"}}<div id="task-list">
{{- if not .}}<div class="empty-state"><p>No tasks found. Ask AI to add some tasks!</p></div>
{{- else}}<div class="task-list">{{range .}}
  <div class="task-card{{if .Completed}} completed{{end}}" data-id="{{.ID}}">
    <div class="task-header"><h3>{{.Title}}</h3><span class="priority-badge" style="background-color: {{color .Priority}}">{{.Priority}}</span></div>
    {{- if .Description}}<p class="task-description">{{.Description}}</p>{{end}}
    <div class="task-footer"><span class="category-tag">{{.Category}}</span><span class="task-status">{{if .Completed}}✅ Completed{{else}}⏳ Active{{end}}</span></div>
  </div>{{end}}
</div>{{end}}
</div>{{end}}
`))

type filterView struct {
	Options []Filter
	Current Filter
}

func render(s State) bridge.Regions {
	return bridge.Regions{
		{ID: "task-stats", HTML: bridge.Execute(regions, "task-stats", ComputeStats(s.Tasks))},
		{ID: "task-filter", HTML: bridge.Execute(regions, "task-filter", filterView{
			Options: []Filter{FilterAll, FilterActive, FilterCompleted},
			Current: s.Filter,
		})},
		{ID: "task-list", HTML: bridge.Execute(regions, "task-list", FilterTasks(s.Tasks, s.Filter, ""))},
	}
}

// Controls renders the new-task form.
func (a *App) Controls() template.HTML {
	return `<form class="add-task" method="post" action="actions/add">
<input type="text" name="title" placeholder="Task title" required>
<input type="text" name="description" placeholder="Description">
<select name="priority"><option value="low">low</option><option value="medium" selected>medium</option><option value="high">high</option></select>
<input type="text" name="category" placeholder="general">
<button type="submit">Add task</button>
</form>`
}
