package tasks

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Priority ranks a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Priorities lists every priority, lowest first.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// ParsePriority maps s to a priority, falling back to medium.
func ParsePriority(s string) Priority {
	switch p := Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p
	}
	return PriorityMedium
}

// Filter selects tasks by completion.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterActive    Filter = "active"
	FilterCompleted Filter = "completed"
)

// ParseFilter maps s to a filter, falling back to all.
func ParseFilter(s string) Filter {
	switch f := Filter(s); f {
	case FilterActive, FilterCompleted:
		return f
	}
	return FilterAll
}

// Task is a single to-do item.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Priority    Priority  `json:"priority"`
	Category    string    `json:"category"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Stats summarizes a task list. ByPriority counts active tasks only.
type Stats struct {
	Total          int              `json:"total"`
	Active         int              `json:"active"`
	Completed      int              `json:"completed"`
	CompletionRate int              `json:"completionRate"`
	ByPriority     map[Priority]int `json:"byPriority"`
}

// NewTask builds an active task with a fresh id.
func NewTask(title, description string, priority Priority, category string, now time.Time) Task {
	if category == "" {
		category = "general"
	}
	return Task{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		Priority:    priority,
		Category:    category,
		CreatedAt:   now,
	}
}

// FilterTasks returns the tasks matching filter and, when category is set, that category
// compared case-insensitively.
func FilterTasks(tasks []Task, filter Filter, category string) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		switch filter {
		case FilterActive:
			if t.Completed {
				continue
			}
		case FilterCompleted:
			if !t.Completed {
				continue
			}
		}
		if category != "" && !strings.EqualFold(t.Category, category) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// ComputeStats counts tasks. CompletionRate is a rounded percentage, 0 for an empty list.
func ComputeStats(tasks []Task) Stats {
	s := Stats{ByPriority: map[Priority]int{PriorityLow: 0, PriorityMedium: 0, PriorityHigh: 0}}
	for _, t := range tasks {
		s.Total++
		if t.Completed {
			s.Completed++
			continue
		}
		s.Active++
		s.ByPriority[t.Priority]++
	}
	if s.Total > 0 {
		s.CompletionRate = int(math.Round(100 * float64(s.Completed) / float64(s.Total)))
	}
	return s
}

// Find returns the task with id.
func Find(tasks []Task, id string) (Task, bool) {
	for _, t := range tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

// Replace returns a copy of tasks with the task carrying id passed through fn.
func Replace(tasks []Task, id string, fn func(Task) Task) ([]Task, Task, bool) {
	out := make([]Task, len(tasks))
	copy(out, tasks)
	for i := range out {
		if out[i].ID == id {
			out[i] = fn(out[i])
			return out, out[i], true
		}
	}
	return tasks, Task{}, false
}

// Remove returns a copy of tasks without the task carrying id.
func Remove(tasks []Task, id string) ([]Task, Task, bool) {
	for i, t := range tasks {
		if t.ID == id {
			out := make([]Task, 0, len(tasks)-1)
			out = append(out, tasks[:i]...)
			out = append(out, tasks[i+1:]...)
			return out, t, true
		}
	}
	return tasks, Task{}, false
}
