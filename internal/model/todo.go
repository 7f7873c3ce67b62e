package model

import (
	"strings"
	"time"
)

// Priority is the urgency of a todo. The zero value means "not set" and is
// normalized to PriorityMedium before anything is sent.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ParsePriority accepts the three known priorities in any case.
// An empty string maps to PriorityMedium.
func ParsePriority(s string) (Priority, bool) {
	switch Priority(strings.ToLower(strings.TrimSpace(s))) {
	case "", PriorityMedium:
		return PriorityMedium, true
	case PriorityHigh:
		return PriorityHigh, true
	case PriorityLow:
		return PriorityLow, true
	}
	return "", false
}

// OrDefault returns p, or PriorityMedium when p is unset.
func (p Priority) OrDefault() Priority {
	if p == "" {
		return PriorityMedium
	}
	return p
}

// Todo is the domain model for a todo entry as the API returns it.
// Category holds a category name, not a category id.
type Todo struct {
	ID          ID        `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Priority    Priority  `json:"priority"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Values are the user-editable fields of a todo (create and edit input).
type Values struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Priority    Priority `json:"priority"`
	Completed   bool     `json:"completed"`
}

// ValuesOf extracts the editable fields of t.
func ValuesOf(t Todo) Values {
	return Values{
		Title:       t.Title,
		Description: t.Description,
		Category:    t.Category,
		Priority:    t.Priority,
		Completed:   t.Completed,
	}
}

// Category is a named tag. Todos point at it by Name.
type Category struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// PageState describes the page most recently loaded.
// Total is only meaningful relative to the search text of that fetch.
type PageState struct {
	Current  int `json:"current"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
}

// Pages is the number of pages needed to show Total items (at least 1).
func (p PageState) Pages() int {
	if p.PageSize <= 0 || p.Total <= 0 {
		return 1
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}

// Stats counts done and pending items.
func Stats(items []Todo) (done, pending int) {
	for _, it := range items {
		if it.Completed {
			done++
		} else {
			pending++
		}
	}
	return
}
