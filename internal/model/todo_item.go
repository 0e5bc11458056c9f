package model

import "time"

// Status is the lifecycle state of a todo item.
type Status string

const (
	StatusNotDone Status = "NOT_DONE"
	StatusDone    Status = "DONE"
	StatusPastDue Status = "PAST_DUE"
)

// Label returns the human-facing form used in API payloads and reports.
func (s Status) Label() string {
	switch s {
	case StatusNotDone:
		return "not done"
	case StatusDone:
		return "done"
	case StatusPastDue:
		return "past due"
	default:
		return string(s)
	}
}

// TodoItem is a single entry of the todo list.
type TodoItem struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	Description      string     `gorm:"not null" json:"description"`
	Status           Status     `gorm:"type:varchar(16);not null;index" json:"status"`
	CreationDatetime time.Time  `gorm:"not null;index" json:"creationDatetime"`
	DueDatetime      time.Time  `gorm:"not null" json:"dueDatetime"`
	DoneDatetime     *time.Time `json:"doneDatetime"`
}

func (TodoItem) TableName() string {
	return "todo_items"
}

// IsOverdue reports whether a not-done item has passed its due time at now.
func (t *TodoItem) IsOverdue(now time.Time) bool {
	return t.Status == StatusNotDone && t.DueDatetime.Before(now)
}
