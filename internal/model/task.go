package model

import (
	"slices"
	"time"
)

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
	TaskCancelled  TaskStatus = "cancelled"
)

// Task is owned by the task board. A nil Deadline means the task is not
// scheduled and never shows up on a calendar.
type Task struct {
	ID                int64        `json:"id"`
	Title             string       `json:"title"`
	Description       string       `json:"description"`
	Deadline          *time.Time   `json:"deadline"`
	Priority          TaskPriority `json:"priority"`
	Status            TaskStatus   `json:"status"`
	AssignedTo        []int64      `json:"assigned_to"`
	DelegatedBy       *int64       `json:"delegated_by"`
	AssignedToManager *int64       `json:"assigned_to_manager"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// IsAssignedTo reports whether userID is one of the task's assignees.
func (t Task) IsAssignedTo(userID int64) bool {
	return slices.Contains(t.AssignedTo, userID)
}
