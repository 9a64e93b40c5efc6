package tasks

import "time"

// Task is a card in a project column
type Task struct {
	ID          int64     `json:"task_id"`
	ColumnID    int64     `json:"column_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatorID   int64     `json:"creator_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// TaskRequest carries the editable fields of a task
type TaskRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=100"`
	Description string `json:"description" validate:"max=2000"`
}

// MoveRequest names the destination column of a task
type MoveRequest struct {
	ColumnID int64 `json:"column_id" validate:"required,gt=0"`
}

// AssignRequest names the user to assign
type AssignRequest struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
}
