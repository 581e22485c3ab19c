package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TaskStatus string

const (
	StatusTodo       TaskStatus = "Todo"
	StatusInProgress TaskStatus = "In Progress"
	StatusCompleted  TaskStatus = "Completed"
)

// TaskStatuses lists the accepted statuses in display order.
var TaskStatuses = []TaskStatus{StatusTodo, StatusInProgress, StatusCompleted}

func (s TaskStatus) Valid() bool {
	for _, status := range TaskStatuses {
		if s == status {
			return true
		}
	}
	return false
}

type Task struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Title       string              `bson:"title" json:"title"`
	Description string              `bson:"description" json:"description"`
	Status      TaskStatus          `bson:"status" json:"status"`
	AssignedTo  *primitive.ObjectID `bson:"assignedTo,omitempty" json:"assignedTo,omitempty"`
	FinishedBy  *primitive.ObjectID `bson:"finishedBy,omitempty" json:"finishedBy,omitempty"`
	Project     primitive.ObjectID  `bson:"project" json:"project"`
	Tags        []string            `bson:"tags" json:"tags"`
	CreatedAt   time.Time           `bson:"createdAt" json:"createdAt"`
}

// CreateTaskInput mirrors the createTask mutation arguments.
type CreateTaskInput struct {
	Title       string
	Description string
	Status      string
	AssignedTo  string
	FinishedBy  string
	Project     string
	Tags        []interface{}
}

// UpdateTaskInput mirrors the updateTask mutation arguments. Nil fields were not supplied.
type UpdateTaskInput struct {
	ID          string
	Title       *string
	Description *string
	Status      *string
	Project     *string
	FinishedBy  *string
	Tags        []interface{}
	TagsSet     bool
}

// TaskUpdate holds the fields an update writes. Nil fields are left as stored;
// FinishedBySet with a nil FinishedBy clears it.
type TaskUpdate struct {
	Title         *string
	Description   *string
	Status        *TaskStatus
	Project       *primitive.ObjectID
	FinishedBy    *primitive.ObjectID
	FinishedBySet bool
	Tags          []string
}
