package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Project struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name        string               `bson:"name" json:"name"`
	Description string               `bson:"description,omitempty" json:"description,omitempty"`
	CreatedAt   time.Time            `bson:"createdAt" json:"createdAt"`
	Tasks       []primitive.ObjectID `bson:"tasks" json:"tasks"`
}

// HasTask reports whether taskID is in the project's task list.
func (p *Project) HasTask(taskID primitive.ObjectID) bool {
	for _, id := range p.Tasks {
		if id == taskID {
			return true
		}
	}
	return false
}
