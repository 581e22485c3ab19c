package services

import (
	"context"
	"time"

	"taskhub/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserRepository is the user store. Missing records are reported as
// mongo.ErrNoDocuments and duplicate e-mails as a duplicate key write error.
type UserRepository interface {
	FindAll(ctx context.Context) ([]models.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByResetToken(ctx context.Context, token string, now time.Time) (*models.User, error)
	Insert(ctx context.Context, user *models.User) error
	Update(ctx context.Context, id primitive.ObjectID, update models.UserUpdate) (*models.User, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteAll(ctx context.Context) (int64, error)
	SetResetToken(ctx context.Context, id primitive.ObjectID, token string, expiry time.Time) error
	ResetPassword(ctx context.Context, id primitive.ObjectID, hash string) error
}

type ProjectRepository interface {
	FindAll(ctx context.Context) ([]models.Project, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Project, error)
	Insert(ctx context.Context, project *models.Project) error
	AddTask(ctx context.Context, projectID, taskID primitive.ObjectID) error
	RemoveTask(ctx context.Context, projectID, taskID primitive.ObjectID) error
	// SetTasks is a compare-and-set on the task list; false means expected was stale.
	SetTasks(ctx context.Context, projectID primitive.ObjectID, expected, taskIDs []primitive.ObjectID) (bool, error)
}

type TaskRepository interface {
	FindAll(ctx context.Context) ([]models.Task, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Task, error)
	FindByProject(ctx context.Context, projectID primitive.ObjectID) ([]models.Task, error)
	Insert(ctx context.Context, task *models.Task) error
	Update(ctx context.Context, id primitive.ObjectID, update models.TaskUpdate) (*models.Task, error)
	SetAssignee(ctx context.Context, id, userID primitive.ObjectID) (*models.Task, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// TxRunner groups the task and project writes of one operation.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
