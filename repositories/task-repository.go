package repositories

import (
	"context"
	"time"

	"taskhub/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const TasksCollection = "tasks"

type TaskRepository struct {
	collection *mongo.Collection
	timeout    time.Duration
}

func NewTaskRepository(db *mongo.Database, timeout time.Duration) *TaskRepository {
	return &TaskRepository{collection: db.Collection(TasksCollection), timeout: timeout}
}

func (r *TaskRepository) FindAll(ctx context.Context) ([]models.Task, error) {
	return r.find(ctx, bson.M{})
}

// FindByProject returns the tasks pointing at projectID, oldest first.
func (r *TaskRepository) FindByProject(ctx context.Context, projectID primitive.ObjectID) ([]models.Task, error) {
	return r.find(ctx, bson.M{"project": projectID})
}

func (r *TaskRepository) find(ctx context.Context, filter bson.M) ([]models.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, err
	}
	tasks := []models.Task{}
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var task models.Task
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *TaskRepository) Insert(ctx context.Context, task *models.Task) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if task.ID.IsZero() {
		task.ID = primitive.NewObjectID()
	}
	if task.Tags == nil {
		task.Tags = []string{}
	}
	_, err := r.collection.InsertOne(ctx, task)
	return err
}

// Update writes only the fields named in update and returns the stored task.
func (r *TaskRepository) Update(ctx context.Context, id primitive.ObjectID, update models.TaskUpdate) (*models.Task, error) {
	set := bson.M{}
	if update.Title != nil {
		set["title"] = *update.Title
	}
	if update.Description != nil {
		set["description"] = *update.Description
	}
	if update.Status != nil {
		set["status"] = *update.Status
	}
	if update.Project != nil {
		set["project"] = *update.Project
	}
	if update.Tags != nil {
		set["tags"] = update.Tags
	}
	if update.FinishedBySet && update.FinishedBy != nil {
		set["finishedBy"] = *update.FinishedBy
	}
	doc := bson.M{}
	if len(set) > 0 {
		doc["$set"] = set
	}
	if update.FinishedBySet && update.FinishedBy == nil {
		doc["$unset"] = bson.M{"finishedBy": ""}
	}
	if len(doc) == 0 {
		return r.FindByID(ctx, id)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var task models.Task
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, doc, opts).Decode(&task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *TaskRepository) SetAssignee(ctx context.Context, id, userID primitive.ObjectID) (*models.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var task models.Task
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"assignedTo": userID}}, opts).Decode(&task)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *TaskRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
