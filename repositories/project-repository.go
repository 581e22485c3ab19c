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

const ProjectsCollection = "projects"

type ProjectRepository struct {
	collection *mongo.Collection
	timeout    time.Duration
}

func NewProjectRepository(db *mongo.Database, timeout time.Duration) *ProjectRepository {
	return &ProjectRepository{collection: db.Collection(ProjectsCollection), timeout: timeout}
}

func (r *ProjectRepository) FindAll(ctx context.Context) ([]models.Project, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, err
	}
	projects := []models.Project{}
	if err := cursor.All(ctx, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *ProjectRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Project, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var project models.Project
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&project); err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *ProjectRepository) Insert(ctx context.Context, project *models.Project) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if project.ID.IsZero() {
		project.ID = primitive.NewObjectID()
	}
	if project.Tasks == nil {
		project.Tasks = []primitive.ObjectID{}
	}
	_, err := r.collection.InsertOne(ctx, project)
	return err
}

// AddTask appends taskID to the project's task list unless it is already present.
func (r *ProjectRepository) AddTask(ctx context.Context, projectID, taskID primitive.ObjectID) error {
	return r.updateOne(ctx, projectID, bson.M{"$addToSet": bson.M{"tasks": taskID}})
}

func (r *ProjectRepository) RemoveTask(ctx context.Context, projectID, taskID primitive.ObjectID) error {
	return r.updateOne(ctx, projectID, bson.M{"$pull": bson.M{"tasks": taskID}})
}

// SetTasks replaces the task list only while it still equals expected. It
// reports false when the list changed in between or the project is gone.
func (r *ProjectRepository) SetTasks(ctx context.Context, projectID primitive.ObjectID, expected, taskIDs []primitive.ObjectID) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if expected == nil {
		expected = []primitive.ObjectID{}
	}
	if taskIDs == nil {
		taskIDs = []primitive.ObjectID{}
	}
	filter := bson.M{"_id": projectID, "tasks": expected}
	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"tasks": taskIDs}})
	if err != nil {
		return false, err
	}
	return result.MatchedCount == 1, nil
}

func (r *ProjectRepository) updateOne(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
