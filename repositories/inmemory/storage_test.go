package inmemory

import (
	"context"
	"testing"
	"time"

	"taskhub/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestUserStoreUniqueEmail(t *testing.T) {
	store := NewStorage().Users
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, &models.User{Email: "a@example.com"}))
	err := store.Insert(ctx, &models.User{Email: "a@example.com"})

	assert.True(t, mongo.IsDuplicateKeyError(err))
	assert.Equal(t, 1, store.Count())
}

func TestUserStoreUpdateKeepsPassword(t *testing.T) {
	store := NewStorage().Users
	ctx := context.Background()
	user := &models.User{Name: "A", Email: "a@example.com", Password: "hash"}
	require.NoError(t, store.Insert(ctx, user))

	updated, err := store.Update(ctx, user.ID, models.UserUpdate{Name: "B", Email: "b@example.com"})

	require.NoError(t, err)
	assert.Equal(t, "B", updated.Name)
	assert.Equal(t, "hash", updated.Password)

	_, err = store.Update(ctx, primitive.NewObjectID(), models.UserUpdate{})
	assert.ErrorIs(t, err, mongo.ErrNoDocuments)
}

func TestUserStoreResetToken(t *testing.T) {
	store := NewStorage().Users
	ctx := context.Background()
	user := &models.User{Email: "a@example.com"}
	require.NoError(t, store.Insert(ctx, user))

	now := time.Now()
	require.NoError(t, store.SetResetToken(ctx, user.ID, "tok", now.Add(time.Hour)))

	found, err := store.FindByResetToken(ctx, "tok", now)
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	_, err = store.FindByResetToken(ctx, "tok", now.Add(2*time.Hour))
	assert.ErrorIs(t, err, mongo.ErrNoDocuments)

	require.NoError(t, store.ResetPassword(ctx, user.ID, "new"))
	_, err = store.FindByResetToken(ctx, "tok", now)
	assert.ErrorIs(t, err, mongo.ErrNoDocuments)
}

func TestProjectStoreTaskList(t *testing.T) {
	store := NewStorage().Projects
	ctx := context.Background()
	project := &models.Project{Name: "Board"}
	require.NoError(t, store.Insert(ctx, project))
	taskID := primitive.NewObjectID()

	require.NoError(t, store.AddTask(ctx, project.ID, taskID))
	require.NoError(t, store.AddTask(ctx, project.ID, taskID))

	stored, err := store.FindByID(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{taskID}, stored.Tasks)

	require.NoError(t, store.RemoveTask(ctx, project.ID, taskID))
	stored, err = store.FindByID(ctx, project.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Tasks)

	assert.ErrorIs(t, store.AddTask(ctx, primitive.NewObjectID(), taskID), mongo.ErrNoDocuments)
}

func TestProjectStoreSetTasksComparesFirst(t *testing.T) {
	store := NewStorage().Projects
	ctx := context.Background()
	project := &models.Project{Name: "Board"}
	require.NoError(t, store.Insert(ctx, project))
	first, second := primitive.NewObjectID(), primitive.NewObjectID()

	swapped, err := store.SetTasks(ctx, project.ID, nil, []primitive.ObjectID{first})
	require.NoError(t, err)
	assert.True(t, swapped)

	require.NoError(t, store.AddTask(ctx, project.ID, second))
	swapped, err = store.SetTasks(ctx, project.ID, []primitive.ObjectID{first}, nil)
	require.NoError(t, err)
	assert.False(t, swapped)

	stored, err := store.FindByID(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{first, second}, stored.Tasks)

	swapped, err = store.SetTasks(ctx, primitive.NewObjectID(), nil, nil)
	require.NoError(t, err)
	assert.False(t, swapped)
}

func TestTaskStoreUpdateWritesNamedFields(t *testing.T) {
	store := NewStorage().Tasks
	ctx := context.Background()
	assignee := primitive.NewObjectID()
	task := &models.Task{Title: "t", Description: "d", Status: models.StatusTodo, AssignedTo: &assignee, Tags: []string{"a"}}
	require.NoError(t, store.Insert(ctx, task))

	title := "renamed"
	updated, err := store.Update(ctx, task.ID, models.TaskUpdate{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Title)
	assert.Equal(t, "d", updated.Description)
	assert.Equal(t, &assignee, updated.AssignedTo)
	assert.Equal(t, []string{"a"}, updated.Tags)

	_, err = store.Update(ctx, primitive.NewObjectID(), models.TaskUpdate{Title: &title})
	assert.ErrorIs(t, err, mongo.ErrNoDocuments)
}

func TestTaskStoreFindByProjectOrdersByCreation(t *testing.T) {
	store := NewStorage().Tasks
	ctx := context.Background()
	projectID := primitive.NewObjectID()
	now := time.Now()

	later := &models.Task{Title: "later", Project: projectID, CreatedAt: now.Add(time.Minute)}
	earlier := &models.Task{Title: "earlier", Project: projectID, CreatedAt: now}
	other := &models.Task{Title: "other", Project: primitive.NewObjectID(), CreatedAt: now}
	for _, task := range []*models.Task{later, earlier, other} {
		require.NoError(t, store.Insert(ctx, task))
	}

	tasks, err := store.FindByProject(ctx, projectID)

	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "earlier", tasks[0].Title)
	assert.Equal(t, "later", tasks[1].Title)
}

func TestTaskStoreReturnsCopies(t *testing.T) {
	store := NewStorage().Tasks
	ctx := context.Background()
	task := &models.Task{Title: "t", Tags: []string{"a"}}
	require.NoError(t, store.Insert(ctx, task))

	found, err := store.FindByID(ctx, task.ID)
	require.NoError(t, err)
	found.Tags[0] = "changed"

	again, err := store.FindByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, again.Tags)
}
