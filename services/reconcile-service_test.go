package services

import (
	"context"
	"testing"
	"time"

	"taskhub/models"
	"taskhub/repositories/inmemory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestReconcileOnceRebuildsDivergedLists(t *testing.T) {
	store := inmemory.NewStorage()
	ctx := context.Background()
	now := time.Now()

	healthy := &models.Project{Name: "Healthy", CreatedAt: now}
	broken := &models.Project{Name: "Broken", CreatedAt: now}
	require.NoError(t, store.Projects.Insert(ctx, healthy))
	require.NoError(t, store.Projects.Insert(ctx, broken))

	kept := &models.Task{Title: "kept", Project: healthy.ID, CreatedAt: now}
	first := &models.Task{Title: "first", Project: broken.ID, CreatedAt: now}
	second := &models.Task{Title: "second", Project: broken.ID, CreatedAt: now.Add(time.Second)}
	for _, task := range []*models.Task{kept, first, second} {
		require.NoError(t, store.Tasks.Insert(ctx, task))
	}
	require.NoError(t, store.Projects.AddTask(ctx, healthy.ID, kept.ID))
	// second never made it into the list and a deleted task lingers in it
	swapped, err := store.Projects.SetTasks(ctx, broken.ID, nil, []primitive.ObjectID{first.ID, primitive.NewObjectID()})
	require.NoError(t, err)
	require.True(t, swapped)

	reconciler := NewReconciler(store.Tasks, store.Projects)

	repaired, err := reconciler.ReconcileOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, repaired)

	fixed, err := store.Projects.FindByID(ctx, broken.ID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{first.ID, second.ID}, fixed.Tasks)

	repaired, err = reconciler.ReconcileOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, repaired)
}

func TestReconcileOnceKeepsTaskCreatedMidPass(t *testing.T) {
	store := inmemory.NewStorage()
	ctx := context.Background()
	member := &models.Identity{ID: primitive.NewObjectID().Hex(), Role: models.RoleUser}

	project := &models.Project{Name: "Board", CreatedAt: time.Now()}
	require.NoError(t, store.Projects.Insert(ctx, project))
	stale := primitive.NewObjectID()
	require.NoError(t, store.Projects.AddTask(ctx, project.ID, stale))

	service := NewTaskService(store.Tasks, store.Projects, store.Users, inmemory.NoTx{})
	var created *models.Task
	tasks := &hookedTasks{TaskStore: store.Tasks}
	tasks.afterFind = func() {
		var err error
		created, err = service.CreateTask(ctx, member, models.CreateTaskInput{
			Title: "t", Description: "d", Status: "Todo", Project: project.ID.Hex(),
		})
		require.NoError(t, err)
	}

	reconciler := NewReconciler(tasks, store.Projects)
	repaired, err := reconciler.ReconcileOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, repaired)

	stored, err := store.Projects.FindByID(ctx, project.ID)
	require.NoError(t, err)
	assert.Contains(t, stored.Tasks, created.ID)

	repaired, err = reconciler.ReconcileOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, repaired)

	stored, err = store.Projects.FindByID(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{created.ID}, stored.Tasks)
}

func TestReconcilerRunStopsOnCancel(t *testing.T) {
	store := inmemory.NewStorage()
	reconciler := NewReconciler(store.Tasks, store.Projects)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		reconciler.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reconciler did not stop")
	}
}

func TestSameIDs(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()

	assert.True(t, sameIDs([]primitive.ObjectID{a, b}, []primitive.ObjectID{b, a}))
	assert.False(t, sameIDs([]primitive.ObjectID{a, a}, []primitive.ObjectID{a, b}))
	assert.False(t, sameIDs([]primitive.ObjectID{a}, []primitive.ObjectID{a, b}))
	assert.True(t, sameIDs(nil, []primitive.ObjectID{}))
}
