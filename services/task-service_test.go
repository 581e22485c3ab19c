package services

import (
	"context"
	"errors"
	"testing"

	"taskhub/apperrors"
	"taskhub/models"
	"taskhub/repositories/inmemory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var member = &models.Identity{ID: primitive.NewObjectID().Hex(), Email: "m@b.com", Role: models.RoleUser}

type taskFixture struct {
	store    *inmemory.Storage
	tasks    *TaskService
	projects *ProjectService
	project  *models.Project
}

func newTaskFixture(t *testing.T) *taskFixture {
	t.Helper()
	store := inmemory.NewStorage()
	projects := NewProjectService(store.Projects)
	project, err := projects.CreateProject(context.Background(), member, "Board", "")
	require.NoError(t, err)

	return &taskFixture{
		store:    store,
		tasks:    NewTaskService(store.Tasks, store.Projects, store.Users, inmemory.NoTx{}),
		projects: projects,
		project:  project,
	}
}

func (f *taskFixture) create(t *testing.T, title string) *models.Task {
	t.Helper()
	task, err := f.tasks.CreateTask(context.Background(), member, models.CreateTaskInput{
		Title:       title,
		Description: "details",
		Status:      string(models.StatusTodo),
		Project:     f.project.ID.Hex(),
		Tags:        []interface{}{"backend"},
	})
	require.NoError(t, err)
	return task
}

func (f *taskFixture) projectTasks(t *testing.T, id primitive.ObjectID) []primitive.ObjectID {
	t.Helper()
	project, err := f.store.Projects.FindByID(context.Background(), id)
	require.NoError(t, err)
	return project.Tasks
}

func strPtr(s string) *string { return &s }

func TestTaskServiceGate(t *testing.T) {
	service := NewTaskService(new(mockTaskRepository), new(mockProjectRepository), new(mockUserRepository), &fakeTx{})
	ctx := context.Background()
	id := primitive.NewObjectID().Hex()
	guest := &models.Identity{ID: id, Role: "guest"}

	calls := map[string]func(caller *models.Identity) error{
		"getTasks": func(c *models.Identity) error { _, err := service.GetTasks(ctx, c); return err },
		"getTask":  func(c *models.Identity) error { _, err := service.GetTaskByID(ctx, c, id); return err },
		"create": func(c *models.Identity) error {
			_, err := service.CreateTask(ctx, c, models.CreateTaskInput{Title: "t", Description: "d", Status: "Todo", Project: id})
			return err
		},
		"update": func(c *models.Identity) error {
			_, err := service.UpdateTask(ctx, c, models.UpdateTaskInput{ID: id})
			return err
		},
		"delete": func(c *models.Identity) error { _, err := service.DeleteTask(ctx, c, id); return err },
		"assign": func(c *models.Identity) error { _, err := service.AssignTask(ctx, c, id, id); return err },
	}

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, call(nil), apperrors.ErrAuthenticationRequired)
			assert.ErrorIs(t, call(guest), apperrors.ErrUnauthorized)
		})
	}
}

func TestCreateTaskRejectsUnknownStatusWithoutWriting(t *testing.T) {
	tasks := new(mockTaskRepository)
	projects := new(mockProjectRepository)
	tx := &fakeTx{}
	service := NewTaskService(tasks, projects, new(mockUserRepository), tx)

	for _, status := range []string{"Pending", "done", "todo"} {
		_, err := service.CreateTask(context.Background(), member, models.CreateTaskInput{
			Title:       "t",
			Description: "d",
			Status:      status,
			Project:     primitive.NewObjectID().Hex(),
		})

		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		assert.EqualError(t, err, "Failed to create task: Invalid status: must be one of Todo, In Progress, Completed")
	}

	assert.Zero(t, tx.calls)
	tasks.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	projects.AssertNotCalled(t, "AddTask", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateTaskValidation(t *testing.T) {
	project := primitive.NewObjectID().Hex()
	tests := []struct {
		name    string
		in      models.CreateTaskInput
		message string
	}{
		{"missing title", models.CreateTaskInput{Description: "d", Status: "Todo", Project: project}, "Title, description, and status are required"},
		{"missing description", models.CreateTaskInput{Title: "t", Status: "Todo", Project: project}, "Title, description, and status are required"},
		{"missing status", models.CreateTaskInput{Title: "t", Description: "d", Project: project}, "Title, description, and status are required"},
		{"bad project", models.CreateTaskInput{Title: "t", Description: "d", Status: "Todo", Project: "abc"}, "Invalid project ID format"},
		{"bad assignee", models.CreateTaskInput{Title: "t", Description: "d", Status: "Todo", Project: project, AssignedTo: "abc"}, "Invalid assignedTo user ID format"},
		{"bad finisher", models.CreateTaskInput{Title: "t", Description: "d", Status: "Todo", Project: project, FinishedBy: "abc"}, "Invalid finishedBy user ID format"},
		{"bad tags", models.CreateTaskInput{Title: "t", Description: "d", Status: "Todo", Project: project, Tags: []interface{}{"ok", 3}}, "All tags must be strings"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := &fakeTx{}
			service := NewTaskService(new(mockTaskRepository), new(mockProjectRepository), new(mockUserRepository), tx)

			_, err := service.CreateTask(context.Background(), member, tt.in)

			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			assert.EqualError(t, err, "Failed to create task: "+tt.message)
			assert.Zero(t, tx.calls)
		})
	}
}

func TestCreateTaskAddsIDToProjectOnce(t *testing.T) {
	f := newTaskFixture(t)

	task := f.create(t, "first")

	assert.Equal(t, models.StatusTodo, task.Status)
	assert.Equal(t, []string{"backend"}, task.Tags)
	assert.Equal(t, []primitive.ObjectID{task.ID}, f.projectTasks(t, f.project.ID))
}

func TestCreateTaskMissingProject(t *testing.T) {
	f := newTaskFixture(t)
	missing := primitive.NewObjectID().Hex()

	_, err := f.tasks.CreateTask(context.Background(), member, models.CreateTaskInput{
		Title: "t", Description: "d", Status: "Todo", Project: missing,
	})

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.EqualError(t, err, "Failed to create task: Project with ID "+missing+" not found")

	tasks, err := f.store.Tasks.FindAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestCreateTaskTransactionFailure(t *testing.T) {
	tx := &fakeTx{err: errors.New("transaction aborted")}
	service := NewTaskService(new(mockTaskRepository), new(mockProjectRepository), new(mockUserRepository), tx)

	_, err := service.CreateTask(context.Background(), member, models.CreateTaskInput{
		Title: "t", Description: "d", Status: "In Progress", Project: primitive.NewObjectID().Hex(),
	})

	assert.EqualError(t, err, "Failed to create task: transaction aborted")
	assert.Equal(t, 1, tx.calls)
}

func TestDeleteTaskRemovesIDFromProject(t *testing.T) {
	f := newTaskFixture(t)
	first := f.create(t, "first")
	second := f.create(t, "second")
	ctx := context.Background()

	deleted, err := f.tasks.DeleteTask(ctx, member, first.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, first.ID, deleted.ID)

	assert.Equal(t, []primitive.ObjectID{second.ID}, f.projectTasks(t, f.project.ID))

	_, err = f.tasks.GetTaskByID(ctx, member, first.ID.Hex())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = f.tasks.DeleteTask(ctx, member, first.ID.Hex())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDeleteTaskWithMissingProject(t *testing.T) {
	tasks := new(mockTaskRepository)
	projects := new(mockProjectRepository)
	task := &models.Task{ID: primitive.NewObjectID(), Project: primitive.NewObjectID()}
	tasks.On("FindByID", mock.Anything, task.ID).Return(task, nil)
	tasks.On("Delete", mock.Anything, task.ID).Return(nil)
	projects.On("RemoveTask", mock.Anything, task.Project, task.ID).Return(errNoDocuments())
	service := NewTaskService(tasks, projects, new(mockUserRepository), &fakeTx{})

	deleted, err := service.DeleteTask(context.Background(), member, task.ID.Hex())

	require.NoError(t, err)
	assert.Equal(t, task.ID, deleted.ID)
	tasks.AssertExpectations(t)
	projects.AssertExpectations(t)
}

func TestAssignTask(t *testing.T) {
	f := newTaskFixture(t)
	task := f.create(t, "first")
	ctx := context.Background()

	user := &models.User{Name: "U", Email: "u@b.com", Role: models.RoleUser}
	require.NoError(t, f.store.Users.Insert(ctx, user))

	missingUser := primitive.NewObjectID().Hex()
	_, err := f.tasks.AssignTask(ctx, member, task.ID.Hex(), missingUser)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.EqualError(t, err, "Failed to assign task: User with ID "+missingUser+" not found (the referenced record does not exist)")

	unchanged, err := f.tasks.GetTaskByID(ctx, member, task.ID.Hex())
	require.NoError(t, err)
	assert.Nil(t, unchanged.AssignedTo)

	_, err = f.tasks.AssignTask(ctx, member, "bad", user.ID.Hex())
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.EqualError(t, err, "Failed to assign task: Invalid task ID format (check the ID format)")

	_, err = f.tasks.AssignTask(ctx, member, task.ID.Hex(), "bad")
	assert.EqualError(t, err, "Failed to assign task: Invalid user ID format (check the ID format)")

	missingTask := primitive.NewObjectID().Hex()
	_, err = f.tasks.AssignTask(ctx, member, missingTask, user.ID.Hex())
	assert.EqualError(t, err, "Failed to assign task: Task with ID "+missingTask+" not found (the referenced record does not exist)")

	assigned, err := f.tasks.AssignTask(ctx, member, task.ID.Hex(), user.ID.Hex())
	require.NoError(t, err)
	require.NotNil(t, assigned.AssignedTo)
	assert.Equal(t, user.ID, *assigned.AssignedTo)
}

func TestUpdateTaskMergesSuppliedFields(t *testing.T) {
	f := newTaskFixture(t)
	task := f.create(t, "first")
	ctx := context.Background()

	updated, err := f.tasks.UpdateTask(ctx, member, models.UpdateTaskInput{
		ID:     task.ID.Hex(),
		Status: strPtr(string(models.StatusInProgress)),
	})
	require.NoError(t, err)
	assert.Equal(t, "first", updated.Title)
	assert.Equal(t, "details", updated.Description)
	assert.Equal(t, models.StatusInProgress, updated.Status)
	assert.Equal(t, []string{"backend"}, updated.Tags)

	finisher := primitive.NewObjectID()
	updated, err = f.tasks.UpdateTask(ctx, member, models.UpdateTaskInput{
		ID:         task.ID.Hex(),
		Title:      strPtr("renamed"),
		FinishedBy: strPtr(finisher.Hex()),
		Tags:       []interface{}{},
		TagsSet:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Title)
	require.NotNil(t, updated.FinishedBy)
	assert.Equal(t, finisher, *updated.FinishedBy)
	assert.Empty(t, updated.Tags)

	stored, err := f.tasks.GetTaskByID(ctx, member, task.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "renamed", stored.Title)
}

func TestUpdateTaskKeepsConcurrentAssignment(t *testing.T) {
	f := newTaskFixture(t)
	task := f.create(t, "first")
	ctx := context.Background()
	assignee := primitive.NewObjectID()

	tasks := &hookedTasks{TaskStore: f.store.Tasks}
	tasks.afterFindByID = func() {
		_, err := f.store.Tasks.SetAssignee(ctx, task.ID, assignee)
		require.NoError(t, err)
	}
	service := NewTaskService(tasks, f.store.Projects, f.store.Users, inmemory.NoTx{})

	updated, err := service.UpdateTask(ctx, member, models.UpdateTaskInput{ID: task.ID.Hex(), Title: strPtr("renamed")})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Title)
	require.NotNil(t, updated.AssignedTo)
	assert.Equal(t, assignee, *updated.AssignedTo)

	stored, err := f.store.Tasks.FindByID(ctx, task.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.AssignedTo)
	assert.Equal(t, assignee, *stored.AssignedTo)
}

func TestUpdateTaskClearsFinishedBy(t *testing.T) {
	f := newTaskFixture(t)
	task := f.create(t, "first")
	ctx := context.Background()

	finisher := primitive.NewObjectID().Hex()
	updated, err := f.tasks.UpdateTask(ctx, member, models.UpdateTaskInput{ID: task.ID.Hex(), FinishedBy: &finisher})
	require.NoError(t, err)
	require.NotNil(t, updated.FinishedBy)

	updated, err = f.tasks.UpdateTask(ctx, member, models.UpdateTaskInput{ID: task.ID.Hex(), FinishedBy: strPtr("")})
	require.NoError(t, err)
	assert.Nil(t, updated.FinishedBy)
	assert.Equal(t, "first", updated.Title)
}

func TestUpdateTaskValidation(t *testing.T) {
	f := newTaskFixture(t)
	task := f.create(t, "first")
	ctx := context.Background()
	id := task.ID.Hex()

	tests := []struct {
		name    string
		in      models.UpdateTaskInput
		kind    error
		message string
	}{
		{"bad id", models.UpdateTaskInput{ID: "bad"}, apperrors.ErrInvalidInput, "Invalid task ID format"},
		{"bad status", models.UpdateTaskInput{ID: id, Status: strPtr("Pending")}, apperrors.ErrInvalidInput, "Invalid status: must be one of Todo, In Progress, Completed"},
		{"empty status", models.UpdateTaskInput{ID: id, Status: strPtr("")}, apperrors.ErrInvalidInput, "Status is required and cannot be empty"},
		{"empty title", models.UpdateTaskInput{ID: id, Title: strPtr(" ")}, apperrors.ErrInvalidInput, "Title is required and cannot be empty"},
		{"empty description", models.UpdateTaskInput{ID: id, Description: strPtr("")}, apperrors.ErrInvalidInput, "Description is required and cannot be empty"},
		{"bad project", models.UpdateTaskInput{ID: id, Project: strPtr("abc")}, apperrors.ErrInvalidInput, "Invalid project ID format"},
		{"bad finisher", models.UpdateTaskInput{ID: id, FinishedBy: strPtr("abc")}, apperrors.ErrInvalidInput, "Invalid finishedBy user ID format"},
		{"bad tags", models.UpdateTaskInput{ID: id, Tags: []interface{}{1}, TagsSet: true}, apperrors.ErrInvalidInput, "All tags must be strings"},
		{"missing task", models.UpdateTaskInput{ID: primitive.NilObjectID.Hex()}, apperrors.ErrNotFound, "Task with ID " + primitive.NilObjectID.Hex() + " not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.tasks.UpdateTask(ctx, member, tt.in)
			assert.ErrorIs(t, err, tt.kind)
			assert.EqualError(t, err, "Failed to update task: "+tt.message)
		})
	}

	stored, err := f.tasks.GetTaskByID(ctx, member, id)
	require.NoError(t, err)
	assert.Equal(t, "first", stored.Title)
	assert.Equal(t, models.StatusTodo, stored.Status)
}

func TestUpdateTaskMovesBetweenProjects(t *testing.T) {
	f := newTaskFixture(t)
	task := f.create(t, "first")
	ctx := context.Background()

	other, err := f.projects.CreateProject(ctx, member, "Other", "")
	require.NoError(t, err)

	missing := primitive.NewObjectID().Hex()
	_, err = f.tasks.UpdateTask(ctx, member, models.UpdateTaskInput{ID: task.ID.Hex(), Project: &missing})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Equal(t, []primitive.ObjectID{task.ID}, f.projectTasks(t, f.project.ID))

	otherID := other.ID.Hex()
	moved, err := f.tasks.UpdateTask(ctx, member, models.UpdateTaskInput{ID: task.ID.Hex(), Project: &otherID})
	require.NoError(t, err)
	assert.Equal(t, other.ID, moved.Project)

	assert.Empty(t, f.projectTasks(t, f.project.ID))
	assert.Equal(t, []primitive.ObjectID{task.ID}, f.projectTasks(t, other.ID))
}

func TestGetTasks(t *testing.T) {
	f := newTaskFixture(t)
	f.create(t, "first")
	f.create(t, "second")

	tasks, err := f.tasks.GetTasks(context.Background(), &models.Identity{Role: models.RoleAdmin})

	require.NoError(t, err)
	assert.Len(t, tasks, 2)
}
