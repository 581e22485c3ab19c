package services

import (
	"context"
	"time"

	"taskhub/models"
	"taskhub/repositories/inmemory"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type mockUserRepository struct{ mock.Mock }

func (m *mockUserRepository) FindAll(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]models.User)
	return users, args.Error(1)
}

func (m *mockUserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *mockUserRepository) FindByResetToken(ctx context.Context, token string, now time.Time) (*models.User, error) {
	args := m.Called(ctx, token, now)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *mockUserRepository) Insert(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockUserRepository) Update(ctx context.Context, id primitive.ObjectID, update models.UserUpdate) (*models.User, error) {
	args := m.Called(ctx, id, update)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *mockUserRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockUserRepository) DeleteAll(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockUserRepository) SetResetToken(ctx context.Context, id primitive.ObjectID, token string, expiry time.Time) error {
	return m.Called(ctx, id, token, expiry).Error(0)
}

func (m *mockUserRepository) ResetPassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	return m.Called(ctx, id, hash).Error(0)
}

type mockProjectRepository struct{ mock.Mock }

func (m *mockProjectRepository) FindAll(ctx context.Context) ([]models.Project, error) {
	args := m.Called(ctx)
	projects, _ := args.Get(0).([]models.Project)
	return projects, args.Error(1)
}

func (m *mockProjectRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Project, error) {
	args := m.Called(ctx, id)
	project, _ := args.Get(0).(*models.Project)
	return project, args.Error(1)
}

func (m *mockProjectRepository) Insert(ctx context.Context, project *models.Project) error {
	return m.Called(ctx, project).Error(0)
}

func (m *mockProjectRepository) AddTask(ctx context.Context, projectID, taskID primitive.ObjectID) error {
	return m.Called(ctx, projectID, taskID).Error(0)
}

func (m *mockProjectRepository) RemoveTask(ctx context.Context, projectID, taskID primitive.ObjectID) error {
	return m.Called(ctx, projectID, taskID).Error(0)
}

func (m *mockProjectRepository) SetTasks(ctx context.Context, projectID primitive.ObjectID, expected, taskIDs []primitive.ObjectID) (bool, error) {
	args := m.Called(ctx, projectID, expected, taskIDs)
	return args.Bool(0), args.Error(1)
}

type mockTaskRepository struct{ mock.Mock }

func (m *mockTaskRepository) FindAll(ctx context.Context) ([]models.Task, error) {
	args := m.Called(ctx)
	tasks, _ := args.Get(0).([]models.Task)
	return tasks, args.Error(1)
}

func (m *mockTaskRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Task, error) {
	args := m.Called(ctx, id)
	task, _ := args.Get(0).(*models.Task)
	return task, args.Error(1)
}

func (m *mockTaskRepository) FindByProject(ctx context.Context, projectID primitive.ObjectID) ([]models.Task, error) {
	args := m.Called(ctx, projectID)
	tasks, _ := args.Get(0).([]models.Task)
	return tasks, args.Error(1)
}

func (m *mockTaskRepository) Insert(ctx context.Context, task *models.Task) error {
	return m.Called(ctx, task).Error(0)
}

func (m *mockTaskRepository) Update(ctx context.Context, id primitive.ObjectID, update models.TaskUpdate) (*models.Task, error) {
	args := m.Called(ctx, id, update)
	task, _ := args.Get(0).(*models.Task)
	return task, args.Error(1)
}

func (m *mockTaskRepository) SetAssignee(ctx context.Context, id, userID primitive.ObjectID) (*models.Task, error) {
	args := m.Called(ctx, id, userID)
	task, _ := args.Get(0).(*models.Task)
	return task, args.Error(1)
}

func (m *mockTaskRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return m.Called(ctx, id).Error(0)
}

// hookedTasks is the in-memory task store with one-shot callbacks that fire
// right after a read returns, for interleaving a concurrent write.
type hookedTasks struct {
	*inmemory.TaskStore
	afterFind     func()
	afterFindByID func()
}

func (h *hookedTasks) FindByProject(ctx context.Context, projectID primitive.ObjectID) ([]models.Task, error) {
	tasks, err := h.TaskStore.FindByProject(ctx, projectID)
	fire(&h.afterFind)
	return tasks, err
}

func (h *hookedTasks) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Task, error) {
	task, err := h.TaskStore.FindByID(ctx, id)
	fire(&h.afterFindByID)
	return task, err
}

func fire(hook *func()) {
	if *hook != nil {
		run := *hook
		*hook = nil
		run()
	}
}

// fakeTx runs fn directly unless err is set.
type fakeTx struct {
	err   error
	calls int
}

func (f *fakeTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return fn(ctx)
}

type recordingMailer struct {
	to, subject, body string
	err               error
}

func (m *recordingMailer) Send(to, subject, body string) error {
	m.to, m.subject, m.body = to, subject, body
	return m.err
}
