// Package inmemory keeps users, projects and tasks in process memory. It backs
// STORE=memory and the transport tests.
package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"taskhub/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/exp/slices"
)

// Storage groups the three stores. Each store guards its own map.
type Storage struct {
	Users    *UserStore
	Projects *ProjectStore
	Tasks    *TaskStore
}

func NewStorage() *Storage {
	return &Storage{
		Users:    &UserStore{users: make(map[primitive.ObjectID]models.User)},
		Projects: &ProjectStore{projects: make(map[primitive.ObjectID]models.Project)},
		Tasks:    &TaskStore{tasks: make(map[primitive.ObjectID]models.Task)},
	}
}

// NoTx runs fn directly; the memory store has no transactions.
type NoTx struct{}

func (NoTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (NoTx) Transactional() bool { return false }

func duplicateKey() error {
	return mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "duplicate key error"}}}
}

type UserStore struct {
	mu    sync.RWMutex
	users map[primitive.ObjectID]models.User
}

func (s *UserStore) FindAll(ctx context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]models.User, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID.Hex() < users[j].ID.Hex() })
	return users, nil
}

func (s *UserStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return &user, nil
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findFirst(func(u models.User) bool { return u.Email == email })
}

func (s *UserStore) FindByResetToken(ctx context.Context, token string, now time.Time) (*models.User, error) {
	return s.findFirst(func(u models.User) bool {
		return u.ResetToken != "" && u.ResetToken == token && u.ResetTokenExpiry != nil && u.ResetTokenExpiry.After(now)
	})
}

func (s *UserStore) findFirst(match func(models.User) bool) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if match(user) {
			found := user
			return &found, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (s *UserStore) emailTaken(email string, except primitive.ObjectID) bool {
	for id, user := range s.users {
		if id != except && user.Email == email {
			return true
		}
	}
	return false
}

func (s *UserStore) Insert(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if s.emailTaken(user.Email, user.ID) {
		return duplicateKey()
	}
	s.users[user.ID] = *user
	return nil
}

func (s *UserStore) Update(ctx context.Context, id primitive.ObjectID, update models.UserUpdate) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	if s.emailTaken(update.Email, id) {
		return nil, duplicateKey()
	}
	user.Name = update.Name
	user.Email = update.Email
	if update.Password != "" {
		user.Password = update.Password
	}
	s.users[id] = user
	return &user, nil
}

func (s *UserStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return mongo.ErrNoDocuments
	}
	delete(s.users, id)
	return nil
}

func (s *UserStore) DeleteAll(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := int64(len(s.users))
	s.users = make(map[primitive.ObjectID]models.User)
	return count, nil
}

// Count is used by tests to observe the collection size.
func (s *UserStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

func (s *UserStore) SetResetToken(ctx context.Context, id primitive.ObjectID, token string, expiry time.Time) error {
	return s.modify(id, func(u *models.User) {
		u.ResetToken = token
		u.ResetTokenExpiry = &expiry
	})
}

func (s *UserStore) ResetPassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	return s.modify(id, func(u *models.User) {
		u.Password = hash
		u.ResetToken = ""
		u.ResetTokenExpiry = nil
	})
}

func (s *UserStore) modify(id primitive.ObjectID, change func(*models.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	change(&user)
	s.users[id] = user
	return nil
}

type ProjectStore struct {
	mu       sync.RWMutex
	projects map[primitive.ObjectID]models.Project
}

func copyProject(p models.Project) models.Project {
	p.Tasks = append([]primitive.ObjectID{}, p.Tasks...)
	return p
}

func (s *ProjectStore) FindAll(ctx context.Context) ([]models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	projects := make([]models.Project, 0, len(s.projects))
	for _, project := range s.projects {
		projects = append(projects, copyProject(project))
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].CreatedAt.Before(projects[j].CreatedAt) })
	return projects, nil
}

func (s *ProjectStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	project, ok := s.projects[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	project = copyProject(project)
	return &project, nil
}

func (s *ProjectStore) Insert(ctx context.Context, project *models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if project.ID.IsZero() {
		project.ID = primitive.NewObjectID()
	}
	if project.Tasks == nil {
		project.Tasks = []primitive.ObjectID{}
	}
	s.projects[project.ID] = copyProject(*project)
	return nil
}

func (s *ProjectStore) AddTask(ctx context.Context, projectID, taskID primitive.ObjectID) error {
	return s.modify(projectID, func(p *models.Project) {
		if !p.HasTask(taskID) {
			p.Tasks = append(p.Tasks, taskID)
		}
	})
}

func (s *ProjectStore) RemoveTask(ctx context.Context, projectID, taskID primitive.ObjectID) error {
	return s.modify(projectID, func(p *models.Project) {
		kept := p.Tasks[:0]
		for _, id := range p.Tasks {
			if id != taskID {
				kept = append(kept, id)
			}
		}
		p.Tasks = kept
	})
}

func (s *ProjectStore) SetTasks(ctx context.Context, projectID primitive.ObjectID, expected, taskIDs []primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	project, ok := s.projects[projectID]
	if !ok || !slices.Equal(project.Tasks, expected) {
		return false, nil
	}
	project = copyProject(project)
	project.Tasks = append([]primitive.ObjectID{}, taskIDs...)
	s.projects[projectID] = project
	return true, nil
}

func (s *ProjectStore) modify(id primitive.ObjectID, change func(*models.Project)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	project, ok := s.projects[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	project = copyProject(project)
	change(&project)
	s.projects[id] = project
	return nil
}

type TaskStore struct {
	mu    sync.RWMutex
	tasks map[primitive.ObjectID]models.Task
}

func copyTask(t models.Task) models.Task {
	t.Tags = append([]string{}, t.Tags...)
	return t
}

func (s *TaskStore) FindAll(ctx context.Context) ([]models.Task, error) {
	return s.filter(func(models.Task) bool { return true }), nil
}

func (s *TaskStore) FindByProject(ctx context.Context, projectID primitive.ObjectID) ([]models.Task, error) {
	return s.filter(func(t models.Task) bool { return t.Project == projectID }), nil
}

func (s *TaskStore) filter(match func(models.Task) bool) []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := []models.Task{}
	for _, task := range s.tasks {
		if match(task) {
			tasks = append(tasks, copyTask(task))
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].CreatedAt.Before(tasks[j].CreatedAt) })
	return tasks
}

func (s *TaskStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	task = copyTask(task)
	return &task, nil
}

func (s *TaskStore) Insert(ctx context.Context, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if task.ID.IsZero() {
		task.ID = primitive.NewObjectID()
	}
	if task.Tags == nil {
		task.Tags = []string{}
	}
	s.tasks[task.ID] = copyTask(*task)
	return nil
}

func (s *TaskStore) Update(ctx context.Context, id primitive.ObjectID, update models.TaskUpdate) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	task = copyTask(task)
	if update.Title != nil {
		task.Title = *update.Title
	}
	if update.Description != nil {
		task.Description = *update.Description
	}
	if update.Status != nil {
		task.Status = *update.Status
	}
	if update.Project != nil {
		task.Project = *update.Project
	}
	if update.FinishedBySet {
		task.FinishedBy = update.FinishedBy
	}
	if update.Tags != nil {
		task.Tags = append([]string{}, update.Tags...)
	}
	s.tasks[id] = task
	result := copyTask(task)
	return &result, nil
}

func (s *TaskStore) SetAssignee(ctx context.Context, id, userID primitive.ObjectID) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	task = copyTask(task)
	task.AssignedTo = &userID
	s.tasks[id] = task
	return &task, nil
}

func (s *TaskStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return mongo.ErrNoDocuments
	}
	delete(s.tasks, id)
	return nil
}
