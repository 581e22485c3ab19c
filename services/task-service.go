package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"taskhub/apperrors"
	"taskhub/logging"
	"taskhub/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	idFormatHint = " (check the ID format)"
	lookupHint   = " (the referenced record does not exist)"
)

var taskAuth = AuthMessages{
	Authentication: "Authentication required",
	Authorization:  "Unauthorized: Only admins and users can manage tasks",
}

type TaskService struct {
	tasks    TaskRepository
	projects ProjectRepository
	users    UserRepository
	tx       TxRunner
	now      func() time.Time
}

func NewTaskService(tasks TaskRepository, projects ProjectRepository, users UserRepository, tx TxRunner) *TaskService {
	return &TaskService{tasks: tasks, projects: projects, users: users, tx: tx, now: time.Now}
}

func (s *TaskService) GetTasks(ctx context.Context, caller *models.Identity) ([]models.Task, error) {
	if err := CheckAuth(caller, MemberRoles, taskAuth); err != nil {
		return nil, err
	}
	tasks, err := s.tasks.FindAll(ctx)
	if err != nil {
		return nil, apperrors.Wrap("Failed to fetch tasks", err)
	}
	return tasks, nil
}

func (s *TaskService) GetTaskByID(ctx context.Context, caller *models.Identity, id string) (*models.Task, error) {
	const op = "Failed to fetch task"

	if err := CheckAuth(caller, MemberRoles, taskAuth); err != nil {
		return nil, err
	}
	oid, err := parseID(id, "Invalid task ID format")
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	task, err := s.findTask(ctx, oid, id)
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	return task, nil
}

// CreateTask stores the task and appends its id to the owning project's task
// list. Both writes share one transaction.
func (s *TaskService) CreateTask(ctx context.Context, caller *models.Identity, in models.CreateTaskInput) (*models.Task, error) {
	const op = "Failed to create task"

	if err := CheckAuth(caller, MemberRoles, taskAuth); err != nil {
		return nil, err
	}

	status := models.TaskStatus(strings.TrimSpace(in.Status))
	if status != "" && !status.Valid() {
		return nil, apperrors.Wrap(op, invalidStatus())
	}
	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	if title == "" || description == "" || status == "" {
		return nil, apperrors.Wrap(op, apperrors.New(apperrors.ErrInvalidInput, "Title, description, and status are required"))
	}

	projectID, err := parseID(in.Project, "Invalid project ID format")
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	assignedTo, err := parseOptionalID(in.AssignedTo, "Invalid assignedTo user ID format")
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	finishedBy, err := parseOptionalID(in.FinishedBy, "Invalid finishedBy user ID format")
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	tags, err := parseTags(in.Tags)
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}

	task := &models.Task{
		ID:          primitive.NewObjectID(),
		Title:       title,
		Description: description,
		Status:      status,
		AssignedTo:  assignedTo,
		FinishedBy:  finishedBy,
		Project:     projectID,
		Tags:        tags,
		CreatedAt:   s.now().UTC(),
	}

	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.findProject(ctx, projectID); err != nil {
			return err
		}
		if err := s.tasks.Insert(ctx, task); err != nil {
			return err
		}
		return s.projects.AddTask(ctx, projectID, task.ID)
	})
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}

	logging.Logger.Infof("Event ID: TASK_CREATED, Description: Task %s created in project %s", task.ID.Hex(), projectID.Hex())
	return task, nil
}

// UpdateTask replaces the supplied fields. Omitted fields keep their stored
// values; the merged title, description and status must not be empty.
func (s *TaskService) UpdateTask(ctx context.Context, caller *models.Identity, in models.UpdateTaskInput) (*models.Task, error) {
	const op = "Failed to update task"

	if err := CheckAuth(caller, MemberRoles, taskAuth); err != nil {
		return nil, err
	}
	oid, err := parseID(in.ID, "Invalid task ID format")
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	if in.Status != nil {
		if status := models.TaskStatus(strings.TrimSpace(*in.Status)); status != "" && !status.Valid() {
			return nil, apperrors.Wrap(op, invalidStatus())
		}
	}

	stored, err := s.findTask(ctx, oid, in.ID)
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}

	var update models.TaskUpdate
	merged := *stored
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		update.Title, merged.Title = &title, title
	}
	if in.Description != nil {
		description := strings.TrimSpace(*in.Description)
		update.Description, merged.Description = &description, description
	}
	if in.Status != nil {
		status := models.TaskStatus(strings.TrimSpace(*in.Status))
		update.Status, merged.Status = &status, status
	}
	switch {
	case merged.Title == "":
		return nil, apperrors.Wrap(op, apperrors.New(apperrors.ErrInvalidInput, "Title is required and cannot be empty"))
	case merged.Description == "":
		return nil, apperrors.Wrap(op, apperrors.New(apperrors.ErrInvalidInput, "Description is required and cannot be empty"))
	case merged.Status == "":
		return nil, apperrors.Wrap(op, apperrors.New(apperrors.ErrInvalidInput, "Status is required and cannot be empty"))
	}

	if in.Project != nil {
		projectID, err := parseID(*in.Project, "Invalid project ID format")
		if err != nil {
			return nil, apperrors.Wrap(op, err)
		}
		update.Project = &projectID
	}
	if in.FinishedBy != nil {
		if update.FinishedBy, err = parseOptionalID(*in.FinishedBy, "Invalid finishedBy user ID format"); err != nil {
			return nil, apperrors.Wrap(op, err)
		}
		update.FinishedBySet = true
	}
	if in.TagsSet {
		if update.Tags, err = parseTags(in.Tags); err != nil {
			return nil, apperrors.Wrap(op, err)
		}
	}

	moved := update.Project != nil && *update.Project != stored.Project
	var task *models.Task
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if moved {
			if _, err := s.findProject(ctx, *update.Project); err != nil {
				return err
			}
		}
		var err error
		if task, err = s.tasks.Update(ctx, oid, update); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return apperrors.Newf(apperrors.ErrNotFound, "Task with ID %s not found", in.ID)
			}
			return err
		}
		if !moved {
			return nil
		}
		if err := s.projects.RemoveTask(ctx, stored.Project, oid); err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
			return err
		}
		return s.projects.AddTask(ctx, *update.Project, oid)
	})
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}

	logging.Logger.Infof("Event ID: TASK_UPDATED, Description: Task %s updated", in.ID)
	return task, nil
}

// DeleteTask removes the task and drops its id from the owning project. A
// project that no longer exists is skipped.
func (s *TaskService) DeleteTask(ctx context.Context, caller *models.Identity, id string) (*models.Task, error) {
	const op = "Failed to delete task"

	if err := CheckAuth(caller, MemberRoles, taskAuth); err != nil {
		return nil, err
	}
	oid, err := parseID(id, "Invalid task ID format")
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	task, err := s.findTask(ctx, oid, id)
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}

	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.tasks.Delete(ctx, oid); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return apperrors.Newf(apperrors.ErrNotFound, "Task with ID %s not found", id)
			}
			return err
		}
		if err := s.projects.RemoveTask(ctx, task.Project, oid); err != nil {
			if !errors.Is(err, mongo.ErrNoDocuments) {
				return err
			}
			logging.Logger.Warnf("Event ID: TASK_PROJECT_MISSING, Description: Project %s of deleted task %s no longer exists", task.Project.Hex(), id)
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}

	logging.Logger.Infof("Event ID: TASK_DELETED, Description: Task %s deleted", id)
	return task, nil
}

// AssignTask sets the task's assignee after checking that both records exist.
func (s *TaskService) AssignTask(ctx context.Context, caller *models.Identity, taskID, userID string) (*models.Task, error) {
	const op = "Failed to assign task"

	if err := CheckAuth(caller, MemberRoles, taskAuth); err != nil {
		return nil, err
	}
	taskOID, err := parseID(taskID, "Invalid task ID format")
	if err != nil {
		return nil, apperrors.Wrap(op, withHint(err, idFormatHint))
	}
	userOID, err := parseID(userID, "Invalid user ID format")
	if err != nil {
		return nil, apperrors.Wrap(op, withHint(err, idFormatHint))
	}

	if _, err := s.findTask(ctx, taskOID, taskID); err != nil {
		return nil, apperrors.Wrap(op, withHint(err, lookupHint))
	}
	if _, err := s.users.FindByID(ctx, userOID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			err = withHint(apperrors.Newf(apperrors.ErrNotFound, "User with ID %s not found", userID), lookupHint)
		}
		return nil, apperrors.Wrap(op, err)
	}

	task, err := s.tasks.SetAssignee(ctx, taskOID, userOID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			err = withHint(apperrors.Newf(apperrors.ErrNotFound, "Task with ID %s not found", taskID), lookupHint)
		}
		return nil, apperrors.Wrap(op, err)
	}

	logging.Logger.Infof("Event ID: TASK_ASSIGNED, Description: Task %s assigned to user %s", taskID, userID)
	return task, nil
}

func (s *TaskService) findTask(ctx context.Context, oid primitive.ObjectID, id string) (*models.Task, error) {
	task, err := s.tasks.FindByID(ctx, oid)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.Newf(apperrors.ErrNotFound, "Task with ID %s not found", id)
		}
		return nil, err
	}
	return task, nil
}

func (s *TaskService) findProject(ctx context.Context, oid primitive.ObjectID) (*models.Project, error) {
	project, err := s.projects.FindByID(ctx, oid)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.Newf(apperrors.ErrNotFound, "Project with ID %s not found", oid.Hex())
		}
		return nil, err
	}
	return project, nil
}

func invalidStatus() error {
	names := make([]string, len(models.TaskStatuses))
	for i, status := range models.TaskStatuses {
		names[i] = string(status)
	}
	return apperrors.Newf(apperrors.ErrInvalidInput, "Invalid status: must be one of %s", strings.Join(names, ", "))
}

func parseOptionalID(id, message string) (*primitive.ObjectID, error) {
	if id == "" {
		return nil, nil
	}
	oid, err := parseID(id, message)
	if err != nil {
		return nil, err
	}
	return &oid, nil
}

func parseTags(raw []interface{}) ([]string, error) {
	tags := make([]string, 0, len(raw))
	for _, value := range raw {
		tag, ok := value.(string)
		if !ok {
			return nil, apperrors.New(apperrors.ErrInvalidInput, "All tags must be strings")
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// withHint appends hint to the message of a classified error.
func withHint(err error, hint string) error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return apperrors.New(appErr.Kind, appErr.Message+hint)
	}
	return err
}
