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

type ProjectService struct {
	projects ProjectRepository
	now      func() time.Time
}

func NewProjectService(projects ProjectRepository) *ProjectService {
	return &ProjectService{projects: projects, now: time.Now}
}

func (s *ProjectService) GetProjects(ctx context.Context, caller *models.Identity) ([]models.Project, error) {
	if err := CheckAuth(caller, MemberRoles, AuthMessages{}); err != nil {
		return nil, err
	}
	projects, err := s.projects.FindAll(ctx)
	if err != nil {
		return nil, apperrors.Wrap("Failed to fetch projects", err)
	}
	return projects, nil
}

func (s *ProjectService) GetProjectByID(ctx context.Context, caller *models.Identity, id string) (*models.Project, error) {
	const op = "Failed to fetch project"

	if err := CheckAuth(caller, MemberRoles, AuthMessages{}); err != nil {
		return nil, err
	}
	oid, err := parseID(id, "Invalid project ID format")
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	project, err := s.projects.FindByID(ctx, oid)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			err = apperrors.Newf(apperrors.ErrNotFound, "Project with ID %s not found", id)
		}
		return nil, apperrors.Wrap(op, err)
	}
	return project, nil
}

func (s *ProjectService) CreateProject(ctx context.Context, caller *models.Identity, name, description string) (*models.Project, error) {
	const op = "Failed to create project"

	if err := CheckAuth(caller, MemberRoles, AuthMessages{}); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.Wrap(op, apperrors.New(apperrors.ErrInvalidInput, "Project name is required"))
	}

	project := &models.Project{
		ID:          primitive.NewObjectID(),
		Name:        name,
		Description: strings.TrimSpace(description),
		CreatedAt:   s.now().UTC(),
		Tasks:       []primitive.ObjectID{},
	}
	if err := s.projects.Insert(ctx, project); err != nil {
		return nil, apperrors.Wrap(op, err)
	}

	logging.Logger.Infof("Event ID: PROJECT_CREATED, Description: Project %s created by %s", project.ID.Hex(), caller.ID)
	return project, nil
}
