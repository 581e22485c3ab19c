package graph

import (
	"errors"
	"time"

	"taskhub/apperrors"
	"taskhub/middleware"
	"taskhub/models"

	"github.com/graphql-go/graphql"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func asUser(source interface{}) *models.User {
	switch u := source.(type) {
	case *models.User:
		return u
	case models.User:
		return &u
	}
	return nil
}

func asProject(source interface{}) *models.Project {
	switch p := source.(type) {
	case *models.Project:
		return p
	case models.Project:
		return &p
	}
	return nil
}

func asTask(source interface{}) *models.Task {
	switch t := source.(type) {
	case *models.Task:
		return t
	case models.Task:
		return &t
	}
	return nil
}

func formatTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func (s *schemaBuilder) userType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "User",
		Fields: graphql.Fields{
			"id": &graphql.Field{Type: graphql.ID, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				if u := asUser(p.Source); u != nil {
					return u.ID.Hex(), nil
				}
				return nil, nil
			}},
			"name": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				if u := asUser(p.Source); u != nil {
					return u.Name, nil
				}
				return nil, nil
			}},
			"email": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				if u := asUser(p.Source); u != nil {
					return u.Email, nil
				}
				return nil, nil
			}},
			"role": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				if u := asUser(p.Source); u != nil {
					return u.Role, nil
				}
				return nil, nil
			}},
		},
	})
}

func (s *schemaBuilder) projectType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Project",
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return graphql.Fields{
				"id": &graphql.Field{Type: graphql.ID, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if pr := asProject(p.Source); pr != nil {
						return pr.ID.Hex(), nil
					}
					return nil, nil
				}},
				"name": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if pr := asProject(p.Source); pr != nil {
						return pr.Name, nil
					}
					return nil, nil
				}},
				"description": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if pr := asProject(p.Source); pr != nil && pr.Description != "" {
						return pr.Description, nil
					}
					return nil, nil
				}},
				"createdAt": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if pr := asProject(p.Source); pr != nil {
						return formatTime(pr.CreatedAt), nil
					}
					return nil, nil
				}},
				"tasks": &graphql.Field{Type: graphql.NewList(s.task), Resolve: s.resolveProjectTasks},
			}
		}),
	})
}

func (s *schemaBuilder) taskType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Task",
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return graphql.Fields{
				"id": &graphql.Field{Type: graphql.ID, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if t := asTask(p.Source); t != nil {
						return t.ID.Hex(), nil
					}
					return nil, nil
				}},
				"title": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if t := asTask(p.Source); t != nil {
						return t.Title, nil
					}
					return nil, nil
				}},
				"description": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if t := asTask(p.Source); t != nil {
						return t.Description, nil
					}
					return nil, nil
				}},
				"status": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if t := asTask(p.Source); t != nil {
						return string(t.Status), nil
					}
					return nil, nil
				}},
				"tags": &graphql.Field{Type: graphql.NewList(graphql.String), Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if t := asTask(p.Source); t != nil {
						if t.Tags == nil {
							return []string{}, nil
						}
						return t.Tags, nil
					}
					return nil, nil
				}},
				"createdAt": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if t := asTask(p.Source); t != nil {
						return formatTime(t.CreatedAt), nil
					}
					return nil, nil
				}},
				"assignedTo": &graphql.Field{Type: s.user, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if t := asTask(p.Source); t != nil {
						return s.referencedUser(p, t.AssignedTo)
					}
					return nil, nil
				}},
				"finishedBy": &graphql.Field{Type: s.user, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if t := asTask(p.Source); t != nil {
						return s.referencedUser(p, t.FinishedBy)
					}
					return nil, nil
				}},
				"project": &graphql.Field{Type: s.project, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					t := asTask(p.Source)
					if t == nil || t.Project.IsZero() {
						return nil, nil
					}
					project, err := s.projects.GetProjectByID(p.Context, middleware.IdentityFromContext(p.Context), t.Project.Hex())
					return dangling(project, err)
				}},
			}
		}),
	})
}

func (s *schemaBuilder) authPayloadType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "AuthPayload",
		Fields: graphql.Fields{
			"token": &graphql.Field{Type: graphql.String},
			"user":  &graphql.Field{Type: s.user},
		},
	})
}

func (s *schemaBuilder) referencedUser(p graphql.ResolveParams, id *primitive.ObjectID) (interface{}, error) {
	if id == nil || id.IsZero() {
		return nil, nil
	}
	user, err := s.users.GetUserByID(p.Context, id.Hex())
	return dangling(user, err)
}

func (s *schemaBuilder) resolveProjectTasks(p graphql.ResolveParams) (interface{}, error) {
	project := asProject(p.Source)
	if project == nil {
		return nil, nil
	}
	caller := middleware.IdentityFromContext(p.Context)
	tasks := make([]*models.Task, 0, len(project.Tasks))
	for _, id := range project.Tasks {
		task, err := s.tasks.GetTaskByID(p.Context, caller, id.Hex())
		if errors.Is(err, apperrors.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, toGraphQLError(err)
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// dangling resolves a reference to a record that no longer exists as null.
func dangling[T any](value *T, err error) (interface{}, error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, toGraphQLError(err)
	}
	return value, nil
}
