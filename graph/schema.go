// Package graph exposes the services through the GraphQL schema served at /graphql.
package graph

import (
	"context"
	"fmt"

	"taskhub/middleware"
	"taskhub/models"
	"taskhub/services"

	"github.com/graphql-go/graphql"
)

type schemaBuilder struct {
	users    *services.UserService
	projects *services.ProjectService
	tasks    *services.TaskService

	user    *graphql.Object
	project *graphql.Object
	task    *graphql.Object
	auth    *graphql.Object
}

var (
	listUsersAuth = services.AuthMessages{
		Authentication: "Authentication required",
		Authorization:  "Unauthorized: Only admin can list users",
	}
	updateUserAuth = services.AuthMessages{
		Authentication: "Authentication required",
		Authorization:  "Unauthorized: Only admin can update users",
	}
	deleteUserAuth = services.AuthMessages{
		Authentication: "Authentication required",
		Authorization:  "Unauthorized: Only admin can delete users",
	}
)

// NewSchema builds the query and mutation types over the services.
func NewSchema(users *services.UserService, projects *services.ProjectService, tasks *services.TaskService) (graphql.Schema, error) {
	s := &schemaBuilder{users: users, projects: projects, tasks: tasks}
	s.user = s.userType()
	s.project = s.projectType()
	s.task = s.taskType()
	s.auth = s.authPayloadType()

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    s.queryType(),
		Mutation: s.mutationType(),
	})
}

func caller(ctx context.Context) *models.Identity {
	return middleware.IdentityFromContext(ctx)
}

func stringArg(args map[string]interface{}, name string) string {
	value, _ := args[name].(string)
	return value
}

// optionalStringArg is nil when the argument was omitted or null.
func optionalStringArg(args map[string]interface{}, name string) *string {
	value, ok := args[name].(string)
	if !ok {
		return nil
	}
	return &value
}

func listArg(args map[string]interface{}, name string) ([]interface{}, bool) {
	value, ok := args[name]
	if !ok {
		return nil, false
	}
	list, _ := value.([]interface{})
	return list, true
}

func nonNullString() *graphql.ArgumentConfig {
	return &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)}
}

func nonNullID() *graphql.ArgumentConfig {
	return &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)}
}

func (s *schemaBuilder) queryType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "RootQueryType",
		Fields: graphql.Fields{
			"users": &graphql.Field{
				Type: graphql.NewList(s.user),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if err := services.CheckAuth(caller(p.Context), services.AdminRoles, listUsersAuth); err != nil {
						return nil, toGraphQLError(err)
					}
					users, err := s.users.GetUsers(p.Context)
					return users, toGraphQLError(err)
				},
			},
			"user": &graphql.Field{
				Type: s.user,
				Args: graphql.FieldConfigArgument{"id": &graphql.ArgumentConfig{Type: graphql.ID}},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					user, err := s.users.GetUserByID(p.Context, stringArg(p.Args, "id"))
					return user, toGraphQLError(err)
				},
			},
			"projects": &graphql.Field{
				Type: graphql.NewList(s.project),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					projects, err := s.projects.GetProjects(p.Context, caller(p.Context))
					return projects, toGraphQLError(err)
				},
			},
			"project": &graphql.Field{
				Type: s.project,
				Args: graphql.FieldConfigArgument{"id": &graphql.ArgumentConfig{Type: graphql.ID}},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					project, err := s.projects.GetProjectByID(p.Context, caller(p.Context), stringArg(p.Args, "id"))
					return project, toGraphQLError(err)
				},
			},
			"tasks": &graphql.Field{
				Type: graphql.NewList(s.task),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					tasks, err := s.tasks.GetTasks(p.Context, caller(p.Context))
					return tasks, toGraphQLError(err)
				},
			},
			"task": &graphql.Field{
				Type: s.task,
				Args: graphql.FieldConfigArgument{"id": &graphql.ArgumentConfig{Type: graphql.ID}},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					task, err := s.tasks.GetTaskByID(p.Context, caller(p.Context), stringArg(p.Args, "id"))
					return task, toGraphQLError(err)
				},
			},
		},
	})
}

func (s *schemaBuilder) mutationType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"createUser": &graphql.Field{
				Type: s.user,
				Args: graphql.FieldConfigArgument{
					"name":     nonNullString(),
					"email":    nonNullString(),
					"password": nonNullString(),
					"role":     &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					user, err := s.users.RegisterUser(p.Context, caller(p.Context),
						stringArg(p.Args, "name"),
						stringArg(p.Args, "email"),
						stringArg(p.Args, "password"),
						stringArg(p.Args, "role"),
					)
					return user, toGraphQLError(err)
				},
			},
			"updateUser": &graphql.Field{
				Type: s.user,
				Args: graphql.FieldConfigArgument{
					"id":       nonNullID(),
					"name":     nonNullString(),
					"email":    nonNullString(),
					"password": &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if err := services.CheckAuth(caller(p.Context), services.AdminRoles, updateUserAuth); err != nil {
						return nil, toGraphQLError(err)
					}
					user, err := s.users.UpdateUser(p.Context,
						stringArg(p.Args, "id"),
						stringArg(p.Args, "name"),
						stringArg(p.Args, "email"),
						optionalStringArg(p.Args, "password"),
					)
					return user, toGraphQLError(err)
				},
			},
			"deleteUser": &graphql.Field{
				Type: s.user,
				Args: graphql.FieldConfigArgument{"id": nonNullID()},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if err := services.CheckAuth(caller(p.Context), services.AdminRoles, deleteUserAuth); err != nil {
						return nil, toGraphQLError(err)
					}
					user, err := s.users.DeleteUser(p.Context, stringArg(p.Args, "id"))
					return user, toGraphQLError(err)
				},
			},
			"deleteAllUsers": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if err := services.CheckAuth(caller(p.Context), services.AdminRoles, deleteUserAuth); err != nil {
						return nil, toGraphQLError(err)
					}
					deleted, err := s.users.DeleteAllUsers(p.Context)
					if err != nil {
						return nil, toGraphQLError(err)
					}
					return fmt.Sprintf("%d users deleted", deleted), nil
				},
			},
			"loginUser": &graphql.Field{
				Type: s.auth,
				Args: graphql.FieldConfigArgument{
					"email":    nonNullString(),
					"password": nonNullString(),
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					result, err := s.users.LoginUser(p.Context, stringArg(p.Args, "email"), stringArg(p.Args, "password"))
					middleware.RecordAuthAttempt("login", err == nil)
					if err != nil {
						return nil, toGraphQLError(err)
					}
					return result, nil
				},
			},
			"requestPasswordReset": &graphql.Field{
				Type: graphql.String,
				Args: graphql.FieldConfigArgument{"email": nonNullString()},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					err := s.users.RequestPasswordReset(p.Context, stringArg(p.Args, "email"))
					middleware.RecordAuthAttempt("request_reset", err == nil)
					if err != nil {
						return nil, toGraphQLError(err)
					}
					return "Password reset token generated", nil
				},
			},
			"resetPassword": &graphql.Field{
				Type: graphql.String,
				Args: graphql.FieldConfigArgument{
					"token":       nonNullString(),
					"newPassword": nonNullString(),
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					err := s.users.ResetPassword(p.Context, stringArg(p.Args, "token"), stringArg(p.Args, "newPassword"))
					middleware.RecordAuthAttempt("reset_password", err == nil)
					if err != nil {
						return nil, toGraphQLError(err)
					}
					return "Password has been reset", nil
				},
			},
			"createProject": &graphql.Field{
				Type: s.project,
				Args: graphql.FieldConfigArgument{
					"name":        nonNullString(),
					"description": &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					project, err := s.projects.CreateProject(p.Context, caller(p.Context), stringArg(p.Args, "name"), stringArg(p.Args, "description"))
					return project, toGraphQLError(err)
				},
			},
			"createTask": &graphql.Field{
				Type: s.task,
				Args: graphql.FieldConfigArgument{
					"title":       nonNullString(),
					"description": &graphql.ArgumentConfig{Type: graphql.String},
					"status":      nonNullString(),
					"assignedTo":  &graphql.ArgumentConfig{Type: graphql.ID},
					"finishedBy":  &graphql.ArgumentConfig{Type: graphql.ID},
					"project":     nonNullID(),
					"tags":        &graphql.ArgumentConfig{Type: graphql.NewList(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					tags, _ := listArg(p.Args, "tags")
					task, err := s.tasks.CreateTask(p.Context, caller(p.Context), models.CreateTaskInput{
						Title:       stringArg(p.Args, "title"),
						Description: stringArg(p.Args, "description"),
						Status:      stringArg(p.Args, "status"),
						AssignedTo:  stringArg(p.Args, "assignedTo"),
						FinishedBy:  stringArg(p.Args, "finishedBy"),
						Project:     stringArg(p.Args, "project"),
						Tags:        tags,
					})
					return task, toGraphQLError(err)
				},
			},
			"updateTask": &graphql.Field{
				Type: s.task,
				Args: graphql.FieldConfigArgument{
					"id":          nonNullID(),
					"title":       &graphql.ArgumentConfig{Type: graphql.String},
					"description": &graphql.ArgumentConfig{Type: graphql.String},
					"status":      &graphql.ArgumentConfig{Type: graphql.String},
					"project":     &graphql.ArgumentConfig{Type: graphql.ID},
					"finishedBy":  &graphql.ArgumentConfig{Type: graphql.ID},
					"tags":        &graphql.ArgumentConfig{Type: graphql.NewList(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					tags, tagsSet := listArg(p.Args, "tags")
					task, err := s.tasks.UpdateTask(p.Context, caller(p.Context), models.UpdateTaskInput{
						ID:          stringArg(p.Args, "id"),
						Title:       optionalStringArg(p.Args, "title"),
						Description: optionalStringArg(p.Args, "description"),
						Status:      optionalStringArg(p.Args, "status"),
						Project:     optionalStringArg(p.Args, "project"),
						FinishedBy:  optionalStringArg(p.Args, "finishedBy"),
						Tags:        tags,
						TagsSet:     tagsSet,
					})
					return task, toGraphQLError(err)
				},
			},
			"deleteTask": &graphql.Field{
				Type: s.task,
				Args: graphql.FieldConfigArgument{"id": nonNullID()},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					task, err := s.tasks.DeleteTask(p.Context, caller(p.Context), stringArg(p.Args, "id"))
					return task, toGraphQLError(err)
				},
			},
			"assignTask": &graphql.Field{
				Type: s.task,
				Args: graphql.FieldConfigArgument{
					"taskId": nonNullID(),
					"userId": nonNullID(),
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					task, err := s.tasks.AssignTask(p.Context, caller(p.Context), stringArg(p.Args, "taskId"), stringArg(p.Args, "userId"))
					return task, toGraphQLError(err)
				},
			},
		},
	})
}
