package graph

import (
	"net/http"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/handler"
)

// NewHandler serves schema over HTTP. The request context, including the
// caller attached by the auth middleware, reaches every resolver.
func NewHandler(schema graphql.Schema, graphiql bool) http.Handler {
	return handler.New(&handler.Config{
		Schema:   &schema,
		Pretty:   true,
		GraphiQL: graphiql,
	})
}
