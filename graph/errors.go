package graph

import (
	"taskhub/apperrors"
	"taskhub/logging"
)

// resolverError carries the error kind into the response extensions.
type resolverError struct {
	err error
}

func (e *resolverError) Error() string { return e.err.Error() }

func (e *resolverError) Unwrap() error { return e.err }

func (e *resolverError) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": apperrors.Code(e.err)}
}

func toGraphQLError(err error) error {
	if err == nil {
		return nil
	}
	if apperrors.Kind(err) == nil {
		logging.Logger.Errorf("Event ID: GRAPHQL_RESOLVER_ERROR, Description: %v", err)
	}
	return &resolverError{err: err}
}
