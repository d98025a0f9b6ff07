// Package graphql is the operation-based binding of the auth protocol. It
// runs behind the same authentication middleware as the REST routes, so
// both bindings share one mode snapshot and session handle per request.
package graphql

import (
	"log/slog"
	"net/http"

	"github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/relay"
)

const maxQueryDepth = 8

// NewSchema parses Schema against the resolver.
func NewSchema(auth AuthService, logger *slog.Logger) (*graphql.Schema, error) {
	return graphql.ParseSchema(Schema, NewResolver(auth, logger), graphql.MaxDepth(maxQueryDepth))
}

// NewHandler serves POST /graphql.
func NewHandler(auth AuthService, logger *slog.Logger) (http.Handler, error) {
	schema, err := NewSchema(auth, logger)
	if err != nil {
		return nil, err
	}
	return &relay.Handler{Schema: schema}, nil
}
