// Package server defines the gateway boundary to the orchestrator's REST
// API. Concrete transports live under internal/providers/server.
package server

import "context"

// Credential is the API service account, resolved once per run.
type Credential struct {
	Username string
	Password string
}

// MetadataGateway exposes the primitives the reconcilers are built from.
// Implementations classify responses into the faults taxonomy: 404 surfaces
// as NotFoundError, any other non-2xx as RemoteError.
type MetadataGateway interface {
	// ListPage fetches one pagination window of a collection and extracts
	// its item objects with the given jq expression.
	ListPage(ctx context.Context, collection string, itemsExpr string, offset int) ([]map[string]any, error)

	// TotalEntries reports the collection's total_entries counter without
	// draining pagination.
	TotalEntries(ctx context.Context, collection string) (int, error)

	Patch(ctx context.Context, collection string, identifier string, query map[string]string, payload map[string]any) error
	Create(ctx context.Context, collection string, payload map[string]any) error
	Delete(ctx context.Context, collection string, identifier string) error
}
