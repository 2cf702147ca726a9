// Package reconciler converts a desired-state manifest and a polled remote
// listing into the minimal set of create, update, and delete calls for one
// metadata kind. Reconciliation is strictly sequential and fail-fast: the
// first unexpected remote response aborts the run, and partially applied
// loops are accepted rather than rolled back.
package reconciler

import (
	"context"
	"strings"

	"github.com/dataeng-tools/airmeta/faults"
	"github.com/dataeng-tools/airmeta/manifest"
	"github.com/dataeng-tools/airmeta/secrets"
	"github.com/dataeng-tools/airmeta/server"
)

// Listing is one kind's current remote state. Details is populated only by
// kinds whose read path derives more than identifiers (dags).
type Listing struct {
	Identifiers []string
	Details     map[string]map[string]any
}

// ApplyResult reports what a reconciliation actually changed. On error it
// carries whatever completed before the failure.
type ApplyResult struct {
	Deleted  []string
	Upserted []string
}

type Reconciler interface {
	Kind() Kind

	// Read polls the remote environment and returns its current listing.
	Read(ctx context.Context) (Listing, error)

	// PlanDeletions reports which remote identifiers Apply would delete
	// for the given manifest. Additive-only kinds always return nil.
	PlanDeletions(ctx context.Context, desired manifest.Manifest) ([]string, error)

	// Apply drives the remote state to match the manifest under the
	// kind's policy: list, delete extras, upsert every manifest entry.
	Apply(ctx context.Context, desired manifest.Manifest) (ApplyResult, error)
}

// Options carries the per-invocation identity and behavior switches shared
// by every kind.
type Options struct {
	EnvironmentName string
	ProjectID       string

	// DagManifestPath locates the local DAG manifest used to enrich the
	// dags read path with duration limits.
	DagManifestPath string

	// PauseAll forces is_paused=true on every dag during apply.
	PauseAll bool

	// FailOnImportError aborts the dags read path when the environment
	// reports parser import errors.
	FailOnImportError bool

	// Secrets resolves the connections manifest; other kinds ignore it.
	Secrets secrets.Provider
}

var constructors = map[Kind]func(remote, Options) Reconciler{
	KindPools:       newPoolsReconciler,
	KindConnections: newConnectionsReconciler,
	KindVariables:   newVariablesReconciler,
	KindRoles:       newRolesReconciler,
	KindDags:        newDagsReconciler,
}

// New builds the reconciler for a kind. Dispatch is a closed lookup table;
// adding a kind means adding a spec row and a constructor.
func New(kind Kind, gateway server.MetadataGateway, opts Options) (Reconciler, error) {
	construct, ok := constructors[kind]
	if !ok {
		return nil, faults.NewTypedError(faults.ValidationError, "unknown metadata type "+string(kind), nil)
	}
	if gateway == nil {
		return nil, faults.NewTypedError(faults.InternalError, "metadata gateway is required", nil)
	}
	if strings.TrimSpace(opts.EnvironmentName) == "" {
		return nil, faults.NewTypedError(faults.ConfigError, "environment name could not be determined", nil)
	}

	return construct(remote{gateway: gateway, spec: kindSpecs[kind]}, opts), nil
}
