package reconciler

import (
	"context"

	"github.com/dataeng-tools/airmeta/faults"
	"github.com/dataeng-tools/airmeta/manifest"
	"github.com/dataeng-tools/airmeta/secrets"
)

// connectionsReconciler manages connection metadata. Connections carry
// credentials, so the manifest is never read from disk: it lives in the
// secret store, namespaced by environment name. The reserved airflow_db
// connection is protected from deletion.
type connectionsReconciler struct {
	remote
	opts Options
}

func newConnectionsReconciler(r remote, opts Options) Reconciler {
	return &connectionsReconciler{remote: r, opts: opts}
}

func (c *connectionsReconciler) Kind() Kind { return KindConnections }

func (c *connectionsReconciler) Read(ctx context.Context) (Listing, error) {
	identifiers, err := c.listIdentifiers(ctx)
	if err != nil {
		return Listing{}, err
	}
	return Listing{Identifiers: identifiers}, nil
}

// resolveManifest ignores any locally supplied data and fetches the
// environment's connections manifest from the secret store.
func (c *connectionsReconciler) resolveManifest(ctx context.Context) (manifest.Manifest, error) {
	if c.opts.Secrets == nil {
		return nil, faults.NewTypedError(faults.ConfigError, "applying connections requires a configured secret store", nil)
	}

	raw, err := c.opts.Secrets.GetSecret(ctx, secrets.ConnectionsSecretName(c.opts.EnvironmentName))
	if err != nil {
		return nil, err
	}
	return manifest.Parse([]byte(raw))
}

func (c *connectionsReconciler) PlanDeletions(ctx context.Context, _ manifest.Manifest) ([]string, error) {
	desired, err := c.resolveManifest(ctx)
	if err != nil {
		return nil, err
	}
	polled, err := c.listIdentifiers(ctx)
	if err != nil {
		return nil, err
	}
	return c.deleteSet(polled, desired), nil
}

func (c *connectionsReconciler) Apply(ctx context.Context, _ manifest.Manifest) (ApplyResult, error) {
	var result ApplyResult

	desired, err := c.resolveManifest(ctx)
	if err != nil {
		return result, err
	}

	polled, err := c.listIdentifiers(ctx)
	if err != nil {
		return result, err
	}

	result.Deleted, err = c.deleteExtras(ctx, c.deleteSet(polled, desired))
	if err != nil {
		return result, err
	}

	for _, identifier := range sortedIdentifiers(desired) {
		attrs, err := requireAttributes(KindConnections, desired, identifier)
		if err != nil {
			return result, err
		}

		// The manifest block omits the connection id, and the API rejects
		// null-valued fields outright.
		payload := stripNullValues(attrs)
		payload["connection_id"] = identifier

		if err := c.upsert(ctx, identifier, payload); err != nil {
			return result, err
		}
		result.Upserted = append(result.Upserted, identifier)
	}
	return result, nil
}

func stripNullValues(attrs map[string]any) map[string]any {
	cleaned := make(map[string]any, len(attrs))
	for key, value := range attrs {
		if value == nil {
			continue
		}
		cleaned[key] = value
	}
	return cleaned
}
