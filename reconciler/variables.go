package reconciler

import (
	"context"

	"github.com/dataeng-tools/airmeta/manifest"
)

// variablesReconciler manages environment variables. The manifest is
// additive: stale variables are never trimmed, and PATCH creates missing
// keys on its own, so neither the delete phase nor a POST fallback exists.
type variablesReconciler struct {
	remote
	opts Options
}

func newVariablesReconciler(r remote, opts Options) Reconciler {
	return &variablesReconciler{remote: r, opts: opts}
}

func (v *variablesReconciler) Kind() Kind { return KindVariables }

func (v *variablesReconciler) Read(ctx context.Context) (Listing, error) {
	identifiers, err := v.listIdentifiers(ctx)
	if err != nil {
		return Listing{}, err
	}
	return Listing{Identifiers: identifiers}, nil
}

func (v *variablesReconciler) PlanDeletions(_ context.Context, _ manifest.Manifest) ([]string, error) {
	return nil, nil
}

func (v *variablesReconciler) Apply(ctx context.Context, desired manifest.Manifest) (ApplyResult, error) {
	var result ApplyResult

	if err := requireManifest(KindVariables, desired); err != nil {
		return result, err
	}

	for _, identifier := range sortedIdentifiers(desired) {
		payload := map[string]any{
			"key":   identifier,
			"value": desired[identifier],
		}
		if err := v.upsert(ctx, identifier, payload); err != nil {
			return result, err
		}
		result.Upserted = append(result.Upserted, identifier)
	}
	return result, nil
}
