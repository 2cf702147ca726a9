package reconciler

import (
	"context"
	"fmt"

	"github.com/dataeng-tools/airmeta/faults"
	"github.com/dataeng-tools/airmeta/manifest"
)

// rolesReconciler updates access roles. Roles are managed elsewhere and
// must pre-exist: the manifest only overwrites their action lists, so there
// is no listing, no deletion, and no create fallback.
type rolesReconciler struct {
	remote
	opts Options
}

func newRolesReconciler(r remote, opts Options) Reconciler {
	return &rolesReconciler{remote: r, opts: opts}
}

func (r *rolesReconciler) Kind() Kind { return KindRoles }

func (r *rolesReconciler) Read(_ context.Context) (Listing, error) {
	return Listing{}, faults.NewTypedError(faults.UnsupportedError, "listing roles is not supported", nil)
}

func (r *rolesReconciler) PlanDeletions(_ context.Context, _ manifest.Manifest) ([]string, error) {
	return nil, nil
}

func (r *rolesReconciler) Apply(ctx context.Context, desired manifest.Manifest) (ApplyResult, error) {
	var result ApplyResult

	if err := requireManifest(KindRoles, desired); err != nil {
		return result, err
	}

	for _, identifier := range sortedIdentifiers(desired) {
		attrs, err := requireAttributes(KindRoles, desired, identifier)
		if err != nil {
			return result, err
		}
		actions, ok := attrs["actions"]
		if !ok {
			return result, faults.NewTypedError(
				faults.ValidationError,
				fmt.Sprintf("role %q manifest entry carries no actions list", identifier),
				nil,
			)
		}

		payload := map[string]any{
			"name":    identifier,
			"actions": actions,
		}
		if err := r.upsert(ctx, identifier, payload); err != nil {
			return result, err
		}
		result.Upserted = append(result.Upserted, identifier)
	}
	return result, nil
}
