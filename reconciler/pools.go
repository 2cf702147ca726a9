package reconciler

import (
	"context"

	"github.com/dataeng-tools/airmeta/manifest"
)

// poolsReconciler manages scheduling pools. Pools not declared in the
// manifest are removed; every declared pool is PATCHed, with POST fallback
// when it does not exist yet.
type poolsReconciler struct {
	remote
	opts Options
}

func newPoolsReconciler(r remote, opts Options) Reconciler {
	return &poolsReconciler{remote: r, opts: opts}
}

func (p *poolsReconciler) Kind() Kind { return KindPools }

func (p *poolsReconciler) Read(ctx context.Context) (Listing, error) {
	items, err := p.listItems(ctx)
	if err != nil {
		return Listing{}, err
	}

	listing := Listing{Details: make(map[string]map[string]any, len(items))}
	for _, item := range items {
		name, ok := item["name"].(string)
		if !ok {
			continue
		}
		listing.Identifiers = append(listing.Identifiers, name)
		listing.Details[name] = map[string]any{"slots": item["slots"]}
	}
	return listing, nil
}

func (p *poolsReconciler) PlanDeletions(ctx context.Context, desired manifest.Manifest) ([]string, error) {
	if err := requireManifest(KindPools, desired); err != nil {
		return nil, err
	}
	polled, err := p.listIdentifiers(ctx)
	if err != nil {
		return nil, err
	}
	return p.deleteSet(polled, desired), nil
}

func (p *poolsReconciler) Apply(ctx context.Context, desired manifest.Manifest) (ApplyResult, error) {
	var result ApplyResult

	if err := requireManifest(KindPools, desired); err != nil {
		return result, err
	}

	polled, err := p.listIdentifiers(ctx)
	if err != nil {
		return result, err
	}

	result.Deleted, err = p.deleteExtras(ctx, p.deleteSet(polled, desired))
	if err != nil {
		return result, err
	}

	for _, identifier := range sortedIdentifiers(desired) {
		attrs, err := requireAttributes(KindPools, desired, identifier)
		if err != nil {
			return result, err
		}

		payload := make(map[string]any, len(attrs)+1)
		for key, value := range attrs {
			payload[key] = value
		}
		payload["name"] = identifier

		if err := p.upsert(ctx, identifier, payload); err != nil {
			return result, err
		}
		result.Upserted = append(result.Upserted, identifier)
	}
	return result, nil
}
