package reconciler

import (
	"context"
	"fmt"
	"sort"

	"github.com/dataeng-tools/airmeta/debugctx"
	"github.com/dataeng-tools/airmeta/faults"
	"github.com/dataeng-tools/airmeta/manifest"
	"github.com/dataeng-tools/airmeta/server"
)

// pageSize is the fixed pagination window; the lister advances the offset
// by this amount until the API returns an empty page.
const pageSize = 100

// remote bundles the gateway with one kind's policy record. All network
// access of the reconcilers flows through it.
type remote struct {
	gateway server.MetadataGateway
	spec    kindSpec
}

// listItems drains pagination and returns every item object of the
// collection, in API order.
func (r remote) listItems(ctx context.Context) ([]map[string]any, error) {
	var items []map[string]any
	for offset := 0; ; offset += pageSize {
		page, err := r.gateway.ListPage(ctx, r.spec.collection, r.spec.itemsExpr, offset)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		items = append(items, page...)
	}
	return items, nil
}

func (r remote) listIdentifiers(ctx context.Context) ([]string, error) {
	items, err := r.listItems(ctx)
	if err != nil {
		return nil, err
	}

	identifiers := make([]string, 0, len(items))
	for _, item := range items {
		identifier, ok := item[r.spec.identifierField].(string)
		if !ok {
			return nil, faults.NewTypedError(
				faults.RemoteError,
				fmt.Sprintf("%s entry carries no %s field", r.spec.collection, r.spec.identifierField),
				nil,
			)
		}
		identifiers = append(identifiers, identifier)
	}
	return identifiers, nil
}

// deleteSet computes polled minus manifest minus protected, sorted for
// deterministic delete order. Additive-only kinds get nothing back.
func (r remote) deleteSet(polled []string, desired manifest.Manifest) []string {
	if !r.spec.deletesExtras {
		return nil
	}
	var extras []string
	for _, identifier := range polled {
		if _, declared := desired[identifier]; declared {
			continue
		}
		if _, shielded := r.spec.protected[identifier]; shielded {
			continue
		}
		extras = append(extras, identifier)
	}
	sort.Strings(extras)
	return extras
}

// deleteExtras removes the given identifiers one by one. A 404 means the
// resource is already gone and is not an error; anything else non-2xx is
// fatal. Returns the identifiers actually deleted before any failure.
func (r remote) deleteExtras(ctx context.Context, extras []string) ([]string, error) {
	deleted := make([]string, 0, len(extras))
	for _, identifier := range extras {
		debugctx.Printf(ctx, debugctx.GroupReconcile, "deleting %s from %s", identifier, r.spec.collection)
		if err := r.gateway.Delete(ctx, r.spec.collection, identifier); err != nil {
			if faults.IsCategory(err, faults.NotFoundError) {
				continue
			}
			return deleted, err
		}
		deleted = append(deleted, identifier)
	}
	return deleted, nil
}

// upsert applies the kind's update-or-create strategy: PATCH the resource,
// and when the kind supports creation, POST the same payload on 404.
func (r remote) upsert(ctx context.Context, identifier string, payload map[string]any) error {
	debugctx.Printf(ctx, debugctx.GroupReconcile, "updating %s in %s", identifier, r.spec.collection)
	err := r.gateway.Patch(ctx, r.spec.collection, identifier, nil, payload)
	if err == nil {
		return nil
	}
	if !r.spec.createFallback || !faults.IsCategory(err, faults.NotFoundError) {
		return err
	}

	debugctx.Printf(ctx, debugctx.GroupReconcile, "creating %s in %s", identifier, r.spec.collection)
	return r.gateway.Create(ctx, r.spec.collection, payload)
}

// sortedIdentifiers fixes the upsert loop order; manifests are unordered
// mappings.
func sortedIdentifiers(desired manifest.Manifest) []string {
	identifiers := make([]string, 0, len(desired))
	for identifier := range desired {
		identifiers = append(identifiers, identifier)
	}
	sort.Strings(identifiers)
	return identifiers
}

func requireAttributes(kind Kind, desired manifest.Manifest, identifier string) (map[string]any, error) {
	attrs, ok := desired.Attributes(identifier)
	if !ok {
		return nil, faults.NewTypedError(
			faults.ValidationError,
			fmt.Sprintf("%s manifest entry %q must be an attribute mapping", kind, identifier),
			nil,
		)
	}
	return attrs, nil
}

func requireManifest(kind Kind, desired manifest.Manifest) error {
	if desired == nil {
		return faults.NewTypedError(
			faults.ConfigError,
			fmt.Sprintf("applying %s requires manifest data (supply --path)", kind),
			nil,
		)
	}
	return nil
}
