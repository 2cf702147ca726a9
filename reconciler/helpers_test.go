package reconciler

import (
	"context"
	"fmt"
	"testing"

	"github.com/dataeng-tools/airmeta/faults"
	"github.com/dataeng-tools/airmeta/server"
)

// recordedCall captures one gateway invocation for assertions.
type recordedCall struct {
	method     string
	collection string
	identifier string
	query      map[string]string
	payload    map[string]any
}

// fakeGateway serves canned collections with real pagination semantics and
// records every mutating call.
type fakeGateway struct {
	items   map[string][]map[string]any
	total   map[string]int
	missing map[string]bool

	failPatch  map[string]error
	failDelete map[string]error

	calls     []recordedCall
	listCalls int
}

var _ server.MetadataGateway = (*fakeGateway)(nil)

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		items:      map[string][]map[string]any{},
		total:      map[string]int{},
		missing:    map[string]bool{},
		failPatch:  map[string]error{},
		failDelete: map[string]error{},
	}
}

func resourceKey(collection string, identifier string) string {
	return collection + "/" + identifier
}

func (f *fakeGateway) ListPage(_ context.Context, collection string, _ string, offset int) ([]map[string]any, error) {
	f.listCalls++
	all := f.items[collection]
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + 100
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (f *fakeGateway) TotalEntries(_ context.Context, collection string) (int, error) {
	return f.total[collection], nil
}

func (f *fakeGateway) Patch(_ context.Context, collection string, identifier string, query map[string]string, payload map[string]any) error {
	f.calls = append(f.calls, recordedCall{
		method:     "PATCH",
		collection: collection,
		identifier: identifier,
		query:      query,
		payload:    payload,
	})

	key := resourceKey(collection, identifier)
	if err, fail := f.failPatch[key]; fail {
		return err
	}
	if f.missing[key] {
		return faults.NewTypedError(faults.NotFoundError, fmt.Sprintf("%s not found", key), nil)
	}
	return nil
}

func (f *fakeGateway) Create(_ context.Context, collection string, payload map[string]any) error {
	f.calls = append(f.calls, recordedCall{
		method:     "POST",
		collection: collection,
		payload:    payload,
	})

	// Creation makes later PATCHes of the same resource succeed.
	for _, field := range []string{"connection_id", "name", "key"} {
		if identifier, ok := payload[field].(string); ok {
			delete(f.missing, resourceKey(collection, identifier))
			break
		}
	}
	return nil
}

func (f *fakeGateway) Delete(_ context.Context, collection string, identifier string) error {
	f.calls = append(f.calls, recordedCall{
		method:     "DELETE",
		collection: collection,
		identifier: identifier,
	})
	if err, fail := f.failDelete[resourceKey(collection, identifier)]; fail {
		return err
	}
	return nil
}

func (f *fakeGateway) callsOf(method string) []recordedCall {
	var filtered []recordedCall
	for _, call := range f.calls {
		if call.method == method {
			filtered = append(filtered, call)
		}
	}
	return filtered
}

func (f *fakeGateway) deletedIdentifiers() []string {
	var identifiers []string
	for _, call := range f.callsOf("DELETE") {
		identifiers = append(identifiers, call.identifier)
	}
	return identifiers
}

type fakeSecrets map[string]string

func (f fakeSecrets) GetSecret(_ context.Context, name string) (string, error) {
	value, ok := f[name]
	if !ok {
		return "", faults.NewTypedError(faults.NotFoundError, fmt.Sprintf("secret %q not found", name), nil)
	}
	return value, nil
}

func mustNew(t *testing.T, kind Kind, gateway server.MetadataGateway, opts Options) Reconciler {
	t.Helper()
	if opts.EnvironmentName == "" {
		opts.EnvironmentName = "staging"
	}
	recon, err := New(kind, gateway, opts)
	if err != nil {
		t.Fatalf("new %s reconciler: %v", kind, err)
	}
	return recon
}

func identifierItems(field string, identifiers ...string) []map[string]any {
	items := make([]map[string]any, 0, len(identifiers))
	for _, identifier := range identifiers {
		items = append(items, map[string]any{field: identifier})
	}
	return items
}

func assertSameStrings(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for idx := range want {
		if got[idx] != want[idx] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
