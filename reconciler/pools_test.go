package reconciler

import (
	"context"
	"testing"

	"github.com/dataeng-tools/airmeta/faults"
	"github.com/dataeng-tools/airmeta/manifest"
)

func TestPoolsApplyReconciles(t *testing.T) {
	t.Parallel()

	gateway := newFakeGateway()
	gateway.items["pools"] = []map[string]any{
		{"name": "default_pool", "slots": 128},
		{"name": "stale_pool", "slots": 4},
	}
	gateway.missing[resourceKey("pools", "etl_pool")] = true

	desired := manifest.Manifest{
		"default_pool": map[string]any{"slots": 128},
		"etl_pool":     map[string]any{"slots": 32, "description": "batch jobs"},
	}

	recon := mustNew(t, KindPools, gateway, Options{})
	result, err := recon.Apply(context.Background(), desired)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	assertSameStrings(t, result.Deleted, "stale_pool")
	assertSameStrings(t, result.Upserted, "default_pool", "etl_pool")

	posts := gateway.callsOf("POST")
	if len(posts) != 1 || posts[0].payload["name"] != "etl_pool" {
		t.Fatalf("expected etl_pool create fallback, got %v", posts)
	}
	if posts[0].payload["slots"] != 32 {
		t.Fatalf("create payload must carry manifest attributes: %v", posts[0].payload)
	}
}

func TestPoolsApplyConvergesToManifestUnionProtected(t *testing.T) {
	t.Parallel()

	// After apply, remote identifiers must equal manifest keys exactly
	// (pools have no protected set).
	gateway := newFakeGateway()
	gateway.items["pools"] = []map[string]any{
		{"name": "a", "slots": 1},
		{"name": "b", "slots": 1},
		{"name": "c", "slots": 1},
	}

	desired := manifest.Manifest{
		"b": map[string]any{"slots": 2},
		"d": map[string]any{"slots": 2},
	}

	result, err := mustNew(t, KindPools, gateway, Options{}).Apply(context.Background(), desired)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	assertSameStrings(t, result.Deleted, "a", "c")
	assertSameStrings(t, result.Upserted, "b", "d")
}

func TestPoolsApplyRequiresManifest(t *testing.T) {
	t.Parallel()

	_, err := mustNew(t, KindPools, newFakeGateway(), Options{}).Apply(context.Background(), nil)
	if !faults.IsCategory(err, faults.ConfigError) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestPoolsReadReportsSlots(t *testing.T) {
	t.Parallel()

	gateway := newFakeGateway()
	gateway.items["pools"] = []map[string]any{
		{"name": "default_pool", "slots": 128},
	}

	listing, err := mustNew(t, KindPools, gateway, Options{}).Read(context.Background())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	assertSameStrings(t, listing.Identifiers, "default_pool")
	if listing.Details["default_pool"]["slots"] != 128 {
		t.Fatalf("expected slots detail, got %v", listing.Details)
	}
}

func TestPoolsDeleteToleratesAlreadyGone(t *testing.T) {
	t.Parallel()

	gateway := newFakeGateway()
	gateway.items["pools"] = []map[string]any{{"name": "ghost", "slots": 1}}
	gateway.failDelete[resourceKey("pools", "ghost")] = faults.NewTypedError(faults.NotFoundError, "already gone", nil)

	result, err := mustNew(t, KindPools, gateway, Options{}).Apply(context.Background(), manifest.Manifest{})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(result.Deleted) != 0 {
		t.Fatalf("already-gone resources are not reported as deleted: %v", result.Deleted)
	}
}
