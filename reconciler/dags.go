package reconciler

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/dataeng-tools/airmeta/debugctx"
	"github.com/dataeng-tools/airmeta/faults"
	"github.com/dataeng-tools/airmeta/manifest"
)

const (
	importErrorsCollection = "importErrors"

	// The scheduler stamps this owner on every dag; it carries no signal.
	sentinelOwner = "airflow"
	fallbackOwner = "data-infra"

	// Dags with no env_* tag are assumed to run everywhere.
	allEnvironmentsSentinel = "env_all"
)

var criticalPathTags = map[string]struct{}{
	"latest_pipeline:critical_path": {},
	"batch_pipeline:critical_path":  {},
}

var targetEnvironmentPattern = regexp.MustCompile(`env_.*`)

// dagsReconciler manages dag pause states. The read path refuses to report
// anything while the environment has import errors, then derives ownership,
// criticality, and environment targeting from tags, and overlays
// locally-declared duration limits. The apply path only ever touches
// is_paused; owners and tags belong to the dag definitions themselves.
type dagsReconciler struct {
	remote
	opts Options
}

func newDagsReconciler(r remote, opts Options) Reconciler {
	return &dagsReconciler{remote: r, opts: opts}
}

func (d *dagsReconciler) Kind() Kind { return KindDags }

func (d *dagsReconciler) Read(ctx context.Context) (Listing, error) {
	if d.opts.FailOnImportError {
		importErrors, err := d.gateway.TotalEntries(ctx, importErrorsCollection)
		if err != nil {
			return Listing{}, err
		}
		if importErrors != 0 {
			return Listing{}, faults.NewTypedError(
				faults.ValidationError,
				fmt.Sprintf("%d import errors detected on this environment, aborting", importErrors),
				nil,
			)
		}
	}

	if strings.TrimSpace(d.opts.DagManifestPath) == "" {
		return Listing{}, faults.NewTypedError(faults.ConfigError, "listing dags requires --dag-manifest", nil)
	}

	items, err := d.listItems(ctx)
	if err != nil {
		return Listing{}, err
	}

	listing := Listing{Details: make(map[string]map[string]any, len(items))}
	for _, item := range items {
		dagID, ok := item["dag_id"].(string)
		if !ok {
			continue
		}
		listing.Identifiers = append(listing.Identifiers, dagID)
		listing.Details[dagID] = map[string]any{
			"owners":              deriveOwners(item),
			"is_critical_path":    deriveCriticalPath(item),
			"is_paused":           item["is_paused"],
			"target_environments": deriveTargetEnvironments(item),
		}
	}

	custom, err := manifest.ExtractDagCustomFields(d.opts.DagManifestPath)
	if err != nil {
		return Listing{}, err
	}
	listing.Details = manifest.OverlayCustomFields(listing.Details, custom)

	return listing, nil
}

func (d *dagsReconciler) PlanDeletions(_ context.Context, _ manifest.Manifest) ([]string, error) {
	return nil, nil
}

func (d *dagsReconciler) Apply(ctx context.Context, desired manifest.Manifest) (ApplyResult, error) {
	var result ApplyResult

	targets, err := d.applyTargets(ctx, desired)
	if err != nil {
		return result, err
	}

	for _, dagID := range targets {
		paused, err := d.effectivePauseState(desired, dagID)
		if err != nil {
			return result, err
		}

		debugctx.Printf(ctx, debugctx.GroupReconcile, "setting %s paused: %t", dagID, paused)
		err = d.gateway.Patch(ctx, d.spec.collection, dagID,
			map[string]string{"update_mask": "is_paused"},
			map[string]any{"is_paused": paused})
		if err != nil {
			return result, err
		}
		result.Upserted = append(result.Upserted, dagID)
	}
	return result, nil
}

// applyTargets picks the dags to touch: the manifest's entries, or with
// pause-all and no manifest, everything the environment currently runs.
func (d *dagsReconciler) applyTargets(ctx context.Context, desired manifest.Manifest) ([]string, error) {
	if d.opts.PauseAll && len(desired) == 0 {
		polled, err := d.listIdentifiers(ctx)
		if err != nil {
			return nil, err
		}
		return polled, nil
	}

	if err := requireManifest(KindDags, desired); err != nil {
		return nil, err
	}
	return sortedIdentifiers(desired), nil
}

func (d *dagsReconciler) effectivePauseState(desired manifest.Manifest, dagID string) (bool, error) {
	if d.opts.PauseAll {
		return true, nil
	}

	attrs, err := requireAttributes(KindDags, desired, dagID)
	if err != nil {
		return false, err
	}
	paused, ok := attrs["is_paused"].(bool)
	if !ok {
		return false, faults.NewTypedError(
			faults.ValidationError,
			fmt.Sprintf("dag %q manifest entry carries no is_paused flag", dagID),
			nil,
		)
	}
	return paused, nil
}

func deriveOwners(item map[string]any) []string {
	raw, _ := item["owners"].([]any)
	owners := make([]string, 0, len(raw))
	for _, entry := range raw {
		owner, ok := entry.(string)
		if !ok {
			continue
		}
		owner = strings.TrimSpace(owner)
		if owner == "" || owner == sentinelOwner {
			continue
		}
		owners = append(owners, owner)
	}
	if len(owners) == 0 {
		return []string{fallbackOwner}
	}
	return owners
}

func tagNames(item map[string]any) []string {
	raw, _ := item["tags"].([]any)
	names := make([]string, 0, len(raw))
	for _, entry := range raw {
		tag, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		if name, ok := tag["name"].(string); ok {
			names = append(names, name)
		}
	}
	return names
}

func deriveCriticalPath(item map[string]any) bool {
	for _, name := range tagNames(item) {
		if _, critical := criticalPathTags[name]; critical {
			return true
		}
	}
	return false
}

func deriveTargetEnvironments(item map[string]any) string {
	var targets []string
	for _, name := range tagNames(item) {
		if targetEnvironmentPattern.MatchString(name) {
			targets = append(targets, name)
		}
	}
	if len(targets) == 0 {
		return allEnvironmentsSentinel
	}
	return strings.Join(targets, ",")
}
