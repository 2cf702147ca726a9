package reconciler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dataeng-tools/airmeta/faults"
)

// Kind names one of the five managed metadata types. The set is closed:
// each kind carries fixed API paths, identifier fields, and reconciliation
// policy.
type Kind string

const (
	KindPools       Kind = "pools"
	KindConnections Kind = "connections"
	KindVariables   Kind = "variables"
	KindRoles       Kind = "roles"
	KindDags        Kind = "dags"
)

// kindSpec is the per-kind policy record backing the dispatch table.
type kindSpec struct {
	collection      string
	itemsExpr       string
	identifierField string

	// deletesExtras enables the delete phase: remote identifiers absent
	// from the manifest (and not protected) are removed. Kinds without it
	// are additive-only.
	deletesExtras bool
	protected     map[string]struct{}

	// createFallback enables POST-on-404 during upsert. Variables never
	// need it (PATCH creates), roles must pre-exist.
	createFallback bool
}

var kindSpecs = map[Kind]kindSpec{
	KindPools: {
		collection:      "pools",
		itemsExpr:       ".pools",
		identifierField: "name",
		deletesExtras:   true,
		createFallback:  true,
	},
	KindConnections: {
		collection:      "connections",
		itemsExpr:       ".connections",
		identifierField: "connection_id",
		deletesExtras:   true,
		protected:       map[string]struct{}{"airflow_db": {}},
		createFallback:  true,
	},
	KindVariables: {
		collection:      "variables",
		itemsExpr:       ".variables",
		identifierField: "key",
	},
	KindRoles: {
		collection:      "roles",
		itemsExpr:       ".roles",
		identifierField: "name",
	},
	KindDags: {
		collection:      "dags",
		itemsExpr:       ".dags",
		identifierField: "dag_id",
	},
}

func ParseKind(raw string) (Kind, error) {
	kind := Kind(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := kindSpecs[kind]; !ok {
		return "", faults.NewTypedError(
			faults.ValidationError,
			fmt.Sprintf("unknown metadata type %q (expected one of %s)", raw, strings.Join(KindNames(), ", ")),
			nil,
		)
	}
	return kind, nil
}

func KindNames() []string {
	names := make([]string, 0, len(kindSpecs))
	for kind := range kindSpecs {
		names = append(names, string(kind))
	}
	sort.Strings(names)
	return names
}
