// Package manifest loads desired-state documents for one metadata kind.
// A document either nests the desired state under a "data" key alongside
// its target identity, or is a bare identifier -> attributes mapping.
package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/dataeng-tools/airmeta/faults"
)

// Manifest maps identifiers to their desired attribute bag. The value shape
// varies by kind: plain values for variables, nested objects for connections
// and pools, action lists for roles, pause flags for dags.
type Manifest map[string]any

// DefaultMetadataType is assumed when a document does not name its kind.
// DAG manifests predate the metadata_type field and never carry it.
const DefaultMetadataType = "dags"

type Document struct {
	ProjectID       string
	EnvironmentName string
	MetadataType    string
	Data            Manifest
}

// LoadDocument parses a manifest file. YAML is a superset of JSON, so both
// serializations are accepted.
func LoadDocument(path string) (*Document, error) {
	raw, err := loadMapping(path)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		ProjectID:       stringField(raw, "project_id"),
		EnvironmentName: stringField(raw, "environment_name"),
		MetadataType:    stringField(raw, "metadata_type"),
	}
	if doc.MetadataType == "" {
		doc.MetadataType = DefaultMetadataType
	}

	if nested, ok := raw["data"].(map[string]any); ok {
		doc.Data = Manifest(nested)
	} else {
		doc.Data = Manifest(raw)
	}
	return doc, nil
}

// Parse decodes a serialized identifier -> attributes mapping, e.g. the
// connections manifest fetched from the secret store.
func Parse(data []byte) (Manifest, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, validationError("manifest payload is not a mapping", err)
	}
	return Manifest(raw), nil
}

// Attributes returns the entry's attribute bag. Flat values (variables)
// yield ok=false.
func (m Manifest) Attributes(identifier string) (map[string]any, bool) {
	attrs, ok := m[identifier].(map[string]any)
	return attrs, ok
}

func loadMapping(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, configError(fmt.Sprintf("manifest file %s not found", path), err)
		}
		return nil, configError(fmt.Sprintf("manifest file %s could not be read", path), err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, validationError(fmt.Sprintf("manifest file %s is not a mapping document", path), err)
	}
	return raw, nil
}

func stringField(raw map[string]any, key string) string {
	value, _ := raw[key].(string)
	return strings.TrimSpace(value)
}

func configError(message string, cause error) error {
	return faults.NewTypedError(faults.ConfigError, message, cause)
}

func validationError(message string, cause error) error {
	return faults.NewTypedError(faults.ValidationError, message, cause)
}
