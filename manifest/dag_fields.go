package manifest

// Duration limits are declared locally per DAG and have no remote
// counterpart; the read path overlays them onto the polled listing.
var dagCustomFields = []string{
	"max_task_duration_minutes",
	"max_dag_duration_minutes",
}

// ExtractDagCustomFields pulls the locally-managed numeric fields out of a
// DAG manifest, keyed by DAG id. Entries without any custom field are
// dropped.
func ExtractDagCustomFields(path string) (map[string]map[string]any, error) {
	raw, err := loadMapping(path)
	if err != nil {
		return nil, err
	}
	if nested, ok := raw["data"].(map[string]any); ok {
		raw = nested
	}

	extracted := make(map[string]map[string]any)
	for dagID, entry := range raw {
		attrs, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		fields := make(map[string]any)
		for _, field := range dagCustomFields {
			if value, present := attrs[field]; present {
				fields[field] = value
			}
		}
		if len(fields) > 0 {
			extracted[dagID] = fields
		}
	}
	return extracted, nil
}

// OverlayCustomFields merges locally-sourced fields into remote-derived DAG
// metadata, keyed by DAG id. DAGs unknown to the remote listing are ignored.
func OverlayCustomFields(remote map[string]map[string]any, custom map[string]map[string]any) map[string]map[string]any {
	for dagID, fields := range custom {
		entry, ok := remote[dagID]
		if !ok {
			continue
		}
		for field, value := range fields {
			entry[field] = value
		}
	}
	return remote
}
