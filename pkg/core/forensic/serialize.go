package forensic

import (
	"encoding/json"
	"fmt"
)

// ToMap converts the assessment into plain maps, slices, strings, numbers and bools,
// keyed by the JSON field names. Floats survive the conversion exactly.
func (a *Assessment) ToMap() (map[string]any, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode assessment: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode assessment map: %w", err)
	}
	return out, nil
}

// FromMap rebuilds an assessment from the form produced by ToMap.
// Unknown severities, categories or risk levels are rejected.
func FromMap(m map[string]any) (*Assessment, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode assessment map: %w", err)
	}
	var a Assessment
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode assessment: %w", err)
	}
	return &a, nil
}
