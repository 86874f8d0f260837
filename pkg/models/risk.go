package models

import (
	"encoding/json"
	"fmt"
)

// RiskLevel is the four-tier scale shared by the M-Score interpretation and the overall assessment.
type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskModerate
	RiskHigh
	RiskVeryHigh
)

// AllRiskLevels lists every tier from lowest to highest.
var AllRiskLevels = []RiskLevel{RiskLow, RiskModerate, RiskHigh, RiskVeryHigh}

var riskLevelNames = map[RiskLevel]string{
	RiskLow:      "LOW",
	RiskModerate: "MODERATE",
	RiskHigh:     "HIGH",
	RiskVeryHigh: "VERY HIGH",
}

func (l RiskLevel) String() string {
	if s, ok := riskLevelNames[l]; ok {
		return s
	}
	return fmt.Sprintf("RiskLevel(%d)", int(l))
}

// ParseRiskLevel maps a display name back to its tier.
func ParseRiskLevel(s string) (RiskLevel, error) {
	for l, name := range riskLevelNames {
		if name == s {
			return l, nil
		}
	}
	return RiskLow, fmt.Errorf("unknown risk level %q", s)
}

func (l RiskLevel) MarshalJSON() ([]byte, error) {
	s, ok := riskLevelNames[l]
	if !ok {
		return nil, fmt.Errorf("invalid risk level %d", int(l))
	}
	return json.Marshal(s)
}

func (l *RiskLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRiskLevel(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// AtLeast reports whether l is the same tier as other or higher.
func (l RiskLevel) AtLeast(other RiskLevel) bool {
	return l >= other
}
