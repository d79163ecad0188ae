package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RiskLevel represents the risk tier of a scanned URL.
// Levels are ordered so they can be compared and sorted.
type RiskLevel int

const (
	// RiskClean indicates that no detections were recorded for the URL.
	RiskClean RiskLevel = iota

	// RiskLow indicates a single minor detection.
	RiskLow

	// RiskMedium indicates a hidden iframe or two detections.
	RiskMedium

	// RiskHigh indicates a suspicious cookie or three or more detections.
	RiskHigh
)

// AllRiskLevels lists every risk tier from least to most severe.
var AllRiskLevels = []RiskLevel{RiskClean, RiskLow, RiskMedium, RiskHigh}

// String returns the wire representation of the risk level.
func (r RiskLevel) String() string {
	switch r {
	case RiskClean:
		return "clean"
	case RiskLow:
		return "low"
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	default:
		return "unknown"
	}
}

// ParseRiskLevel converts a wire value back into a RiskLevel.
func ParseRiskLevel(s string) (RiskLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "clean":
		return RiskClean, nil
	case "low":
		return RiskLow, nil
	case "medium":
		return RiskMedium, nil
	case "high":
		return RiskHigh, nil
	default:
		return RiskClean, fmt.Errorf("unknown risk level %q", s)
	}
}

// MarshalJSON encodes the risk level as its string form.
func (r RiskLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON decodes a risk level from its string form.
func (r *RiskLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRiskLevel(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
