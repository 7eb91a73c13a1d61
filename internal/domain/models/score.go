package models

import "time"

// Component is one indicator's contribution to a pillar score.
type Component struct {
	IndicatorKey string  `json:"indicator_key"`
	Contribution float64 `json:"contribution"`
}

// PillarScore is a clamped per-pillar aggregate for one asset.
type PillarScore struct {
	Pillar     string      `json:"pillar"`
	Value      float64     `json:"value"`
	Components []Component `json:"components,omitempty"`
}

// AssetScore is a versioned score snapshot for one asset. The engine
// produces Composite on the internal scale; the coordinator rescales it
// to the external scale before publishing. Pillar values stay on the
// pillar-bounded internal scale for explainability.
type AssetScore struct {
	Asset           string        `json:"asset"`
	Composite       float64       `json:"composite"`
	Scale           [2]float64    `json:"scale"`
	Pillars         []PillarScore `json:"pillars"`
	SampleCount     int           `json:"sample_count"`
	AsOf            time.Time     `json:"as_of"`
	Version         uint64        `json:"version"`
	RegistryVersion string        `json:"registry_version"`
	ComputedAt      time.Time     `json:"computed_at"`
}
