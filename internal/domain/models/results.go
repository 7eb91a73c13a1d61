package models

import "time"

// RejectedEvent pairs a rejected input with the reason it was refused.
type RejectedEvent struct {
	Input  RawEvent `json:"input"`
	Reason string   `json:"reason"`
}

// IngestResult is the structured per-item outcome of one ingestion batch.
// A batch never fails as a whole; each item lands in exactly one bucket.
type IngestResult struct {
	Accepted   []IndicatorEvent `json:"accepted"`
	Duplicates []RawEvent       `json:"duplicates"`
	Rejected   []RejectedEvent  `json:"rejected"`
}

// AssetOutcome is the per-asset result of a recompute pass.
type AssetOutcome struct {
	Asset   string `json:"asset"`
	Version uint64 `json:"version,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RecomputeSummary reports one recompute pass across assets. All assets
// in the pass share the same cutoff.
type RecomputeSummary struct {
	Cutoff   time.Time      `json:"cutoff"`
	Outcomes []AssetOutcome `json:"outcomes"`
}

// StalenessStatus classifies how fresh an asset's published score is.
type StalenessStatus string

// Staleness levels.
const (
	StalenessOK       StalenessStatus = "ok"
	StalenessWarning  StalenessStatus = "warning"
	StalenessCritical StalenessStatus = "critical"
	StalenessNone     StalenessStatus = "none"
)

// AssetStaleness reports score freshness for one asset.
type AssetStaleness struct {
	Asset    string          `json:"asset"`
	AsOf     time.Time       `json:"as_of,omitempty"`
	Age      time.Duration   `json:"age_seconds,omitempty"`
	Expected time.Duration   `json:"expected_seconds"`
	Status   StalenessStatus `json:"status"`
}
