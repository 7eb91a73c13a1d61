package models

// IngestRequest is the HTTP payload for event ingestion.
type IngestRequest struct {
	Events []RawEvent `json:"events" validate:"required,min=1,max=1000,dive"`
	DryRun bool       `json:"dry_run" default:"false"`
}

// RecomputeRequest is the HTTP payload for a recompute trigger. An empty
// asset list means every asset known to the active mapping snapshot.
type RecomputeRequest struct {
	Assets []string `json:"assets" validate:"omitempty,max=100,dive,min=1,max=64"`
}

// HeatmapRequest selects a single asset's score detail.
type HeatmapRequest struct {
	Asset string `param:"asset" validate:"required,min=1,max=64"`
}
