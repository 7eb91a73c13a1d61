package models

// Impact is the qualitative weight class of an indicator.
type Impact string

// Impact levels.
const (
	ImpactLow    Impact = "low"
	ImpactMedium Impact = "medium"
	ImpactHigh   Impact = "high"
)

// Valid reports whether the impact level is known.
func (i Impact) Valid() bool {
	switch i {
	case ImpactLow, ImpactMedium, ImpactHigh:
		return true
	}
	return false
}

// Frequency is the release cadence of an indicator, which determines its
// decay half-life.
type Frequency string

// Release frequencies.
const (
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
)

// Valid reports whether the frequency is known.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly:
		return true
	}
	return false
}

// MappingRule binds one indicator key to an asset pillar with its
// scoring parameters.
type MappingRule struct {
	IndicatorKey string    `json:"indicator_key" yaml:"indicator_key"`
	Asset        string    `json:"asset" yaml:"asset"`
	Pillar       string    `json:"pillar" yaml:"pillar"`
	Weight       float64   `json:"weight" yaml:"weight"`
	Impact       Impact    `json:"impact" yaml:"impact"`
	Frequency    Frequency `json:"frequency" yaml:"frequency"`
	PillarWeight float64   `json:"pillar_weight" yaml:"pillar_weight"`
}
