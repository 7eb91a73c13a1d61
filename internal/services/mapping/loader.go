package mapping

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"MacroPulse/internal/domain/models"
)

// Document is the YAML form of a mapping rule set.
type Document struct {
	Version               string               `yaml:"version"`
	ImpactMultipliers     map[string]float64   `yaml:"impact_multipliers"`
	FrequencyHalfLifeDays map[string]float64   `yaml:"frequency_half_life_days"`
	Mappings              []models.MappingRule `yaml:"mappings"`
}

// LoadDocument reads and parses a mapping document from disk.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping file: %w", err)
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse mapping file: %w", err)
	}

	return &doc, nil
}
