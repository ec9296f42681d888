package configs

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"mealplan-backend-go/internal/models"
)

// PlanFile is the YAML document PLANS_FILE points at. It overrides the display metadata
// of the built-in plans; price identifiers always come from the environment.
type PlanFile struct {
	Plans []models.Plan `yaml:"plans"`
}

// LoadPlanFile reads and decodes a plan catalog file.
func LoadPlanFile(path string) (*PlanFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan file %s: %w", path, err)
	}
	return ParsePlanFile(data)
}

// ParsePlanFile decodes a plan catalog document and checks every entry names a known interval
// at most once.
func ParsePlanFile(data []byte) (*PlanFile, error) {
	var pf PlanFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("decoding plan file: %w", err)
	}
	seen := make(map[models.PlanInterval]bool, len(pf.Plans))
	for i, p := range pf.Plans {
		if !p.Interval.Valid() {
			return nil, fmt.Errorf("plan %d: unknown interval %q", i, p.Interval)
		}
		if seen[p.Interval] {
			return nil, fmt.Errorf("plan %d: interval %q listed twice", i, p.Interval)
		}
		if p.Name == "" {
			return nil, fmt.Errorf("plan %d: name is required", i)
		}
		seen[p.Interval] = true
	}
	return &pf, nil
}
