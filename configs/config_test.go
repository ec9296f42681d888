package configs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mealplan-backend-go/internal/models"
)

func TestLoadPlanFileShipped(t *testing.T) {
	pf, err := LoadPlanFile("plans.yaml")
	require.NoError(t, err)
	require.Len(t, pf.Plans, 3)
	assert.Equal(t, models.IntervalWeek, pf.Plans[0].Interval)
	assert.True(t, pf.Plans[1].IsPopular)
	assert.Equal(t, 2399.99, pf.Plans[2].Amount)
}

func TestParsePlanFileRejectsBadEntries(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown interval", "plans:\n  - interval: day\n    name: Daily\n"},
		{"duplicate interval", "plans:\n  - interval: week\n    name: A\n  - interval: week\n    name: B\n"},
		{"missing name", "plans:\n  - interval: month\n"},
		{"not yaml", "plans: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePlanFile([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadPlanFileMissing(t *testing.T) {
	_, err := LoadPlanFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
