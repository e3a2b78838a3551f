package models_test

import (
	"testing"

	"github.com/eventra-io/accredo/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestClassifySLA(t *testing.T) {
	duration := 60
	step := &models.Step{
		ID:                 "review",
		SLADurationMinutes: &duration,
		SLAWarningMinutes:  15,
	}

	tests := []struct {
		name     string
		elapsed  float64
		expected models.SLAZone
	}{
		{"well within", 30, models.SLAWithin},
		{"at warning boundary", 45, models.SLAWithin},
		{"just inside warning", 45.5, models.SLAWarning},
		{"warning zone", 50, models.SLAWarning},
		{"at deadline", 60, models.SLAWarning},
		{"past deadline", 60.5, models.SLABreached},
		{"far past deadline", 180, models.SLABreached},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, models.ClassifySLA(step, tt.elapsed))
		})
	}
}

func TestClassifySLA_NoSLAAlwaysWithin(t *testing.T) {
	assert.Equal(t, models.SLAWithin, models.ClassifySLA(&models.Step{ID: "open-ended"}, 10000))
	assert.Equal(t, models.SLAWithin, models.ClassifySLA(nil, 10000))
}
