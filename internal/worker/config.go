// Package worker provides background station refresh for meteoboard.
package worker

import (
	"time"
)

// RefreshConfig holds configuration for the station refresh job.
type RefreshConfig struct {
	// Interval between scheduled refresh runs.
	// Default: 15 minutes
	Interval time.Duration

	// RunOnStart triggers a refresh as soon as the loop starts.
	// Default: true
	RunOnStart bool

	// MaxFailureRatio is the share of failed stations above which a
	// Pub/Sub refresh job is reported as failed and redelivered.
	// Default: 0.5
	MaxFailureRatio float64
}

// DefaultRefreshConfig returns the default refresh configuration.
func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		Interval:        15 * time.Minute,
		RunOnStart:      true,
		MaxFailureRatio: 0.5,
	}
}

func (c RefreshConfig) withDefaults() RefreshConfig {
	def := DefaultRefreshConfig()
	if c.Interval <= 0 {
		c.Interval = def.Interval
	}
	if c.MaxFailureRatio <= 0 {
		c.MaxFailureRatio = def.MaxFailureRatio
	}
	return c
}
