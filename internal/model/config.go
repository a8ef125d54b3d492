package model

import (
	"slices"
	"time"
)

// PipelineConfig is a read-only snapshot of the settings a run works with.
type PipelineConfig struct {
	Width         int
	Height        int
	FPS           int
	Threshold     float64
	Mode          Mode
	TargetClasses []int
	CustomLabels  []string
	AutoRedact    bool
	PreviewRaw    bool
}

// DetectionMode returns the tagged mode variant for this snapshot.
func (c PipelineConfig) DetectionMode() DetectionMode {
	if c.Mode == OpenVocabulary {
		return OpenLabels{Labels: slices.Clone(c.CustomLabels)}
	}
	return NewFixedTargets(c.TargetClasses)
}

// FrameInterval is the time budget of one frame at the configured rate.
func (c PipelineConfig) FrameInterval() time.Duration {
	if c.FPS <= 0 {
		return 0
	}
	return time.Second / time.Duration(c.FPS)
}

// Clone returns a deep copy so callers can hand snapshots across goroutines.
func (c PipelineConfig) Clone() PipelineConfig {
	c.TargetClasses = slices.Clone(c.TargetClasses)
	c.CustomLabels = slices.Clone(c.CustomLabels)
	return c
}
