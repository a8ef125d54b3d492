package settings

import (
	"slices"
	"strings"

	"github.com/samber/lo"

	"blurcam/internal/model"
)

// FallbackLabel replaces an empty custom label list.
const FallbackLabel = "credit card"

// Settings is the persisted user configuration.
type Settings struct {
	Width               int      `json:"width" mapstructure:"width"`
	Height              int      `json:"height" mapstructure:"height"`
	FPS                 int      `json:"fps" mapstructure:"fps"`
	ConfidenceThreshold float64  `json:"confidence_threshold" mapstructure:"confidence_threshold"`
	TargetClasses       []int    `json:"target_classes" mapstructure:"target_classes"`
	AutoRedact          bool     `json:"auto_redact" mapstructure:"auto_redact"`
	PreviewRaw          bool     `json:"preview_raw" mapstructure:"preview_raw"`
	OpenVocabulary      bool     `json:"open_vocabulary" mapstructure:"open_vocabulary"`
	CustomLabels        []string `json:"custom_labels" mapstructure:"custom_labels"`
}

// Defaults returns the settings used when nothing is stored.
func Defaults() Settings {
	return Settings{
		Width:               1280,
		Height:              720,
		FPS:                 30,
		ConfidenceThreshold: 0.25,
		TargetClasses:       []int{67},
		AutoRedact:          true,
		PreviewRaw:          false,
		OpenVocabulary:      false,
		CustomLabels: []string{
			"credit card", "debit card", "id card", "passport", "driver license", "holding a credit card",
		},
	}
}

// ParseLabels splits comma-separated text into trimmed, non-empty labels.
// An empty result becomes the single fallback label.
func ParseLabels(raw string) []string {
	return normalizeLabels(strings.Split(raw, ","))
}

func normalizeLabels(labels []string) []string {
	out := lo.Compact(lo.Map(labels, func(l string, _ int) string {
		return strings.TrimSpace(l)
	}))
	if len(out) == 0 {
		return []string{FallbackLabel}
	}
	return out
}

// normalize replaces out-of-range values with defaults.
func (s Settings) normalize() Settings {
	d := Defaults()
	if s.Width <= 0 {
		s.Width = d.Width
	}
	if s.Height <= 0 {
		s.Height = d.Height
	}
	if s.FPS <= 0 {
		s.FPS = d.FPS
	}
	if s.ConfidenceThreshold < 0 || s.ConfidenceThreshold > 1 {
		s.ConfidenceThreshold = d.ConfidenceThreshold
	}
	if s.TargetClasses == nil {
		s.TargetClasses = []int{}
	}
	s.CustomLabels = normalizeLabels(s.CustomLabels)
	return s
}

// Clone returns a deep copy.
func (s Settings) Clone() Settings {
	s.TargetClasses = slices.Clone(s.TargetClasses)
	s.CustomLabels = slices.Clone(s.CustomLabels)
	return s
}

// Equal reports whether two settings values are identical.
func (s Settings) Equal(o Settings) bool {
	return s.Width == o.Width && s.Height == o.Height && s.FPS == o.FPS &&
		s.ConfidenceThreshold == o.ConfidenceThreshold &&
		s.AutoRedact == o.AutoRedact && s.PreviewRaw == o.PreviewRaw &&
		s.OpenVocabulary == o.OpenVocabulary &&
		slices.Equal(s.TargetClasses, o.TargetClasses) &&
		slices.Equal(s.CustomLabels, o.CustomLabels)
}

// PipelineConfig converts the settings into a pipeline snapshot.
func (s Settings) PipelineConfig() model.PipelineConfig {
	mode := model.FixedVocabulary
	if s.OpenVocabulary {
		mode = model.OpenVocabulary
	}
	return model.PipelineConfig{
		Width:         s.Width,
		Height:        s.Height,
		FPS:           s.FPS,
		Threshold:     s.ConfidenceThreshold,
		Mode:          mode,
		TargetClasses: slices.Clone(s.TargetClasses),
		CustomLabels:  slices.Clone(s.CustomLabels),
		AutoRedact:    s.AutoRedact,
		PreviewRaw:    s.PreviewRaw,
	}
}
