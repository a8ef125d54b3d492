package model

import "github.com/samber/lo"

// Mode selects which detection model variant is active.
type Mode int

const (
	// FixedVocabulary uses a model with a closed set of integer class ids.
	FixedVocabulary Mode = iota
	// OpenVocabulary uses a model prompted with free-text labels at runtime.
	OpenVocabulary
)

func (m Mode) String() string {
	switch m {
	case FixedVocabulary:
		return "fixed-vocabulary"
	case OpenVocabulary:
		return "open-vocabulary"
	default:
		return "unknown"
	}
}

// DetectionMode is the active mode together with the data that scopes it:
// either FixedTargets or OpenLabels.
type DetectionMode interface {
	Kind() Mode
	detectionMode()
}

// FixedTargets is the fixed-vocabulary variant; only listed class ids are redacted.
type FixedTargets struct {
	Classes map[int]struct{}
}

// NewFixedTargets builds the target set from a list of class ids.
func NewFixedTargets(ids []int) FixedTargets {
	return FixedTargets{Classes: lo.SliceToMap(ids, func(id int) (int, struct{}) {
		return id, struct{}{}
	})}
}

// Kind implements DetectionMode.
func (FixedTargets) Kind() Mode { return FixedVocabulary }

func (FixedTargets) detectionMode() {}

// Contains reports whether classID is a redaction target.
func (f FixedTargets) Contains(classID int) bool {
	_, ok := f.Classes[classID]
	return ok
}

// OpenLabels is the open-vocabulary variant; the model is prompted with Labels.
type OpenLabels struct {
	Labels []string
}

// Kind implements DetectionMode.
func (OpenLabels) Kind() Mode { return OpenVocabulary }

func (OpenLabels) detectionMode() {}
