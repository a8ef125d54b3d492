package ai

import (
	"slices"
	"time"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"blurcam/internal/logger"
	"blurcam/internal/model"
)

const (
	// open-vocabulary models score prompts lower than closed-set models
	openVocabularyCeiling   = 0.3
	openVocabularyThreshold = 0.2
)

var (
	// ErrModelLoad is returned when model weights cannot be obtained or prepared.
	ErrModelLoad = errors.New("model load failed")
	// ErrInference is returned when a loaded model fails on a frame.
	ErrInference = errors.New("inference failed")
)

// Model is one loaded detection model variant.
type Model interface {
	Detect(frame gocv.Mat, threshold float32) ([]model.Detection, error)
	Close() error
}

// LabelSetter is implemented by models whose vocabulary can change without a reload.
type LabelSetter interface {
	SetLabels(labels []string) error
}

// Loader performs the blocking load of a model variant.
type Loader interface {
	Load(mode model.DetectionMode) (Model, error)
}

// Engine keeps at most one model loaded and swaps it when the mode changes.
// It is not safe for concurrent use; the pipeline worker owns it.
type Engine struct {
	loader Loader
	logger *logger.Logger

	current Model
	mode    model.Mode
	labels  []string
	loads   int
}

// NewEngine returns an Engine with nothing loaded.
func NewEngine(loader Loader, logger *logger.Logger) *Engine {
	return &Engine{loader: loader, logger: logger}
}

// EffectiveThreshold is the confidence cutoff passed to the model. Open-vocabulary
// thresholds above 0.3 are lowered to 0.2; everything else passes through.
func EffectiveThreshold(mode model.Mode, threshold float64) float64 {
	if mode == model.OpenVocabulary && threshold > openVocabularyCeiling {
		return openVocabularyThreshold
	}
	return threshold
}

// EnsureLoaded makes the model for mode ready. A different variant triggers a
// full load, announced through report before it starts. The same open-vocabulary
// variant with different labels only gets its labels updated.
func (e *Engine) EnsureLoaded(mode model.DetectionMode, report func(string)) error {
	if e.current != nil && e.mode == mode.Kind() {
		if open, ok := mode.(model.OpenLabels); ok && !slices.Equal(open.Labels, e.labels) {
			return e.SetLabels(open.Labels)
		}
		return nil
	}

	e.release()
	if report != nil {
		report(loadingStatus(mode.Kind()))
	}
	e.logger.Info("Loading %s model...", mode.Kind())

	start := time.Now()
	m, err := e.loader.Load(mode)
	if err != nil {
		e.logger.Error("Failed to load %s model: %v", mode.Kind(), err)
		return errors.Wrapf(ErrModelLoad, "%s: %v", mode.Kind(), err)
	}

	e.current = m
	e.mode = mode.Kind()
	e.labels = nil
	if open, ok := mode.(model.OpenLabels); ok {
		e.labels = slices.Clone(open.Labels)
	}
	e.loads++
	e.logger.Info("Loaded %s model in %s", e.mode, time.Since(start).Round(time.Millisecond))
	return nil
}

// SetLabels pushes a new open-vocabulary label list to the loaded model.
// It does nothing when no open-vocabulary model is loaded; the labels are
// applied by the next load instead.
func (e *Engine) SetLabels(labels []string) error {
	if e.current == nil || e.mode != model.OpenVocabulary || slices.Equal(labels, e.labels) {
		return nil
	}
	setter, ok := e.current.(LabelSetter)
	if !ok {
		return nil
	}

	e.logger.Info("Setting custom labels: %v", labels)
	if err := setter.SetLabels(labels); err != nil {
		return errors.Wrapf(ErrModelLoad, "set labels: %v", err)
	}
	e.labels = slices.Clone(labels)
	return nil
}

// Invalidate drops the loaded model so the next EnsureLoaded reloads it.
func (e *Engine) Invalidate() {
	e.release()
}

// Infer runs the loaded model on frame at the effective threshold for mode.
func (e *Engine) Infer(frame gocv.Mat, mode model.Mode, threshold float64) ([]model.Detection, error) {
	if e.current == nil {
		return nil, errors.Wrap(ErrInference, "no model loaded")
	}
	detections, err := e.current.Detect(frame, float32(EffectiveThreshold(mode, threshold)))
	if err != nil {
		return nil, errors.Wrapf(ErrInference, "%v", err)
	}
	return detections, nil
}

// Loaded reports the loaded variant, if any.
func (e *Engine) Loaded() (model.Mode, bool) {
	return e.mode, e.current != nil
}

// Loads counts full model loads since the engine was created.
func (e *Engine) Loads() int {
	return e.loads
}

// Close releases the loaded model.
func (e *Engine) Close() error {
	if e.current == nil {
		return nil
	}
	err := e.current.Close()
	e.current = nil
	e.labels = nil
	return err
}

func (e *Engine) release() {
	if err := e.Close(); err != nil {
		e.logger.Warning("Failed to release %s model: %v", e.mode, err)
	}
}

func loadingStatus(mode model.Mode) string {
	if mode == model.OpenVocabulary {
		return "Loading Open-Vocabulary Model (Security Mode)..."
	}
	return "Loading Standard AI Model..."
}
