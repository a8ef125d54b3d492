package ai

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"blurcam/internal/config"
	"blurcam/internal/logger"
	"blurcam/internal/model"
	"blurcam/internal/repository"
)

// DNNLoader loads the ONNX model files named in the process configuration.
type DNNLoader struct {
	config *config.Config
	cache  repository.EmbeddingRepository
	logger *logger.Logger
}

// NewDNNLoader returns a Loader backed by OpenCV DNN. cache may be nil.
func NewDNNLoader(config *config.Config, cache repository.EmbeddingRepository, logger *logger.Logger) *DNNLoader {
	return &DNNLoader{config: config, cache: cache, logger: logger}
}

// Load implements Loader.
func (l *DNNLoader) Load(mode model.DetectionMode) (Model, error) {
	switch m := mode.(type) {
	case model.FixedTargets:
		fixed, err := NewFixedModel(l.config.FixedModel)
		if err != nil {
			return nil, err
		}
		return fixed, nil
	case model.OpenLabels:
		encoder, err := l.TextEncoder()
		if err != nil {
			return nil, err
		}
		open, err := NewOpenModel(l.config.OpenModel, encoder, m.Labels)
		if err != nil {
			return nil, multierr.Append(err, encoder.Close())
		}
		return &promptedModel{OpenModel: open, encoder: encoder}, nil
	default:
		return nil, errors.Errorf("unsupported detection mode %T", mode)
	}
}

// TextEncoder loads the text encoder on its own, for warming the embedding cache.
func (l *DNNLoader) TextEncoder() (*TextEncoder, error) {
	return NewTextEncoder(l.config.TextEncoder, l.config.TextVocab, l.cache, l.logger)
}

// promptedModel owns the text encoder feeding its open-vocabulary model.
type promptedModel struct {
	*OpenModel
	encoder *TextEncoder
}

func (p *promptedModel) Close() error {
	return multierr.Append(p.OpenModel.Close(), p.encoder.Close())
}
