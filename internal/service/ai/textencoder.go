package ai

import (
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"blurcam/internal/logger"
	"blurcam/internal/model"
	"blurcam/internal/repository"
)

// TextEncoder turns labels into unit-length text feature vectors for the
// open-vocabulary detector. Vectors are cached per encoder file so a label is
// only encoded once across runs.
type TextEncoder struct {
	net       gocv.Net
	tokenizer *Tokenizer
	cache     repository.EmbeddingRepository
	name      string
	logger    *logger.Logger
}

// NewTextEncoder loads the encoder network and its vocabulary. cache may be nil.
func NewTextEncoder(modelPath, vocabPath string, cache repository.EmbeddingRepository, logger *logger.Logger) (*TextEncoder, error) {
	tokenizer, err := LoadTokenizer(vocabPath)
	if err != nil {
		return nil, err
	}
	net, err := readNet(modelPath)
	if err != nil {
		return nil, err
	}
	return &TextEncoder{
		net:       net,
		tokenizer: tokenizer,
		cache:     cache,
		name:      strings.TrimSuffix(filepath.Base(modelPath), filepath.Ext(modelPath)),
		logger:    logger,
	}, nil
}

// Name identifies the encoder in the embedding cache.
func (e *TextEncoder) Name() string {
	return e.name
}

// Embed returns one vector per label, in order.
func (e *TextEncoder) Embed(labels []string) ([][]float32, error) {
	vectors := make([][]float32, len(labels))
	for i, label := range labels {
		vec, err := e.embedOne(label)
		if err != nil {
			return nil, errors.Wrapf(err, "label %q", label)
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func (e *TextEncoder) embedOne(label string) ([]float32, error) {
	if e.cache != nil {
		cached, err := e.cache.Get(e.name, label)
		if err != nil {
			e.logger.Warning("Embedding cache lookup failed for %q: %v", label, err)
		} else if cached != nil {
			return cached.Vector, nil
		}
	}

	vec, err := e.encode(label)
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		emb := &model.LabelEmbedding{Encoder: e.name, Label: label, Vector: vec, CreatedAt: time.Now()}
		if err := e.cache.Put(emb); err != nil {
			e.logger.Warning("Failed to cache embedding for %q: %v", label, err)
		}
	}
	return vec, nil
}

func (e *TextEncoder) encode(label string) ([]float32, error) {
	ids := e.tokenizer.Encode(label)
	input := gocv.NewMatWithSize(1, ContextLength, gocv.MatTypeCV32S)
	defer input.Close()
	for i, id := range ids {
		input.SetIntAt(0, i, id)
	}

	e.net.SetInput(input, "input_ids")
	output := e.net.Forward("")
	defer output.Close()

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read text features")
	}
	if len(data) == 0 {
		return nil, errors.New("text encoder returned no features")
	}
	return normalize(data), nil
}

// normalize returns a unit-length copy of v.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	norm := math.Sqrt(sum)
	if norm == 0 {
		copy(out, v)
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// Close releases the encoder network.
func (e *TextEncoder) Close() error {
	return e.net.Close()
}
