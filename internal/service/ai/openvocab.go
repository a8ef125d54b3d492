package ai

import (
	"image"
	"slices"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"blurcam/internal/model"
)

// Embedder produces text feature vectors for prompt labels.
type Embedder interface {
	Embed(labels []string) ([][]float32, error)
}

// OpenModel is a YOLO-World detector prompted with free-text labels. Changing
// labels only recomputes the text features; the image network stays loaded.
type OpenModel struct {
	net      gocv.Net
	embedder Embedder
	labels   []string
	feats    gocv.Mat
}

// NewOpenModel loads the open-vocabulary network and prompts it with labels.
func NewOpenModel(path string, embedder Embedder, labels []string) (*OpenModel, error) {
	net, err := readNet(path)
	if err != nil {
		return nil, err
	}
	m := &OpenModel{net: net, embedder: embedder, feats: gocv.NewMat()}
	if err := m.SetLabels(labels); err != nil {
		_ = m.Close()
		return nil, err
	}
	return m, nil
}

// SetLabels replaces the prompt vocabulary.
func (m *OpenModel) SetLabels(labels []string) error {
	if len(labels) == 0 {
		return errors.New("no labels")
	}
	vectors, err := m.embedder.Embed(labels)
	if err != nil {
		return errors.Wrap(err, "failed to embed labels")
	}
	dim := len(vectors[0])
	if dim == 0 {
		return errors.New("empty text features")
	}

	feats := gocv.NewMatWithSizes([]int{1, len(vectors), dim}, gocv.MatTypeCV32F)
	data, err := feats.DataPtrFloat32()
	if err != nil {
		feats.Close()
		return errors.Wrap(err, "failed to prepare text features")
	}
	for i, vec := range vectors {
		if len(vec) != dim {
			feats.Close()
			return errors.Errorf("label %q has %d features, want %d", labels[i], len(vec), dim)
		}
		copy(data[i*dim:], vec)
	}

	m.feats.Close()
	m.feats = feats
	m.labels = slices.Clone(labels)
	return nil
}

// Labels returns the active prompt vocabulary.
func (m *OpenModel) Labels() []string {
	return slices.Clone(m.labels)
}

// Detect returns prompt matches scoring at least threshold, labelled with the
// prompt text.
func (m *OpenModel) Detect(frame gocv.Mat, threshold float32) ([]model.Detection, error) {
	if frame.Empty() {
		return nil, errors.New("empty frame")
	}

	blob := inputBlob(frame)
	defer blob.Close()

	m.net.SetInput(blob, "images")
	m.net.SetInput(m.feats, "txt_feats")
	output := m.net.Forward("")
	defer output.Close()

	return decodeYOLO(output, image.Pt(frame.Cols(), frame.Rows()), threshold, m.labelName)
}

func (m *OpenModel) labelName(i int) string {
	if i >= 0 && i < len(m.labels) {
		return m.labels[i]
	}
	return model.RedactedTag
}

// Close releases the network and text features.
func (m *OpenModel) Close() error {
	m.feats.Close()
	return m.net.Close()
}
