package ai

import (
	"image"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"blurcam/internal/model"
)

// FixedModel is a closed-set YOLOv8 detector over the COCO classes.
type FixedModel struct {
	net gocv.Net
}

// NewFixedModel loads the fixed-vocabulary network from path.
func NewFixedModel(path string) (*FixedModel, error) {
	net, err := readNet(path)
	if err != nil {
		return nil, err
	}
	return &FixedModel{net: net}, nil
}

// Detect returns every class scoring at least threshold. Target filtering is
// left to the redaction policy.
func (m *FixedModel) Detect(frame gocv.Mat, threshold float32) ([]model.Detection, error) {
	if frame.Empty() {
		return nil, errors.New("empty frame")
	}

	blob := inputBlob(frame)
	defer blob.Close()

	m.net.SetInput(blob, "")
	output := m.net.Forward("")
	defer output.Close()

	return decodeYOLO(output, image.Pt(frame.Cols(), frame.Rows()), threshold, ClassName)
}

// Close releases the network.
func (m *FixedModel) Close() error {
	return m.net.Close()
}
