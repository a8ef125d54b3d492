package ai

import (
	"image"
	"os"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"blurcam/internal/model"
)

const (
	// InputSize is the square network input both YOLO variants are exported with.
	InputSize = 640
	// NMSThreshold is the IoU above which overlapping boxes of one class are merged.
	NMSThreshold = 0.45
)

// readNet loads an ONNX network and pins it to the default CPU backend.
func readNet(path string) (gocv.Net, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return gocv.Net{}, errors.Errorf("model file not found: %s", path)
	}

	net := gocv.ReadNet(path, "")
	if net.Empty() {
		return gocv.Net{}, errors.Errorf("failed to load network from %s", path)
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return gocv.Net{}, errors.New("failed to set preferable backend or target")
	}
	return net, nil
}

// inputBlob scales a BGR frame to the network input as RGB in [0, 1].
func inputBlob(frame gocv.Mat) gocv.Mat {
	return gocv.BlobFromImage(frame, 1.0/255.0, image.Pt(InputSize, InputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
}

// decodeYOLO converts a [1, 4+classes, anchors] output into detections in frame
// coordinates. Rows 0-3 hold the box centre and size in input pixels; the
// remaining rows hold per-class scores.
func decodeYOLO(output gocv.Mat, frameSize image.Point, threshold float32, name func(int) string) ([]model.Detection, error) {
	sizes := output.Size()
	if len(sizes) != 3 || sizes[0] != 1 || sizes[1] <= 4 {
		return nil, errors.Errorf("unexpected output shape %v", sizes)
	}
	rows, anchors := sizes[1], sizes[2]
	classes := rows - 4

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read output")
	}
	if len(data) < rows*anchors {
		return nil, errors.Errorf("output holds %d values, want %d", len(data), rows*anchors)
	}

	sx := float32(frameSize.X) / InputSize
	sy := float32(frameSize.Y) / InputSize

	type candidate struct {
		box   image.Rectangle
		score float32
	}
	byClass := make(map[int][]candidate)
	var order []int

	for i := 0; i < anchors; i++ {
		best, bestScore := -1, threshold
		for c := 0; c < classes; c++ {
			if s := data[(4+c)*anchors+i]; s >= bestScore {
				best, bestScore = c, s
			}
		}
		if best < 0 {
			continue
		}

		cx, cy := data[i], data[anchors+i]
		w, h := data[2*anchors+i], data[3*anchors+i]
		box := image.Rect(
			int((cx-w/2)*sx), int((cy-h/2)*sy),
			int((cx+w/2)*sx), int((cy+h/2)*sy),
		)
		if _, seen := byClass[best]; !seen {
			order = append(order, best)
		}
		byClass[best] = append(byClass[best], candidate{box: box, score: bestScore})
	}

	var detections []model.Detection
	for _, class := range order {
		cands := byClass[class]
		boxes := make([]image.Rectangle, len(cands))
		scores := make([]float32, len(cands))
		for i, c := range cands {
			boxes[i], scores[i] = c.box, c.score
		}
		for _, idx := range gocv.NMSBoxes(boxes, scores, threshold, NMSThreshold) {
			detections = append(detections, model.Detection{
				ClassID:    class,
				Label:      name(class),
				Box:        boxes[idx],
				Confidence: scores[idx],
			})
		}
	}
	return detections, nil
}
