package ai

import (
	"image"
	"testing"

	"go.viam.com/test"
	"gocv.io/x/gocv"
)

// yoloOutput builds a [1, 4+classes, anchors] tensor from per-anchor rows of
// cx, cy, w, h, score0, score1, ...
func yoloOutput(t *testing.T, classes int, anchors [][]float32) gocv.Mat {
	t.Helper()
	rows := 4 + classes
	out := gocv.NewMatWithSizes([]int{1, rows, len(anchors)}, gocv.MatTypeCV32F)
	data, err := out.DataPtrFloat32()
	test.That(t, err, test.ShouldBeNil)
	for i, a := range anchors {
		for r := 0; r < rows; r++ {
			data[r*len(anchors)+i] = a[r]
		}
	}
	return out
}

func TestDecodeYOLOScalesAndSuppresses(t *testing.T) {
	out := yoloOutput(t, 2, [][]float32{
		{320, 320, 64, 64, 0.9, 0.1},  // class 0
		{322, 321, 64, 64, 0.8, 0.05}, // overlaps the first, suppressed
		{100, 100, 20, 20, 0.1, 0.6},  // class 1
		{500, 500, 20, 20, 0.1, 0.1},  // below threshold
	})
	defer out.Close()

	names := []string{"passport", "id card"}
	detections, err := decodeYOLO(out, image.Pt(1280, 640), 0.25, func(i int) string { return names[i] })
	test.That(t, err, test.ShouldBeNil)
	test.That(t, detections, test.ShouldHaveLength, 2)

	test.That(t, detections[0].ClassID, test.ShouldEqual, 0)
	test.That(t, detections[0].Label, test.ShouldEqual, "passport")
	test.That(t, detections[0].Box, test.ShouldResemble, image.Rect(576, 288, 704, 352))
	test.That(t, detections[0].Confidence, test.ShouldAlmostEqual, 0.9, 1e-6)

	test.That(t, detections[1].ClassID, test.ShouldEqual, 1)
	test.That(t, detections[1].Box, test.ShouldResemble, image.Rect(180, 90, 220, 110))
}

func TestDecodeYOLORejectsBadShape(t *testing.T) {
	out := gocv.NewMatWithSizes([]int{1, 3, 10}, gocv.MatTypeCV32F)
	defer out.Close()
	_, err := decodeYOLO(out, image.Pt(640, 640), 0.25, ClassName)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestClassName(t *testing.T) {
	test.That(t, ClassName(67), test.ShouldEqual, "cell phone")
	test.That(t, ClassName(0), test.ShouldEqual, "person")
	test.That(t, ClassName(500), test.ShouldEqual, "unknown500")
	test.That(t, ClassCount(), test.ShouldEqual, 80)
}
