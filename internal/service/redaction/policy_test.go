package redaction

import (
	"image"
	"math/rand"
	"testing"

	"go.viam.com/test"

	"blurcam/internal/model"
)

func TestDecideFixedVocabulary(t *testing.T) {
	detections := []model.Detection{
		{ClassID: 67, Box: image.Rect(10, 10, 50, 50), Confidence: 0.9},
		{ClassID: 0, Box: image.Rect(100, 100, 200, 200), Confidence: 0.8},
		{ClassID: 73, Box: image.Rect(300, 300, 400, 400), Confidence: 0.7},
	}
	mode := model.NewFixedTargets([]int{67, 73})

	regions := Decide(detections, mode, 640, 480)
	test.That(t, regions, test.ShouldHaveLength, 2)
	test.That(t, regions[0].Rect, test.ShouldResemble, image.Rect(10, 10, 50, 50))
	test.That(t, regions[0].Label, test.ShouldEqual, model.RedactedTag)
	test.That(t, regions[1].Rect, test.ShouldResemble, image.Rect(300, 300, 400, 400))

	test.That(t, Decide(detections, model.NewFixedTargets(nil), 640, 480), test.ShouldBeEmpty)
}

func TestDecideOpenVocabularyRedactsEverything(t *testing.T) {
	detections := []model.Detection{
		{ClassID: 0, Label: "credit card", Box: image.Rect(0, 0, 20, 20)},
		{ClassID: 5, Box: image.Rect(40, 40, 60, 60)},
		{ClassID: 1, Label: "passport", Box: image.Rect(700, 10, 800, 20)}, // outside the frame
	}
	regions := Decide(detections, model.OpenLabels{Labels: []string{"credit card", "passport"}}, 640, 480)
	test.That(t, regions, test.ShouldHaveLength, 2)
	test.That(t, regions[0].Label, test.ShouldEqual, "credit card")
	test.That(t, regions[1].Label, test.ShouldEqual, model.RedactedTag)
}

func TestDecideClipsToFrame(t *testing.T) {
	// 1280x720 frame, phone hanging off the right edge
	detections := []model.Detection{{ClassID: 67, Box: image.Rect(1250, 100, 1300, 200), Confidence: 0.6}}
	regions := Decide(detections, model.NewFixedTargets([]int{67}), 1280, 720)
	test.That(t, regions, test.ShouldHaveLength, 1)
	test.That(t, regions[0].Rect, test.ShouldResemble, image.Rect(1250, 100, 1280, 200))
}

func TestClipDropsDegenerateBoxes(t *testing.T) {
	for _, box := range []image.Rectangle{
		image.Rect(-50, -50, 0, 10),
		image.Rect(640, 0, 700, 100),
		{Min: image.Pt(10, 10), Max: image.Pt(10, 40)},
		image.Rect(20, 480, 40, 520),
		{Min: image.Pt(50, 50), Max: image.Pt(10, 10)},
	} {
		_, ok := Clip(box, 640, 480)
		test.That(t, ok, test.ShouldBeFalse)
	}
}

func TestRegionsAlwaysInsideFrame(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 2000; i++ {
		w, h := 1+rng.Intn(1920), 1+rng.Intn(1080)
		d := model.Detection{
			ClassID: rng.Intn(3),
			Box: image.Rectangle{
				Min: image.Pt(rng.Intn(4000)-2000, rng.Intn(4000)-2000),
				Max: image.Pt(rng.Intn(4000)-2000, rng.Intn(4000)-2000),
			},
		}
		for _, r := range Decide([]model.Detection{d}, model.OpenLabels{}, w, h) {
			test.That(t, r.Rect.Min.X, test.ShouldBeGreaterThanOrEqualTo, 0)
			test.That(t, r.Rect.Min.Y, test.ShouldBeGreaterThanOrEqualTo, 0)
			test.That(t, r.Rect.Min.X, test.ShouldBeLessThan, r.Rect.Max.X)
			test.That(t, r.Rect.Min.Y, test.ShouldBeLessThan, r.Rect.Max.Y)
			test.That(t, r.Rect.Max.X, test.ShouldBeLessThanOrEqualTo, w)
			test.That(t, r.Rect.Max.Y, test.ShouldBeLessThanOrEqualTo, h)
		}
	}
}
