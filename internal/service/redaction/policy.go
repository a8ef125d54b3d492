// Package redaction decides which detections get obscured in a frame.
package redaction

import (
	"image"

	"blurcam/internal/model"
)

// Decide maps detections to the regions that must be redacted in a frame of
// the given size. Boxes are clipped to the frame; boxes that clip to nothing
// are dropped.
func Decide(detections []model.Detection, mode model.DetectionMode, width, height int) []model.Region {
	regions := make([]model.Region, 0, len(detections))
	for _, d := range detections {
		var label string
		switch m := mode.(type) {
		case model.FixedTargets:
			if !m.Contains(d.ClassID) {
				continue
			}
			label = model.RedactedTag
		case model.OpenLabels:
			// the vocabulary was narrowed at the model, so every hit is in scope
			label = d.Label
			if label == "" {
				label = model.RedactedTag
			}
		default:
			continue
		}

		rect, ok := Clip(d.Box, width, height)
		if !ok {
			continue
		}
		regions = append(regions, model.Region{Rect: rect, Label: label})
	}
	return regions
}

// Clip intersects box with the frame bounds. It reports false when the
// result is empty; inverted boxes are treated as empty.
func Clip(box image.Rectangle, width, height int) (image.Rectangle, bool) {
	r := box.Intersect(image.Rect(0, 0, width, height))
	if r.Dx() <= 0 || r.Dy() <= 0 {
		return image.Rectangle{}, false
	}
	return r, true
}
