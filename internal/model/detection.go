package model

import "image"

// RedactedTag labels a region whose class name is not shown to the viewer.
const RedactedTag = "BLURRED"

// Detection is a single object found by a detection model in one frame.
type Detection struct {
	ClassID    int             `json:"class_id"`
	Label      string          `json:"label"`
	Box        image.Rectangle `json:"box"`
	Confidence float32         `json:"confidence"`
}

// Region is a detection box clipped to the frame and selected for redaction.
// Rect is never empty and always lies inside the frame.
type Region struct {
	Rect  image.Rectangle
	Label string
}
