package model

import "time"

// LabelEmbedding is the text feature vector an open-vocabulary model uses for one label.
type LabelEmbedding struct {
	Encoder   string    `json:"encoder"`
	Label     string    `json:"label"`
	Vector    []float32 `json:"vector"`
	CreatedAt time.Time `json:"created_at"`
}
