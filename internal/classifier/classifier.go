package classifier

import (
	"context"
	"image"
	"math"
)

// Prediction is one label of a classifier output. Probabilities of a single
// image's labels sum to 1.
type Prediction struct {
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
}

// Classifier scores a decoded image. Implementations must be safe for
// concurrent use.
type Classifier interface {
	Classify(ctx context.Context, img image.Image) ([]Prediction, error)
}

// Softmax converts raw logits into probabilities.
func Softmax(logits []float32) []float64 {
	if len(logits) == 0 {
		return nil
	}
	maxLogit := float64(logits[0])
	for _, l := range logits[1:] {
		maxLogit = math.Max(maxLogit, float64(l))
	}
	out := make([]float64, len(logits))
	var sum float64
	for i, l := range logits {
		out[i] = math.Exp(float64(l) - maxLogit)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
