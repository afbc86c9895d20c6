package moderation

import (
	"errors"
	"strings"

	"swapshelf/internal/classifier"
)

// DefaultThreshold is the aggregate risk above which a listing is held.
const DefaultThreshold = 0.15

var ErrNoNeutralLabel = errors.New("classifier output has no neutral label")

// RiskScore sums the probabilities of every label other than neutral. With
// well-formed output this equals 1 - p(neutral). It is a risk magnitude, not
// a probability: nothing clamps it to [0, 1].
//
// TODO: revisit whether Drawing should count towards risk; changing it moves
// the accept/reject boundary for illustrated listings.
func RiskScore(preds []classifier.Prediction, neutral string) (float64, error) {
	var (
		score      float64
		hasNeutral bool
	)
	for _, p := range preds {
		if strings.EqualFold(p.Label, neutral) {
			hasNeutral = true
			continue
		}
		score += p.Probability
	}
	if !hasNeutral {
		return 0, ErrNoNeutralLabel
	}
	return score, nil
}
