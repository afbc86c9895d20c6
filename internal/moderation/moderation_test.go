package moderation

import (
	"errors"
	"math"
	"testing"

	"swapshelf/internal/classifier"
)

func preds(neutral float64, others ...float64) []classifier.Prediction {
	labels := []string{"Drawing", "Hentai", "Porn", "Sexy"}
	out := []classifier.Prediction{{Label: "Neutral", Probability: neutral}}
	for i, p := range others {
		out = append(out, classifier.Prediction{Label: labels[i], Probability: p})
	}
	return out
}

func TestRiskScoreIsComplementOfNeutral(t *testing.T) {
	score, err := RiskScore(preds(0.9, 0.05, 0.02, 0.02, 0.01), "Neutral")
	if err != nil {
		t.Fatalf("RiskScore: %v", err)
	}
	if math.Abs(score-0.1) > 1e-9 {
		t.Errorf("p=0.9: expected 0.1, got %v", score)
	}

	score, err = RiskScore(preds(0.3, 0.1, 0.2, 0.3, 0.1), "neutral")
	if err != nil {
		t.Fatalf("RiskScore: %v", err)
	}
	if math.Abs(score-0.7) > 1e-9 {
		t.Errorf("p=0.3: expected 0.7, got %v", score)
	}
}

func TestRiskScoreNotClamped(t *testing.T) {
	score, err := RiskScore(preds(0, 0.9, 0.9), "Neutral")
	if err != nil {
		t.Fatalf("RiskScore: %v", err)
	}
	if math.Abs(score-1.8) > 1e-9 {
		t.Errorf("expected unclamped 1.8, got %v", score)
	}
}

func TestRiskScoreRequiresNeutral(t *testing.T) {
	_, err := RiskScore([]classifier.Prediction{{Label: "Porn", Probability: 1}}, "Neutral")
	if !errors.Is(err, ErrNoNeutralLabel) {
		t.Errorf("expected ErrNoNeutralLabel, got %v", err)
	}
}

func TestRouteThresholdIsStrict(t *testing.T) {
	r := NewRouter(0.15)

	if got := r.Route([]float64{0.15}); got != DecisionApproved {
		t.Errorf("0.15: expected APPROVED, got %s", got)
	}
	if got := r.Route([]float64{0.1501}); got != DecisionFlagged {
		t.Errorf("0.1501: expected FLAGGED, got %s", got)
	}
	if got := r.Route([]float64{0.01, 0.15, 0.0}); got != DecisionApproved {
		t.Errorf("all at or below: expected APPROVED, got %s", got)
	}
	if got := r.Route([]float64{0.01, 0.9, 0.0}); got != DecisionFlagged {
		t.Errorf("one above: expected FLAGGED, got %s", got)
	}
	if got := r.Route(nil); got != DecisionApproved {
		t.Errorf("no scores: expected APPROVED, got %s", got)
	}
}

func TestNewRouterDefaultThreshold(t *testing.T) {
	if r := NewRouter(0); r.Threshold != DefaultThreshold {
		t.Errorf("expected default threshold, got %v", r.Threshold)
	}
}
