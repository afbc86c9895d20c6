package moderation

type Decision string

const (
	DecisionApproved Decision = "APPROVED"
	DecisionFlagged  Decision = "FLAGGED"
)

// Router applies the hold policy. It has no side effects.
type Router struct {
	Threshold float64
}

func NewRouter(threshold float64) Router {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return Router{Threshold: threshold}
}

// Route flags the submission if any single image's risk strictly exceeds the
// threshold.
func (r Router) Route(scores []float64) Decision {
	for _, s := range scores {
		if s > r.Threshold {
			return DecisionFlagged
		}
	}
	return DecisionApproved
}
