package trust

import (
	"fmt"

	"github.com/propguard/propguard/internal/model"
)

// Recommendation thresholds. A component missing from the evaluation is
// treated as zero-scored here so reviewers are always pointed at it,
// even though the aggregator excludes it from the total.
const (
	criticalThreshold       = 30
	imageReviewThreshold    = 70
	agentReviewThreshold    = 50
	platformReviewThreshold = 50
	allClearThreshold       = 80
)

// Recommendations derives the ordered, severity-ranked recommendation
// list for an evaluation. The first entry is always the overall score
// header; the list is deterministic given identical component scores.
func Recommendations(total float64, components map[string]model.ComponentScore) []string {
	recs := []string{fmt.Sprintf("Overall Trust Score: %s/100", formatScore(total))}

	scoreOf := func(name string) float64 {
		if cs, ok := components[name]; ok {
			return cs.Score
		}
		return 0
	}

	imageScore := scoreOf(model.SignalImage)
	switch {
	case imageScore < criticalThreshold:
		recs = append(recs, "CRITICAL: Insufficient or suspicious property images. Request complete image set and verify authenticity")
	case imageScore < imageReviewThreshold:
		recs = append(recs, "Request additional high-quality property images and verify their authenticity")
	}

	agentScore := scoreOf(model.SignalAgent)
	switch {
	case agentScore < criticalThreshold:
		recs = append(recs, "URGENT: Agent verification failed. Verify credentials and licensing information immediately")
	case agentScore < agentReviewThreshold:
		recs = append(recs, "Additional agent verification required. Check professional history and credentials")
	}

	platformScore := scoreOf(model.SignalPlatform)
	switch {
	case platformScore < criticalThreshold:
		recs = append(recs, "CRITICAL: Major inconsistencies found across platforms. Detailed cross-reference check required")
	case platformScore < platformReviewThreshold:
		recs = append(recs, "Cross-reference listing details across multiple platforms to verify consistency")
	}

	if len(components) > 0 {
		if allScoresBetween(components, criticalThreshold, allClearThreshold) {
			recs = append(recs, "Perform standard verification procedures before proceeding")
		}
		if len(recs) == 1 && allScoresAtLeast(components, allClearThreshold) {
			recs = append(recs, "All validation checks passed. Proceed with standard processing")
		}
	}

	return recs
}

// allScoresBetween reports whether every available score is in [lo, hi).
func allScoresBetween(components map[string]model.ComponentScore, lo, hi float64) bool {
	for _, cs := range components {
		if cs.Score < lo || cs.Score >= hi {
			return false
		}
	}
	return true
}

func allScoresAtLeast(components map[string]model.ComponentScore, threshold float64) bool {
	for _, cs := range components {
		if cs.Score < threshold {
			return false
		}
	}
	return true
}
