// Package trust implements the listing trust-scoring engine: it turns
// raw validator outputs into component scores, a weighted total, a
// disposition, and actionable recommendations.
package trust

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/propguard/propguard/internal/config"
	"github.com/propguard/propguard/internal/model"
)

// DefaultScorerConfig returns the production weights and thresholds.
//
// The weights are multipliers against 0-100 component scores and are
// deliberately not normalized; see config.ScorerConfig.
func DefaultScorerConfig() config.ScorerConfig {
	return config.ScorerConfig{
		ImageWeight:    35,
		AgentWeight:    35,
		PlatformWeight: 30,
		ReviewWeight:   0,

		AutoApproveThreshold: 80,
		ManualCheckThreshold: 40,

		HistoryWindow: 100,
	}
}

// Weights returns the per-signal weight table from a ScorerConfig.
func Weights(c config.ScorerConfig) map[string]float64 {
	return map[string]float64{
		model.SignalImage:    c.ImageWeight,
		model.SignalAgent:    c.AgentWeight,
		model.SignalPlatform: c.PlatformWeight,
		model.SignalReview:   c.ReviewWeight,
	}
}

// ValidateConfig checks that a ScorerConfig is internally consistent.
func ValidateConfig(c config.ScorerConfig) error {
	var errs []string

	for name, w := range Weights(c) {
		if w < 0 {
			errs = append(errs, fmt.Sprintf("%s weight must be >= 0", name))
		}
	}

	if c.AutoApproveThreshold < c.ManualCheckThreshold {
		errs = append(errs, "auto_approve_threshold must be >= manual_check_threshold")
	}
	if c.ManualCheckThreshold < 0 {
		errs = append(errs, "manual_check_threshold must be >= 0")
	}
	if c.HistoryWindow < 0 {
		errs = append(errs, "history_window must be >= 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("trust: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
