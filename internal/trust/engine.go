package trust

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/propguard/propguard/internal/config"
	"github.com/propguard/propguard/internal/model"
)

// Evaluator scores a bundle of validator signals. Implementations never
// fail: degraded input produces a degraded but well-formed result.
type Evaluator interface {
	Evaluate(ctx context.Context, bundle *model.SignalBundle) *model.EvaluationResult
}

// Engine is the deterministic rule-based trust scorer. Evaluation is a
// pure computation over its inputs; the optional History is the only
// shared mutable state and serializes its own access.
type Engine struct {
	cfg     config.ScorerConfig
	history *History
}

// NewEngine creates an Engine. history may be nil; the engine then skips
// score tracking.
func NewEngine(cfg config.ScorerConfig, history *History) *Engine {
	return &Engine{cfg: cfg, history: history}
}

// Evaluate scores the bundle and returns a complete EvaluationResult.
// It never returns nil and never panics on malformed input.
func (e *Engine) Evaluate(_ context.Context, bundle *model.SignalBundle) *model.EvaluationResult {
	missing := MissingComponents(bundle)
	absent := make(map[string]bool, len(missing))
	for _, name := range missing {
		absent[name] = true
	}

	components := make(map[string]model.ComponentScore)
	if !absent[model.SignalImage] {
		components[model.SignalImage] = ScoreImage(ExtractImageMetrics(bundle.Get(model.SignalImage)))
	}
	if !absent[model.SignalAgent] {
		components[model.SignalAgent] = ScoreAgent(ExtractAgentMetrics(bundle.Get(model.SignalAgent)))
	}
	if !absent[model.SignalPlatform] {
		components[model.SignalPlatform] = ScorePlatform(ExtractPlatformMetrics(bundle.Get(model.SignalPlatform)))
	}

	total := AggregateScore(components, Weights(e.cfg))
	status := e.ClassifyStatus(total)

	result := &model.EvaluationResult{
		TotalScore:           total,
		Status:               status,
		Assessment:           buildAssessment(components),
		ComponentEvaluations: components,
		Summary:              buildSummary(total, status, components),
		Recommendations:      Recommendations(total, components),
		MissingComponents:    missing,
	}

	if e.history != nil {
		e.history.Record(total)
	}

	zap.L().Debug("trust: evaluation complete",
		zap.Float64("total_score", total),
		zap.String("status", string(status)),
		zap.Strings("missing_components", missing),
	)

	return result
}

// ScoreImage applies the rule-based image scoring formula: the valid
// ratio minus half-weight duplicate and full-weight suspicious
// penalties, clamped to [0, 100].
func ScoreImage(m ImageMetrics) model.ComponentScore {
	if m.TotalCount == 0 {
		return model.ComponentScore{Score: 0, Assessment: "No images provided"}
	}

	total := float64(m.TotalCount)
	score := float64(m.ValidCount)/total*100 -
		float64(m.DuplicateCount)/total*50 -
		float64(m.SuspiciousCount)/total*100
	score = clamp(score, 0, 100)

	var assessment string
	switch {
	case m.SuspiciousCount > 0:
		assessment = "CRITICAL: Presence of suspicious images"
	case m.DuplicateCount > 0:
		assessment = "Moderate concerns: Presence of duplicates"
	default:
		assessment = "Good quality with proper validation"
	}
	return model.ComponentScore{Score: score, Assessment: assessment}
}

// ScoreAgent applies the rule-based agent scoring formula. An unverified
// lister always scores zero regardless of other flags.
func ScoreAgent(m AgentMetrics) model.ComponentScore {
	if !m.IsVerified {
		return model.ComponentScore{Score: 0, Assessment: "Failed verification"}
	}

	base := 50.0
	if m.HasLicense {
		base += 30
	}
	if m.HasReviews {
		base += 20
	}
	score := math.Min(100, base*float64(m.TotalChecksPassed)/3)

	var assessment string
	switch {
	case !m.HasLicense, !m.HasReviews:
		assessment = "Incomplete verification requiring checks"
	default:
		assessment = "Verified with varying degrees of confidence"
	}
	return model.ComponentScore{Score: score, Assessment: assessment}
}

// ScorePlatform applies the rule-based cross-platform scoring formula:
// the share of platforms where the listing is consistent.
func ScorePlatform(m PlatformMetrics) model.ComponentScore {
	if m.TotalPlatforms == 0 {
		return model.ComponentScore{Score: 0, Assessment: "No cross-platform data available"}
	}

	score := float64(m.ConsistentCount) / float64(m.TotalPlatforms) * 100
	score = clamp(score, 0, 100)

	assessment := "Consistent across platforms"
	if m.InconsistentCount > 0 {
		assessment = "CRITICAL: Major inconsistencies found across platforms"
	}
	return model.ComponentScore{Score: score, Assessment: assessment}
}

// AggregateScore combines available component scores using the weight
// table. Components absent from the map are excluded from the sum, not
// treated as zero, so totals are only comparable between evaluations
// with the same available-signal set.
func AggregateScore(components map[string]model.ComponentScore, weights map[string]float64) float64 {
	if len(components) == 0 {
		return 0
	}
	var total float64
	for name, cs := range components {
		total += weights[name] * cs.Score
	}
	return round2(total)
}

// ClassifyStatus maps a total score to a disposition via the configured
// ordered thresholds.
func (e *Engine) ClassifyStatus(total float64) model.ListingStatus {
	switch {
	case total >= e.cfg.AutoApproveThreshold:
		return model.StatusAutoApprove
	case total >= e.cfg.ManualCheckThreshold:
		return model.StatusManualCheck
	default:
		return model.StatusAutoReject
	}
}

// MissingComponents reports which expected signal sections are absent or
// structurally incomplete. Diagnostics only; it does not alter scoring
// of the components that are present.
func MissingComponents(bundle *model.SignalBundle) []string {
	var missing []string
	for _, name := range model.SignalOrder {
		if !signalPresent(name, bundle.Get(name)) {
			missing = append(missing, name)
		}
	}
	return missing
}

// signalPresent reports whether a signal carries a usable section: a
// non-empty text report, or a mapping containing the section's expected
// key (or bare metric keys).
func signalPresent(name string, sig *model.Signal) bool {
	if sig == nil {
		return false
	}
	if sig.Text != "" {
		return true
	}
	if sig.Data == nil {
		return false
	}
	switch name {
	case model.SignalImage:
		return hasAnyKey(sig.Data, "image_validation_data", "valid_count", "total_count")
	case model.SignalAgent:
		return hasAnyKey(sig.Data, "agent_verification")
	case model.SignalPlatform:
		return hasAnyKey(sig.Data, "cross_platform", "consistent_count", "total_platforms")
	case model.SignalReview:
		return hasAnyKey(sig.Data, "review_analysis", "sentiment")
	}
	return false
}

func hasAnyKey(data map[string]any, keys ...string) bool {
	for _, k := range keys {
		if _, ok := data[k]; ok {
			return true
		}
	}
	return false
}

// buildAssessment renders the per-component safety report block.
func buildAssessment(components map[string]model.ComponentScore) string {
	var b strings.Builder
	for _, name := range model.SignalOrder {
		cs, ok := components[name]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "=== %s ===\n", componentTitle(name))
		fmt.Fprintf(&b, "%s\n", cs.Assessment)
		fmt.Fprintf(&b, "Score: %s/100\n\n", formatScore(cs.Score))
	}
	return b.String()
}

// buildSummary renders the human-readable one-block summary.
func buildSummary(total float64, status model.ListingStatus, components map[string]model.ComponentScore) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Trust Score: %s/100 - Status: %s\n\n", formatScore(total), status)
	b.WriteString("Component Scores:\n")
	for _, name := range model.SignalOrder {
		cs, ok := components[name]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s/100\n", componentTitle(name), formatScore(cs.Score))
	}
	return b.String()
}

// componentTitle renders a signal name for display, e.g.
// "image_validation" -> "Image Validation".
func componentTitle(name string) string {
	words := strings.Split(name, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// formatScore prints a score without trailing zeros ("0", "83.33").
func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// round2 rounds half away from zero to 2 decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
