package trust

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/propguard/propguard/internal/config"
	"github.com/propguard/propguard/internal/model"
	"github.com/propguard/propguard/pkg/anthropic"
)

// QualitativeScorer is the alternate, model-delegating strategy behind
// the Evaluator interface. Each component's report is assessed by an
// LLM that returns a free-text assessment plus a 0-100 score; weighting
// and status classification reuse the deterministic rules. Model
// failures degrade the evaluation to MANUAL_CHECK instead of erroring.
type QualitativeScorer struct {
	llm       anthropic.Client
	modelName string
	maxTokens int64
	cfg       config.ScorerConfig
	history   *History
}

// NewQualitativeScorer creates a QualitativeScorer. history may be nil.
func NewQualitativeScorer(llm anthropic.Client, modelName string, maxTokens int64, cfg config.ScorerConfig, history *History) *QualitativeScorer {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &QualitativeScorer{
		llm:       llm,
		modelName: modelName,
		maxTokens: maxTokens,
		cfg:       cfg,
		history:   history,
	}
}

// componentPrompts holds the per-signal evaluation instructions. Each
// asks for an assessment followed by a "score: N" line.
var componentPrompts = map[string]string{
	model.SignalImage: `Analyze these property listing image validation results:
%s

Provide exactly two lines in your response:
1. A concise assessment (1-2 sentences) covering the ratio of valid to
   suspicious images, presence of duplicates, and any critical red flags.
2. A trust score (0-100) where 0-29 means critical issues, 30-69 moderate
   concerns, and 70-100 good quality with proper validation.

Format:
<assessment>
score: <number>`,

	model.SignalAgent: `Analyze these agent verification results:
%s

Provide exactly two lines in your response:
1. A concise assessment (1-2 sentences) covering verification status,
   credential validation, and any critical red flags.
2. A trust score (0-100) where 0 means failed verification, 1-49
   incomplete verification requiring checks, and 50-100 verified with
   varying degrees of confidence.

Format:
<assessment>
score: <number>`,

	model.SignalPlatform: `Analyze these cross-platform consistency results:
%s

Provide exactly two lines in your response:
1. A concise assessment (1-2 sentences) covering consistency of listing
   details, data completeness, and any critical red flags.
2. A trust score (0-100) where 0-29 means critical inconsistencies,
   30-49 minor inconsistencies requiring verification, and 50-100
   consistent across platforms.

Format:
<assessment>
score: <number>`,

	model.SignalReview: `Analyze these property listing review results:
%s

Provide exactly two lines in your response:
1. A concise assessment (1-2 sentences) covering sentiment patterns,
   review authenticity indicators, and any critical red flags.
2. A trust score (0-100) where 0-29 means significant negative patterns,
   30-59 mixed reviews requiring investigation, and 60-100 predominantly
   positive legitimate reviews.

Format:
<assessment>
score: <number>`,
}

// qualitativeOrder includes the review signal, which only this variant
// scores.
var qualitativeOrder = []string{
	model.SignalImage,
	model.SignalAgent,
	model.SignalPlatform,
	model.SignalReview,
}

// Evaluate delegates component assessment to the model. It never
// returns nil.
func (q *QualitativeScorer) Evaluate(ctx context.Context, bundle *model.SignalBundle) *model.EvaluationResult {
	missing := MissingComponents(bundle)
	if bundle.Get(model.SignalReview) == nil {
		missing = append(missing, model.SignalReview)
	}
	if len(missing) > 0 {
		return &model.EvaluationResult{
			TotalScore:        0,
			Status:            model.StatusManualCheck,
			Assessment:        fmt.Sprintf("Missing or invalid components: %s", strings.Join(missing, ", ")),
			MissingComponents: missing,
			Recommendations:   Recommendations(0, nil),
		}
	}

	components := make(map[string]model.ComponentScore, len(qualitativeOrder))
	for _, name := range qualitativeOrder {
		cs, err := q.evaluateComponent(ctx, name, renderSignal(bundle.Get(name)))
		if err != nil {
			zap.L().Warn("trust: qualitative component evaluation failed",
				zap.String("component", name),
				zap.Error(err),
			)
			return &model.EvaluationResult{
				TotalScore:      0,
				Status:          model.StatusManualCheck,
				Assessment:      fmt.Sprintf("Error during evaluation: %v", err),
				Recommendations: Recommendations(0, nil),
			}
		}
		components[name] = cs
	}

	total := AggregateScore(components, Weights(q.cfg))
	status := q.classify(total)

	summary := buildSummary(total, status, components)
	if q.history != nil {
		q.history.Record(total)
		if dist, ok := q.history.Distribution(); ok {
			summary += fmt.Sprintf("\nRecent score distribution: mean %.1f, p25 %.1f, p50 %.1f, p75 %.1f over %d evaluations\n",
				dist.Mean, dist.P25, dist.P50, dist.P75, dist.Count)
		}
	}

	return &model.EvaluationResult{
		TotalScore:           total,
		Status:               status,
		Assessment:           buildAssessment(components),
		ComponentEvaluations: components,
		Summary:              summary,
		Recommendations:      Recommendations(total, components),
		MissingComponents:    nil,
	}
}

func (q *QualitativeScorer) classify(total float64) model.ListingStatus {
	switch {
	case total >= q.cfg.AutoApproveThreshold:
		return model.StatusAutoApprove
	case total >= q.cfg.ManualCheckThreshold:
		return model.StatusManualCheck
	default:
		return model.StatusAutoReject
	}
}

func (q *QualitativeScorer) evaluateComponent(ctx context.Context, name, report string) (model.ComponentScore, error) {
	resp, err := q.llm.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     q.modelName,
		MaxTokens: q.maxTokens,
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf(componentPrompts[name], report)},
		},
	})
	if err != nil {
		return model.ComponentScore{}, err
	}
	resp.Usage.LogUsage(q.modelName, name)
	return parseComponentResponse(resp.Text()), nil
}

// parseComponentResponse extracts the assessment and the trailing
// "score: N" line from a model response. A missing or malformed score
// line yields a zero score with the raw text as assessment.
func parseComponentResponse(text string) model.ComponentScore {
	var assessment []string
	var score float64

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)
		if strings.HasPrefix(lower, "score:") {
			raw := strings.TrimSpace(trimmed[len("score:"):])
			if v, err := strconv.ParseFloat(raw, 64); err == nil {
				score = clamp(v, 0, 100)
			}
			continue
		}
		if trimmed != "" {
			assessment = append(assessment, trimmed)
		}
	}

	return model.ComponentScore{
		Score:      score,
		Assessment: strings.Join(assessment, " "),
	}
}

// renderSignal flattens a signal to the text block fed to the model.
func renderSignal(sig *model.Signal) string {
	if sig == nil {
		return ""
	}
	if sig.Text != "" {
		return sig.Text
	}
	return asString(sig.Data)
}
