package trust

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propguard/propguard/internal/model"
	"github.com/propguard/propguard/pkg/anthropic"
)

// fakeLLM returns canned responses keyed by a substring of the prompt.
type fakeLLM struct {
	responses map[string]string
	err       error
	calls     int
}

func (f *fakeLLM) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	prompt := req.Messages[0].Content
	for key, text := range f.responses {
		if strings.Contains(prompt, key) {
			return &anthropic.MessageResponse{
				Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
			}, nil
		}
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: "No concerns found.\nscore: 80"}},
	}, nil
}

func fullBundle() *model.SignalBundle {
	return &model.SignalBundle{
		Image:    model.TextSignal("Valid images: 5\nTotal images processed: 5"),
		Agent:    model.TextSignal("Lister is a verified licensed agent"),
		Platform: model.TextSignal("Consistent platforms: 3\nPlatforms checked: 3"),
		Review:   model.TextSignal("Review Analysis Results:\n- Mostly positive reviews"),
	}
}

func TestQualitativeScorer_Evaluate(t *testing.T) {
	llm := &fakeLLM{
		responses: map[string]string{
			"image validation results":   "Images look authentic with no duplicates.\nscore: 90",
			"agent verification results": "Agent credentials check out.\nscore: 85",
			"cross-platform consistency": "Details match across platforms.\nscore: 95",
			"property listing review":    "Reviews are consistently positive.\nscore: 88",
		},
	}

	cfg := DefaultScorerConfig()
	cfg.ReviewWeight = 10
	q := NewQualitativeScorer(llm, "claude-sonnet-4-5", 1024, cfg, nil)

	result := q.Evaluate(context.Background(), fullBundle())
	require.NotNil(t, result)

	assert.Equal(t, 4, llm.calls)
	require.Len(t, result.ComponentEvaluations, 4)
	assert.Equal(t, 90.0, result.ComponentEvaluations[model.SignalImage].Score)
	assert.Equal(t, "Images look authentic with no duplicates.", result.ComponentEvaluations[model.SignalImage].Assessment)

	// 35*90 + 35*85 + 30*95 + 10*88.
	assert.Equal(t, 9855.0, result.TotalScore)
	assert.Equal(t, model.StatusAutoApprove, result.Status)
	assert.Empty(t, result.MissingComponents)
}

func TestQualitativeScorer_MissingComponentsShortCircuit(t *testing.T) {
	llm := &fakeLLM{}
	q := NewQualitativeScorer(llm, "claude-sonnet-4-5", 1024, DefaultScorerConfig(), nil)

	bundle := fullBundle()
	bundle.Review = nil

	result := q.Evaluate(context.Background(), bundle)
	require.NotNil(t, result)

	assert.Zero(t, llm.calls, "no model calls when components are missing")
	assert.Zero(t, result.TotalScore)
	assert.Equal(t, model.StatusManualCheck, result.Status)
	assert.Equal(t, []string{model.SignalReview}, result.MissingComponents)
	assert.Equal(t, "Missing or invalid components: review_analysis", result.Assessment)
}

func TestQualitativeScorer_ModelErrorDegrades(t *testing.T) {
	llm := &fakeLLM{err: errors.New("rate limited")}
	q := NewQualitativeScorer(llm, "claude-sonnet-4-5", 1024, DefaultScorerConfig(), nil)

	result := q.Evaluate(context.Background(), fullBundle())
	require.NotNil(t, result)

	assert.Zero(t, result.TotalScore)
	assert.Equal(t, model.StatusManualCheck, result.Status)
	assert.Contains(t, result.Assessment, "Error during evaluation:")
	assert.Contains(t, result.Assessment, "rate limited")
}

func TestQualitativeScorer_HistoryDistributionInSummary(t *testing.T) {
	llm := &fakeLLM{}
	history := NewHistory(10)
	q := NewQualitativeScorer(llm, "claude-sonnet-4-5", 1024, DefaultScorerConfig(), history)

	result := q.Evaluate(context.Background(), fullBundle())
	require.NotNil(t, result)

	assert.Equal(t, 1, history.Len())
	assert.Contains(t, result.Summary, "Recent score distribution:")
}

func TestParseComponentResponse(t *testing.T) {
	tests := []struct {
		name string
		text string
		want model.ComponentScore
	}{
		{
			name: "assessment then score",
			text: "Looks good overall.\nscore: 85",
			want: model.ComponentScore{Score: 85, Assessment: "Looks good overall."},
		},
		{
			name: "uppercase label and decimal score",
			text: "Mixed signals.\nScore: 42.5",
			want: model.ComponentScore{Score: 42.5, Assessment: "Mixed signals."},
		},
		{
			name: "score above range clamps",
			text: "Excellent.\nscore: 250",
			want: model.ComponentScore{Score: 100, Assessment: "Excellent."},
		},
		{
			name: "negative score clamps to zero",
			text: "Bad.\nscore: -10",
			want: model.ComponentScore{Score: 0, Assessment: "Bad."},
		},
		{
			name: "missing score line",
			text: "No score was provided here.",
			want: model.ComponentScore{Score: 0, Assessment: "No score was provided here."},
		},
		{
			name: "malformed score value",
			text: "Something.\nscore: not-a-number",
			want: model.ComponentScore{Score: 0, Assessment: "Something."},
		},
		{
			name: "multi-line assessment",
			text: "First line.\n\nSecond line.\nscore: 60",
			want: model.ComponentScore{Score: 60, Assessment: "First line. Second line."},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, parseComponentResponse(tc.text))
		})
	}
}
