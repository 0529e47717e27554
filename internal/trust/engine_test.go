package trust

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propguard/propguard/internal/model"
)

func TestScoreImage(t *testing.T) {
	tests := []struct {
		name       string
		metrics    ImageMetrics
		score      float64
		assessment string
	}{
		{
			name:       "no images",
			metrics:    ImageMetrics{},
			score:      0,
			assessment: "No images provided",
		},
		{
			name:       "all valid",
			metrics:    ImageMetrics{ValidCount: 5, TotalCount: 5},
			score:      100,
			assessment: "Good quality with proper validation",
		},
		{
			name:       "one duplicate of nine",
			metrics:    ImageMetrics{ValidCount: 8, DuplicateCount: 1, TotalCount: 9},
			score:      750.0 / 9,
			assessment: "Moderate concerns: Presence of duplicates",
		},
		{
			name:       "suspicious dominates assessment",
			metrics:    ImageMetrics{ValidCount: 3, DuplicateCount: 1, SuspiciousCount: 1, TotalCount: 5},
			score:      3.0/5*100 - 1.0/5*50 - 1.0/5*100,
			assessment: "CRITICAL: Presence of suspicious images",
		},
		{
			name:       "penalties clamp at zero",
			metrics:    ImageMetrics{SuspiciousCount: 4, TotalCount: 4},
			score:      0,
			assessment: "CRITICAL: Presence of suspicious images",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ScoreImage(tc.metrics)
			assert.InDelta(t, tc.score, got.Score, 1e-9)
			assert.Equal(t, tc.assessment, got.Assessment)
		})
	}
}

func TestScoreImage_MoreValidNeverScoresLower(t *testing.T) {
	// Holding total fixed, converting an invalid image to a valid one
	// must never decrease the score.
	prev := -1.0
	for valid := 0; valid <= 10; valid++ {
		got := ScoreImage(ImageMetrics{
			ValidCount:      valid,
			SuspiciousCount: 10 - valid,
			TotalCount:      10,
		})
		require.GreaterOrEqual(t, got.Score, prev, "valid=%d", valid)
		prev = got.Score
	}
}

func TestScoreAgent(t *testing.T) {
	tests := []struct {
		name       string
		metrics    AgentMetrics
		score      float64
		assessment string
	}{
		{
			name:       "unverified scores zero even with other flags",
			metrics:    AgentMetrics{IsVerified: false, HasLicense: true, HasReviews: true, TotalChecksPassed: 2},
			score:      0,
			assessment: "Failed verification",
		},
		{
			name:       "fully verified",
			metrics:    AgentMetrics{IsVerified: true, HasLicense: true, HasReviews: true, TotalChecksPassed: 3},
			score:      100,
			assessment: "Verified with varying degrees of confidence",
		},
		{
			name:       "verified without license",
			metrics:    AgentMetrics{IsVerified: true, HasReviews: true, TotalChecksPassed: 2},
			score:      70.0 * 2 / 3,
			assessment: "Incomplete verification requiring checks",
		},
		{
			name:       "verified only",
			metrics:    AgentMetrics{IsVerified: true, TotalChecksPassed: 1},
			score:      50.0 / 3,
			assessment: "Incomplete verification requiring checks",
		},
		{
			name:       "extra checks cap at 100",
			metrics:    AgentMetrics{IsVerified: true, HasLicense: true, HasReviews: true, TotalChecksPassed: 5},
			score:      100,
			assessment: "Verified with varying degrees of confidence",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ScoreAgent(tc.metrics)
			assert.InDelta(t, tc.score, got.Score, 1e-9)
			assert.Equal(t, tc.assessment, got.Assessment)
		})
	}
}

func TestScorePlatform(t *testing.T) {
	tests := []struct {
		name       string
		metrics    PlatformMetrics
		score      float64
		assessment string
	}{
		{
			name:       "no data",
			metrics:    PlatformMetrics{},
			score:      0,
			assessment: "No cross-platform data available",
		},
		{
			name:       "fully consistent",
			metrics:    PlatformMetrics{ConsistentCount: 3, TotalPlatforms: 3},
			score:      100,
			assessment: "Consistent across platforms",
		},
		{
			name:       "one inconsistent of four",
			metrics:    PlatformMetrics{ConsistentCount: 3, InconsistentCount: 1, TotalPlatforms: 4},
			score:      75,
			assessment: "CRITICAL: Major inconsistencies found across platforms",
		},
		{
			name:       "checked but nothing consistent",
			metrics:    PlatformMetrics{InconsistentCount: 2, TotalPlatforms: 2},
			score:      0,
			assessment: "CRITICAL: Major inconsistencies found across platforms",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ScorePlatform(tc.metrics)
			assert.InDelta(t, tc.score, got.Score, 1e-9)
			assert.Equal(t, tc.assessment, got.Assessment)
		})
	}
}

func TestAggregateScore(t *testing.T) {
	weights := Weights(DefaultScorerConfig())

	t.Run("empty components", func(t *testing.T) {
		assert.Zero(t, AggregateScore(nil, weights))
		assert.Zero(t, AggregateScore(map[string]model.ComponentScore{}, weights))
	})

	t.Run("full set", func(t *testing.T) {
		components := map[string]model.ComponentScore{
			model.SignalImage:    {Score: 80},
			model.SignalAgent:    {Score: 60},
			model.SignalPlatform: {Score: 50},
		}
		// 35*80 + 35*60 + 30*50
		assert.Equal(t, 6400.0, AggregateScore(components, weights))
	})

	t.Run("missing components are excluded, not zeroed", func(t *testing.T) {
		full := map[string]model.ComponentScore{
			model.SignalImage: {Score: 90},
			model.SignalAgent: {Score: 90},
		}
		partial := map[string]model.ComponentScore{
			model.SignalImage: {Score: 90},
		}
		assert.Equal(t, 35.0*90+35.0*90, AggregateScore(full, weights))
		assert.Equal(t, 35.0*90, AggregateScore(partial, weights))
	})

	t.Run("rounds to two decimals", func(t *testing.T) {
		components := map[string]model.ComponentScore{
			model.SignalImage: {Score: 750.0 / 9},
		}
		// 35 * 83.333... = 2916.666...
		assert.Equal(t, 2916.67, AggregateScore(components, weights))
	})
}

func TestClassifyStatus(t *testing.T) {
	e := NewEngine(DefaultScorerConfig(), nil)

	tests := []struct {
		total float64
		want  model.ListingStatus
	}{
		{100, model.StatusAutoApprove},
		{80, model.StatusAutoApprove},
		{79.99, model.StatusManualCheck},
		{40, model.StatusManualCheck},
		{39.99, model.StatusAutoReject},
		{0, model.StatusAutoReject},
	}

	for _, tc := range tests {
		t.Run(fmt.Sprintf("%.2f", tc.total), func(t *testing.T) {
			assert.Equal(t, tc.want, e.ClassifyStatus(tc.total))
		})
	}
}

func TestEngine_Evaluate_CleanListing(t *testing.T) {
	history := NewHistory(10)
	e := NewEngine(DefaultScorerConfig(), history)

	bundle := &model.SignalBundle{
		Image: model.TextSignal("Image Validation Results:\n" +
			"- Valid images: 8\n" +
			"- Duplicate images: 1\n" +
			"- Suspicious images: 0\n" +
			"- Total images processed: 9\n"),
		Agent: model.DataSignal(map[string]any{
			"agent_verification": map[string]any{
				"lister_name":         "Jane Realtor",
				"lister_verification": "Verified licensed real estate broker",
				"additional_checks":   "positive reviews, 10 years experience, residential specialization",
				"verification_source": "llm",
			},
		}),
		Platform: model.TextSignal("Cross-Platform Validation Results:\n" +
			"- Consistent platforms: 3\n" +
			"- Inconsistent platforms: 0\n" +
			"- Platforms checked: 3\n"),
	}

	result := e.Evaluate(context.Background(), bundle)
	require.NotNil(t, result)

	// 35*(750/9) + 35*100 + 30*100, rounded to two decimals.
	assert.Equal(t, 9416.67, result.TotalScore)
	assert.Equal(t, model.StatusAutoApprove, result.Status)
	assert.Empty(t, result.MissingComponents)

	require.Len(t, result.ComponentEvaluations, 3)
	assert.InDelta(t, 750.0/9, result.ComponentEvaluations[model.SignalImage].Score, 1e-9)
	assert.Equal(t, 100.0, result.ComponentEvaluations[model.SignalAgent].Score)
	assert.Equal(t, 100.0, result.ComponentEvaluations[model.SignalPlatform].Score)

	assert.Contains(t, result.Summary, "Trust Score: 9416.67/100 - Status: AUTO_APPROVE")
	assert.Contains(t, result.Summary, "- Agent Verification: 100/100")
	assert.Contains(t, result.Assessment, "=== Image Validation ===")
	assert.Contains(t, result.Assessment, "Moderate concerns: Presence of duplicates")

	require.NotEmpty(t, result.Recommendations)
	assert.Equal(t, "Overall Trust Score: 9416.67/100", result.Recommendations[0])

	assert.Equal(t, 1, history.Len())
	assert.Equal(t, []float64{9416.67}, history.Snapshot())
}

func TestEngine_Evaluate_AllSignalsMissing(t *testing.T) {
	e := NewEngine(DefaultScorerConfig(), nil)

	result := e.Evaluate(context.Background(), &model.SignalBundle{})
	require.NotNil(t, result)

	assert.Zero(t, result.TotalScore)
	assert.Equal(t, model.StatusAutoReject, result.Status)
	assert.Equal(t, []string{model.SignalImage, model.SignalAgent, model.SignalPlatform}, result.MissingComponents)
	assert.Empty(t, result.ComponentEvaluations)

	require.NotEmpty(t, result.Recommendations)
	assert.Equal(t, "Overall Trust Score: 0/100", result.Recommendations[0])
	assert.Contains(t, result.Recommendations, "CRITICAL: Insufficient or suspicious property images. Request complete image set and verify authenticity")
	assert.Contains(t, result.Recommendations, "URGENT: Agent verification failed. Verify credentials and licensing information immediately")
	assert.Contains(t, result.Recommendations, "CRITICAL: Major inconsistencies found across platforms. Detailed cross-reference check required")
}

func TestEngine_Evaluate_PartialBundle(t *testing.T) {
	e := NewEngine(DefaultScorerConfig(), nil)

	bundle := &model.SignalBundle{
		Image: model.DataSignal(map[string]any{
			"image_validation_data": map[string]any{
				"valid_count": 4,
				"total_count": 4,
			},
		}),
	}

	result := e.Evaluate(context.Background(), bundle)
	require.NotNil(t, result)

	assert.Equal(t, []string{model.SignalAgent, model.SignalPlatform}, result.MissingComponents)
	require.Len(t, result.ComponentEvaluations, 1)
	assert.Equal(t, 100.0, result.ComponentEvaluations[model.SignalImage].Score)
	// Image only: 35 * 100.
	assert.Equal(t, 3500.0, result.TotalScore)
}

func TestEngine_Evaluate_NeverPanicsOnGarbage(t *testing.T) {
	e := NewEngine(DefaultScorerConfig(), nil)

	bundles := []*model.SignalBundle{
		{Image: model.TextSignal("complete nonsense with no labels at all")},
		{Agent: model.DataSignal(map[string]any{"agent_verification": "not a map"})},
		{Platform: model.DataSignal(map[string]any{"cross_platform": map[string]any{"consistent_count": "three"}})},
		{Image: model.TextSignal("Valid images: -5\nTotal images processed: abc")},
	}

	for i, bundle := range bundles {
		result := e.Evaluate(context.Background(), bundle)
		require.NotNil(t, result, "bundle %d", i)
		assert.NotEmpty(t, result.Status, "bundle %d", i)
	}
}

func TestComponentTitle(t *testing.T) {
	assert.Equal(t, "Image Validation", componentTitle(model.SignalImage))
	assert.Equal(t, "Agent Verification", componentTitle(model.SignalAgent))
	assert.Equal(t, "Cross Platform", componentTitle(model.SignalPlatform))
}

func TestFormatScore(t *testing.T) {
	assert.Equal(t, "0", formatScore(0))
	assert.Equal(t, "100", formatScore(100))
	assert.Equal(t, "83.33", formatScore(83.33))
	assert.Equal(t, "9416.67", formatScore(9416.67))
}
