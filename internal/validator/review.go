package validator

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/propguard/propguard/internal/model"
	"github.com/propguard/propguard/pkg/anthropic"
)

// ReviewValidator summarizes review sentiment for a lister or property.
// It feeds only the qualitative scoring variant; the deterministic
// engine ignores its output.
type ReviewValidator struct {
	llm       anthropic.Client
	modelName string
	maxTokens int64
	limiter   *rate.Limiter
}

// NewReviewValidator creates a ReviewValidator.
func NewReviewValidator(llm anthropic.Client, modelName string, maxTokens int64, limiter *rate.Limiter) *ReviewValidator {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &ReviewValidator{llm: llm, modelName: modelName, maxTokens: maxTokens, limiter: limiter}
}

// AnalyzeReviews produces the review-sentiment signal. Failures yield
// an error report string rather than an error.
func (v *ReviewValidator) AnalyzeReviews(ctx context.Context, reviews []string) *model.Signal {
	if len(reviews) == 0 {
		return model.TextSignal("Review Analysis Results:\n- No reviews available")
	}

	if v.limiter != nil {
		if err := v.limiter.Wait(ctx); err != nil {
			return errorReviewSignal(err)
		}
	}

	prompt := fmt.Sprintf(
		"Analyze the sentiment of these property listing reviews:\n%s\n\n"+
			"Summarize overall sentiment patterns, authenticity indicators, "+
			"and any red flags in 2-3 sentences.",
		strings.Join(reviews, "\n---\n"),
	)

	resp, err := v.llm.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     v.modelName,
		MaxTokens: v.maxTokens,
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		zap.L().Warn("validator: review analysis failed", zap.Error(err))
		return errorReviewSignal(err)
	}
	resp.Usage.LogUsage(v.modelName, "review_analysis")

	return model.TextSignal("Review Analysis Results:\n" + resp.Text())
}

func errorReviewSignal(err error) *model.Signal {
	return model.TextSignal("Review Analysis Results:\n- Error: " + err.Error())
}
