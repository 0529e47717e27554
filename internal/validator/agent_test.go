package validator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/propguard/propguard/internal/trust"
	"github.com/propguard/propguard/pkg/anthropic"
)

// scriptedLLM replays responses in call order.
type scriptedLLM struct {
	responses []string
	err       error
	requests  []anthropic.MessageRequest
}

func (s *scriptedLLM) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	text := "ok"
	if len(s.responses) > 0 {
		text = s.responses[0]
		s.responses = s.responses[1:]
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
	}, nil
}

func TestAgentValidator_VerifyLister(t *testing.T) {
	llm := &scriptedLLM{
		responses: []string{
			"Jane Realtor is a verified, licensed broker with ACME Realty.",
			"High credibility (90%), 12 years experience, positive client reviews.",
		},
	}

	v := NewAgentValidator(llm, "claude-sonnet-4-5", 512, nil)
	sig := v.VerifyLister(context.Background(), "Jane Realtor")

	require.NotNil(t, sig)
	require.Len(t, llm.requests, 2)
	assert.Contains(t, llm.requests[0].Messages[0].Content, "Jane Realtor")
	assert.NotEmpty(t, llm.requests[0].System)

	section, ok := sig.Data["agent_verification"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Jane Realtor", section["lister_name"])
	assert.Equal(t, "claude-sonnet-4-5", section["verification_source"])
	assert.NotEmpty(t, section["processed_at"])

	m := trust.ExtractAgentMetrics(sig)
	assert.True(t, m.IsVerified)
	assert.True(t, m.HasLicense)
	assert.True(t, m.HasReviews)
}

func TestAgentValidator_ModelFailureDegrades(t *testing.T) {
	llm := &scriptedLLM{err: errors.New("overloaded")}

	v := NewAgentValidator(llm, "claude-sonnet-4-5", 512, nil)
	sig := v.VerifyLister(context.Background(), "Jane Realtor")

	require.NotNil(t, sig)
	section, ok := sig.Data["agent_verification"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Verification unavailable", section["lister_verification"])

	m := trust.ExtractAgentMetrics(sig)
	assert.False(t, m.IsVerified)
	cs := trust.ScoreAgent(m)
	assert.Zero(t, cs.Score)
}

func TestAgentValidator_CanceledContextDegrades(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	llm := &scriptedLLM{}
	v := NewAgentValidator(llm, "claude-sonnet-4-5", 512, rate.NewLimiter(1, 1))
	sig := v.VerifyLister(ctx, "Jane Realtor")

	require.NotNil(t, sig)
	assert.Empty(t, llm.requests, "no model call after limiter rejects")
	m := trust.ExtractAgentMetrics(sig)
	assert.False(t, m.IsVerified)
}
