package validator

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/propguard/propguard/internal/model"
	"github.com/propguard/propguard/pkg/anthropic"
)

// AgentValidator verifies a lister's identity and professional standing
// through an LLM narrative check plus a secondary credibility analysis.
type AgentValidator struct {
	llm       anthropic.Client
	modelName string
	maxTokens int64
	limiter   *rate.Limiter
}

// NewAgentValidator creates an AgentValidator.
func NewAgentValidator(llm anthropic.Client, modelName string, maxTokens int64, limiter *rate.Limiter) *AgentValidator {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &AgentValidator{llm: llm, modelName: modelName, maxTokens: maxTokens, limiter: limiter}
}

const verifySystemPrompt = "You are a knowledgeable real estate assistant verifying lister information."

const checksSystemPrompt = "You are a real estate agent validator. Provide clear, concise assessments."

// VerifyLister produces the agent-verification signal for a lister. A
// model failure yields the degraded "Verification unavailable" payload
// the engine already tolerates, never an error.
func (v *AgentValidator) VerifyLister(ctx context.Context, listerName string) *model.Signal {
	narrative, err := v.ask(ctx, verifySystemPrompt,
		"Verify this real estate agent: "+listerName+"\n"+
			"Provide:\n"+
			"1. Full name and agency\n"+
			"2. Contact details\n"+
			"3. Whether the agent holds a valid license\n"+
			"4. Platform profiles\n"+
			"5. Reviews and ratings\n"+
			"State clearly whether the agent could be verified.")
	if err != nil {
		zap.L().Warn("validator: lister verification failed",
			zap.String("lister", listerName),
			zap.Error(err),
		)
		return errorAgentSignal(listerName, err)
	}

	checks, err := v.ask(ctx, checksSystemPrompt,
		"Analyze this real estate agent's online presence: "+listerName+"\n"+
			"Provide a detailed analysis covering:\n"+
			"1. Overall credibility (express as a percentage)\n"+
			"2. Years of experience\n"+
			"3. Areas of specialization\n"+
			"4. Client reviews and any concerning factors or red flags\n"+
			"Format your response as a clear, professional summary.")
	if err != nil {
		zap.L().Warn("validator: additional checks failed",
			zap.String("lister", listerName),
			zap.Error(err),
		)
		return errorAgentSignal(listerName, err)
	}

	return model.DataSignal(map[string]any{
		"agent_verification": map[string]any{
			"lister_name":         listerName,
			"lister_verification": narrative,
			"additional_checks":   checks,
			"verification_source": v.modelName,
			"processed_at":        time.Now().UTC().Format(time.RFC3339),
		},
	})
}

func (v *AgentValidator) ask(ctx context.Context, system, prompt string) (string, error) {
	if v.limiter != nil {
		if err := v.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	resp, err := v.llm.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     v.modelName,
		MaxTokens: v.maxTokens,
		System:    system,
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}
	resp.Usage.LogUsage(v.modelName, "agent_verification")
	return resp.Text(), nil
}

// errorAgentSignal is the degraded shape handed to the engine when
// verification cannot be completed: "unavailable" in the narrative
// makes the derived is_verified flag false.
func errorAgentSignal(listerName string, err error) *model.Signal {
	return model.DataSignal(map[string]any{
		"agent_verification": map[string]any{
			"lister_name":         listerName,
			"lister_verification": "Verification unavailable",
			"additional_checks":   map[string]any{"error": err.Error()},
			"processed_at":        time.Now().UTC().Format(time.RFC3339),
		},
	})
}
