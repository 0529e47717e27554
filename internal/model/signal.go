package model

// Signal component names. These are the keys used throughout the engine
// for component scores, weights, and missing-component reporting.
const (
	SignalImage    = "image_validation"
	SignalAgent    = "agent_verification"
	SignalPlatform = "cross_platform"
	SignalReview   = "review_analysis"
)

// SignalOrder is the fixed order in which components are scored and
// reported. Review participates only in the qualitative variant.
var SignalOrder = []string{SignalImage, SignalAgent, SignalPlatform}

// Signal carries one validator's raw output. Validators produce either a
// line-labeled text report or a structured mapping; both shapes are
// tolerated and either field may be empty.
type Signal struct {
	Text string         `json:"text,omitempty"`
	Data map[string]any `json:"data,omitempty"`
}

// TextSignal wraps a free-text validator report.
func TextSignal(report string) *Signal {
	return &Signal{Text: report}
}

// DataSignal wraps a structured validator payload.
func DataSignal(data map[string]any) *Signal {
	return &Signal{Data: data}
}

// SignalBundle groups the raw validator outputs for one evaluation.
// Any field may be nil when the upstream validator produced nothing.
type SignalBundle struct {
	Image    *Signal `json:"image_validation,omitempty"`
	Agent    *Signal `json:"agent_verification,omitempty"`
	Platform *Signal `json:"cross_platform,omitempty"`
	Review   *Signal `json:"review_analysis,omitempty"`
}

// Get returns the signal for the given component name, or nil.
func (b *SignalBundle) Get(name string) *Signal {
	if b == nil {
		return nil
	}
	switch name {
	case SignalImage:
		return b.Image
	case SignalAgent:
		return b.Agent
	case SignalPlatform:
		return b.Platform
	case SignalReview:
		return b.Review
	}
	return nil
}
