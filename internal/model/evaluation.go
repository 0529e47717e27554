package model

// ComponentScore is the 0-100 score and short assessment for one signal.
type ComponentScore struct {
	Score      float64 `json:"score"`
	Assessment string  `json:"assessment"`
}

// EvaluationResult is the full outcome of scoring one listing. It is
// immutable after construction; the API layer owns serialization.
type EvaluationResult struct {
	TotalScore           float64                   `json:"total_score"`
	Status               ListingStatus             `json:"status"`
	Assessment           string                    `json:"assessment"`
	ComponentEvaluations map[string]ComponentScore `json:"component_evaluations"`
	Summary              string                    `json:"summary"`
	Recommendations      []string                  `json:"recommendations"`
	MissingComponents    []string                  `json:"missing_components"`
}
