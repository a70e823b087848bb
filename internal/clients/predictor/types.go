package predictor

import "github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/modules/allocation"

type predictRequest struct {
	Pairs             []allocation.Features `json:"pairs"`
	IncludeConfidence bool                  `json:"include_confidence"`
}

type predictResponse struct {
	Predictions []struct {
		Score      float64 `json:"score"`
		Confidence float64 `json:"confidence"`
	} `json:"predictions"`
}

type statusResponse struct {
	ModelTrained bool               `json:"model_trained"`
	ModelVersion string             `json:"model_version"`
	Metrics      map[string]float64 `json:"metrics,omitempty"`
}

// Status is what GET /api/ml/status reports.
type Status struct {
	Configured   bool               `json:"configured"`
	Available    bool               `json:"available"`
	BaseURL      string             `json:"base_url,omitempty"`
	ModelTrained bool               `json:"model_trained"`
	ModelVersion string             `json:"model_version,omitempty"`
	Metrics      map[string]float64 `json:"metrics,omitempty"`
	Error        string             `json:"error,omitempty"`
}
