package prediction

import (
	"encoding/json"
	"errors"
	"fmt"
)

type Risk string

const (
	RiskLow  Risk = "Low"
	RiskHigh Risk = "High"
)

// Result is a validated prediction-service response. Confidence is passed
// through as received; the service is expected to report it in [0, 100].
type Result struct {
	DeficiencyRisk  Risk     `json:"deficiency_risk"`
	Confidence      float64  `json:"confidence"`
	RawPrediction   float64  `json:"raw_prediction"`
	Recommendations []string `json:"recommendations"`
}

type wireResult struct {
	DeficiencyRisk  string   `json:"deficiency_risk"`
	Confidence      *float64 `json:"confidence"`
	RawPrediction   *float64 `json:"raw_prediction"`
	Recommendations []string `json:"recommendations"`
}

// DecodeResult parses and validates a response body.
func DecodeResult(body []byte) (*Result, error) {
	var wire wireResult
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	risk := Risk(wire.DeficiencyRisk)
	if risk != RiskLow && risk != RiskHigh {
		return nil, fmt.Errorf("decode response: unexpected deficiency_risk %q", wire.DeficiencyRisk)
	}
	if wire.Confidence == nil {
		return nil, errors.New("decode response: missing confidence")
	}

	result := &Result{
		DeficiencyRisk:  risk,
		Confidence:      *wire.Confidence,
		Recommendations: wire.Recommendations,
	}
	if wire.RawPrediction != nil {
		result.RawPrediction = *wire.RawPrediction
	}
	if result.Recommendations == nil {
		result.Recommendations = []string{}
	}
	return result, nil
}
