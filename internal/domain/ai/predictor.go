package ai

import (
	"math"
	"math/rand"
)

// NoShowPredictor estimates the probability that a patient misses an
// appointment. Heuristic stand-in for a trained model.
type NoShowPredictor struct {
	// jitter returns a value in [0, 1). Injectable for deterministic tests.
	jitter func() float64
}

func NewNoShowPredictor() *NoShowPredictor {
	return &NoShowPredictor{jitter: rand.Float64}
}

type NoShowInput struct {
	AppointmentType      string `json:"appointment_type"`
	WeatherCondition     string `json:"weather_condition"`
	PreviousAppointments int    `json:"previous_appointments"`
	PreviousNoShows      int    `json:"previous_no_shows"`
}

type NoShowPrediction struct {
	NoShowProbability float64 `json:"no_show_probability"`
	RiskLevel         string  `json:"risk_level"`
	ConfidenceScore   float64 `json:"confidence_score"`
	Recommendation    string  `json:"recommendation"`
}

func (p *NoShowPredictor) Predict(in NoShowInput) NoShowPrediction {
	rate := 0.0
	if in.PreviousAppointments > 0 {
		rate = float64(in.PreviousNoShows) / float64(in.PreviousAppointments)
	}

	typeMultiplier := 1.0
	if in.AppointmentType == "EMERGENCY" {
		typeMultiplier = 0.2
	}
	weatherMultiplier := 1.0
	if in.WeatherCondition == "bad" {
		weatherMultiplier = 1.2
	}

	probability := math.Min(rate*0.7*typeMultiplier*weatherMultiplier+p.jitter()*0.2, 1.0)

	riskLevel := "LOW"
	recommendation := "Patient has good attendance history"
	switch {
	case probability > 0.7:
		riskLevel = "HIGH"
		recommendation = "Consider sending multiple reminders and follow-up calls"
	case probability > 0.4:
		riskLevel = "MEDIUM"
		recommendation = "Send reminder notifications 24 hours before appointment"
	}

	return NoShowPrediction{
		NoShowProbability: math.Round(probability*100) / 100,
		RiskLevel:         riskLevel,
		ConfidenceScore:   0.85,
		Recommendation:    recommendation,
	}
}
