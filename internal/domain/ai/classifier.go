package ai

import (
	"math"
	"strings"
)

// PriorityClassifier derives a triage priority from free-text intake data.
// Heuristic stand-in for a trained model: keyword tiers over the complaint
// and symptoms, adjusted for age, vitals, and chronic history.
type PriorityClassifier struct{}

func NewPriorityClassifier() *PriorityClassifier {
	return &PriorityClassifier{}
}

var (
	emergencyKeywords = []string{"chest pain", "severe", "bleeding", "unconscious", "accident", "trauma", "emergency"}
	highKeywords      = []string{"high fever", "difficulty breathing", "severe pain", "infection", "urgent"}
	lowKeywords       = []string{"checkup", "routine", "minor", "consultation", "preventive"}
)

type ClassifyInput struct {
	ChiefComplaint string             `json:"chief_complaint"`
	Symptoms       string             `json:"symptoms"`
	PatientAge     *int               `json:"patient_age"`
	VitalSigns     map[string]float64 `json:"vital_signs"`
	MedicalHistory string             `json:"medical_history"`
}

type Classification struct {
	PriorityLevel  string   `json:"priority_level"`
	PriorityScore  float64  `json:"priority_score"`
	UrgencyFactors []string `json:"urgency_factors"`
	Recommendation string   `json:"recommendation"`
}

func (c *PriorityClassifier) Classify(in ClassifyInput) Classification {
	text := strings.ToLower(in.ChiefComplaint + " " + in.Symptoms)

	level := "MEDIUM"
	score := 2.0
	var factors []string

	for _, kw := range emergencyKeywords {
		if strings.Contains(text, kw) {
			level = "EMERGENCY"
			score = 4.0
			factors = append(factors, "Emergency keyword detected: "+kw)
			break
		}
	}
	if level != "EMERGENCY" {
		for _, kw := range highKeywords {
			if strings.Contains(text, kw) {
				level = "HIGH"
				score = 3.0
				factors = append(factors, "High priority symptom: "+kw)
				break
			}
		}
	}
	if level == "MEDIUM" {
		for _, kw := range lowKeywords {
			if strings.Contains(text, kw) {
				level = "LOW"
				score = 1.0
				factors = append(factors, "Routine or non-urgent case")
				break
			}
		}
	}

	if in.PatientAge != nil && (*in.PatientAge < 5 || *in.PatientAge > 65) {
		score += 0.5
		factors = append(factors, "Patient in vulnerable age group")
	}
	if len(in.VitalSigns) > 0 {
		score += 0.2
		factors = append(factors, "Vital signs available for assessment")
	}
	if strings.Contains(strings.ToLower(in.MedicalHistory), "chronic") {
		score += 0.3
		factors = append(factors, "Chronic condition history")
	}

	var recommendation string
	switch level {
	case "EMERGENCY":
		recommendation = "Immediate medical attention required. Fast-track to emergency bay."
	case "HIGH":
		recommendation = "Priority appointment. Schedule within 24 hours."
	case "MEDIUM":
		recommendation = "Standard scheduling. Monitor for any changes."
	default:
		recommendation = "Routine care. Can be scheduled within 1-2 weeks."
	}

	return Classification{
		PriorityLevel:  level,
		PriorityScore:  math.Round(score*100) / 100,
		UrgencyFactors: factors,
		Recommendation: recommendation,
	}
}
