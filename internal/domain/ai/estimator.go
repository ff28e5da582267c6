package ai

import (
	"math"
	"time"
)

// baseWaitPerPatient is the assumed service time in minutes per patient
// ahead in the queue.
const baseWaitPerPatient = 20

// WaitTimeEstimator projects how long a patient will wait given the queue
// ahead of them. Heuristic stand-in for a trained model.
type WaitTimeEstimator struct{}

func NewWaitTimeEstimator() *WaitTimeEstimator {
	return &WaitTimeEstimator{}
}

type WaitTimeInput struct {
	QueueLength     int       `json:"queue_length"`
	AppointmentDate time.Time `json:"appointment_date"`
	AppointmentType string    `json:"appointment_type"`
}

type WaitTimeEstimate struct {
	EstimatedWaitTime     int       `json:"estimated_wait_time"`
	QueuePosition         int       `json:"queue_position"`
	EstimatedServiceStart time.Time `json:"estimated_service_start"`
	ConfidenceScore       float64   `json:"confidence_score"`
}

func (e *WaitTimeEstimator) Estimate(in WaitTimeInput) WaitTimeEstimate {
	timeMultiplier := 1.0
	switch hour := in.AppointmentDate.Hour(); {
	case hour < 12:
		timeMultiplier = 0.9
	case hour < 17:
		timeMultiplier = 1.1
	default:
		timeMultiplier = 1.2
	}

	dayMultiplier := 1.0
	if wd := in.AppointmentDate.Weekday(); wd == time.Monday || wd == time.Friday {
		dayMultiplier = 1.15
	}

	typeMultiplier := 1.0
	switch in.AppointmentType {
	case "CONSULTATION":
		typeMultiplier = 1.2
	case "FOLLOW_UP":
		typeMultiplier = 0.8
	case "EMERGENCY":
		typeMultiplier = 0.5
	}

	wait := int(math.Round(float64(in.QueueLength) * baseWaitPerPatient * timeMultiplier * dayMultiplier * typeMultiplier))

	return WaitTimeEstimate{
		EstimatedWaitTime:     wait,
		QueuePosition:         in.QueueLength + 1,
		EstimatedServiceStart: in.AppointmentDate.Add(time.Duration(wait) * time.Minute),
		ConfidenceScore:       0.78,
	}
}
