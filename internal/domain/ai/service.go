package ai

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/domain/appointment"
	"github.com/hms/hms/pkg/apperror"
)

var priorityWeights = map[string]float64{
	"EMERGENCY": 4.0,
	"HIGH":      3.0,
	"MEDIUM":    2.0,
	"LOW":       1.0,
}

// Service runs the queue optimizer and the prediction heuristics over the
// appointment store.
type Service struct {
	appts      appointment.Repository
	noShow     *NoShowPredictor
	waitTime   *WaitTimeEstimator
	classifier *PriorityClassifier
	logger     zerolog.Logger
}

func NewService(appts appointment.Repository, logger zerolog.Logger) *Service {
	return &Service{
		appts:      appts,
		noShow:     NewNoShowPredictor(),
		waitTime:   NewWaitTimeEstimator(),
		classifier: NewPriorityClassifier(),
		logger:     logger,
	}
}

type OptimizeInput struct {
	Date     time.Time  `json:"date"`
	DoctorID *uuid.UUID `json:"doctor_id"`
}

type QueueSlot struct {
	AppointmentID     uuid.UUID `json:"appointment_id"`
	PatientID         uuid.UUID `json:"patient_id"`
	PriorityScore     float64   `json:"priority_score"`
	PriorityLevel     string    `json:"priority_level"`
	NoShowProbability *float64  `json:"no_show_probability,omitempty"`
	AppointmentTime   time.Time `json:"appointment_time"`
	OriginalPosition  int       `json:"original_position"`
	NewPosition       int       `json:"new_position"`
}

type OptimizeResult struct {
	OptimizedQueue          []QueueSlot `json:"optimized_queue"`
	TotalAppointments       int         `json:"total_appointments"`
	EstimatedCompletionTime time.Time   `json:"estimated_completion_time"`
	EfficiencyScore         float64     `json:"efficiency_score"`
	ChangesMade             int         `json:"changes_made"`
}

// OptimizeQueue rescores the day's scheduled appointments and reassigns
// their queue positions. Each position write is independent: a failed write
// is logged and the pass continues, so one broken row never aborts the
// whole optimization.
func (s *Service) OptimizeQueue(ctx context.Context, input OptimizeInput) (*OptimizeResult, error) {
	if input.Date.IsZero() {
		return nil, apperror.Validation("date is required")
	}
	day := time.Date(input.Date.Year(), input.Date.Month(), input.Date.Day(), 0, 0, 0, 0, input.Date.Location())

	appts, err := s.appts.ListForDate(ctx, day, input.DoctorID)
	if err != nil {
		return nil, apperror.Unavailable("load appointments", err)
	}

	slots := make([]QueueSlot, len(appts))
	totalDuration := 0
	for i, apt := range appts {
		weight, ok := priorityWeights[apt.Priority]
		if !ok {
			weight = 2.0
		}
		score := weight
		if apt.NoShowProbability != nil {
			score += (1.0 - *apt.NoShowProbability) * 0.5
		}
		if apt.AIPriorityScore != nil {
			score += *apt.AIPriorityScore * 2.0
		}

		original := 0
		if apt.QueuePosition != nil {
			original = *apt.QueuePosition
		}
		slots[i] = QueueSlot{
			AppointmentID:     apt.ID,
			PatientID:         apt.PatientID,
			PriorityScore:     score,
			PriorityLevel:     apt.Priority,
			NoShowProbability: apt.NoShowProbability,
			AppointmentTime:   apt.AppointmentDate,
			OriginalPosition:  original,
		}

		duration := apt.DurationMinutes
		if duration <= 0 {
			duration = appointment.DefaultDuration
		}
		totalDuration += duration
	}

	// Stable: equal scores keep their appointment-time order.
	sort.SliceStable(slots, func(i, j int) bool { return slots[i].PriorityScore > slots[j].PriorityScore })

	changes := 0
	for i := range slots {
		position := i + 1
		slots[i].NewPosition = position
		if slots[i].OriginalPosition == position {
			continue
		}
		changes++
		if err := s.appts.SetQueuePosition(ctx, slots[i].AppointmentID, position); err != nil {
			s.logger.Error().Err(err).
				Str("appointment_id", slots[i].AppointmentID.String()).
				Int("position", position).
				Msg("failed to write queue position")
		}
	}

	efficiency := 0.0
	if len(slots) > 0 {
		efficiency = 1.0 - float64(changes)/float64(len(slots))
	}

	return &OptimizeResult{
		OptimizedQueue:          slots,
		TotalAppointments:       len(slots),
		EstimatedCompletionTime: time.Now().Add(time.Duration(totalDuration) * time.Minute),
		EfficiencyScore:         efficiency,
		ChangesMade:             changes,
	}, nil
}

type NoShowRequest struct {
	AppointmentID        *uuid.UUID `json:"appointment_id"`
	AppointmentType      string     `json:"appointment_type"`
	WeatherCondition     string     `json:"weather_condition"`
	PreviousAppointments int        `json:"previous_appointments"`
	PreviousNoShows      int        `json:"previous_no_shows"`
}

// PredictNoShow scores an appointment's no-show risk. When an appointment id
// is given the patient's real history is pulled from the store and the
// resulting probability is persisted on the appointment.
func (s *Service) PredictNoShow(ctx context.Context, req NoShowRequest) (*NoShowPrediction, error) {
	var appt *appointment.Appointment
	if req.AppointmentID != nil {
		var err error
		appt, err = s.appts.GetByID(ctx, *req.AppointmentID)
		if err != nil {
			return nil, apperror.Unavailable("get appointment", err)
		}
		if appt == nil {
			return nil, apperror.NotFound("appointment not found")
		}
		req.AppointmentType = appt.AppointmentType

		total, noShows, err := s.appts.PatientHistory(ctx, appt.PatientID)
		if err != nil {
			return nil, apperror.Unavailable("load patient history", err)
		}
		req.PreviousAppointments = total
		req.PreviousNoShows = noShows
	}

	prediction := s.noShow.Predict(NoShowInput{
		AppointmentType:      req.AppointmentType,
		WeatherCondition:     req.WeatherCondition,
		PreviousAppointments: req.PreviousAppointments,
		PreviousNoShows:      req.PreviousNoShows,
	})

	if appt != nil {
		appt.NoShowProbability = &prediction.NoShowProbability
		if err := s.appts.Update(ctx, appt); err != nil {
			return nil, apperror.Unavailable("persist prediction", err)
		}
	}
	return &prediction, nil
}

type WaitTimeRequest struct {
	AppointmentID   *uuid.UUID `json:"appointment_id"`
	DoctorID        uuid.UUID  `json:"doctor_id"`
	AppointmentDate time.Time  `json:"appointment_date"`
	AppointmentType string     `json:"appointment_type"`
	QueueLength     *int       `json:"queue_length"`
}

// EstimateWaitTime projects a wait. The queue length, unless supplied,
// is the doctor's blocking appointment count for the day.
func (s *Service) EstimateWaitTime(ctx context.Context, req WaitTimeRequest) (*WaitTimeEstimate, error) {
	var appt *appointment.Appointment
	if req.AppointmentID != nil {
		var err error
		appt, err = s.appts.GetByID(ctx, *req.AppointmentID)
		if err != nil {
			return nil, apperror.Unavailable("get appointment", err)
		}
		if appt == nil {
			return nil, apperror.NotFound("appointment not found")
		}
		req.DoctorID = appt.DoctorID
		req.AppointmentDate = appt.AppointmentDate
		req.AppointmentType = appt.AppointmentType
	}
	if req.DoctorID == uuid.Nil {
		return nil, apperror.Validation("doctor_id is required")
	}
	if req.AppointmentDate.IsZero() {
		return nil, apperror.Validation("appointment_date is required")
	}

	queueLength := 0
	if req.QueueLength != nil {
		queueLength = *req.QueueLength
	} else {
		d := req.AppointmentDate
		day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
		n, err := s.appts.CountOverlapping(ctx, req.DoctorID, day, day.AddDate(0, 0, 1))
		if err != nil {
			return nil, apperror.Unavailable("count queue length", err)
		}
		queueLength = n
	}

	estimate := s.waitTime.Estimate(WaitTimeInput{
		QueueLength:     queueLength,
		AppointmentDate: req.AppointmentDate,
		AppointmentType: req.AppointmentType,
	})

	if appt != nil {
		appt.EstimatedWaitTime = &estimate.EstimatedWaitTime
		if err := s.appts.Update(ctx, appt); err != nil {
			return nil, apperror.Unavailable("persist estimate", err)
		}
		if err := s.appts.SetQueuePosition(ctx, appt.ID, estimate.QueuePosition); err != nil {
			return nil, apperror.Unavailable("persist queue position", err)
		}
	}
	return &estimate, nil
}

type ClassifyRequest struct {
	AppointmentID *uuid.UUID `json:"appointment_id"`
	ClassifyInput
}

// ClassifyPriority triages intake text into a priority level, persisting the
// score and level when an appointment id is given.
func (s *Service) ClassifyPriority(ctx context.Context, req ClassifyRequest) (*Classification, error) {
	if req.ChiefComplaint == "" {
		return nil, apperror.Validation("chief_complaint is required")
	}

	classification := s.classifier.Classify(req.ClassifyInput)

	if req.AppointmentID != nil {
		appt, err := s.appts.GetByID(ctx, *req.AppointmentID)
		if err != nil {
			return nil, apperror.Unavailable("get appointment", err)
		}
		if appt == nil {
			return nil, apperror.NotFound("appointment not found")
		}
		appt.AIPriorityScore = &classification.PriorityScore
		appt.Priority = classification.PriorityLevel
		if err := s.appts.Update(ctx, appt); err != nil {
			return nil, apperror.Unavailable("persist classification", err)
		}
	}
	return &classification, nil
}

const (
	PredictionNoShow   = "no_show"
	PredictionWaitTime = "wait_time"
)

type BatchRequest struct {
	AppointmentIDs []uuid.UUID `json:"appointment_ids"`
	PredictionType string      `json:"prediction_type"`
}

type BatchPrediction struct {
	AppointmentID uuid.UUID   `json:"appointment_id"`
	Type          string      `json:"type"`
	Result        interface{} `json:"result"`
}

type BatchResult struct {
	Predictions       []BatchPrediction `json:"predictions"`
	TotalProcessed    int               `json:"total_processed"`
	FailedPredictions []uuid.UUID       `json:"failed_predictions"`
}

// BatchPredict runs one prediction per appointment id. Individual failures
// are collected, never fatal to the batch.
func (s *Service) BatchPredict(ctx context.Context, req BatchRequest) (*BatchResult, error) {
	if req.PredictionType != PredictionNoShow && req.PredictionType != PredictionWaitTime {
		return nil, apperror.Validationf("unknown prediction type %q", req.PredictionType)
	}

	result := &BatchResult{
		Predictions:       []BatchPrediction{},
		FailedPredictions: []uuid.UUID{},
	}
	for _, id := range req.AppointmentIDs {
		id := id
		var (
			outcome interface{}
			err     error
		)
		switch req.PredictionType {
		case PredictionNoShow:
			outcome, err = s.PredictNoShow(ctx, NoShowRequest{AppointmentID: &id})
		case PredictionWaitTime:
			outcome, err = s.EstimateWaitTime(ctx, WaitTimeRequest{AppointmentID: &id})
		}
		if err != nil {
			s.logger.Warn().Err(err).Str("appointment_id", id.String()).Msg("batch prediction failed")
			result.FailedPredictions = append(result.FailedPredictions, id)
			continue
		}
		result.Predictions = append(result.Predictions, BatchPrediction{
			AppointmentID: id,
			Type:          req.PredictionType,
			Result:        outcome,
		})
	}
	result.TotalProcessed = len(result.Predictions)
	return result, nil
}

type Health struct {
	NoShowPredictor    bool   `json:"no_show_predictor"`
	WaitTimeEstimator  bool   `json:"wait_time_estimator"`
	PriorityClassifier bool   `json:"priority_classifier"`
	Status             string `json:"status"`
}

func (s *Service) HealthCheck() Health {
	return Health{
		NoShowPredictor:    true,
		WaitTimeEstimator:  true,
		PriorityClassifier: true,
		Status:             "healthy",
	}
}
