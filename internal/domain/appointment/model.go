package appointment

import (
	"time"

	"github.com/google/uuid"
)

// Status of an appointment through its lifecycle.
type Status string

const (
	StatusScheduled  Status = "SCHEDULED"
	StatusConfirmed  Status = "CONFIRMED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
	StatusNoShow     Status = "NO_SHOW"
)

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// Blocking statuses hold a doctor's calendar slot and participate in the
// double-booking check.
func (s Status) Blocking() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusInProgress:
		return true
	}
	return false
}

// DefaultDuration is assumed when a booking does not state one.
const DefaultDuration = 30

type Appointment struct {
	ID              uuid.UUID `db:"id" json:"id"`
	PatientID       uuid.UUID `db:"patient_id" json:"patient_id"`
	DoctorID        uuid.UUID `db:"doctor_id" json:"doctor_id"`
	AppointmentDate time.Time `db:"appointment_date" json:"appointment_date"`
	AppointmentType string    `db:"appointment_type" json:"appointment_type"`
	Priority        string    `db:"priority" json:"priority"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	ChiefComplaint  *string   `db:"chief_complaint" json:"chief_complaint,omitempty"`
	Symptoms        *string   `db:"symptoms" json:"symptoms,omitempty"`
	Notes           *string   `db:"notes" json:"notes,omitempty"`
	Status          Status    `db:"status" json:"status"`

	// Advisory fields maintained by the optimizer and predictors.
	NoShowProbability *float64 `db:"no_show_probability" json:"no_show_probability,omitempty"`
	AIPriorityScore   *float64 `db:"ai_priority_score" json:"ai_priority_score,omitempty"`
	EstimatedWaitTime *int     `db:"estimated_wait_time" json:"estimated_wait_time,omitempty"`
	QueuePosition     *int     `db:"queue_position" json:"queue_position,omitempty"`

	ActualStartTime *time.Time `db:"actual_start_time" json:"actual_start_time,omitempty"`
	ActualEndTime   *time.Time `db:"actual_end_time" json:"actual_end_time,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// End is the exclusive end of the booked slot.
func (a *Appointment) End() time.Time {
	return a.AppointmentDate.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

type CreateInput struct {
	PatientID       uuid.UUID `json:"patient_id"`
	DoctorID        uuid.UUID `json:"doctor_id"`
	AppointmentDate time.Time `json:"appointment_date"`
	AppointmentType string    `json:"appointment_type"`
	Priority        string    `json:"priority"`
	DurationMinutes int       `json:"duration_minutes"`
	ChiefComplaint  *string   `json:"chief_complaint"`
	Symptoms        *string   `json:"symptoms"`
	Notes           *string   `json:"notes"`
}

// Filter narrows List queries. Zero values mean no constraint.
type Filter struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	Status    Status
	From      *time.Time
	To        *time.Time
}
