package queue

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a queue entry. There is no distinct
// in-service status: the period between CALLED and COMPLETED is tracked via
// service_start_time / service_end_time.
type Status string

const (
	StatusWaiting   Status = "WAITING"
	StatusCalled    Status = "CALLED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
	StatusNoShow    Status = "NO_SHOW"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusWaiting, StatusCalled, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// Active reports whether an entry with this status counts toward position
// ranking.
func (s Status) Active() bool {
	return s == StatusWaiting || s == StatusCalled
}

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

// CanTransition reports whether from -> to is a legal status transition.
// WAITING -> CALLED -> COMPLETED is the normal path; WAITING -> CANCELLED and
// WAITING|CALLED -> NO_SHOW are terminal side exits. Same-status updates are
// permitted as no-ops.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	switch from {
	case StatusWaiting:
		return to == StatusCalled || to == StatusCancelled || to == StatusNoShow
	case StatusCalled:
		return to == StatusCompleted || to == StatusNoShow
	}
	return false
}

// PriorityLevel is the discrete classification assigned at admission.
type PriorityLevel string

const (
	PriorityLow       PriorityLevel = "LOW"
	PriorityMedium    PriorityLevel = "MEDIUM"
	PriorityHigh      PriorityLevel = "HIGH"
	PriorityEmergency PriorityLevel = "EMERGENCY"
)

// ScoreFor derives the priority score assigned at admission. The score is
// fixed at creation and never recomputed by ordinary updates.
func ScoreFor(level PriorityLevel, isEmergency bool) float64 {
	if isEmergency {
		return 5.0
	}
	switch level {
	case PriorityHigh:
		return 3.0
	case PriorityMedium:
		return 2.0
	}
	return 1.0
}

// Entry maps to the queue_entry table: one patient's admission into a
// department's daily queue.
type Entry struct {
	ID                uuid.UUID     `db:"id" json:"id"`
	Department        string        `db:"department" json:"department"`
	QueueDate         time.Time     `db:"queue_date" json:"queue_date"`
	QueueNumber       int           `db:"queue_number" json:"queue_number"`
	PatientID         uuid.UUID     `db:"patient_id" json:"patient_id"`
	AppointmentID     *uuid.UUID    `db:"appointment_id" json:"appointment_id,omitempty"`
	PatientName       string        `db:"patient_name" json:"patient_name"`
	DoctorName        *string       `db:"doctor_name" json:"doctor_name,omitempty"`
	ServiceType       string        `db:"service_type" json:"service_type"`
	RoomNumber        *string       `db:"room_number" json:"room_number,omitempty"`
	PriorityLevel     PriorityLevel `db:"priority_level" json:"priority_level"`
	PriorityScore     float64       `db:"priority_score" json:"priority_score"`
	IsEmergency       bool          `db:"is_emergency" json:"is_emergency"`
	Status            Status        `db:"status" json:"status"`
	CheckInTime       time.Time     `db:"check_in_time" json:"check_in_time"`
	CalledTime        *time.Time    `db:"called_time" json:"called_time,omitempty"`
	ServiceStartTime  *time.Time    `db:"service_start_time" json:"service_start_time,omitempty"`
	ServiceEndTime    *time.Time    `db:"service_end_time" json:"service_end_time,omitempty"`
	EstimatedWaitTime *int          `db:"estimated_wait_time" json:"estimated_wait_time,omitempty"`
	ActualWaitTime    *int          `db:"actual_wait_time" json:"actual_wait_time,omitempty"`
	CreatedAt         time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time     `db:"updated_at" json:"updated_at"`
}

// RankedAhead reports whether other is strictly ahead of e in the queue
// order: priority score descending, then queue number ascending.
func RankedAhead(other, e *Entry) bool {
	if other.PriorityScore != e.PriorityScore {
		return other.PriorityScore > e.PriorityScore
	}
	return other.QueueNumber < e.QueueNumber
}

// DayStart normalizes t to the start of its calendar day.
func DayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// CreateInput carries the fields a caller supplies at admission.
type CreateInput struct {
	PatientID     uuid.UUID     `json:"patient_id"`
	AppointmentID *uuid.UUID    `json:"appointment_id,omitempty"`
	PatientName   string        `json:"patient_name"`
	Department    string        `json:"department"`
	ServiceType   string        `json:"service_type"`
	DoctorName    *string       `json:"doctor_name,omitempty"`
	PriorityLevel PriorityLevel `json:"priority_level,omitempty"`
	IsEmergency   bool          `json:"is_emergency,omitempty"`
}

// UpdateInput carries the mutable subset of an entry. Nil fields are left
// untouched.
type UpdateInput struct {
	Status            *Status    `json:"status,omitempty"`
	CalledTime        *time.Time `json:"called_time,omitempty"`
	ServiceStartTime  *time.Time `json:"service_start_time,omitempty"`
	ServiceEndTime    *time.Time `json:"service_end_time,omitempty"`
	EstimatedWaitTime *int       `json:"estimated_wait_time,omitempty"`
	RoomNumber        *string    `json:"room_number,omitempty"`
}

// PositionResult is the live rank of a patient's active entry.
type PositionResult struct {
	Entry    *Entry `json:"entry"`
	Position int    `json:"position"`
}
