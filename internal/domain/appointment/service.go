package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hms/hms/pkg/apperror"
	"github.com/hms/hms/pkg/pagination"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

var validPriorities = map[string]bool{
	"LOW": true, "MEDIUM": true, "HIGH": true, "EMERGENCY": true,
}

// Create books an appointment after checking the doctor's calendar for a
// blocking appointment overlapping the requested slot.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Appointment, error) {
	if input.PatientID == uuid.Nil {
		return nil, apperror.Validation("patient_id is required")
	}
	if input.DoctorID == uuid.Nil {
		return nil, apperror.Validation("doctor_id is required")
	}
	if input.AppointmentDate.IsZero() {
		return nil, apperror.Validation("appointment_date is required")
	}
	if input.AppointmentType == "" {
		return nil, apperror.Validation("appointment_type is required")
	}

	priority := input.Priority
	if priority == "" {
		priority = "MEDIUM"
	}
	if !validPriorities[priority] {
		return nil, apperror.Validationf("unknown priority %q", input.Priority)
	}

	duration := input.DurationMinutes
	if duration <= 0 {
		duration = DefaultDuration
	}

	end := input.AppointmentDate.Add(time.Duration(duration) * time.Minute)
	conflicts, err := s.repo.CountOverlapping(ctx, input.DoctorID, input.AppointmentDate, end)
	if err != nil {
		return nil, apperror.Unavailable("check doctor availability", err)
	}
	if conflicts > 0 {
		return nil, apperror.Conflict("doctor is not available at this time")
	}

	appt := &Appointment{
		PatientID:       input.PatientID,
		DoctorID:        input.DoctorID,
		AppointmentDate: input.AppointmentDate,
		AppointmentType: input.AppointmentType,
		Priority:        priority,
		DurationMinutes: duration,
		ChiefComplaint:  input.ChiefComplaint,
		Symptoms:        input.Symptoms,
		Notes:           input.Notes,
		Status:          StatusScheduled,
	}
	if err := s.repo.Create(ctx, appt); err != nil {
		return nil, apperror.Unavailable("create appointment", err)
	}
	return appt, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.Unavailable("get appointment", err)
	}
	if appt == nil {
		return nil, apperror.NotFound("appointment not found")
	}
	return appt, nil
}

func (s *Service) List(ctx context.Context, f Filter, p pagination.Params) ([]*Appointment, int, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, apperror.Validationf("unknown status %q", f.Status)
	}
	items, total, err := s.repo.List(ctx, f, p)
	if err != nil {
		return nil, 0, apperror.Unavailable("list appointments", err)
	}
	return items, total, nil
}

// UpdateStatus moves an appointment to the given status, stamping actual
// start and end times on the first entry into IN_PROGRESS and COMPLETED.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Appointment, error) {
	if !status.Valid() {
		return nil, apperror.Validationf("unknown status %q", status)
	}
	appt, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if status == StatusInProgress && appt.ActualStartTime == nil {
		appt.ActualStartTime = &now
	}
	if status == StatusCompleted && appt.ActualEndTime == nil {
		appt.ActualEndTime = &now
	}
	appt.Status = status

	if err := s.repo.Update(ctx, appt); err != nil {
		return nil, apperror.Unavailable("update appointment", err)
	}
	return appt, nil
}

// Cancel rejects appointments already completed or cancelled.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status == StatusCompleted || appt.Status == StatusCancelled {
		return nil, apperror.Conflict("cannot cancel this appointment")
	}
	appt.Status = StatusCancelled
	if err := s.repo.Update(ctx, appt); err != nil {
		return nil, apperror.Unavailable("cancel appointment", err)
	}
	return appt, nil
}
