package queue

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/platform/db"
	"github.com/hms/hms/internal/platform/realtime"
	"github.com/hms/hms/pkg/apperror"
)

// admitRetries bounds how often an admission retries after losing the
// queue-number race to a concurrent admission in the same partition.
const admitRetries = 3

type Service struct {
	repo Repository
	bc   realtime.Broadcaster
}

// NewService wires the queue service. bc may be nil; broadcasting is then
// skipped entirely.
func NewService(repo Repository, bc realtime.Broadcaster) *Service {
	return &Service{repo: repo, bc: bc}
}

// Admit creates a queue entry: assigns the next queue number for the
// (department, day) partition, derives the priority score, and broadcasts a
// queueUpdate. Duplicate active entries for the same patient are permitted.
func (s *Service) Admit(ctx context.Context, input CreateInput) (*Entry, error) {
	if input.PatientID == uuid.Nil {
		return nil, apperror.Validation("patient_id is required")
	}
	if input.PatientName == "" {
		return nil, apperror.Validation("patient_name is required")
	}
	if input.Department == "" {
		return nil, apperror.Validation("department is required")
	}
	if input.ServiceType == "" {
		return nil, apperror.Validation("service_type is required")
	}

	level := input.PriorityLevel
	if level == "" {
		level = PriorityMedium
	}
	switch level {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityEmergency:
	default:
		return nil, apperror.Validationf("unknown priority level %q", input.PriorityLevel)
	}

	now := time.Now()
	entry := &Entry{
		Department:    input.Department,
		QueueDate:     DayStart(now),
		PatientID:     input.PatientID,
		AppointmentID: input.AppointmentID,
		PatientName:   input.PatientName,
		DoctorName:    input.DoctorName,
		ServiceType:   input.ServiceType,
		PriorityLevel: level,
		PriorityScore: ScoreFor(level, input.IsEmergency),
		IsEmergency:   input.IsEmergency,
		Status:        StatusWaiting,
		CheckInTime:   now,
	}

	var err error
	for attempt := 0; attempt < admitRetries; attempt++ {
		err = s.repo.Create(ctx, entry)
		if err == nil {
			s.broadcast(ctx, realtime.EventQueueUpdate, entry)
			return entry, nil
		}
		if !db.IsUniqueViolation(err) {
			return nil, apperror.Unavailable("admit queue entry", err)
		}
	}
	return nil, apperror.Unavailable("queue number contention", err)
}

// List returns today's entries for a department, ordered by priority score
// descending then queue number ascending.
func (s *Service) List(ctx context.Context, department string, status Status) ([]*Entry, error) {
	if department == "" {
		return nil, apperror.Validation("department is required")
	}
	if status != "" && !status.Valid() {
		return nil, apperror.Validationf("unknown status %q", status)
	}
	items, err := s.repo.ListForDay(ctx, department, DayStart(time.Now()), status)
	if err != nil {
		return nil, apperror.Unavailable("list queue entries", err)
	}
	return items, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Entry, error) {
	entry, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.Unavailable("get queue entry", err)
	}
	if entry == nil {
		return nil, apperror.NotFound("queue entry not found")
	}
	return entry, nil
}

// Update applies a partial update to an entry, enforcing the status state
// machine. It returns the updated entry and whether this update transitioned
// the status into CALLED, which callers use to emit patientCalled exactly
// once per transition.
//
// actual_wait_time is computed only when service_end_time arrives and the
// same update carries service_start_time. Front desks send both timestamps
// in one completion payload, so a lone end time leaves the metric unset.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*Entry, bool, error) {
	entry, err := s.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}

	transitionedToCalled := false
	if input.Status != nil {
		next := *input.Status
		if !next.Valid() {
			return nil, false, apperror.Validationf("unknown status %q", next)
		}
		if !CanTransition(entry.Status, next) {
			return nil, false, apperror.Conflict("illegal status transition " + string(entry.Status) + " -> " + string(next))
		}
		transitionedToCalled = next == StatusCalled && entry.Status != StatusCalled
		entry.Status = next
	}
	if input.CalledTime != nil {
		entry.CalledTime = input.CalledTime
	}
	if input.ServiceStartTime != nil {
		entry.ServiceStartTime = input.ServiceStartTime
	}
	if input.ServiceEndTime != nil {
		entry.ServiceEndTime = input.ServiceEndTime
		if input.ServiceStartTime != nil {
			wait := int(math.Round(input.ServiceStartTime.Sub(entry.CheckInTime).Minutes()))
			entry.ActualWaitTime = &wait
		}
	}
	if input.EstimatedWaitTime != nil {
		entry.EstimatedWaitTime = input.EstimatedWaitTime
	}
	if input.RoomNumber != nil {
		entry.RoomNumber = input.RoomNumber
	}

	if err := s.repo.Update(ctx, entry); err != nil {
		return nil, false, apperror.Unavailable("update queue entry", err)
	}

	s.broadcast(ctx, realtime.EventQueueUpdate, entry)
	if transitionedToCalled {
		s.broadcast(ctx, realtime.EventPatientCalled, entry)
	}
	return entry, transitionedToCalled, nil
}

// Position resolves a patient's live rank among active entries in their
// department today. Returns nil when the patient has no active entry.
func (s *Service) Position(ctx context.Context, patientID uuid.UUID) (*PositionResult, error) {
	entry, err := s.repo.FindActiveByPatient(ctx, patientID, DayStart(time.Now()))
	if err != nil {
		return nil, apperror.Unavailable("resolve queue position", err)
	}
	if entry == nil {
		return nil, nil
	}

	ahead, err := s.repo.CountAhead(ctx, entry)
	if err != nil {
		return nil, apperror.Unavailable("count entries ahead", err)
	}
	return &PositionResult{Entry: entry, Position: ahead + 1}, nil
}

// broadcast is fire-and-forget: failures are the broadcaster's problem,
// never the caller's.
func (s *Service) broadcast(ctx context.Context, eventType string, entry *Entry) {
	if s.bc == nil {
		return
	}
	_ = s.bc.Publish(ctx, realtime.NewEvent(eventType, entry.Department, entry))
}
