package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hms/hms/pkg/pagination"
)

// Repository is the appointment persistence port. Lookup methods return
// (nil, nil) when no row matches.
type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error

	// List returns a filtered page ordered by appointment date ascending,
	// plus the unpaginated total.
	List(ctx context.Context, f Filter, p pagination.Params) ([]*Appointment, int, error)

	// ListForDate returns the blocking appointments on a calendar day,
	// optionally narrowed to one doctor. The optimizer reads its working
	// set through this.
	ListForDate(ctx context.Context, day time.Time, doctorID *uuid.UUID) ([]*Appointment, error)

	// CountOverlapping counts blocking appointments for a doctor whose
	// slot intersects [start, end).
	CountOverlapping(ctx context.Context, doctorID uuid.UUID, start, end time.Time) (int, error)

	// SetQueuePosition writes the optimizer-assigned position. It is the
	// only write path for queue_position.
	SetQueuePosition(ctx context.Context, id uuid.UUID, position int) error

	// PatientHistory reports how many past appointments a patient has and
	// how many of those were no-shows.
	PatientHistory(ctx context.Context, patientID uuid.UUID) (total, noShows int, err error)
}
