package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository is the store surface the queue service depends on.
//
// Create must serialize queue-number assignment per (department, queue_date):
// the implementation assigns e.QueueNumber as one greater than the current
// maximum for the partition atomically, or fails in a way the service can
// retry (see ErrNumberTaken semantics of the Postgres implementation).
type Repository interface {
	Create(ctx context.Context, e *Entry) error
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)
	Update(ctx context.Context, e *Entry) error
	// ListForDay returns a day's entries for a department ordered by
	// (priority_score DESC, queue_number ASC). An empty status matches all.
	ListForDay(ctx context.Context, department string, day time.Time, status Status) ([]*Entry, error)
	// FindActiveByPatient returns the patient's WAITING or CALLED entry for
	// the given day in any department, nil when there is none.
	FindActiveByPatient(ctx context.Context, patientID uuid.UUID, day time.Time) (*Entry, error)
	// CountAhead counts active entries in e's partition ranked strictly
	// ahead of e.
	CountAhead(ctx context.Context, e *Entry) (int, error)
}
