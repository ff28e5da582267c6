package queue

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hms/hms/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const entryCols = `id, department, queue_date, queue_number, patient_id, appointment_id,
	patient_name, doctor_name, service_type, room_number,
	priority_level, priority_score, is_emergency, status,
	check_in_time, called_time, service_start_time, service_end_time,
	estimated_wait_time, actual_wait_time, created_at, updated_at`

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.Department, &e.QueueDate, &e.QueueNumber, &e.PatientID, &e.AppointmentID,
		&e.PatientName, &e.DoctorName, &e.ServiceType, &e.RoomNumber,
		&e.PriorityLevel, &e.PriorityScore, &e.IsEmergency, &e.Status,
		&e.CheckInTime, &e.CalledTime, &e.ServiceStartTime, &e.ServiceEndTime,
		&e.EstimatedWaitTime, &e.ActualWaitTime, &e.CreatedAt, &e.UpdatedAt)
	return &e, err
}

// Create inserts the entry, computing the next queue number for the
// (department, queue_date) partition in the same statement. The unique index
// on (department, queue_date, queue_number) is the correctness backstop:
// concurrent admissions that read the same maximum fail with a unique
// violation and the service retries.
func (r *repoPG) Create(ctx context.Context, e *Entry) error {
	e.ID = uuid.New()
	row := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO queue_entry (id, department, queue_date, queue_number, patient_id, appointment_id,
			patient_name, doctor_name, service_type, room_number,
			priority_level, priority_score, is_emergency, status, check_in_time, estimated_wait_time)
		SELECT $1, $2, $3, COALESCE(MAX(queue_number), 0) + 1, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		FROM queue_entry WHERE department = $2 AND queue_date = $3
		RETURNING queue_number, created_at, updated_at`,
		e.ID, e.Department, e.QueueDate, e.PatientID, e.AppointmentID,
		e.PatientName, e.DoctorName, e.ServiceType, e.RoomNumber,
		e.PriorityLevel, e.PriorityScore, e.IsEmergency, e.Status, e.CheckInTime, e.EstimatedWaitTime)
	return row.Scan(&e.QueueNumber, &e.CreatedAt, &e.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Entry, error) {
	e, err := scanEntry(r.conn(ctx).QueryRow(ctx,
		`SELECT `+entryCols+` FROM queue_entry WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *repoPG) Update(ctx context.Context, e *Entry) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE queue_entry SET status=$2, called_time=$3, service_start_time=$4,
			service_end_time=$5, estimated_wait_time=$6, actual_wait_time=$7,
			room_number=$8, updated_at=NOW()
		WHERE id = $1`,
		e.ID, e.Status, e.CalledTime, e.ServiceStartTime,
		e.ServiceEndTime, e.EstimatedWaitTime, e.ActualWaitTime,
		e.RoomNumber)
	return err
}

func (r *repoPG) ListForDay(ctx context.Context, department string, day time.Time, status Status) ([]*Entry, error) {
	query := `SELECT ` + entryCols + ` FROM queue_entry WHERE department = $1 AND queue_date = $2`
	args := []interface{}{department, day}
	if status != "" {
		query += ` AND status = $3`
		args = append(args, status)
	}
	query += ` ORDER BY priority_score DESC, queue_number ASC`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

func (r *repoPG) FindActiveByPatient(ctx context.Context, patientID uuid.UUID, day time.Time) (*Entry, error) {
	e, err := scanEntry(r.conn(ctx).QueryRow(ctx, `
		SELECT `+entryCols+` FROM queue_entry
		WHERE patient_id = $1 AND queue_date = $2 AND status IN ('WAITING', 'CALLED')
		ORDER BY check_in_time ASC LIMIT 1`,
		patientID, day))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *repoPG) CountAhead(ctx context.Context, e *Entry) (int, error) {
	var count int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM queue_entry
		WHERE department = $1 AND queue_date = $2 AND status IN ('WAITING', 'CALLED')
		  AND (priority_score > $3 OR (priority_score = $3 AND queue_number < $4))`,
		e.Department, e.QueueDate, e.PriorityScore, e.QueueNumber).Scan(&count)
	return count, err
}
