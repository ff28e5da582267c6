package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hms/hms/internal/platform/db"
	"github.com/hms/hms/pkg/pagination"
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

const apptCols = `id, patient_id, doctor_id, appointment_date, appointment_type, priority,
	duration_minutes, chief_complaint, symptoms, notes, status,
	no_show_probability, ai_priority_score, estimated_wait_time, queue_position,
	actual_start_time, actual_end_time, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.AppointmentDate, &a.AppointmentType, &a.Priority,
		&a.DurationMinutes, &a.ChiefComplaint, &a.Symptoms, &a.Notes, &a.Status,
		&a.NoShowProbability, &a.AIPriorityScore, &a.EstimatedWaitTime, &a.QueuePosition,
		&a.ActualStartTime, &a.ActualEndTime, &a.CreatedAt, &a.UpdatedAt)
	return &a, err
}

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	row := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointment (id, patient_id, doctor_id, appointment_date, appointment_type,
			priority, duration_minutes, chief_complaint, symptoms, notes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`,
		a.ID, a.PatientID, a.DoctorID, a.AppointmentDate, a.AppointmentType,
		a.Priority, a.DurationMinutes, a.ChiefComplaint, a.Symptoms, a.Notes, a.Status)
	return row.Scan(&a.CreatedAt, &a.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := scanAppointment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+apptCols+` FROM appointment WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *repoPG) Update(ctx context.Context, a *Appointment) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointment SET appointment_date=$2, appointment_type=$3, priority=$4,
			duration_minutes=$5, chief_complaint=$6, symptoms=$7, notes=$8, status=$9,
			no_show_probability=$10, ai_priority_score=$11, estimated_wait_time=$12,
			actual_start_time=$13, actual_end_time=$14, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.AppointmentDate, a.AppointmentType, a.Priority,
		a.DurationMinutes, a.ChiefComplaint, a.Symptoms, a.Notes, a.Status,
		a.NoShowProbability, a.AIPriorityScore, a.EstimatedWaitTime,
		a.ActualStartTime, a.ActualEndTime)
	return err
}

func (r *repoPG) List(ctx context.Context, f Filter, p pagination.Params) ([]*Appointment, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.PatientID != nil {
		where += ` AND patient_id = ` + arg(*f.PatientID)
	}
	if f.DoctorID != nil {
		where += ` AND doctor_id = ` + arg(*f.DoctorID)
	}
	if f.Status != "" {
		where += ` AND status = ` + arg(f.Status)
	}
	if f.From != nil {
		where += ` AND appointment_date >= ` + arg(*f.From)
	}
	if f.To != nil {
		where += ` AND appointment_date <= ` + arg(*f.To)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointment`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+apptCols+` FROM appointment`+where+` ORDER BY appointment_date ASC `+p.SQL(), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func (r *repoPG) ListForDate(ctx context.Context, day time.Time, doctorID *uuid.UUID) ([]*Appointment, error) {
	query := `SELECT ` + apptCols + ` FROM appointment
		WHERE appointment_date >= $1 AND appointment_date < $2
		  AND status IN ('SCHEDULED', 'CONFIRMED')`
	args := []interface{}{day, day.AddDate(0, 0, 1)}
	if doctorID != nil {
		query += ` AND doctor_id = $3`
		args = append(args, *doctorID)
	}
	query += ` ORDER BY appointment_date ASC`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *repoPG) CountOverlapping(ctx context.Context, doctorID uuid.UUID, start, end time.Time) (int, error) {
	var count int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM appointment
		WHERE doctor_id = $1
		  AND status IN ('SCHEDULED', 'CONFIRMED', 'IN_PROGRESS')
		  AND appointment_date < $3
		  AND appointment_date + duration_minutes * INTERVAL '1 minute' > $2`,
		doctorID, start, end).Scan(&count)
	return count, err
}

func (r *repoPG) SetQueuePosition(ctx context.Context, id uuid.UUID, position int) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE appointment SET queue_position = $2, updated_at = NOW() WHERE id = $1`,
		id, position)
	return err
}

func (r *repoPG) PatientHistory(ctx context.Context, patientID uuid.UUID) (int, int, error) {
	var total, noShows int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status = 'NO_SHOW')
		FROM appointment
		WHERE patient_id = $1 AND appointment_date < NOW()`,
		patientID).Scan(&total, &noShows)
	return total, noShows, err
}
