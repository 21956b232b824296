package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"oftaclinic/api/internal/models"
)

var ErrAppointmentNotFound = errors.New("appointment not found")

type AppointmentFilter struct {
	Status string
	Date   *time.Time
	Limit  int
	Offset int
}

type AppointmentRepository struct {
	pool *pgxpool.Pool
}

func NewAppointmentRepository(pool *pgxpool.Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

const appointmentColumns = `
	id, patient_name, patient_email, patient_phone, date, time, type, status,
	notes, images, created_by, cancelled_at, created_at, updated_at
`

func (r *AppointmentRepository) Create(ctx context.Context, appt models.Appointment) error {
	const query = `
		INSERT INTO appointments (
			id, patient_name, patient_email, patient_phone, date, time, type,
			status, notes, images, created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
	`
	_, err := r.pool.Exec(ctx, query,
		appt.ID,
		appt.Patient.Name,
		appt.Patient.Email,
		appt.Patient.Phone,
		appt.Date,
		appt.Time,
		appt.Type,
		appt.Status,
		appt.Notes,
		appt.Images,
		appt.CreatedBy,
	)
	return err
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id string) (models.Appointment, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointments WHERE id = $1`, appointmentColumns)

	appt, err := scanAppointment(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Appointment{}, ErrAppointmentNotFound
		}
		return models.Appointment{}, err
	}
	return appt, nil
}

func (r *AppointmentRepository) List(ctx context.Context, filter AppointmentFilter) ([]models.Appointment, error) {
	where := []string{"TRUE"}
	args := []any{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Date != nil {
		args = append(args, *filter.Date)
		where = append(where, fmt.Sprintf("date = $%d", len(args)))
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`
		SELECT %s FROM appointments
		WHERE %s
		ORDER BY date ASC, time ASC
		LIMIT $%d OFFSET $%d
	`, appointmentColumns, strings.Join(where, " AND "), len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appointments []models.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appointments = append(appointments, appt)
	}
	return appointments, rows.Err()
}

func (r *AppointmentRepository) UpdateStatus(ctx context.Context, id string, status models.AppointmentStatus) error {
	const query = `
		UPDATE appointments
		SET status = $2,
		    cancelled_at = CASE WHEN $2 = 'cancelled' THEN NOW() ELSE cancelled_at END,
		    updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

// ImageRefs returns every attachment key held by any appointment.
func (r *AppointmentRepository) ImageRefs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT images FROM appointments`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []string
	for rows.Next() {
		var images []string
		if err := rows.Scan(&images); err != nil {
			return nil, err
		}
		refs = append(refs, images...)
	}
	return refs, rows.Err()
}

func scanAppointment(row pgx.Row) (models.Appointment, error) {
	var appt models.Appointment
	err := row.Scan(
		&appt.ID,
		&appt.Patient.Name,
		&appt.Patient.Email,
		&appt.Patient.Phone,
		&appt.Date,
		&appt.Time,
		&appt.Type,
		&appt.Status,
		&appt.Notes,
		&appt.Images,
		&appt.CreatedBy,
		&appt.CancelledAt,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	)
	return appt, err
}
