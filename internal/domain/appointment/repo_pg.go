package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medbook/medbook/internal/platform/apperr"
	"github.com/medbook/medbook/internal/platform/db"
)

type appointmentRepoPG struct{ pool *pgxpool.Pool }

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

func (r *appointmentRepoPG) conn(ctx context.Context) db.Querier {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const appointmentSelect = `SELECT a.id, a.patient_id, a.doctor_id, a.appointment_date, a.time_slot,
	a.status, a.reason, a.consultation_notes, a.prescription, a.payment_id, a.created_at,
	du.first_name || ' ' || du.last_name, s.name,
	pu.first_name || ' ' || pu.last_name, pu.email
	FROM appointments a
	JOIN doctors d ON d.id = a.doctor_id
	JOIN users du ON du.id = d.user_id
	JOIN specialties s ON s.id = d.specialty_id
	JOIN patients p ON p.id = a.patient_id
	JOIN users pu ON pu.id = p.user_id`

func (r *appointmentRepoPG) scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var status string
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.AppointmentDate, &a.TimeSlot,
		&status, &a.Reason, &a.ConsultationNotes, &a.Prescription, &a.PaymentID, &a.CreatedAt,
		&a.DoctorName, &a.SpecialtyName, &a.PatientName, &a.PatientEmail)
	if err != nil {
		return nil, apperr.FromDB(err, "appointment")
	}
	a.Status = Status(status)
	return &a, nil
}

func (r *appointmentRepoPG) collect(rows pgx.Rows) ([]*Appointment, error) {
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := r.scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, appointment_date, time_slot, status, reason)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at`,
		a.ID, a.PatientID, a.DoctorID, a.AppointmentDate, a.TimeSlot, string(a.Status), a.Reason,
	).Scan(&a.CreatedAt)
	return apperr.FromDB(err, "appointment")
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return r.scanAppointment(r.conn(ctx).QueryRow(ctx, appointmentSelect+` WHERE a.id = $1`, id))
}

func (r *appointmentRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE appointments SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return apperr.FromDB(err, "appointment")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("appointment")
	}
	return nil
}

func (r *appointmentRepoPG) UpdateConsultation(ctx context.Context, id uuid.UUID, notes, prescription *string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE appointments SET consultation_notes = $2, prescription = $3 WHERE id = $1`,
		id, notes, prescription)
	if err != nil {
		return apperr.FromDB(err, "appointment")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("appointment")
	}
	return nil
}

func ownerColumn(owner Actor) (string, error) {
	switch owner.Kind {
	case ActorPatient:
		return "a.patient_id", nil
	case ActorDoctor:
		return "a.doctor_id", nil
	}
	return "", fmt.Errorf("unknown actor kind %q", owner.Kind)
}

func (r *appointmentRepoPG) ListUpcoming(ctx context.Context, owner Actor, from time.Time) ([]*Appointment, error) {
	col, err := ownerColumn(owner)
	if err != nil {
		return nil, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		appointmentSelect+` WHERE `+col+` = $1 AND a.appointment_date >= $2
		ORDER BY a.appointment_date ASC, a.time_slot ASC`, owner.ID, from)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

func (r *appointmentRepoPG) ListAll(ctx context.Context, owner Actor) ([]*Appointment, error) {
	col, err := ownerColumn(owner)
	if err != nil {
		return nil, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		appointmentSelect+` WHERE `+col+` = $1
		ORDER BY a.appointment_date DESC, a.time_slot DESC`, owner.ID)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}
