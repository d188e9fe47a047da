package payment

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medbook/medbook/internal/domain/appointment"
	"github.com/medbook/medbook/internal/platform/apperr"
	"github.com/medbook/medbook/internal/platform/db"
)

type paymentRepoPG struct{ pool *pgxpool.Pool }

func NewPaymentRepoPG(pool *pgxpool.Pool) PaymentRepository { return &paymentRepoPG{pool: pool} }

func (r *paymentRepoPG) conn(ctx context.Context) db.Querier {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const chargeSelect = `SELECT a.id, a.patient_id, a.doctor_id, a.status, a.payment_id,
	a.appointment_date, a.time_slot, d.consultation_fee,
	du.first_name || ' ' || du.last_name, s.name,
	pu.first_name || ' ' || pu.last_name, pu.email
	FROM appointments a
	JOIN doctors d ON d.id = a.doctor_id
	JOIN users du ON du.id = d.user_id
	JOIN specialties s ON s.id = d.specialty_id
	JOIN patients p ON p.id = a.patient_id
	JOIN users pu ON pu.id = p.user_id
	WHERE a.id = $1`

func scanCharge(row pgx.Row) (*Charge, error) {
	var c Charge
	var status string
	err := row.Scan(&c.AppointmentID, &c.PatientID, &c.DoctorID, &status, &c.PaymentID,
		&c.AppointmentDate, &c.TimeSlot, &c.Fee,
		&c.DoctorName, &c.SpecialtyName, &c.PatientName, &c.PatientEmail)
	if err != nil {
		return nil, apperr.FromDB(err, "appointment")
	}
	c.Status = appointment.Status(status)
	return &c, nil
}

func (r *paymentRepoPG) GetCharge(ctx context.Context, appointmentID uuid.UUID) (*Charge, error) {
	return scanCharge(r.conn(ctx).QueryRow(ctx, chargeSelect, appointmentID))
}

func (r *paymentRepoPG) LockCharge(ctx context.Context, appointmentID uuid.UUID) (*Charge, error) {
	return scanCharge(r.conn(ctx).QueryRow(ctx, chargeSelect+` FOR UPDATE OF a`, appointmentID))
}

const paymentSelect = `SELECT pay.id, pay.appointment_id, pay.amount, pay.status,
	pay.external_reference_id, pay.payment_date, pay.transaction_details,
	a.patient_id, a.appointment_date, a.time_slot,
	du.first_name || ' ' || du.last_name, s.name
	FROM payments pay
	JOIN appointments a ON a.id = pay.appointment_id
	JOIN doctors d ON d.id = a.doctor_id
	JOIN users du ON du.id = d.user_id
	JOIN specialties s ON s.id = d.specialty_id`

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	var status string
	err := row.Scan(&p.ID, &p.AppointmentID, &p.Amount, &status,
		&p.ExternalReferenceID, &p.PaymentDate, &p.TransactionDetails,
		&p.PatientID, &p.AppointmentDate, &p.TimeSlot, &p.DoctorName, &p.SpecialtyName)
	if err != nil {
		return nil, apperr.FromDB(err, "payment")
	}
	p.Status = Status(status)
	return &p, nil
}

func (r *paymentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Payment, error) {
	return scanPayment(r.conn(ctx).QueryRow(ctx, paymentSelect+` WHERE pay.id = $1`, id))
}

func (r *paymentRepoPG) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Payment, error) {
	return scanPayment(r.conn(ctx).QueryRow(ctx, paymentSelect+` WHERE pay.appointment_id = $1`, appointmentID))
}

func (r *paymentRepoPG) Create(ctx context.Context, p *Payment) (bool, error) {
	p.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO payments (id, appointment_id, amount, status, external_reference_id, transaction_details)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (appointment_id) DO NOTHING
		RETURNING payment_date`,
		p.ID, p.AppointmentID, p.Amount, string(p.Status), p.ExternalReferenceID, p.TransactionDetails,
	).Scan(&p.PaymentDate)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, apperr.FromDB(err, "payment")
	}
	return true, nil
}

func (r *paymentRepoPG) MarkAppointmentPaid(ctx context.Context, appointmentID, paymentID uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE appointments SET payment_id = $2, status = $3 WHERE id = $1`,
		appointmentID, paymentID, string(appointment.StatusConfirmed))
	if err != nil {
		return apperr.FromDB(err, "appointment")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("appointment")
	}
	return nil
}

func (r *paymentRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Payment, error) {
	rows, err := r.conn(ctx).Query(ctx, paymentSelect+` WHERE a.patient_id = $1 ORDER BY pay.payment_date DESC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}
