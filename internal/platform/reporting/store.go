package reporting

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medbook/medbook/internal/domain/appointment"
	"github.com/medbook/medbook/internal/domain/payment"
)

// Counts are the headline numbers on the admin dashboard.
type Counts struct {
	Doctors      int `json:"doctors"`
	Patients     int `json:"patients"`
	Appointments int `json:"appointments"`
}

// Store reads the facts reports are computed from.
type Store interface {
	Counts(ctx context.Context) (Counts, error)
	Appointments(ctx context.Context) ([]AppointmentFact, error)
	Payments(ctx context.Context) ([]PaymentFact, error)
	Patients(ctx context.Context) ([]PatientFact, error)
}

type storePG struct{ pool *pgxpool.Pool }

func NewStorePG(pool *pgxpool.Pool) Store { return &storePG{pool: pool} }

func (s *storePG) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := s.pool.QueryRow(ctx, `SELECT
		(SELECT COUNT(*) FROM doctors),
		(SELECT COUNT(*) FROM patients),
		(SELECT COUNT(*) FROM appointments)`).Scan(&c.Doctors, &c.Patients, &c.Appointments)
	return c, err
}

// Appointments left-joins the patient, doctor and specialty chain so
// broken links come back as NULLs instead of dropping the appointment.
func (s *storePG) Appointments(ctx context.Context) ([]AppointmentFact, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT a.id, a.status, a.appointment_date, a.time_slot,
		       p.id, pu.first_name || ' ' || pu.last_name,
		       du.first_name || ' ' || du.last_name, sp.name,
		       pay.status, pay.amount
		FROM appointments a
		LEFT JOIN patients p ON p.id = a.patient_id
		LEFT JOIN users pu ON pu.id = p.user_id
		LEFT JOIN doctors d ON d.id = a.doctor_id
		LEFT JOIN users du ON du.id = d.user_id
		LEFT JOIN specialties sp ON sp.id = d.specialty_id
		LEFT JOIN payments pay ON pay.appointment_id = a.id
		ORDER BY a.appointment_date DESC, a.created_at DESC`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (AppointmentFact, error) {
		var f AppointmentFact
		var status string
		var paymentStatus *string
		err := row.Scan(&f.ID, &status, &f.AppointmentDate, &f.TimeSlot,
			&f.PatientID, &f.PatientName, &f.DoctorName, &f.SpecialtyName,
			&paymentStatus, &f.PaymentAmount)
		f.Status = appointment.Status(status)
		if paymentStatus != nil {
			ps := payment.Status(*paymentStatus)
			f.PaymentStatus = &ps
		}
		return f, err
	})
}

func (s *storePG) Payments(ctx context.Context) ([]PaymentFact, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT pay.id, pay.appointment_id, pay.amount, pay.status, pay.payment_date,
		       a.patient_id, pu.first_name || ' ' || pu.last_name,
		       du.first_name || ' ' || du.last_name, sp.name
		FROM payments pay
		LEFT JOIN appointments a ON a.id = pay.appointment_id
		LEFT JOIN patients p ON p.id = a.patient_id
		LEFT JOIN users pu ON pu.id = p.user_id
		LEFT JOIN doctors d ON d.id = a.doctor_id
		LEFT JOIN users du ON du.id = d.user_id
		LEFT JOIN specialties sp ON sp.id = d.specialty_id
		ORDER BY pay.payment_date DESC`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (PaymentFact, error) {
		var f PaymentFact
		var status string
		err := row.Scan(&f.ID, &f.AppointmentID, &f.Amount, &status, &f.PaymentDate,
			&f.PatientID, &f.PatientName, &f.DoctorName, &f.SpecialtyName)
		f.Status = payment.Status(status)
		return f, err
	})
}

func (s *storePG) Patients(ctx context.Context) ([]PatientFact, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.id, u.first_name || ' ' || u.last_name, u.email
		FROM patients p
		JOIN users u ON u.id = p.user_id
		ORDER BY u.last_name, u.first_name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (PatientFact, error) {
		var f PatientFact
		err := row.Scan(&f.ID, &f.Name, &f.Email)
		return f, err
	})
}
