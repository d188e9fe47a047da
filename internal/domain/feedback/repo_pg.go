package feedback

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medbook/medbook/internal/platform/apperr"
	"github.com/medbook/medbook/internal/platform/db"
)

type feedbackRepoPG struct{ pool *pgxpool.Pool }

func NewFeedbackRepoPG(pool *pgxpool.Pool) FeedbackRepository {
	return &feedbackRepoPG{pool: pool}
}

func (r *feedbackRepoPG) conn(ctx context.Context) db.Querier {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const feedbackSelect = `SELECT f.id, f.patient_id, f.doctor_id, f.appointment_id, f.rating, f.comments,
	f.created_at, COALESCE(du.first_name || ' ' || du.last_name, ''), a.appointment_date
	FROM feedback f
	LEFT JOIN doctors d ON d.id = f.doctor_id
	LEFT JOIN users du ON du.id = d.user_id
	LEFT JOIN appointments a ON a.id = f.appointment_id`

func (r *feedbackRepoPG) scanFeedback(row pgx.Row) (*Feedback, error) {
	var f Feedback
	err := row.Scan(&f.ID, &f.PatientID, &f.DoctorID, &f.AppointmentID, &f.Rating, &f.Comments,
		&f.CreatedAt, &f.DoctorName, &f.AppointmentDate)
	if err != nil {
		return nil, apperr.FromDB(err, "feedback")
	}
	return &f, nil
}

// Create inserts f. A second row for the same appointment violates the
// unique index and comes back as a Conflict.
func (r *feedbackRepoPG) Create(ctx context.Context, f *Feedback) error {
	f.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO feedback (id, patient_id, doctor_id, appointment_id, rating, comments)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at`,
		f.ID, f.PatientID, f.DoctorID, f.AppointmentID, f.Rating, f.Comments,
	).Scan(&f.CreatedAt)
	return apperr.FromDB(err, "feedback")
}

func (r *feedbackRepoPG) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Feedback, error) {
	return r.scanFeedback(r.conn(ctx).QueryRow(ctx, feedbackSelect+` WHERE f.appointment_id = $1`, appointmentID))
}

func (r *feedbackRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Feedback, error) {
	rows, err := r.conn(ctx).Query(ctx, feedbackSelect+` WHERE f.patient_id = $1 ORDER BY f.created_at DESC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Feedback
	for rows.Next() {
		f, err := r.scanFeedback(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	return items, rows.Err()
}
