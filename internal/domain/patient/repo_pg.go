package patient

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medbook/medbook/internal/platform/apperr"
	"github.com/medbook/medbook/internal/platform/db"
)

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewPatientRepoPG(pool *pgxpool.Pool) PatientRepository { return &patientRepoPG{pool: pool} }

func (r *patientRepoPG) conn(ctx context.Context) db.Querier {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const patientSelect = `SELECT p.id, p.user_id, p.date_of_birth, p.gender, p.emergency_contact,
	p.medical_history, p.created_at, u.first_name, u.last_name, u.email
	FROM patients p
	JOIN users u ON u.id = p.user_id`

func (r *patientRepoPG) scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.UserID, &p.DateOfBirth, &p.Gender, &p.EmergencyContact,
		&p.MedicalHistory, &p.CreatedAt, &p.FirstName, &p.LastName, &p.Email)
	if err != nil {
		return nil, apperr.FromDB(err, "patient")
	}
	return &p, nil
}

// GetOrCreate relies on the unique user_id so concurrent first visits end
// up with a single profile.
func (r *patientRepoPG) GetOrCreate(ctx context.Context, p *Patient) (*Patient, error) {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patients (id, user_id, date_of_birth, gender, emergency_contact, medical_history)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (user_id) DO NOTHING`,
		uuid.New(), p.UserID, p.DateOfBirth, p.Gender, p.EmergencyContact, p.MedicalHistory)
	if err != nil {
		return nil, apperr.FromDB(err, "patient")
	}
	return r.GetByUserID(ctx, p.UserID)
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return r.scanPatient(r.conn(ctx).QueryRow(ctx, patientSelect+` WHERE p.id = $1`, id))
}

func (r *patientRepoPG) GetByUserID(ctx context.Context, userID uuid.UUID) (*Patient, error) {
	return r.scanPatient(r.conn(ctx).QueryRow(ctx, patientSelect+` WHERE p.user_id = $1`, userID))
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET date_of_birth=$2, gender=$3, emergency_contact=$4, medical_history=$5
		WHERE id = $1`,
		p.ID, p.DateOfBirth, p.Gender, p.EmergencyContact, p.MedicalHistory)
	if err != nil {
		return apperr.FromDB(err, "patient")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("patient")
	}
	return nil
}

func (r *patientRepoPG) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	total, err := r.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, patientSelect+` ORDER BY u.last_name, u.first_name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Patient
	for rows.Next() {
		p, err := r.scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *patientRepoPG) Count(ctx context.Context) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patients`).Scan(&n)
	return n, err
}
