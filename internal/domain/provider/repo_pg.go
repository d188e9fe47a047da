package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medbook/medbook/internal/platform/apperr"
	"github.com/medbook/medbook/internal/platform/db"
)

type doctorRepoPG struct{ pool *pgxpool.Pool }

func NewDoctorRepoPG(pool *pgxpool.Pool) DoctorRepository { return &doctorRepoPG{pool: pool} }

func (r *doctorRepoPG) conn(ctx context.Context) db.Querier {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const doctorSelect = `SELECT d.id, d.user_id, d.specialty_id, d.qualifications, d.bio,
	d.consultation_fee, d.location, d.working_hours, d.is_available, d.created_at,
	u.first_name, u.last_name, u.email, s.name
	FROM doctors d
	JOIN users u ON u.id = d.user_id
	JOIN specialties s ON s.id = d.specialty_id`

func (r *doctorRepoPG) scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.UserID, &d.SpecialtyID, &d.Qualifications, &d.Bio,
		&d.ConsultationFee, &d.Location, &d.WorkingHours, &d.IsAvailable, &d.CreatedAt,
		&d.FirstName, &d.LastName, &d.Email, &d.SpecialtyName)
	if err != nil {
		return nil, apperr.FromDB(err, "doctor")
	}
	return &d, nil
}

func (r *doctorRepoPG) collect(rows pgx.Rows) ([]*Doctor, error) {
	defer rows.Close()
	var items []*Doctor
	for rows.Next() {
		d, err := r.scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

func (r *doctorRepoPG) Create(ctx context.Context, d *Doctor) error {
	d.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO doctors (id, user_id, specialty_id, qualifications, bio,
			consultation_fee, location, working_hours, is_available)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at`,
		d.ID, d.UserID, d.SpecialtyID, d.Qualifications, d.Bio,
		d.ConsultationFee, d.Location, d.WorkingHours, d.IsAvailable,
	).Scan(&d.CreatedAt)
	return apperr.FromDB(err, "doctor profile for this user")
}

func (r *doctorRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return r.scanDoctor(r.conn(ctx).QueryRow(ctx, doctorSelect+` WHERE d.id = $1`, id))
}

func (r *doctorRepoPG) GetByUserID(ctx context.Context, userID uuid.UUID) (*Doctor, error) {
	return r.scanDoctor(r.conn(ctx).QueryRow(ctx, doctorSelect+` WHERE d.user_id = $1`, userID))
}

func (r *doctorRepoPG) Update(ctx context.Context, d *Doctor) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE doctors SET specialty_id=$2, qualifications=$3, bio=$4, consultation_fee=$5,
			location=$6, working_hours=$7, is_available=$8
		WHERE id = $1`,
		d.ID, d.SpecialtyID, d.Qualifications, d.Bio, d.ConsultationFee,
		d.Location, d.WorkingHours, d.IsAvailable)
	if err != nil {
		return apperr.FromDB(err, "doctor")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("doctor")
	}
	return nil
}

func (r *doctorRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM doctors WHERE id = $1`, id)
	if err != nil {
		return apperr.FromDB(err, "doctor")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("doctor")
	}
	return nil
}

func (r *doctorRepoPG) List(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM doctors`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, doctorSelect+` ORDER BY u.last_name, u.first_name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := r.collect(rows)
	return items, total, err
}

func (r *doctorRepoPG) Search(ctx context.Context, criteria SearchCriteria) ([]*Doctor, error) {
	query := doctorSelect + ` WHERE d.is_available = TRUE`
	var args []interface{}
	idx := 1

	if criteria.Specialty != "" {
		query += fmt.Sprintf(` AND s.name LIKE $%d`, idx)
		args = append(args, likePattern(criteria.Specialty))
		idx++
	}
	if criteria.Location != "" {
		query += fmt.Sprintf(` AND d.location LIKE $%d`, idx)
		args = append(args, likePattern(criteria.Location))
	}
	query += ` ORDER BY s.name, u.last_name, u.first_name`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern matches s anywhere, treating LIKE wildcards in s literally.
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func (r *doctorRepoPG) CountAppointments(ctx context.Context, id uuid.UUID) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointments WHERE doctor_id = $1`, id).Scan(&n)
	return n, err
}
