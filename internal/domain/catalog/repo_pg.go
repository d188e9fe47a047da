package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medbook/medbook/internal/platform/apperr"
	"github.com/medbook/medbook/internal/platform/db"
)

type specialtyRepoPG struct{ pool *pgxpool.Pool }

func NewSpecialtyRepoPG(pool *pgxpool.Pool) SpecialtyRepository { return &specialtyRepoPG{pool: pool} }

func (r *specialtyRepoPG) conn(ctx context.Context) db.Querier {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const specialtyCols = `id, name, description`

func (r *specialtyRepoPG) scanSpecialty(row pgx.Row) (*Specialty, error) {
	var s Specialty
	if err := row.Scan(&s.ID, &s.Name, &s.Description); err != nil {
		return nil, apperr.FromDB(err, "specialty")
	}
	return &s, nil
}

func (r *specialtyRepoPG) Create(ctx context.Context, s *Specialty) error {
	s.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx,
		`INSERT INTO specialties (id, name, description) VALUES ($1, $2, $3)`,
		s.ID, s.Name, s.Description)
	return apperr.FromDB(err, "specialty")
}

func (r *specialtyRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Specialty, error) {
	return r.scanSpecialty(r.conn(ctx).QueryRow(ctx, `SELECT `+specialtyCols+` FROM specialties WHERE id = $1`, id))
}

func (r *specialtyRepoPG) GetByName(ctx context.Context, name string) (*Specialty, error) {
	return r.scanSpecialty(r.conn(ctx).QueryRow(ctx, `SELECT `+specialtyCols+` FROM specialties WHERE name = $1`, name))
}

func (r *specialtyRepoPG) List(ctx context.Context) ([]*Specialty, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT s.id, s.name, s.description, COUNT(d.id)
		FROM specialties s
		LEFT JOIN doctors d ON d.specialty_id = s.id
		GROUP BY s.id
		ORDER BY s.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Specialty
	for rows.Next() {
		var s Specialty
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.DoctorCount); err != nil {
			return nil, err
		}
		items = append(items, &s)
	}
	return items, rows.Err()
}

func (r *specialtyRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM specialties WHERE id = $1`, id)
	if err != nil {
		return apperr.FromDB(err, "specialty")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("specialty")
	}
	return nil
}

func (r *specialtyRepoPG) Count(ctx context.Context) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM specialties`).Scan(&n)
	return n, err
}

func (r *specialtyRepoPG) CountDoctors(ctx context.Context, id uuid.UUID) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM doctors WHERE specialty_id = $1`, id).Scan(&n)
	return n, err
}
