package identity

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medbook/medbook/internal/platform/apperr"
	"github.com/medbook/medbook/internal/platform/auth"
	"github.com/medbook/medbook/internal/platform/db"
)

type userRepoPG struct{ pool *pgxpool.Pool }

func NewUserRepoPG(pool *pgxpool.Pool) UserRepository { return &userRepoPG{pool: pool} }

func (r *userRepoPG) conn(ctx context.Context) db.Querier {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const userCols = `id, email, password_hash, first_name, last_name, address, roles, registered_at`

func (r *userRepoPG) scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.Address, &u.Roles, &u.RegisteredAt)
	if err != nil {
		return nil, apperr.FromDB(err, "user")
	}
	return &u, nil
}

func (r *userRepoPG) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	if u.Roles == nil {
		u.Roles = []string{}
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO users (id, email, password_hash, first_name, last_name, address, roles)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING registered_at`,
		u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Address, u.Roles,
	).Scan(&u.RegisteredAt)
	return apperr.FromDB(err, "account with this email")
}

func (r *userRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id))
}

func (r *userRepoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.scanUser(r.conn(ctx).QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE lower(email) = lower($1)`, email))
}

func (r *userRepoPG) Update(ctx context.Context, u *User) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE users SET email=$2, first_name=$3, last_name=$4, address=$5
		WHERE id = $1`,
		u.ID, u.Email, u.FirstName, u.LastName, u.Address)
	if err != nil {
		return apperr.FromDB(err, "account with this email")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("user")
	}
	return nil
}

func (r *userRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return apperr.FromDB(err, "user")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("user")
	}
	return nil
}

func (r *userRepoPG) AddRole(ctx context.Context, id uuid.UUID, role auth.Role) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE users SET roles = array_append(roles, $2)
		WHERE id = $1 AND NOT ($2 = ANY(roles))`,
		id, string(role))
	return err
}

func (r *userRepoPG) CountByRole(ctx context.Context, role auth.Role) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE $1 = ANY(roles)`, string(role)).Scan(&n)
	return n, err
}
