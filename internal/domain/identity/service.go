package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medbook/medbook/internal/platform/apperr"
	"github.com/medbook/medbook/internal/platform/auth"
	"github.com/medbook/medbook/internal/platform/db"
	"github.com/medbook/medbook/internal/platform/telemetry"
)

// PatientProvisioner creates the patient profile that goes with a newly
// registered account.
type PatientProvisioner interface {
	EnsureProfile(ctx context.Context, userID uuid.UUID) error
}

type Service struct {
	users       UserRepository
	tx          db.TxRunner
	hasher      auth.PasswordHasher
	tokens      *auth.TokenIssuer
	revocations auth.RevocationStore
	patients    PatientProvisioner
	metrics     *telemetry.Metrics
	logger      zerolog.Logger
}

func NewService(users UserRepository, tx db.TxRunner, hasher auth.PasswordHasher, tokens *auth.TokenIssuer,
	revocations auth.RevocationStore, patients PatientProvisioner, metrics *telemetry.Metrics, logger zerolog.Logger) *Service {
	return &Service{
		users:       users,
		tx:          tx,
		hasher:      hasher,
		tokens:      tokens,
		revocations: revocations,
		patients:    patients,
		metrics:     metrics,
		logger:      logger,
	}
}

func badCredentials() error {
	return apperr.Invalid("password", "invalid email or password")
}

// Register creates a patient account and its patient profile in one
// transaction and signs the new user in.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	var user *User
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.CreateAccount(ctx, NewAccount{
			Email:     req.Email,
			Password:  req.Password,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Address:   req.Address,
			Roles:     auth.NewRoleSet(auth.RolePatient),
		})
		if err != nil {
			return err
		}
		if s.patients != nil {
			return s.patients.EnsureProfile(ctx, user.ID)
		}
		return nil
	})
	s.metrics.RecordAuthAttempt("register", err)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", user.ID.String()).Msg("patient registered")
	return s.issueSession(user)
}

// CreateAccount validates acc and inserts a user holding acc.Roles. It joins
// the caller's transaction when ctx carries one.
func (s *Service) CreateAccount(ctx context.Context, acc NewAccount) (*User, error) {
	acc.Email = normalizeEmail(acc.Email)
	if err := apperr.Validate(acc); err != nil {
		return nil, err
	}
	if len(acc.Roles) == 0 {
		return nil, fmt.Errorf("at least one role is required")
	}

	if existing, err := s.users.GetByEmail(ctx, acc.Email); err == nil && existing != nil {
		return nil, apperr.Invalid("email", "an account with this email already exists")
	} else if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(acc.Password)
	if err != nil {
		return nil, err
	}
	u := &User{
		Email:        acc.Email,
		PasswordHash: hash,
		FirstName:    acc.FirstName,
		LastName:     acc.LastName,
		Address:      optionalString(acc.Address),
		Roles:        acc.Roles.Strings(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login checks credentials and issues a session. Unknown emails and wrong
// passwords produce the same error.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	req.Email = normalizeEmail(req.Email)
	if err := apperr.Validate(req); err != nil {
		return nil, err
	}

	session, err := s.login(ctx, req)
	s.metrics.RecordAuthAttempt("login", err)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", session.User.ID.String()).Msg("user signed in")
	return session, nil
}

func (s *Service) login(ctx context.Context, req LoginRequest) (*Session, error) {
	u, err := s.users.GetByEmail(ctx, req.Email)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, badCredentials()
	}
	if err != nil {
		return nil, err
	}
	if !s.hasher.Compare(u.PasswordHash, req.Password) {
		return nil, badCredentials()
	}
	return s.issueSession(u)
}

func (s *Service) issueSession(u *User) (*Session, error) {
	roles := u.RoleSet()
	token, claims, err := s.tokens.Issue(u.ID, u.Email, roles)
	if err != nil {
		return nil, err
	}
	return &Session{
		Token:      token,
		ExpiresAt:  claims.ExpiresAt.Time,
		RedirectTo: roles.DashboardPath(),
		User:       u,
	}, nil
}

// Logout revokes the session until it would have expired.
func (s *Service) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil {
		return nil
	}
	expires := time.Now().Add(s.tokens.TTL())
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}
	if err := s.revocations.Revoke(ctx, claims.ID, expires); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	s.logger.Info().Str("user_id", claims.Subject).Msg("user signed out")
	return nil
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, id)
}

// UpdateUser saves name, email and address changes.
func (s *Service) UpdateUser(ctx context.Context, u *User) error {
	u.Email = normalizeEmail(u.Email)
	if u.Email == "" {
		return apperr.Invalid("email", "is required")
	}
	if u.FirstName == "" {
		return apperr.Invalid("first_name", "is required")
	}
	if u.LastName == "" {
		return apperr.Invalid("last_name", "is required")
	}
	return s.users.Update(ctx, u)
}

func (s *Service) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return s.users.Delete(ctx, id)
}

func (s *Service) CountByRole(ctx context.Context, role auth.Role) (int, error) {
	return s.users.CountByRole(ctx, role)
}

// SeedAdmin makes sure an admin account exists for email. An existing user
// with that email is granted the admin role instead.
func (s *Service) SeedAdmin(ctx context.Context, email, password string) (bool, error) {
	existing, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	switch {
	case err == nil:
		if existing.RoleSet().Has(auth.RoleAdmin) {
			return false, nil
		}
		return false, s.users.AddRole(ctx, existing.ID, auth.RoleAdmin)
	case !errors.Is(err, apperr.ErrNotFound):
		return false, err
	}

	u, err := s.CreateAccount(ctx, NewAccount{
		Email:     email,
		Password:  password,
		FirstName: "System",
		LastName:  "Administrator",
		Roles:     auth.NewRoleSet(auth.RoleAdmin),
	})
	if err != nil {
		return false, fmt.Errorf("seed admin: %w", err)
	}
	s.logger.Info().Str("user_id", u.ID.String()).Msg("admin account seeded")
	return true, nil
}
