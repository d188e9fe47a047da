package identity

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/medbook/medbook/internal/platform/apperr"
	"github.com/medbook/medbook/internal/platform/auth"
	"github.com/medbook/medbook/internal/platform/db"
)

// -- Mock Repositories --

type mockUserRepo struct {
	users map[uuid.UUID]*User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[uuid.UUID]*User)}
}

func (m *mockUserRepo) Create(_ context.Context, u *User) error {
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return apperr.Conflict("account with this email already exists")
		}
	}
	u.ID = uuid.New()
	u.RegisteredAt = time.Now()
	m.users[u.ID] = u
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperr.NotFound("user")
	}
	return u, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, apperr.NotFound("user")
}

func (m *mockUserRepo) Update(_ context.Context, u *User) error {
	if _, ok := m.users[u.ID]; !ok {
		return apperr.NotFound("user")
	}
	m.users[u.ID] = u
	return nil
}

func (m *mockUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.users[id]; !ok {
		return apperr.NotFound("user")
	}
	delete(m.users, id)
	return nil
}

func (m *mockUserRepo) AddRole(_ context.Context, id uuid.UUID, role auth.Role) error {
	u, ok := m.users[id]
	if !ok {
		return apperr.NotFound("user")
	}
	roles := u.RoleSet()
	roles.Add(role)
	u.Roles = roles.Strings()
	return nil
}

func (m *mockUserRepo) CountByRole(_ context.Context, role auth.Role) (int, error) {
	n := 0
	for _, u := range m.users {
		if u.RoleSet().Has(role) {
			n++
		}
	}
	return n, nil
}

type mockProvisioner struct {
	provisioned []uuid.UUID
	err         error
}

func (m *mockProvisioner) EnsureProfile(_ context.Context, userID uuid.UUID) error {
	if m.err != nil {
		return m.err
	}
	m.provisioned = append(m.provisioned, userID)
	return nil
}

type testDeps struct {
	users       *mockUserRepo
	patients    *mockProvisioner
	revocations *auth.MemoryRevocationStore
	tokens      *auth.TokenIssuer
}

func newTestService(t *testing.T) (*Service, *testDeps) {
	t.Helper()
	deps := &testDeps{
		users:       newMockUserRepo(),
		patients:    &mockProvisioner{},
		revocations: auth.NewMemoryRevocationStore(time.Minute),
		tokens:      auth.NewTokenIssuer([]byte("identity-test-key"), time.Hour),
	}
	t.Cleanup(deps.revocations.Close)
	svc := NewService(deps.users, db.NopTx{}, &auth.BcryptHasher{Cost: bcrypt.MinCost},
		deps.tokens, deps.revocations, deps.patients, nil, zerolog.Nop())
	return svc, deps
}

func validRegistration() RegisterRequest {
	return RegisterRequest{
		Email:     "p@x.com",
		Password:  "secret1",
		FirstName: "Priya",
		LastName:  "Nair",
		Address:   "12 Lake Road",
	}
}

// -- Tests --

func TestRegister_CreatesPatientAccount(t *testing.T) {
	svc, deps := newTestService(t)

	session, err := svc.Register(context.Background(), validRegistration())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Token == "" {
		t.Error("expected a session token")
	}
	if session.RedirectTo != "/patient" {
		t.Errorf("expected redirect to /patient, got %s", session.RedirectTo)
	}
	if !session.User.RoleSet().Has(auth.RolePatient) {
		t.Errorf("expected patient role, got %v", session.User.Roles)
	}
	if session.User.PasswordHash == "secret1" {
		t.Error("password must be hashed")
	}
	if len(deps.patients.provisioned) != 1 || deps.patients.provisioned[0] != session.User.ID {
		t.Errorf("expected patient profile for new user, got %v", deps.patients.provisioned)
	}
}

func TestRegister_PasswordPolicy(t *testing.T) {
	svc, _ := newTestService(t)

	tests := map[string]string{
		"too short": "ab1",
		"no digit":  "secretpw",
	}
	for name, pw := range tests {
		t.Run(name, func(t *testing.T) {
			req := validRegistration()
			req.Password = pw
			_, err := svc.Register(context.Background(), req)
			if !apperr.IsValidation(err) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestRegister_DuplicateEmailCaseInsensitive(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.Register(context.Background(), validRegistration()); err != nil {
		t.Fatalf("first registration: %v", err)
	}

	req := validRegistration()
	req.Email = "P@X.COM"
	_, err := svc.Register(context.Background(), req)
	if !apperr.IsValidation(err) {
		t.Fatalf("expected validation error for duplicate email, got %v", err)
	}
}

func TestRegister_ProvisionFailure(t *testing.T) {
	svc, deps := newTestService(t)
	deps.patients.err = errors.New("db down")

	if _, err := svc.Register(context.Background(), validRegistration()); err == nil {
		t.Fatal("expected error when the patient profile cannot be created")
	}
}

func TestLogin(t *testing.T) {
	svc, deps := newTestService(t)
	if _, err := svc.Register(context.Background(), validRegistration()); err != nil {
		t.Fatalf("register: %v", err)
	}

	session, err := svc.Login(context.Background(), LoginRequest{Email: "P@x.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	claims, err := deps.tokens.Parse(session.Token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Subject != session.User.ID.String() {
		t.Errorf("expected subject %s, got %s", session.User.ID, claims.Subject)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	svc, _ := newTestService(t)
	svc.Register(context.Background(), validRegistration())

	_, wrongPw := svc.Login(context.Background(), LoginRequest{Email: "p@x.com", Password: "wrong1"})
	_, unknown := svc.Login(context.Background(), LoginRequest{Email: "nobody@x.com", Password: "secret1"})

	for _, err := range []error{wrongPw, unknown} {
		if !apperr.IsValidation(err) {
			t.Errorf("expected validation error, got %v", err)
		}
	}
	if wrongPw.Error() != unknown.Error() {
		t.Errorf("expected identical messages, got %q and %q", wrongPw, unknown)
	}
}

func TestLogin_RedirectPrecedence(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.CreateAccount(context.Background(), NewAccount{
		Email:     "doc@x.com",
		Password:  "secret1",
		FirstName: "Anil",
		LastName:  "Rao",
		Roles:     auth.NewRoleSet(auth.RoleDoctor, auth.RolePatient),
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	session, err := svc.Login(context.Background(), LoginRequest{Email: "doc@x.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if session.RedirectTo != "/doctor" {
		t.Errorf("expected doctor dashboard, got %s", session.RedirectTo)
	}
}

func TestLogout_RevokesSession(t *testing.T) {
	svc, deps := newTestService(t)
	session, err := svc.Register(context.Background(), validRegistration())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	claims, _ := deps.tokens.Parse(session.Token)

	if err := svc.Logout(context.Background(), claims); err != nil {
		t.Fatalf("logout: %v", err)
	}
	revoked, _ := deps.revocations.IsRevoked(context.Background(), claims.ID)
	if !revoked {
		t.Error("expected session to be revoked")
	}
}

func TestSeedAdmin(t *testing.T) {
	svc, deps := newTestService(t)

	created, err := svc.SeedAdmin(context.Background(), "admin@medbook.local", "admin123")
	if err != nil || !created {
		t.Fatalf("expected admin to be created, got %v, %v", created, err)
	}

	created, err = svc.SeedAdmin(context.Background(), "ADMIN@medbook.local", "admin123")
	if err != nil || created {
		t.Fatalf("expected second seed to be a no-op, got %v, %v", created, err)
	}

	n, _ := deps.users.CountByRole(context.Background(), auth.RoleAdmin)
	if n != 1 {
		t.Errorf("expected 1 admin, got %d", n)
	}
}

func TestSeedAdmin_PromotesExistingUser(t *testing.T) {
	svc, deps := newTestService(t)
	session, _ := svc.Register(context.Background(), validRegistration())

	created, err := svc.SeedAdmin(context.Background(), "p@x.com", "ignored1")
	if err != nil || created {
		t.Fatalf("expected promotion without creation, got %v, %v", created, err)
	}
	u, _ := deps.users.GetByID(context.Background(), session.User.ID)
	if !u.RoleSet().Has(auth.RoleAdmin) || !u.RoleSet().Has(auth.RolePatient) {
		t.Errorf("expected admin and patient roles, got %v", u.Roles)
	}
}

func TestUpdateUser_RequiresNames(t *testing.T) {
	svc, _ := newTestService(t)
	session, _ := svc.Register(context.Background(), validRegistration())

	u := *session.User
	u.FirstName = ""
	if err := svc.UpdateUser(context.Background(), &u); !apperr.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}
