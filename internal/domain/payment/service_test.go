package payment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medbook/medbook/internal/domain/appointment"
	"github.com/medbook/medbook/internal/platform/apperr"
	"github.com/medbook/medbook/internal/platform/db"
	"github.com/medbook/medbook/internal/platform/notification"
	"github.com/medbook/medbook/internal/platform/telemetry"
)

// mockPaymentRepo keeps the unique appointment_id constraint of the real
// table: a second Create for the same appointment writes nothing.
type mockPaymentRepo struct {
	mu       sync.Mutex
	charges  map[uuid.UUID]*Charge
	payments map[uuid.UUID]*Payment
	creates  int
}

func newMockPaymentRepo() *mockPaymentRepo {
	return &mockPaymentRepo{
		charges:  make(map[uuid.UUID]*Charge),
		payments: make(map[uuid.UUID]*Payment),
	}
}

func (m *mockPaymentRepo) GetCharge(_ context.Context, id uuid.UUID) (*Charge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.charges[id]
	if !ok {
		return nil, apperr.NotFound("appointment")
	}
	cp := *c
	return &cp, nil
}

func (m *mockPaymentRepo) LockCharge(ctx context.Context, id uuid.UUID) (*Charge, error) {
	return m.GetCharge(ctx, id)
}

func (m *mockPaymentRepo) GetByID(_ context.Context, id uuid.UUID) (*Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("payment")
}

func (m *mockPaymentRepo) GetByAppointment(_ context.Context, appointmentID uuid.UUID) (*Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[appointmentID]
	if !ok {
		return nil, apperr.NotFound("payment")
	}
	cp := *p
	return &cp, nil
}

func (m *mockPaymentRepo) Create(_ context.Context, p *Payment) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.payments[p.AppointmentID]; exists {
		return false, nil
	}
	m.creates++
	p.ID = uuid.New()
	p.PaymentDate = time.Now()
	cp := *p
	if c, ok := m.charges[p.AppointmentID]; ok {
		cp.PatientID = c.PatientID
		cp.DoctorName = c.DoctorName
		cp.AppointmentDate = c.AppointmentDate
	}
	m.payments[p.AppointmentID] = &cp
	return true, nil
}

func (m *mockPaymentRepo) MarkAppointmentPaid(_ context.Context, appointmentID, paymentID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.charges[appointmentID]
	if !ok {
		return apperr.NotFound("appointment")
	}
	c.PaymentID = &paymentID
	c.Status = appointment.StatusConfirmed
	return nil
}

func (m *mockPaymentRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Payment
	for _, p := range m.payments {
		if p.PatientID == patientID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

type stubGateway struct {
	err        error
	amount     decimal.Decimal
	successURL string
	cancelURL  string
}

func (g *stubGateway) Name() string { return "stub" }

func (g *stubGateway) CreateCheckoutSession(_ context.Context, amount decimal.Decimal, successURL, cancelURL string) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	g.amount, g.successURL, g.cancelURL = amount, successURL, cancelURL
	return "https://pay.example/session/1", nil
}

type fixture struct {
	svc     *Reconciler
	repo    *mockPaymentRepo
	gateway *stubGateway
	email   *notification.MockEmailSender
	metrics *telemetry.Metrics
	charge  *Charge
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newMockPaymentRepo()
	charge := &Charge{
		AppointmentID:   uuid.New(),
		PatientID:       uuid.New(),
		DoctorID:        uuid.New(),
		Status:          appointment.StatusPending,
		AppointmentDate: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		TimeSlot:        "10:00",
		Fee:             decimal.RequireFromString("750.50"),
		DoctorName:      "Lisa Cuddy",
		SpecialtyName:   "Cardiology",
		PatientName:     "Pat Doe",
		PatientEmail:    "p@x.com",
	}
	repo.charges[charge.AppointmentID] = charge

	gw := &stubGateway{}
	email := &notification.MockEmailSender{}
	metrics := telemetry.New("test")
	notifier := notification.NewNotifier(email, notification.NewTemplateEngine(), metrics, zerolog.Nop())
	svc := NewReconciler(repo, db.NopTx{}, gw, notifier, metrics, "https://medbook.test", "INR", zerolog.Nop())
	return &fixture{svc: svc, repo: repo, gateway: gw, email: email, metrics: metrics, charge: charge}
}

func TestInitiateCheckout(t *testing.T) {
	f := newFixture(t)

	session, err := f.svc.InitiateCheckout(context.Background(), f.charge.PatientID, f.charge.AppointmentID)
	require.NoError(t, err)

	assert.Equal(t, "https://pay.example/session/1", session.RedirectURL)
	assert.True(t, session.Amount.Equal(f.charge.Fee))
	assert.True(t, f.gateway.amount.Equal(f.charge.Fee))
	assert.Equal(t, "https://medbook.test/patient/payment/"+f.charge.AppointmentID.String()+"/success", f.gateway.successURL)
	assert.Equal(t, "https://medbook.test/patient/payment/"+f.charge.AppointmentID.String()+"/cancel", f.gateway.cancelURL)
	assert.Empty(t, f.repo.payments, "checkout must not persist anything")
}

func TestInitiateCheckout_Errors(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.InitiateCheckout(context.Background(), f.charge.PatientID, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.InitiateCheckout(context.Background(), uuid.New(), f.charge.AppointmentID)
	assert.ErrorIs(t, err, apperr.ErrNotFound, "other patients' appointments look missing")

	f.gateway.err = errors.New("gateway down")
	_, err = f.svc.InitiateCheckout(context.Background(), f.charge.PatientID, f.charge.AppointmentID)
	assert.EqualError(t, err, "gateway down")
}

func TestInitiateCheckout_AlreadyPaid(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ConfirmPayment(context.Background(), f.charge.PatientID, f.charge.AppointmentID, "")
	require.NoError(t, err)

	_, err = f.svc.InitiateCheckout(context.Background(), f.charge.PatientID, f.charge.AppointmentID)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestConfirmPayment(t *testing.T) {
	f := newFixture(t)

	p, err := f.svc.ConfirmPayment(context.Background(), f.charge.PatientID, f.charge.AppointmentID, "pay_123")
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, p.Status)
	assert.True(t, p.Amount.Equal(decimal.RequireFromString("750.50")))
	require.NotNil(t, p.ExternalReferenceID)
	assert.Equal(t, "pay_123", *p.ExternalReferenceID)
	assert.Equal(t, appointment.StatusConfirmed, f.charge.Status)
	require.NotNil(t, f.charge.PaymentID)
	assert.Equal(t, p.ID, *f.charge.PaymentID)

	calls := f.email.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "p@x.com", calls[0].To)
	assert.Contains(t, calls[0].Body, "INR 750.50")
	require.Len(t, calls[0].Attachments, 1)
	assert.Equal(t, "application/pdf", calls[0].Attachments[0].ContentType)
}

func TestConfirmPayment_UsesCurrentFee(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.InitiateCheckout(context.Background(), f.charge.PatientID, f.charge.AppointmentID)
	require.NoError(t, err)

	f.charge.Fee = decimal.NewFromInt(900)
	p, err := f.svc.ConfirmPayment(context.Background(), f.charge.PatientID, f.charge.AppointmentID, "")
	require.NoError(t, err)
	assert.True(t, p.Amount.Equal(decimal.NewFromInt(900)))
}

func TestConfirmPayment_Twice(t *testing.T) {
	f := newFixture(t)

	first, err := f.svc.ConfirmPayment(context.Background(), f.charge.PatientID, f.charge.AppointmentID, "")
	require.NoError(t, err)
	f.charge.Fee = decimal.NewFromInt(1)
	second, err := f.svc.ConfirmPayment(context.Background(), f.charge.PatientID, f.charge.AppointmentID, "")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.Amount.Equal(first.Amount))
	assert.Equal(t, 1, f.repo.creates)
	assert.Len(t, f.email.Calls(), 1)
}

func TestConfirmPayment_Concurrent(t *testing.T) {
	f := newFixture(t)

	const callers = 16
	ids := make([]uuid.UUID, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := f.svc.ConfirmPayment(context.Background(), f.charge.PatientID, f.charge.AppointmentID, "")
			if assert.NoError(t, err) {
				ids[i] = p.ID
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, f.repo.creates)
	assert.Len(t, f.repo.payments, 1)
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.Equal(t, appointment.StatusConfirmed, f.charge.Status)
	assert.Len(t, f.email.Calls(), 1)
}

func TestConfirmPayment_UnknownAppointment(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ConfirmPayment(context.Background(), f.charge.PatientID, uuid.New(), "")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Empty(t, f.repo.payments)
}

func TestConfirmPayment_Cancelled(t *testing.T) {
	f := newFixture(t)
	f.charge.Status = appointment.StatusCancelled

	_, err := f.svc.ConfirmPayment(context.Background(), f.charge.PatientID, f.charge.AppointmentID, "")
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Empty(t, f.repo.payments)
}

func TestCancelCheckout(t *testing.T) {
	f := newFixture(t)

	page, err := f.svc.CancelCheckout(context.Background(), f.charge.PatientID, f.charge.AppointmentID)
	require.NoError(t, err)
	assert.True(t, page.Cancelled)
	assert.False(t, page.Paid)
	assert.Equal(t, "750.50", page.Amount)
	assert.Equal(t, appointment.StatusPending, f.charge.Status)
}

func TestPaymentPage_Paid(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ConfirmPayment(context.Background(), f.charge.PatientID, f.charge.AppointmentID, "")
	require.NoError(t, err)

	page, err := f.svc.PaymentPage(context.Background(), f.charge.PatientID, f.charge.AppointmentID)
	require.NoError(t, err)
	assert.True(t, page.Paid)
	require.NotNil(t, page.Payment)
}

func TestHistory_TotalsCompletedOnly(t *testing.T) {
	patientID := uuid.New()
	h := NewHistory([]*Payment{
		{PatientID: patientID, Amount: decimal.NewFromInt(500), Status: StatusCompleted},
		{PatientID: patientID, Amount: decimal.NewFromInt(300), Status: StatusRefunded},
		{PatientID: patientID, Amount: decimal.RequireFromString("99.99"), Status: StatusCompleted},
	})
	assert.Equal(t, "599.99", h.TotalPaid.StringFixed(2))

	empty := NewHistory(nil)
	assert.NotNil(t, empty.Payments)
	assert.True(t, empty.TotalPaid.IsZero())
}

func TestReceipt(t *testing.T) {
	f := newFixture(t)
	p, err := f.svc.ConfirmPayment(context.Background(), f.charge.PatientID, f.charge.AppointmentID, "")
	require.NoError(t, err)

	got, pdf, err := f.svc.Receipt(context.Background(), f.charge.PatientID, "Pat Doe", p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, "%PDF", string(pdf[:4]))

	_, _, err = f.svc.Receipt(context.Background(), uuid.New(), "Someone", p.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
