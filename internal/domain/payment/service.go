package payment

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medbook/medbook/internal/domain/appointment"
	"github.com/medbook/medbook/internal/platform/apperr"
	"github.com/medbook/medbook/internal/platform/db"
	"github.com/medbook/medbook/internal/platform/notification"
	"github.com/medbook/medbook/internal/platform/telemetry"
)

type Notifier interface {
	Notify(ctx context.Context, templateID, recipient string, data map[string]string, attachments ...notification.Attachment)
}

// Reconciler turns completed checkouts into Payment records.
type Reconciler struct {
	payments PaymentRepository
	tx       db.TxRunner
	gateway  Gateway
	notifier Notifier
	metrics  *telemetry.Metrics
	baseURL  string
	currency string
	logger   zerolog.Logger
}

func NewReconciler(payments PaymentRepository, tx db.TxRunner, gateway Gateway, notifier Notifier,
	metrics *telemetry.Metrics, baseURL, currency string, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		payments: payments,
		tx:       tx,
		gateway:  gateway,
		notifier: notifier,
		metrics:  metrics,
		baseURL:  strings.TrimRight(baseURL, "/"),
		currency: currency,
		logger:   logger,
	}
}

// charge loads the appointment for patientID. Appointments of other
// patients are reported as not found.
func (r *Reconciler) charge(ctx context.Context, patientID, appointmentID uuid.UUID, lock bool) (*Charge, error) {
	var (
		c   *Charge
		err error
	)
	if lock {
		c, err = r.payments.LockCharge(ctx, appointmentID)
	} else {
		c, err = r.payments.GetCharge(ctx, appointmentID)
	}
	if err != nil {
		return nil, err
	}
	if c.PatientID != patientID {
		return nil, apperr.NotFound("appointment")
	}
	return c, nil
}

// PaymentPage shows what a checkout for the appointment would bill, or the
// existing payment if it has been paid.
func (r *Reconciler) PaymentPage(ctx context.Context, patientID, appointmentID uuid.UUID) (*Page, error) {
	c, err := r.charge(ctx, patientID, appointmentID, false)
	if err != nil {
		return nil, err
	}
	page := &Page{Charge: c, Amount: c.Fee.StringFixed(2), Currency: r.currency}
	if c.PaymentID != nil {
		p, err := r.payments.GetByAppointment(ctx, appointmentID)
		if err != nil {
			return nil, err
		}
		page.Paid = true
		page.Payment = p
		page.Amount = p.Amount.StringFixed(2)
	}
	return page, nil
}

// CancelCheckout handles the gateway's cancel redirect. Nothing is stored:
// the appointment stays Pending and can be paid later.
func (r *Reconciler) CancelCheckout(ctx context.Context, patientID, appointmentID uuid.UUID) (*Page, error) {
	page, err := r.PaymentPage(ctx, patientID, appointmentID)
	if err != nil {
		return nil, err
	}
	page.Cancelled = true
	r.logger.Info().Str("appointment_id", appointmentID.String()).Msg("checkout cancelled")
	return page, nil
}

func (r *Reconciler) callbackURL(appointmentID uuid.UUID, outcome string) string {
	return r.baseURL + appointment.PaymentPath(appointmentID) + "/" + outcome
}

// InitiateCheckout asks the gateway for a hosted checkout billing the
// doctor's current fee. Nothing is persisted.
func (r *Reconciler) InitiateCheckout(ctx context.Context, patientID, appointmentID uuid.UUID) (*CheckoutSession, error) {
	c, err := r.charge(ctx, patientID, appointmentID, false)
	if err != nil {
		return nil, err
	}
	if c.PaymentID != nil {
		return nil, apperr.Conflict("appointment is already paid")
	}
	if c.Status == appointment.StatusCancelled {
		return nil, apperr.Conflict("appointment is cancelled")
	}

	redirect, err := r.gateway.CreateCheckoutSession(ctx, c.Fee,
		r.callbackURL(appointmentID, "success"), r.callbackURL(appointmentID, "cancel"))
	r.metrics.RecordCheckout(r.gateway.Name(), err)
	if err != nil {
		return nil, err
	}

	r.logger.Info().
		Str("appointment_id", appointmentID.String()).
		Str("provider", r.gateway.Name()).
		Str("amount", c.Fee.StringFixed(2)).
		Msg("checkout started")
	return &CheckoutSession{
		AppointmentID: appointmentID,
		Amount:        c.Fee,
		Currency:      r.currency,
		Provider:      r.gateway.Name(),
		RedirectURL:   redirect,
	}, nil
}

// ConfirmPayment records a Completed payment for the appointment at the
// doctor's current fee and confirms the appointment. Repeated or
// concurrent calls return the payment created by the first one.
func (r *Reconciler) ConfirmPayment(ctx context.Context, patientID, appointmentID uuid.UUID, externalRef string) (*Payment, error) {
	var (
		p        *Payment
		c        *Charge
		replayed bool
	)
	err := r.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		if c, err = r.charge(ctx, patientID, appointmentID, true); err != nil {
			return err
		}

		if c.PaymentID != nil {
			replayed = true
			p, err = r.payments.GetByAppointment(ctx, appointmentID)
			return err
		}
		if c.Status == appointment.StatusCancelled {
			return apperr.Conflict("appointment is cancelled")
		}

		details := "provider=" + r.gateway.Name()
		p = &Payment{
			AppointmentID:       appointmentID,
			Amount:              c.Fee,
			Status:              StatusCompleted,
			ExternalReferenceID: optionalString(externalRef),
			TransactionDetails:  &details,
		}
		created, err := r.payments.Create(ctx, p)
		if err != nil {
			return err
		}
		if !created {
			replayed = true
			p, err = r.payments.GetByAppointment(ctx, appointmentID)
			return err
		}
		return r.payments.MarkAppointmentPaid(ctx, appointmentID, p.ID)
	})
	if err != nil {
		return nil, err
	}
	r.metrics.RecordPaymentConfirmation(replayed)

	p.PatientID = c.PatientID
	p.AppointmentDate = c.AppointmentDate
	p.TimeSlot = c.TimeSlot
	p.DoctorName = c.DoctorName
	p.SpecialtyName = c.SpecialtyName

	if replayed {
		r.logger.Debug().Str("appointment_id", appointmentID.String()).Msg("payment already confirmed")
		return p, nil
	}

	r.logger.Info().
		Str("appointment_id", appointmentID.String()).
		Str("payment_id", p.ID.String()).
		Str("amount", p.Amount.StringFixed(2)).
		Msg("payment confirmed")
	r.sendConfirmation(ctx, c, p)
	return p, nil
}

func (r *Reconciler) sendConfirmation(ctx context.Context, c *Charge, p *Payment) {
	if r.notifier == nil {
		return
	}
	var attachments []notification.Attachment
	receipt, err := RenderReceipt(p, c.PatientName, r.currency)
	if err != nil {
		r.logger.Error().Err(err).Str("payment_id", p.ID.String()).Msg("receipt rendering failed")
	} else {
		attachments = append(attachments, notification.Attachment{
			Name:        ReceiptFilename(p),
			ContentType: "application/pdf",
			Data:        receipt,
		})
	}
	r.notifier.Notify(ctx, notification.TemplatePaymentConfirmed, c.PatientEmail, map[string]string{
		"patient_name": c.PatientName,
		"doctor_name":  c.DoctorName,
		"date":         c.AppointmentDate.Format(appointment.DateLayout),
		"time_slot":    c.TimeSlot,
		"amount":       r.currency + " " + p.Amount.StringFixed(2),
	}, attachments...)
}

func (r *Reconciler) History(ctx context.Context, patientID uuid.UUID) (*History, error) {
	items, err := r.payments.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return NewHistory(items), nil
}

// Receipt renders the PDF receipt of one of the patient's payments.
func (r *Reconciler) Receipt(ctx context.Context, patientID uuid.UUID, patientName string, paymentID uuid.UUID) (*Payment, []byte, error) {
	p, err := r.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, nil, err
	}
	if p.PatientID != patientID {
		return nil, nil, apperr.NotFound("payment")
	}
	pdf, err := RenderReceipt(p, patientName, r.currency)
	if err != nil {
		return nil, nil, err
	}
	return p, pdf, nil
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
