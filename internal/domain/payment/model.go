package payment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medbook/medbook/internal/domain/appointment"
)

type Status string

const (
	StatusPending   Status = "Pending"
	StatusCompleted Status = "Completed"
	StatusFailed    Status = "Failed"
	StatusRefunded  Status = "Refunded"
)

// Payment maps to the payments table. The appointment fields are joined in
// on reads.
type Payment struct {
	ID                  uuid.UUID       `db:"id" json:"id"`
	AppointmentID       uuid.UUID       `db:"appointment_id" json:"appointment_id"`
	Amount              decimal.Decimal `db:"amount" json:"amount"`
	Status              Status          `db:"status" json:"status"`
	ExternalReferenceID *string         `db:"external_reference_id" json:"external_reference_id,omitempty"`
	PaymentDate         time.Time       `db:"payment_date" json:"payment_date"`
	TransactionDetails  *string         `db:"transaction_details" json:"transaction_details,omitempty"`

	PatientID       uuid.UUID `db:"-" json:"-"`
	AppointmentDate time.Time `db:"-" json:"appointment_date"`
	TimeSlot        string    `db:"-" json:"time_slot"`
	DoctorName      string    `db:"-" json:"doctor_name"`
	SpecialtyName   string    `db:"-" json:"specialty_name"`
}

// Charge is an appointment together with the doctor's current fee: what a
// checkout would bill right now.
type Charge struct {
	AppointmentID   uuid.UUID          `json:"appointment_id"`
	PatientID       uuid.UUID          `json:"-"`
	DoctorID        uuid.UUID          `json:"doctor_id"`
	Status          appointment.Status `json:"status"`
	PaymentID       *uuid.UUID         `json:"payment_id,omitempty"`
	AppointmentDate time.Time          `json:"appointment_date"`
	TimeSlot        string             `json:"time_slot"`
	Fee             decimal.Decimal    `json:"fee"`
	DoctorName      string             `json:"doctor_name"`
	SpecialtyName   string             `json:"specialty_name"`
	PatientName     string             `json:"patient_name"`
	PatientEmail    string             `json:"-"`
}

// Page is what the payment page shows for an appointment.
type Page struct {
	Charge    *Charge  `json:"appointment"`
	Amount    string   `json:"amount"`
	Currency  string   `json:"currency"`
	Paid      bool     `json:"paid"`
	Payment   *Payment `json:"payment,omitempty"`
	Cancelled bool     `json:"checkout_cancelled,omitempty"`
}

// CheckoutSession is the hosted payment page the patient is sent to.
type CheckoutSession struct {
	AppointmentID uuid.UUID       `json:"appointment_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Provider      string          `json:"provider"`
	RedirectURL   string          `json:"redirect_url"`
}

// History lists a patient's payments. TotalPaid sums Completed payments only.
type History struct {
	Payments  []*Payment      `json:"payments"`
	TotalPaid decimal.Decimal `json:"total_paid"`
}

func NewHistory(payments []*Payment) *History {
	h := &History{Payments: payments, TotalPaid: decimal.Zero}
	if h.Payments == nil {
		h.Payments = []*Payment{}
	}
	for _, p := range payments {
		if p.Status == StatusCompleted {
			h.TotalPaid = h.TotalPaid.Add(p.Amount)
		}
	}
	return h
}
