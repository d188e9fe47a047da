package reporting

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medbook/medbook/internal/domain/appointment"
	"github.com/medbook/medbook/internal/domain/payment"
)

// AppointmentFact is one appointment as seen by reports. The pointer
// fields are nil when a link in the appointment -> doctor -> specialty or
// appointment -> patient chain is missing.
type AppointmentFact struct {
	ID              uuid.UUID           `json:"id"`
	Status          appointment.Status  `json:"status"`
	AppointmentDate time.Time           `json:"appointment_date"`
	TimeSlot        string              `json:"time_slot"`
	PatientID       *uuid.UUID          `json:"patient_id"`
	PatientName     *string             `json:"patient_name"`
	DoctorName      *string             `json:"doctor_name"`
	SpecialtyName   *string             `json:"specialty"`
	PaymentStatus   *payment.Status     `json:"payment_status"`
	PaymentAmount   decimal.NullDecimal `json:"payment_amount"`
}

// PaymentFact is one payment with the links reports follow.
type PaymentFact struct {
	ID            uuid.UUID       `json:"id"`
	AppointmentID *uuid.UUID      `json:"appointment_id"`
	Amount        decimal.Decimal `json:"amount"`
	Status        payment.Status  `json:"status"`
	PaymentDate   time.Time       `json:"payment_date"`
	PatientID     *uuid.UUID      `json:"patient_id"`
	PatientName   *string         `json:"patient_name"`
	DoctorName    *string         `json:"doctor_name"`
	SpecialtyName *string         `json:"specialty"`
}

type PatientFact struct {
	ID    uuid.UUID
	Name  string
	Email string
}

type StatusCount struct {
	Status appointment.Status `json:"status"`
	Count  int                `json:"count"`
}

type SpecialtyStat struct {
	Specialty    string          `json:"specialty"`
	Appointments int             `json:"appointments"`
	Revenue      decimal.Decimal `json:"revenue"`
}

type PatientStat struct {
	PatientID    uuid.UUID       `json:"patient_id"`
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	Appointments int             `json:"appointments"`
	Completed    int             `json:"completed"`
	Cancelled    int             `json:"cancelled"`
	TotalSpent   decimal.Decimal `json:"total_spent"`
}

var appointmentStatuses = []appointment.Status{
	appointment.StatusPending,
	appointment.StatusConfirmed,
	appointment.StatusCompleted,
	appointment.StatusCancelled,
	appointment.StatusRescheduled,
}

// CountByStatus counts appointments per status. Every known status is
// listed, and the counts always add up to len(appts).
func CountByStatus(appts []AppointmentFact) []StatusCount {
	counts := make(map[appointment.Status]int, len(appointmentStatuses))
	for _, a := range appts {
		counts[a.Status]++
	}

	out := make([]StatusCount, 0, len(counts))
	for _, s := range appointmentStatuses {
		out = append(out, StatusCount{Status: s, Count: counts[s]})
		delete(counts, s)
	}
	var extra []appointment.Status
	for s := range counts {
		extra = append(extra, s)
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	for _, s := range extra {
		out = append(out, StatusCount{Status: s, Count: counts[s]})
	}
	return out
}

func completed(p PaymentFact) bool { return p.Status == payment.StatusCompleted }

// TotalRevenue sums Completed payments.
func TotalRevenue(payments []PaymentFact) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		if completed(p) {
			total = total.Add(p.Amount)
		}
	}
	return total
}

// BySpecialty counts appointments and Completed revenue per specialty,
// sorted by name. Facts without a specialty are skipped.
func BySpecialty(appts []AppointmentFact, payments []PaymentFact) []SpecialtyStat {
	stats := make(map[string]*SpecialtyStat)
	get := func(name string) *SpecialtyStat {
		s, ok := stats[name]
		if !ok {
			s = &SpecialtyStat{Specialty: name, Revenue: decimal.Zero}
			stats[name] = s
		}
		return s
	}

	for _, a := range appts {
		if a.SpecialtyName == nil {
			continue
		}
		get(*a.SpecialtyName).Appointments++
	}
	for _, p := range payments {
		if p.SpecialtyName == nil || !completed(p) {
			continue
		}
		s := get(*p.SpecialtyName)
		s.Revenue = s.Revenue.Add(p.Amount)
	}

	out := make([]SpecialtyStat, 0, len(stats))
	for _, s := range stats {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Specialty < out[j].Specialty })
	return out
}

// NewestAppointments returns a copy of appts ordered by appointment date,
// latest first.
func NewestAppointments(appts []AppointmentFact) []AppointmentFact {
	out := make([]AppointmentFact, len(appts))
	copy(out, appts)
	sort.SliceStable(out, func(i, j int) bool { return out[i].AppointmentDate.After(out[j].AppointmentDate) })
	return out
}

// NewestPayments returns a copy of payments ordered by payment date, latest
// first.
func NewestPayments(payments []PaymentFact) []PaymentFact {
	out := make([]PaymentFact, len(payments))
	copy(out, payments)
	sort.SliceStable(out, func(i, j int) bool { return out[i].PaymentDate.After(out[j].PaymentDate) })
	return out
}

// PerPatient builds one row per patient, busiest patients first. Ties keep
// the order of patients. Appointments and payments that cannot be traced
// to a listed patient are skipped.
func PerPatient(patients []PatientFact, appts []AppointmentFact, payments []PaymentFact) []PatientStat {
	index := make(map[uuid.UUID]*PatientStat, len(patients))
	out := make([]PatientStat, len(patients))
	for i, p := range patients {
		out[i] = PatientStat{PatientID: p.ID, Name: p.Name, Email: p.Email, TotalSpent: decimal.Zero}
		index[p.ID] = &out[i]
	}

	for _, a := range appts {
		if a.PatientID == nil {
			continue
		}
		s, ok := index[*a.PatientID]
		if !ok {
			continue
		}
		s.Appointments++
		switch a.Status {
		case appointment.StatusCompleted:
			s.Completed++
		case appointment.StatusCancelled:
			s.Cancelled++
		}
	}
	for _, p := range payments {
		if p.PatientID == nil || !completed(p) {
			continue
		}
		if s, ok := index[*p.PatientID]; ok {
			s.TotalSpent = s.TotalSpent.Add(p.Amount)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Appointments > out[j].Appointments })
	return out
}
