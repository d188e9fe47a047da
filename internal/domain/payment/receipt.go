package payment

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/medbook/medbook/internal/domain/appointment"
)

// RenderReceipt draws a one-page PDF receipt for a completed payment.
func RenderReceipt(p *Payment, patientName, currency string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(0, 70, 140)
	pdf.CellFormat(0, 10, "MedBook - Payment Receipt", "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "B", 12)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 10, "Appointment", "1", 1, "C", false, 0, "")
	receiptRow(pdf, "Appointment ID", p.AppointmentID.String(), false)
	receiptRow(pdf, "Patient", patientName, false)
	receiptRow(pdf, "Doctor", "Dr. "+p.DoctorName, false)
	receiptRow(pdf, "Specialty", p.SpecialtyName, false)
	receiptRow(pdf, "Date", p.AppointmentDate.Format(appointment.DateLayout), false)
	receiptRow(pdf, "Time Slot", p.TimeSlot, false)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 10, "Payment", "1", 1, "C", false, 0, "")
	receiptRow(pdf, "Receipt No.", p.ID.String(), false)
	receiptRow(pdf, "Status", string(p.Status), false)
	receiptRow(pdf, "Paid On", p.PaymentDate.Format("2006-01-02 15:04 MST"), false)
	if p.ExternalReferenceID != nil {
		receiptRow(pdf, "Reference", *p.ExternalReferenceID, false)
	}
	receiptRow(pdf, "Amount Paid", fmt.Sprintf("%s %s", currency, p.Amount.StringFixed(2)), true)

	pdf.SetY(pdf.GetY() + 12)
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 10, "This is a computer generated receipt", "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return buf.Bytes(), nil
}

func receiptRow(pdf *gofpdf.Fpdf, label, value string, bold bool) {
	if bold {
		pdf.SetFont("Arial", "B", 12)
	} else {
		pdf.SetFont("Arial", "", 10)
	}
	pdf.CellFormat(45, 10, label, "1", 0, "", false, 0, "")
	pdf.CellFormat(0, 10, value, "1", 1, "", false, 0, "")
}

// ReceiptFilename is the attachment name used for a payment's receipt.
func ReceiptFilename(p *Payment) string {
	return "receipt-" + p.ID.String()[:8] + ".pdf"
}
