package billing

import (
	"time"

	"github.com/google/uuid"
)

// BillingStatus is the lifecycle state shared by invoices and insurance claims.
type BillingStatus string

const (
	StatusDraft         BillingStatus = "draft"
	StatusPending       BillingStatus = "pending"
	StatusSubmitted     BillingStatus = "submitted"
	StatusPaid          BillingStatus = "paid"
	StatusPartiallyPaid BillingStatus = "partially_paid"
	StatusOverdue       BillingStatus = "overdue"
	StatusCancelled     BillingStatus = "cancelled"
)

var validBillingStatuses = map[BillingStatus]bool{
	StatusDraft: true, StatusPending: true, StatusSubmitted: true,
	StatusPaid: true, StatusPartiallyPaid: true, StatusOverdue: true,
	StatusCancelled: true,
}

// Valid reports whether s is a member of the closed status set.
func (s BillingStatus) Valid() bool { return validBillingStatuses[s] }

// PaymentMethod identifies how a payment was made.
type PaymentMethod string

const (
	MethodCash          PaymentMethod = "cash"
	MethodCreditCard    PaymentMethod = "credit_card"
	MethodDebitCard     PaymentMethod = "debit_card"
	MethodInsurance     PaymentMethod = "insurance"
	MethodBankTransfer  PaymentMethod = "bank_transfer"
	MethodOnlinePayment PaymentMethod = "online_payment"
)

var validPaymentMethods = map[PaymentMethod]bool{
	MethodCash: true, MethodCreditCard: true, MethodDebitCard: true,
	MethodInsurance: true, MethodBankTransfer: true, MethodOnlinePayment: true,
}

// Valid reports whether m is a member of the closed method set.
func (m PaymentMethod) Valid() bool { return validPaymentMethods[m] }

// Invoice maps to the invoice table. TotalAmount is derived from the line
// items on every create/update; PaidAmount accrues through RecordPayment.
// Version is the optimistic-concurrency token guarding the paid/status pair.
type Invoice struct {
	ID          uuid.UUID     `db:"id" json:"id"`
	PatientID   uuid.UUID     `db:"patient_id" json:"patient_id"`
	InvoiceDate time.Time     `db:"invoice_date" json:"invoice_date"`
	DueDate     *time.Time    `db:"due_date" json:"due_date,omitempty"`
	Status      BillingStatus `db:"status" json:"status"`
	TotalAmount float64       `db:"total_amount" json:"total_amount"`
	PaidAmount  float64       `db:"paid_amount" json:"paid_amount"`
	ClaimID     *uuid.UUID    `db:"claim_id" json:"claim_id,omitempty"`
	Version     int           `db:"version" json:"version"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`

	LineItems []InvoiceLineItem `db:"-" json:"line_items"`
}

// ComputeTotal returns the sum of the line item totals.
func (inv *Invoice) ComputeTotal() float64 {
	var total float64
	for i := range inv.LineItems {
		total += inv.LineItems[i].TotalPrice()
	}
	return total
}

// Outstanding returns the unpaid remainder of the invoice.
func (inv *Invoice) Outstanding() float64 {
	return inv.TotalAmount - inv.PaidAmount
}

// InvoiceLineItem maps to the invoice_line_item table.
type InvoiceLineItem struct {
	ID          uuid.UUID `db:"id" json:"id"`
	InvoiceID   uuid.UUID `db:"invoice_id" json:"invoice_id"`
	Sequence    int       `db:"sequence" json:"sequence"`
	Description string    `db:"description" json:"description"`
	Quantity    float64   `db:"quantity" json:"quantity"`
	UnitPrice   float64   `db:"unit_price" json:"unit_price"`
}

// TotalPrice is always recomputed from its factors, never stored.
func (li *InvoiceLineItem) TotalPrice() float64 {
	return li.Quantity * li.UnitPrice
}

// InsuranceClaim maps to the insurance_claim table. ApprovedAmount is set by
// the payer workflow, not derived from the line items.
type InsuranceClaim struct {
	ID             uuid.UUID     `db:"id" json:"id"`
	PatientID      uuid.UUID     `db:"patient_id" json:"patient_id"`
	ProviderID     uuid.UUID     `db:"provider_id" json:"provider_id"`
	ClaimDate      time.Time     `db:"claim_date" json:"claim_date"`
	Status         BillingStatus `db:"status" json:"status"`
	ClaimAmount    float64       `db:"claim_amount" json:"claim_amount"`
	ApprovedAmount float64       `db:"approved_amount" json:"approved_amount"`
	Notes          *string       `db:"notes" json:"notes,omitempty"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updated_at"`

	LineItems []ClaimLineItem `db:"-" json:"line_items"`
}

// ClaimLineItem maps to the claim_line_item table. Approved is set manually
// during adjudication.
type ClaimLineItem struct {
	ID                 uuid.UUID `db:"id" json:"id"`
	ClaimID            uuid.UUID `db:"claim_id" json:"claim_id"`
	Sequence           int       `db:"sequence" json:"sequence"`
	ServiceDescription string    `db:"service_description" json:"service_description"`
	ServiceCost        float64   `db:"service_cost" json:"service_cost"`
	Approved           bool      `db:"approved" json:"approved"`
}

// Payment maps to the payment table. Payments are immutable once recorded;
// only the owning invoice's paid_amount aggregate moves afterwards.
type Payment struct {
	ID             uuid.UUID     `db:"id" json:"id"`
	InvoiceID      uuid.UUID     `db:"invoice_id" json:"invoice_id"`
	PaymentDate    time.Time     `db:"payment_date" json:"payment_date"`
	Amount         float64       `db:"amount" json:"amount"`
	Method         PaymentMethod `db:"method" json:"method"`
	TransactionRef *string       `db:"transaction_ref" json:"transaction_ref,omitempty"`
	Notes          *string       `db:"notes" json:"notes,omitempty"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
}
