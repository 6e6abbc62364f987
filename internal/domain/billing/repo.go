package billing

import (
	"context"

	"github.com/google/uuid"
)

// InvoiceRepository persists invoices and their line items. GetByID and
// ListByPatient return invoices with line items loaded. Implementations must
// honor a transaction injected through the context so the service can batch
// reads, line-item replacement, and the aggregate update into one commit.
type InvoiceRepository interface {
	Create(ctx context.Context, inv *Invoice) error
	GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	Update(ctx context.Context, inv *Invoice) error
	// UpdatePaymentState compare-and-swaps paid_amount, status, and version
	// against expectedVersion. Returns false when the row moved underneath us.
	UpdatePaymentState(ctx context.Context, inv *Invoice, expectedVersion int) (bool, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Invoice, error)
	ReplaceLineItems(ctx context.Context, invoiceID uuid.UUID, items []InvoiceLineItem) error
}

// ClaimRepository persists insurance claims and their line items.
type ClaimRepository interface {
	Create(ctx context.Context, c *InsuranceClaim) error
	GetByID(ctx context.Context, id uuid.UUID) (*InsuranceClaim, error)
	Update(ctx context.Context, c *InsuranceClaim) error
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*InsuranceClaim, error)
	ReplaceLineItems(ctx context.Context, claimID uuid.UUID, items []ClaimLineItem) error
}

// PaymentRepository persists payment records. Payments are append-only.
type PaymentRepository interface {
	Create(ctx context.Context, p *Payment) error
	ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*Payment, error)
}
