package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/emrstack/emr/internal/platform/db"
)

// maxPaymentAttempts bounds the compare-and-swap retry loop in RecordPayment.
const maxPaymentAttempts = 3

// Service mediates all reads and writes to billing entities. Every mutating
// operation runs its reads, computations, and writes inside one transaction
// supplied by the Runner, so an invoice's line items and its total can never
// be committed partially.
type Service struct {
	invoices InvoiceRepository
	claims   ClaimRepository
	payments PaymentRepository
	tx       db.Runner
}

func NewService(inv InvoiceRepository, cl ClaimRepository, pay PaymentRepository, tx db.Runner) *Service {
	return &Service{invoices: inv, claims: cl, payments: pay, tx: tx}
}

// -- Invoices --

// CreateInvoice persists a new invoice and its line items atomically. The
// invoice is always created in draft with its total computed from the line
// items; caller-supplied status, total, and dates are ignored. Creation is
// not idempotent: equivalent input yields distinct invoices.
func (s *Service) CreateInvoice(ctx context.Context, inv *Invoice) error {
	if inv.PatientID == uuid.Nil {
		return fmt.Errorf("%w: patient_id is required", ErrValidation)
	}
	if len(inv.LineItems) == 0 {
		return fmt.Errorf("%w: invoice requires at least one line item", ErrValidation)
	}

	inv.Status = StatusDraft
	inv.InvoiceDate = time.Now().UTC()
	inv.PaidAmount = 0
	inv.TotalAmount = inv.ComputeTotal()

	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.invoices.Create(ctx, inv); err != nil {
			return err
		}
		return s.invoices.ReplaceLineItems(ctx, inv.ID, inv.LineItems)
	})
}

// UpdateInvoice replaces the caller-mutable fields of an existing invoice:
// status, paid amount, due date, and the full line-item collection. The total
// is recomputed from the new items. Status changes are caller-authoritative;
// no transition table is enforced, only membership in the closed status set.
func (s *Service) UpdateInvoice(ctx context.Context, inv *Invoice) error {
	if inv.Status != "" && !inv.Status.Valid() {
		return fmt.Errorf("%w: invalid invoice status %q", ErrValidation, inv.Status)
	}
	if len(inv.LineItems) == 0 {
		return fmt.Errorf("%w: invoice requires at least one line item", ErrValidation)
	}

	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		existing, err := s.invoices.GetByID(ctx, inv.ID)
		if err != nil {
			return err
		}

		if inv.Status != "" {
			existing.Status = inv.Status
		}
		existing.PaidAmount = inv.PaidAmount
		existing.DueDate = inv.DueDate
		existing.ClaimID = inv.ClaimID
		existing.LineItems = inv.LineItems
		existing.TotalAmount = existing.ComputeTotal()

		if err := s.invoices.ReplaceLineItems(ctx, existing.ID, existing.LineItems); err != nil {
			return err
		}

		ok, err := s.invoices.UpdatePaymentState(ctx, existing, existing.Version)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: invoice %s changed during update", ErrConflict, existing.ID)
		}

		*inv = *existing
		return nil
	})
}

// GetInvoice returns the invoice with its line items, or (nil, nil) when it
// does not exist. Absence on a read is not a service-level error; the caller
// decides how to surface it.
func (s *Service) GetInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	inv, err := s.invoices.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// GetPatientInvoices returns all of the patient's invoices with line items,
// in creation order.
func (s *Service) GetPatientInvoices(ctx context.Context, patientID uuid.UUID) ([]*Invoice, error) {
	return s.invoices.ListByPatient(ctx, patientID)
}

// -- Insurance claims --

// SubmitInsuranceClaim persists a new claim and its line items atomically.
// Status is forced to pending and the claim date is set to submission time.
func (s *Service) SubmitInsuranceClaim(ctx context.Context, c *InsuranceClaim) error {
	if c.PatientID == uuid.Nil {
		return fmt.Errorf("%w: patient_id is required", ErrValidation)
	}
	if c.ProviderID == uuid.Nil {
		return fmt.Errorf("%w: provider_id is required", ErrValidation)
	}

	c.Status = StatusPending
	c.ClaimDate = time.Now().UTC()
	c.ApprovedAmount = 0

	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.claims.Create(ctx, c); err != nil {
			return err
		}
		return s.claims.ReplaceLineItems(ctx, c.ID, c.LineItems)
	})
}

// UpdateInsuranceClaim replaces status, approved amount, notes, and the full
// line-item collection of an existing claim. The approved amount is
// caller-supplied; no reconciliation against line-item costs is performed.
func (s *Service) UpdateInsuranceClaim(ctx context.Context, c *InsuranceClaim) error {
	if c.Status != "" && !c.Status.Valid() {
		return fmt.Errorf("%w: invalid claim status %q", ErrValidation, c.Status)
	}

	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		existing, err := s.claims.GetByID(ctx, c.ID)
		if err != nil {
			return err
		}

		if c.Status != "" {
			existing.Status = c.Status
		}
		existing.ApprovedAmount = c.ApprovedAmount
		existing.Notes = c.Notes
		existing.LineItems = c.LineItems

		if err := s.claims.ReplaceLineItems(ctx, existing.ID, existing.LineItems); err != nil {
			return err
		}
		if err := s.claims.Update(ctx, existing); err != nil {
			return err
		}

		*c = *existing
		return nil
	})
}

// GetPatientClaims returns all claims (with line items) for the patient.
func (s *Service) GetPatientClaims(ctx context.Context, patientID uuid.UUID) ([]*InsuranceClaim, error) {
	return s.claims.ListByPatient(ctx, patientID)
}

// -- Payments --

// RecordPayment appends an immutable payment record and accrues the owning
// invoice's paid amount, promoting its status to paid when the accrued amount
// covers the total and to partially_paid otherwise. The status is recomputed
// from the paid/total comparison regardless of the invoice's prior status.
//
// The invoice update is a compare-and-swap on the version column so two
// concurrent payments against the same invoice cannot lose an accrual; a lost
// race re-runs the whole transaction, and exhausting the bounded retry loop
// surfaces ErrConflict.
func (s *Service) RecordPayment(ctx context.Context, p *Payment) error {
	if p.InvoiceID == uuid.Nil {
		return fmt.Errorf("%w: invoice_id is required", ErrValidation)
	}
	if p.Amount <= 0 {
		return fmt.Errorf("%w: payment amount must be positive", ErrValidation)
	}
	if !p.Method.Valid() {
		return fmt.Errorf("%w: invalid payment method %q", ErrValidation, p.Method)
	}

	var lastErr error
	for attempt := 0; attempt < maxPaymentAttempts; attempt++ {
		lastErr = s.tx.RunInTx(ctx, func(ctx context.Context) error {
			inv, err := s.invoices.GetByID(ctx, p.InvoiceID)
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					return fmt.Errorf("%w: invoice %s", ErrNotFound, p.InvoiceID)
				}
				return err
			}

			inv.PaidAmount += p.Amount
			if inv.PaidAmount >= inv.TotalAmount {
				inv.Status = StatusPaid
			} else {
				inv.Status = StatusPartiallyPaid
			}

			ok, err := s.invoices.UpdatePaymentState(ctx, inv, inv.Version)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: invoice %s", ErrConflict, inv.ID)
			}

			p.PaymentDate = time.Now().UTC()
			return s.payments.Create(ctx, p)
		})

		if lastErr == nil || !errors.Is(lastErr, ErrConflict) {
			return lastErr
		}
	}
	return lastErr
}

// ListInvoicePayments returns the payment history of an invoice.
func (s *Service) ListInvoicePayments(ctx context.Context, invoiceID uuid.UUID) ([]*Payment, error) {
	return s.payments.ListByInvoice(ctx, invoiceID)
}

// -- Aggregates --

// CalculateOutstandingBalance sums (total - paid) over every invoice of the
// patient whose status is not paid. A patient with no outstanding invoices
// yields zero. Pure read; an over-paid invoice that is not marked paid
// contributes its negative remainder.
func (s *Service) CalculateOutstandingBalance(ctx context.Context, patientID uuid.UUID) (float64, error) {
	invoices, err := s.invoices.ListByPatient(ctx, patientID)
	if err != nil {
		return 0, err
	}

	var balance float64
	for _, inv := range invoices {
		if inv.Status == StatusPaid {
			continue
		}
		balance += inv.Outstanding()
	}
	return balance, nil
}
