package billing

import "testing"

func TestBillingStatusValid(t *testing.T) {
	for _, s := range []BillingStatus{
		StatusDraft, StatusPending, StatusSubmitted, StatusPaid,
		StatusPartiallyPaid, StatusOverdue, StatusCancelled,
	} {
		if !s.Valid() {
			t.Errorf("expected %q to be valid", s)
		}
	}
	for _, s := range []BillingStatus{"", "finalized", "PAID", "open"} {
		if s.Valid() {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}

func TestPaymentMethodValid(t *testing.T) {
	for _, m := range []PaymentMethod{
		MethodCash, MethodCreditCard, MethodDebitCard,
		MethodInsurance, MethodBankTransfer, MethodOnlinePayment,
	} {
		if !m.Valid() {
			t.Errorf("expected %q to be valid", m)
		}
	}
	if PaymentMethod("barter").Valid() {
		t.Error("expected barter to be invalid")
	}
}

func TestInvoiceComputeTotal(t *testing.T) {
	inv := Invoice{
		LineItems: []InvoiceLineItem{
			{Quantity: 1, UnitPrice: 150.00},
			{Quantity: 2, UnitPrice: 25.00},
		},
	}
	if got := inv.ComputeTotal(); got != 200.00 {
		t.Errorf("expected 200.00, got %.2f", got)
	}

	empty := Invoice{}
	if got := empty.ComputeTotal(); got != 0 {
		t.Errorf("expected 0 for no line items, got %.2f", got)
	}
}

func TestInvoiceOutstanding(t *testing.T) {
	inv := Invoice{TotalAmount: 100.00, PaidAmount: 30.00}
	if got := inv.Outstanding(); got != 70.00 {
		t.Errorf("expected 70.00, got %.2f", got)
	}

	over := Invoice{TotalAmount: 100.00, PaidAmount: 120.00}
	if got := over.Outstanding(); got != -20.00 {
		t.Errorf("expected -20.00 for over-payment, got %.2f", got)
	}
}

func TestLineItemTotalPrice(t *testing.T) {
	li := InvoiceLineItem{Quantity: 2.5, UnitPrice: 40.00}
	if got := li.TotalPrice(); got != 100.00 {
		t.Errorf("expected 100.00, got %.2f", got)
	}
}
