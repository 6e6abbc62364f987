package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/emrstack/emr/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// conn returns the transaction injected by db.RunInTx when present, falling
// back to the pool for plain reads.
func conn(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}

// =========== Invoice Repository ===========

type invoiceRepoPG struct{ pool *pgxpool.Pool }

func NewInvoiceRepoPG(pool *pgxpool.Pool) InvoiceRepository { return &invoiceRepoPG{pool: pool} }

const invoiceCols = `id, patient_id, invoice_date, due_date, status,
	total_amount, paid_amount, claim_id, version, created_at, updated_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.PatientID, &inv.InvoiceDate, &inv.DueDate, &inv.Status,
		&inv.TotalAmount, &inv.PaidAmount, &inv.ClaimID, &inv.Version, &inv.CreatedAt, &inv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: invoice", ErrNotFound)
	}
	return &inv, err
}

func (r *invoiceRepoPG) Create(ctx context.Context, inv *Invoice) error {
	inv.ID = uuid.New()
	inv.Version = 1
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO invoice (id, patient_id, invoice_date, due_date, status,
			total_amount, paid_amount, claim_id, version)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		inv.ID, inv.PatientID, inv.InvoiceDate, inv.DueDate, inv.Status,
		inv.TotalAmount, inv.PaidAmount, inv.ClaimID, inv.Version)
	return err
}

func (r *invoiceRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	inv, err := scanInvoice(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+invoiceCols+` FROM invoice WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	items, err := r.lineItems(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	inv.LineItems = items
	return inv, nil
}

func (r *invoiceRepoPG) Update(ctx context.Context, inv *Invoice) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE invoice SET status=$2, due_date=$3, total_amount=$4, paid_amount=$5,
			claim_id=$6, updated_at=NOW()
		WHERE id = $1`,
		inv.ID, inv.Status, inv.DueDate, inv.TotalAmount, inv.PaidAmount, inv.ClaimID)
	return err
}

func (r *invoiceRepoPG) UpdatePaymentState(ctx context.Context, inv *Invoice, expectedVersion int) (bool, error) {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE invoice SET status=$2, due_date=$3, total_amount=$4, paid_amount=$5,
			claim_id=$6, version=version+1, updated_at=NOW()
		WHERE id = $1 AND version = $7`,
		inv.ID, inv.Status, inv.DueDate, inv.TotalAmount, inv.PaidAmount, inv.ClaimID,
		expectedVersion)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	inv.Version = expectedVersion + 1
	return true, nil
}

func (r *invoiceRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Invoice, error) {
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+invoiceCols+` FROM invoice WHERE patient_id = $1 ORDER BY created_at`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []*Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, inv := range invoices {
		items, err := r.lineItems(ctx, inv.ID)
		if err != nil {
			return nil, err
		}
		inv.LineItems = items
	}
	return invoices, nil
}

// ReplaceLineItems deletes the invoice's items and inserts the new set.
// Runs inside the service's transaction so the swap is atomic with the
// invoice's recomputed total.
func (r *invoiceRepoPG) ReplaceLineItems(ctx context.Context, invoiceID uuid.UUID, items []InvoiceLineItem) error {
	q := conn(ctx, r.pool)
	if _, err := q.Exec(ctx, `DELETE FROM invoice_line_item WHERE invoice_id = $1`, invoiceID); err != nil {
		return err
	}
	for i := range items {
		items[i].ID = uuid.New()
		items[i].InvoiceID = invoiceID
		items[i].Sequence = i + 1
		if _, err := q.Exec(ctx, `
			INSERT INTO invoice_line_item (id, invoice_id, sequence, description, quantity, unit_price)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			items[i].ID, items[i].InvoiceID, items[i].Sequence,
			items[i].Description, items[i].Quantity, items[i].UnitPrice); err != nil {
			return err
		}
	}
	return nil
}

func (r *invoiceRepoPG) lineItems(ctx context.Context, invoiceID uuid.UUID) ([]InvoiceLineItem, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT id, invoice_id, sequence, description, quantity, unit_price
		FROM invoice_line_item WHERE invoice_id = $1 ORDER BY sequence`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []InvoiceLineItem
	for rows.Next() {
		var li InvoiceLineItem
		if err := rows.Scan(&li.ID, &li.InvoiceID, &li.Sequence,
			&li.Description, &li.Quantity, &li.UnitPrice); err != nil {
			return nil, err
		}
		items = append(items, li)
	}
	return items, rows.Err()
}

// =========== Claim Repository ===========

type claimRepoPG struct{ pool *pgxpool.Pool }

func NewClaimRepoPG(pool *pgxpool.Pool) ClaimRepository { return &claimRepoPG{pool: pool} }

const claimCols = `id, patient_id, provider_id, claim_date, status,
	claim_amount, approved_amount, notes, created_at, updated_at`

func scanClaim(row pgx.Row) (*InsuranceClaim, error) {
	var c InsuranceClaim
	err := row.Scan(&c.ID, &c.PatientID, &c.ProviderID, &c.ClaimDate, &c.Status,
		&c.ClaimAmount, &c.ApprovedAmount, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: insurance claim", ErrNotFound)
	}
	return &c, err
}

func (r *claimRepoPG) Create(ctx context.Context, c *InsuranceClaim) error {
	c.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO insurance_claim (id, patient_id, provider_id, claim_date, status,
			claim_amount, approved_amount, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		c.ID, c.PatientID, c.ProviderID, c.ClaimDate, c.Status,
		c.ClaimAmount, c.ApprovedAmount, c.Notes)
	return err
}

func (r *claimRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*InsuranceClaim, error) {
	c, err := scanClaim(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+claimCols+` FROM insurance_claim WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	items, err := r.lineItems(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	c.LineItems = items
	return c, nil
}

func (r *claimRepoPG) Update(ctx context.Context, c *InsuranceClaim) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE insurance_claim SET status=$2, claim_amount=$3, approved_amount=$4,
			notes=$5, updated_at=NOW()
		WHERE id = $1`,
		c.ID, c.Status, c.ClaimAmount, c.ApprovedAmount, c.Notes)
	return err
}

func (r *claimRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*InsuranceClaim, error) {
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+claimCols+` FROM insurance_claim WHERE patient_id = $1 ORDER BY created_at`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var claims []*InsuranceClaim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		claims = append(claims, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, c := range claims {
		items, err := r.lineItems(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		c.LineItems = items
	}
	return claims, nil
}

func (r *claimRepoPG) ReplaceLineItems(ctx context.Context, claimID uuid.UUID, items []ClaimLineItem) error {
	q := conn(ctx, r.pool)
	if _, err := q.Exec(ctx, `DELETE FROM claim_line_item WHERE claim_id = $1`, claimID); err != nil {
		return err
	}
	for i := range items {
		items[i].ID = uuid.New()
		items[i].ClaimID = claimID
		items[i].Sequence = i + 1
		if _, err := q.Exec(ctx, `
			INSERT INTO claim_line_item (id, claim_id, sequence, service_description, service_cost, approved)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			items[i].ID, items[i].ClaimID, items[i].Sequence,
			items[i].ServiceDescription, items[i].ServiceCost, items[i].Approved); err != nil {
			return err
		}
	}
	return nil
}

func (r *claimRepoPG) lineItems(ctx context.Context, claimID uuid.UUID) ([]ClaimLineItem, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT id, claim_id, sequence, service_description, service_cost, approved
		FROM claim_line_item WHERE claim_id = $1 ORDER BY sequence`, claimID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ClaimLineItem
	for rows.Next() {
		var li ClaimLineItem
		if err := rows.Scan(&li.ID, &li.ClaimID, &li.Sequence,
			&li.ServiceDescription, &li.ServiceCost, &li.Approved); err != nil {
			return nil, err
		}
		items = append(items, li)
	}
	return items, rows.Err()
}

// =========== Payment Repository ===========

type paymentRepoPG struct{ pool *pgxpool.Pool }

func NewPaymentRepoPG(pool *pgxpool.Pool) PaymentRepository { return &paymentRepoPG{pool: pool} }

func (r *paymentRepoPG) Create(ctx context.Context, p *Payment) error {
	p.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO payment (id, invoice_id, payment_date, amount, method, transaction_ref, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		p.ID, p.InvoiceID, p.PaymentDate, p.Amount, p.Method, p.TransactionRef, p.Notes)
	return err
}

func (r *paymentRepoPG) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*Payment, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT id, invoice_id, payment_date, amount, method, transaction_ref, notes, created_at
		FROM payment WHERE invoice_id = $1 ORDER BY payment_date`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.PaymentDate, &p.Amount,
			&p.Method, &p.TransactionRef, &p.Notes, &p.CreatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, &p)
	}
	return payments, rows.Err()
}
