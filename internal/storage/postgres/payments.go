package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/nusapalma/nusapalma/internal/models"
	"github.com/nusapalma/nusapalma/internal/storage"
)

const paymentColumns = `id, payment_id, user_id::text, plan, amount, method, status,
	verified_at, expires_at, metadata, created_at, updated_at`

func scanPayment(row pgx.Row) (*models.Payment, error) {
	var (
		p      models.Payment
		status string
	)
	err := row.Scan(&p.ID, &p.PaymentID, &p.UserID, &p.Plan, &p.Amount, &p.Method, &status,
		&p.VerifiedAt, &p.ExpiresAt, &p.Metadata, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Status = models.PaymentStatus(status)
	return &p, nil
}

// CreatePayment inserts p in the pending state. A taken payment id yields storage.ErrAlreadyExists.
func (s *Storage) CreatePayment(ctx context.Context, p *models.Payment) (*models.Payment, error) {
	const op = "storage.postgres.CreatePayment"

	metadata := p.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	query := `INSERT INTO payments (payment_id, user_id, plan, amount, method, status, expires_at, metadata, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
			  RETURNING ` + paymentColumns
	created, err := scanPayment(s.db.QueryRow(ctx, query,
		p.PaymentID, p.UserID, p.Plan, p.Amount, p.Method, string(models.PaymentPending),
		p.ExpiresAt, metadata, p.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return created, nil
}

// GetPaymentForUser returns the payment only when it belongs to userID, so a
// foreign payment is indistinguishable from a missing one.
func (s *Storage) GetPaymentForUser(ctx context.Context, paymentID, userID string) (*models.Payment, error) {
	const op = "storage.postgres.GetPaymentForUser"

	p, err := scanPayment(s.db.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE payment_id = $1 AND user_id = $2`, paymentID, userID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return p, nil
}

// ListPaymentsByUser returns a page of the user's payments, newest first.
func (s *Storage) ListPaymentsByUser(ctx context.Context, userID string, limit, offset int) ([]models.Payment, error) {
	const op = "storage.postgres.ListPaymentsByUser"

	rows, err := s.db.Query(ctx, `SELECT `+paymentColumns+` FROM payments
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	payments := make([]models.Payment, 0, limit)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		payments = append(payments, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return payments, nil
}

// TransitionPayment moves a payment from one status to another in a single
// conditional update. When the payment is no longer in from, nothing is
// written and storage.ErrConflict is returned. verifiedAt is stored only when non-nil.
func (s *Storage) TransitionPayment(ctx context.Context, paymentID string, from, to models.PaymentStatus, verifiedAt *time.Time) error {
	const op = "storage.postgres.TransitionPayment"

	if err := transitionPayment(ctx, s.db, paymentID, from, to, verifiedAt); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// VerifyAndActivate marks a pending payment verified and writes the tier
// window of userID in one transaction. Either both rows change or neither
// does. storage.ErrConflict means the payment was not pending and
// storage.ErrNotFound means the user does not exist.
func (s *Storage) VerifyAndActivate(ctx context.Context, paymentID, userID, planKey string, verifiedAt time.Time, end *time.Time) error {
	const op = "storage.postgres.VerifyAndActivate"

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err = transitionPayment(ctx, tx, paymentID, models.PaymentPending, models.PaymentVerified, &verifiedAt); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = updateSubscription(ctx, tx, userID, planKey, verifiedAt, end); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func transitionPayment(ctx context.Context, db execer, paymentID string, from, to models.PaymentStatus, verifiedAt *time.Time) error {
	tag, err := db.Exec(ctx, `
		UPDATE payments
		SET status = $3, verified_at = COALESCE($4, verified_at), updated_at = NOW()
		WHERE payment_id = $1 AND status = $2`,
		paymentID, string(from), string(to), verifiedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrConflict
	}
	return nil
}
