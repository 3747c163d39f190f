package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/chanhduy633/checkout-service/domain"
)

func (r *Repository) CreateCheckoutSession(ctx context.Context, session *CheckoutSession) error {
	query := `INSERT INTO checkout_sessions
		(id, user_id, idempotency_key, status, payment_method, payment_reference, draft, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, NULLIF($6, ''), $7, NOW(), NOW())`

	_, err := r.db.ExecContext(ctx, query,
		session.ID,
		session.UserID,
		session.IdempotencyKey,
		string(session.Status),
		string(session.PaymentMethod),
		session.PaymentReference,
		session.Draft,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			// Unique violation on idempotency_key: a concurrent request with
			// the same key won the insert.
			return ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("failed to insert checkout session: %w", err)
	}
	return nil
}

const sessionColumns = `id, user_id, COALESCE(idempotency_key, ''), status, payment_method,
	COALESCE(payment_reference, ''), COALESCE(order_number, ''), draft,
	COALESCE(failure_reason, ''), needs_reconciliation, created_at, updated_at`

func (r *Repository) scanSession(row *sql.Row) (*CheckoutSession, error) {
	var s CheckoutSession
	var status, method string
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.IdempotencyKey,
		&status,
		&method,
		&s.PaymentReference,
		&s.OrderNumber,
		&s.Draft,
		&s.FailureReason,
		&s.NeedsReconciliation,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Status = domain.CheckoutStatus(status)
	s.PaymentMethod = domain.PaymentMethod(method)
	return &s, nil
}

func (r *Repository) GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM checkout_sessions WHERE id = $1`

	s, err := r.scanSession(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get checkout session: %w", err)
	}
	return s, nil
}

func (r *Repository) GetCheckoutSessionByIdempotencyKey(ctx context.Context, key string) (*CheckoutSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM checkout_sessions WHERE idempotency_key = $1`

	s, err := r.scanSession(r.db.QueryRowContext(ctx, query, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrIdempotencyKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get checkout session by idempotency key: %w", err)
	}
	return s, nil
}

func (r *Repository) UpdateCheckoutSessionStatus(ctx context.Context, id string, status domain.CheckoutStatus) error {
	query := `UPDATE checkout_sessions SET status = $2, updated_at = NOW() WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, string(status))
	if err != nil {
		return fmt.Errorf("failed to update checkout session status: %w", err)
	}
	return requireRow(res)
}

func (r *Repository) SetPaymentReference(ctx context.Context, id string, reference string) error {
	query := `UPDATE checkout_sessions
		SET payment_reference = $2, status = $3, updated_at = NOW()
		WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, reference, string(domain.CheckoutStatusAwaitingPayment))
	if err != nil {
		return fmt.Errorf("failed to set payment reference: %w", err)
	}
	return requireRow(res)
}

// CompleteCheckoutSession records the order number and inserts the outbox
// event in one transaction, so a committed checkout always has its event and
// an uncommitted one never does.
func (r *Repository) CompleteCheckoutSession(ctx context.Context, id string, orderNumber string, eventPayload []byte) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	updateSQL := `UPDATE checkout_sessions
		SET status = $2, order_number = $3, updated_at = NOW()
		WHERE id = $1 AND status NOT IN ($4, $5, $6)`
	res, err := tx.ExecContext(ctx, updateSQL, id,
		string(domain.CheckoutStatusCommitted),
		orderNumber,
		string(domain.CheckoutStatusCommitted),
		string(domain.CheckoutStatusFailed),
		string(domain.CheckoutStatusCancelled),
	)
	if err != nil {
		return fmt.Errorf("failed to complete checkout session: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}

	outboxSQL := `INSERT INTO checkout_outbox (aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, NOW())`
	if _, err := tx.ExecContext(ctx, outboxSQL, id, "checkout.committed", eventPayload); err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}

	return tx.Commit()
}

// FailCheckoutSession only moves a live session to FAILED. A session that
// already reached a terminal status keeps it; racing writers (poller timeout
// vs user cancel) see ErrSessionNotFound and treat the checkout as settled.
func (r *Repository) FailCheckoutSession(ctx context.Context, id string, reason string, needsReconciliation bool) error {
	query := `UPDATE checkout_sessions
		SET status = $2, failure_reason = $3, needs_reconciliation = $4, updated_at = NOW()
		WHERE id = $1 AND status IN ($5, $6, $7)`

	res, err := r.db.ExecContext(ctx, query, id, string(domain.CheckoutStatusFailed), reason, needsReconciliation,
		string(domain.CheckoutStatusValidating),
		string(domain.CheckoutStatusCommittingCOD),
		string(domain.CheckoutStatusAwaitingPayment))
	if err != nil {
		return fmt.Errorf("failed to fail checkout session: %w", err)
	}
	return requireRow(res)
}

func (r *Repository) CancelCheckoutSession(ctx context.Context, id string) error {
	query := `UPDATE checkout_sessions
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3`

	res, err := r.db.ExecContext(ctx, query, id,
		string(domain.CheckoutStatusCancelled),
		string(domain.CheckoutStatusAwaitingPayment))
	if err != nil {
		return fmt.Errorf("failed to cancel checkout session: %w", err)
	}
	return requireRow(res)
}

// GetStuckSessions returns sessions parked mid-commit or mid-payment for
// longer than olderThan. After a crash no poller or commit goroutine exists
// for them anymore; the recovery sweep settles them.
func (r *Repository) GetStuckSessions(ctx context.Context, olderThan time.Duration) ([]*CheckoutSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM checkout_sessions
		WHERE status IN ($1, $2)
		AND updated_at < NOW() - $3 * INTERVAL '1 second'`

	rows, err := r.db.QueryContext(ctx, query,
		string(domain.CheckoutStatusCommittingCOD),
		string(domain.CheckoutStatusAwaitingPayment),
		int64(olderThan.Seconds()))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stuck sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*CheckoutSession
	for rows.Next() {
		var s CheckoutSession
		var status, method string
		if err := rows.Scan(
			&s.ID,
			&s.UserID,
			&s.IdempotencyKey,
			&status,
			&method,
			&s.PaymentReference,
			&s.OrderNumber,
			&s.Draft,
			&s.FailureReason,
			&s.NeedsReconciliation,
			&s.CreatedAt,
			&s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan stuck session: %w", err)
		}
		s.Status = domain.CheckoutStatus(status)
		s.PaymentMethod = domain.PaymentMethod(method)
		sessions = append(sessions, &s)
	}
	return sessions, rows.Err()
}

func (r *Repository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	query := `SELECT id, aggregate_id, event_type, payload, created_at
		FROM checkout_outbox
		WHERE processed_at IS NULL
		ORDER BY id
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch outbox events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		var e OutboxEvent
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

func (r *Repository) MarkEventAsProcessed(ctx context.Context, id int) error {
	query := `UPDATE checkout_outbox SET processed_at = NOW() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to mark outbox event as processed: %w", err)
	}
	return nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}
