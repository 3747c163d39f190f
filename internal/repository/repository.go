package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"github.com/chanhduy633/checkout-service/domain"
)

var (
	ErrIdempotencyKeyNotFound  = errors.New("idempotency key not found")
	ErrDuplicateIdempotencyKey = errors.New("idempotency key already used")
	ErrSessionNotFound         = errors.New("checkout session not found")
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// CheckoutSession is one persisted checkout attempt.
type CheckoutSession struct {
	ID                  string
	UserID              string
	IdempotencyKey      string
	Status              domain.CheckoutStatus
	PaymentMethod       domain.PaymentMethod
	PaymentReference    string
	OrderNumber         string
	Draft               []byte // OrderDraft as JSON
	FailureReason       string
	NeedsReconciliation bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type OutboxEvent struct {
	ID          int
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

type RepoInterface interface {
	Close() error
	RunMigrations(*Credentials) error
	CreateCheckoutSession(ctx context.Context, session *CheckoutSession) error
	GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error)
	GetCheckoutSessionByIdempotencyKey(ctx context.Context, key string) (*CheckoutSession, error)
	UpdateCheckoutSessionStatus(ctx context.Context, id string, status domain.CheckoutStatus) error
	SetPaymentReference(ctx context.Context, id string, reference string) error
	CompleteCheckoutSession(ctx context.Context, id string, orderNumber string, eventPayload []byte) error
	FailCheckoutSession(ctx context.Context, id string, reason string, needsReconciliation bool) error
	CancelCheckoutSession(ctx context.Context, id string) error
	GetStuckSessions(ctx context.Context, olderThan time.Duration) ([]*CheckoutSession, error)
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int) error
}

type Repository struct {
	db *sql.DB
}

// NewRepository opens the connection pool, retrying with exponential backoff
// so the service survives the database coming up after it.
func NewRepository(ctx context.Context, cred *Credentials) (*Repository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.MaxInterval = 10 * time.Second

	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		if pingErr := db.PingContext(ctx); pingErr != nil {
			slog.Warn("Failed to ping database, will retry", "error", pingErr)
			return struct{}{}, pingErr
		}
		return struct{}{}, nil
	}, backoff.WithBackOff(b), backoff.WithMaxElapsedTime(2*time.Minute))
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	slog.Info("Connected to postgres")
	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}
