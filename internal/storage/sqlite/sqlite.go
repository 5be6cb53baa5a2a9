// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/models"
	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Pragmas in the DSN apply to every pooled connection.
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single writer connection turns every transaction into a critical
	// section, which the payout compare-and-swap relies on.
	db.SetMaxOpenConns(1)

	// Run migrations
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateStokvel persists a new stokvel to the database.
func (s *SQLiteStore) CreateStokvel(ctx context.Context, stokvel *models.Stokvel) error {
	if stokvel.ID == "" {
		stokvel.ID = uuid.New().String()
	}
	if stokvel.CreatedAt.IsZero() {
		stokvel.CreatedAt = time.Now().UTC()
	}

	r := stokvel.Rules
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO stokvels (id, name, type, currency, contribution_amount, target_amount, manual_shape, value_basis,
		    late_payment_penalty_rate, grace_period_days, joining_fee, require_payment_verification,
		    allow_emergency_withdrawals, emergency_withdrawal_limit, minimum_rollover_balance, due_day_of_month, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stokvel.ID, stokvel.Name, string(stokvel.Type), stokvel.Currency, stokvel.ContributionAmount, stokvel.TargetAmount,
		string(stokvel.ManualShape), string(stokvel.EffectiveValueBasis()),
		r.LatePaymentPenaltyRate, r.GracePeriodDays, r.JoiningFee, r.RequirePaymentVerification,
		r.AllowEmergencyWithdrawals, r.EmergencyWithdrawalLimit, r.MinimumRolloverBalance, r.DueDay(),
		toUnix(stokvel.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert stokvel: %w", translate(err))
	}
	return nil
}

const stokvelColumns = `id, name, type, currency, contribution_amount, target_amount, manual_shape, value_basis,
	late_payment_penalty_rate, grace_period_days, joining_fee, require_payment_verification,
	allow_emergency_withdrawals, emergency_withdrawal_limit, minimum_rollover_balance, due_day_of_month, created_at,
	payout_version`

// GetStokvel retrieves a stokvel by ID.
func (s *SQLiteStore) GetStokvel(ctx context.Context, stokvelID string) (*models.Stokvel, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+stokvelColumns+" FROM stokvels WHERE id = ?", stokvelID)
	stokvel, err := scanStokvel(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: stokvel %s", models.ErrNotFound, stokvelID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stokvel: %w", err)
	}
	return stokvel, nil
}

// ListStokvels returns every stokvel, oldest first.
func (s *SQLiteStore) ListStokvels(ctx context.Context) ([]*models.Stokvel, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+stokvelColumns+" FROM stokvels ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list stokvels: %w", err)
	}
	defer rows.Close()

	var stokvels []*models.Stokvel
	for rows.Next() {
		stokvel, err := scanStokvel(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stokvel: %w", err)
		}
		stokvels = append(stokvels, stokvel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stokvels: %w", err)
	}
	return stokvels, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStokvel(row scanner) (*models.Stokvel, error) {
	var (
		s         models.Stokvel
		typ       string
		shape     string
		basis     string
		createdAt int64
	)
	err := row.Scan(&s.ID, &s.Name, &typ, &s.Currency, &s.ContributionAmount, &s.TargetAmount, &shape, &basis,
		&s.Rules.LatePaymentPenaltyRate, &s.Rules.GracePeriodDays, &s.Rules.JoiningFee, &s.Rules.RequirePaymentVerification,
		&s.Rules.AllowEmergencyWithdrawals, &s.Rules.EmergencyWithdrawalLimit, &s.Rules.MinimumRolloverBalance,
		&s.Rules.DueDayOfMonth, &createdAt, &s.PayoutVersion)
	if err != nil {
		return nil, err
	}
	s.Type = models.StokvelType(typ)
	s.ManualShape = models.DistributionShape(shape)
	s.ValueBasis = models.ValueBasis(basis)
	s.CreatedAt = fromUnix(createdAt)
	return &s, nil
}

// toUnix stores times as UTC Unix nanoseconds so they sort as integers.
func toUnix(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromUnix(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func toNullUnix(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toUnix(*t), Valid: true}
}

func fromNullUnix(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromUnix(n.Int64)
	return &t
}

// translate maps SQLite constraint violations to models.ErrConflict.
func translate(err error) error {
	var se *msqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %v", models.ErrConflict, err)
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return fmt.Errorf("%w: %v", models.ErrNotFound, err)
		}
	}
	return err
}
