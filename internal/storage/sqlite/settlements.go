package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/models"
)

// GetCycle returns the cycle row, or a version 0 cycle if none exists yet.
func (s *SQLiteStore) GetCycle(ctx context.Context, stokvelID string, cycle int) (*models.Cycle, error) {
	return getCycle(ctx, s.db, stokvelID, cycle)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getCycle(ctx context.Context, q queryer, stokvelID string, cycle int) (*models.Cycle, error) {
	c := &models.Cycle{StokvelID: stokvelID, Number: cycle}
	var settledAt sql.NullInt64
	err := q.QueryRowContext(ctx,
		"SELECT version, settled, settled_at FROM cycles WHERE stokvel_id = ? AND cycle_number = ?",
		stokvelID, cycle,
	).Scan(&c.Version, &c.Settled, &settledAt)
	if err == sql.ErrNoRows {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cycle: %w", err)
	}
	c.SettledAt = fromNullUnix(settledAt)
	return c, nil
}

// SavePayouts commits one firing's payouts in a single transaction. The
// stokvel's payout version is the compare-and-swap guard; the cycle row only
// counts firings and carries the settled flag.
func (s *SQLiteStore) SavePayouts(ctx context.Context, stokvelID string, cycle, expectedVersion int, payouts []*models.Payout) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		"UPDATE stokvels SET payout_version = payout_version + 1 WHERE id = ? AND payout_version = ?",
		stokvelID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to bump payout version: %w", err)
	}
	if rows, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	} else if rows == 0 {
		return fmt.Errorf("%w: stokvel %s payouts changed since version %d", models.ErrConflict, stokvelID, expectedVersion)
	}

	current, err := getCycle(ctx, tx, stokvelID, cycle)
	if err != nil {
		return err
	}
	if current.Settled {
		return fmt.Errorf("%w: cycle %d", models.ErrAlreadySettled, cycle)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO cycles (stokvel_id, cycle_number, version, settled) VALUES (?, ?, 1, 0)
		 ON CONFLICT (stokvel_id, cycle_number) DO UPDATE SET version = version + 1`,
		stokvelID, cycle,
	)
	if err != nil {
		return fmt.Errorf("failed to record cycle firing: %w", err)
	}

	for _, p := range payouts {
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO payouts (id, stokvel_id, member_id, cycle_number, amount, nominal_value, kind, trigger_ref, status, processed_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, stokvelID, p.MemberID, cycle, p.Amount, p.NominalValue, string(p.Kind), p.TriggerRef,
			string(p.Status), toNullUnix(p.ProcessedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to insert payout: %w", translate(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListPayouts returns payouts ordered by processing time. Cycle 0 lists all.
func (s *SQLiteStore) ListPayouts(ctx context.Context, stokvelID string, cycle int) ([]*models.Payout, error) {
	query := `SELECT id, stokvel_id, member_id, cycle_number, amount, nominal_value, kind, trigger_ref, status, processed_at
		FROM payouts WHERE stokvel_id = ?`
	args := []any{stokvelID}
	if cycle != 0 {
		query += " AND cycle_number = ?"
		args = append(args, cycle)
	}
	query += " ORDER BY processed_at, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list payouts: %w", err)
	}
	defer rows.Close()

	var payouts []*models.Payout
	for rows.Next() {
		var (
			p           models.Payout
			kind        string
			status      string
			processedAt sql.NullInt64
		)
		if err := rows.Scan(&p.ID, &p.StokvelID, &p.MemberID, &p.CycleNumber, &p.Amount, &p.NominalValue,
			&kind, &p.TriggerRef, &status, &processedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payout: %w", err)
		}
		p.Kind = models.PayoutKind(kind)
		p.Status = models.PayoutStatus(status)
		p.ProcessedAt = fromNullUnix(processedAt)
		payouts = append(payouts, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payouts: %w", err)
	}
	return payouts, nil
}

// SaveAdjustments stores a settlement and flips the cycle's settled flag once.
func (s *SQLiteStore) SaveAdjustments(ctx context.Context, stokvelID string, cycle int, adjustments []*models.Adjustment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := toUnix(time.Now())
	result, err := tx.ExecContext(ctx,
		`INSERT INTO cycles (stokvel_id, cycle_number, version, settled, settled_at) VALUES (?, ?, 0, 1, ?)
		 ON CONFLICT (stokvel_id, cycle_number) DO UPDATE SET settled = 1, settled_at = excluded.settled_at
		 WHERE cycles.settled = 0`,
		stokvelID, cycle, now,
	)
	if err != nil {
		return fmt.Errorf("failed to mark cycle settled: %w", translate(err))
	}
	if rows, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	} else if rows == 0 {
		return fmt.Errorf("%w: cycle %d", models.ErrAlreadySettled, cycle)
	}

	for _, a := range adjustments {
		if a.ID == "" {
			a.ID = uuid.New().String()
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO adjustments (id, stokvel_id, member_id, cycle_number, net_position, adjustment_amount, settled, created_at, settled_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID, stokvelID, a.MemberID, cycle, a.NetPosition, a.AdjustmentAmount, a.Settled,
			toUnix(a.CreatedAt), toNullUnix(a.SettledAt),
		)
		if err != nil {
			return fmt.Errorf("failed to insert adjustment: %w", translate(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const adjustmentColumns = `a.id, a.stokvel_id, a.member_id, a.cycle_number, a.net_position, a.adjustment_amount,
	a.settled, a.created_at, a.settled_at`

// ListAdjustments returns adjustments ordered by cycle and rotation order.
// Cycle 0 lists all.
func (s *SQLiteStore) ListAdjustments(ctx context.Context, stokvelID string, cycle int) ([]*models.Adjustment, error) {
	query := "SELECT " + adjustmentColumns + ` FROM adjustments a
		JOIN members m ON m.id = a.member_id
		WHERE a.stokvel_id = ?`
	args := []any{stokvelID}
	if cycle != 0 {
		query += " AND a.cycle_number = ?"
		args = append(args, cycle)
	}
	query += " ORDER BY a.cycle_number, m.rotation_order, a.id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list adjustments: %w", err)
	}
	defer rows.Close()

	var adjustments []*models.Adjustment
	for rows.Next() {
		a, err := scanAdjustment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan adjustment: %w", err)
		}
		adjustments = append(adjustments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate adjustments: %w", err)
	}
	return adjustments, nil
}

// SettleAdjustment flips an adjustment's settled flag once.
func (s *SQLiteStore) SettleAdjustment(ctx context.Context, stokvelID, adjustmentID string, at time.Time) (*models.Adjustment, error) {
	result, err := s.db.ExecContext(ctx,
		"UPDATE adjustments SET settled = 1, settled_at = ? WHERE id = ? AND stokvel_id = ? AND settled = 0",
		toUnix(at), adjustmentID, stokvelID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to settle adjustment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}

	a, err := scanAdjustment(s.db.QueryRowContext(ctx,
		"SELECT "+adjustmentColumns+" FROM adjustments a WHERE a.id = ? AND a.stokvel_id = ?",
		adjustmentID, stokvelID,
	))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: adjustment %s", models.ErrNotFound, adjustmentID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get adjustment: %w", err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("%w: adjustment %s is already settled", models.ErrAlreadyDecided, adjustmentID)
	}
	return a, nil
}

func scanAdjustment(row scanner) (*models.Adjustment, error) {
	var (
		a         models.Adjustment
		createdAt int64
		settledAt sql.NullInt64
	)
	err := row.Scan(&a.ID, &a.StokvelID, &a.MemberID, &a.CycleNumber, &a.NetPosition, &a.AdjustmentAmount,
		&a.Settled, &createdAt, &settledAt)
	if err != nil {
		return nil, err
	}
	a.CreatedAt = fromUnix(createdAt)
	a.SettledAt = fromNullUnix(settledAt)
	return &a, nil
}
