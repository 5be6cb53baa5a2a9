package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/models"
	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/storage"
)

const contributionColumns = `id, stokvel_id, member_id, cycle_number, period, amount, counted_amount, status,
	proof_ref, reject_reason, recorded_at, decided_at`

// CreateContribution appends a contribution to the ledger.
func (s *SQLiteStore) CreateContribution(ctx context.Context, c *models.Contribution) error {
	if _, err := s.GetMember(ctx, c.StokvelID, c.MemberID); err != nil {
		return err
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO contributions ("+contributionColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		c.ID, c.StokvelID, c.MemberID, c.CycleNumber, c.Period, c.Amount, c.CountedAmount, string(c.Status),
		c.ProofRef, c.RejectReason, toUnix(c.RecordedAt), toNullUnix(c.DecidedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert contribution: %w", translate(err))
	}
	return nil
}

// GetContribution retrieves one contribution of a stokvel.
func (s *SQLiteStore) GetContribution(ctx context.Context, stokvelID, contributionID string) (*models.Contribution, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+contributionColumns+" FROM contributions WHERE id = ? AND stokvel_id = ?",
		contributionID, stokvelID,
	)
	c, err := scanContribution(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: contribution %s", models.ErrNotFound, contributionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contribution: %w", err)
	}
	return c, nil
}

// DecideContribution stores a decision only while the row is still unverified.
func (s *SQLiteStore) DecideContribution(ctx context.Context, c *models.Contribution) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE contributions SET status = ?, counted_amount = ?, reject_reason = ?, decided_at = ?
		 WHERE id = ? AND stokvel_id = ? AND status = ?`,
		string(c.Status), c.CountedAmount, c.RejectReason, toNullUnix(c.DecidedAt),
		c.ID, c.StokvelID, string(models.ContributionUnverified),
	)
	if err != nil {
		return fmt.Errorf("failed to update contribution: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 1 {
		return nil
	}

	// Either the row is gone or someone decided it first.
	current, err := s.GetContribution(ctx, c.StokvelID, c.ID)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: contribution %s is %s", models.ErrAlreadyDecided, c.ID, current.Status)
}

// ListContributions returns contributions ordered by recorded_at.
func (s *SQLiteStore) ListContributions(ctx context.Context, stokvelID string, filter storage.ContributionFilter) ([]*models.Contribution, error) {
	where := []string{"stokvel_id = ?"}
	args := []any{stokvelID}
	if filter.MemberID != "" {
		where = append(where, "member_id = ?")
		args = append(args, filter.MemberID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.CycleNumber != 0 {
		where = append(where, "cycle_number = ?")
		args = append(args, filter.CycleNumber)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+contributionColumns+" FROM contributions WHERE "+strings.Join(where, " AND ")+" ORDER BY recorded_at, id",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list contributions: %w", err)
	}
	defer rows.Close()

	var contributions []*models.Contribution
	for rows.Next() {
		c, err := scanContribution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contribution: %w", err)
		}
		contributions = append(contributions, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contributions: %w", err)
	}
	return contributions, nil
}

func scanContribution(row scanner) (*models.Contribution, error) {
	var (
		c          models.Contribution
		status     string
		recordedAt int64
		decidedAt  sql.NullInt64
	)
	err := row.Scan(&c.ID, &c.StokvelID, &c.MemberID, &c.CycleNumber, &c.Period, &c.Amount, &c.CountedAmount, &status,
		&c.ProofRef, &c.RejectReason, &recordedAt, &decidedAt)
	if err != nil {
		return nil, err
	}
	c.Status = models.ContributionStatus(status)
	c.RecordedAt = fromUnix(recordedAt)
	c.DecidedAt = fromNullUnix(decidedAt)
	return &c, nil
}
