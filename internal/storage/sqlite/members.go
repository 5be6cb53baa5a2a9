package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/models"
)

const memberColumns = "id, stokvel_id, user_id, display_name, rotation_order, status, eligible_from_cycle, joined_at"

// CreateMember inserts a new member. The (stokvel_id, rotation_order)
// unique index rejects a taken rotation slot.
func (s *SQLiteStore) CreateMember(ctx context.Context, member *models.Member) error {
	if _, err := s.GetStokvel(ctx, member.StokvelID); err != nil {
		return err
	}
	if member.ID == "" {
		member.ID = uuid.New().String()
	}
	if member.JoinedAt.IsZero() {
		member.JoinedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO members ("+memberColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		member.ID, member.StokvelID, member.UserID, member.DisplayName, member.RotationOrder,
		string(member.Status), member.EligibleFromCycle, toUnix(member.JoinedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert member: %w", translate(err))
	}
	return nil
}

// UpdateMember saves a member's status, eligibility and display name.
func (s *SQLiteStore) UpdateMember(ctx context.Context, member *models.Member) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE members SET status = ?, eligible_from_cycle = ?, display_name = ? WHERE id = ? AND stokvel_id = ?",
		string(member.Status), member.EligibleFromCycle, member.DisplayName, member.ID, member.StokvelID,
	)
	if err != nil {
		return fmt.Errorf("failed to update member: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: member %s", models.ErrNotFound, member.ID)
	}
	return nil
}

// GetMember retrieves one member of a stokvel.
func (s *SQLiteStore) GetMember(ctx context.Context, stokvelID, memberID string) (*models.Member, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+memberColumns+" FROM members WHERE id = ? AND stokvel_id = ?",
		memberID, stokvelID,
	)
	member, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: member %s", models.ErrNotFound, memberID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return member, nil
}

// ListMembers returns a stokvel's members in rotation order.
func (s *SQLiteStore) ListMembers(ctx context.Context, stokvelID string) ([]*models.Member, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+memberColumns+" FROM members WHERE stokvel_id = ? ORDER BY rotation_order",
		stokvelID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*models.Member
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}
	return members, nil
}

func scanMember(row scanner) (*models.Member, error) {
	var (
		m        models.Member
		status   string
		joinedAt int64
	)
	if err := row.Scan(&m.ID, &m.StokvelID, &m.UserID, &m.DisplayName, &m.RotationOrder, &status, &m.EligibleFromCycle, &joinedAt); err != nil {
		return nil, err
	}
	m.Status = models.MemberStatus(status)
	m.JoinedAt = fromUnix(joinedAt)
	return &m, nil
}
