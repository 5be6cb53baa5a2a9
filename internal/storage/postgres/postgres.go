// Package postgres provides a PostgreSQL-backed implementation of
// storage.Store on top of gorm.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/models"
	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Store implements storage.Store using PostgreSQL.
type Store struct {
	db *gorm.DB
}

// Connect opens a connection pool, pings it and migrates the schema.
func Connect(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve sql db handle: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	store := New(db)
	if err := store.Migrate(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return store, nil
}

// New wraps an open gorm handle. The schema is not touched.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates the tables.
func (s *Store) Migrate(ctx context.Context) error {
	err := s.db.WithContext(ctx).AutoMigrate(
		&stokvelRow{},
		&memberRow{},
		&contributionRow{},
		&cycleRow{},
		&payoutRow{},
		&adjustmentRow{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) CreateStokvel(ctx context.Context, stokvel *models.Stokvel) error {
	if stokvel.ID == "" {
		stokvel.ID = uuid.New().String()
	}
	if stokvel.CreatedAt.IsZero() {
		stokvel.CreatedAt = time.Now().UTC()
	}
	row := stokvelRowFromModel(stokvel)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert stokvel: %w", translate(err))
	}
	return nil
}

func (s *Store) GetStokvel(ctx context.Context, stokvelID string) (*models.Stokvel, error) {
	var row stokvelRow
	err := s.db.WithContext(ctx).Where("id = ?", stokvelID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: stokvel %s", models.ErrNotFound, stokvelID)
		}
		return nil, fmt.Errorf("failed to get stokvel: %w", err)
	}
	return row.toModel(), nil
}

func (s *Store) ListStokvels(ctx context.Context) ([]*models.Stokvel, error) {
	var rows []stokvelRow
	if err := s.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list stokvels: %w", err)
	}
	items := make([]*models.Stokvel, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toModel())
	}
	return items, nil
}

func (s *Store) CreateMember(ctx context.Context, member *models.Member) error {
	if _, err := s.GetStokvel(ctx, member.StokvelID); err != nil {
		return err
	}
	if member.ID == "" {
		member.ID = uuid.New().String()
	}
	if member.JoinedAt.IsZero() {
		member.JoinedAt = time.Now().UTC()
	}
	row := memberRowFromModel(member)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert member: %w", translate(err))
	}
	return nil
}

func (s *Store) UpdateMember(ctx context.Context, member *models.Member) error {
	result := s.db.WithContext(ctx).
		Model(&memberRow{}).
		Where("id = ? AND stokvel_id = ?", member.ID, member.StokvelID).
		Updates(map[string]any{
			"status":              string(member.Status),
			"eligible_from_cycle": member.EligibleFromCycle,
			"display_name":        member.DisplayName,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update member: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: member %s", models.ErrNotFound, member.ID)
	}
	return nil
}

func (s *Store) GetMember(ctx context.Context, stokvelID, memberID string) (*models.Member, error) {
	var row memberRow
	err := s.db.WithContext(ctx).Where("id = ? AND stokvel_id = ?", memberID, stokvelID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: member %s", models.ErrNotFound, memberID)
		}
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return row.toModel(), nil
}

func (s *Store) ListMembers(ctx context.Context, stokvelID string) ([]*models.Member, error) {
	var rows []memberRow
	if err := s.db.WithContext(ctx).
		Where("stokvel_id = ?", stokvelID).
		Order("rotation_order ASC").
		Find(&rows).
		Error; err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	items := make([]*models.Member, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toModel())
	}
	return items, nil
}

func (s *Store) CreateContribution(ctx context.Context, contribution *models.Contribution) error {
	if _, err := s.GetMember(ctx, contribution.StokvelID, contribution.MemberID); err != nil {
		return err
	}
	if contribution.ID == "" {
		contribution.ID = uuid.New().String()
	}
	row := contributionRowFromModel(contribution)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert contribution: %w", translate(err))
	}
	return nil
}

func (s *Store) GetContribution(ctx context.Context, stokvelID, contributionID string) (*models.Contribution, error) {
	var row contributionRow
	err := s.db.WithContext(ctx).Where("id = ? AND stokvel_id = ?", contributionID, stokvelID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: contribution %s", models.ErrNotFound, contributionID)
		}
		return nil, fmt.Errorf("failed to get contribution: %w", err)
	}
	return row.toModel(), nil
}

// DecideContribution stores a decision only while the row is still unverified.
func (s *Store) DecideContribution(ctx context.Context, contribution *models.Contribution) error {
	result := s.db.WithContext(ctx).
		Model(&contributionRow{}).
		Where("id = ? AND stokvel_id = ? AND status = ?",
			contribution.ID, contribution.StokvelID, string(models.ContributionUnverified)).
		Updates(map[string]any{
			"status":         string(contribution.Status),
			"counted_amount": contribution.CountedAmount,
			"reject_reason":  contribution.RejectReason,
			"decided_at":     utcPtr(contribution.DecidedAt),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update contribution: %w", result.Error)
	}
	if result.RowsAffected == 1 {
		return nil
	}

	current, err := s.GetContribution(ctx, contribution.StokvelID, contribution.ID)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: contribution %s is %s", models.ErrAlreadyDecided, contribution.ID, current.Status)
}

func (s *Store) ListContributions(ctx context.Context, stokvelID string, filter storage.ContributionFilter) ([]*models.Contribution, error) {
	tx := s.db.WithContext(ctx).Model(&contributionRow{}).Where("stokvel_id = ?", stokvelID)
	if filter.MemberID != "" {
		tx = tx.Where("member_id = ?", filter.MemberID)
	}
	if filter.Status != "" {
		tx = tx.Where("status = ?", string(filter.Status))
	}
	if filter.CycleNumber != 0 {
		tx = tx.Where("cycle_number = ?", filter.CycleNumber)
	}

	var rows []contributionRow
	if err := tx.Order("recorded_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list contributions: %w", err)
	}
	items := make([]*models.Contribution, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toModel())
	}
	return items, nil
}

func (s *Store) GetCycle(ctx context.Context, stokvelID string, cycle int) (*models.Cycle, error) {
	row, found, err := findCycle(s.db.WithContext(ctx), stokvelID, cycle)
	if err != nil {
		return nil, err
	}
	if !found {
		return &models.Cycle{StokvelID: stokvelID, Number: cycle}, nil
	}
	return row.toModel(), nil
}

func findCycle(tx *gorm.DB, stokvelID string, cycle int) (cycleRow, bool, error) {
	var row cycleRow
	err := tx.Where("stokvel_id = ? AND cycle_number = ?", stokvelID, cycle).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return cycleRow{StokvelID: stokvelID, CycleNumber: cycle}, false, nil
	}
	if err != nil {
		return cycleRow{}, false, fmt.Errorf("failed to get cycle: %w", err)
	}
	return row, true, nil
}

// SavePayouts commits one firing's payouts. Bumping the stokvel's payout
// version row-locks the stokvel, so concurrent firings of any cycle queue
// behind each other and all but the first fail the version check.
func (s *Store) SavePayouts(ctx context.Context, stokvelID string, cycle, expectedVersion int, payouts []*models.Payout) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&stokvelRow{}).
			Where("id = ? AND payout_version = ?", stokvelID, expectedVersion).
			Update("payout_version", gorm.Expr("payout_version + 1"))
		if result.Error != nil {
			return fmt.Errorf("failed to bump payout version: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: stokvel %s payouts changed since version %d", models.ErrConflict, stokvelID, expectedVersion)
		}

		current, found, err := findCycle(tx.Clauses(clause.Locking{Strength: "UPDATE"}), stokvelID, cycle)
		if err != nil {
			return err
		}
		if current.Settled {
			return fmt.Errorf("%w: cycle %d", models.ErrAlreadySettled, cycle)
		}
		if !found {
			current.Version = 1
			if err := tx.Create(&current).Error; err != nil {
				return fmt.Errorf("failed to insert cycle: %w", translate(err))
			}
		} else if err := tx.Model(&cycleRow{}).
			Where("stokvel_id = ? AND cycle_number = ?", stokvelID, cycle).
			Update("version", gorm.Expr("version + 1")).
			Error; err != nil {
			return fmt.Errorf("failed to record cycle firing: %w", err)
		}

		for _, p := range payouts {
			if p.ID == "" {
				p.ID = uuid.New().String()
			}
			row := payoutRowFromModel(stokvelID, cycle, p)
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("failed to insert payout: %w", translate(err))
			}
		}
		return nil
	})
}

func (s *Store) ListPayouts(ctx context.Context, stokvelID string, cycle int) ([]*models.Payout, error) {
	tx := s.db.WithContext(ctx).Where("stokvel_id = ?", stokvelID)
	if cycle != 0 {
		tx = tx.Where("cycle_number = ?", cycle)
	}
	var rows []payoutRow
	if err := tx.Order("processed_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list payouts: %w", err)
	}
	items := make([]*models.Payout, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toModel())
	}
	return items, nil
}

// SaveAdjustments stores a settlement and flips the cycle's settled flag once.
func (s *Store) SaveAdjustments(ctx context.Context, stokvelID string, cycle int, adjustments []*models.Adjustment) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, found, err := findCycle(tx.Clauses(clause.Locking{Strength: "UPDATE"}), stokvelID, cycle)
		if err != nil {
			return err
		}
		if current.Settled {
			return fmt.Errorf("%w: cycle %d", models.ErrAlreadySettled, cycle)
		}

		now := time.Now().UTC()
		if !found {
			current.Settled = true
			current.SettledAt = &now
			if err := tx.Create(&current).Error; err != nil {
				return fmt.Errorf("failed to insert cycle: %w", translate(err))
			}
		} else {
			result := tx.Model(&cycleRow{}).
				Where("stokvel_id = ? AND cycle_number = ? AND settled = ?", stokvelID, cycle, false).
				Updates(map[string]any{"settled": true, "settled_at": now})
			if result.Error != nil {
				return fmt.Errorf("failed to mark cycle settled: %w", result.Error)
			}
			if result.RowsAffected == 0 {
				return fmt.Errorf("%w: cycle %d", models.ErrAlreadySettled, cycle)
			}
		}

		for _, a := range adjustments {
			if a.ID == "" {
				a.ID = uuid.New().String()
			}
			row := adjustmentRowFromModel(stokvelID, cycle, a)
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("failed to insert adjustment: %w", translate(err))
			}
		}
		return nil
	})
}

func (s *Store) ListAdjustments(ctx context.Context, stokvelID string, cycle int) ([]*models.Adjustment, error) {
	tx := s.db.WithContext(ctx).
		Model(&adjustmentRow{}).
		Select("adjustments.*").
		Joins("JOIN members ON members.id = adjustments.member_id").
		Where("adjustments.stokvel_id = ?", stokvelID)
	if cycle != 0 {
		tx = tx.Where("adjustments.cycle_number = ?", cycle)
	}
	var rows []adjustmentRow
	if err := tx.Order("adjustments.cycle_number ASC, members.rotation_order ASC, adjustments.id ASC").
		Find(&rows).
		Error; err != nil {
		return nil, fmt.Errorf("failed to list adjustments: %w", err)
	}
	items := make([]*models.Adjustment, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toModel())
	}
	return items, nil
}

func (s *Store) SettleAdjustment(ctx context.Context, stokvelID, adjustmentID string, at time.Time) (*models.Adjustment, error) {
	var out *models.Adjustment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row adjustmentRow
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND stokvel_id = ?", adjustmentID, stokvelID).
			First(&row).
			Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: adjustment %s", models.ErrNotFound, adjustmentID)
			}
			return fmt.Errorf("failed to get adjustment: %w", err)
		}
		if row.Settled {
			return fmt.Errorf("%w: adjustment %s is already settled", models.ErrAlreadyDecided, adjustmentID)
		}

		settledAt := at.UTC()
		if err := tx.Model(&adjustmentRow{}).
			Where("id = ?", adjustmentID).
			Updates(map[string]any{"settled": true, "settled_at": settledAt}).
			Error; err != nil {
			return fmt.Errorf("failed to settle adjustment: %w", err)
		}
		row.Settled = true
		row.SettledAt = &settledAt
		out = row.toModel()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// translate maps a unique violation to models.ErrConflict.
func translate(err error) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %v", models.ErrConflict, err)
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
