// services/reward_ledger.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"whizbee-badges/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RewardLedger stores claimable rewards. The unique index on
// (player_id, difficulty, badge_number) is what keeps creation idempotent.
type RewardLedger struct {
	DB *gorm.DB
}

func NewRewardLedger(db *gorm.DB) *RewardLedger {
	return &RewardLedger{DB: db}
}

// CreateIfAbsent inserts the reward for a milestone unless it already
// exists. Duplicate and concurrent calls get the stored row back with
// created=false.
func (l *RewardLedger) CreateIfAbsent(ctx context.Context, playerID string, difficulty models.Difficulty, badgeNumber int) (*models.Reward, bool, error) {
	if err := validateID("player_id", playerID); err != nil {
		return nil, false, err
	}
	if err := validateDifficulty(difficulty); err != nil {
		return nil, false, err
	}
	if badgeNumber < 1 {
		return nil, false, fmt.Errorf("%w: badge number must be positive, got %d", ErrInvalidIdentifier, badgeNumber)
	}

	now := time.Now().UTC()
	reward := &models.Reward{
		ID:          uuid.NewString(),
		PlayerID:    playerID,
		Difficulty:  difficulty,
		BadgeNumber: badgeNumber,
		EarnedAt:    now,
		Status:      models.RewardStatusUnclaimed,
	}

	db := l.DB.WithContext(ctx)
	result := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "player_id"},
			{Name: "difficulty"},
			{Name: "badge_number"},
		},
		DoNothing: true,
	}).Create(reward)
	if result.Error != nil {
		return nil, false, storageErr("create reward", result.Error)
	}
	if result.RowsAffected == 1 {
		return reward, true, nil
	}

	var existing models.Reward
	if err := db.Where("player_id = ? AND difficulty = ? AND badge_number = ?", playerID, difficulty, badgeNumber).
		First(&existing).Error; err != nil {
		return nil, false, storageErr("load existing reward", err)
	}
	return &existing, false, nil
}

// Get loads a reward by id.
func (l *RewardLedger) Get(ctx context.Context, rewardID string) (*models.Reward, error) {
	if err := validateID("reward_id", rewardID); err != nil {
		return nil, err
	}
	return loadReward(l.DB.WithContext(ctx), rewardID, "")
}

// ListUnclaimed returns a player's unclaimed rewards, newest first. A nil
// difficulty lists every track.
func (l *RewardLedger) ListUnclaimed(ctx context.Context, playerID string, difficulty *models.Difficulty) ([]models.Reward, error) {
	if err := validateID("player_id", playerID); err != nil {
		return nil, err
	}
	if difficulty != nil {
		if err := validateDifficulty(*difficulty); err != nil {
			return nil, err
		}
	}
	return l.listUnclaimed(ctx, playerID, difficulty, "earned_at DESC, badge_number DESC")
}

func (l *RewardLedger) listUnclaimed(ctx context.Context, playerID string, difficulty *models.Difficulty, order string) ([]models.Reward, error) {
	query := l.DB.WithContext(ctx).
		Where("player_id = ? AND status = ?", playerID, models.RewardStatusUnclaimed)
	if difficulty != nil {
		query = query.Where("difficulty = ?", *difficulty)
	}

	var rewards []models.Reward
	if err := query.Order(order).Find(&rewards).Error; err != nil {
		return nil, storageErr("list unclaimed rewards", err)
	}
	return rewards, nil
}

// ListByPlayer returns every reward a player owns, claimed or not, newest first.
func (l *RewardLedger) ListByPlayer(ctx context.Context, playerID string) ([]models.Reward, error) {
	if err := validateID("player_id", playerID); err != nil {
		return nil, err
	}

	var rewards []models.Reward
	if err := l.DB.WithContext(ctx).
		Where("player_id = ?", playerID).
		Order("earned_at DESC, badge_number DESC").
		Find(&rewards).Error; err != nil {
		return nil, storageErr("list rewards", err)
	}
	return rewards, nil
}

// CountByStatus counts a player's rewards in one status per difficulty, zero-filled.
func (l *RewardLedger) CountByStatus(ctx context.Context, playerID string, status models.RewardStatus) (map[models.Difficulty]int64, error) {
	if err := validateID("player_id", playerID); err != nil {
		return nil, err
	}

	var rows []struct {
		Difficulty models.Difficulty
		Total      int64
	}
	if err := l.DB.WithContext(ctx).
		Model(&models.Reward{}).
		Select("difficulty, COUNT(*) AS total").
		Where("player_id = ? AND status = ?", playerID, status).
		Group("difficulty").
		Scan(&rows).Error; err != nil {
		return nil, storageErr("count rewards", err)
	}

	counts := make(map[models.Difficulty]int64, len(models.Difficulties))
	for _, d := range models.Difficulties {
		counts[d] = 0
	}
	for _, row := range rows {
		if row.Difficulty.Valid() {
			counts[row.Difficulty] = row.Total
		}
	}
	return counts, nil
}

// loadReward reads a reward through db, which may be a transaction. A
// non-empty playerID also requires ownership; someone else's reward is
// reported as not found.
func loadReward(db *gorm.DB, rewardID, playerID string) (*models.Reward, error) {
	query := db.Where("id = ?", rewardID)
	if playerID != "" {
		query = query.Where("player_id = ?", playerID)
	}

	var reward models.Reward
	if err := query.First(&reward).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRewardNotFound
		}
		return nil, storageErr("load reward", err)
	}
	return &reward, nil
}
