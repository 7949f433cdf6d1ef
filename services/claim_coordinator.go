// services/claim_coordinator.go
package services

import (
	"context"
	"errors"
	"log"
	"time"

	"whizbee-badges/models"

	"gorm.io/gorm"
)

// incrementTallySQL adds one official badge, creating the tally row on
// the player's first claim for a difficulty.
const incrementTallySQL = `
INSERT INTO official_badge_tallies (player_id, difficulty, claimed_count, created_at, updated_at)
VALUES (?, ?, 1, ?, ?)
ON CONFLICT (player_id, difficulty)
DO UPDATE SET claimed_count = official_badge_tallies.claimed_count + 1, updated_at = excluded.updated_at
RETURNING claimed_count`

type ClaimResult struct {
	Reward              models.Reward     `json:"reward"`
	Difficulty          models.Difficulty `json:"difficulty"`
	BadgeNumber         int               `json:"badge_number"`
	ClaimedAt           time.Time         `json:"claimed_at"`
	TotalOfficialBadges int64             `json:"total_official_badges"`
}

type ClaimAllResult struct {
	Difficulty          models.Difficulty `json:"difficulty"`
	Attempted           int               `json:"attempted"`
	ClaimedCount        int               `json:"claimed_count"`
	TotalOfficialBadges int64             `json:"total_official_badges"`
}

// ClaimCoordinator turns rewards into official badges. The reward status
// change and the tally increment always commit together.
type ClaimCoordinator struct {
	DB *gorm.DB
}

func NewClaimCoordinator(db *gorm.DB) *ClaimCoordinator {
	return &ClaimCoordinator{DB: db}
}

// Claim redeems one reward. Failures, in check order: ErrRewardNotFound,
// ErrAlreadyClaimed, ErrNotEligible; database problems are *StorageError.
func (c *ClaimCoordinator) Claim(ctx context.Context, playerID, rewardID string) (*ClaimResult, error) {
	if err := validateID("player_id", playerID); err != nil {
		return nil, err
	}
	if err := validateID("reward_id", rewardID); err != nil {
		return nil, err
	}

	var result *ClaimResult
	err := c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res, err := claimInTx(tx, playerID, rewardID)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		if isClaimError(err) {
			log.Printf("⚠️ [CLAIM] player=%s reward=%s rejected: %v", playerID, rewardID, err)
			return nil, err
		}
		return nil, storageErr("claim reward", err)
	}

	log.Printf("🎖️ [CLAIM] Badge claimed: player=%s difficulty=%s badge_number=%d total_official=%d",
		playerID, result.Difficulty, result.BadgeNumber, result.TotalOfficialBadges)
	return result, nil
}

func claimInTx(tx *gorm.DB, playerID, rewardID string) (*ClaimResult, error) {
	reward, err := loadReward(tx, rewardID, playerID)
	if err != nil {
		return nil, err
	}
	if reward.Claimed() {
		return nil, ErrAlreadyClaimed
	}

	count, err := progressCount(tx, playerID, reward.Difficulty)
	if err != nil {
		return nil, err
	}
	if earnedBadges(count) < reward.BadgeNumber {
		return nil, ErrNotEligible
	}

	now := time.Now().UTC()
	update := tx.Model(&models.Reward{}).
		Where("id = ? AND status = ?", reward.ID, models.RewardStatusUnclaimed).
		Updates(map[string]interface{}{
			"status":     models.RewardStatusClaimed,
			"claimed_at": now,
			"updated_at": now,
		})
	if update.Error != nil {
		return nil, storageErr("mark reward claimed", update.Error)
	}
	if update.RowsAffected == 0 {
		// someone else claimed it after we read it
		return nil, ErrAlreadyClaimed
	}

	var total int64
	if err := tx.Raw(incrementTallySQL, playerID, reward.Difficulty, now, now).Scan(&total).Error; err != nil {
		return nil, storageErr("increment official badge tally", err)
	}

	reward.Status = models.RewardStatusClaimed
	reward.ClaimedAt = &now
	reward.UpdatedAt = now
	return &ClaimResult{
		Reward:              *reward,
		Difficulty:          reward.Difficulty,
		BadgeNumber:         reward.BadgeNumber,
		ClaimedAt:           now,
		TotalOfficialBadges: total,
	}, nil
}

// ClaimAll claims every unclaimed reward for a difficulty, oldest first.
// One stale or failing reward does not stop the rest.
func (c *ClaimCoordinator) ClaimAll(ctx context.Context, playerID string, difficulty models.Difficulty) (*ClaimAllResult, error) {
	if err := validateID("player_id", playerID); err != nil {
		return nil, err
	}
	if err := validateDifficulty(difficulty); err != nil {
		return nil, err
	}

	ledger := NewRewardLedger(c.DB)
	pending, err := ledger.listUnclaimed(ctx, playerID, &difficulty, "earned_at ASC, badge_number ASC")
	if err != nil {
		return nil, err
	}

	out := &ClaimAllResult{Difficulty: difficulty, Attempted: len(pending)}
	for _, reward := range pending {
		res, err := c.Claim(ctx, playerID, reward.ID)
		if err != nil {
			log.Printf("⚠️ [CLAIM_ALL] Skipping reward %s (badge #%d): %v", reward.ID, reward.BadgeNumber, err)
			continue
		}
		out.ClaimedCount++
		out.TotalOfficialBadges = res.TotalOfficialBadges
	}

	if out.ClaimedCount == 0 {
		total, err := officialBadgeCount(c.DB.WithContext(ctx), playerID, difficulty)
		if err != nil {
			return nil, err
		}
		out.TotalOfficialBadges = total
	}

	log.Printf("✅ [CLAIM_ALL] player=%s difficulty=%s claimed %d/%d", playerID, difficulty, out.ClaimedCount, out.Attempted)
	return out, nil
}

func officialBadgeCount(db *gorm.DB, playerID string, difficulty models.Difficulty) (int64, error) {
	var tally models.OfficialBadgeTally
	err := db.Where("player_id = ? AND difficulty = ?", playerID, difficulty).First(&tally).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, storageErr("load official badge tally", err)
	}
	return tally.ClaimedCount, nil
}

func isClaimError(err error) bool {
	return errors.Is(err, ErrRewardNotFound) ||
		errors.Is(err, ErrAlreadyClaimed) ||
		errors.Is(err, ErrNotEligible)
}
