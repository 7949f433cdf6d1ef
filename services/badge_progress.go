package services

import (
	"context"
	"fmt"
	"log"

	"whizbee-badges/models"

	"gorm.io/gorm"
)

// ProgressOutcome is what the result recorder gets back after a
// qualifying result. Either BadgeUnlocked is set (with BadgeNumber and
// CanClaim) or Progress/Remaining say how far the current set is.
type ProgressOutcome struct {
	Difficulty    models.Difficulty `json:"difficulty"`
	Count         int64             `json:"count"`
	Progress      int               `json:"progress"`
	Remaining     int               `json:"remaining"`
	BadgeUnlocked bool              `json:"badge_unlocked"`
	BadgeNumber   int               `json:"badge_number,omitempty"`
	CanClaim      bool              `json:"can_claim"`
	RewardID      string            `json:"reward_id,omitempty"`
	// Degraded means the badge was earned but its reward could not be
	// stored yet; the ledger repair job will create it.
	Degraded bool   `json:"degraded,omitempty"`
	Message  string `json:"message"`
}

// BadgeProgressService is the single entry point for recording
// qualifying results.
type BadgeProgressService struct {
	Progress *ProgressStore
	Ledger   *RewardLedger
}

func NewBadgeProgressService(db *gorm.DB) *BadgeProgressService {
	return &BadgeProgressService{
		Progress: NewProgressStore(db),
		Ledger:   NewRewardLedger(db),
	}
}

// RecordQualifyingResult counts one perfect score or battle win. A failed
// increment is returned; a failed reward insert is only logged, because
// badge bookkeeping must never block the game result itself.
func (s *BadgeProgressService) RecordQualifyingResult(ctx context.Context, playerID string, difficulty models.Difficulty, source models.ResultSource) (*ProgressOutcome, error) {
	if err := validateID("player_id", playerID); err != nil {
		return nil, err
	}
	if err := validateDifficulty(difficulty); err != nil {
		return nil, err
	}

	log.Printf("🎯 [BADGES] Recording badge progress from %s: player=%s difficulty=%s", source, playerID, difficulty)

	newCount, err := s.Progress.Increment(ctx, playerID, difficulty)
	if err != nil {
		log.Printf("❌ [BADGES] Failed to increment progress for player=%s difficulty=%s: %v", playerID, difficulty, err)
		return nil, err
	}

	milestone := DetectMilestone(newCount-1, newCount)
	if !milestone.Contiguous {
		log.Printf("⚠️ [BADGES] Non-contiguous counter step for player=%s difficulty=%s (count=%d)", playerID, difficulty, newCount)
	}

	outcome := &ProgressOutcome{
		Difficulty: difficulty,
		Count:      newCount,
		Progress:   milestone.ProgressInSet,
		Remaining:  milestone.Remaining,
	}

	if !milestone.Fired {
		outcome.Message = progressMessage(source, milestone.Remaining)
		log.Printf("📊 [BADGES] Progress updated: player=%s difficulty=%s count=%d in_set=%d", playerID, difficulty, newCount, milestone.ProgressInSet)
		return outcome, nil
	}

	outcome.BadgeUnlocked = true
	outcome.BadgeNumber = milestone.BadgeNumber
	outcome.CanClaim = true
	outcome.Message = fmt.Sprintf("Congratulations! You've earned badge #%d for %s difficulty! Visit the badge screen to claim it.",
		milestone.BadgeNumber, difficulty.Label())

	reward, created, err := s.Ledger.CreateIfAbsent(ctx, playerID, difficulty, milestone.BadgeNumber)
	if err != nil {
		log.Printf("❌ [BADGES] Could not create reward for player=%s difficulty=%s badge_number=%d, leaving it to ledger repair: %v",
			playerID, difficulty, milestone.BadgeNumber, err)
		outcome.Degraded = true
		outcome.CanClaim = false
		return outcome, nil
	}

	outcome.RewardID = reward.ID
	if created {
		log.Printf("🎊 [BADGES] Milestone reached, claimable reward created: player=%s difficulty=%s badge_number=%d", playerID, difficulty, reward.BadgeNumber)
	} else {
		log.Printf("⚠️ [BADGES] Reward already exists, skipping creation: player=%s difficulty=%s badge_number=%d", playerID, difficulty, reward.BadgeNumber)
	}
	outcome.CanClaim = !reward.Claimed()
	return outcome, nil
}

func progressMessage(source models.ResultSource, remaining int) string {
	plural := "s"
	if remaining == 1 {
		plural = ""
	}
	if source == models.SourceBattle {
		return fmt.Sprintf("%d more battle win%s needed for next badge", remaining, plural)
	}
	return fmt.Sprintf("%d more perfect score%s needed for next badge", remaining, plural)
}
