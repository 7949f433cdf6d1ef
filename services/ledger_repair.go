package services

import (
	"context"
	"log"

	"whizbee-badges/models"

	"gorm.io/gorm"
)

// RepairReport summarizes one repair pass.
type RepairReport struct {
	KeysChecked    int `json:"keys_checked"`
	RewardsCreated int `json:"rewards_created"`
	// OverIssued counts rewards whose badge number is beyond what the
	// progress counter allows. They are reported, never deleted.
	OverIssued int `json:"over_issued"`
}

func (r *RepairReport) add(o RepairReport) {
	r.KeysChecked += o.KeysChecked
	r.RewardsCreated += o.RewardsCreated
	r.OverIssued += o.OverIssued
}

// LedgerRepairer makes the reward ledger match the progress counters
// again after a reward insert failed during RecordQualifyingResult.
type LedgerRepairer struct {
	DB        *gorm.DB
	Ledger    *RewardLedger
	BatchSize int
}

func NewLedgerRepairer(db *gorm.DB) *LedgerRepairer {
	return &LedgerRepairer{
		DB:        db,
		Ledger:    NewRewardLedger(db),
		BatchSize: 200,
	}
}

// RepairPlayer checks every difficulty of one player.
func (r *LedgerRepairer) RepairPlayer(ctx context.Context, playerID string) (*RepairReport, error) {
	if err := validateID("player_id", playerID); err != nil {
		return nil, err
	}

	var rows []models.BadgeProgress
	if err := r.DB.WithContext(ctx).Where("player_id = ?", playerID).Find(&rows).Error; err != nil {
		return nil, storageErr("load progress", err)
	}

	report := &RepairReport{}
	for _, row := range rows {
		one, err := r.repairKey(ctx, row)
		if err != nil {
			return report, err
		}
		report.add(one)
	}
	return report, nil
}

// RepairAll walks every counter that has earned at least one badge, in
// keyset-paginated batches ordered by (player_id, difficulty).
func (r *LedgerRepairer) RepairAll(ctx context.Context) (*RepairReport, error) {
	report := &RepairReport{}
	var lastPlayer string
	var lastDifficulty models.Difficulty

	for {
		query := r.DB.WithContext(ctx).Where("count >= ?", models.BadgesPerSet)
		if lastPlayer != "" {
			query = query.Where("(player_id > ? OR (player_id = ? AND difficulty > ?))", lastPlayer, lastPlayer, lastDifficulty)
		}

		var batch []models.BadgeProgress
		if err := query.Order("player_id ASC, difficulty ASC").Limit(r.batchSize()).Find(&batch).Error; err != nil {
			return report, storageErr("scan progress", err)
		}

		for _, row := range batch {
			one, err := r.repairKey(ctx, row)
			if err != nil {
				return report, err
			}
			report.add(one)
		}

		if len(batch) < r.batchSize() {
			break
		}
		last := batch[len(batch)-1]
		lastPlayer, lastDifficulty = last.PlayerID, last.Difficulty
	}

	if report.RewardsCreated > 0 || report.OverIssued > 0 {
		log.Printf("🛠️ [LEDGER_REPAIR] checked=%d created=%d over_issued=%d",
			report.KeysChecked, report.RewardsCreated, report.OverIssued)
	}
	return report, nil
}

func (r *LedgerRepairer) repairKey(ctx context.Context, row models.BadgeProgress) (RepairReport, error) {
	report := RepairReport{KeysChecked: 1}
	if !row.Difficulty.Valid() {
		return report, nil
	}
	expected := earnedBadges(row.Count)

	var numbers []int
	if err := r.DB.WithContext(ctx).
		Model(&models.Reward{}).
		Where("player_id = ? AND difficulty = ?", row.PlayerID, row.Difficulty).
		Pluck("badge_number", &numbers).Error; err != nil {
		return report, storageErr("load badge numbers", err)
	}

	have := make(map[int]bool, len(numbers))
	for _, n := range numbers {
		have[n] = true
		if n > expected {
			report.OverIssued++
			log.Printf("⚠️ [LEDGER_REPAIR] Over-issued reward: player=%s difficulty=%s badge_number=%d count=%d",
				row.PlayerID, row.Difficulty, n, row.Count)
		}
	}

	for n := 1; n <= expected; n++ {
		if have[n] {
			continue
		}
		_, created, err := r.Ledger.CreateIfAbsent(ctx, row.PlayerID, row.Difficulty, n)
		if err != nil {
			return report, err
		}
		if created {
			report.RewardsCreated++
			log.Printf("✅ [LEDGER_REPAIR] Created missing reward: player=%s difficulty=%s badge_number=%d",
				row.PlayerID, row.Difficulty, n)
		}
	}
	return report, nil
}

func (r *LedgerRepairer) batchSize() int {
	if r.BatchSize <= 0 {
		return 200
	}
	return r.BatchSize
}
