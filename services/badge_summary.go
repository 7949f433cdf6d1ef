package services

import (
	"context"

	"whizbee-badges/models"

	"gorm.io/gorm"
)

type TrackProgress struct {
	CurrentCount int   `json:"current_count"` // results toward the next badge, 0..2
	Remaining    int   `json:"remaining"`
	TotalEarned  int64 `json:"total_earned"` // lifetime qualifying results
}

type BadgeSummary struct {
	Progress            map[models.Difficulty]TrackProgress `json:"progress"`
	OfficialBadges      map[models.Difficulty]int64         `json:"official_badges"`
	Unclaimed           map[models.Difficulty]int64         `json:"unclaimed"`
	TotalOfficialBadges int64                               `json:"total_official_badges"`
	TotalUnclaimed      int64                               `json:"total_unclaimed"`
}

type PlayerRewards struct {
	Rewards        map[models.Difficulty][]models.Reward `json:"data"`
	OfficialTotals map[models.Difficulty]int64           `json:"summary"`
	Unclaimed      map[models.Difficulty]int64           `json:"unclaimed"`
	Claimed        map[models.Difficulty]int64           `json:"claimed"`
}

type UnclaimedRewards struct {
	Rewards        map[models.Difficulty][]models.Reward `json:"data"`
	Counts         map[models.Difficulty]int64           `json:"counts"`
	TotalUnclaimed int64                                 `json:"total_unclaimed"`
}

// BadgeSummaryService backs the badge screen: progress, official badges
// and what is waiting to be claimed, for all difficulties at once.
type BadgeSummaryService struct {
	DB       *gorm.DB
	Progress *ProgressStore
	Ledger   *RewardLedger
}

func NewBadgeSummaryService(db *gorm.DB) *BadgeSummaryService {
	return &BadgeSummaryService{
		DB:       db,
		Progress: NewProgressStore(db),
		Ledger:   NewRewardLedger(db),
	}
}

func (s *BadgeSummaryService) Summary(ctx context.Context, playerID string) (*BadgeSummary, error) {
	counts, err := s.Progress.GetAll(ctx, playerID)
	if err != nil {
		return nil, err
	}
	official, err := s.OfficialBadges(ctx, playerID)
	if err != nil {
		return nil, err
	}
	unclaimed, err := s.Ledger.CountByStatus(ctx, playerID, models.RewardStatusUnclaimed)
	if err != nil {
		return nil, err
	}

	summary := &BadgeSummary{
		Progress:       make(map[models.Difficulty]TrackProgress, len(models.Difficulties)),
		OfficialBadges: official,
		Unclaimed:      unclaimed,
	}
	for _, d := range models.Difficulties {
		m := DetectMilestone(counts[d]-1, counts[d])
		summary.Progress[d] = TrackProgress{
			CurrentCount: m.ProgressInSet,
			Remaining:    m.Remaining,
			TotalEarned:  counts[d],
		}
		summary.TotalOfficialBadges += official[d]
		summary.TotalUnclaimed += unclaimed[d]
	}
	return summary, nil
}

// OfficialBadges returns claimed badge tallies per difficulty, zero-filled.
func (s *BadgeSummaryService) OfficialBadges(ctx context.Context, playerID string) (map[models.Difficulty]int64, error) {
	if err := validateID("player_id", playerID); err != nil {
		return nil, err
	}

	var tallies []models.OfficialBadgeTally
	if err := s.DB.WithContext(ctx).Where("player_id = ?", playerID).Find(&tallies).Error; err != nil {
		return nil, storageErr("load official badges", err)
	}

	out := make(map[models.Difficulty]int64, len(models.Difficulties))
	for _, d := range models.Difficulties {
		out[d] = 0
	}
	for _, t := range tallies {
		if t.Difficulty.Valid() {
			out[t.Difficulty] = t.ClaimedCount
		}
	}
	return out, nil
}

// Rewards lists every reward grouped by difficulty, newest first.
func (s *BadgeSummaryService) Rewards(ctx context.Context, playerID string) (*PlayerRewards, error) {
	all, err := s.Ledger.ListByPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	official, err := s.OfficialBadges(ctx, playerID)
	if err != nil {
		return nil, err
	}

	out := &PlayerRewards{
		Rewards:        groupByDifficulty(all),
		OfficialTotals: official,
		Unclaimed:      make(map[models.Difficulty]int64, len(models.Difficulties)),
		Claimed:        make(map[models.Difficulty]int64, len(models.Difficulties)),
	}
	for _, d := range models.Difficulties {
		out.Unclaimed[d] = 0
		out.Claimed[d] = 0
	}
	for _, r := range all {
		if r.Claimed() {
			out.Claimed[r.Difficulty]++
		} else {
			out.Unclaimed[r.Difficulty]++
		}
	}
	return out, nil
}

// Unclaimed is the claim screen: pending rewards grouped by difficulty.
func (s *BadgeSummaryService) Unclaimed(ctx context.Context, playerID string, difficulty *models.Difficulty) (*UnclaimedRewards, error) {
	pending, err := s.Ledger.ListUnclaimed(ctx, playerID, difficulty)
	if err != nil {
		return nil, err
	}

	out := &UnclaimedRewards{
		Rewards: groupByDifficulty(pending),
		Counts:  make(map[models.Difficulty]int64, len(models.Difficulties)),
	}
	for _, d := range models.Difficulties {
		out.Counts[d] = int64(len(out.Rewards[d]))
		out.TotalUnclaimed += out.Counts[d]
	}
	return out, nil
}

func groupByDifficulty(rewards []models.Reward) map[models.Difficulty][]models.Reward {
	grouped := make(map[models.Difficulty][]models.Reward, len(models.Difficulties))
	for _, d := range models.Difficulties {
		grouped[d] = []models.Reward{}
	}
	for _, r := range rewards {
		if _, ok := grouped[r.Difficulty]; ok {
			grouped[r.Difficulty] = append(grouped[r.Difficulty], r)
		}
	}
	return grouped
}
