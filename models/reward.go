package models

import (
	"time"
)

// RewardStatus tracks whether a reward has been redeemed for an official badge
type RewardStatus string

const (
	RewardStatusUnclaimed RewardStatus = "unclaimed"
	RewardStatusClaimed   RewardStatus = "claimed"
)

// Reward is a claimable badge created when a player's progress on a
// difficulty reaches a multiple of BadgesPerSet. BadgeNumber is
// count/BadgesPerSet at creation time. Rewards are never deleted.
type Reward struct {
	ID          string       `gorm:"primaryKey;type:varchar(36)" json:"id"`
	PlayerID    string       `gorm:"type:varchar(64);not null;uniqueIndex:idx_reward_milestone,priority:1;index:idx_reward_player_status,priority:1" json:"player_id"`
	Difficulty  Difficulty   `gorm:"type:varchar(16);not null;uniqueIndex:idx_reward_milestone,priority:2" json:"difficulty"`
	BadgeNumber int          `gorm:"not null;uniqueIndex:idx_reward_milestone,priority:3" json:"badge_number"`
	EarnedAt    time.Time    `gorm:"not null;index" json:"earned_at"`
	Status      RewardStatus `gorm:"type:varchar(16);not null;index:idx_reward_player_status,priority:2" json:"status"`
	ClaimedAt   *time.Time   `json:"claimed_at"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func (Reward) TableName() string { return "player_rewards" }

func (r *Reward) Claimed() bool {
	return r.Status == RewardStatusClaimed
}
