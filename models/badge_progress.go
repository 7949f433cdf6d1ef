package models

import (
	"time"
)

// BadgeProgress counts qualifying results (perfect challenge scores and
// battle wins) per player and difficulty. The count only ever goes up.
type BadgeProgress struct {
	PlayerID   string     `gorm:"primaryKey;type:varchar(64)" json:"player_id"`
	Difficulty Difficulty `gorm:"primaryKey;type:varchar(16)" json:"difficulty"`
	Count      int64      `gorm:"not null;default:0" json:"count"`

	Timestamps
}

func (BadgeProgress) TableName() string { return "badge_progress" }

// OfficialBadgeTally is the number of rewards a player has claimed for a
// difficulty. Only the claim transaction touches it.
type OfficialBadgeTally struct {
	PlayerID     string     `gorm:"primaryKey;type:varchar(64)" json:"player_id"`
	Difficulty   Difficulty `gorm:"primaryKey;type:varchar(16)" json:"difficulty"`
	ClaimedCount int64      `gorm:"not null;default:0" json:"claimed_count"`

	Timestamps
}

func (OfficialBadgeTally) TableName() string { return "official_badge_tallies" }

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// BadgesPerSet is how many qualifying results make one badge.
const BadgesPerSet = 3

// All returns every model the service migrates.
func All() []interface{} {
	return []interface{}{
		&BadgeProgress{},
		&OfficialBadgeTally{},
		&Reward{},
	}
}
