package services

import "whizbee-badges/models"

// Milestone describes what a single counter step means for badges.
type Milestone struct {
	Fired         bool  `json:"fired"`
	BadgeNumber   int   `json:"badge_number,omitempty"` // set only when Fired
	ProgressInSet int   `json:"progress_in_set"`
	Remaining     int   `json:"remaining"`
	Contiguous    bool  `json:"contiguous"` // newCount == oldCount+1
	Count         int64 `json:"count"`
}

// DetectMilestone maps a counter transition to at most one badge. A
// badge fires on every positive multiple of models.BadgesPerSet. It has
// no side effects and never fails.
func DetectMilestone(oldCount, newCount int64) Milestone {
	inSet := int(newCount % models.BadgesPerSet)
	if newCount < 0 {
		inSet = 0
	}
	m := Milestone{
		ProgressInSet: inSet,
		Remaining:     models.BadgesPerSet - inSet,
		Contiguous:    newCount == oldCount+1,
		Count:         newCount,
	}
	if newCount > 0 && inSet == 0 {
		m.Fired = true
		m.BadgeNumber = int(newCount / models.BadgesPerSet)
	}
	return m
}

// earnedBadges is how many badges a counter value entitles a player to.
func earnedBadges(count int64) int {
	if count <= 0 {
		return 0
	}
	return int(count / models.BadgesPerSet)
}
