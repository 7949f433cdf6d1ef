package services

import (
	"context"
	"errors"
	"time"

	"whizbee-badges/models"

	"gorm.io/gorm"
)

// incrementSQL bumps one counter in a single statement so concurrent
// results for the same player and difficulty can never lose an update.
const incrementSQL = `
INSERT INTO badge_progress (player_id, difficulty, count, created_at, updated_at)
VALUES (?, ?, 1, ?, ?)
ON CONFLICT (player_id, difficulty)
DO UPDATE SET count = badge_progress.count + 1, updated_at = excluded.updated_at
RETURNING count`

type ProgressStore struct {
	DB *gorm.DB
}

func NewProgressStore(db *gorm.DB) *ProgressStore {
	return &ProgressStore{DB: db}
}

// Increment records one qualifying result and returns the new count.
func (s *ProgressStore) Increment(ctx context.Context, playerID string, difficulty models.Difficulty) (int64, error) {
	if err := validateID("player_id", playerID); err != nil {
		return 0, err
	}
	if err := validateDifficulty(difficulty); err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	var count int64
	if err := s.DB.WithContext(ctx).Raw(incrementSQL, playerID, difficulty, now, now).Scan(&count).Error; err != nil {
		return 0, storageErr("increment progress", err)
	}
	return count, nil
}

// Get returns the current count, 0 when the player has no progress yet.
func (s *ProgressStore) Get(ctx context.Context, playerID string, difficulty models.Difficulty) (int64, error) {
	if err := validateID("player_id", playerID); err != nil {
		return 0, err
	}
	if err := validateDifficulty(difficulty); err != nil {
		return 0, err
	}
	return progressCount(s.DB.WithContext(ctx), playerID, difficulty)
}

// GetAll returns the counts for every difficulty, zero-filled.
func (s *ProgressStore) GetAll(ctx context.Context, playerID string) (map[models.Difficulty]int64, error) {
	if err := validateID("player_id", playerID); err != nil {
		return nil, err
	}

	var rows []models.BadgeProgress
	if err := s.DB.WithContext(ctx).Where("player_id = ?", playerID).Find(&rows).Error; err != nil {
		return nil, storageErr("load progress", err)
	}

	counts := make(map[models.Difficulty]int64, len(models.Difficulties))
	for _, d := range models.Difficulties {
		counts[d] = 0
	}
	for _, row := range rows {
		if row.Difficulty.Valid() {
			counts[row.Difficulty] = row.Count
		}
	}
	return counts, nil
}

// progressCount reads a counter through db, which may be a transaction.
func progressCount(db *gorm.DB, playerID string, difficulty models.Difficulty) (int64, error) {
	var prog models.BadgeProgress
	err := db.Where("player_id = ? AND difficulty = ?", playerID, difficulty).First(&prog).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, storageErr("load progress", err)
	}
	return prog.Count, nil
}
