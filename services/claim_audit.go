package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"whizbee-badges/models"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// ArchiveUploader stores an exported object and returns where it went.
type ArchiveUploader interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// ClaimAuditSnapshot is the archived record of claims in one window.
type ClaimAuditSnapshot struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Since       time.Time       `json:"since"`
	Until       time.Time       `json:"until"`
	ClaimCount  int             `json:"claim_count"`
	Claims      []models.Reward `json:"claims"`
}

// ClaimAuditExporter copies claimed rewards to off-site storage so the
// claim history survives independently of the database.
type ClaimAuditExporter struct {
	DB       *gorm.DB
	Uploader ArchiveUploader
	Prefix   string
}

func NewClaimAuditExporter(db *gorm.DB, uploader ArchiveUploader, prefix string) *ClaimAuditExporter {
	return &ClaimAuditExporter{DB: db, Uploader: uploader, Prefix: prefix}
}

// Snapshot collects rewards claimed in [since, until).
func (e *ClaimAuditExporter) Snapshot(ctx context.Context, since, until time.Time) (*ClaimAuditSnapshot, error) {
	var claims []models.Reward
	if err := e.DB.WithContext(ctx).
		Where("status = ? AND claimed_at >= ? AND claimed_at < ?", models.RewardStatusClaimed, since.UTC(), until.UTC()).
		Order("claimed_at ASC").
		Find(&claims).Error; err != nil {
		return nil, storageErr("load claimed rewards", err)
	}

	return &ClaimAuditSnapshot{
		GeneratedAt: time.Now().UTC(),
		Since:       since.UTC(),
		Until:       until.UTC(),
		ClaimCount:  len(claims),
		Claims:      claims,
	}, nil
}

// Export uploads the snapshot for [since, until) and returns its URL.
// Empty windows are skipped and return "".
func (e *ClaimAuditExporter) Export(ctx context.Context, since, until time.Time) (string, error) {
	snap, err := e.Snapshot(ctx, since, until)
	if err != nil {
		return "", err
	}
	if snap.ClaimCount == 0 {
		log.Printf("➡️ [CLAIM_AUDIT] No claims between %s and %s", snap.Since.Format(time.RFC3339), snap.Until.Format(time.RFC3339))
		return "", nil
	}

	body, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode claim audit: %w", err)
	}

	key := e.ObjectKey(snap.Until)
	url, err := e.Uploader.Upload(ctx, key, body, "application/json")
	if err != nil {
		return "", fmt.Errorf("failed to upload claim audit %s: %w", key, err)
	}

	log.Printf("📦 [CLAIM_AUDIT] Archived %d claim(s) to %s", snap.ClaimCount, url)
	return url, nil
}

// ObjectKey names the archive object for a window ending at until,
// e.g. "whizbee-badges/claims/2026-10-19T00-00-00Z.json".
func (e *ClaimAuditExporter) ObjectKey(until time.Time) string {
	prefix := slug.Make(e.Prefix)
	if prefix == "" {
		prefix = "badges"
	}
	return fmt.Sprintf("%s/claims/%s.json", prefix, until.UTC().Format("2006-01-02T15-04-05Z"))
}
