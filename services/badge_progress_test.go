package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"whizbee-badges/models"
	"whizbee-badges/testutil"
)

func TestRecordQualifyingResultEarnsAndClaimsBadges(t *testing.T) {
	db := testutil.OpenTestDB(t)
	svc := NewBadgeProgressService(db)
	coord := NewClaimCoordinator(db)
	ctx := context.Background()
	player := testutil.NewPlayerID()

	var outcome *ProgressOutcome
	for i := 1; i <= 3; i++ {
		var err error
		outcome, err = svc.RecordQualifyingResult(ctx, player, models.DifficultyEasy, models.SourceChallenge)
		if err != nil {
			t.Fatalf("RecordQualifyingResult #%d error: %v", i, err)
		}
		if i < 3 && outcome.BadgeUnlocked {
			t.Fatalf("badge unlocked after %d results", i)
		}
	}

	if !outcome.BadgeUnlocked || outcome.BadgeNumber != 1 || !outcome.CanClaim || outcome.RewardID == "" {
		t.Fatalf("third result outcome=%+v", outcome)
	}
	if !strings.Contains(outcome.Message, "badge #1 for Easy difficulty") {
		t.Fatalf("message=%q", outcome.Message)
	}

	res, err := coord.Claim(ctx, player, outcome.RewardID)
	if err != nil {
		t.Fatalf("Claim error: %v", err)
	}
	if res.TotalOfficialBadges != 1 {
		t.Fatalf("total_official_badges=%d, want 1", res.TotalOfficialBadges)
	}

	for i := 0; i < 3; i++ {
		outcome, err = svc.RecordQualifyingResult(ctx, player, models.DifficultyEasy, models.SourceBattle)
		if err != nil {
			t.Fatalf("RecordQualifyingResult error: %v", err)
		}
	}
	if !outcome.BadgeUnlocked || outcome.BadgeNumber != 2 || outcome.Count != 6 {
		t.Fatalf("sixth result outcome=%+v", outcome)
	}

	easy := models.DifficultyEasy
	pending, _ := svc.Ledger.ListUnclaimed(ctx, player, &easy)
	if len(pending) != 1 || pending[0].BadgeNumber != 2 {
		t.Fatalf("pending=%+v, want only badge #2", pending)
	}
}

func TestRecordQualifyingResultConcurrentBelowThreshold(t *testing.T) {
	db := testutil.OpenTestDB(t)
	svc := NewBadgeProgressService(db)
	ctx := context.Background()
	player := testutil.NewPlayerID()

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := svc.RecordQualifyingResult(ctx, player, models.DifficultyAverage, models.SourceChallenge)
			if err != nil {
				t.Errorf("RecordQualifyingResult error: %v", err)
				return
			}
			if out.BadgeUnlocked {
				t.Errorf("badge unlocked below threshold: %+v", out)
			}
		}()
	}
	wg.Wait()

	if got, _ := svc.Progress.Get(ctx, player, models.DifficultyAverage); got != 2 {
		t.Fatalf("count=%d, want 2", got)
	}
	assertRewardCount(t, svc.Ledger, player, 0)
}

func TestRecordQualifyingResultConcurrentCrossingMakesOneReward(t *testing.T) {
	db := testutil.OpenTestDB(t)
	svc := NewBadgeProgressService(db)
	ctx := context.Background()
	player := testutil.NewPlayerID()

	const results = 9
	var wg sync.WaitGroup
	for i := 0; i < results; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.RecordQualifyingResult(ctx, player, models.DifficultyDifficult, models.SourceBattle); err != nil {
				t.Errorf("RecordQualifyingResult error: %v", err)
			}
		}()
	}
	wg.Wait()

	if got, _ := svc.Progress.Get(ctx, player, models.DifficultyDifficult); got != results {
		t.Fatalf("count=%d, want %d", got, results)
	}
	rewards, _ := svc.Ledger.ListByPlayer(ctx, player)
	if len(rewards) != 3 {
		t.Fatalf("rewards=%d, want 3", len(rewards))
	}
	seen := map[int]bool{}
	for _, r := range rewards {
		if seen[r.BadgeNumber] {
			t.Fatalf("badge #%d issued twice", r.BadgeNumber)
		}
		seen[r.BadgeNumber] = true
	}
}

func TestRecordQualifyingResultProgressMessages(t *testing.T) {
	db := testutil.OpenTestDB(t)
	svc := NewBadgeProgressService(db)
	ctx := context.Background()
	player := testutil.NewPlayerID()

	out, err := svc.RecordQualifyingResult(ctx, player, models.DifficultyEasy, models.SourceChallenge)
	if err != nil {
		t.Fatalf("RecordQualifyingResult error: %v", err)
	}
	if out.Progress != 1 || out.Remaining != 2 {
		t.Fatalf("progress=%d remaining=%d, want 1 and 2", out.Progress, out.Remaining)
	}
	if out.Message != "2 more perfect scores needed for next badge" {
		t.Fatalf("message=%q", out.Message)
	}

	out, _ = svc.RecordQualifyingResult(ctx, player, models.DifficultyEasy, models.SourceBattle)
	if out.Message != "1 more battle win needed for next badge" {
		t.Fatalf("message=%q", out.Message)
	}
}

func TestRecordQualifyingResultDegradesWhenRewardInsertFails(t *testing.T) {
	db := testutil.OpenTestDB(t)
	svc := NewBadgeProgressService(db)
	ctx := context.Background()
	player := testutil.NewPlayerID()

	mustIncrement(t, svc.Progress, player, models.DifficultyEasy, 2)
	if err := db.Migrator().DropTable(&models.Reward{}); err != nil {
		t.Fatalf("drop rewards table: %v", err)
	}

	out, err := svc.RecordQualifyingResult(ctx, player, models.DifficultyEasy, models.SourceChallenge)
	if err != nil {
		t.Fatalf("RecordQualifyingResult error: %v, want degraded outcome", err)
	}
	if !out.BadgeUnlocked || !out.Degraded || out.CanClaim || out.RewardID != "" {
		t.Fatalf("outcome=%+v, want unlocked but degraded", out)
	}
	if got, _ := svc.Progress.Get(ctx, player, models.DifficultyEasy); got != 3 {
		t.Fatalf("count=%d, want 3", got)
	}

	if err := db.AutoMigrate(&models.Reward{}); err != nil {
		t.Fatalf("recreate rewards table: %v", err)
	}
	report, err := NewLedgerRepairer(db).RepairPlayer(ctx, player)
	if err != nil {
		t.Fatalf("RepairPlayer error: %v", err)
	}
	if report.RewardsCreated != 1 {
		t.Fatalf("repair created %d rewards, want 1", report.RewardsCreated)
	}
}

func TestRecordQualifyingResultRejectsBadInput(t *testing.T) {
	db := testutil.OpenTestDB(t)
	svc := NewBadgeProgressService(db)
	ctx := context.Background()

	if _, err := svc.RecordQualifyingResult(ctx, "nobody", models.DifficultyEasy, models.SourceChallenge); !errors.Is(err, ErrInvalidIdentifier) {
		t.Fatalf("err=%v, want ErrInvalidIdentifier", err)
	}
	player := testutil.NewPlayerID()
	if _, err := svc.RecordQualifyingResult(ctx, player, models.Difficulty(""), models.SourceChallenge); !errors.Is(err, ErrInvalidDifficulty) {
		t.Fatalf("err=%v, want ErrInvalidDifficulty", err)
	}
	if got, _ := svc.Progress.Get(ctx, player, models.DifficultyEasy); got != 0 {
		t.Fatalf("rejected input changed progress to %d", got)
	}
}

func TestRecordQualifyingResultFailsOnStorageError(t *testing.T) {
	db := testutil.OpenTestDB(t)
	svc := NewBadgeProgressService(db)

	sqlDB, _ := db.DB()
	sqlDB.Close()

	_, err := svc.RecordQualifyingResult(context.Background(), testutil.NewPlayerID(), models.DifficultyEasy, models.SourceChallenge)
	if !IsStorageError(err) {
		t.Fatalf("err=%v, want *StorageError", err)
	}
}
