package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"whizbee-badges/models"
	"whizbee-badges/testutil"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// earnRewards drives a player's counter to 3*badges and creates the
// matching rewards, returning them in badge order.
func earnRewards(t *testing.T, db *gorm.DB, player string, d models.Difficulty, badges int) []*models.Reward {
	t.Helper()
	mustIncrement(t, NewProgressStore(db), player, d, badges*models.BadgesPerSet)

	ledger := NewRewardLedger(db)
	out := make([]*models.Reward, 0, badges)
	for n := 1; n <= badges; n++ {
		r, _, err := ledger.CreateIfAbsent(context.Background(), player, d, n)
		if err != nil {
			t.Fatalf("CreateIfAbsent error: %v", err)
		}
		out = append(out, r)
	}
	return out
}

func officialCount(t *testing.T, db *gorm.DB, player string, d models.Difficulty) int64 {
	t.Helper()
	n, err := officialBadgeCount(db, player, d)
	if err != nil {
		t.Fatalf("officialBadgeCount error: %v", err)
	}
	return n
}

func TestClaimMarksRewardAndIncrementsTally(t *testing.T) {
	db := testutil.OpenTestDB(t)
	coord := NewClaimCoordinator(db)
	ctx := context.Background()
	player := testutil.NewPlayerID()

	reward := earnRewards(t, db, player, models.DifficultyEasy, 1)[0]

	res, err := coord.Claim(ctx, player, reward.ID)
	if err != nil {
		t.Fatalf("Claim error: %v", err)
	}
	if res.BadgeNumber != 1 || res.Difficulty != models.DifficultyEasy {
		t.Fatalf("result=%+v", res)
	}
	if res.TotalOfficialBadges != 1 {
		t.Fatalf("total_official_badges=%d, want 1", res.TotalOfficialBadges)
	}

	stored, err := NewRewardLedger(db).Get(ctx, reward.ID)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if stored.Status != models.RewardStatusClaimed || stored.ClaimedAt == nil {
		t.Fatalf("stored reward=%+v, want claimed with claimed_at", stored)
	}
}

func TestClaimTwiceIsRejectedAndTallyUnchanged(t *testing.T) {
	db := testutil.OpenTestDB(t)
	coord := NewClaimCoordinator(db)
	ctx := context.Background()
	player := testutil.NewPlayerID()

	reward := earnRewards(t, db, player, models.DifficultyAverage, 1)[0]
	if _, err := coord.Claim(ctx, player, reward.ID); err != nil {
		t.Fatalf("first Claim error: %v", err)
	}

	if _, err := coord.Claim(ctx, player, reward.ID); !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("err=%v, want ErrAlreadyClaimed", err)
	}
	if got := officialCount(t, db, player, models.DifficultyAverage); got != 1 {
		t.Fatalf("tally=%d, want 1", got)
	}
}

func TestClaimRejectsUnknownAndForeignRewards(t *testing.T) {
	db := testutil.OpenTestDB(t)
	coord := NewClaimCoordinator(db)
	ctx := context.Background()
	owner, other := testutil.NewPlayerID(), testutil.NewPlayerID()

	reward := earnRewards(t, db, owner, models.DifficultyEasy, 1)[0]

	if _, err := coord.Claim(ctx, other, reward.ID); !errors.Is(err, ErrRewardNotFound) {
		t.Fatalf("foreign claim err=%v, want ErrRewardNotFound", err)
	}
	if _, err := coord.Claim(ctx, owner, uuid.NewString()); !errors.Is(err, ErrRewardNotFound) {
		t.Fatalf("unknown claim err=%v, want ErrRewardNotFound", err)
	}
	if _, err := coord.Claim(ctx, owner, "abc"); !errors.Is(err, ErrInvalidIdentifier) {
		t.Fatalf("malformed claim err=%v, want ErrInvalidIdentifier", err)
	}
	if got := officialCount(t, db, other, models.DifficultyEasy); got != 0 {
		t.Fatalf("other tally=%d, want 0", got)
	}
}

func TestClaimRequiresEnoughProgress(t *testing.T) {
	db := testutil.OpenTestDB(t)
	coord := NewClaimCoordinator(db)
	ctx := context.Background()
	player := testutil.NewPlayerID()

	// count 3 supports badge #1 only
	mustIncrement(t, NewProgressStore(db), player, models.DifficultyDifficult, 3)
	reward, _, err := NewRewardLedger(db).CreateIfAbsent(ctx, player, models.DifficultyDifficult, 2)
	if err != nil {
		t.Fatalf("CreateIfAbsent error: %v", err)
	}

	if _, err := coord.Claim(ctx, player, reward.ID); !errors.Is(err, ErrNotEligible) {
		t.Fatalf("err=%v, want ErrNotEligible", err)
	}

	stored, _ := NewRewardLedger(db).Get(ctx, reward.ID)
	if stored.Claimed() {
		t.Fatalf("ineligible reward was marked claimed")
	}
	if got := officialCount(t, db, player, models.DifficultyDifficult); got != 0 {
		t.Fatalf("tally=%d, want 0", got)
	}
}

func TestConcurrentClaimsOfOneRewardSucceedOnce(t *testing.T) {
	db := testutil.OpenTestDB(t)
	coord := NewClaimCoordinator(db)
	ctx := context.Background()
	player := testutil.NewPlayerID()

	reward := earnRewards(t, db, player, models.DifficultyEasy, 1)[0]

	const callers = 6
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes, conflicts := 0, 0
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := coord.Claim(ctx, player, reward.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrAlreadyClaimed):
				conflicts++
			default:
				t.Errorf("unexpected Claim error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 || conflicts != callers-1 {
		t.Fatalf("successes=%d conflicts=%d", successes, conflicts)
	}
	if got := officialCount(t, db, player, models.DifficultyEasy); got != 1 {
		t.Fatalf("tally=%d, want 1", got)
	}
}

func TestClaimAllClaimsEveryPendingReward(t *testing.T) {
	db := testutil.OpenTestDB(t)
	coord := NewClaimCoordinator(db)
	ctx := context.Background()
	player := testutil.NewPlayerID()

	earnRewards(t, db, player, models.DifficultyAverage, 3)
	earnRewards(t, db, player, models.DifficultyEasy, 1)

	res, err := coord.ClaimAll(ctx, player, models.DifficultyAverage)
	if err != nil {
		t.Fatalf("ClaimAll error: %v", err)
	}
	if res.Attempted != 3 || res.ClaimedCount != 3 || res.TotalOfficialBadges != 3 {
		t.Fatalf("result=%+v, want 3/3 with total 3", res)
	}

	average := models.DifficultyAverage
	left, _ := NewRewardLedger(db).ListUnclaimed(ctx, player, &average)
	if len(left) != 0 {
		t.Fatalf("%d average rewards still unclaimed", len(left))
	}
	easy := models.DifficultyEasy
	if left, _ := NewRewardLedger(db).ListUnclaimed(ctx, player, &easy); len(left) != 1 {
		t.Fatalf("easy reward was touched by an average claim-all")
	}
}

func TestClaimAllSkipsIneligibleRewards(t *testing.T) {
	db := testutil.OpenTestDB(t)
	coord := NewClaimCoordinator(db)
	ctx := context.Background()
	player := testutil.NewPlayerID()

	earnRewards(t, db, player, models.DifficultyEasy, 2)
	// over-issued: count 6 only supports badges 1 and 2
	if _, _, err := NewRewardLedger(db).CreateIfAbsent(ctx, player, models.DifficultyEasy, 3); err != nil {
		t.Fatalf("CreateIfAbsent error: %v", err)
	}

	res, err := coord.ClaimAll(ctx, player, models.DifficultyEasy)
	if err != nil {
		t.Fatalf("ClaimAll error: %v", err)
	}
	if res.Attempted != 3 || res.ClaimedCount != 2 || res.TotalOfficialBadges != 2 {
		t.Fatalf("result=%+v, want 2 of 3 claimed, total 2", res)
	}
}

func TestClaimAllWithNothingPending(t *testing.T) {
	db := testutil.OpenTestDB(t)
	coord := NewClaimCoordinator(db)
	ctx := context.Background()
	player := testutil.NewPlayerID()

	reward := earnRewards(t, db, player, models.DifficultyDifficult, 1)[0]
	if _, err := coord.Claim(ctx, player, reward.ID); err != nil {
		t.Fatalf("Claim error: %v", err)
	}

	res, err := coord.ClaimAll(ctx, player, models.DifficultyDifficult)
	if err != nil {
		t.Fatalf("ClaimAll error: %v", err)
	}
	if res.Attempted != 0 || res.ClaimedCount != 0 {
		t.Fatalf("result=%+v, want nothing attempted", res)
	}
	if res.TotalOfficialBadges != 1 {
		t.Fatalf("total_official_badges=%d, want existing tally 1", res.TotalOfficialBadges)
	}

	if _, err := coord.ClaimAll(ctx, player, models.Difficulty("expert")); !errors.Is(err, ErrInvalidDifficulty) {
		t.Fatalf("err=%v, want ErrInvalidDifficulty", err)
	}
}

func TestTallyMatchesClaimedRewards(t *testing.T) {
	db := testutil.OpenTestDB(t)
	coord := NewClaimCoordinator(db)
	ctx := context.Background()
	player := testutil.NewPlayerID()

	rewards := earnRewards(t, db, player, models.DifficultyEasy, 4)
	for _, r := range rewards[:2] {
		if _, err := coord.Claim(ctx, player, r.ID); err != nil {
			t.Fatalf("Claim error: %v", err)
		}
	}

	claimed, err := NewRewardLedger(db).CountByStatus(ctx, player, models.RewardStatusClaimed)
	if err != nil {
		t.Fatalf("CountByStatus error: %v", err)
	}
	if got := officialCount(t, db, player, models.DifficultyEasy); got != claimed[models.DifficultyEasy] {
		t.Fatalf("tally=%d, claimed rewards=%d", got, claimed[models.DifficultyEasy])
	}
}
