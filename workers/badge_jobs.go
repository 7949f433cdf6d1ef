// workers/badge_jobs.go
package workers

import (
	"context"
	"log"
	"sync"
	"time"

	"whizbee-badges/services"

	"github.com/go-co-op/gocron/v2"
)

// StartLedgerRepairScheduler runs a full ledger repair every interval.
// The caller shuts the returned scheduler down.
func StartLedgerRepairScheduler(ctx context.Context, repairer *services.LedgerRepairer, interval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			report, err := repairer.RepairAll(ctx)
			if err != nil {
				log.Printf("❌ [LEDGER_REPAIR] Repair pass failed: %v", err)
				return
			}
			log.Printf("🔁 [LEDGER_REPAIR] Pass done: checked=%d created=%d over_issued=%d",
				report.KeysChecked, report.RewardsCreated, report.OverIssued)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, err
	}

	sched.Start()
	log.Printf("✅ Ledger repair scheduled every %s", interval)
	return sched, nil
}

// ClaimArchiveJob exports claims window by window. The window only
// advances after a successful upload, so a failed tick is retried with
// the same start on the next one.
type ClaimArchiveJob struct {
	Exporter *services.ClaimAuditExporter

	mu        sync.Mutex
	lastUntil time.Time
}

func NewClaimArchiveJob(exporter *services.ClaimAuditExporter, start time.Time) *ClaimArchiveJob {
	return &ClaimArchiveJob{Exporter: exporter, lastUntil: start.UTC()}
}

// Run exports everything claimed since the last successful run up to now.
func (j *ClaimArchiveJob) Run(ctx context.Context, now time.Time) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	until := now.UTC()
	if _, err := j.Exporter.Export(ctx, j.lastUntil, until); err != nil {
		return err
	}
	j.lastUntil = until
	return nil
}

// StartClaimArchiveScheduler runs job every interval.
func StartClaimArchiveScheduler(ctx context.Context, job *ClaimArchiveJob, interval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if err := job.Run(ctx, time.Now()); err != nil {
				log.Printf("❌ [CLAIM_AUDIT] Export failed, will retry next tick: %v", err)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, err
	}

	sched.Start()
	log.Printf("✅ Claim audit archive scheduled every %s", interval)
	return sched, nil
}
