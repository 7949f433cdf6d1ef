package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"whizbee-badges/handlers"
	"whizbee-badges/services"
	"whizbee-badges/utils"
	"whizbee-badges/workers"

	"github.com/go-co-op/gocron/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	cfg, err := utils.LoadConfig()
	if err != nil {
		log.Fatal("invalid configuration: ", err)
	}

	db, err := utils.OpenDatabase(cfg)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	progressService := services.NewBadgeProgressService(db)
	summaryService := services.NewBadgeSummaryService(db)
	claimCoordinator := services.NewClaimCoordinator(db)
	repairer := services.NewLedgerRepairer(db)

	var schedulers []gocron.Scheduler
	repairSched, err := workers.StartLedgerRepairScheduler(ctx, repairer, cfg.RepairInterval)
	if err != nil {
		log.Fatal("failed to start ledger repair scheduler: ", err)
	}
	schedulers = append(schedulers, repairSched)

	if cfg.R2.Enabled() {
		archive, err := utils.NewR2Archive(ctx, cfg.R2)
		if err != nil {
			log.Fatal("failed to initialize R2 client: ", err)
		}
		exporter := services.NewClaimAuditExporter(db, archive, cfg.ArchivePrefix)
		job := workers.NewClaimArchiveJob(exporter, time.Now().Add(-cfg.ArchiveInterval))
		archiveSched, err := workers.StartClaimArchiveScheduler(ctx, job, cfg.ArchiveInterval)
		if err != nil {
			log.Fatal("failed to start claim archive scheduler: ", err)
		}
		schedulers = append(schedulers, archiveSched)
	} else {
		log.Println("⚠️  R2 credentials not set, claim audit archive disabled")
	}

	app := fiber.New()
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, X-Request-ID",
		MaxAge:       86400, // 24 hours
	}))

	handlers.SetupBadgeRoutes(app, handlers.NewBadgeServices(progressService, summaryService, claimCoordinator, repairer))

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Badge service running on http://localhost:%s", cfg.Port)
	log.Printf("✅ CORS configured for origins: %s", strings.Join(cfg.AllowedOrigins, ","))

	<-ctx.Done()
	log.Println("Shutting down server...")

	for _, s := range schedulers {
		if err := s.Shutdown(); err != nil {
			log.Printf("Scheduler shutdown error: %v", err)
		}
	}
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}
