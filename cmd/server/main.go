package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/robfig/cron/v3"

	"github.com/iliyamo/studio-slot-reservation/internal/clock"
	"github.com/iliyamo/studio-slot-reservation/internal/config"
	"github.com/iliyamo/studio-slot-reservation/internal/database"
	"github.com/iliyamo/studio-slot-reservation/internal/handler"
	"github.com/iliyamo/studio-slot-reservation/internal/ledger"
	"github.com/iliyamo/studio-slot-reservation/internal/membership"
	"github.com/iliyamo/studio-slot-reservation/internal/occupancy"
	"github.com/iliyamo/studio-slot-reservation/internal/queue"
	"github.com/iliyamo/studio-slot-reservation/internal/refill"
	"github.com/iliyamo/studio-slot-reservation/internal/repository"
	"github.com/iliyamo/studio-slot-reservation/internal/reservation"
	"github.com/iliyamo/studio-slot-reservation/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	clk := clock.System()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; occupancy cache and rate limiting disabled")
	}

	// Domain wiring.
	evaluator := membership.NewEvaluator(repository.NewMembershipRepo(db), clk)
	cache := occupancy.NewCache(rdb, config.LoadOccupancyCacheConfig())
	aggregator := occupancy.NewAggregator(occupancy.NewDBSource(db), cache)
	ledgerManager := ledger.NewManager(db, clk)
	engine := reservation.NewEngine(
		reservation.NewMySQLStore(db, clk),
		evaluator,
		clk,
		queue.NewPublisher(clk),
		cache,
	)
	scheduler := refill.NewScheduler(refill.NewMySQLStore(db, clk), clk)

	// Background consumer that turns booking events into notification
	// log lines.  It reconnects on its own; a dead broker never blocks
	// bookings.
	go func() {
		if err := queue.StartBookingConsumer(); err != nil {
			log.Printf("booking consumer stopped: %v", err)
		}
	}()

	// Scheduled jobs run in the reference timezone so "Monday 06:00"
	// means Monday morning at the studio, not in UTC.
	c := cron.New(cron.WithSeconds(), cron.WithLocation(clock.Location()))
	if _, err := c.AddFunc(cfg.RefillCron, func() {
		report, err := scheduler.RunCycle(context.Background(), clk.Now())
		if err != nil {
			log.Printf("weekly refill cycle failed: %v", err)
			return
		}
		log.Printf("weekly refill cycle: processed=%d refilled=%d credited=%d skipped=%d errors=%d",
			report.Processed, report.Refilled, report.Credited, report.Skipped, len(report.Errors))
	}); err != nil {
		log.Fatalf("invalid REFILL_CRON: %v", err)
	}
	if _, err := c.AddFunc(cfg.ExpireCron, func() {
		n, err := ledgerManager.ExpireStale(context.Background())
		if err != nil {
			log.Printf("ledger expiry sweep failed: %v", err)
			return
		}
		log.Printf("ledger expiry sweep: deactivated=%d", n)
	}); err != nil {
		log.Fatalf("invalid LEDGER_EXPIRE_CRON: %v", err)
	}
	c.Start()
	defer c.Stop()

	e := echo.New()
	e.HideBanner = true
	router.Register(e, router.Handlers{
		Booking:    handler.NewBookingHandler(engine, repository.NewBookingRepo(db)),
		Occupancy:  handler.NewOccupancyHandler(repository.NewSlotRepo(db), repository.NewSessionRepo(db), aggregator),
		Membership: handler.NewMembershipHandler(evaluator),
		Refill:     handler.NewRefillHandler(scheduler, clk),
		Ledger:     handler.NewLedgerHandler(ledgerManager),
	}, cfg.JWTSecret, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
