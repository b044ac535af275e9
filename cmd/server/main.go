package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-checkin/internal/checkin"
	"github.com/iliyamo/event-checkin/internal/config"
	"github.com/iliyamo/event-checkin/internal/database"
	"github.com/iliyamo/event-checkin/internal/handler"
	"github.com/iliyamo/event-checkin/internal/middleware"
	"github.com/iliyamo/event-checkin/internal/qrtoken"
	"github.com/iliyamo/event-checkin/internal/queue"
	"github.com/iliyamo/event-checkin/internal/repository"
	"github.com/iliyamo/event-checkin/internal/router"
	qp "github.com/iliyamo/event-checkin/internal/service"
)

func main() {
	// Load .env if present; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	cipher, err := qrtoken.NewCipher(cfg.QRSecret)
	if err != nil {
		log.Fatalf("qr cipher: %v", err)
	}
	codec := qrtoken.NewCodec(cipher)

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	events := repository.NewEventRepo(db)
	attendees := repository.NewAttendeeRepo(db)

	checkinSvc := checkin.NewService(codec, attendees, qp.PublishCheckinRecorded)

	// Redis backs the check-in rate limiter and the read cache.  Both fail
	// open, so a missing Redis only loses the protection, not the service.
	rdb := config.NewRedisClient()
	var (
		rateMW  echo.MiddlewareFunc
		cacheMW echo.MiddlewareFunc
	)
	if rdb != nil {
		rateMW = middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
		cacheMW = middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	}

	// The audit consumer tails the broker and appends check-in records to
	// the log file.  It reconnects on its own; a broker outage only pauses
	// the trail.
	go func() {
		if err := queue.StartCheckinConsumer(); err != nil {
			log.Printf("checkin consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret)
	router.RegisterEvents(e,
		handler.NewEventHandler(events, attendees),
		handler.NewAttendeeHandler(events, attendees, codec),
		cfg.JWTSecret, cacheMW)
	router.RegisterCheckin(e, handler.NewScanHandler(checkinSvc), cfg.JWTSecret, rateMW)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
