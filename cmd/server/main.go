package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"salonpos/backend/internal/cache"
	"salonpos/backend/internal/config"
	"salonpos/backend/internal/events"
	"salonpos/backend/internal/httpapi"
	"salonpos/backend/internal/notify"
	"salonpos/backend/internal/scheduler"
	"salonpos/backend/internal/service"
	"salonpos/backend/internal/store"
	"salonpos/backend/internal/store/memory"
	pgstore "salonpos/backend/internal/store/postgres"
)

func main() {
	cfg := config.Load()
	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatalf("invalid security configuration: %v", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 3)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("postgres unavailable (%v) and DATABASE_URL is set; refusing to start with in-memory fallback", err)
		}
		if err := pg.Migrate(ctx); err != nil {
			log.Fatalf("postgres migration failed: %v", err)
		}
		repo = pg
		closers = append(closers, pg.Close)
		log.Println("repository: postgres")
	} else {
		repo = memory.NewSeeded()
		log.Println("repository: in-memory")
	}

	opts := service.Options{
		CatalogTTL: time.Duration(cfg.CatalogCacheTTLSeconds) * time.Second,
		Location:   loc,
	}
	var revocations cache.Revocations
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Printf("redis unavailable (%v), using noop cache and in-memory revocations", err)
		} else {
			opts.Cache = redisCache
			revocations = redisCache
			closers = append(closers, redisCache.Close)
			log.Println("cache: redis")
		}
	} else {
		log.Println("cache: noop")
	}

	if cfg.AMQPURL != "" {
		publisher, err := events.NewRabbitPublisher(cfg.AMQPURL, cfg.EventsExchange)
		if err != nil {
			log.Printf("rabbitmq unavailable (%v), events disabled", err)
		} else {
			opts.Publisher = publisher
			closers = append(closers, publisher.Close)
			log.Printf("events: rabbitmq exchange %s", cfg.EventsExchange)
		}
	} else {
		log.Println("events: disabled")
	}

	if cfg.TwilioEnabled() {
		opts.Receipts = notify.NewTwilioReceipts(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, cfg.SalonName)
		log.Println("receipts: twilio sms")
	} else {
		log.Println("receipts: disabled")
	}

	svc := service.New(repo, opts)
	if cfg.DatabaseURL != "" && cfg.SeedAdminPassword != "" {
		if err := svc.EnsureAdmin(ctx, cfg.SeedAdminEmail, cfg.SeedAdminPassword); err != nil {
			log.Fatalf("bootstrap admin: %v", err)
		}
	}

	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, svc, revocations)
	api := httpapi.New(svc, auth, cfg.AllowedOrigin)

	var jobs *scheduler.Scheduler
	if cfg.DailySummarySchedule != "" {
		publisher := opts.Publisher
		if publisher == nil {
			publisher = events.NoopPublisher{}
		}
		jobs, err = scheduler.New(cfg.DailySummarySchedule, loc, scheduler.NewDailySummaryJob(svc, publisher))
		if err != nil {
			log.Fatalf("DAILY_SUMMARY_SCHEDULE: %v", err)
		}
		jobs.Start()
	}

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("salon POS backend listening on %s", cfg.Address())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if jobs != nil {
		jobs.Stop(shutdownCtx)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
	if err := svc.WaitForReceipts(shutdownCtx); err != nil {
		log.Printf("pending receipts not delivered: %v", err)
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Printf("close error: %v", err)
		}
	}

	log.Println("server stopped")
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if cfg.SeedAdminPassword != "" {
		if err := validatePasswordStrength(cfg.SeedAdminPassword); err != nil {
			return fmt.Errorf("SEED_ADMIN_PASSWORD is too weak: %w", err)
		}
	}
	return nil
}

// validatePasswordStrength rejects short passwords, a single repeated
// character and a list of well-known defaults.
func validatePasswordStrength(password string) error {
	if len(password) < 10 {
		return fmt.Errorf("must be at least 10 characters")
	}
	known := map[string]bool{
		"admin12345": true, "password123": true, "1234567890": true,
		"qwertyuiop": true, "changeme123": true, "salonadmin": true,
	}
	if known[strings.ToLower(password)] {
		return fmt.Errorf("common password not allowed")
	}

	allSame := true
	for i := 1; i < len(password); i++ {
		if password[i] != password[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return fmt.Errorf("repeated-character password not allowed")
	}

	return nil
}
