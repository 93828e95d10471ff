package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/i474232898/air-quality-etl/internal/airquality"
	"github.com/i474232898/air-quality-etl/internal/airquality/providers"
	httpapi "github.com/i474232898/air-quality-etl/internal/api/http"
	"github.com/i474232898/air-quality-etl/internal/config"
	"github.com/i474232898/air-quality-etl/internal/metrics"
	"github.com/i474232898/air-quality-etl/internal/notify"
	"github.com/i474232898/air-quality-etl/internal/scheduler"
	"github.com/i474232898/air-quality-etl/internal/store"
)

// sink is what the pipeline writes to and the API reads from.
type sink interface {
	airquality.Sink
	airquality.ReadingStore
}

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Shared HTTP client for outbound API calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	fetcher := providers.NewOpenWeatherProvider(httpClient, cfg.OpenWeatherAPIKey,
		providers.WithBaseURL(cfg.OpenWeatherURL),
		providers.WithBackoff(providers.BackoffConfig{
			MaxRetries:      cfg.FetchMaxRetries,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		}),
	)

	var dest sink
	if cfg.DB.Enabled() {
		db, err := store.Open(ctx, cfg.DB.DSN())
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		defer db.Close()
		dest = store.NewPostgresStore(db)
		log.Println("INFO: persisting to postgres")
	} else {
		dest = store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)
		log.Println("INFO: no database configured; using in-memory store")
	}
	if err := dest.EnsureSchema(ctx); err != nil {
		log.Fatalf("failed to ensure schema: %v", err)
	}

	m := metrics.New()
	opts := []airquality.Option{airquality.WithRecorder(m)}

	if len(cfg.KafkaBrokers) > 0 {
		pub, err := notify.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaAlertTopic)
		if err != nil {
			log.Fatalf("failed to configure alert publisher: %v", err)
		}
		defer pub.Close()
		opts = append(opts, airquality.WithPublisher(pub))
		log.Printf("INFO: publishing alerts to kafka topic %s", cfg.KafkaAlertTopic)
	}

	enricher := airquality.NewEnricher(cfg.Categories, cfg.SpikeThreshold)
	pipeline := airquality.NewPipeline(fetcher, dest, enricher, cfg.Coordinate, opts...)

	// Scheduler that periodically runs the pipeline.
	sched := scheduler.New(cfg.ScheduleInterval, cfg.TickTimeout, pipeline)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "air-quality-etl",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "air-quality-etl",
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))

	httpapi.RegisterRoutes(app, dest, pipeline)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	log.Printf("INFO: observing %s every %s (spike threshold %.2f, categories %s)",
		cfg.Coordinate, cfg.ScheduleInterval, cfg.SpikeThreshold, config.FormatCategories(cfg.Categories))

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
