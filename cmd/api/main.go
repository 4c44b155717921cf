package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/leadforge/outreach-engine/internal/adapter"
	"github.com/leadforge/outreach-engine/internal/config"
	"github.com/leadforge/outreach-engine/internal/handler"
	"github.com/leadforge/outreach-engine/internal/infra/postgresql"
	"github.com/leadforge/outreach-engine/internal/infra/postgresql/migrations"
	infraredis "github.com/leadforge/outreach-engine/internal/infra/redis"
	"github.com/leadforge/outreach-engine/internal/observability"
	"github.com/leadforge/outreach-engine/internal/queue"
	"github.com/leadforge/outreach-engine/internal/repository"
	"github.com/leadforge/outreach-engine/internal/service"
	"github.com/leadforge/outreach-engine/internal/transport"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("outreach-engine exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("postgres initialization failed: %w", err)
	}

	if err := migrations.Migrate(db); err != nil {
		return fmt.Errorf("database migrations failed: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("postgres underlying db init failed: %w", err)
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis initialization failed: %w", err)
	}
	defer rdb.Close()

	rabbit, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		return fmt.Errorf("rabbitmq initialization failed: %w", err)
	}
	defer rabbit.Close()

	publisher := queue.NewRabbitMQPublisher(rabbit)
	consumer := queue.NewRabbitMQConsumer(rabbit, cfg.WorkerConcurrency, logger)

	rateLimiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.RateLimitPerSec)
	if err != nil {
		return fmt.Errorf("rate limiter initialization failed: %w", err)
	}

	websiteCache := infraredis.NewWebsiteCache(rdb, cfg.WebsiteCacheTTL())

	leadRepo := repository.NewGormLeadRepo(db)
	runRepo := repository.NewGormScrapeRunRepo(db)
	websiteRepo := repository.NewGormWebsiteRepo(db)
	emailRepo := repository.NewGormEmailRepo(db)
	queueRepo := repository.NewGormQueueRepo(db)
	attemptRepo := repository.NewGormAttemptRepo(db)
	followupRepo := repository.NewGormFollowupRepo(db)

	scraper, err := adapter.NewFirecrawlScraper(cfg.FirecrawlURL, cfg.FirecrawlAPIKey)
	if err != nil {
		return fmt.Errorf("firecrawl adapter initialization failed: %w", err)
	}
	drafter, err := adapter.NewHTTPDrafter(cfg.DrafterURL, cfg.DrafterAPIKey)
	if err != nil {
		return fmt.Errorf("drafter adapter initialization failed: %w", err)
	}
	sender, err := adapter.NewHTTPSender(cfg.SenderURL, cfg.SenderAPIKey)
	if err != nil {
		return fmt.Errorf("sender adapter initialization failed: %w", err)
	}

	var replies adapter.ReplyObserver
	if strings.TrimSpace(cfg.ReplyTrackerURL) != "" {
		replyObserver, err := adapter.NewHTTPReplyObserver(cfg.ReplyTrackerURL, cfg.ReplyTrackerKey)
		if err != nil {
			return fmt.Errorf("reply tracker adapter initialization failed: %w", err)
		}
		replies = replyObserver
	}

	searchers := make([]adapter.LeadSearcher, 0, 2)
	if strings.TrimSpace(cfg.ApolloAPIKey) != "" {
		apollo, err := adapter.NewApolloSearcher(cfg.ApolloBaseURL, cfg.ApolloAPIKey)
		if err != nil {
			return fmt.Errorf("apollo adapter initialization failed: %w", err)
		}
		searchers = append(searchers, apollo)
	}
	if strings.TrimSpace(cfg.ApifyToken) != "" {
		apify, err := adapter.NewApifySearcher(cfg.ApifyBaseURL, cfg.ApifyToken, cfg.ApifyActorID)
		if err != nil {
			return fmt.Errorf("apify adapter initialization failed: %w", err)
		}
		searchers = append(searchers, apify)
	}
	registry := adapter.NewSearcherRegistry(searchers...)

	metrics := observability.NewMetrics()

	websiteSvc, err := service.NewWebsiteService(websiteRepo, websiteCache, scraper, rateLimiter, cfg.WebsiteCacheRefresh(), logger)
	if err != nil {
		return err
	}
	websiteSvc.SetMetrics(metrics)

	emailSvc, err := service.NewEmailService(leadRepo, emailRepo, queueRepo, websiteSvc, drafter, rateLimiter, logger)
	if err != nil {
		return err
	}
	emailSvc.SetMetrics(metrics)

	window := service.SendWindow{
		StartHour: cfg.SendWindowStartHour,
		EndHour:   cfg.SendWindowEndHour,
	}
	queueSvc, err := service.NewQueueService(
		queueRepo, attemptRepo, emailRepo, leadRepo, followupRepo,
		sender, rateLimiter, cfg.SendConcurrency, window, logger,
	)
	if err != nil {
		return err
	}
	queueSvc.SetMetrics(metrics)

	followupSvc, err := service.NewFollowupService(followupRepo, leadRepo, emailSvc, queueSvc, replies, logger)
	if err != nil {
		return err
	}
	followupSvc.SetMetrics(metrics)

	leadSvc, err := service.NewLeadService(leadRepo, runRepo, followupRepo, registry, publisher, logger)
	if err != nil {
		return err
	}
	leadSvc.SetMetrics(metrics)

	worker, err := service.NewPipelineWorker(leadRepo, emailSvc, queueSvc, consumer, cfg.WorkerConcurrency, logger)
	if err != nil {
		return err
	}
	worker.SetMetrics(metrics)

	queueRunner, err := service.NewQueueRunner(queueSvc, cfg.QueueScanInterval(), cfg.QueueScanLimit, logger)
	if err != nil {
		return err
	}
	followupRunner, err := service.NewFollowupRunner(followupSvc, cfg.FollowupScanInterval(), cfg.FollowupScanLimit, logger)
	if err != nil {
		return err
	}

	app := fiber.New(fiber.Config{
		AppName:      "outreach-engine",
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(metrics.HTTPMiddleware())

	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	app.Get("/metrics", func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(metrics.Handler())(c.Context())
		return nil
	})

	api := app.Group("/api")
	if err := handler.RegisterLeadRoutes(api, leadSvc); err != nil {
		return err
	}
	if err := handler.RegisterEmailRoutes(api, emailSvc, queueSvc); err != nil {
		return err
	}
	if err := handler.RegisterWebsiteRoutes(api, websiteSvc); err != nil {
		return err
	}
	if err := handler.RegisterFollowupRoutes(api, followupSvc); err != nil {
		return err
	}

	g, groupCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return worker.Start(groupCtx)
	})
	g.Go(func() error {
		return queueRunner.Start(groupCtx)
	})
	g.Go(func() error {
		return followupRunner.Start(groupCtx)
	})
	g.Go(func() error {
		logger.Info("outreach-engine api started", zap.Int("port", cfg.APIPort))
		return app.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	})
	g.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}

	logger.Info("outreach-engine stopped")
	return nil
}
