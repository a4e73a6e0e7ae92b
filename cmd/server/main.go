package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/leadconvert/leadconvert/internal/api"
	"github.com/leadconvert/leadconvert/internal/archive"
	"github.com/leadconvert/leadconvert/internal/config"
	"github.com/leadconvert/leadconvert/internal/esp/sendgrid"
	"github.com/leadconvert/leadconvert/internal/esp/ses"
	"github.com/leadconvert/leadconvert/internal/mailing"
	"github.com/leadconvert/leadconvert/internal/pkg/dedup"
	"github.com/leadconvert/leadconvert/internal/pkg/distlock"
	"github.com/leadconvert/leadconvert/internal/pkg/logger"
	"github.com/leadconvert/leadconvert/internal/repository/postgres"
	"github.com/leadconvert/leadconvert/internal/service/analytics"
	"github.com/leadconvert/leadconvert/internal/service/campaign"
	"github.com/leadconvert/leadconvert/internal/service/lead"
	"github.com/leadconvert/leadconvert/internal/service/sending"
	"github.com/leadconvert/leadconvert/internal/service/suppression"
	"github.com/leadconvert/leadconvert/internal/service/webhook"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		fatal("load config", err)
	}
	if err := logger.Setup(cfg.Logging.Level, cfg.Logging.Redact()); err != nil {
		fatal("setup logger", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := cfg.Validate(); err != nil {
		fatal("config", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		fatal("database", err)
	}
	defer db.Close()

	redisClient := openRedis(ctx, cfg.Redis.URL)
	if redisClient != nil {
		defer redisClient.Close()
	}

	gateway, err := newGateway(ctx, cfg)
	if err != nil {
		fatal("email provider", err)
	}

	verifier, err := sendgrid.NewVerifier(cfg.SendGrid.WebhookPublicKey)
	if err != nil {
		fatal("webhook verifier", err)
	}
	if !verifier.Enforcing() {
		logger.Warn("SENDGRID_WEBHOOK_PUBLIC_KEY not set, webhook signatures are not verified")
	}

	archiver, err := archive.New(ctx, archive.Options{
		Bucket:          cfg.Archive.Bucket,
		Prefix:          cfg.Archive.Prefix,
		Region:          cfg.Archive.Region,
		AccessKeyID:     cfg.SES.AccessKey,
		SecretAccessKey: cfg.SES.SecretKey,
	})
	if err != nil {
		fatal("webhook archive", err)
	}

	suppressionSvc := suppression.NewService(postgres.NewSuppressionRepo(db))
	leadSvc := lead.NewService(postgres.NewLeadRepo(db))
	campaignSvc := campaign.NewService(campaign.Deps{
		Repo:       postgres.NewCampaignRepo(db),
		Resolver:   leadSvc,
		Gateway:    gateway,
		Renderer:   mailing.NewRenderer(),
		Suppressor: suppressionSvc,
		Locker:     distlock.NewLocker(redisClient, db, 30*time.Second),
	}, campaign.Config{
		FromEmail:                 cfg.Mailing.FromEmail,
		DefaultSenderName:         cfg.Mailing.DefaultSenderName,
		CountUnmatchedRecipients:  cfg.Mailing.CountUnmatchedRecipients,
		SkipSuppressed:            cfg.Mailing.SkipSuppressed,
		MarkFailedOnDispatchError: cfg.Mailing.MarkFailedOnDispatchError,
		DispatchTimeout:           cfg.Mailing.DispatchTimeout(),
	})
	ingestor := webhook.NewIngestor(webhook.Deps{
		Tx:        postgres.NewWebhookTx(db),
		Campaigns: campaignSvc,
		Lookup:    campaignSvc,
		Dedup:     dedup.New(redisClient, "webhook", cfg.Webhook.DedupTTL()),
	})

	handlers := api.NewHandlers(api.Deps{
		Campaigns:    campaignSvc,
		Ingestor:     ingestor,
		Verifier:     verifier,
		Archiver:     archiver,
		Analytics:    analytics.NewService(postgres.NewAnalyticsRepo(db)),
		Leads:        leadSvc,
		Suppressions: suppressionSvc,
		Health:       api.NewHealthChecker(db, redisClient),
	})
	server := api.NewServer(cfg.Server, handlers)

	// Setup graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("starting server", "addr", cfg.Server.Addr(), "provider", gateway.Name())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("server", err)
		}
	}()

	<-done
	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	logger.Info("server stopped")
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(30 * time.Second)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("database connected", "max_open_conns", cfg.MaxOpenConns)
	return db, nil
}

// openRedis returns nil when Redis is not configured or unreachable; dedup
// then relies on the event table and locking on PG advisory locks.
func openRedis(ctx context.Context, url string) *redis.Client {
	if url == "" {
		logger.Info("redis not configured, using PG advisory locks and event-table dedup")
		return nil
	}
	var client *redis.Client
	if opts, err := redis.ParseURL(url); err == nil {
		client = redis.NewClient(opts)
	} else {
		client = redis.NewClient(&redis.Options{Addr: url})
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable, falling back to PG", "error", err)
		client.Close()
		return nil
	}
	logger.Info("redis connected")
	return client
}

func newGateway(ctx context.Context, cfg *config.Config) (sending.Gateway, error) {
	switch cfg.Mailing.Provider {
	case config.ProviderSES:
		s, err := ses.NewSender(ctx, ses.Options{
			Region:           cfg.SES.Region,
			AccessKeyID:      cfg.SES.AccessKey,
			SecretAccessKey:  cfg.SES.SecretKey,
			ConfigurationSet: cfg.SES.ConfigurationSet,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		if cfg.SendGrid.APIKey == "" {
			return nil, campaign.ErrNotConfigured
		}
		return sendgrid.NewSender(sendgrid.Options{
			APIKey:     cfg.SendGrid.APIKey,
			BaseURL:    cfg.SendGrid.BaseURL,
			MaxRetries: cfg.SendGrid.MaxRetries,
		}), nil
	}
}

func fatal(what string, err error) {
	logger.Error("fatal: "+what, "error", err)
	_ = logger.Sync()
	os.Exit(1)
}
