// Package app monta as dependências compartilhadas pelos binários.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xavierca1/agency-backoffice/internal/config"
	"github.com/xavierca1/agency-backoffice/internal/entity"
	"github.com/xavierca1/agency-backoffice/internal/infra/cache"
	"github.com/xavierca1/agency-backoffice/internal/infra/database"
	"github.com/xavierca1/agency-backoffice/internal/infra/integration/trello"
	"github.com/xavierca1/agency-backoffice/internal/infra/mail"
	"github.com/xavierca1/agency-backoffice/internal/infra/memory"
	"github.com/xavierca1/agency-backoffice/internal/infra/queue"
	"github.com/xavierca1/agency-backoffice/internal/usecase"
)

type App struct {
	Config *config.Config
	Log    *zap.Logger

	DB       *sql.DB
	RabbitMQ *queue.RabbitMQ
	Redis    *redis.Client

	Leads   entity.LeadRepositoryInterface
	Configs entity.BoardConfigRepositoryInterface
	Client  *trello.Client

	Syncer     *usecase.SyncCardUseCase
	Reconcile  *usecase.ReconcileUseCase
	CardEvents *usecase.HandleCardEventUseCase
	Webhooks   *usecase.WebhookLifecycleUseCase
	Backfill   *usecase.BackfillListNamesUseCase
}

// New conecta storage, broker e cache conforme a configuração. RabbitMQ,
// Redis e SMTP são opcionais: sem URL, a funcionalidade fica desligada.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log}

	switch cfg.Storage {
	case config.StorageMemory:
		log.Warn("usando storage em memória; dados não persistem")
		a.Leads = memory.NewLeadRepository()
		a.Configs = memory.NewBoardConfigRepository()
	case config.StoragePostgres:
		db, err := database.NewDBConnection(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("erro ao conectar no banco: %w", err)
		}
		a.DB = db
		if err := database.Migrate(ctx, db); err != nil {
			a.Close()
			return nil, err
		}
		a.Leads = database.NewLeadRepository(db)
		a.Configs = database.NewBoardConfigRepository(db)
	default:
		return nil, fmt.Errorf("APP_STORAGE desconhecido: %q", cfg.Storage)
	}

	var publisher usecase.LeadEventPublisher
	if cfg.RabbitMQURL != "" {
		rmq, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.RabbitMQ = rmq
		publisher = queue.NewProducer(rmq.Ch)
	} else {
		log.Info("RABBITMQ_URL vazio; eventos de lead desativados")
	}

	var boardCache usecase.BoardIDCache
	if cfg.RedisURL != "" {
		rdb, err := cache.NewClient(cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Redis = rdb
		boardCache = cache.NewBoardIDCache(rdb, cache.DefaultBoardTTL)
	}

	var reporter usecase.SyncReporter
	if cfg.Mail.Enabled() {
		m := cfg.Mail
		reporter = mail.NewEmailSender(m.Host, m.Port, m.User, m.Pass, m.From, m.To)
	}

	a.Client = trello.NewClient(trello.Options{
		BaseURL:       cfg.TrelloBaseURL,
		RatePerSecond: cfg.TrelloRatePerSecond,
		Burst:         cfg.TrelloRateBurst,
		Log:           log.Named("trello"),
	})

	settings := usecase.ReconcileSettings{
		Concurrency:   cfg.Sync.Concurrency,
		QuickWindow:   cfg.Sync.QuickWindow,
		QuickMaxCards: cfg.Sync.QuickMaxCards,
		QuickDeadline: cfg.Sync.QuickDeadline,
		FullDeadline:  cfg.Sync.FullDeadline,
	}

	a.Syncer = usecase.NewSyncCardUseCase(a.Client, a.Leads, publisher, log.Named("sync"))
	a.Reconcile = usecase.NewReconcileUseCase(a.Configs, a.Client, a.Syncer, a.Leads, reporter, settings, log.Named("reconcile"))
	a.CardEvents = usecase.NewHandleCardEventUseCase(a.Configs, a.Syncer, log.Named("webhook"))
	a.Webhooks = usecase.NewWebhookLifecycleUseCase(a.Configs, a.Client, boardCache, log.Named("webhook-lifecycle"))
	a.Backfill = usecase.NewBackfillListNamesUseCase(a.Configs, a.Client, a.Leads, log.Named("backfill"))
	return a, nil
}

func (a *App) Close() {
	if a.RabbitMQ != nil {
		a.RabbitMQ.Close()
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
