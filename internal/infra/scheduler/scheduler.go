// Package scheduler dispara a reconciliação periódica de todos os tenants.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/xavierca1/agency-backoffice/internal/entity"
	"github.com/xavierca1/agency-backoffice/internal/infra/http/middleware"
	"github.com/xavierca1/agency-backoffice/internal/usecase"
)

type Reconciler interface {
	Quick(ctx context.Context, tenantID string, opts usecase.QuickOptions) (usecase.SyncSummary, error)
	Full(ctx context.Context, tenantID string) (usecase.SyncSummary, error)
}

type Options struct {
	QuickSpec    string
	FullSpec     string
	QuickTimeout time.Duration
	FullTimeout  time.Duration
}

// Scheduler roda quick e full em cron. Cada disparo é uma unidade
// independente; um disparo ainda em andamento faz o próximo ser pulado.
type Scheduler struct {
	cron       *cron.Cron
	configs    entity.BoardConfigRepositoryInterface
	reconciler Reconciler
	opts       Options
	log        *zap.Logger
}

func New(configs entity.BoardConfigRepositoryInterface, reconciler Reconciler, opts Options, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.QuickTimeout <= 0 {
		opts.QuickTimeout = time.Minute
	}
	if opts.FullTimeout <= 0 {
		opts.FullTimeout = 10 * time.Minute
	}
	return &Scheduler{
		cron:       cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		configs:    configs,
		reconciler: reconciler,
		opts:       opts,
		log:        log,
	}
}

func (s *Scheduler) SetupJobs() error {
	if s.opts.QuickSpec != "" {
		if _, err := s.cron.AddFunc(s.opts.QuickSpec, func() {
			s.RunOnce(context.Background(), usecase.SyncModeQuick)
		}); err != nil {
			return err
		}
	}
	if s.opts.FullSpec != "" {
		if _, err := s.cron.AddFunc(s.opts.FullSpec, func() {
			s.RunOnce(context.Background(), usecase.SyncModeFull)
		}); err != nil {
			return err
		}
	}
	s.log.Info("jobs de sincronização configurados",
		zap.String("quick", s.opts.QuickSpec),
		zap.String("full", s.opts.FullSpec))
	return nil
}

func (s *Scheduler) Start() {
	s.log.Info("iniciando scheduler")
	s.cron.Start()
}

// Stop para o cron e espera os jobs em andamento terminarem.
func (s *Scheduler) Stop() {
	s.log.Info("parando scheduler")
	<-s.cron.Stop().Done()
}

// RunOnce executa um modo para todos os tenants com configuração completa.
// Falha de um tenant não impede os outros. Devolve quantos tenants rodaram.
func (s *Scheduler) RunOnce(ctx context.Context, mode usecase.SyncMode) int {
	configs, err := s.configs.ListAll(ctx)
	if err != nil {
		s.log.Error("erro ao listar configurações de board", zap.Error(err))
		return 0
	}

	ran := 0
	for _, cfg := range configs {
		if ctx.Err() != nil {
			break
		}
		log := s.log.With(zap.String("tenant_id", cfg.TenantID), zap.String("mode", string(mode)))
		if err := cfg.Validate(); err != nil {
			log.Debug("tenant ignorado: configuração incompleta", zap.Error(err))
			continue
		}
		s.runTenant(ctx, mode, cfg.TenantID, log)
		ran++
	}
	return ran
}

func (s *Scheduler) runTenant(ctx context.Context, mode usecase.SyncMode, tenantID string, log *zap.Logger) {
	timeout := s.opts.QuickTimeout
	if mode == usecase.SyncModeFull {
		timeout = s.opts.FullTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	var (
		summary usecase.SyncSummary
		err     error
	)
	if mode == usecase.SyncModeFull {
		summary, err = s.reconciler.Full(ctx, tenantID)
	} else {
		summary, err = s.reconciler.Quick(ctx, tenantID, usecase.QuickOptions{})
	}
	if err != nil {
		middleware.RecordSyncRun(string(mode), "failed", middleware.SyncRunStats{Duration: time.Since(started)})
		log.Error("sincronização agendada falhou", zap.Error(err))
		return
	}
	middleware.RecordSyncRun(string(mode), middleware.RunOutcome(summary.Truncated, summary.Errors), middleware.SyncRunStats{
		Created:  summary.Created,
		Updated:  summary.Updated,
		Deleted:  summary.Deleted,
		Skipped:  summary.Skipped,
		Errors:   summary.Errors,
		Duration: time.Since(started),
	})
}
