package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/xavierca1/agency-backoffice/internal/app"
	"github.com/xavierca1/agency-backoffice/internal/config"
	"github.com/xavierca1/agency-backoffice/internal/infra/scheduler"
	"github.com/xavierca1/agency-backoffice/internal/logger"
	"github.com/xavierca1/agency-backoffice/internal/usecase"
)

var errInvalidMode = errors.New("modo inválido, use quick ou full")

// Run com once vazio mantém o cron rodando até o ctx ser cancelado; com
// quick ou full executa o modo uma vez para todos os tenants e sai.
func Run(ctx context.Context, once string) error {
	switch once {
	case "", string(usecase.SyncModeQuick), string(usecase.SyncModeFull):
	default:
		return fmt.Errorf("%w: %q", errInvalidMode, once)
	}

	cfg := config.Load()
	log := logger.New(cfg.Env)
	defer log.Sync()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("erro ao iniciar dependências", zap.Error(err))
		return err
	}
	defer a.Close()

	s := scheduler.New(a.Configs, a.Reconcile, scheduler.Options{
		QuickSpec:    cfg.Sync.QuickCron,
		FullSpec:     cfg.Sync.FullCron,
		QuickTimeout: cfg.Sync.QuickDeadline * 2,
		FullTimeout:  cfg.Sync.FullDeadline * 2,
	}, log.Named("scheduler"))

	if once != "" {
		ran := s.RunOnce(ctx, usecase.SyncMode(once))
		log.Info("execução única concluída", zap.String("mode", once), zap.Int("tenants", ran))
		return nil
	}

	if err := s.SetupJobs(); err != nil {
		log.Error("expressão cron inválida", zap.Error(err))
		return err
	}
	s.Start()
	<-ctx.Done()
	s.Stop()
	return nil
}

func main() {
	once := flag.String("once", "", "executa um modo (quick|full) para todos os tenants e sai")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := Run(ctx, *once)
	stop()
	if errors.Is(err, errInvalidMode) {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}
	if err != nil {
		os.Exit(1)
	}
}
