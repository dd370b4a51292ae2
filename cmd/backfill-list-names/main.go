package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/xavierca1/agency-backoffice/internal/app"
	"github.com/xavierca1/agency-backoffice/internal/config"
	"github.com/xavierca1/agency-backoffice/internal/logger"
)

var errTenantRequired = errors.New("informe -tenant")

// Run preenche list_name dos leads antigos do tenant. Pode ser executado de
// novo sem efeito colateral.
func Run(ctx context.Context, tenant string, out io.Writer) error {
	if tenant == "" {
		return errTenantRequired
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

	result, err := a.Backfill.Execute(ctx, tenant)
	if encErr := json.NewEncoder(out).Encode(result); encErr != nil && err == nil {
		err = encErr
	}
	if err != nil {
		log.Error("backfill falhou", zap.String("tenant_id", tenant), zap.Error(err))
		return err
	}
	return nil
}

func main() {
	tenant := flag.String("tenant", "", "tenant a migrar (obrigatório)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := Run(ctx, *tenant, os.Stdout)
	stop()
	if errors.Is(err, errTenantRequired) {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}
	if err != nil {
		os.Exit(1)
	}
}
