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

var errRepairFailed = errors.New("reparo falhou para um ou mais tenants")

// Run garante uma única assinatura ativa por board. Sem tenant, repara todos
// os tenants configurados. Os relatórios vão para out em JSON.
func Run(ctx context.Context, tenant, callback string, out io.Writer) error {
	cfg := config.Load()
	log := logger.New(cfg.Env)
	defer log.Sync()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("erro ao iniciar dependências", zap.Error(err))
		return err
	}
	defer a.Close()

	callbackURL := callback
	if callbackURL == "" {
		callbackURL = cfg.WebhookCallbackURL
	}

	tenants := []string{tenant}
	if tenant == "" {
		configs, err := a.Configs.ListAll(ctx)
		if err != nil {
			log.Error("erro ao listar tenants", zap.Error(err))
			return err
		}
		tenants = tenants[:0]
		for _, c := range configs {
			tenants = append(tenants, c.TenantID)
		}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	failed := false
	for _, id := range tenants {
		report, err := a.Webhooks.Repair(ctx, id, callbackURL)
		if err != nil {
			failed = true
			log.Error("falha ao reparar webhook", zap.String("tenant_id", id), zap.Error(err))
		}
		if err := enc.Encode(report); err != nil {
			return err
		}
	}
	if failed {
		return errRepairFailed
	}
	return nil
}

func main() {
	tenant := flag.String("tenant", "", "tenant a reparar (vazio = todos)")
	callback := flag.String("callback", "", "callback URL pública (default: WEBHOOK_CALLBACK_URL)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := Run(ctx, *tenant, *callback, os.Stdout)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
