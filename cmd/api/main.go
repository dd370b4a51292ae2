package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/agency-backoffice/internal/app"
	"github.com/xavierca1/agency-backoffice/internal/config"
	"github.com/xavierca1/agency-backoffice/internal/logger"
)

// Run sobe o servidor HTTP e bloqueia até o ctx ser cancelado.
func Run(ctx context.Context) error {
	cfg := config.Load()
	log := logger.New(cfg.Env)
	defer log.Sync()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("erro ao iniciar dependências", zap.Error(err))
		return err
	}
	defer a.Close()

	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET vazio; endpoints de sincronização vão recusar todas as chamadas")
	}

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      NewRouter(a),
		ReadTimeout:  10 * time.Second,
		// full sync pode levar até o deadline configurado
		WriteTimeout: cfg.Sync.FullDeadline + time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("servidor rodando", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		log.Error("erro no servidor", zap.Error(err))
		return err
	}

	log.Info("desligando servidor")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := Run(ctx); err != nil {
		os.Exit(1)
	}
}
