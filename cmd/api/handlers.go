package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rabbitmq/amqp091-go"

	"github.com/xavierca1/agency-backoffice/internal/app"
	"github.com/xavierca1/agency-backoffice/internal/infra/http/handlers"
	"github.com/xavierca1/agency-backoffice/internal/infra/http/middleware"
)

func NewRouter(a *app.App) http.Handler {
	syncHandler := handlers.NewSyncHandler(a.Reconcile, a.Log.Named("http.sync"))
	webhookHandler := handlers.NewCardWebhookHandler(a.CardEvents, a.Config.WebhookCallbackURL, a.Log.Named("http.webhook"))
	healthHandler := handlers.NewHealthHandler(a.DB, rabbitConn(a), a.Redis)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:5173", "*"},
		AllowedMethods: []string{"GET", "POST", "HEAD", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))

	r.Get("/health", healthHandler.Handle)
	r.Handle("/metrics", promhttp.Handler())

	r.Head("/webhook/card-event", webhookHandler.Head)
	r.Post("/webhook/card-event", webhookHandler.Handle)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(a.Config.JWTSecret))
		r.Post("/sync/quick", syncHandler.Quick)
		r.Post("/sync/full", syncHandler.Full)
	})

	return r
}

func rabbitConn(a *app.App) *amqp091.Connection {
	if a.RabbitMQ == nil {
		return nil
	}
	return a.RabbitMQ.Conn
}
