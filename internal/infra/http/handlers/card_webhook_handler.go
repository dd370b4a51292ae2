package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/xavierca1/agency-backoffice/internal/entity"
	"github.com/xavierca1/agency-backoffice/internal/infra/http/middleware"
	"github.com/xavierca1/agency-backoffice/internal/infra/integration/trello"
	"github.com/xavierca1/agency-backoffice/internal/usecase"
)

const maxWebhookBody = 1 << 20

type CardEventProcessor interface {
	ResolveBoard(ctx context.Context, event entity.CardEvent) (*entity.BoardConfig, error)
	Execute(ctx context.Context, cfg *entity.BoardConfig, event entity.CardEvent) (usecase.CardOutcome, error)
}

// CardWebhookHandler recebe callbacks do provider. Sempre responde 200: um
// status de erro faria o provider reenviar e, após falhas repetidas, desativar
// a assinatura.
type CardWebhookHandler struct {
	Processor CardEventProcessor
	Validate  *validator.Validate
	Log       *zap.Logger
	// CallbackURL é a URL pública registrada, usada na verificação da assinatura.
	CallbackURL string
}

func NewCardWebhookHandler(processor CardEventProcessor, callbackURL string, log *zap.Logger) *CardWebhookHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &CardWebhookHandler{Processor: processor, Validate: validator.New(), Log: log, CallbackURL: callbackURL}
}

// Head responde à verificação feita pelo provider ao criar o webhook.
func (h *CardWebhookHandler) Head(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *CardWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	defer acknowledge(w)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.Log.Warn("webhook: erro ao ler body", zap.Error(err))
		middleware.RecordWebhookEvent("unknown", "invalid")
		return
	}

	event, err := trello.DecodeWebhookEvent(body)
	if err != nil {
		h.Log.Warn("webhook: payload inválido", zap.Error(err))
		middleware.RecordWebhookEvent("unknown", "invalid")
		return
	}
	if !usecase.IsCardAction(event.ActionType) {
		middleware.RecordWebhookEvent(actionLabel(event.ActionType), string(usecase.OutcomeIgnored))
		return
	}
	if err := h.Validate.Struct(event); err != nil {
		h.Log.Warn("webhook: evento incompleto", zap.String("action", event.ActionType), zap.Error(err))
		middleware.RecordWebhookEvent(event.ActionType, "invalid")
		return
	}

	log := h.Log.With(zap.String("action", event.ActionType), zap.String("card_id", event.CardID), zap.String("board_id", event.BoardID))

	cfg, err := h.Processor.ResolveBoard(r.Context(), event)
	if err != nil {
		if errors.Is(err, usecase.ErrUnknownBoard) {
			log.Warn("webhook: board sem tenant configurado")
		} else {
			log.Error("webhook: erro ao resolver tenant", zap.Error(err))
		}
		middleware.RecordWebhookEvent(event.ActionType, "unresolved")
		return
	}
	log = log.With(zap.String("tenant_id", cfg.TenantID))

	if cfg.APISecret != "" {
		callback := cfg.WebhookCallbackURL
		if callback == "" {
			callback = h.CallbackURL
		}
		if !trello.VerifySignature(cfg.APISecret, callback, body, r.Header.Get(trello.SignatureHeader)) {
			log.Warn("webhook: assinatura inválida, evento descartado")
			middleware.RecordWebhookEvent(event.ActionType, "invalid_signature")
			return
		}
	}

	outcome, err := h.Processor.Execute(r.Context(), cfg, event)
	if err != nil {
		log.Error("webhook: erro ao sincronizar card", zap.Error(err))
		middleware.RecordWebhookEvent(event.ActionType, "error")
		return
	}
	log.Info("webhook: card sincronizado", zap.String("outcome", string(outcome)))
	middleware.RecordWebhookEvent(event.ActionType, string(outcome))
}

func acknowledge(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// actionLabel limita a cardinalidade da métrica para ações desconhecidas.
func actionLabel(action string) string {
	if action == "" {
		return "unknown"
	}
	return "other"
}
