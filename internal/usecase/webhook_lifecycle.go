package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xavierca1/agency-backoffice/internal/entity"
)

const webhookDescription = "agency-backoffice lead sync"

// WebhookRepairReport descreve o que a rotina de reparo fez.
type WebhookRepairReport struct {
	TenantID         string   `json:"tenant_id"`
	CanonicalBoardID string   `json:"canonical_board_id"`
	CallbackURL      string   `json:"callback_url"`
	WebhookID        string   `json:"webhook_id"`
	Kept             bool     `json:"kept"`
	Created          bool     `json:"created"`
	Removed          []string `json:"removed,omitempty"`
	RemoveFailures   []string `json:"remove_failures,omitempty"`
}

// WebhookLifecycleUseCase garante no máximo uma assinatura ativa por
// (tenant, board). Estados stale são resolvidos com delete + recreate, nunca
// com update in-place.
type WebhookLifecycleUseCase struct {
	Configs entity.BoardConfigRepositoryInterface
	Client  BoardClient
	Cache   BoardIDCache
	Log     *zap.Logger
}

func NewWebhookLifecycleUseCase(
	configs entity.BoardConfigRepositoryInterface,
	client BoardClient,
	cache BoardIDCache,
	log *zap.Logger,
) *WebhookLifecycleUseCase {
	if log == nil {
		log = zap.NewNop()
	}
	return &WebhookLifecycleUseCase{Configs: configs, Client: client, Cache: cache, Log: log}
}

// Repair é idempotente: rodar duas vezes seguidas não cria nem apaga nada na segunda.
// callbackURL vazio usa o callback já salvo na configuração.
func (uc *WebhookLifecycleUseCase) Repair(ctx context.Context, tenantID, callbackURL string) (WebhookRepairReport, error) {
	report := WebhookRepairReport{TenantID: tenantID}

	cfg, err := uc.Configs.FindByTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, entity.ErrBoardConfigNotFound) {
			return report, &DomainError{Code: CodeTenantNotConfigured, Message: "tenant sem board configurado", Err: err}
		}
		return report, &TechnicalError{Code: CodeStorageFailure, Message: "erro ao carregar configuração do board", Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return report, &DomainError{Code: CodeTenantMisconfigured, Message: err.Error(), Err: err}
	}

	callbackURL = strings.TrimSpace(callbackURL)
	if callbackURL == "" {
		callbackURL = cfg.WebhookCallbackURL
	}
	if callbackURL == "" {
		return report, &DomainError{Code: CodeTenantMisconfigured, Message: "callback URL do webhook não informado"}
	}
	report.CallbackURL = callbackURL
	log := uc.Log.With(zap.String("tenant_id", tenantID), zap.String("callback_url", callbackURL))

	// 1. id canônico
	canonical, err := uc.canonicalBoardID(ctx, cfg)
	if err != nil {
		return report, &TechnicalError{Code: CodeProviderUnavailable, Message: "erro ao resolver id canônico do board", Err: err}
	}
	report.CanonicalBoardID = canonical
	if cfg.BoardLongID != canonical {
		if err := uc.Configs.SaveCanonicalBoardID(ctx, tenantID, canonical); err != nil {
			return report, &TechnicalError{Code: CodeStorageFailure, Message: "erro ao salvar id canônico", Err: err}
		}
		cfg.BoardLongID = canonical
	}

	// 2. assinaturas são escopadas pela credencial, não pelo board
	hooks, err := uc.Client.ListWebhooks(ctx, cfg.Credentials())
	if err != nil {
		return report, &TechnicalError{Code: CodeProviderUnavailable, Message: "erro ao listar webhooks", Err: err}
	}

	// 3 e 4. classifica: uma ativa correta fica, o resto apontando para o callback sai
	keep, stale := ClassifyWebhooks(hooks, callbackURL, cfg)
	for _, h := range stale {
		if err := uc.Client.DeleteWebhook(ctx, cfg.Credentials(), h.ID); err != nil && !errors.Is(err, entity.ErrWebhookNotFound) {
			log.Error("erro ao remover webhook stale", zap.String("webhook_id", h.ID), zap.Error(err))
			report.RemoveFailures = append(report.RemoveFailures, h.ID)
			continue
		}
		log.Info("webhook stale removido",
			zap.String("webhook_id", h.ID),
			zap.String("id_model", h.IDModel),
			zap.Bool("active", h.Active))
		report.Removed = append(report.Removed, h.ID)
	}

	if keep != nil {
		report.Kept = true
		report.WebhookID = keep.ID
	} else {
		// 5. registra um novo
		created, err := uc.Client.CreateWebhook(ctx, cfg.Credentials(), entity.WebhookRegistration{
			Description: webhookDescription + " (" + tenantID + ")",
			CallbackURL: callbackURL,
			IDModel:     canonical,
		})
		if err != nil {
			return report, &TechnicalError{Code: CodeWebhookRegistration, Message: "erro ao registrar webhook", Err: err}
		}
		report.Created = true
		report.WebhookID = created.ID
		log.Info("webhook registrado", zap.String("webhook_id", created.ID))
	}

	if cfg.WebhookID != report.WebhookID || cfg.WebhookCallbackURL != callbackURL {
		if err := uc.Configs.SaveWebhook(ctx, tenantID, report.WebhookID, callbackURL); err != nil {
			return report, &TechnicalError{Code: CodeStorageFailure, Message: "erro ao salvar webhook na configuração", Err: err}
		}
	}

	if len(report.RemoveFailures) > 0 {
		return report, &TechnicalError{
			Code:    CodeWebhookRegistration,
			Message: fmt.Sprintf("%d webhook(s) stale não removidos", len(report.RemoveFailures)),
		}
	}
	return report, nil
}

// ClassifyWebhooks separa, entre as assinaturas que apontam para callbackURL,
// a que deve ficar (ativa, no board do tenant) das stale: board errado,
// inativas ou duplicadas.
func ClassifyWebhooks(hooks []entity.Webhook, callbackURL string, cfg *entity.BoardConfig) (*entity.Webhook, []entity.Webhook) {
	var keep *entity.Webhook
	var stale []entity.Webhook
	for i := range hooks {
		h := hooks[i]
		if !sameCallback(h.CallbackURL, callbackURL) {
			continue
		}
		if h.Active && cfg.MatchesBoard(h.IDModel) && keep == nil {
			keep = &hooks[i]
			continue
		}
		stale = append(stale, h)
	}
	return keep, stale
}

func sameCallback(a, b string) bool {
	return strings.TrimRight(strings.TrimSpace(a), "/") == strings.TrimRight(strings.TrimSpace(b), "/")
}

func (uc *WebhookLifecycleUseCase) canonicalBoardID(ctx context.Context, cfg *entity.BoardConfig) (string, error) {
	alias := cfg.BoardID
	if alias == "" {
		alias = cfg.BoardLongID
	}
	if uc.Cache != nil {
		if id, ok, err := uc.Cache.GetCanonicalBoardID(ctx, alias); err == nil && ok {
			return id, nil
		} else if err != nil {
			uc.Log.Debug("cache de board indisponível", zap.Error(err))
		}
	}
	board, err := uc.Client.GetBoard(ctx, cfg.Credentials(), alias)
	if err != nil {
		return "", err
	}
	if board.ID == "" {
		return "", fmt.Errorf("board %s sem id canônico", alias)
	}
	if uc.Cache != nil {
		if err := uc.Cache.SetCanonicalBoardID(ctx, alias, board.ID); err != nil {
			uc.Log.Debug("erro ao gravar cache de board", zap.Error(err))
		}
	}
	return board.ID, nil
}
