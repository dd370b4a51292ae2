package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/agency-backoffice/internal/entity"
)

// CardOutcome é o resultado de um passo de reconciliação para um card.
type CardOutcome string

const (
	OutcomeCreated CardOutcome = "created"
	OutcomeUpdated CardOutcome = "updated"
	OutcomeDeleted CardOutcome = "deleted"
	OutcomeSkipped CardOutcome = "skipped"
	// OutcomeIgnored: card removido/arquivado sem lead correspondente.
	OutcomeIgnored CardOutcome = "ignored"
)

// SyncCardUseCase aplica um card do provider ao store de leads:
// Card Mapper -> Lead Upsert Gateway. Compartilhado por webhook e reconciliação.
type SyncCardUseCase struct {
	Client    BoardClient
	LeadRepo  entity.LeadRepositoryInterface
	Publisher LeadEventPublisher
	Log       *zap.Logger
	now       func() time.Time
}

func NewSyncCardUseCase(
	client BoardClient,
	leadRepo entity.LeadRepositoryInterface,
	publisher LeadEventPublisher,
	log *zap.Logger,
) *SyncCardUseCase {
	if log == nil {
		log = zap.NewNop()
	}
	return &SyncCardUseCase{
		Client:    client,
		LeadRepo:  leadRepo,
		Publisher: publisher,
		Log:       log,
		now:       time.Now,
	}
}

// SyncByID busca o card fresco no provider e o aplica. Card inexistente no
// provider vira delete.
func (uc *SyncCardUseCase) SyncByID(ctx context.Context, cfg *entity.BoardConfig, cardID string, lists entity.ListCatalog) (CardOutcome, error) {
	card, err := uc.Client.GetCard(ctx, cfg.Credentials(), cardID)
	if err != nil {
		if errors.Is(err, entity.ErrCardNotFound) {
			return uc.Remove(ctx, cfg, cardID)
		}
		return "", fmt.Errorf("erro ao buscar card %s: %w", cardID, err)
	}
	if card.IDBoard != "" && cfg.BoardLongID != "" && !cfg.MatchesBoard(card.IDBoard) {
		// card movido para outro board: para este tenant ele deixou de existir
		return uc.Remove(ctx, cfg, cardID)
	}
	return uc.Apply(ctx, cfg, card, lists)
}

// Apply roda o card pelo mapper e grava o resultado.
func (uc *SyncCardUseCase) Apply(ctx context.Context, cfg *entity.BoardConfig, card entity.Card, lists entity.ListCatalog) (CardOutcome, error) {
	mapping := MapCard(card, cfg)

	switch mapping.Action {
	case CardDelete:
		return uc.Remove(ctx, cfg, card.ID)
	case CardSkip:
		uc.Log.Warn("card ignorado: mapeamento ambíguo",
			zap.String("tenant_id", cfg.TenantID),
			zap.String("card_id", card.ID),
			zap.String("card_name", card.Name),
			zap.String("reason", mapping.Reason))
		return OutcomeSkipped, nil
	}

	fields := mapping.Fields
	fields.ListName = uc.resolveListName(ctx, cfg, fields.ListID, lists)

	key := entity.LeadKey{TenantID: cfg.TenantID, Source: entity.LeadSourceTrello, ExternalID: card.ID}
	res, err := uc.LeadRepo.Upsert(ctx, key, fields)
	if err != nil {
		return "", fmt.Errorf("erro ao gravar lead do card %s: %w", card.ID, err)
	}

	outcome := OutcomeUpdated
	action := entity.LeadActionUpdated
	if res.Created {
		outcome = OutcomeCreated
		action = entity.LeadActionCreated
	}
	uc.publish(ctx, entity.LeadEvent{
		TenantID:   cfg.TenantID,
		LeadID:     res.Lead.ID,
		ExternalID: card.ID,
		Source:     entity.LeadSourceTrello,
		Action:     action,
		Status:     res.Lead.Status,
		Region:     res.Lead.Region,
	})
	return outcome, nil
}

// Remove apaga o lead do card, se existir, com cascade nos dependentes.
func (uc *SyncCardUseCase) Remove(ctx context.Context, cfg *entity.BoardConfig, cardID string) (CardOutcome, error) {
	key := entity.LeadKey{TenantID: cfg.TenantID, Source: entity.LeadSourceTrello, ExternalID: cardID}
	res, err := uc.LeadRepo.DeleteByExternalID(ctx, key)
	if err != nil {
		return "", fmt.Errorf("erro ao remover lead do card %s: %w", cardID, err)
	}
	if !res.Deleted {
		return OutcomeIgnored, nil
	}
	uc.publish(ctx, entity.LeadEvent{
		TenantID:   cfg.TenantID,
		LeadID:     res.LeadID,
		ExternalID: cardID,
		Source:     entity.LeadSourceTrello,
		Action:     entity.LeadActionDeleted,
	})
	return OutcomeDeleted, nil
}

func (uc *SyncCardUseCase) resolveListName(ctx context.Context, cfg *entity.BoardConfig, listID string, lists entity.ListCatalog) string {
	if name, ok := lists[listID]; ok {
		return name
	}
	list, err := uc.Client.GetList(ctx, cfg.Credentials(), listID)
	if err != nil {
		uc.Log.Debug("nome da lista indisponível",
			zap.String("tenant_id", cfg.TenantID),
			zap.String("list_id", listID),
			zap.Error(err))
		return ""
	}
	return list.Name
}

// publish é best-effort: falha na fila nunca derruba a sincronização.
func (uc *SyncCardUseCase) publish(ctx context.Context, event entity.LeadEvent) {
	if uc.Publisher == nil {
		return
	}
	event.OccurredAt = uc.now().UTC()
	if err := uc.Publisher.PublishLeadEvent(ctx, event); err != nil {
		uc.Log.Warn("falha ao publicar evento de lead",
			zap.String("tenant_id", event.TenantID),
			zap.String("lead_id", event.LeadID),
			zap.String("action", string(event.Action)),
			zap.Error(err))
	}
}
