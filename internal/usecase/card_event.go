package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/xavierca1/agency-backoffice/internal/entity"
)

// Ações do provider que alteram cards. As demais são confirmadas e ignoradas.
var (
	cardSyncActions = map[string]struct{}{
		"createCard":                 {},
		"updateCard":                 {},
		"moveCardToBoard":            {},
		"copyCard":                   {},
		"convertToCardFromCheckItem": {},
		"addLabelToCard":             {},
		"removeLabelFromCard":        {},
	}
	cardRemoveActions = map[string]struct{}{
		"deleteCard":        {},
		"moveCardFromBoard": {},
	}
)

var ErrUnknownBoard = errors.New("board não pertence a nenhum tenant")

// HandleCardEventUseCase executa o equivalente a um passo de reconciliação
// para o card de um evento de webhook.
type HandleCardEventUseCase struct {
	Configs entity.BoardConfigRepositoryInterface
	Syncer  *SyncCardUseCase
	Log     *zap.Logger
}

func NewHandleCardEventUseCase(configs entity.BoardConfigRepositoryInterface, syncer *SyncCardUseCase, log *zap.Logger) *HandleCardEventUseCase {
	if log == nil {
		log = zap.NewNop()
	}
	return &HandleCardEventUseCase{Configs: configs, Syncer: syncer, Log: log}
}

// ResolveBoard encontra o tenant do evento. Cada tenant registra a própria
// assinatura, então o webhook id vence; sem ele (ou assinatura não salva),
// cai para o id longo e o shortLink do board.
func (uc *HandleCardEventUseCase) ResolveBoard(ctx context.Context, event entity.CardEvent) (*entity.BoardConfig, error) {
	if event.WebhookID != "" {
		cfg, err := uc.Configs.FindByWebhookID(ctx, event.WebhookID)
		switch {
		case err == nil && (cfg.MatchesBoard(event.BoardID) || cfg.MatchesBoard(event.BoardShortLink)):
			return cfg, nil
		case err != nil && !errors.Is(err, entity.ErrBoardConfigNotFound):
			return nil, fmt.Errorf("erro ao buscar configuração do webhook %s: %w", event.WebhookID, err)
		}
	}
	for _, id := range []string{event.BoardID, event.BoardShortLink} {
		if id == "" {
			continue
		}
		cfg, err := uc.Configs.FindByBoardID(ctx, id)
		if err == nil {
			return cfg, nil
		}
		if !errors.Is(err, entity.ErrBoardConfigNotFound) {
			return nil, fmt.Errorf("erro ao buscar configuração do board %s: %w", id, err)
		}
	}
	return nil, ErrUnknownBoard
}

// Execute nunca confia no snapshot do payload: o card é buscado fresco.
func (uc *HandleCardEventUseCase) Execute(ctx context.Context, cfg *entity.BoardConfig, event entity.CardEvent) (CardOutcome, error) {
	if _, ok := cardRemoveActions[event.ActionType]; ok {
		return uc.Syncer.Remove(ctx, cfg, event.CardID)
	}
	if _, ok := cardSyncActions[event.ActionType]; !ok {
		return OutcomeIgnored, nil
	}
	return uc.Syncer.SyncByID(ctx, cfg, event.CardID, nil)
}

// IsCardAction informa se o tipo de ação afeta cards.
func IsCardAction(actionType string) bool {
	_, sync := cardSyncActions[actionType]
	_, remove := cardRemoveActions[actionType]
	return sync || remove
}
