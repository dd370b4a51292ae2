package usecase

import (
	"context"
	"time"

	"github.com/xavierca1/agency-backoffice/internal/entity"
)

// BoardClient é a API do provider de quadros. Credenciais vão em cada chamada
// para manter tenants isolados.
type BoardClient interface {
	GetBoard(ctx context.Context, creds entity.BoardCredentials, boardID string) (entity.Board, error)
	ListCardSummaries(ctx context.Context, creds entity.BoardCredentials, boardID string) ([]entity.CardSummary, error)
	ListOpenCards(ctx context.Context, creds entity.BoardCredentials, boardID string) ([]entity.Card, error)
	ListLists(ctx context.Context, creds entity.BoardCredentials, boardID string) ([]entity.BoardList, error)
	GetList(ctx context.Context, creds entity.BoardCredentials, listID string) (entity.BoardList, error)
	GetCard(ctx context.Context, creds entity.BoardCredentials, cardID string) (entity.Card, error)
	ListWebhooks(ctx context.Context, creds entity.BoardCredentials) ([]entity.Webhook, error)
	CreateWebhook(ctx context.Context, creds entity.BoardCredentials, reg entity.WebhookRegistration) (entity.Webhook, error)
	DeleteWebhook(ctx context.Context, creds entity.BoardCredentials, webhookID string) error
}

type LeadEventPublisher interface {
	PublishLeadEvent(ctx context.Context, event entity.LeadEvent) error
}

// SyncReporter recebe o resumo de execuções que terminaram com erros ou truncadas.
type SyncReporter interface {
	SendSyncReport(ctx context.Context, report SyncReport) error
}

// BoardIDCache guarda a resolução alias -> id canônico do board.
type BoardIDCache interface {
	GetCanonicalBoardID(ctx context.Context, alias string) (string, bool, error)
	SetCanonicalBoardID(ctx context.Context, alias, longID string) error
}

type SyncReport struct {
	TenantID   string
	Mode       SyncMode
	Summary    SyncSummary
	StartedAt  time.Time
	FinishedAt time.Time
}
