package usecase

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/xavierca1/agency-backoffice/internal/entity"
)

type BackfillResult struct {
	TenantID  string `json:"tenant_id"`
	Candidate int    `json:"candidate"`
	Updated   int    `json:"updated"`
	Unknown   int    `json:"unknown"`
}

// BackfillListNamesUseCase preenche list_name dos leads que só têm list_id.
// Idempotente: leads já preenchidos não são candidatos.
type BackfillListNamesUseCase struct {
	Configs  entity.BoardConfigRepositoryInterface
	Client   BoardClient
	LeadRepo entity.LeadRepositoryInterface
	Log      *zap.Logger
}

func NewBackfillListNamesUseCase(
	configs entity.BoardConfigRepositoryInterface,
	client BoardClient,
	leadRepo entity.LeadRepositoryInterface,
	log *zap.Logger,
) *BackfillListNamesUseCase {
	if log == nil {
		log = zap.NewNop()
	}
	return &BackfillListNamesUseCase{Configs: configs, Client: client, LeadRepo: leadRepo, Log: log}
}

func (uc *BackfillListNamesUseCase) Execute(ctx context.Context, tenantID string) (BackfillResult, error) {
	result := BackfillResult{TenantID: tenantID}

	cfg, err := uc.Configs.FindByTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, entity.ErrBoardConfigNotFound) {
			return result, &DomainError{Code: CodeTenantNotConfigured, Message: "tenant sem board configurado", Err: err}
		}
		return result, &TechnicalError{Code: CodeStorageFailure, Message: "erro ao carregar configuração do board", Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return result, &DomainError{Code: CodeTenantMisconfigured, Message: err.Error(), Err: err}
	}

	leads, err := uc.LeadRepo.ListMissingListName(ctx, tenantID, entity.LeadSourceTrello)
	if err != nil {
		return result, &TechnicalError{Code: CodeStorageFailure, Message: "erro ao listar leads sem nome de lista", Err: err}
	}
	result.Candidate = len(leads)
	if len(leads) == 0 {
		return result, nil
	}

	lists, err := uc.Client.ListLists(ctx, cfg.Credentials(), cfg.BoardRef())
	if err != nil {
		return result, &TechnicalError{Code: CodeProviderUnavailable, Message: "erro ao listar listas do board", Err: err}
	}
	catalog := entity.NewListCatalog(lists)

	for _, lead := range leads {
		name, ok := catalog[lead.ListID]
		if !ok || name == "" {
			result.Unknown++
			continue
		}
		if err := uc.LeadRepo.SetListName(ctx, tenantID, lead.ID, name); err != nil {
			return result, &TechnicalError{Code: CodeStorageFailure, Message: "erro ao gravar nome da lista", Err: err}
		}
		result.Updated++
	}

	uc.Log.Info("backfill de nomes de lista concluído",
		zap.String("tenant_id", tenantID),
		zap.Int("candidate", result.Candidate),
		zap.Int("updated", result.Updated),
		zap.Int("unknown", result.Unknown))
	return result, nil
}
