package usecase

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/agency-backoffice/internal/entity"
)

type SyncMode string

const (
	SyncModeQuick SyncMode = "quick"
	SyncModeFull  SyncMode = "full"
)

// ReconcileSettings são os knobs das duas passadas. Janela e limite do quick
// podem ser sobrescritos por chamada.
type ReconcileSettings struct {
	Concurrency   int
	QuickWindow   time.Duration
	QuickMaxCards int
	QuickDeadline time.Duration
	FullDeadline  time.Duration
}

func DefaultReconcileSettings() ReconcileSettings {
	return ReconcileSettings{
		Concurrency:   DefaultConcurrency,
		QuickWindow:   10 * time.Minute,
		QuickMaxCards: 50,
		QuickDeadline: 25 * time.Second,
		FullDeadline:  280 * time.Second,
	}
}

type QuickOptions struct {
	Window   time.Duration
	MaxCards int
}

// ReconcileUseCase re-deriva o estado dos leads a partir do board.
type ReconcileUseCase struct {
	Configs  entity.BoardConfigRepositoryInterface
	Client   BoardClient
	Syncer   *SyncCardUseCase
	LeadRepo entity.LeadRepositoryInterface
	Reporter SyncReporter
	Settings ReconcileSettings
	Log      *zap.Logger
	now      func() time.Time
}

func NewReconcileUseCase(
	configs entity.BoardConfigRepositoryInterface,
	client BoardClient,
	syncer *SyncCardUseCase,
	leadRepo entity.LeadRepositoryInterface,
	reporter SyncReporter,
	settings ReconcileSettings,
	log *zap.Logger,
) *ReconcileUseCase {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReconcileUseCase{
		Configs:  configs,
		Client:   client,
		Syncer:   syncer,
		LeadRepo: leadRepo,
		Reporter: reporter,
		Settings: settings,
		Log:      log,
		now:      time.Now,
	}
}

// Quick sincroniza só os cards com atividade dentro da janela, limitados a MaxCards.
func (uc *ReconcileUseCase) Quick(ctx context.Context, tenantID string, opts QuickOptions) (SyncSummary, error) {
	start := uc.now()
	window := opts.Window
	if window <= 0 {
		window = uc.Settings.QuickWindow
	}
	maxCards := opts.MaxCards
	if maxCards <= 0 {
		maxCards = uc.Settings.QuickMaxCards
	}

	cfg, err := uc.loadConfig(ctx, tenantID)
	if err != nil {
		return SyncSummary{}, err
	}
	log := uc.Log.With(zap.String("tenant_id", tenantID), zap.String("mode", string(SyncModeQuick)))

	summaries, err := uc.Client.ListCardSummaries(ctx, cfg.Credentials(), cfg.BoardRef())
	if err != nil {
		return SyncSummary{}, &TechnicalError{Code: CodeProviderUnavailable, Message: "erro ao listar cards do board", Err: err}
	}

	recent := RecentCards(summaries, start.Add(-window), maxCards)
	log.Info("quick sync iniciado",
		zap.Int("board_cards", len(summaries)),
		zap.Int("recent_cards", len(recent)),
		zap.Duration("window", window))

	lists := uc.listCatalog(ctx, cfg)
	tasks := make([]SyncTask, 0, len(recent))
	for _, s := range recent {
		cardID := s.ID
		tasks = append(tasks, SyncTask{
			CardID: cardID,
			Run: func(ctx context.Context) (CardOutcome, error) {
				return uc.Syncer.SyncByID(ctx, cfg, cardID, lists)
			},
		})
	}

	exec := NewBatchExecutor(uc.Settings.Concurrency, uc.Settings.QuickDeadline, log)
	exec.now = uc.now
	summary := exec.RunFrom(ctx, start, tasks)
	uc.finish(ctx, cfg, SyncModeQuick, start, summary, log)
	return summary, nil
}

// Full sincroniza todos os cards abertos e verifica os leads cujo card não
// aparece mais entre os abertos (arquivado ou removido no provider).
func (uc *ReconcileUseCase) Full(ctx context.Context, tenantID string) (SyncSummary, error) {
	start := uc.now()

	cfg, err := uc.loadConfig(ctx, tenantID)
	if err != nil {
		return SyncSummary{}, err
	}
	log := uc.Log.With(zap.String("tenant_id", tenantID), zap.String("mode", string(SyncModeFull)))

	cards, err := uc.Client.ListOpenCards(ctx, cfg.Credentials(), cfg.BoardRef())
	if err != nil {
		return SyncSummary{}, &TechnicalError{Code: CodeProviderUnavailable, Message: "erro ao listar cards abertos", Err: err}
	}

	lists := uc.listCatalog(ctx, cfg)
	open := make(map[string]struct{}, len(cards))
	tasks := make([]SyncTask, 0, len(cards))
	for _, card := range cards {
		card := card
		open[card.ID] = struct{}{}
		tasks = append(tasks, SyncTask{
			CardID: card.ID,
			Run: func(ctx context.Context) (CardOutcome, error) {
				return uc.Syncer.Apply(ctx, cfg, card, lists)
			},
		})
	}

	orphans := uc.orphanedExternalIDs(ctx, cfg, open, log)
	for _, cardID := range orphans {
		cardID := cardID
		tasks = append(tasks, SyncTask{
			CardID: cardID,
			Run: func(ctx context.Context) (CardOutcome, error) {
				return uc.Syncer.SyncByID(ctx, cfg, cardID, lists)
			},
		})
	}

	log.Info("full sync iniciado",
		zap.Int("open_cards", len(cards)),
		zap.Int("orphaned_leads", len(orphans)))

	exec := NewBatchExecutor(uc.Settings.Concurrency, uc.Settings.FullDeadline, log)
	exec.now = uc.now
	summary := exec.RunFrom(ctx, start, tasks)
	uc.finish(ctx, cfg, SyncModeFull, start, summary, log)
	return summary, nil
}

// RecentCards filtra cards com atividade a partir de cutoff, mais recentes
// primeiro, limitados a maxCards (<= 0 sem limite).
func RecentCards(summaries []entity.CardSummary, cutoff time.Time, maxCards int) []entity.CardSummary {
	recent := make([]entity.CardSummary, 0, len(summaries))
	for _, s := range summaries {
		if s.DateLastActivity.IsZero() || s.DateLastActivity.Before(cutoff) {
			continue
		}
		recent = append(recent, s)
	}
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].DateLastActivity.After(recent[j].DateLastActivity)
	})
	if maxCards > 0 && len(recent) > maxCards {
		recent = recent[:maxCards]
	}
	return recent
}

func (uc *ReconcileUseCase) loadConfig(ctx context.Context, tenantID string) (*entity.BoardConfig, error) {
	cfg, err := uc.Configs.FindByTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, entity.ErrBoardConfigNotFound) {
			return nil, &DomainError{Code: CodeTenantNotConfigured, Message: "tenant sem board configurado", Err: err}
		}
		return nil, &TechnicalError{Code: CodeStorageFailure, Message: "erro ao carregar configuração do board", Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, &DomainError{Code: CodeTenantMisconfigured, Message: err.Error(), Err: err}
	}
	if cfg.BoardLongID == "" {
		uc.resolveCanonicalBoard(ctx, cfg)
	}
	return cfg, nil
}

// resolveCanonicalBoard completa o id longo do board; falha aqui não impede a execução.
func (uc *ReconcileUseCase) resolveCanonicalBoard(ctx context.Context, cfg *entity.BoardConfig) {
	board, err := uc.Client.GetBoard(ctx, cfg.Credentials(), cfg.BoardID)
	if err != nil || board.ID == "" {
		uc.Log.Warn("não foi possível resolver o id canônico do board",
			zap.String("tenant_id", cfg.TenantID),
			zap.String("board_id", cfg.BoardID),
			zap.Error(err))
		return
	}
	cfg.BoardLongID = board.ID
	if err := uc.Configs.SaveCanonicalBoardID(ctx, cfg.TenantID, board.ID); err != nil {
		uc.Log.Warn("erro ao salvar id canônico do board",
			zap.String("tenant_id", cfg.TenantID),
			zap.Error(err))
	}
}

func (uc *ReconcileUseCase) listCatalog(ctx context.Context, cfg *entity.BoardConfig) entity.ListCatalog {
	lists, err := uc.Client.ListLists(ctx, cfg.Credentials(), cfg.BoardRef())
	if err != nil {
		uc.Log.Warn("erro ao listar listas do board",
			zap.String("tenant_id", cfg.TenantID),
			zap.Error(err))
		return entity.ListCatalog{}
	}
	return entity.NewListCatalog(lists)
}

func (uc *ReconcileUseCase) orphanedExternalIDs(ctx context.Context, cfg *entity.BoardConfig, open map[string]struct{}, log *zap.Logger) []string {
	if uc.LeadRepo == nil {
		return nil
	}
	known, err := uc.LeadRepo.ListExternalIDs(ctx, cfg.TenantID, entity.LeadSourceTrello)
	if err != nil {
		log.Warn("erro ao listar leads existentes, detecção de removidos ignorada", zap.Error(err))
		return nil
	}
	var orphans []string
	for _, id := range known {
		if _, ok := open[id]; !ok {
			orphans = append(orphans, id)
		}
	}
	return orphans
}

// finish marca o checkpoint mesmo em execuções truncadas.
func (uc *ReconcileUseCase) finish(ctx context.Context, cfg *entity.BoardConfig, mode SyncMode, start time.Time, summary SyncSummary, log *zap.Logger) {
	finished := uc.now()
	if err := uc.Configs.TouchLastSync(ctx, cfg.TenantID, finished.UTC()); err != nil {
		log.Warn("erro ao atualizar checkpoint de sincronização", zap.Error(err))
	}

	log.Info("sincronização concluída",
		zap.Int("total", summary.Total),
		zap.Int("processed", summary.Processed),
		zap.Int("created", summary.Created),
		zap.Int("updated", summary.Updated),
		zap.Int("deleted", summary.Deleted),
		zap.Int("skipped", summary.Skipped),
		zap.Int("errors", summary.Errors),
		zap.Bool("truncated", summary.Truncated),
		zap.Int64("elapsed_ms", summary.TimeElapsedMs))

	if uc.Reporter == nil || (summary.Errors == 0 && !summary.Truncated) {
		return
	}
	report := SyncReport{
		TenantID:   cfg.TenantID,
		Mode:       mode,
		Summary:    summary,
		StartedAt:  start,
		FinishedAt: finished,
	}
	if err := uc.Reporter.SendSyncReport(ctx, report); err != nil {
		log.Warn("erro ao enviar relatório de sincronização", zap.Error(err))
	}
}
