package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/xavierca1/agency-backoffice/internal/infra/http/middleware"
	"github.com/xavierca1/agency-backoffice/internal/usecase"
)

type Reconciler interface {
	Quick(ctx context.Context, tenantID string, opts usecase.QuickOptions) (usecase.SyncSummary, error)
	Full(ctx context.Context, tenantID string) (usecase.SyncSummary, error)
}

type SyncRequest struct {
	TenantID      string `json:"tenantId" validate:"required"`
	WindowMinutes int    `json:"windowMinutes" validate:"omitempty,min=1,max=1440"`
	MaxCards      int    `json:"maxCards" validate:"omitempty,min=1,max=1000"`
}

type SyncResponse struct {
	Success bool                `json:"success"`
	Summary usecase.SyncSummary `json:"summary"`
}

// SyncHandler expõe a reconciliação manual (quick e full) para admins do tenant.
type SyncHandler struct {
	Reconciler Reconciler
	Validate   *validator.Validate
	Log        *zap.Logger
}

func NewSyncHandler(reconciler Reconciler, log *zap.Logger) *SyncHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &SyncHandler{Reconciler: reconciler, Validate: validator.New(), Log: log}
}

func (h *SyncHandler) Quick(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, usecase.SyncModeQuick)
}

func (h *SyncHandler) Full(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, usecase.SyncModeFull)
}

func (h *SyncHandler) handle(w http.ResponseWriter, r *http.Request, mode usecase.SyncMode) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "usuário não autenticado")
		return
	}

	var req SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "JSON inválido: "+err.Error())
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}

	if !user.CanSync(req.TenantID) {
		writeError(w, http.StatusForbidden, "FORBIDDEN", "usuário sem permissão para sincronizar este tenant")
		return
	}

	log := h.Log.With(zap.String("tenant_id", req.TenantID), zap.String("mode", string(mode)), zap.String("user_id", user.ID))

	started := time.Now()
	var (
		summary usecase.SyncSummary
		err     error
	)
	if mode == usecase.SyncModeQuick {
		summary, err = h.Reconciler.Quick(r.Context(), req.TenantID, usecase.QuickOptions{
			Window:   time.Duration(req.WindowMinutes) * time.Minute,
			MaxCards: req.MaxCards,
		})
	} else {
		summary, err = h.Reconciler.Full(r.Context(), req.TenantID)
	}

	if err != nil {
		middleware.RecordSyncRun(string(mode), "failed", middleware.SyncRunStats{Duration: time.Since(started)})
		h.writeSyncError(w, err, log)
		return
	}

	middleware.RecordSyncRun(string(mode), middleware.RunOutcome(summary.Truncated, summary.Errors), middleware.SyncRunStats{
		Created:  summary.Created,
		Updated:  summary.Updated,
		Deleted:  summary.Deleted,
		Skipped:  summary.Skipped,
		Errors:   summary.Errors,
		Duration: time.Since(started),
	})
	writeJSON(w, http.StatusOK, SyncResponse{Success: true, Summary: summary})
}

func (h *SyncHandler) writeSyncError(w http.ResponseWriter, err error, log *zap.Logger) {
	var de *usecase.DomainError
	if errors.As(err, &de) {
		log.Warn("sincronização recusada", zap.String("code", de.Code), zap.Error(err))
		writeError(w, http.StatusUnprocessableEntity, de.Code, de.Message)
		return
	}

	var te *usecase.TechnicalError
	if errors.As(err, &te) {
		log.Error("falha na sincronização", zap.String("code", te.Code), zap.Error(err))
		status := http.StatusInternalServerError
		if te.Code == usecase.CodeProviderUnavailable {
			status = http.StatusBadGateway
		}
		writeError(w, status, te.Code, te.Message)
		return
	}

	log.Error("falha inesperada na sincronização", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "erro interno")
}
