package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/xavierca1/agency-backoffice/internal/entity"
)

type BoardConfigRepository struct {
	DB *sql.DB
}

func NewBoardConfigRepository(db *sql.DB) *BoardConfigRepository {
	return &BoardConfigRepository{DB: db}
}

const boardConfigColumns = `id, tenant_id, api_key, api_token, api_secret, board_id, board_long_id,
	status_map, region_map, phone_region, webhook_id, webhook_callback_url,
	last_sync_at, created_at, updated_at`

func (r *BoardConfigRepository) FindByTenant(ctx context.Context, tenantID string) (*entity.BoardConfig, error) {
	query := `SELECT ` + boardConfigColumns + ` FROM board_configs WHERE tenant_id = $1`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, tenantID))
}

// FindByBoardID resolve o tenant dono do board pelo shortLink ou pelo id canônico.
func (r *BoardConfigRepository) FindByBoardID(ctx context.Context, boardID string) (*entity.BoardConfig, error) {
	if boardID == "" {
		return nil, entity.ErrBoardConfigNotFound
	}
	query := `SELECT ` + boardConfigColumns + ` FROM board_configs
		WHERE board_id = $1 OR board_long_id = $1
		ORDER BY tenant_id
		LIMIT 1`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, boardID))
}

func (r *BoardConfigRepository) FindByWebhookID(ctx context.Context, webhookID string) (*entity.BoardConfig, error) {
	if webhookID == "" {
		return nil, entity.ErrBoardConfigNotFound
	}
	query := `SELECT ` + boardConfigColumns + ` FROM board_configs
		WHERE webhook_id = $1
		ORDER BY tenant_id
		LIMIT 1`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, webhookID))
}

func (r *BoardConfigRepository) ListAll(ctx context.Context) ([]*entity.BoardConfig, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+boardConfigColumns+` FROM board_configs ORDER BY tenant_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*entity.BoardConfig
	for rows.Next() {
		cfg, err := scanBoardConfig(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, rows.Err()
}

func (r *BoardConfigRepository) Save(ctx context.Context, cfg *entity.BoardConfig) error {
	statusMap, err := json.Marshal(nonNilStatusMap(cfg.StatusMap))
	if err != nil {
		return fmt.Errorf("erro ao serializar status_map: %w", err)
	}
	regionMap, err := json.Marshal(nonNilRegionMap(cfg.RegionMap))
	if err != nil {
		return fmt.Errorf("erro ao serializar region_map: %w", err)
	}

	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}

	query := `
		INSERT INTO board_configs (
			id, tenant_id, api_key, api_token, api_secret, board_id, board_long_id,
			status_map, region_map, phone_region, webhook_id, webhook_callback_url,
			last_sync_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
		ON CONFLICT (tenant_id) DO UPDATE SET
			api_key = EXCLUDED.api_key,
			api_token = EXCLUDED.api_token,
			api_secret = EXCLUDED.api_secret,
			board_id = EXCLUDED.board_id,
			board_long_id = EXCLUDED.board_long_id,
			status_map = EXCLUDED.status_map,
			region_map = EXCLUDED.region_map,
			phone_region = EXCLUDED.phone_region,
			webhook_id = EXCLUDED.webhook_id,
			webhook_callback_url = EXCLUDED.webhook_callback_url,
			last_sync_at = EXCLUDED.last_sync_at,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`
	return r.DB.QueryRowContext(ctx, query,
		id,
		cfg.TenantID,
		cfg.APIKey,
		cfg.APIToken,
		cfg.APISecret,
		cfg.BoardID,
		cfg.BoardLongID,
		string(statusMap),
		string(regionMap),
		cfg.PhoneRegion,
		nullString(cfg.WebhookID),
		nullString(cfg.WebhookCallbackURL),
		cfg.LastSyncAt,
	).Scan(&cfg.ID, &cfg.CreatedAt, &cfg.UpdatedAt)
}

func (r *BoardConfigRepository) SaveCanonicalBoardID(ctx context.Context, tenantID, longID string) error {
	return r.exec(ctx,
		`UPDATE board_configs SET board_long_id = $1, updated_at = NOW() WHERE tenant_id = $2`,
		longID, tenantID)
}

func (r *BoardConfigRepository) SaveWebhook(ctx context.Context, tenantID, webhookID, callbackURL string) error {
	return r.exec(ctx,
		`UPDATE board_configs SET webhook_id = $1, webhook_callback_url = $2, updated_at = NOW() WHERE tenant_id = $3`,
		nullString(webhookID), nullString(callbackURL), tenantID)
}

func (r *BoardConfigRepository) TouchLastSync(ctx context.Context, tenantID string, at time.Time) error {
	return r.exec(ctx,
		`UPDATE board_configs SET last_sync_at = $1, updated_at = NOW() WHERE tenant_id = $2`,
		at.UTC(), tenantID)
}

func (r *BoardConfigRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return entity.ErrBoardConfigNotFound
	}
	return nil
}

func (r *BoardConfigRepository) scanOne(row *sql.Row) (*entity.BoardConfig, error) {
	cfg, err := scanBoardConfig(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrBoardConfigNotFound
	}
	return cfg, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBoardConfig(s rowScanner) (*entity.BoardConfig, error) {
	var (
		cfg                   entity.BoardConfig
		statusRaw, regionRaw  []byte
		webhookID, callbackID sql.NullString
		lastSync              sql.NullTime
	)
	err := s.Scan(
		&cfg.ID,
		&cfg.TenantID,
		&cfg.APIKey,
		&cfg.APIToken,
		&cfg.APISecret,
		&cfg.BoardID,
		&cfg.BoardLongID,
		&statusRaw,
		&regionRaw,
		&cfg.PhoneRegion,
		&webhookID,
		&callbackID,
		&lastSync,
		&cfg.CreatedAt,
		&cfg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(statusRaw, &cfg.StatusMap); err != nil {
		return nil, fmt.Errorf("status_map inválido para tenant %s: %w", cfg.TenantID, err)
	}
	if err := json.Unmarshal(regionRaw, &cfg.RegionMap); err != nil {
		return nil, fmt.Errorf("region_map inválido para tenant %s: %w", cfg.TenantID, err)
	}
	cfg.WebhookID = webhookID.String
	cfg.WebhookCallbackURL = callbackID.String
	if lastSync.Valid {
		at := lastSync.Time
		cfg.LastSyncAt = &at
	}
	return &cfg, nil
}

func nonNilStatusMap(m map[string]entity.LeadStatus) map[string]entity.LeadStatus {
	if m == nil {
		return map[string]entity.LeadStatus{}
	}
	return m
}

func nonNilRegionMap(m map[string]entity.Region) map[string]entity.Region {
	if m == nil {
		return map[string]entity.Region{}
	}
	return m
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
