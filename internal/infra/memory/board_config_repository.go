package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xavierca1/agency-backoffice/internal/entity"
)

type BoardConfigRepository struct {
	mu      sync.RWMutex
	configs map[string]*entity.BoardConfig
	now     func() time.Time
}

func NewBoardConfigRepository(configs ...*entity.BoardConfig) *BoardConfigRepository {
	r := &BoardConfigRepository{
		configs: make(map[string]*entity.BoardConfig),
		now:     time.Now,
	}
	for _, c := range configs {
		_ = r.Save(context.Background(), c)
	}
	return r
}

func (r *BoardConfigRepository) FindByTenant(_ context.Context, tenantID string) (*entity.BoardConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg, ok := r.configs[tenantID]
	if !ok {
		return nil, entity.ErrBoardConfigNotFound
	}
	return copyConfig(cfg), nil
}

func (r *BoardConfigRepository) FindByBoardID(_ context.Context, boardID string) (*entity.BoardConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.findFirst(func(c *entity.BoardConfig) bool { return c.MatchesBoard(boardID) })
}

func (r *BoardConfigRepository) FindByWebhookID(_ context.Context, webhookID string) (*entity.BoardConfig, error) {
	if webhookID == "" {
		return nil, entity.ErrBoardConfigNotFound
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.findFirst(func(c *entity.BoardConfig) bool { return c.WebhookID == webhookID })
}

// findFirst devolve o menor tenant_id que satisfaz match, como o ORDER BY do Postgres.
func (r *BoardConfigRepository) findFirst(match func(c *entity.BoardConfig) bool) (*entity.BoardConfig, error) {
	var found *entity.BoardConfig
	for _, cfg := range r.configs {
		if match(cfg) && (found == nil || cfg.TenantID < found.TenantID) {
			found = cfg
		}
	}
	if found == nil {
		return nil, entity.ErrBoardConfigNotFound
	}
	return copyConfig(found), nil
}

func (r *BoardConfigRepository) ListAll(_ context.Context) ([]*entity.BoardConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*entity.BoardConfig, 0, len(r.configs))
	for _, cfg := range r.configs {
		out = append(out, copyConfig(cfg))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TenantID < out[j].TenantID })
	return out, nil
}

func (r *BoardConfigRepository) Save(_ context.Context, cfg *entity.BoardConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := copyConfig(cfg)
	now := r.now().UTC()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if prev, ok := r.configs[cfg.TenantID]; ok {
		stored.ID = prev.ID
		stored.CreatedAt = prev.CreatedAt
	} else if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	r.configs[cfg.TenantID] = stored
	return nil
}

func (r *BoardConfigRepository) SaveCanonicalBoardID(_ context.Context, tenantID, longID string) error {
	return r.update(tenantID, func(c *entity.BoardConfig) { c.BoardLongID = longID })
}

func (r *BoardConfigRepository) SaveWebhook(_ context.Context, tenantID, webhookID, callbackURL string) error {
	return r.update(tenantID, func(c *entity.BoardConfig) {
		c.WebhookID = webhookID
		c.WebhookCallbackURL = callbackURL
	})
}

func (r *BoardConfigRepository) TouchLastSync(_ context.Context, tenantID string, at time.Time) error {
	return r.update(tenantID, func(c *entity.BoardConfig) { c.LastSyncAt = &at })
}

func (r *BoardConfigRepository) update(tenantID string, fn func(c *entity.BoardConfig)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg, ok := r.configs[tenantID]
	if !ok {
		return entity.ErrBoardConfigNotFound
	}
	fn(cfg)
	cfg.UpdatedAt = r.now().UTC()
	return nil
}

func copyConfig(c *entity.BoardConfig) *entity.BoardConfig {
	out := *c
	out.StatusMap = make(map[string]entity.LeadStatus, len(c.StatusMap))
	for k, v := range c.StatusMap {
		out.StatusMap[k] = v
	}
	out.RegionMap = make(map[string]entity.Region, len(c.RegionMap))
	for k, v := range c.RegionMap {
		out.RegionMap[k] = v
	}
	if c.LastSyncAt != nil {
		at := *c.LastSyncAt
		out.LastSyncAt = &at
	}
	return &out
}
