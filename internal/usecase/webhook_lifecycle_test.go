package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/agency-backoffice/internal/entity"
	"github.com/xavierca1/agency-backoffice/internal/infra/memory"
)

const callback = "https://backoffice.example.com/webhook/card-event"

type mapBoardCache struct {
	mu   sync.Mutex
	ids  map[string]string
	sets int
}

func (c *mapBoardCache) GetCanonicalBoardID(_ context.Context, alias string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.ids[alias]
	return id, ok, nil
}

func (c *mapBoardCache) SetCanonicalBoardID(_ context.Context, alias, longID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids[alias] = longID
	c.sets++
	return nil
}

func TestClassifyWebhooks(t *testing.T) {
	cfg := testBoardConfig("t1")
	hooks := []entity.Webhook{
		{ID: "other-app", IDModel: "board-long", CallbackURL: "https://other.example.com/hook", Active: true},
		{ID: "inactive", IDModel: "board-long", CallbackURL: callback, Active: false},
		{ID: "good", IDModel: "board-long", CallbackURL: callback + "/", Active: true},
		{ID: "dup", IDModel: "board-long", CallbackURL: callback, Active: true},
		{ID: "wrong-board", IDModel: "another", CallbackURL: callback, Active: true},
	}

	keep, stale := ClassifyWebhooks(hooks, callback, cfg)

	require.NotNil(t, keep)
	assert.Equal(t, "good", keep.ID)
	ids := make([]string, 0, len(stale))
	for _, h := range stale {
		ids = append(ids, h.ID)
	}
	assert.Equal(t, []string{"inactive", "dup", "wrong-board"}, ids)
}

func TestWebhookRepairRecreatesStale(t *testing.T) {
	ctx := context.Background()
	cfg := testBoardConfig("t1")
	cfg.BoardLongID = ""
	configs := memory.NewBoardConfigRepository(cfg)
	client := newFakeBoardClient()
	client.webhooks = []entity.Webhook{
		{ID: "short-id", IDModel: "abc-old", CallbackURL: callback, Active: true},
		{ID: "dead", IDModel: "board-long", CallbackURL: callback, Active: false},
	}
	cache := &mapBoardCache{ids: map[string]string{}}
	uc := NewWebhookLifecycleUseCase(configs, client, cache, nil)

	report, err := uc.Repair(ctx, "t1", callback)
	require.NoError(t, err)

	assert.Equal(t, "board-long", report.CanonicalBoardID)
	assert.True(t, report.Created)
	assert.False(t, report.Kept)
	assert.ElementsMatch(t, []string{"short-id", "dead"}, report.Removed)
	require.Len(t, client.created, 1)
	assert.Equal(t, "board-long", client.created[0].IDModel)
	assert.Equal(t, callback, client.created[0].CallbackURL)

	stored, _ := configs.FindByTenant(ctx, "t1")
	assert.Equal(t, "board-long", stored.BoardLongID)
	assert.Equal(t, report.WebhookID, stored.WebhookID)
	assert.Equal(t, callback, stored.WebhookCallbackURL)
	assert.Equal(t, "board-long", cache.ids["abc"])
}

func TestWebhookRepairIsIdempotent(t *testing.T) {
	ctx := context.Background()
	configs := memory.NewBoardConfigRepository(testBoardConfig("t1"))
	client := newFakeBoardClient()
	cache := &mapBoardCache{ids: map[string]string{}}
	uc := NewWebhookLifecycleUseCase(configs, client, cache, nil)

	first, err := uc.Repair(ctx, "t1", callback)
	require.NoError(t, err)
	assert.True(t, first.Created)

	second, err := uc.Repair(ctx, "t1", "")
	require.NoError(t, err)
	assert.True(t, second.Kept)
	assert.False(t, second.Created)
	assert.Empty(t, second.Removed)
	assert.Equal(t, first.WebhookID, second.WebhookID)
	assert.Len(t, client.created, 1)
	assert.Len(t, client.webhooks, 1)

	// segunda execução resolve o board pelo cache
	assert.Equal(t, 1, client.getBoardCalls)
	assert.Equal(t, 1, cache.sets)
}

func TestWebhookRepairReportsRemoveFailures(t *testing.T) {
	ctx := context.Background()
	configs := memory.NewBoardConfigRepository(testBoardConfig("t1"))
	client := newFakeBoardClient()
	client.webhooks = []entity.Webhook{
		{ID: "good", IDModel: "board-long", CallbackURL: callback, Active: true},
		{ID: "stuck", IDModel: "board-long", CallbackURL: callback, Active: false},
	}
	client.deleteErr["stuck"] = errors.New("500")
	uc := NewWebhookLifecycleUseCase(configs, client, nil, nil)

	report, err := uc.Repair(ctx, "t1", callback)

	var te *TechnicalError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, CodeWebhookRegistration, te.Code)
	assert.True(t, report.Kept)
	assert.Equal(t, []string{"stuck"}, report.RemoveFailures)

	stored, _ := configs.FindByTenant(ctx, "t1")
	assert.Equal(t, "good", stored.WebhookID)
}

func TestWebhookRepairErrors(t *testing.T) {
	ctx := context.Background()
	configs := memory.NewBoardConfigRepository(testBoardConfig("t1"))
	client := newFakeBoardClient()
	uc := NewWebhookLifecycleUseCase(configs, client, nil, nil)

	_, err := uc.Repair(ctx, "t1", "")
	var de *DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, CodeTenantMisconfigured, de.Code)

	_, err = uc.Repair(ctx, "nobody", callback)
	require.ErrorAs(t, err, &de)
	assert.Equal(t, CodeTenantNotConfigured, de.Code)

	client.createErr = errors.New("400 invalid callback")
	_, err = uc.Repair(ctx, "t1", callback)
	var te *TechnicalError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, CodeWebhookRegistration, te.Code)
}
