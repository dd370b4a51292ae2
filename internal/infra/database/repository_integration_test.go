package database

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/agency-backoffice/internal/entity"
)

// openTestDB conecta no Postgres de TEST_DATABASE_URL; sem a variável o teste é pulado.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL não definido")
	}
	db, err := NewDBConnection(url)
	require.NoError(t, err)
	require.NoError(t, Migrate(context.Background(), db))
	t.Cleanup(func() { db.Close() })
	return db
}

func TestLeadRepositoryPostgres(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewLeadRepository(db)
	tenant := "it-" + uuid.NewString()
	key := entity.LeadKey{TenantID: tenant, Source: entity.LeadSourceTrello, ExternalID: "card-1"}
	t.Cleanup(func() { db.Exec(`DELETE FROM leads WHERE tenant_id = $1`, tenant) })

	first, err := repo.Upsert(ctx, key, entity.LeadFields{ListID: "L1", ListName: "Nuevos", Status: entity.LeadStatusNew, Region: entity.RegionOther})
	require.NoError(t, err)
	assert.True(t, first.Created)

	second, err := repo.Upsert(ctx, key, entity.LeadFields{ListID: "L1", Status: entity.LeadStatusWon, Region: entity.RegionOther})
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Lead.ID, second.Lead.ID)
	assert.Equal(t, "Nuevos", second.Lead.ListName)
	assert.Equal(t, entity.LeadStatusWon, second.Lead.Status)

	moved, err := repo.Upsert(ctx, key, entity.LeadFields{ListID: "L2", Status: entity.LeadStatusWon, Region: entity.RegionOther})
	require.NoError(t, err)
	assert.Empty(t, moved.Lead.ListName)

	missing, err := repo.ListMissingListName(ctx, tenant, entity.LeadSourceTrello)
	require.NoError(t, err)
	require.Len(t, missing, 1)
	require.NoError(t, repo.SetListName(ctx, tenant, first.Lead.ID, "Cerrados"))
	assert.ErrorIs(t, repo.SetListName(ctx, "other-"+tenant, first.Lead.ID, "x"), entity.ErrLeadNotFound)

	docID, ledgerID := uuid.NewString(), uuid.NewString()
	_, err = db.Exec(`INSERT INTO documents (id, lead_id) VALUES ($1, $2)`, docID, first.Lead.ID)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO ledger_movements (id, lead_id) VALUES ($1, $2)`, ledgerID, first.Lead.ID)
	require.NoError(t, err)
	t.Cleanup(func() { db.Exec(`DELETE FROM ledger_movements WHERE id = $1`, ledgerID) })

	del, err := repo.DeleteByExternalID(ctx, key)
	require.NoError(t, err)
	assert.True(t, del.Deleted)

	var docs int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM documents WHERE id = $1`, docID).Scan(&docs))
	assert.Zero(t, docs)

	var leadID sql.NullString
	require.NoError(t, db.QueryRow(`SELECT lead_id FROM ledger_movements WHERE id = $1`, ledgerID).Scan(&leadID))
	assert.False(t, leadID.Valid)

	again, err := repo.DeleteByExternalID(ctx, key)
	require.NoError(t, err)
	assert.False(t, again.Deleted)
}

func TestBoardConfigRepositoryPostgres(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewBoardConfigRepository(db)
	tenant := "it-" + uuid.NewString()
	board := "b-" + uuid.NewString()[:8]
	t.Cleanup(func() { db.Exec(`DELETE FROM board_configs WHERE tenant_id = $1`, tenant) })

	require.NoError(t, repo.Save(ctx, &entity.BoardConfig{
		TenantID:  tenant,
		APIKey:    "k",
		APIToken:  "t",
		BoardID:   board,
		StatusMap: map[string]entity.LeadStatus{"L1": entity.LeadStatusWon},
	}))

	cfg, err := repo.FindByBoardID(ctx, board)
	require.NoError(t, err)
	assert.Equal(t, tenant, cfg.TenantID)
	assert.Equal(t, entity.LeadStatusWon, cfg.StatusMap["L1"])
	assert.Empty(t, cfg.WebhookID)

	require.NoError(t, repo.SaveCanonicalBoardID(ctx, tenant, board+"-long"))
	require.NoError(t, repo.SaveWebhook(ctx, tenant, "w1", "https://x/cb"))
	at := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.TouchLastSync(ctx, tenant, at))

	cfg, err = repo.FindByBoardID(ctx, board+"-long")
	require.NoError(t, err)
	assert.Equal(t, "w1", cfg.WebhookID)

	webhookID := "w-" + tenant
	require.NoError(t, repo.SaveWebhook(ctx, tenant, webhookID, "https://x/cb"))
	byHook, err := repo.FindByWebhookID(ctx, webhookID)
	require.NoError(t, err)
	assert.Equal(t, tenant, byHook.TenantID)
	_, err = repo.FindByWebhookID(ctx, "missing-"+webhookID)
	assert.ErrorIs(t, err, entity.ErrBoardConfigNotFound)
	require.NotNil(t, cfg.LastSyncAt)
	assert.True(t, at.Equal(*cfg.LastSyncAt))

	assert.ErrorIs(t, repo.TouchLastSync(ctx, "missing-"+tenant, at), entity.ErrBoardConfigNotFound)
}
