package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/agency-backoffice/internal/entity"
	"github.com/xavierca1/agency-backoffice/internal/infra/memory"
)

func TestBackfillListNames(t *testing.T) {
	ctx := context.Background()
	leads := memory.NewLeadRepository()
	client := newFakeBoardClient()
	client.lists = []entity.BoardList{{ID: "L1", Name: "Ganados"}}
	uc := NewBackfillListNamesUseCase(memory.NewBoardConfigRepository(testBoardConfig("t1")), client, leads, nil)

	_, err := leads.Upsert(ctx, trelloKey("t1", "c1"), entity.LeadFields{ListID: "L1"})
	require.NoError(t, err)
	_, err = leads.Upsert(ctx, trelloKey("t1", "c2"), entity.LeadFields{ListID: "gone"})
	require.NoError(t, err)
	_, err = leads.Upsert(ctx, trelloKey("t1", "c3"), entity.LeadFields{ListID: "L1", ListName: "Ganados"})
	require.NoError(t, err)

	result, err := uc.Execute(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, BackfillResult{TenantID: "t1", Candidate: 2, Updated: 1, Unknown: 1}, result)

	lead, _ := leads.FindByExternalID(ctx, trelloKey("t1", "c1"))
	assert.Equal(t, "Ganados", lead.ListName)

	again, err := uc.Execute(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 1, again.Candidate)
	assert.Zero(t, again.Updated)
}

func TestBackfillListNamesUnknownTenant(t *testing.T) {
	uc := NewBackfillListNamesUseCase(memory.NewBoardConfigRepository(), newFakeBoardClient(), memory.NewLeadRepository(), nil)

	_, err := uc.Execute(context.Background(), "nobody")
	var de *DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, CodeTenantNotConfigured, de.Code)
}
