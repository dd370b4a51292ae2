package usecase

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/xavierca1/agency-backoffice/internal/entity"
)

// fakeBoardClient - board em memória com contadores de chamadas
type fakeBoardClient struct {
	mu       sync.Mutex
	board    entity.Board
	cards    map[string]entity.Card
	lists    []entity.BoardList
	webhooks []entity.Webhook

	listCardsErr error
	getCardErr   map[string]error
	deleteErr    map[string]error
	createErr    error

	getCardCalls  int
	getListCalls  int
	getBoardCalls int
	created       []entity.WebhookRegistration
	deleted       []string
	nextID        int
}

func newFakeBoardClient(cards ...entity.Card) *fakeBoardClient {
	f := &fakeBoardClient{
		board:      entity.Board{ID: "board-long", ShortLink: "abc", Name: "Ventas"},
		cards:      make(map[string]entity.Card),
		getCardErr: make(map[string]error),
		deleteErr:  make(map[string]error),
	}
	for _, c := range cards {
		f.cards[c.ID] = c
	}
	return f
}

func (f *fakeBoardClient) GetBoard(_ context.Context, _ entity.BoardCredentials, boardID string) (entity.Board, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getBoardCalls++
	if boardID != f.board.ID && boardID != f.board.ShortLink {
		return entity.Board{}, errors.New("board not found")
	}
	return f.board, nil
}

func (f *fakeBoardClient) ListCardSummaries(_ context.Context, _ entity.BoardCredentials, _ string) ([]entity.CardSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listCardsErr != nil {
		return nil, f.listCardsErr
	}
	out := make([]entity.CardSummary, 0, len(f.cards))
	for _, c := range f.cards {
		out = append(out, entity.CardSummary{
			ID:               c.ID,
			Name:             c.Name,
			IDList:           c.IDList,
			Closed:           c.Closed,
			DateLastActivity: c.DateLastActivity,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeBoardClient) ListOpenCards(_ context.Context, _ entity.BoardCredentials, _ string) ([]entity.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listCardsErr != nil {
		return nil, f.listCardsErr
	}
	var out []entity.Card
	for _, c := range f.cards {
		if !c.Closed {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeBoardClient) ListLists(_ context.Context, _ entity.BoardCredentials, _ string) ([]entity.BoardList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]entity.BoardList(nil), f.lists...), nil
}

func (f *fakeBoardClient) GetList(_ context.Context, _ entity.BoardCredentials, listID string) (entity.BoardList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getListCalls++
	for _, l := range f.lists {
		if l.ID == listID {
			return l, nil
		}
	}
	return entity.BoardList{}, errors.New("list not found")
}

func (f *fakeBoardClient) GetCard(_ context.Context, _ entity.BoardCredentials, cardID string) (entity.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCardCalls++
	if err := f.getCardErr[cardID]; err != nil {
		return entity.Card{}, err
	}
	c, ok := f.cards[cardID]
	if !ok {
		return entity.Card{}, entity.ErrCardNotFound
	}
	return c, nil
}

func (f *fakeBoardClient) ListWebhooks(_ context.Context, _ entity.BoardCredentials) ([]entity.Webhook, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]entity.Webhook(nil), f.webhooks...), nil
}

func (f *fakeBoardClient) CreateWebhook(_ context.Context, _ entity.BoardCredentials, reg entity.WebhookRegistration) (entity.Webhook, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return entity.Webhook{}, f.createErr
	}
	f.nextID++
	hook := entity.Webhook{
		ID:          "new-" + strconv.Itoa(f.nextID),
		Description: reg.Description,
		IDModel:     reg.IDModel,
		CallbackURL: reg.CallbackURL,
		Active:      true,
	}
	f.created = append(f.created, reg)
	f.webhooks = append(f.webhooks, hook)
	return hook, nil
}

func (f *fakeBoardClient) DeleteWebhook(_ context.Context, _ entity.BoardCredentials, webhookID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.deleteErr[webhookID]; err != nil {
		return err
	}
	for i, h := range f.webhooks {
		if h.ID == webhookID {
			f.webhooks = append(f.webhooks[:i], f.webhooks[i+1:]...)
			f.deleted = append(f.deleted, webhookID)
			return nil
		}
	}
	return entity.ErrWebhookNotFound
}

// MockPublisher - Mock para LeadEventPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishLeadEvent(ctx context.Context, event entity.LeadEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockReporter - Mock para SyncReporter
type MockReporter struct {
	mock.Mock
}

func (m *MockReporter) SendSyncReport(ctx context.Context, report SyncReport) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func testBoardConfig(tenantID string) *entity.BoardConfig {
	return &entity.BoardConfig{
		TenantID:    tenantID,
		APIKey:      "key",
		APIToken:    "token",
		BoardID:     "abc",
		BoardLongID: "board-long",
		StatusMap: map[string]entity.LeadStatus{
			"L1": entity.LeadStatusWon,
			"L2": entity.LeadStatusContacted,
		},
		RegionMap: map[string]entity.Region{
			"L1": "CARIBE",
		},
	}
}
