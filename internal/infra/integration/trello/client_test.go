package trello

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/agency-backoffice/internal/entity"
)

var testCreds = entity.BoardCredentials{APIKey: "key-1", APIToken: "token-1"}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Options{
		BaseURL:       srv.URL,
		RatePerSecond: 1000,
		Burst:         100,
		MaxRetries:    2,
		BaseDelay:     time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
	})
}

// TestGetCard - decodifica o card e envia as credenciais como query
func TestGetCard(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/1/cards/c1", r.URL.Path)
		assert.Equal(t, "key-1", r.URL.Query().Get("key"))
		assert.Equal(t, "token-1", r.URL.Query().Get("token"))
		w.Write([]byte(`{
			"id": "c1",
			"name": "Juan Perez - Cancun",
			"desc": "  viaja em março ",
			"idList": "L1",
			"idBoard": "B1",
			"closed": false,
			"dateLastActivity": "2024-03-01T10:00:00.000Z",
			"labels": [{"id": "lb1", "name": "Mexico", "color": "green"}]
		}`))
	})

	card, err := client.GetCard(context.Background(), testCreds, "c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", card.ID)
	assert.Equal(t, "L1", card.IDList)
	assert.Equal(t, "B1", card.IDBoard)
	assert.False(t, card.Closed)
	require.Len(t, card.Labels, 1)
	assert.Equal(t, "Mexico", card.Labels[0].Name)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), card.DateLastActivity)
}

func TestGetCardNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "The requested resource was not found.", http.StatusNotFound)
	})

	_, err := client.GetCard(context.Background(), testCreds, "gone")
	assert.ErrorIs(t, err, entity.ErrCardNotFound)
}

func TestCardWithoutListDecodesEmpty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": "c2", "name": "Sem lista"}`))
	})

	card, err := client.GetCard(context.Background(), testCreds, "c2")
	require.NoError(t, err)
	assert.Empty(t, card.IDList)
	assert.True(t, card.DateLastActivity.IsZero())
}

// TestRetryOn429 - respeita Retry-After e tenta de novo
func TestRetryOn429(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`[{"id": "L1", "name": "Nuevos"}, {"id": "L2", "name": "Cerrados", "closed": true}]`))
	})

	lists, err := client.ListLists(context.Background(), testCreds, "B1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	require.Len(t, lists, 2)
	assert.True(t, lists[1].Closed)
}

func TestRetryExhausted(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.ListOpenCards(context.Background(), testCreds, "B1")
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClientErrorIsNotRetried(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.GetBoard(context.Background(), testCreds, "B1")
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestListCardSummariesUsesAllEndpoint(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/1/boards/B1/cards/all", r.URL.Path)
		w.Write([]byte(`[
			{"id": "a", "idList": "L1", "closed": false, "dateLastActivity": "2024-03-01T10:00:00Z"},
			{"id": "b", "idList": "L1", "closed": true, "dateLastActivity": "2024-03-01T11:00:00Z"}
		]`))
	})

	summaries, err := client.ListCardSummaries(context.Background(), testCreds, "B1")
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.True(t, summaries[1].Closed)
}

func TestWebhookLifecycleEndpoints(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/1/tokens/token-1/webhooks":
			w.Write([]byte(`[{"id": "w1", "idModel": "B1", "callbackURL": "https://x/cb", "active": true}]`))
		case r.Method == http.MethodPost && r.URL.Path == "/1/webhooks":
			var body createWebhookRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "B1", body.IDModel)
			w.Write([]byte(`{"id": "w2", "idModel": "B1", "callbackURL": "` + body.CallbackURL + `"}`))
		case r.Method == http.MethodDelete && r.URL.Path == "/1/webhooks/missing":
			w.WriteHeader(http.StatusNotFound)
		case r.Method == http.MethodDelete:
			w.Write([]byte(`{}`))
		default:
			t.Errorf("rota inesperada %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusTeapot)
		}
	})
	ctx := context.Background()

	hooks, err := client.ListWebhooks(ctx, testCreds)
	require.NoError(t, err)
	require.Len(t, hooks, 1)
	assert.True(t, hooks[0].Active)

	created, err := client.CreateWebhook(ctx, testCreds, entity.WebhookRegistration{IDModel: "B1", CallbackURL: "https://x/cb"})
	require.NoError(t, err)
	assert.Equal(t, "w2", created.ID)
	assert.True(t, created.Active)

	assert.NoError(t, client.DeleteWebhook(ctx, testCreds, "w1"))
	assert.ErrorIs(t, client.DeleteWebhook(ctx, testCreds, "missing"), entity.ErrWebhookNotFound)
}

func TestMissingCredentials(t *testing.T) {
	client := NewClient(Options{})
	_, err := client.GetCard(context.Background(), entity.BoardCredentials{}, "c1")
	assert.Error(t, err)
}

func TestRetryDelay(t *testing.T) {
	c := NewClient(Options{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second})
	assert.Equal(t, 100*time.Millisecond, c.retryDelay(1, ""))
	assert.Equal(t, 400*time.Millisecond, c.retryDelay(3, ""))
	assert.Equal(t, time.Second, c.retryDelay(10, ""))
	assert.Equal(t, time.Second, c.retryDelay(1, "30"))
	assert.Equal(t, 100*time.Millisecond, c.retryDelay(1, "abc"))
}
