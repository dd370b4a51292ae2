package trello

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xavierca1/agency-backoffice/internal/entity"
)

const (
	DefaultBaseURL = "https://api.trello.com"

	cardFields    = "id,name,desc,idList,idBoard,closed,dateLastActivity,labels"
	summaryFields = "id,name,idList,closed,dateLastActivity"
)

type Options struct {
	BaseURL       string
	HTTPClient    *http.Client
	RatePerSecond float64
	Burst         int
	MaxRetries    int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	Log           *zap.Logger
}

// APIError é uma resposta não-2xx do provider depois de esgotados os retries.
type APIError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("trello %s %s: status=%d body=%s", e.Method, e.Path, e.Status, e.Body)
}

// Client fala com a API REST do Trello. Cada token tem o seu próprio limiter,
// já que o limite do provider é por token.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	log        *zap.Logger

	rps      rate.Limit
	burst    int
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	rps := opts.RatePerSecond
	if rps <= 0 {
		rps = 10
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 10
	}
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	baseDelay := opts.BaseDelay
	if baseDelay <= 0 {
		baseDelay = 200 * time.Millisecond
	}
	maxDelay := opts.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 5 * time.Second
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		maxDelay:   maxDelay,
		log:        log,
		rps:        rate.Limit(rps),
		burst:      burst,
		limiters:   make(map[string]*rate.Limiter),
	}
}

func (c *Client) GetBoard(ctx context.Context, creds entity.BoardCredentials, boardID string) (entity.Board, error) {
	var dto boardDTO
	q := url.Values{"fields": {"id,name,shortLink"}}
	if err := c.do(ctx, creds, http.MethodGet, "/1/boards/"+url.PathEscape(boardID), q, nil, &dto); err != nil {
		return entity.Board{}, err
	}
	return dto.toEntity(), nil
}

// ListCardSummaries usa cards/all para incluir os arquivados.
func (c *Client) ListCardSummaries(ctx context.Context, creds entity.BoardCredentials, boardID string) ([]entity.CardSummary, error) {
	var dtos []cardDTO
	q := url.Values{"fields": {summaryFields}}
	if err := c.do(ctx, creds, http.MethodGet, "/1/boards/"+url.PathEscape(boardID)+"/cards/all", q, nil, &dtos); err != nil {
		return nil, err
	}
	out := make([]entity.CardSummary, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.toSummary())
	}
	return out, nil
}

func (c *Client) ListOpenCards(ctx context.Context, creds entity.BoardCredentials, boardID string) ([]entity.Card, error) {
	var dtos []cardDTO
	q := url.Values{"fields": {cardFields}}
	if err := c.do(ctx, creds, http.MethodGet, "/1/boards/"+url.PathEscape(boardID)+"/cards/open", q, nil, &dtos); err != nil {
		return nil, err
	}
	out := make([]entity.Card, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.toEntity())
	}
	return out, nil
}

func (c *Client) ListLists(ctx context.Context, creds entity.BoardCredentials, boardID string) ([]entity.BoardList, error) {
	var dtos []listDTO
	q := url.Values{"filter": {"all"}, "fields": {"id,name,closed"}}
	if err := c.do(ctx, creds, http.MethodGet, "/1/boards/"+url.PathEscape(boardID)+"/lists", q, nil, &dtos); err != nil {
		return nil, err
	}
	out := make([]entity.BoardList, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.toEntity())
	}
	return out, nil
}

func (c *Client) GetList(ctx context.Context, creds entity.BoardCredentials, listID string) (entity.BoardList, error) {
	var dto listDTO
	q := url.Values{"fields": {"id,name,closed"}}
	if err := c.do(ctx, creds, http.MethodGet, "/1/lists/"+url.PathEscape(listID), q, nil, &dto); err != nil {
		return entity.BoardList{}, err
	}
	return dto.toEntity(), nil
}

func (c *Client) GetCard(ctx context.Context, creds entity.BoardCredentials, cardID string) (entity.Card, error) {
	var dto cardDTO
	q := url.Values{"fields": {cardFields}}
	err := c.do(ctx, creds, http.MethodGet, "/1/cards/"+url.PathEscape(cardID), q, nil, &dto)
	if isStatus(err, http.StatusNotFound) {
		return entity.Card{}, fmt.Errorf("%w: %s", entity.ErrCardNotFound, cardID)
	}
	if err != nil {
		return entity.Card{}, err
	}
	return dto.toEntity(), nil
}

func (c *Client) ListWebhooks(ctx context.Context, creds entity.BoardCredentials) ([]entity.Webhook, error) {
	var dtos []webhookDTO
	if err := c.do(ctx, creds, http.MethodGet, "/1/tokens/"+url.PathEscape(creds.APIToken)+"/webhooks", nil, nil, &dtos); err != nil {
		return nil, err
	}
	out := make([]entity.Webhook, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.toEntity())
	}
	return out, nil
}

func (c *Client) CreateWebhook(ctx context.Context, creds entity.BoardCredentials, reg entity.WebhookRegistration) (entity.Webhook, error) {
	body := createWebhookRequest{Description: reg.Description, CallbackURL: reg.CallbackURL, IDModel: reg.IDModel}
	var dto webhookDTO
	if err := c.do(ctx, creds, http.MethodPost, "/1/webhooks", nil, body, &dto); err != nil {
		return entity.Webhook{}, err
	}
	return dto.toEntity(), nil
}

func (c *Client) DeleteWebhook(ctx context.Context, creds entity.BoardCredentials, webhookID string) error {
	err := c.do(ctx, creds, http.MethodDelete, "/1/webhooks/"+url.PathEscape(webhookID), nil, nil, nil)
	if isStatus(err, http.StatusNotFound) {
		return fmt.Errorf("%w: %s", entity.ErrWebhookNotFound, webhookID)
	}
	return err
}

func (c *Client) limiter(token string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.limiters[token]
	if !ok {
		l = rate.NewLimiter(c.rps, c.burst)
		c.limiters[token] = l
	}
	return l
}

func (c *Client) do(ctx context.Context, creds entity.BoardCredentials, method, path string, query url.Values, payload, out any) error {
	if creds.APIKey == "" || creds.APIToken == "" {
		return errors.New("trello: credenciais ausentes")
	}
	if query == nil {
		query = url.Values{}
	}
	query.Set("key", creds.APIKey)
	query.Set("token", creds.APIToken)
	endpoint := c.baseURL + path + "?" + query.Encode()

	var bodyBytes []byte
	if payload != nil {
		var err error
		if bodyBytes, err = json.Marshal(payload); err != nil {
			return err
		}
	}

	limiter := c.limiter(creds.APIToken)
	for attempt := 0; ; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}

		var body io.Reader
		if bodyBytes != nil {
			body = bytes.NewReader(bodyBytes)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		if bodyBytes != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() == nil && attempt < c.maxRetries {
				c.log.Warn("trello: falha de rede, tentando novamente",
					zap.String("method", method), zap.String("path", path), zap.Int("attempt", attempt+1), zap.Error(err))
				if waitErr := sleepContext(ctx, c.retryDelay(attempt+1, "")); waitErr != nil {
					return waitErr
				}
				continue
			}
			return err
		}

		respBody, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return readErr
		}

		if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
			if out == nil || len(respBody) == 0 {
				return nil
			}
			if err := json.Unmarshal(respBody, out); err != nil {
				return fmt.Errorf("trello %s %s: resposta inválida: %w", method, path, err)
			}
			return nil
		}

		if (resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500) && attempt < c.maxRetries {
			c.log.Warn("trello: resposta transitória, tentando novamente",
				zap.String("method", method), zap.String("path", path),
				zap.Int("status", resp.StatusCode), zap.Int("attempt", attempt+1))
			if waitErr := sleepContext(ctx, c.retryDelay(attempt+1, resp.Header.Get("Retry-After"))); waitErr != nil {
				return waitErr
			}
			continue
		}

		return &APIError{Method: method, Path: path, Status: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}
}

func (c *Client) retryDelay(attempt int, retryAfterHeader string) time.Duration {
	if retryAfter := parseRetryAfterSeconds(retryAfterHeader); retryAfter > 0 {
		if retryAfter > c.maxDelay {
			return c.maxDelay
		}
		return retryAfter
	}
	delay := c.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= c.maxDelay {
			return c.maxDelay
		}
	}
	return delay
}

func parseRetryAfterSeconds(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func isStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}
