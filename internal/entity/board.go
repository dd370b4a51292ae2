package entity

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrBoardConfigNotFound   = errors.New("board config not found")
	ErrBoardConfigIncomplete = errors.New("board config incomplete")
	ErrCardNotFound          = errors.New("card not found")
	ErrWebhookNotFound       = errors.New("webhook not found")
)

const DefaultPhoneRegion = "AR"

type BoardCredentials struct {
	APIKey   string
	APIToken string
}

// BoardConfig é a configuração de mapeamento de um tenant para um board externo.
// É passada explicitamente para cada chamada de sincronização.
type BoardConfig struct {
	ID          string
	TenantID    string
	APIKey      string
	APIToken    string
	APISecret   string
	BoardID     string
	BoardLongID string

	StatusMap   map[string]LeadStatus
	RegionMap   map[string]Region
	PhoneRegion string

	WebhookID          string
	WebhookCallbackURL string

	LastSyncAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (c *BoardConfig) Credentials() BoardCredentials {
	return BoardCredentials{APIKey: c.APIKey, APIToken: c.APIToken}
}

func (c *BoardConfig) Validate() error {
	var missing []string
	if strings.TrimSpace(c.APIKey) == "" {
		missing = append(missing, "api_key")
	}
	if strings.TrimSpace(c.APIToken) == "" {
		missing = append(missing, "api_token")
	}
	if strings.TrimSpace(c.BoardID) == "" && strings.TrimSpace(c.BoardLongID) == "" {
		missing = append(missing, "board_id")
	}
	if len(missing) > 0 {
		return &ConfigError{TenantID: c.TenantID, Missing: missing}
	}
	return nil
}

// MatchesBoard aceita tanto o shortLink quanto o id canônico do board.
func (c *BoardConfig) MatchesBoard(boardID string) bool {
	if boardID == "" {
		return false
	}
	return boardID == c.BoardID || boardID == c.BoardLongID
}

// BoardRef devolve o identificador preferido para chamadas à API.
func (c *BoardConfig) BoardRef() string {
	if c.BoardLongID != "" {
		return c.BoardLongID
	}
	return c.BoardID
}

func (c *BoardConfig) StatusFor(listID string) LeadStatus {
	if s, ok := c.StatusMap[listID]; ok && s != "" {
		return s
	}
	return LeadStatusNew
}

func (c *BoardConfig) RegionFor(listID string) Region {
	if r, ok := c.RegionMap[listID]; ok && r != "" {
		return r
	}
	return RegionOther
}

func (c *BoardConfig) PhoneRegionOrDefault() string {
	if c.PhoneRegion != "" {
		return c.PhoneRegion
	}
	return DefaultPhoneRegion
}

// ConfigError indica credenciais ou board ausentes: problema de setup, não de card.
type ConfigError struct {
	TenantID string
	Missing  []string
}

func (e *ConfigError) Error() string {
	return "board config incomplete for tenant " + e.TenantID + ": missing " + strings.Join(e.Missing, ", ")
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrBoardConfigIncomplete
}

type BoardConfigRepositoryInterface interface {
	FindByTenant(ctx context.Context, tenantID string) (*BoardConfig, error)
	FindByBoardID(ctx context.Context, boardID string) (*BoardConfig, error)
	FindByWebhookID(ctx context.Context, webhookID string) (*BoardConfig, error)
	ListAll(ctx context.Context) ([]*BoardConfig, error)
	Save(ctx context.Context, cfg *BoardConfig) error
	SaveCanonicalBoardID(ctx context.Context, tenantID, longID string) error
	SaveWebhook(ctx context.Context, tenantID, webhookID, callbackURL string) error
	TouchLastSync(ctx context.Context, tenantID string, at time.Time) error
}

type Label struct {
	ID    string
	Name  string
	Color string
}

// Card é o registro estrito de um card já decodificado na borda do provider.
// IDList vazio significa que o provider não informou a lista.
type Card struct {
	ID               string
	Name             string
	Description      string
	IDList           string
	IDBoard          string
	Labels           []Label
	Closed           bool
	DateLastActivity time.Time
}

type CardSummary struct {
	ID               string
	Name             string
	IDList           string
	Closed           bool
	DateLastActivity time.Time
}

type BoardList struct {
	ID     string
	Name   string
	Closed bool
}

// ListCatalog mapeia list id -> nome.
type ListCatalog map[string]string

func NewListCatalog(lists []BoardList) ListCatalog {
	cat := make(ListCatalog, len(lists))
	for _, l := range lists {
		cat[l.ID] = l.Name
	}
	return cat
}

type Board struct {
	ID        string
	ShortLink string
	Name      string
}

// Webhook é uma assinatura registrada no provider; só id e callback são persistidos.
type Webhook struct {
	ID          string
	Description string
	IDModel     string
	CallbackURL string
	Active      bool
}

type WebhookRegistration struct {
	Description string
	CallbackURL string
	IDModel     string
}

// CardEvent é o envelope mínimo extraído de um callback do provider.
// WebhookID identifica a assinatura que entregou o evento; com dois tenants
// no mesmo board, é ele que separa as entregas.
type CardEvent struct {
	ActionType     string `validate:"required"`
	CardID         string `validate:"required"`
	BoardID        string `validate:"required"`
	BoardShortLink string
	WebhookID      string
}

type Role string

const (
	RoleAgent      Role = "agent"
	RoleAdmin      Role = "admin"
	RoleSuperadmin Role = "superadmin"
)

// User é o usuário corrente resolvido pela camada de autenticação.
type User struct {
	ID       string
	Role     Role
	TenantID string
}

// CanSync informa se o usuário pode disparar sincronização para o tenant.
func (u User) CanSync(tenantID string) bool {
	switch u.Role {
	case RoleSuperadmin:
		return true
	case RoleAdmin:
		return u.TenantID != "" && u.TenantID == tenantID
	default:
		return false
	}
}
