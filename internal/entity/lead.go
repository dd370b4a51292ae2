package entity

import (
	"context"
	"errors"
	"time"
)

var (
	ErrLeadNotFound = errors.New("lead not found")
)

// LeadSource identifica de onde o lead veio. A tupla (tenant, source, external id)
// é a chave de idempotência da sincronização.
type LeadSource string

const LeadSourceTrello LeadSource = "TRELLO"

type LeadStatus string

const (
	LeadStatusNew        LeadStatus = "NEW"
	LeadStatusContacted  LeadStatus = "CONTACTED"
	LeadStatusQuoted     LeadStatus = "QUOTED"
	LeadStatusNegotiated LeadStatus = "NEGOTIATING"
	LeadStatusWon        LeadStatus = "WON"
	LeadStatusLost       LeadStatus = "LOST"
)

type Region string

const RegionOther Region = "OTHER"

// NoDestination é o valor sentinela quando o card não indica destino.
const NoDestination = "Sin destino"

// LeadKey é a chave natural de um lead sincronizado.
type LeadKey struct {
	TenantID   string
	Source     LeadSource
	ExternalID string
}

// LeadFields são os campos derivados do card; nunca contêm identidade.
type LeadFields struct {
	ListID            string     `json:"list_id"`
	ListName          string     `json:"list_name,omitempty"`
	Status            LeadStatus `json:"status"`
	Region            Region     `json:"region"`
	Destination       string     `json:"destination"`
	ContactName       string     `json:"contact_name,omitempty"`
	ContactPhone      string     `json:"contact_phone,omitempty"`
	ContactEmail      string     `json:"contact_email,omitempty"`
	SocialHandle      string     `json:"social_handle,omitempty"`
	Notes             string     `json:"notes,omitempty"`
	ExternalUpdatedAt *time.Time `json:"external_updated_at,omitempty"`
}

type Lead struct {
	ID         string     `json:"id"`
	TenantID   string     `json:"tenant_id"`
	Source     LeadSource `json:"source"`
	ExternalID string     `json:"external_id"`
	LeadFields
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (l *Lead) Key() LeadKey {
	return LeadKey{TenantID: l.TenantID, Source: l.Source, ExternalID: l.ExternalID}
}

// MergeListName resolve o nome desnormalizado da lista num update: um nome novo
// vence; sem nome novo, o anterior só sobrevive se a lista não mudou.
func MergeListName(prevListID, prevName, nextListID, nextName string) string {
	if nextName != "" {
		return nextName
	}
	if prevListID == nextListID {
		return prevName
	}
	return ""
}

type UpsertResult struct {
	Lead    *Lead
	Created bool
}

type DeleteResult struct {
	LeadID  string
	Deleted bool
}

// DependentKind nomeia as tabelas que referenciam um lead.
type DependentKind string

const (
	DependentDocument       DependentKind = "documents"
	DependentAlert          DependentKind = "alerts"
	DependentQuotation      DependentKind = "quotations"
	DependentCommunication  DependentKind = "communications"
	DependentLedgerMovement DependentKind = "ledger_movements"
	DependentOperation      DependentKind = "operations"
)

// CascadeKinds são apagados junto com o lead.
var CascadeKinds = []DependentKind{
	DependentDocument,
	DependentAlert,
	DependentQuotation,
	DependentCommunication,
}

// DetachKinds sobrevivem ao lead: só a FK é anulada.
var DetachKinds = []DependentKind{
	DependentLedgerMovement,
	DependentOperation,
}

// LeadRepositoryInterface é o gateway de upsert de leads. Toda operação filtra por
// tenant no próprio predicado.
type LeadRepositoryInterface interface {
	Upsert(ctx context.Context, key LeadKey, fields LeadFields) (UpsertResult, error)
	DeleteByExternalID(ctx context.Context, key LeadKey) (DeleteResult, error)
	FindByExternalID(ctx context.Context, key LeadKey) (*Lead, error)
	ListExternalIDs(ctx context.Context, tenantID string, source LeadSource) ([]string, error)
	ListMissingListName(ctx context.Context, tenantID string, source LeadSource) ([]*Lead, error)
	SetListName(ctx context.Context, tenantID, leadID, listName string) error
}

type LeadAction string

const (
	LeadActionCreated LeadAction = "lead.created"
	LeadActionUpdated LeadAction = "lead.updated"
	LeadActionDeleted LeadAction = "lead.deleted"
)

// LeadEvent é publicado para módulos downstream (alertas, mensagens).
type LeadEvent struct {
	TenantID   string     `json:"tenant_id"`
	LeadID     string     `json:"lead_id"`
	ExternalID string     `json:"external_id"`
	Source     LeadSource `json:"source"`
	Action     LeadAction `json:"action"`
	Status     LeadStatus `json:"status,omitempty"`
	Region     Region     `json:"region,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}
