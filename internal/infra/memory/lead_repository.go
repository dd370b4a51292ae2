package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xavierca1/agency-backoffice/internal/entity"
)

// Dependent é um registro de outro módulo que referencia um lead.
type Dependent struct {
	ID     string
	Kind   entity.DependentKind
	LeadID *string
}

// LeadRepository guarda leads em memória com as mesmas garantias do Postgres:
// unicidade por (tenant, source, external id) e cascade no delete.
type LeadRepository struct {
	mu         sync.RWMutex
	leads      map[string]*entity.Lead
	byKey      map[entity.LeadKey]string
	dependents map[string]*Dependent
	now        func() time.Time
}

func NewLeadRepository() *LeadRepository {
	return &LeadRepository{
		leads:      make(map[string]*entity.Lead),
		byKey:      make(map[entity.LeadKey]string),
		dependents: make(map[string]*Dependent),
		now:        time.Now,
	}
}

func (r *LeadRepository) Upsert(_ context.Context, key entity.LeadKey, fields entity.LeadFields) (entity.UpsertResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	if id, ok := r.byKey[key]; ok {
		lead := r.leads[id]
		fields.ListName = entity.MergeListName(lead.ListID, lead.ListName, fields.ListID, fields.ListName)
		lead.LeadFields = fields
		lead.UpdatedAt = now
		return entity.UpsertResult{Lead: copyLead(lead), Created: false}, nil
	}

	lead := &entity.Lead{
		ID:         uuid.NewString(),
		TenantID:   key.TenantID,
		Source:     key.Source,
		ExternalID: key.ExternalID,
		LeadFields: fields,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	r.leads[lead.ID] = lead
	r.byKey[key] = lead.ID
	return entity.UpsertResult{Lead: copyLead(lead), Created: true}, nil
}

func (r *LeadRepository) DeleteByExternalID(_ context.Context, key entity.LeadKey) (entity.DeleteResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byKey[key]
	if !ok {
		return entity.DeleteResult{}, nil
	}

	for depID, dep := range r.dependents {
		if dep.LeadID == nil || *dep.LeadID != id {
			continue
		}
		if isCascade(dep.Kind) {
			delete(r.dependents, depID)
		} else {
			dep.LeadID = nil
		}
	}
	delete(r.leads, id)
	delete(r.byKey, key)
	return entity.DeleteResult{LeadID: id, Deleted: true}, nil
}

func (r *LeadRepository) FindByExternalID(_ context.Context, key entity.LeadKey) (*entity.Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byKey[key]
	if !ok {
		return nil, entity.ErrLeadNotFound
	}
	return copyLead(r.leads[id]), nil
}

func (r *LeadRepository) ListExternalIDs(_ context.Context, tenantID string, source entity.LeadSource) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []string
	for key := range r.byKey {
		if key.TenantID == tenantID && key.Source == source {
			ids = append(ids, key.ExternalID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *LeadRepository) ListMissingListName(_ context.Context, tenantID string, source entity.LeadSource) ([]*entity.Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*entity.Lead
	for _, l := range r.leads {
		if l.TenantID == tenantID && l.Source == source && l.ListID != "" && l.ListName == "" {
			out = append(out, copyLead(l))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *LeadRepository) SetListName(_ context.Context, tenantID, leadID, listName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	lead, ok := r.leads[leadID]
	if !ok || lead.TenantID != tenantID {
		return entity.ErrLeadNotFound
	}
	lead.ListName = listName
	lead.UpdatedAt = r.now().UTC()
	return nil
}

// Count devolve o total de leads guardados, de todos os tenants.
func (r *LeadRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.leads)
}

// AttachDependent registra um dependente apontando para o lead.
func (r *LeadRepository) AttachDependent(kind entity.DependentKind, leadID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.NewString()
	lead := leadID
	r.dependents[id] = &Dependent{ID: id, Kind: kind, LeadID: &lead}
	return id
}

// Dependent devolve uma cópia do dependente, ou false se foi apagado.
func (r *LeadRepository) Dependent(id string) (Dependent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dep, ok := r.dependents[id]
	if !ok {
		return Dependent{}, false
	}
	out := *dep
	if dep.LeadID != nil {
		leadID := *dep.LeadID
		out.LeadID = &leadID
	}
	return out, true
}

func isCascade(kind entity.DependentKind) bool {
	for _, k := range entity.CascadeKinds {
		if k == kind {
			return true
		}
	}
	return false
}

func copyLead(l *entity.Lead) *entity.Lead {
	out := *l
	if l.ExternalUpdatedAt != nil {
		at := *l.ExternalUpdatedAt
		out.ExternalUpdatedAt = &at
	}
	return &out
}
