package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/xavierca1/agency-backoffice/internal/entity"
)

type LeadRepository struct {
	DB *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{DB: db}
}

const leadColumns = `id, tenant_id, source, external_id, list_id, list_name, status, region,
	destination, contact_name, contact_phone, contact_email, social_handle, notes,
	external_updated_at, created_at, updated_at`

// Upsert é idempotente pela constraint (tenant_id, source, external_id); o
// tenant faz parte da chave de conflito, então um card de outro tenant nunca
// atinge esta linha.
func (r *LeadRepository) Upsert(ctx context.Context, key entity.LeadKey, f entity.LeadFields) (entity.UpsertResult, error) {
	query := `
		INSERT INTO leads (
			id, tenant_id, source, external_id, list_id, list_name, status, region,
			destination, contact_name, contact_phone, contact_email, social_handle, notes,
			external_updated_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW(), NOW())
		ON CONFLICT (tenant_id, source, external_id)
		DO UPDATE SET
			list_name = CASE
				WHEN EXCLUDED.list_name <> '' THEN EXCLUDED.list_name
				WHEN leads.list_id = EXCLUDED.list_id THEN leads.list_name
				ELSE ''
			END,
			list_id = EXCLUDED.list_id,
			status = EXCLUDED.status,
			region = EXCLUDED.region,
			destination = EXCLUDED.destination,
			contact_name = EXCLUDED.contact_name,
			contact_phone = EXCLUDED.contact_phone,
			contact_email = EXCLUDED.contact_email,
			social_handle = EXCLUDED.social_handle,
			notes = EXCLUDED.notes,
			external_updated_at = EXCLUDED.external_updated_at,
			updated_at = NOW()
		RETURNING ` + leadColumns + `, (xmax = 0) AS inserted
	`

	lead := &entity.Lead{}
	var inserted bool
	args := []any{
		uuid.NewString(),
		key.TenantID,
		string(key.Source),
		key.ExternalID,
		f.ListID,
		f.ListName,
		string(f.Status),
		string(f.Region),
		f.Destination,
		f.ContactName,
		f.ContactPhone,
		f.ContactEmail,
		f.SocialHandle,
		f.Notes,
		f.ExternalUpdatedAt,
	}
	dest := append(scanTargets(lead), &inserted)
	if err := r.DB.QueryRowContext(ctx, query, args...).Scan(dest...); err != nil {
		return entity.UpsertResult{}, fmt.Errorf("erro ao fazer upsert do lead %s: %w", key.ExternalID, err)
	}
	return entity.UpsertResult{Lead: lead, Created: inserted}, nil
}

// DeleteByExternalID apaga o lead e, na mesma transação, os dependentes
// exclusivos; dependentes que sobrevivem ficam com lead_id NULL.
func (r *LeadRepository) DeleteByExternalID(ctx context.Context, key entity.LeadKey) (entity.DeleteResult, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return entity.DeleteResult{}, err
	}
	defer tx.Rollback()

	var leadID string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM leads WHERE tenant_id = $1 AND source = $2 AND external_id = $3 FOR UPDATE`,
		key.TenantID, string(key.Source), key.ExternalID,
	).Scan(&leadID)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.DeleteResult{}, nil
	}
	if err != nil {
		return entity.DeleteResult{}, fmt.Errorf("erro ao buscar lead para remoção: %w", err)
	}

	for _, kind := range entity.CascadeKinds {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+string(kind)+` WHERE lead_id = $1`, leadID); err != nil {
			return entity.DeleteResult{}, fmt.Errorf("erro ao remover %s do lead: %w", kind, err)
		}
	}
	for _, kind := range entity.DetachKinds {
		if _, err := tx.ExecContext(ctx, `UPDATE `+string(kind)+` SET lead_id = NULL WHERE lead_id = $1`, leadID); err != nil {
			return entity.DeleteResult{}, fmt.Errorf("erro ao desvincular %s do lead: %w", kind, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM leads WHERE id = $1 AND tenant_id = $2`, leadID, key.TenantID,
	); err != nil {
		return entity.DeleteResult{}, fmt.Errorf("erro ao remover lead: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return entity.DeleteResult{}, err
	}
	return entity.DeleteResult{LeadID: leadID, Deleted: true}, nil
}

func (r *LeadRepository) FindByExternalID(ctx context.Context, key entity.LeadKey) (*entity.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE tenant_id = $1 AND source = $2 AND external_id = $3`

	lead := &entity.Lead{}
	err := r.DB.QueryRowContext(ctx, query, key.TenantID, string(key.Source), key.ExternalID).Scan(scanTargets(lead)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrLeadNotFound
	}
	if err != nil {
		return nil, err
	}
	return lead, nil
}

func (r *LeadRepository) ListExternalIDs(ctx context.Context, tenantID string, source entity.LeadSource) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT external_id FROM leads WHERE tenant_id = $1 AND source = $2 ORDER BY external_id`,
		tenantID, string(source),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *LeadRepository) ListMissingListName(ctx context.Context, tenantID string, source entity.LeadSource) ([]*entity.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads
		WHERE tenant_id = $1 AND source = $2 AND list_id <> '' AND list_name = ''
		ORDER BY id`

	rows, err := r.DB.QueryContext(ctx, query, tenantID, string(source))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leads []*entity.Lead
	for rows.Next() {
		lead := &entity.Lead{}
		if err := rows.Scan(scanTargets(lead)...); err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

func (r *LeadRepository) SetListName(ctx context.Context, tenantID, leadID, listName string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE leads SET list_name = $1, updated_at = NOW() WHERE id = $2 AND tenant_id = $3`,
		listName, leadID, tenantID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return entity.ErrLeadNotFound
	}
	return nil
}

func scanTargets(l *entity.Lead) []any {
	return []any{
		&l.ID,
		&l.TenantID,
		&l.Source,
		&l.ExternalID,
		&l.ListID,
		&l.ListName,
		&l.Status,
		&l.Region,
		&l.Destination,
		&l.ContactName,
		&l.ContactPhone,
		&l.ContactEmail,
		&l.SocialHandle,
		&l.Notes,
		&l.ExternalUpdatedAt,
		&l.CreatedAt,
		&l.UpdatedAt,
	}
}
