package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/V4T54L/compliance-gate/internal/domain"
)

// HACTRepository implements domain.HACTExporter over pre-shaped HACT documents
// maintained by the platform's export pipeline.
type HACTRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewHACTRepository creates a new PostgreSQL HACT export collaborator.
func NewHACTRepository(db *sql.DB, logger *slog.Logger) *HACTRepository {
	return &HACTRepository{db: db, logger: logger}
}

func (r *HACTRepository) ExportProperty(ctx context.Context, id string) (*domain.HACTRecord, error) {
	return r.export(ctx, domain.EntityProperty, id)
}

func (r *HACTRepository) ExportTenant(ctx context.Context, id string) (*domain.HACTRecord, error) {
	return r.export(ctx, domain.EntityTenant, id)
}

func (r *HACTRepository) ExportCase(ctx context.Context, id string) (*domain.HACTRecord, error) {
	return r.export(ctx, domain.EntityCase, id)
}

func (r *HACTRepository) export(ctx context.Context, entity domain.EntityType, id string) (*domain.HACTRecord, error) {
	var doc []byte
	query := `SELECT document FROM hact_documents WHERE entity_type = $1 AND entity_id = $2`
	err := r.db.QueryRowContext(ctx, query, string(entity), id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query hact document: %w", err)
	}
	if !json.Valid(doc) {
		r.logger.Error("stored HACT document is not valid JSON", "entity_type", entity, "entity_id", id)
		return nil, fmt.Errorf("hact document %s/%s is not valid JSON", entity, id)
	}

	return &domain.HACTRecord{
		EntityType: entity,
		ID:         id,
		Document:   json.RawMessage(doc),
	}, nil
}
