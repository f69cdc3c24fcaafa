package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/saturnino-fabrica-de-software/liveid/internal/domain"
)

type GalleryRepository struct {
	pool PgxPool
}

func NewGalleryRepository(pool PgxPool) *GalleryRepository {
	return &GalleryRepository{pool: pool}
}

// ReplaceGallery atomically swaps the owner's gallery: delete-then-insert in
// a single transaction, so a mid-failure never leaves an empty or
// half-old/half-new gallery.
func (r *GalleryRepository) ReplaceGallery(ctx context.Context, ownerID uuid.UUID, records []domain.EmbeddingRecord) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace gallery: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `DELETE FROM embeddings WHERE owner_id = $1`, ownerID); err != nil {
		return fmt.Errorf("delete gallery: %w", err)
	}

	insert := `
		INSERT INTO embeddings (id, owner_id, embedding, sample_type, quality_score, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`

	for i := range records {
		record := &records[i]
		if record.ID == uuid.Nil {
			record.ID = uuid.New()
		}
		record.OwnerID = ownerID

		if _, err := tx.Exec(ctx, insert,
			record.ID,
			record.OwnerID,
			toVector(record.Embedding),
			record.Type,
			record.QualityScore,
		); err != nil {
			return fmt.Errorf("insert embedding %s: %w", record.Type, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace gallery: %w", err)
	}

	return nil
}

// ListAll returns every enrolled record gallery-wide (1:N identification)
func (r *GalleryRepository) ListAll(ctx context.Context) ([]domain.EmbeddingRecord, error) {
	query := `
		SELECT id, owner_id, embedding, sample_type, quality_score, created_at
		FROM embeddings
		ORDER BY created_at
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list embeddings: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// ListByOwner returns one owner's gallery (1:1 verification)
func (r *GalleryRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.EmbeddingRecord, error) {
	query := `
		SELECT id, owner_id, embedding, sample_type, quality_score, created_at
		FROM embeddings
		WHERE owner_id = $1
		ORDER BY created_at
	`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list embeddings by owner: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// DeleteGallery removes the owner's records, returning how many were deleted
func (r *GalleryRepository) DeleteGallery(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM embeddings WHERE owner_id = $1`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("delete gallery: %w", err)
	}

	return result.RowsAffected(), nil
}

// CountByOwner returns the number of enrolled records for an owner
func (r *GalleryRepository) CountByOwner(ctx context.Context, ownerID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM embeddings WHERE owner_id = $1`, ownerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count embeddings: %w", err)
	}

	return count, nil
}

func scanRecords(rows pgx.Rows) ([]domain.EmbeddingRecord, error) {
	var records []domain.EmbeddingRecord

	for rows.Next() {
		var record domain.EmbeddingRecord
		var embedding *pgvector.Vector

		if err := rows.Scan(
			&record.ID,
			&record.OwnerID,
			&embedding,
			&record.Type,
			&record.QualityScore,
			&record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}

		record.Embedding = fromVector(embedding)
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate embeddings: %w", err)
	}

	return records, nil
}

func toVector(embedding []float64) *pgvector.Vector {
	if len(embedding) == 0 {
		return nil
	}

	floats := make([]float32, len(embedding))
	for i, v := range embedding {
		floats[i] = float32(v)
	}
	vec := pgvector.NewVector(floats)
	return &vec
}

func fromVector(vec *pgvector.Vector) []float64 {
	if vec == nil || vec.Slice() == nil {
		return nil
	}

	out := make([]float64, len(vec.Slice()))
	for i, v := range vec.Slice() {
		out[i] = float64(v)
	}
	return out
}
