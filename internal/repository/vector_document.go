package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ladlehq/ladle/internal/domain"
	"github.com/ladlehq/ladle/internal/service"
	"github.com/pgvector/pgvector-go"
)

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx so repositories can
// run against the pool or inside a caller-owned transaction.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// VectorDocumentRepository maintains the versioned embedding store: one row
// per embedded recipe version, at most one live row per version, at most
// one live current row per recipe. It holds no in-process state; the
// database is the only serialization point. Upsert issues two statements,
// so callers needing strict atomicity run it through a transaction-bound
// repository (see TxRunner).
type VectorDocumentRepository struct {
	db   dbtx
	dims int
}

func NewVectorDocumentRepository(pool *pgxpool.Pool, dims int) *VectorDocumentRepository {
	return &VectorDocumentRepository{db: pool, dims: dims}
}

func NewVectorDocumentRepositoryWithTx(tx pgx.Tx, dims int) *VectorDocumentRepository {
	return &VectorDocumentRepository{db: tx, dims: dims}
}

// Upsert records an embedding for a version. When doc.IsCurrent is set it
// first demotes every other live row of the recipe, then updates the live
// row for the version in place (preserving id and created_at) or inserts a
// new one. An explicit IsCurrent=false skips the demotion and pre-stages
// the embedding without touching the recipe's current document.
func (r *VectorDocumentRepository) Upsert(ctx context.Context, doc domain.UpsertDocument) (*domain.VectorDocument, error) {
	if err := r.checkDims(doc.Embedding); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	if doc.IsCurrent {
		_, err := r.db.Exec(ctx,
			`UPDATE vector_documents
			 SET is_current = false, updated_at = $1
			 WHERE recipe_id = $2 AND version_id <> $3 AND deleted_at IS NULL AND is_current`,
			now, doc.RecipeID, doc.VersionID,
		)
		if err != nil {
			return nil, domain.NewPersistenceError("demote recipe siblings", err)
		}
	}

	existing, err := r.getLiveByVersion(ctx, doc.VersionID)
	if err != nil && !errors.Is(err, domain.ErrDocumentNotFound) {
		return nil, err
	}

	vec := pgvector.NewVector(doc.Embedding)

	if existing != nil {
		_, err := r.db.Exec(ctx,
			`UPDATE vector_documents
			 SET title = $1, short_id = $2, embedding = $3, is_current = $4, updated_at = $5
			 WHERE id = $6`,
			doc.Title, doc.ShortID, vec, doc.IsCurrent, now, existing.ID,
		)
		if err != nil {
			return nil, domain.NewPersistenceError("update vector document", err)
		}
		existing.Title = doc.Title
		existing.ShortID = doc.ShortID
		existing.Embedding = doc.Embedding
		existing.IsCurrent = doc.IsCurrent
		existing.UpdatedAt = now
		return existing, nil
	}

	var id int64
	err = r.db.QueryRow(ctx,
		`INSERT INTO vector_documents (title, short_id, version_id, recipe_id, embedding, is_current, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		 RETURNING id`,
		doc.Title, doc.ShortID, doc.VersionID, doc.RecipeID, vec, doc.IsCurrent, now,
	).Scan(&id)
	if err != nil {
		return nil, domain.NewPersistenceError("insert vector document", err)
	}

	return &domain.VectorDocument{
		ID:        id,
		Title:     doc.Title,
		ShortID:   doc.ShortID,
		VersionID: doc.VersionID,
		RecipeID:  doc.RecipeID,
		Embedding: doc.Embedding,
		IsCurrent: doc.IsCurrent,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// MarkRecipeNotCurrent demotes every live document of a recipe. Idempotent;
// a recipe with no live documents is not an error.
func (r *VectorDocumentRepository) MarkRecipeNotCurrent(ctx context.Context, recipeID string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE vector_documents
		 SET is_current = false, updated_at = $1
		 WHERE recipe_id = $2 AND deleted_at IS NULL`,
		time.Now().UTC(), recipeID,
	)
	if err != nil {
		return domain.NewPersistenceError("mark recipe not current", err)
	}
	return nil
}

// SoftDeleteByVersion marks the live document for a version as deleted.
// No-op when no live row exists; repeated calls leave the row untouched, so
// deleted_at and updated_at stay at their first-delete values.
func (r *VectorDocumentRepository) SoftDeleteByVersion(ctx context.Context, versionID string) error {
	now := time.Now().UTC()
	_, err := r.db.Exec(ctx,
		`UPDATE vector_documents
		 SET deleted_at = $1, is_current = false, updated_at = $1
		 WHERE version_id = $2 AND deleted_at IS NULL`,
		now, versionID,
	)
	if err != nil {
		return domain.NewPersistenceError("soft delete vector document", err)
	}
	return nil
}

// GetCurrentByRecipe returns the single live current document for a recipe,
// or domain.ErrDocumentNotFound.
func (r *VectorDocumentRepository) GetCurrentByRecipe(ctx context.Context, recipeID string) (*domain.VectorDocument, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, title, short_id, version_id, recipe_id, embedding, is_current, created_at, updated_at, deleted_at
		 FROM vector_documents
		 WHERE recipe_id = $1 AND deleted_at IS NULL AND is_current`,
		recipeID,
	)
	return scanVectorDocument(row)
}

// GetByVersion returns the live document for a version, or
// domain.ErrDocumentNotFound.
func (r *VectorDocumentRepository) GetByVersion(ctx context.Context, versionID string) (*domain.VectorDocument, error) {
	return r.getLiveByVersion(ctx, versionID)
}

// Search runs approximate nearest-neighbor search over the live, current
// documents. Hits are ordered closest first and must exceed the similarity
// threshold strictly. A non-empty ProjectIDs set restricts hits to versions
// whose recipe belongs to one of the projects, skipping soft-deleted
// recipes and projects; an empty set searches globally.
func (r *VectorDocumentRepository) Search(ctx context.Context, queryEmbedding []float32, opts service.SearchOptions) ([]*domain.DocumentMatch, error) {
	if err := r.checkDims(queryEmbedding); err != nil {
		return nil, err
	}

	limit := opts.Limit
	if limit <= 0 {
		return []*domain.DocumentMatch{}, nil
	}
	threshold := opts.Threshold

	vec := pgvector.NewVector(queryEmbedding)

	query := `
		SELECT d.id, d.title, d.short_id, d.version_id, d.recipe_id,
		       1 - (d.embedding <=> $1) AS similarity
		FROM vector_documents d
		WHERE d.deleted_at IS NULL AND d.is_current
		  AND 1 - (d.embedding <=> $1) > $2`
	args := []any{vec, threshold}

	if len(opts.ProjectIDs) > 0 {
		query += `
		  AND EXISTS (
			SELECT 1
			FROM recipe_versions v
			JOIN recipes rc ON rc.id = v.recipe_id AND rc.deleted_at IS NULL
			JOIN projects p ON p.id = rc.project_id AND p.deleted_at IS NULL
			WHERE v.id = d.version_id AND rc.project_id = ANY($3)
		  )`
		args = append(args, opts.ProjectIDs)
		query += `
		ORDER BY d.embedding <=> $1
		LIMIT $4`
	} else {
		query += `
		ORDER BY d.embedding <=> $1
		LIMIT $3`
	}
	args = append(args, limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, domain.NewPersistenceError("search vector documents", err)
	}
	defer rows.Close()

	results := make([]*domain.DocumentMatch, 0, limit)
	for rows.Next() {
		var m domain.DocumentMatch
		if err := rows.Scan(&m.ID, &m.Title, &m.ShortID, &m.VersionID, &m.RecipeID, &m.Similarity); err != nil {
			return nil, domain.NewPersistenceError("scan search result", err)
		}
		results = append(results, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewPersistenceError("search vector documents", err)
	}

	return results, nil
}

// Stats reports row counts across all states.
func (r *VectorDocumentRepository) Stats(ctx context.Context) (*domain.StoreStats, error) {
	var stats domain.StoreStats
	err := r.db.QueryRow(ctx,
		`SELECT count(*),
		        count(*) FILTER (WHERE deleted_at IS NULL AND is_current),
		        count(*) FILTER (WHERE deleted_at IS NOT NULL)
		 FROM vector_documents`,
	).Scan(&stats.Total, &stats.Current, &stats.Deleted)
	if err != nil {
		return nil, domain.NewPersistenceError("count vector documents", err)
	}
	return &stats, nil
}

// Dimensions returns the fixed embedding dimension the store accepts.
func (r *VectorDocumentRepository) Dimensions() int {
	return r.dims
}

func (r *VectorDocumentRepository) checkDims(embedding []float32) error {
	if len(embedding) != r.dims {
		return domain.NewDimensionMismatchError(r.dims, len(embedding))
	}
	return nil
}

func (r *VectorDocumentRepository) getLiveByVersion(ctx context.Context, versionID string) (*domain.VectorDocument, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, title, short_id, version_id, recipe_id, embedding, is_current, created_at, updated_at, deleted_at
		 FROM vector_documents
		 WHERE version_id = $1 AND deleted_at IS NULL`,
		versionID,
	)
	return scanVectorDocument(row)
}

func scanVectorDocument(row pgx.Row) (*domain.VectorDocument, error) {
	var d domain.VectorDocument
	var vec pgvector.Vector
	err := row.Scan(&d.ID, &d.Title, &d.ShortID, &d.VersionID, &d.RecipeID, &vec, &d.IsCurrent, &d.CreatedAt, &d.UpdatedAt, &d.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, domain.NewPersistenceError("load vector document", err)
	}
	d.Embedding = vec.Slice()
	return &d, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
