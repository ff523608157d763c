package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ladlehq/ladle/internal/domain"
	"github.com/ladlehq/ladle/internal/pagination"
	"github.com/ladlehq/ladle/internal/service"
)

// RecipeRepository persists recipes and their immutable versions. It is
// thin glue around the membership relation the vector store's scoped
// search joins against.
type RecipeRepository struct {
	db dbtx
}

func NewRecipeRepository(pool *pgxpool.Pool) *RecipeRepository {
	return &RecipeRepository{db: pool}
}

func NewRecipeRepositoryWithTx(tx pgx.Tx) *RecipeRepository {
	return &RecipeRepository{db: tx}
}

func (r *RecipeRepository) Create(ctx context.Context, rec *domain.Recipe) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO recipes (id, project_id, short_id, title, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, nullableString(rec.ProjectID), rec.ShortID, rec.Title, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return domain.NewPersistenceError("insert recipe", err)
	}
	return nil
}

func (r *RecipeRepository) GetByID(ctx context.Context, id string) (*domain.Recipe, error) {
	var rec domain.Recipe
	var projectID *string
	err := r.db.QueryRow(ctx,
		`SELECT id, project_id, short_id, title, photo_key, created_at, updated_at, deleted_at
		 FROM recipes WHERE id = $1 AND deleted_at IS NULL`,
		id,
	).Scan(&rec.ID, &projectID, &rec.ShortID, &rec.Title, &rec.PhotoKey, &rec.CreatedAt, &rec.UpdatedAt, &rec.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecipeNotFound
		}
		return nil, domain.NewPersistenceError("load recipe", err)
	}
	if projectID != nil {
		rec.ProjectID = *projectID
	}
	return &rec, nil
}

func (r *RecipeRepository) ListWithCursor(ctx context.Context, projectID string, cursor *pagination.Cursor, limit int) (*service.RecipePageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT id, project_id, short_id, title, photo_key, created_at, updated_at, deleted_at
	          FROM recipes WHERE deleted_at IS NULL`
	args := []any{}

	if projectID != "" {
		args = append(args, projectID)
		query += fmt.Sprintf(" AND project_id = $%d", len(args))
	}
	if cursor != nil {
		args = append(args, cursor.Timestamp, cursor.LastID)
		query += fmt.Sprintf(" AND (updated_at, id) < ($%d, $%d)", len(args)-1, len(args))
	}
	query += " ORDER BY updated_at DESC, id DESC"
	args = append(args, limit+1)
	query += fmt.Sprintf(" LIMIT $%d", len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, domain.NewPersistenceError("list recipes", err)
	}
	defer rows.Close()

	items, err := scanRecipeRows(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		last := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(last.ID, last.UpdatedAt)
	}

	return &service.RecipePageResult{Items: items, NextCursor: nextCursor, HasMore: hasMore}, nil
}

// UpdateTitle sets the recipe's display title, normally to match its
// newest version.
func (r *RecipeRepository) UpdateTitle(ctx context.Context, id, title string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE recipes SET title = $1, updated_at = $2 WHERE id = $3 AND deleted_at IS NULL`,
		title, time.Now().UTC(), id,
	)
	if err != nil {
		return domain.NewPersistenceError("update recipe title", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrRecipeNotFound
	}
	return nil
}

// UpdatePhotoKey sets the storage key for a recipe's photo.
func (r *RecipeRepository) UpdatePhotoKey(ctx context.Context, id, photoKey string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE recipes SET photo_key = $1, updated_at = $2 WHERE id = $3 AND deleted_at IS NULL`,
		photoKey, time.Now().UTC(), id,
	)
	if err != nil {
		return domain.NewPersistenceError("update recipe photo", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrRecipeNotFound
	}
	return nil
}

// SoftDelete marks a recipe deleted. Returns domain.ErrRecipeNotFound when
// no live recipe matches.
func (r *RecipeRepository) SoftDelete(ctx context.Context, id string) error {
	now := time.Now().UTC()
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE recipes SET deleted_at = $1, updated_at = $1 WHERE id = $2 AND deleted_at IS NULL`,
		now, id,
	)
	if err != nil {
		return domain.NewPersistenceError("soft delete recipe", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrRecipeNotFound
	}
	return nil
}

func (r *RecipeRepository) CreateVersion(ctx context.Context, v *domain.RecipeVersion) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO recipe_versions (id, recipe_id, version_number, title, body_md, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		v.ID, v.RecipeID, v.VersionNumber, v.Title, v.BodyMD, v.CreatedAt,
	)
	if err != nil {
		return domain.NewPersistenceError("insert recipe version", err)
	}
	return nil
}

func (r *RecipeRepository) GetVersion(ctx context.Context, versionID string) (*domain.RecipeVersion, error) {
	var v domain.RecipeVersion
	err := r.db.QueryRow(ctx,
		`SELECT id, recipe_id, version_number, title, body_md, created_at, deleted_at
		 FROM recipe_versions WHERE id = $1 AND deleted_at IS NULL`,
		versionID,
	).Scan(&v.ID, &v.RecipeID, &v.VersionNumber, &v.Title, &v.BodyMD, &v.CreatedAt, &v.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrVersionNotFound
		}
		return nil, domain.NewPersistenceError("load recipe version", err)
	}
	return &v, nil
}

func (r *RecipeRepository) GetVersions(ctx context.Context, recipeID string) ([]*domain.RecipeVersion, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, recipe_id, version_number, title, body_md, created_at, deleted_at
		 FROM recipe_versions
		 WHERE recipe_id = $1 AND deleted_at IS NULL
		 ORDER BY version_number DESC`,
		recipeID,
	)
	if err != nil {
		return nil, domain.NewPersistenceError("list recipe versions", err)
	}
	defer rows.Close()

	var versions []*domain.RecipeVersion
	for rows.Next() {
		var v domain.RecipeVersion
		if err := rows.Scan(&v.ID, &v.RecipeID, &v.VersionNumber, &v.Title, &v.BodyMD, &v.CreatedAt, &v.DeletedAt); err != nil {
			return nil, domain.NewPersistenceError("scan recipe version", err)
		}
		versions = append(versions, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewPersistenceError("list recipe versions", err)
	}
	return versions, nil
}

func (r *RecipeRepository) GetLatestVersion(ctx context.Context, recipeID string) (*domain.RecipeVersion, error) {
	var v domain.RecipeVersion
	err := r.db.QueryRow(ctx,
		`SELECT id, recipe_id, version_number, title, body_md, created_at, deleted_at
		 FROM recipe_versions
		 WHERE recipe_id = $1 AND deleted_at IS NULL
		 ORDER BY version_number DESC LIMIT 1`,
		recipeID,
	).Scan(&v.ID, &v.RecipeID, &v.VersionNumber, &v.Title, &v.BodyMD, &v.CreatedAt, &v.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrVersionNotFound
		}
		return nil, domain.NewPersistenceError("load latest recipe version", err)
	}
	return &v, nil
}

// SoftDeleteVersion marks a version deleted. No-op when no live version
// matches; deleting an already-deleted version is a valid outcome.
func (r *RecipeRepository) SoftDeleteVersion(ctx context.Context, versionID string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE recipe_versions SET deleted_at = $1 WHERE id = $2 AND deleted_at IS NULL`,
		time.Now().UTC(), versionID,
	)
	if err != nil {
		return domain.NewPersistenceError("soft delete recipe version", err)
	}
	return nil
}

func scanRecipeRows(rows pgx.Rows) ([]*domain.Recipe, error) {
	var results []*domain.Recipe
	for rows.Next() {
		var rec domain.Recipe
		var projectID *string
		if err := rows.Scan(&rec.ID, &projectID, &rec.ShortID, &rec.Title, &rec.PhotoKey, &rec.CreatedAt, &rec.UpdatedAt, &rec.DeletedAt); err != nil {
			return nil, domain.NewPersistenceError("scan recipe", err)
		}
		if projectID != nil {
			rec.ProjectID = *projectID
		}
		results = append(results, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewPersistenceError("list recipes", err)
	}
	return results, nil
}
