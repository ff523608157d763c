//go:build integration

package repository

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ladlehq/ladle/internal/domain"
	"github.com/ladlehq/ladle/internal/service"
	"github.com/ladlehq/ladle/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDims = 1536

// testEmbedding builds a unit vector whose cosine similarity against
// queryEmbedding() is sim.
func testEmbedding(sim float64) []float32 {
	e := make([]float32, testDims)
	e[0] = float32(sim)
	e[1] = float32(math.Sqrt(1 - sim*sim))
	return e
}

func queryEmbedding() []float32 {
	e := make([]float32, testDims)
	e[0] = 1
	return e
}

func seedProjectAndRecipe(ctx context.Context, t *testing.T, pool *pgxpool.Pool, shortID string) (*domain.Project, *domain.Recipe, *domain.RecipeVersion) {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)

	projectRepo := NewProjectRepository(pool)
	project := domain.NewProject(uuid.NewString(), "Project "+shortID, now)
	require.NoError(t, projectRepo.Create(ctx, project))

	recipeRepo := NewRecipeRepository(pool)
	recipe := domain.NewRecipe(uuid.NewString(), project.ID, shortID, "Recipe "+shortID, now)
	require.NoError(t, recipeRepo.Create(ctx, recipe))

	version := domain.NewRecipeVersion(uuid.NewString(), recipe.ID, 1, recipe.Title, "# body", now)
	require.NoError(t, recipeRepo.CreateVersion(ctx, version))

	return project, recipe, version
}

func TestVectorDocumentRepository_Upsert(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewVectorDocumentRepository(pool, testDims)

	recipeID := uuid.NewString()
	versionID := uuid.NewString()

	doc, err := repo.Upsert(ctx, domain.NewUpsertDocument("Tomato Soup", "soup", versionID, recipeID, testEmbedding(0.9)))
	require.NoError(t, err)
	assert.NotZero(t, doc.ID)
	assert.Equal(t, "Tomato Soup", doc.Title)
	assert.Equal(t, versionID, doc.VersionID)
	assert.Equal(t, recipeID, doc.RecipeID)
	assert.True(t, doc.IsCurrent)

	// Re-embedding the same version updates the live row in place.
	updated, err := repo.Upsert(ctx, domain.NewUpsertDocument("Tomato Soup v2", "soup", versionID, recipeID, testEmbedding(0.8)))
	require.NoError(t, err)
	assert.Equal(t, doc.ID, updated.ID)
	assert.Equal(t, "Tomato Soup v2", updated.Title)
	assert.Equal(t, doc.CreatedAt, updated.CreatedAt)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Total)
}

func TestVectorDocumentRepository_Upsert_SingleCurrentPerRecipe(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewVectorDocumentRepository(pool, testDims)

	recipeID := uuid.NewString()
	v1 := uuid.NewString()
	v2 := uuid.NewString()

	d1, err := repo.Upsert(ctx, domain.NewUpsertDocument("Soup v1", "soup", v1, recipeID, testEmbedding(0.9)))
	require.NoError(t, err)

	// Promoting v2 demotes v1.
	_, err = repo.Upsert(ctx, domain.NewUpsertDocument("Soup v2", "soup", v2, recipeID, testEmbedding(0.8)))
	require.NoError(t, err)

	current, err := repo.GetCurrentByRecipe(ctx, recipeID)
	require.NoError(t, err)
	assert.Equal(t, v2, current.VersionID)

	demoted, err := repo.GetByVersion(ctx, v1)
	require.NoError(t, err)
	assert.False(t, demoted.IsCurrent)

	// Re-promoting v1 reuses its row and demotes v2.
	repromoted, err := repo.Upsert(ctx, domain.NewUpsertDocument("Soup v1", "soup", v1, recipeID, testEmbedding(0.9)))
	require.NoError(t, err)
	assert.Equal(t, d1.ID, repromoted.ID)
	assert.True(t, repromoted.IsCurrent)

	current, err = repo.GetCurrentByRecipe(ctx, recipeID)
	require.NoError(t, err)
	assert.Equal(t, v1, current.VersionID)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.Current)
}

func TestVectorDocumentRepository_Upsert_Staged(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewVectorDocumentRepository(pool, testDims)

	recipeID := uuid.NewString()
	v1 := uuid.NewString()
	v2 := uuid.NewString()

	_, err := repo.Upsert(ctx, domain.NewUpsertDocument("Soup v1", "soup", v1, recipeID, testEmbedding(0.9)))
	require.NoError(t, err)

	// Staging v2 with IsCurrent=false leaves v1 current.
	staged := domain.NewUpsertDocument("Soup v2", "soup", v2, recipeID, testEmbedding(0.8))
	staged.IsCurrent = false
	_, err = repo.Upsert(ctx, staged)
	require.NoError(t, err)

	current, err := repo.GetCurrentByRecipe(ctx, recipeID)
	require.NoError(t, err)
	assert.Equal(t, v1, current.VersionID)

	stagedDoc, err := repo.GetByVersion(ctx, v2)
	require.NoError(t, err)
	assert.False(t, stagedDoc.IsCurrent)
}

func TestVectorDocumentRepository_Upsert_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewVectorDocumentRepository(pool, testDims)

	_, err := repo.Upsert(ctx, domain.NewUpsertDocument("Soup", "soup", uuid.NewString(), uuid.NewString(), make([]float32, 768)))
	require.Error(t, err)
	assert.True(t, domain.IsDimensionMismatch(err))

	_, err = repo.Search(ctx, make([]float32, 3), service.SearchOptions{Limit: 10, Threshold: 0.3})
	require.Error(t, err)
	assert.True(t, domain.IsDimensionMismatch(err))
}

func TestVectorDocumentRepository_SoftDeleteByVersion_Idempotent(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewVectorDocumentRepository(pool, testDims)

	recipeID := uuid.NewString()
	versionID := uuid.NewString()

	doc, err := repo.Upsert(ctx, domain.NewUpsertDocument("Soup", "soup", versionID, recipeID, testEmbedding(0.9)))
	require.NoError(t, err)

	require.NoError(t, repo.SoftDeleteByVersion(ctx, versionID))

	_, err = repo.GetByVersion(ctx, versionID)
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
	_, err = repo.GetCurrentByRecipe(ctx, recipeID)
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)

	var deletedAt, updatedAt time.Time
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT deleted_at, updated_at FROM vector_documents WHERE id = $1`, doc.ID,
	).Scan(&deletedAt, &updatedAt))

	// Second delete is a no-op and leaves the tombstone untouched.
	require.NoError(t, repo.SoftDeleteByVersion(ctx, versionID))

	var deletedAt2, updatedAt2 time.Time
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT deleted_at, updated_at FROM vector_documents WHERE id = $1`, doc.ID,
	).Scan(&deletedAt2, &updatedAt2))
	assert.Equal(t, deletedAt, deletedAt2)
	assert.Equal(t, updatedAt, updatedAt2)

	// Re-embedding the version after deletion creates a fresh row.
	fresh, err := repo.Upsert(ctx, domain.NewUpsertDocument("Soup", "soup", versionID, recipeID, testEmbedding(0.9)))
	require.NoError(t, err)
	assert.NotEqual(t, doc.ID, fresh.ID)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.Current)
	assert.Equal(t, int64(1), stats.Deleted)
}

func TestVectorDocumentRepository_Search(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewVectorDocumentRepository(pool, testDims)

	near := uuid.NewString()
	mid := uuid.NewString()
	far := uuid.NewString()

	_, err := repo.Upsert(ctx, domain.NewUpsertDocument("Near", "near", near, uuid.NewString(), testEmbedding(0.9)))
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, domain.NewUpsertDocument("Mid", "mid", mid, uuid.NewString(), testEmbedding(0.5)))
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, domain.NewUpsertDocument("Far", "far", far, uuid.NewString(), testEmbedding(0.2)))
	require.NoError(t, err)

	t.Run("orders by similarity and applies threshold strictly", func(t *testing.T) {
		results, err := repo.Search(ctx, queryEmbedding(), service.SearchOptions{Limit: 10, Threshold: 0.3})
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "Near", results[0].Title)
		assert.Equal(t, "Mid", results[1].Title)
		assert.InDelta(t, 0.9, results[0].Similarity, 0.01)
		assert.InDelta(t, 0.5, results[1].Similarity, 0.01)
	})

	t.Run("zero threshold includes weak matches", func(t *testing.T) {
		results, err := repo.Search(ctx, queryEmbedding(), service.SearchOptions{Limit: 10, Threshold: 0.0})
		require.NoError(t, err)
		assert.Len(t, results, 3)
	})

	t.Run("limit truncates", func(t *testing.T) {
		results, err := repo.Search(ctx, queryEmbedding(), service.SearchOptions{Limit: 1, Threshold: 0.0})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "Near", results[0].Title)
	})

	t.Run("non-positive limit returns empty", func(t *testing.T) {
		results, err := repo.Search(ctx, queryEmbedding(), service.SearchOptions{Limit: 0, Threshold: 0.0})
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("deleted and demoted documents are invisible", func(t *testing.T) {
		require.NoError(t, repo.SoftDeleteByVersion(ctx, mid))

		results, err := repo.Search(ctx, queryEmbedding(), service.SearchOptions{Limit: 10, Threshold: 0.0})
		require.NoError(t, err)
		require.Len(t, results, 2)
		for _, m := range results {
			assert.NotEqual(t, "Mid", m.Title)
		}
	})
}

func TestVectorDocumentRepository_Search_ProjectScope(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewVectorDocumentRepository(pool, testDims)

	p1, r1, v1 := seedProjectAndRecipe(ctx, t, pool, "soup")
	p2, r2, v2 := seedProjectAndRecipe(ctx, t, pool, "stew")

	_, err := repo.Upsert(ctx, domain.NewUpsertDocument("Soup", "soup", v1.ID, r1.ID, testEmbedding(0.9)))
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, domain.NewUpsertDocument("Stew", "stew", v2.ID, r2.ID, testEmbedding(0.8)))
	require.NoError(t, err)

	t.Run("scoped search only sees member recipes", func(t *testing.T) {
		results, err := repo.Search(ctx, queryEmbedding(), service.SearchOptions{Limit: 10, Threshold: 0.0, ProjectIDs: []string{p1.ID}})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "Soup", results[0].Title)
	})

	t.Run("multiple projects union", func(t *testing.T) {
		results, err := repo.Search(ctx, queryEmbedding(), service.SearchOptions{Limit: 10, Threshold: 0.0, ProjectIDs: []string{p1.ID, p2.ID}})
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("empty scope searches globally", func(t *testing.T) {
		results, err := repo.Search(ctx, queryEmbedding(), service.SearchOptions{Limit: 10, Threshold: 0.0})
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("unknown project matches nothing", func(t *testing.T) {
		results, err := repo.Search(ctx, queryEmbedding(), service.SearchOptions{Limit: 10, Threshold: 0.0, ProjectIDs: []string{uuid.NewString()}})
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("soft deleted recipe drops out of scoped search", func(t *testing.T) {
		recipeRepo := NewRecipeRepository(pool)
		require.NoError(t, recipeRepo.SoftDelete(ctx, r2.ID))

		results, err := repo.Search(ctx, queryEmbedding(), service.SearchOptions{Limit: 10, Threshold: 0.0, ProjectIDs: []string{p2.ID}})
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("soft deleted project drops out of scoped search", func(t *testing.T) {
		projectRepo := NewProjectRepository(pool)
		require.NoError(t, projectRepo.SoftDelete(ctx, p1.ID))

		results, err := repo.Search(ctx, queryEmbedding(), service.SearchOptions{Limit: 10, Threshold: 0.0, ProjectIDs: []string{p1.ID}})
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestTxRunner_WithTx(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	runner := NewTxRunner(pool, testDims)
	repo := NewVectorDocumentRepository(pool, testDims)

	recipeID := uuid.NewString()
	versionID := uuid.NewString()

	t.Run("commits on success", func(t *testing.T) {
		err := runner.WithTx(ctx, func(repos service.TxRepositories) error {
			_, err := repos.Documents().Upsert(ctx, domain.NewUpsertDocument("Soup", "soup", versionID, recipeID, testEmbedding(0.9)))
			return err
		})
		require.NoError(t, err)

		_, err = repo.GetByVersion(ctx, versionID)
		assert.NoError(t, err)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		otherVersion := uuid.NewString()
		err := runner.WithTx(ctx, func(repos service.TxRepositories) error {
			if _, err := repos.Documents().Upsert(ctx, domain.NewUpsertDocument("Stew", "stew", otherVersion, uuid.NewString(), testEmbedding(0.8))); err != nil {
				return err
			}
			return assert.AnError
		})
		require.Error(t, err)

		_, err = repo.GetByVersion(ctx, otherVersion)
		assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
	})
}
