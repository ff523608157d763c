package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/ladlehq/ladle/internal/domain"
	"github.com/ladlehq/ladle/internal/telemetry"
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// IndexService turns recipe versions into vector documents. It is the only
// writer of the vector store: the background worker calls EmbedVersion for
// queued jobs, and recipe deletions flow through RemoveVersion and
// RemoveRecipe.
type IndexService struct {
	client   EmbeddingClient
	recipes  RecipeRepositoryInterface
	docs     VectorDocumentRepositoryInterface
	txRunner TxRunner
}

// NewIndexService creates a new IndexService instance
func NewIndexService(
	client EmbeddingClient,
	recipes RecipeRepositoryInterface,
	docs VectorDocumentRepositoryInterface,
	txRunner TxRunner,
) *IndexService {
	return &IndexService{
		client:   client,
		recipes:  recipes,
		docs:     docs,
		txRunner: txRunner,
	}
}

// EmbedVersion generates an embedding for a recipe version and upserts it as
// the recipe's current document. The demotion of sibling documents and the
// upsert itself run in one transaction, so readers never observe a recipe
// with two current documents.
// This method is called by the background worker.
func (s *IndexService) EmbedVersion(ctx context.Context, versionID string) error {
	ctx, span := telemetry.StartSpan(ctx, "IndexService.EmbedVersion", telemetry.SpanAttributes{
		VersionID: versionID,
		Operation: "embed",
	})
	defer span.End()

	version, err := s.recipes.GetVersion(ctx, versionID)
	if err != nil {
		return err
	}

	recipe, err := s.recipes.GetByID(ctx, version.RecipeID)
	if err != nil {
		return err
	}

	text := buildDocumentText(version)

	embedding, err := s.client.GenerateEmbedding(ctx, text)
	if err != nil {
		return fmt.Errorf("failed to generate embedding: %w", err)
	}

	doc := domain.NewUpsertDocument(version.Title, recipe.ShortID, version.ID, recipe.ID, embedding)
	if err := domain.ValidateUpsertDocument(&doc); err != nil {
		return err
	}

	if s.txRunner != nil {
		return s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
			_, err := repos.Documents().Upsert(ctx, doc)
			return err
		})
	}

	_, err = s.docs.Upsert(ctx, doc)
	return err
}

// StageVersion embeds a version without promoting it, leaving the recipe's
// current document untouched. Used to warm the store ahead of a rollout.
func (s *IndexService) StageVersion(ctx context.Context, versionID string) error {
	ctx, span := telemetry.StartSpan(ctx, "IndexService.StageVersion", telemetry.SpanAttributes{
		VersionID: versionID,
		Operation: "stage",
	})
	defer span.End()

	version, err := s.recipes.GetVersion(ctx, versionID)
	if err != nil {
		return err
	}

	recipe, err := s.recipes.GetByID(ctx, version.RecipeID)
	if err != nil {
		return err
	}

	embedding, err := s.client.GenerateEmbedding(ctx, buildDocumentText(version))
	if err != nil {
		return fmt.Errorf("failed to generate embedding: %w", err)
	}

	doc := domain.NewUpsertDocument(version.Title, recipe.ShortID, version.ID, recipe.ID, embedding)
	doc.IsCurrent = false

	_, err = s.docs.Upsert(ctx, doc)
	return err
}

// RemoveVersion soft-deletes the document for a version. Safe to call again;
// an already deleted or never embedded version is not an error.
func (s *IndexService) RemoveVersion(ctx context.Context, versionID string) error {
	ctx, span := telemetry.StartSpan(ctx, "IndexService.RemoveVersion", telemetry.SpanAttributes{
		VersionID: versionID,
		Operation: "remove",
	})
	defer span.End()

	return s.docs.SoftDeleteByVersion(ctx, versionID)
}

// RemoveRecipe demotes every live document of a recipe so it stops showing
// up in search, without deleting the rows.
func (s *IndexService) RemoveRecipe(ctx context.Context, recipeID string) error {
	ctx, span := telemetry.StartSpan(ctx, "IndexService.RemoveRecipe", telemetry.SpanAttributes{
		RecipeID:  recipeID,
		Operation: "remove",
	})
	defer span.End()

	return s.docs.MarkRecipeNotCurrent(ctx, recipeID)
}

// CurrentDocument returns the live current document for a recipe.
func (s *IndexService) CurrentDocument(ctx context.Context, recipeID string) (*domain.VectorDocument, error) {
	return s.docs.GetCurrentByRecipe(ctx, recipeID)
}

func buildDocumentText(v *domain.RecipeVersion) string {
	var parts []string

	if v.Title != "" {
		parts = append(parts, v.Title)
	}
	if v.BodyMD != "" {
		parts = append(parts, v.BodyMD)
	}

	return strings.Join(parts, "\n\n")
}
