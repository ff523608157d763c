package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ladlehq/ladle/internal/domain"
	"github.com/ladlehq/ladle/internal/pagination"
	"github.com/ladlehq/ladle/internal/telemetry"
)

// RecipeRepositoryInterface defines the repository interface for recipe persistence
type RecipeRepositoryInterface interface {
	Create(ctx context.Context, rec *domain.Recipe) error
	GetByID(ctx context.Context, id string) (*domain.Recipe, error)
	ListWithCursor(ctx context.Context, projectID string, cursor *pagination.Cursor, limit int) (*RecipePageResult, error)
	UpdateTitle(ctx context.Context, id, title string) error
	UpdatePhotoKey(ctx context.Context, id, photoKey string) error
	SoftDelete(ctx context.Context, id string) error
	CreateVersion(ctx context.Context, v *domain.RecipeVersion) error
	GetVersion(ctx context.Context, versionID string) (*domain.RecipeVersion, error)
	GetVersions(ctx context.Context, recipeID string) ([]*domain.RecipeVersion, error)
	GetLatestVersion(ctx context.Context, recipeID string) (*domain.RecipeVersion, error)
	SoftDeleteVersion(ctx context.Context, versionID string) error
}

type RecipePageResult struct {
	Items      []*domain.Recipe
	NextCursor string
	HasMore    bool
}

// EmbeddingJobRepositoryInterface defines the repository interface for embedding job persistence
type EmbeddingJobRepositoryInterface interface {
	Create(ctx context.Context, job *domain.EmbeddingJob) error
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// RecipeService handles business logic for recipes and their versions
type RecipeService struct {
	recipeRepo       RecipeRepositoryInterface
	embeddingJobRepo EmbeddingJobRepositoryInterface
	txRunner         TxRunner
	uuidGen          UUIDGenerator
}

// NewRecipeService creates a new RecipeService instance
func NewRecipeService(
	recipeRepo RecipeRepositoryInterface,
	embeddingJobRepo EmbeddingJobRepositoryInterface,
	txRunner TxRunner,
) *RecipeService {
	return &RecipeService{
		recipeRepo:       recipeRepo,
		embeddingJobRepo: embeddingJobRepo,
		txRunner:         txRunner,
		uuidGen:          &DefaultUUIDGenerator{},
	}
}

// NewRecipeServiceWithUUIDGen creates a new RecipeService with custom UUID generator (for testing)
func NewRecipeServiceWithUUIDGen(
	recipeRepo RecipeRepositoryInterface,
	embeddingJobRepo EmbeddingJobRepositoryInterface,
	txRunner TxRunner,
	uuidGen UUIDGenerator,
) *RecipeService {
	return &RecipeService{
		recipeRepo:       recipeRepo,
		embeddingJobRepo: embeddingJobRepo,
		txRunner:         txRunner,
		uuidGen:          uuidGen,
	}
}

// CreateRecipeInput represents the input for creating a recipe
type CreateRecipeInput struct {
	ProjectID string
	Title     string
	BodyMD    string
}

// UpdateRecipeInput represents the input for publishing a new recipe version
type UpdateRecipeInput struct {
	RecipeID string
	Title    string
	BodyMD   string
}

type ListRecipesInput struct {
	ProjectID string
	Cursor    string
	Limit     int
}

type ListRecipesOutput struct {
	Items   []*domain.Recipe
	Cursor  string
	HasMore bool
}

// Create creates a new recipe with its first version and queues an embedding job
func (s *RecipeService) Create(ctx context.Context, input CreateRecipeInput) (*domain.Recipe, error) {
	ctx, span := telemetry.StartSpan(ctx, "RecipeService.Create", telemetry.SpanAttributes{
		ProjectID: input.ProjectID,
		Operation: "create",
	})
	defer span.End()

	now := time.Now().UTC()
	recipeID := s.uuidGen.NewString()
	versionID := s.uuidGen.NewString()
	jobID := s.uuidGen.NewString()

	recipe := domain.NewRecipe(recipeID, input.ProjectID, shortIDFrom(recipeID), input.Title, now)
	if err := domain.ValidateRecipe(recipe); err != nil {
		return nil, err
	}

	if err := s.recipeRepo.Create(ctx, recipe); err != nil {
		return nil, err
	}

	version := domain.NewRecipeVersion(versionID, recipeID, 1, input.Title, input.BodyMD, now)
	if err := domain.ValidateRecipeVersion(version); err != nil {
		return nil, err
	}

	if err := s.recipeRepo.CreateVersion(ctx, version); err != nil {
		return nil, err
	}

	// Queue embedding job
	job := domain.NewEmbeddingJob(jobID, versionID, now)
	if err := s.embeddingJobRepo.Create(ctx, job); err != nil {
		return nil, err
	}

	return recipe, nil
}

// GetByID retrieves a recipe by ID
func (s *RecipeService) GetByID(ctx context.Context, id string) (*domain.Recipe, error) {
	ctx, span := telemetry.StartSpan(ctx, "RecipeService.GetByID", telemetry.SpanAttributes{
		RecipeID:  id,
		Operation: "get",
	})
	defer span.End()

	return s.recipeRepo.GetByID(ctx, id)
}

// GetVersion retrieves a single recipe version
func (s *RecipeService) GetVersion(ctx context.Context, versionID string) (*domain.RecipeVersion, error) {
	return s.recipeRepo.GetVersion(ctx, versionID)
}

// GetVersions retrieves all live versions of a recipe, newest first
func (s *RecipeService) GetVersions(ctx context.Context, recipeID string) ([]*domain.RecipeVersion, error) {
	return s.recipeRepo.GetVersions(ctx, recipeID)
}

// Update publishes a new version of a recipe (immutable versioning) and
// queues an embedding job; the new version becomes current once the worker
// embeds it.
func (s *RecipeService) Update(ctx context.Context, input UpdateRecipeInput) (*domain.Recipe, *domain.RecipeVersion, error) {
	ctx, span := telemetry.StartSpan(ctx, "RecipeService.Update", telemetry.SpanAttributes{
		RecipeID:  input.RecipeID,
		Operation: "update",
	})
	defer span.End()

	now := time.Now().UTC()

	recipe, err := s.recipeRepo.GetByID(ctx, input.RecipeID)
	if err != nil {
		return nil, nil, err
	}

	latest, err := s.recipeRepo.GetLatestVersion(ctx, input.RecipeID)
	if err != nil {
		return nil, nil, err
	}

	versionID := s.uuidGen.NewString()
	version := domain.NewRecipeVersion(versionID, input.RecipeID, latest.VersionNumber+1, input.Title, input.BodyMD, now)
	if err := domain.ValidateRecipeVersion(version); err != nil {
		return nil, nil, err
	}

	if err := s.recipeRepo.CreateVersion(ctx, version); err != nil {
		return nil, nil, err
	}

	if err := s.recipeRepo.UpdateTitle(ctx, input.RecipeID, input.Title); err != nil {
		return nil, nil, err
	}
	recipe.Title = input.Title
	recipe.UpdatedAt = now

	// Queue embedding job
	jobID := s.uuidGen.NewString()
	job := domain.NewEmbeddingJob(jobID, versionID, now)
	if err := s.embeddingJobRepo.Create(ctx, job); err != nil {
		return nil, nil, err
	}

	return recipe, version, nil
}

// Delete soft-deletes a recipe, its versions, and every document the store
// holds for them, in one transaction. The recipe disappears from search as
// soon as the transaction commits.
func (s *RecipeService) Delete(ctx context.Context, recipeID string) error {
	ctx, span := telemetry.StartSpan(ctx, "RecipeService.Delete", telemetry.SpanAttributes{
		RecipeID:  recipeID,
		Operation: "delete",
	})
	defer span.End()

	return s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		versions, err := repos.Recipes().GetVersions(ctx, recipeID)
		if err != nil {
			return err
		}

		if err := repos.Recipes().SoftDelete(ctx, recipeID); err != nil {
			return err
		}

		for _, v := range versions {
			if err := repos.Recipes().SoftDeleteVersion(ctx, v.ID); err != nil {
				return err
			}
			if err := repos.Documents().SoftDeleteByVersion(ctx, v.ID); err != nil {
				return err
			}
		}

		return nil
	})
}

// DeleteVersion soft-deletes one version and its document. Deleting the
// current version leaves the recipe with no current document until a new
// version is embedded.
func (s *RecipeService) DeleteVersion(ctx context.Context, versionID string) error {
	ctx, span := telemetry.StartSpan(ctx, "RecipeService.DeleteVersion", telemetry.SpanAttributes{
		VersionID: versionID,
		Operation: "delete",
	})
	defer span.End()

	return s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Recipes().SoftDeleteVersion(ctx, versionID); err != nil {
			return err
		}
		return repos.Documents().SoftDeleteByVersion(ctx, versionID)
	})
}

// List retrieves recipes with cursor pagination, optionally scoped to a project
func (s *RecipeService) List(ctx context.Context, input ListRecipesInput) (*ListRecipesOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "RecipeService.List", telemetry.SpanAttributes{
		ProjectID: input.ProjectID,
		Operation: "list",
	})
	defer span.End()

	cursor, _ := pagination.DecodeCursor(input.Cursor)

	page, err := s.recipeRepo.ListWithCursor(ctx, input.ProjectID, cursor, input.Limit)
	if err != nil {
		return nil, err
	}

	return &ListRecipesOutput{
		Items:   page.Items,
		Cursor:  page.NextCursor,
		HasMore: page.HasMore,
	}, nil
}

func shortIDFrom(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}
