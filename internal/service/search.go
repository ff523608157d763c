package service

import (
	"context"
	"strings"

	"github.com/ladlehq/ladle/internal/domain"
	"github.com/ladlehq/ladle/internal/telemetry"
)

// SearchOptions are the fully resolved parameters for a similarity search.
// An empty ProjectIDs set means unscoped global search.
type SearchOptions struct {
	Limit      int
	Threshold  float64
	ProjectIDs []string
}

const (
	// DefaultSearchLimit caps result counts when the caller leaves the
	// limit unset.
	DefaultSearchLimit = 10
	// DefaultSearchThreshold is the minimum similarity (exclusive) a hit
	// must exceed to be returned.
	DefaultSearchThreshold = 0.3
)

// VectorDocumentRepositoryInterface defines the repository interface for the vector document store
type VectorDocumentRepositoryInterface interface {
	Upsert(ctx context.Context, doc domain.UpsertDocument) (*domain.VectorDocument, error)
	MarkRecipeNotCurrent(ctx context.Context, recipeID string) error
	SoftDeleteByVersion(ctx context.Context, versionID string) error
	GetCurrentByRecipe(ctx context.Context, recipeID string) (*domain.VectorDocument, error)
	GetByVersion(ctx context.Context, versionID string) (*domain.VectorDocument, error)
	Search(ctx context.Context, queryEmbedding []float32, opts SearchOptions) ([]*domain.DocumentMatch, error)
	Stats(ctx context.Context) (*domain.StoreStats, error)
}

// SearchInput represents a semantic search request. A zero Limit and a nil
// Threshold fall back to the defaults; a negative Limit short-circuits to an
// empty result.
type SearchInput struct {
	Query      string
	Limit      int
	Threshold  *float64
	ProjectIDs []string
}

// SearchService answers semantic queries over the current recipe documents
type SearchService struct {
	embedding EmbeddingClient
	docs      VectorDocumentRepositoryInterface
}

// NewSearchService creates a new SearchService instance
func NewSearchService(embedding EmbeddingClient, docs VectorDocumentRepositoryInterface) *SearchService {
	return &SearchService{embedding: embedding, docs: docs}
}

// Search embeds the query text and returns the closest current documents,
// best match first
func (s *SearchService) Search(ctx context.Context, input SearchInput) ([]*domain.DocumentMatch, error) {
	ctx, span := telemetry.StartSpan(ctx, "SearchService.Search", telemetry.SpanAttributes{
		Operation: "search",
	})
	defer span.End()

	query := strings.TrimSpace(input.Query)
	if query == "" {
		return []*domain.DocumentMatch{}, nil
	}

	opts := SearchOptions{
		Limit:      input.Limit,
		Threshold:  DefaultSearchThreshold,
		ProjectIDs: input.ProjectIDs,
	}
	if input.Limit == 0 {
		opts.Limit = DefaultSearchLimit
	}
	if input.Threshold != nil {
		opts.Threshold = *input.Threshold
	}
	if opts.Limit < 0 {
		return []*domain.DocumentMatch{}, nil
	}

	embedding, err := s.embedding.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, err
	}

	return s.docs.Search(ctx, embedding, opts)
}

// Stats reports document counts across the store
func (s *SearchService) Stats(ctx context.Context) (*domain.StoreStats, error) {
	ctx, span := telemetry.StartSpan(ctx, "SearchService.Stats", telemetry.SpanAttributes{
		Operation: "stats",
	})
	defer span.End()

	return s.docs.Stats(ctx)
}
