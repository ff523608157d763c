package service

import (
	"context"
	"fmt"
	"path"

	"github.com/ladlehq/ladle/internal/telemetry"
)

// StorageClientInterface defines the interface for presigned object storage access
type StorageClientInterface interface {
	GenerateUploadURL(ctx context.Context, key string, contentType string) (string, error)
	GenerateDownloadURL(ctx context.Context, key string) (string, error)
	DeleteObject(ctx context.Context, key string) error
	HeadObject(ctx context.Context, key string) (*ObjectMetadata, error)
}

type ObjectMetadata struct {
	ContentLength int64
	ContentType   string
	ETag          string
}

// PhotoService handles recipe photo uploads via presigned URLs. The server
// never proxies image bytes: clients upload straight to object storage and
// confirm afterwards.
type PhotoService struct {
	recipeRepo    RecipeRepositoryInterface
	storageClient StorageClientInterface
	uuidGen       UUIDGenerator
}

// NewPhotoService creates a new PhotoService instance
func NewPhotoService(recipeRepo RecipeRepositoryInterface, storageClient StorageClientInterface) *PhotoService {
	return &PhotoService{
		recipeRepo:    recipeRepo,
		storageClient: storageClient,
		uuidGen:       &DefaultUUIDGenerator{},
	}
}

// NewPhotoServiceWithUUIDGen creates a new PhotoService with custom UUID generator (for testing)
func NewPhotoServiceWithUUIDGen(recipeRepo RecipeRepositoryInterface, storageClient StorageClientInterface, uuidGen UUIDGenerator) *PhotoService {
	return &PhotoService{
		recipeRepo:    recipeRepo,
		storageClient: storageClient,
		uuidGen:       uuidGen,
	}
}

type InitPhotoUploadResult struct {
	StorageKey string
	UploadURL  string
}

// InitUpload generates a presigned upload URL for a recipe photo
func (s *PhotoService) InitUpload(ctx context.Context, recipeID, filename, contentType string) (*InitPhotoUploadResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "PhotoService.InitUpload", telemetry.SpanAttributes{
		RecipeID:  recipeID,
		Operation: "upload",
	})
	defer span.End()

	if _, err := s.recipeRepo.GetByID(ctx, recipeID); err != nil {
		return nil, err
	}

	key := buildPhotoKey(recipeID, s.uuidGen.NewString(), filename)

	uploadURL, err := s.storageClient.GenerateUploadURL(ctx, key, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to generate upload URL: %w", err)
	}

	return &InitPhotoUploadResult{StorageKey: key, UploadURL: uploadURL}, nil
}

// ConfirmUpload verifies the object landed in storage and records its key on
// the recipe, replacing any previous photo.
func (s *PhotoService) ConfirmUpload(ctx context.Context, recipeID, storageKey string) error {
	ctx, span := telemetry.StartSpan(ctx, "PhotoService.ConfirmUpload", telemetry.SpanAttributes{
		RecipeID:  recipeID,
		Operation: "upload",
	})
	defer span.End()

	if _, err := s.storageClient.HeadObject(ctx, storageKey); err != nil {
		return fmt.Errorf("uploaded object not found: %w", err)
	}

	recipe, err := s.recipeRepo.GetByID(ctx, recipeID)
	if err != nil {
		return err
	}

	previous := recipe.PhotoKey

	if err := s.recipeRepo.UpdatePhotoKey(ctx, recipeID, storageKey); err != nil {
		return err
	}

	if previous != "" && previous != storageKey {
		// Old photo is unreferenced now; removal failures are non-fatal.
		_ = s.storageClient.DeleteObject(ctx, previous)
	}

	return nil
}

// DownloadURL generates a presigned download URL for a recipe's photo.
// Returns an empty string when the recipe has no photo.
func (s *PhotoService) DownloadURL(ctx context.Context, recipeID string) (string, error) {
	recipe, err := s.recipeRepo.GetByID(ctx, recipeID)
	if err != nil {
		return "", err
	}

	if recipe.PhotoKey == "" {
		return "", nil
	}

	url, err := s.storageClient.GenerateDownloadURL(ctx, recipe.PhotoKey)
	if err != nil {
		return "", fmt.Errorf("failed to generate download URL: %w", err)
	}
	return url, nil
}

func buildPhotoKey(recipeID, uploadID, filename string) string {
	ext := path.Ext(filename)
	return fmt.Sprintf("recipes/%s/photos/%s%s", recipeID, uploadID, ext)
}
