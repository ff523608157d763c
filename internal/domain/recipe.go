package domain

import (
	"fmt"
	"time"
)

// Recipe is a logical recipe. Its content lives in immutable versions; the
// recipe row carries identity, display fields, and an optional project
// link. Recipes are soft-deleted, never removed.
type Recipe struct {
	ID        string
	ProjectID string
	ShortID   string
	Title     string
	PhotoKey  string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// RecipeVersion is one immutable snapshot of a recipe's content. The
// embedding pipeline indexes versions, not recipes.
type RecipeVersion struct {
	ID            string
	RecipeID      string
	VersionNumber int64
	Title         string
	BodyMD        string
	CreatedAt     time.Time
	DeletedAt     *time.Time
}

// NewRecipe creates a new Recipe instance
func NewRecipe(id, projectID, shortID, title string, createdAt time.Time) *Recipe {
	return &Recipe{
		ID:        id,
		ProjectID: projectID,
		ShortID:   shortID,
		Title:     title,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

// NewRecipeVersion creates a new RecipeVersion instance
func NewRecipeVersion(id, recipeID string, versionNumber int64, title, bodyMD string, createdAt time.Time) *RecipeVersion {
	return &RecipeVersion{
		ID:            id,
		RecipeID:      recipeID,
		VersionNumber: versionNumber,
		Title:         title,
		BodyMD:        bodyMD,
		CreatedAt:     createdAt,
	}
}

// ValidateRecipe validates a Recipe instance
func ValidateRecipe(r *Recipe) error {
	if r == nil {
		return fmt.Errorf("recipe cannot be nil")
	}

	if r.ID == "" {
		return fmt.Errorf("recipe ID is required")
	}

	if r.ShortID == "" {
		return fmt.Errorf("recipe ShortID is required")
	}

	if r.Title == "" {
		return fmt.Errorf("recipe Title is required")
	}

	return nil
}

// ValidateRecipeVersion validates a RecipeVersion instance
func ValidateRecipeVersion(v *RecipeVersion) error {
	if v == nil {
		return fmt.Errorf("recipe version cannot be nil")
	}

	if v.ID == "" {
		return fmt.Errorf("recipe version ID is required")
	}

	if v.RecipeID == "" {
		return fmt.Errorf("recipe version RecipeID is required")
	}

	if v.VersionNumber <= 0 {
		return fmt.Errorf("recipe version VersionNumber must be greater than 0")
	}

	if v.BodyMD == "" {
		return fmt.Errorf("recipe version BodyMD is required")
	}

	return nil
}
