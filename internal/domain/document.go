package domain

import (
	"fmt"
	"time"
)

// VectorDocument is one stored embedding row. Many rows may share a
// RecipeID (one per embedded version); at most one live row per recipe is
// flagged current at any instant, and at most one live row exists per
// version. Soft-deleted rows stay in storage for history but are invisible
// to lookups and search.
type VectorDocument struct {
	ID        int64
	Title     string
	ShortID   string
	VersionID string
	RecipeID  string
	Embedding []float32
	IsCurrent bool
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// Deleted reports whether the document has been soft-deleted.
func (d *VectorDocument) Deleted() bool {
	return d.DeletedAt != nil
}

// UpsertDocument carries the writable fields of a vector document. IsCurrent
// defaults to true via NewUpsertDocument; an explicit false pre-stages an
// embedding without demoting the recipe's current one.
type UpsertDocument struct {
	Title     string
	ShortID   string
	VersionID string
	RecipeID  string
	Embedding []float32
	IsCurrent bool
}

// NewUpsertDocument builds an UpsertDocument with IsCurrent set.
func NewUpsertDocument(title, shortID, versionID, recipeID string, embedding []float32) UpsertDocument {
	return UpsertDocument{
		Title:     title,
		ShortID:   shortID,
		VersionID: versionID,
		RecipeID:  recipeID,
		Embedding: embedding,
		IsCurrent: true,
	}
}

// ValidateUpsertDocument validates an UpsertDocument instance
func ValidateUpsertDocument(d *UpsertDocument) error {
	if d == nil {
		return fmt.Errorf("upsert document cannot be nil")
	}

	if d.VersionID == "" {
		return fmt.Errorf("upsert document VersionID is required")
	}

	if d.RecipeID == "" {
		return fmt.Errorf("upsert document RecipeID is required")
	}

	if len(d.Embedding) == 0 {
		return fmt.Errorf("upsert document Embedding is required")
	}

	return nil
}

// DocumentMatch is one similarity-search hit. Similarity is
// 1 - cosine distance, in [-1, 1], 1 meaning identical direction.
type DocumentMatch struct {
	ID         int64
	Title      string
	ShortID    string
	VersionID  string
	RecipeID   string
	Similarity float64
}

// StoreStats are the row counts reported by the store. Total covers every
// row regardless of state; Current counts live rows flagged current;
// Deleted counts soft-deleted rows.
type StoreStats struct {
	Total   int64
	Current int64
	Deleted int64
}

// NotCurrentLive derives the live rows that are not flagged current.
func (s StoreStats) NotCurrentLive() int64 {
	return s.Total - s.Current - s.Deleted
}
