package domain

import (
	"fmt"
	"time"
)

// Project groups recipes for scoped search. Projects are soft-deleted; a
// deleted project's recipes drop out of scoped search even when their
// vector documents are live.
type Project struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// NewProject creates a new Project instance
func NewProject(id, name string, createdAt time.Time) *Project {
	return &Project{
		ID:        id,
		Name:      name,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

// ValidateProject validates a Project instance
func ValidateProject(p *Project) error {
	if p == nil {
		return fmt.Errorf("project cannot be nil")
	}

	if p.ID == "" {
		return fmt.Errorf("project ID is required")
	}

	if p.Name == "" {
		return fmt.Errorf("project Name is required")
	}

	return nil
}
