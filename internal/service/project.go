package service

import (
	"context"
	"time"

	"github.com/ladlehq/ladle/internal/domain"
	"github.com/ladlehq/ladle/internal/telemetry"
)

// ProjectRepositoryInterface defines the repository interface for project persistence
type ProjectRepositoryInterface interface {
	Create(ctx context.Context, p *domain.Project) error
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	List(ctx context.Context) ([]*domain.Project, error)
	SoftDelete(ctx context.Context, id string) error
}

// ProjectService handles business logic for projects
type ProjectService struct {
	projectRepo ProjectRepositoryInterface
	uuidGen     UUIDGenerator
}

// NewProjectService creates a new ProjectService instance
func NewProjectService(projectRepo ProjectRepositoryInterface) *ProjectService {
	return &ProjectService{
		projectRepo: projectRepo,
		uuidGen:     &DefaultUUIDGenerator{},
	}
}

// NewProjectServiceWithUUIDGen creates a new ProjectService with custom UUID generator (for testing)
func NewProjectServiceWithUUIDGen(projectRepo ProjectRepositoryInterface, uuidGen UUIDGenerator) *ProjectService {
	return &ProjectService{
		projectRepo: projectRepo,
		uuidGen:     uuidGen,
	}
}

// Create creates a new project
func (s *ProjectService) Create(ctx context.Context, name string) (*domain.Project, error) {
	ctx, span := telemetry.StartSpan(ctx, "ProjectService.Create", telemetry.SpanAttributes{
		Operation: "create",
	})
	defer span.End()

	project := domain.NewProject(s.uuidGen.NewString(), name, time.Now().UTC())
	if err := domain.ValidateProject(project); err != nil {
		return nil, err
	}

	if err := s.projectRepo.Create(ctx, project); err != nil {
		return nil, err
	}

	return project, nil
}

// GetByID retrieves a project by ID
func (s *ProjectService) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	return s.projectRepo.GetByID(ctx, id)
}

// List retrieves all live projects
func (s *ProjectService) List(ctx context.Context) ([]*domain.Project, error) {
	return s.projectRepo.List(ctx)
}

// Delete soft-deletes a project. Documents of its recipes stay in the store
// but stop matching searches scoped to the project.
func (s *ProjectService) Delete(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "ProjectService.Delete", telemetry.SpanAttributes{
		ProjectID: id,
		Operation: "delete",
	})
	defer span.End()

	return s.projectRepo.SoftDelete(ctx, id)
}
