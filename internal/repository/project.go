package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ladlehq/ladle/internal/domain"
)

type ProjectRepository struct {
	db dbtx
}

func NewProjectRepository(pool *pgxpool.Pool) *ProjectRepository {
	return &ProjectRepository{db: pool}
}

func (r *ProjectRepository) Create(ctx context.Context, p *domain.Project) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO projects (id, name, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		p.ID, p.Name, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return domain.NewPersistenceError("insert project", err)
	}
	return nil
}

func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	var p domain.Project
	err := r.db.QueryRow(ctx,
		`SELECT id, name, created_at, updated_at, deleted_at
		 FROM projects WHERE id = $1 AND deleted_at IS NULL`,
		id,
	).Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProjectNotFound
		}
		return nil, domain.NewPersistenceError("load project", err)
	}
	return &p, nil
}

func (r *ProjectRepository) List(ctx context.Context) ([]*domain.Project, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, created_at, updated_at, deleted_at
		 FROM projects WHERE deleted_at IS NULL ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, domain.NewPersistenceError("list projects", err)
	}
	defer rows.Close()

	var projects []*domain.Project
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt); err != nil {
			return nil, domain.NewPersistenceError("scan project", err)
		}
		projects = append(projects, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewPersistenceError("list projects", err)
	}
	return projects, nil
}

// SoftDelete marks a project deleted, dropping its recipes out of scoped
// search without touching their vector documents.
func (r *ProjectRepository) SoftDelete(ctx context.Context, id string) error {
	now := time.Now().UTC()
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE projects SET deleted_at = $1, updated_at = $1 WHERE id = $2 AND deleted_at IS NULL`,
		now, id,
	)
	if err != nil {
		return domain.NewPersistenceError("soft delete project", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrProjectNotFound
	}
	return nil
}
