package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ladlehq/ladle/internal/domain"
	"github.com/ladlehq/ladle/internal/service"
)

// TxRunner provides transactional repositories using a pgx pool. The index
// service runs Upsert through it so sibling demotion and the write land in
// one transaction, which closes the window where a recipe could be observed
// with zero current documents.
type TxRunner struct {
	pool *pgxpool.Pool
	dims int
}

func NewTxRunner(pool *pgxpool.Pool, dims int) *TxRunner {
	return &TxRunner{pool: pool, dims: dims}
}

func (r *TxRunner) WithTx(ctx context.Context, fn func(repos service.TxRepositories) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.NewPersistenceError("begin transaction", err)
	}

	repos := &txRepos{tx: tx, dims: r.dims}
	if err := fn(repos); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.NewPersistenceError("commit transaction", err)
	}
	return nil
}

type txRepos struct {
	tx   pgx.Tx
	dims int
}

func (r *txRepos) Documents() service.VectorDocumentRepositoryInterface {
	return NewVectorDocumentRepositoryWithTx(r.tx, r.dims)
}

func (r *txRepos) Recipes() service.RecipeRepositoryInterface {
	return NewRecipeRepositoryWithTx(r.tx)
}

func (r *txRepos) EmbeddingJobs() service.EmbeddingJobRepositoryInterface {
	return NewEmbeddingJobRepositoryWithTx(r.tx)
}
