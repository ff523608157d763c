//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ladlehq/ladle/internal/domain"
	"github.com/ladlehq/ladle/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddingJobRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewEmbeddingJobRepository(pool)
	now := time.Now().UTC().Truncate(time.Microsecond)

	job := domain.NewEmbeddingJob(uuid.NewString(), uuid.NewString(), now)
	require.NoError(t, repo.Create(ctx, job))

	retrieved, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.VersionID, retrieved.VersionID)
	assert.Equal(t, domain.EmbeddingJobStatusPending, retrieved.Status)
	assert.Zero(t, retrieved.Retries)
	assert.Nil(t, retrieved.ProcessedAt)

	_, err = repo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrEmbeddingJobNotFound)
}

func TestEmbeddingJobRepository_GetPendingJobs(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewEmbeddingJobRepository(pool)
	base := time.Now().UTC().Truncate(time.Microsecond).Add(-time.Minute)

	oldest := domain.NewEmbeddingJob(uuid.NewString(), uuid.NewString(), base)
	newest := domain.NewEmbeddingJob(uuid.NewString(), uuid.NewString(), base.Add(time.Second))
	require.NoError(t, repo.Create(ctx, oldest))
	require.NoError(t, repo.Create(ctx, newest))

	jobs, err := repo.GetPendingJobs(ctx, 1)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, oldest.ID, jobs[0].ID)
	assert.Equal(t, domain.EmbeddingJobStatusProcessing, jobs[0].Status)

	// Claimed jobs are not handed out again.
	jobs, err = repo.GetPendingJobs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, newest.ID, jobs[0].ID)

	jobs, err = repo.GetPendingJobs(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestEmbeddingJobRepository_UpdateJobStatus(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewEmbeddingJobRepository(pool)
	now := time.Now().UTC().Truncate(time.Microsecond)

	job := domain.NewEmbeddingJob(uuid.NewString(), uuid.NewString(), now)
	require.NoError(t, repo.Create(ctx, job))

	require.NoError(t, repo.UpdateJobStatus(ctx, job.ID, domain.EmbeddingJobStatusCompleted, ""))

	retrieved, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EmbeddingJobStatusCompleted, retrieved.Status)
	require.NotNil(t, retrieved.ProcessedAt)

	err = repo.UpdateJobStatus(ctx, uuid.NewString(), domain.EmbeddingJobStatusFailed, "boom")
	assert.ErrorIs(t, err, ErrEmbeddingJobNotFound)
}

func TestEmbeddingJobRepository_IncrementRetries(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewEmbeddingJobRepository(pool)
	now := time.Now().UTC().Truncate(time.Microsecond)

	job := domain.NewEmbeddingJob(uuid.NewString(), uuid.NewString(), now)
	require.NoError(t, repo.Create(ctx, job))

	require.NoError(t, repo.IncrementRetries(ctx, job.ID))
	require.NoError(t, repo.IncrementRetries(ctx, job.ID))

	retrieved, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(2), retrieved.Retries)

	err = repo.IncrementRetries(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrEmbeddingJobNotFound)
}
