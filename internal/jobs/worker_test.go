package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ladlehq/ladle/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockJobProcessor is a mock implementation of JobProcessor
type MockJobProcessor struct {
	mock.Mock
}

func (m *MockJobProcessor) ProcessJobs(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockEmbeddingJobRepository is a mock implementation of EmbeddingJobRepository
type MockEmbeddingJobRepository struct {
	mock.Mock
}

func (m *MockEmbeddingJobRepository) GetPendingJobs(ctx context.Context, limit int) ([]*domain.EmbeddingJob, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.EmbeddingJob), args.Error(1)
}

func (m *MockEmbeddingJobRepository) UpdateJobStatus(ctx context.Context, jobID string, status domain.EmbeddingJobStatus, errMsg string) error {
	args := m.Called(ctx, jobID, status, errMsg)
	return args.Error(0)
}

func (m *MockEmbeddingJobRepository) IncrementRetries(ctx context.Context, jobID string) error {
	args := m.Called(ctx, jobID)
	return args.Error(0)
}

// MockVersionIndexer is a mock implementation of VersionIndexer
type MockVersionIndexer struct {
	mock.Mock
}

func (m *MockVersionIndexer) EmbedVersion(ctx context.Context, versionID string) error {
	args := m.Called(ctx, versionID)
	return args.Error(0)
}

// TestWorker_StartStop tests the worker start and stop functionality
func TestWorker_StartStop(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker(mockProcessor, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	// Let it run for a bit
	time.Sleep(250 * time.Millisecond)

	worker.Stop()
	wg.Wait()

	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

// TestWorker_ContextCancellation tests worker stops on context cancellation
func TestWorker_ContextCancellation(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker(mockProcessor, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(150 * time.Millisecond)

	cancel()
	wg.Wait()

	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

// TestEmbeddingWorker_ProcessJobs_NoPendingJobs tests when there are no pending jobs
func TestEmbeddingWorker_ProcessJobs_NoPendingJobs(t *testing.T) {
	mockRepo := new(MockEmbeddingJobRepository)
	mockIndexer := new(MockVersionIndexer)

	mockRepo.On("GetPendingJobs", mock.Anything, batchSize).Return([]*domain.EmbeddingJob{}, nil)

	worker := NewEmbeddingWorker(mockRepo, mockIndexer)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockIndexer.AssertNotCalled(t, "EmbedVersion", mock.Anything, mock.Anything)
}

// TestEmbeddingWorker_ProcessJobs_Success tests successful job processing
func TestEmbeddingWorker_ProcessJobs_Success(t *testing.T) {
	mockRepo := new(MockEmbeddingJobRepository)
	mockIndexer := new(MockVersionIndexer)

	jobs := []*domain.EmbeddingJob{
		{ID: "job-1", VersionID: "version-1", Status: domain.EmbeddingJobStatusProcessing},
		{ID: "job-2", VersionID: "version-2", Status: domain.EmbeddingJobStatusProcessing},
	}

	mockRepo.On("GetPendingJobs", mock.Anything, batchSize).Return(jobs, nil)
	mockIndexer.On("EmbedVersion", mock.Anything, "version-1").Return(nil)
	mockIndexer.On("EmbedVersion", mock.Anything, "version-2").Return(nil)
	mockRepo.On("UpdateJobStatus", mock.Anything, "job-1", domain.EmbeddingJobStatusCompleted, "").Return(nil)
	mockRepo.On("UpdateJobStatus", mock.Anything, "job-2", domain.EmbeddingJobStatusCompleted, "").Return(nil)

	worker := NewEmbeddingWorker(mockRepo, mockIndexer)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockIndexer.AssertExpectations(t)
}

// TestEmbeddingWorker_ProcessJobs_RetryOnFailure tests a failed job is reset to pending
func TestEmbeddingWorker_ProcessJobs_RetryOnFailure(t *testing.T) {
	mockRepo := new(MockEmbeddingJobRepository)
	mockIndexer := new(MockVersionIndexer)

	jobs := []*domain.EmbeddingJob{
		{ID: "job-1", VersionID: "version-1", Retries: 0},
	}

	mockRepo.On("GetPendingJobs", mock.Anything, batchSize).Return(jobs, nil)
	mockIndexer.On("EmbedVersion", mock.Anything, "version-1").Return(errors.New("openai unavailable"))
	mockRepo.On("IncrementRetries", mock.Anything, "job-1").Return(nil)
	mockRepo.On("UpdateJobStatus", mock.Anything, "job-1", domain.EmbeddingJobStatusPending, mock.MatchedBy(func(msg string) bool {
		return msg != ""
	})).Return(nil)

	worker := NewEmbeddingWorker(mockRepo, mockIndexer)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

// TestEmbeddingWorker_ProcessJobs_MaxRetriesExceeded tests a job failing its last attempt
func TestEmbeddingWorker_ProcessJobs_MaxRetriesExceeded(t *testing.T) {
	mockRepo := new(MockEmbeddingJobRepository)
	mockIndexer := new(MockVersionIndexer)

	jobs := []*domain.EmbeddingJob{
		{ID: "job-1", VersionID: "version-1", Retries: MaxRetries - 1},
	}

	mockRepo.On("GetPendingJobs", mock.Anything, batchSize).Return(jobs, nil)
	mockIndexer.On("EmbedVersion", mock.Anything, "version-1").Return(errors.New("still failing"))
	mockRepo.On("IncrementRetries", mock.Anything, "job-1").Return(nil)
	mockRepo.On("UpdateJobStatus", mock.Anything, "job-1", domain.EmbeddingJobStatusFailed, mock.MatchedBy(func(msg string) bool {
		return msg != ""
	})).Return(nil)

	worker := NewEmbeddingWorker(mockRepo, mockIndexer)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

// TestEmbeddingWorker_ProcessJobs_VersionGone tests a job whose version was deleted
func TestEmbeddingWorker_ProcessJobs_VersionGone(t *testing.T) {
	mockRepo := new(MockEmbeddingJobRepository)
	mockIndexer := new(MockVersionIndexer)

	jobs := []*domain.EmbeddingJob{
		{ID: "job-1", VersionID: "version-1", Retries: 0},
	}

	mockRepo.On("GetPendingJobs", mock.Anything, batchSize).Return(jobs, nil)
	mockIndexer.On("EmbedVersion", mock.Anything, "version-1").Return(domain.ErrVersionNotFound)
	mockRepo.On("UpdateJobStatus", mock.Anything, "job-1", domain.EmbeddingJobStatusFailed, mock.MatchedBy(func(msg string) bool {
		return msg != ""
	})).Return(nil)

	worker := NewEmbeddingWorker(mockRepo, mockIndexer)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockRepo.AssertNotCalled(t, "IncrementRetries", mock.Anything, mock.Anything)
}

// TestEmbeddingWorker_ProcessJobs_FetchError tests repository failure on fetch
func TestEmbeddingWorker_ProcessJobs_FetchError(t *testing.T) {
	mockRepo := new(MockEmbeddingJobRepository)
	mockIndexer := new(MockVersionIndexer)

	mockRepo.On("GetPendingJobs", mock.Anything, batchSize).Return(nil, errors.New("connection lost"))

	worker := NewEmbeddingWorker(mockRepo, mockIndexer)
	err := worker.ProcessJobs(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch pending jobs")
}

// TestEmbeddingWorker_ProcessJobs_MissingVersionID tests a malformed job
func TestEmbeddingWorker_ProcessJobs_MissingVersionID(t *testing.T) {
	mockRepo := new(MockEmbeddingJobRepository)
	mockIndexer := new(MockVersionIndexer)

	jobs := []*domain.EmbeddingJob{
		{ID: "job-1", VersionID: ""},
	}

	mockRepo.On("GetPendingJobs", mock.Anything, batchSize).Return(jobs, nil)

	worker := NewEmbeddingWorker(mockRepo, mockIndexer)
	err := worker.ProcessJobs(context.Background())

	// Malformed jobs are logged, not fatal to the batch.
	assert.NoError(t, err)
	mockIndexer.AssertNotCalled(t, "EmbedVersion", mock.Anything, mock.Anything)
}
