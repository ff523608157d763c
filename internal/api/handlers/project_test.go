package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ladlehq/ladle/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockProjectService struct {
	mock.Mock
}

func (m *MockProjectService) Create(ctx context.Context, name string) (*domain.Project, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Project), args.Error(1)
}

func (m *MockProjectService) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Project), args.Error(1)
}

func (m *MockProjectService) List(ctx context.Context) ([]*domain.Project, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Project), args.Error(1)
}

func (m *MockProjectService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func testProject() *domain.Project {
	now := time.Date(2025, 5, 20, 8, 0, 0, 0, time.UTC)
	return &domain.Project{
		ID:        "p-1",
		Name:      "family-cookbook",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestProjectHandler_Create(t *testing.T) {
	t.Run("creates project", func(t *testing.T) {
		mockSvc := new(MockProjectService)
		handler := NewProjectHandler(mockSvc)

		mockSvc.On("Create", mock.Anything, "family-cookbook").Return(testProject(), nil)

		body := `{"name": "family-cookbook"}`
		req := httptest.NewRequest(http.MethodPost, "/projects", bytes.NewReader([]byte(body)))
		w := httptest.NewRecorder()

		handler.Create(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)

		var resp struct {
			Data ProjectResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "p-1", resp.Data.ID)
		assert.Equal(t, "family-cookbook", resp.Data.Name)
	})

	t.Run("rejects missing name", func(t *testing.T) {
		mockSvc := new(MockProjectService)
		handler := NewProjectHandler(mockSvc)

		req := httptest.NewRequest(http.MethodPost, "/projects", bytes.NewReader([]byte(`{}`)))
		w := httptest.NewRecorder()

		handler.Create(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockSvc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestProjectHandler_Get(t *testing.T) {
	t.Run("returns project", func(t *testing.T) {
		mockSvc := new(MockProjectService)
		handler := NewProjectHandler(mockSvc)

		mockSvc.On("GetByID", mock.Anything, "p-1").Return(testProject(), nil)

		req := httptest.NewRequest(http.MethodGet, "/projects/p-1", nil)
		req = requestWithURLParam(req, "id", "p-1")
		w := httptest.NewRecorder()

		handler.Get(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("maps missing project to 404", func(t *testing.T) {
		mockSvc := new(MockProjectService)
		handler := NewProjectHandler(mockSvc)

		mockSvc.On("GetByID", mock.Anything, "p-gone").Return(nil, domain.ErrProjectNotFound)

		req := httptest.NewRequest(http.MethodGet, "/projects/p-gone", nil)
		req = requestWithURLParam(req, "id", "p-gone")
		w := httptest.NewRecorder()

		handler.Get(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestProjectHandler_List(t *testing.T) {
	mockSvc := new(MockProjectService)
	handler := NewProjectHandler(mockSvc)

	mockSvc.On("List", mock.Anything).Return([]*domain.Project{testProject()}, nil)

	req := httptest.NewRequest(http.MethodGet, "/projects", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []*ProjectResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
}

func TestProjectHandler_Delete(t *testing.T) {
	mockSvc := new(MockProjectService)
	handler := NewProjectHandler(mockSvc)

	mockSvc.On("Delete", mock.Anything, "p-1").Return(nil)

	req := httptest.NewRequest(http.MethodDelete, "/projects/p-1", nil)
	req = requestWithURLParam(req, "id", "p-1")
	w := httptest.NewRecorder()

	handler.Delete(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	mockSvc.AssertExpectations(t)
}
