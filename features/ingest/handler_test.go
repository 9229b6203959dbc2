package ingest

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestHandler(repo *MockRepository, pub *MockPublisher) *Handler {
	return NewHandler(NewService(repo, pub), "data/invoices")
}

func TestHandler_Create(t *testing.T) {
	repo := new(MockRepository)
	pub := new(MockPublisher)
	repo.On("Save", mock.Anything, mock.Anything).Return(nil)
	pub.On("Publish", mock.Anything, mock.Anything).Return(nil)

	h := newTestHandler(repo, pub)
	req := httptest.NewRequest(http.MethodPost, "/runs", strings.NewReader(`{"input_dir": "custom/dir", "limit": 3}`))
	rr := httptest.NewRecorder()
	h.Create(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)

	var resp struct {
		Data Run `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "custom/dir", resp.Data.InputDir)
	assert.Equal(t, 3, resp.Data.SampleLimit)
	assert.Equal(t, StatusQueued, resp.Data.Status)
}

func TestHandler_Create_DefaultsInputDir(t *testing.T) {
	repo := new(MockRepository)
	pub := new(MockPublisher)
	repo.On("Save", mock.Anything, mock.MatchedBy(func(r *Run) bool {
		return r.InputDir == "data/invoices"
	})).Return(nil)
	pub.On("Publish", mock.Anything, mock.Anything).Return(nil)

	h := newTestHandler(repo, pub)
	req := httptest.NewRequest(http.MethodPost, "/runs", strings.NewReader(`{}`))
	rr := httptest.NewRecorder()
	h.Create(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	repo.AssertExpectations(t)
}

func TestHandler_Create_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "Invalid JSON", body: `{not json`},
		{name: "Negative Limit", body: `{"limit": -1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(new(MockRepository), new(MockPublisher))
			req := httptest.NewRequest(http.MethodPost, "/runs", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			h.Create(rr, req)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Contains(t, rr.Body.String(), "VALIDATION_ERROR")
			assert.Contains(t, rr.Body.String(), "correlationId")
		})
	}
}

func TestHandler_List(t *testing.T) {
	repo := new(MockRepository)
	repo.On("List", mock.Anything).Return([]Run{{ID: "r1"}, {ID: "r2"}}, nil)

	h := newTestHandler(repo, new(MockPublisher))
	req := httptest.NewRequest(http.MethodGet, "/runs", nil)
	rr := httptest.NewRecorder()
	h.List(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Data []Run `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 2)
}

func TestHandler_List_EmptyIsArrayNotNull(t *testing.T) {
	repo := new(MockRepository)
	repo.On("List", mock.Anything).Return([]Run{}, nil)

	h := newTestHandler(repo, new(MockPublisher))
	req := httptest.NewRequest(http.MethodGet, "/runs", nil)
	rr := httptest.NewRecorder()
	h.List(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"data":[]`)
}

func TestHandler_Get(t *testing.T) {
	repo := new(MockRepository)
	repo.On("Get", mock.Anything, "run-1").Return(&Run{ID: "run-1", Status: StatusCompleted}, nil)

	h := newTestHandler(repo, new(MockPublisher))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /runs/{id}", h.Get)
	req := httptest.NewRequest(http.MethodGet, "/runs/run-1", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), StatusCompleted)
}

func TestHandler_Get_NotFound(t *testing.T) {
	repo := new(MockRepository)
	repo.On("Get", mock.Anything, "missing").Return(nil, sql.ErrNoRows)

	h := newTestHandler(repo, new(MockPublisher))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /runs/{id}", h.Get)
	req := httptest.NewRequest(http.MethodGet, "/runs/missing", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "NOT_FOUND")
}
