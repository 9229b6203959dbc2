package query

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fleetrag/internal/pipeline"
)

type MockAnswerer struct{ mock.Mock }

func (m *MockAnswerer) Run(ctx context.Context, query string, k int) (*pipeline.Result, error) {
	args := m.Called(ctx, query, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pipeline.Result), args.Error(1)
}

func TestHandler_Query(t *testing.T) {
	answerer := new(MockAnswerer)
	answerer.On("Run", mock.Anything, "when was the battery replaced", 3).Return(&pipeline.Result{
		Query:          "when was the battery replaced",
		Answer:         "The battery was replaced on 3/1/2024 (invoice 12345).",
		SourceInvoices: []string{"12345"},
		NumSources:     1,
	}, nil)

	h := NewHandler(answerer, 5)
	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query": "when was the battery replaced", "k": 3}`))
	rr := httptest.NewRecorder()
	h.Query(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Data pipeline.Result `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "The battery was replaced on 3/1/2024 (invoice 12345).", resp.Data.Answer)
	assert.Equal(t, []string{"12345"}, resp.Data.SourceInvoices)
	assert.Equal(t, 1, resp.Data.NumSources)
	answerer.AssertExpectations(t)
}

func TestHandler_Query_DefaultsK(t *testing.T) {
	answerer := new(MockAnswerer)
	answerer.On("Run", mock.Anything, "oil leak", 5).Return(&pipeline.Result{Query: "oil leak"}, nil)

	h := NewHandler(answerer, 5)
	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query": "oil leak"}`))
	rr := httptest.NewRecorder()
	h.Query(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	answerer.AssertExpectations(t)
}

func TestHandler_Query_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "Invalid JSON", body: `{not json`},
		{name: "Empty Query", body: `{"query": ""}`},
		{name: "Negative K", body: `{"query": "oil leak", "k": -2}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			answerer := new(MockAnswerer)
			h := NewHandler(answerer, 5)
			req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			h.Query(rr, req)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Contains(t, rr.Body.String(), "VALIDATION_ERROR")
			assert.Contains(t, rr.Body.String(), "correlationId")
			answerer.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestHandler_Query_PipelineError(t *testing.T) {
	answerer := new(MockAnswerer)
	answerer.On("Run", mock.Anything, "oil leak", 5).Return(nil, errors.New("embedding quota exceeded"))

	h := NewHandler(answerer, 5)
	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query": "oil leak"}`))
	rr := httptest.NewRecorder()
	h.Query(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "INTERNAL_ERROR")
	assert.NotContains(t, rr.Body.String(), "quota")
}
