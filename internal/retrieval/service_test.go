package retrieval_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fleetrag/internal/chunk"
	"fleetrag/internal/retrieval"
)

type MockEmbedder struct{ mock.Mock }

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

type MockIndex struct{ mock.Mock }

func (m *MockIndex) Query(ctx context.Context, vector []float32, k int) ([]retrieval.Hit, error) {
	args := m.Called(ctx, vector, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]retrieval.Hit), args.Error(1)
}

func TestService_Retrieve(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		k       int
		setup   func(*MockEmbedder, *MockIndex)
		wantErr bool
		check   func(*testing.T, []retrieval.RetrievedChunk)
	}{
		{
			name:  "Success",
			query: "battery failure",
			k:     2,
			setup: func(e *MockEmbedder, idx *MockIndex) {
				e.On("Embed", mock.Anything, "battery failure").Return([]float32{0.1, 0.2}, nil)
				idx.On("Query", mock.Anything, []float32{0.1, 0.2}, 2).Return([]retrieval.Hit{
					{Chunk: chunk.Chunk{Text: "battery chunk", Metadata: map[string]string{"invoice_id": "1"}}, Distance: 0.1},
					{Chunk: chunk.Chunk{Text: "brake chunk", Metadata: map[string]string{"invoice_id": "2"}}, Distance: 0.6},
				}, nil)
			},
			check: func(t *testing.T, results []retrieval.RetrievedChunk) {
				require.Len(t, results, 2)
				assert.Equal(t, "battery chunk", results[0].Text)
				assert.Equal(t, 1, results[0].Rank)
				assert.InDelta(t, 0.9, results[0].Similarity, 1e-9)
				assert.Equal(t, 2, results[1].Rank)
				assert.InDelta(t, 0.4, results[1].Similarity, 1e-9)
			},
		},
		{
			name:  "Empty Index",
			query: "anything",
			k:     5,
			setup: func(e *MockEmbedder, idx *MockIndex) {
				e.On("Embed", mock.Anything, "anything").Return([]float32{0.3}, nil)
				idx.On("Query", mock.Anything, []float32{0.3}, 5).Return([]retrieval.Hit{}, nil)
			},
			check: func(t *testing.T, results []retrieval.RetrievedChunk) {
				assert.Empty(t, results)
			},
		},
		{
			name:  "Embedder Error",
			query: "q",
			k:     3,
			setup: func(e *MockEmbedder, idx *MockIndex) {
				e.On("Embed", mock.Anything, "q").Return(nil, errors.New("embed error"))
			},
			wantErr: true,
		},
		{
			name:  "Index Error",
			query: "q",
			k:     3,
			setup: func(e *MockEmbedder, idx *MockIndex) {
				e.On("Embed", mock.Anything, "q").Return([]float32{0.1}, nil)
				idx.On("Query", mock.Anything, []float32{0.1}, 3).Return(nil, errors.New("index error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := new(MockEmbedder)
			idx := new(MockIndex)
			tt.setup(e, idx)

			svc := retrieval.NewService(e, idx, nil)
			results, err := svc.Retrieve(context.Background(), tt.query, tt.k)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				tt.check(t, results)
			}
			e.AssertExpectations(t)
			idx.AssertExpectations(t)
		})
	}
}

func TestService_Retrieve_LogsQuery(t *testing.T) {
	e := new(MockEmbedder)
	idx := new(MockIndex)
	e.On("Embed", mock.Anything, "oil leak").Return([]float32{0.5}, nil)
	idx.On("Query", mock.Anything, []float32{0.5}, 1).Return([]retrieval.Hit{
		{Chunk: chunk.Chunk{Text: "oil chunk"}, Distance: 0.2},
	}, nil)

	var buf bytes.Buffer
	svc := retrieval.NewService(e, idx, retrieval.NewQueryLogger(&buf))

	_, err := svc.Retrieve(context.Background(), "oil leak", 1)
	require.NoError(t, err)

	assert.Contains(t, buf.String(), `"query":"oil leak"`)
	assert.Contains(t, buf.String(), `"num_results":1`)
}
