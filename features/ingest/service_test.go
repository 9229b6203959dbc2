package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fleetrag/internal/config"
	"fleetrag/internal/middleware"
)

type MockRepository struct{ mock.Mock }

func (m *MockRepository) Save(ctx context.Context, run *Run) error {
	args := m.Called(ctx, run)
	if args.Error(0) == nil {
		run.ID = "run-id-1"
	}
	return args.Error(0)
}

func (m *MockRepository) Get(ctx context.Context, id string) (*Run, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Run), args.Error(1)
}

func (m *MockRepository) List(ctx context.Context) ([]Run, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Run), args.Error(1)
}

func (m *MockRepository) MarkProcessing(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockRepository) Complete(ctx context.Context, id string, documents, indexed, skipped, chunks int) error {
	return m.Called(ctx, id, documents, indexed, skipped, chunks).Error(0)
}

func (m *MockRepository) Fail(ctx context.Context, id, message string) error {
	return m.Called(ctx, id, message).Error(0)
}

func (m *MockRepository) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type MockPublisher struct{ mock.Mock }

func (m *MockPublisher) Publish(topic string, body []byte) error {
	return m.Called(topic, body).Error(0)
}

func TestService_Create(t *testing.T) {
	repo := new(MockRepository)
	pub := new(MockPublisher)

	repo.On("Save", mock.Anything, mock.MatchedBy(func(r *Run) bool {
		return r.InputDir == "data/invoices" && r.SampleLimit == 5 && r.Status == StatusQueued
	})).Return(nil)
	pub.On("Publish", config.TopicIngestTask, mock.Anything).Return(nil)

	svc := NewService(repo, pub)
	ctx := middleware.WithCorrelationID(context.Background(), "corr-9")
	run, err := svc.Create(ctx, "data/invoices", 5)

	require.NoError(t, err)
	assert.Equal(t, "run-id-1", run.ID)
	assert.Equal(t, StatusQueued, run.Status)

	// The published payload carries everything the worker needs.
	body := pub.Calls[0].Arguments.Get(1).([]byte)
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, "run-id-1", payload["run_id"])
	assert.Equal(t, "data/invoices", payload["input_dir"])
	assert.Equal(t, float64(5), payload["limit"])
	assert.Equal(t, "corr-9", payload["correlation_id"])
}

func TestService_Create_SaveError(t *testing.T) {
	repo := new(MockRepository)
	pub := new(MockPublisher)
	repo.On("Save", mock.Anything, mock.Anything).Return(errors.New("db down"))

	svc := NewService(repo, pub)
	run, err := svc.Create(context.Background(), "data/invoices", 0)

	assert.Error(t, err)
	assert.Nil(t, run)
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestService_Create_PublishErrorMarksRunFailed(t *testing.T) {
	repo := new(MockRepository)
	pub := new(MockPublisher)

	repo.On("Save", mock.Anything, mock.Anything).Return(nil)
	pub.On("Publish", config.TopicIngestTask, mock.Anything).Return(errors.New("nsq unreachable"))
	repo.On("Fail", mock.Anything, "run-id-1", mock.MatchedBy(func(msg string) bool {
		return len(msg) > 0
	})).Return(nil)

	svc := NewService(repo, pub)
	run, err := svc.Create(context.Background(), "data/invoices", 0)

	assert.Error(t, err)
	assert.Nil(t, run)
	repo.AssertExpectations(t)
}

func TestService_GetAndList(t *testing.T) {
	repo := new(MockRepository)
	repo.On("Get", mock.Anything, "r1").Return(&Run{ID: "r1"}, nil)
	repo.On("List", mock.Anything).Return([]Run{{ID: "r1"}, {ID: "r2"}}, nil)

	svc := NewService(repo, new(MockPublisher))

	run, err := svc.Get(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "r1", run.ID)

	runs, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}
