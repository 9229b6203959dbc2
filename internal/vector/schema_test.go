package vector_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/weaviate/weaviate/entities/models"

	"fleetrag/internal/vector"
)

type MockSchemaClient struct{ mock.Mock }

func (m *MockSchemaClient) ClassExists(ctx context.Context, className string) (bool, error) {
	args := m.Called(ctx, className)
	return args.Bool(0), args.Error(1)
}

func (m *MockSchemaClient) CreateClass(ctx context.Context, class *models.Class) error {
	return m.Called(ctx, class).Error(0)
}

func (m *MockSchemaClient) DeleteClass(ctx context.Context, className string) error {
	return m.Called(ctx, className).Error(0)
}

func (m *MockSchemaClient) GetClass(ctx context.Context, className string) (*models.Class, error) {
	args := m.Called(ctx, className)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Class), args.Error(1)
}

func (m *MockSchemaClient) AddProperty(ctx context.Context, className string, property *models.Property) error {
	return m.Called(ctx, className, property).Error(0)
}

func TestChunkClass(t *testing.T) {
	class := vector.ChunkClass()

	assert.Equal(t, "InvoiceChunk", class.Class)
	assert.Equal(t, "none", class.Vectorizer, "vectors are supplied externally")

	cfg, ok := class.VectorIndexConfig.(map[string]interface{})
	assert.True(t, ok)
	assert.Equal(t, "cosine", cfg["distance"])

	names := make(map[string]bool)
	for _, p := range class.Properties {
		names[p.Name] = true
	}
	for _, want := range []string{"text", "chunkId", "ordinal", "invoiceId", "date", "customerName", "vehicleYear", "vehicleMake", "vehicleModel", "vin", "mileage"} {
		assert.True(t, names[want], "missing property %s", want)
	}
}

func TestEnsureSchema_CreatesMissingClass(t *testing.T) {
	client := new(MockSchemaClient)
	client.On("ClassExists", mock.Anything, "InvoiceChunk").Return(false, nil)
	client.On("CreateClass", mock.Anything, mock.MatchedBy(func(c *models.Class) bool {
		return c.Class == "InvoiceChunk"
	})).Return(nil)

	err := vector.EnsureSchema(context.Background(), client)
	assert.NoError(t, err)
	client.AssertExpectations(t)
}

func TestEnsureSchema_BackfillsMissingProperties(t *testing.T) {
	client := new(MockSchemaClient)
	client.On("ClassExists", mock.Anything, "InvoiceChunk").Return(true, nil)
	client.On("GetClass", mock.Anything, "InvoiceChunk").Return(&models.Class{
		Class: "InvoiceChunk",
		Properties: []*models.Property{
			{Name: "text"},
			{Name: "chunkId"},
		},
	}, nil)
	client.On("AddProperty", mock.Anything, "InvoiceChunk", mock.Anything).Return(nil)

	err := vector.EnsureSchema(context.Background(), client)
	assert.NoError(t, err)

	// Everything except the two present properties gets backfilled.
	client.AssertNumberOfCalls(t, "AddProperty", len(vector.ChunkClass().Properties)-2)
}

func TestEnsureSchema_NoChangesWhenComplete(t *testing.T) {
	client := new(MockSchemaClient)
	client.On("ClassExists", mock.Anything, "InvoiceChunk").Return(true, nil)
	client.On("GetClass", mock.Anything, "InvoiceChunk").Return(vector.ChunkClass(), nil)

	err := vector.EnsureSchema(context.Background(), client)
	assert.NoError(t, err)
	client.AssertNotCalled(t, "AddProperty", mock.Anything, mock.Anything, mock.Anything)
	client.AssertNotCalled(t, "CreateClass", mock.Anything, mock.Anything)
}

func TestEnsureSchema_PropagatesErrors(t *testing.T) {
	client := new(MockSchemaClient)
	client.On("ClassExists", mock.Anything, "InvoiceChunk").Return(false, errors.New("connection refused"))

	err := vector.EnsureSchema(context.Background(), client)
	assert.Error(t, err)
}
