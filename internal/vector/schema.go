// Package vector manages the Weaviate schema for the invoice chunk class.
package vector

import (
	"context"

	"github.com/weaviate/weaviate/entities/models"
)

// ClassName is the logical collection holding indexed invoice chunks.
const ClassName = "InvoiceChunk"

// SchemaClient defines the interface for Weaviate schema operations.
type SchemaClient interface {
	ClassExists(ctx context.Context, className string) (bool, error)
	CreateClass(ctx context.Context, class *models.Class) error
	DeleteClass(ctx context.Context, className string) error
	GetClass(ctx context.Context, className string) (*models.Class, error)
	AddProperty(ctx context.Context, className string, property *models.Property) error
}

// ChunkClass is the schema definition: chunk text plus the stringified
// invoice-level metadata, vectors supplied externally, cosine distance.
func ChunkClass() *models.Class {
	return &models.Class{
		Class:       ClassName,
		Description: "One repair narrative with its invoice context",
		Vectorizer:  "none",
		VectorIndexConfig: map[string]interface{}{
			"distance": "cosine",
		},
		Properties: []*models.Property{
			{Name: "text", DataType: []string{"text"}},
			{Name: "chunkId", DataType: []string{"string"}},
			{Name: "ordinal", DataType: []string{"int"}},
			{Name: "invoiceId", DataType: []string{"string"}},
			{Name: "date", DataType: []string{"string"}},
			{Name: "customerName", DataType: []string{"text"}},
			{Name: "vehicleYear", DataType: []string{"string"}},
			{Name: "vehicleMake", DataType: []string{"string"}},
			{Name: "vehicleModel", DataType: []string{"string"}},
			{Name: "vin", DataType: []string{"string"}},
			{Name: "mileage", DataType: []string{"string"}},
		},
	}
}

// EnsureSchema creates the chunk class if it does not exist, and backfills
// any missing properties on an existing class.
func EnsureSchema(ctx context.Context, client SchemaClient) error {
	exists, err := client.ClassExists(ctx, ClassName)
	if err != nil {
		return err
	}

	desired := ChunkClass()
	if !exists {
		return client.CreateClass(ctx, desired)
	}

	class, err := client.GetClass(ctx, ClassName)
	if err != nil {
		return err
	}

	existing := make(map[string]bool)
	for _, p := range class.Properties {
		existing[p.Name] = true
	}
	for _, p := range desired.Properties {
		if !existing[p.Name] {
			if err := client.AddProperty(ctx, ClassName, p); err != nil {
				return err
			}
		}
	}
	return nil
}
