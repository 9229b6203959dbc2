// Package weaviate is the production vector index backend: an InvoiceChunk
// class with externally supplied vectors and cosine distance.
package weaviate

import (
	"context"
	"fmt"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"fleetrag/internal/chunk"
	"fleetrag/internal/retrieval"
	"fleetrag/internal/vector"
)

// metadataProps maps chunk metadata keys to Weaviate property names.
var metadataProps = map[string]string{
	"invoice_id":    "invoiceId",
	"date":          "date",
	"customer_name": "customerName",
	"vehicle_year":  "vehicleYear",
	"vehicle_make":  "vehicleMake",
	"vehicle_model": "vehicleModel",
	"vin":           "vin",
	"mileage":       "mileage",
}

type Store struct {
	client *weaviate.Client
}

func NewStore(client *weaviate.Client) *Store {
	return &Store{client: client}
}

// Rebuild destructively replaces the collection: the class is deleted,
// recreated, and repopulated in one batch. Chunk ids are chunk_<ordinal>.
// Concurrent rebuilds are not supported; the intended pattern is offline
// batch ingest followed by read-only serving.
func (s *Store) Rebuild(ctx context.Context, chunks []chunk.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d chunks, %d vectors", len(chunks), len(vectors))
	}

	schema := vector.NewWeaviateClientAdapter(s.client)
	exists, err := schema.ClassExists(ctx, vector.ClassName)
	if err != nil {
		return err
	}
	if exists {
		if err := schema.DeleteClass(ctx, vector.ClassName); err != nil {
			return fmt.Errorf("delete class: %w", err)
		}
	}
	if err := vector.EnsureSchema(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	if len(chunks) == 0 {
		return nil
	}

	objects := make([]*models.Object, 0, len(chunks))
	for i, c := range chunks {
		props := map[string]interface{}{
			"text":    c.Text,
			"chunkId": fmt.Sprintf("chunk_%d", i),
			"ordinal": i,
		}
		for key, prop := range metadataProps {
			if v, ok := c.Metadata[key]; ok {
				props[prop] = v
			}
		}
		objects = append(objects, &models.Object{
			Class:      vector.ClassName,
			Properties: props,
			Vector:     models.C11yVector(vectors[i]),
		})
	}

	resp, err := s.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return fmt.Errorf("batch insert: %w", err)
	}
	for _, r := range resp {
		if r.Result != nil && r.Result.Errors != nil && len(r.Result.Errors.Error) > 0 {
			return fmt.Errorf("batch insert object: %s", r.Result.Errors.Error[0].Message)
		}
	}
	return nil
}

// Query returns the k nearest chunks by ascending cosine distance. A missing
// class means the index has not been built yet and yields an empty result.
func (s *Store) Query(ctx context.Context, vec []float32, k int) ([]retrieval.Hit, error) {
	if k <= 0 {
		return nil, nil
	}

	exists, err := vector.NewWeaviateClientAdapter(s.client).ClassExists(ctx, vector.ClassName)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(vec)

	fields := []graphql.Field{
		{Name: "text"},
		{Name: "invoiceId"},
		{Name: "date"},
		{Name: "customerName"},
		{Name: "vehicleYear"},
		{Name: "vehicleMake"},
		{Name: "vehicleModel"},
		{Name: "vin"},
		{Name: "mileage"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "distance"}}},
	}

	res, err := s.client.GraphQL().Get().
		WithClassName(vector.ClassName).
		WithNearVector(nearVector).
		WithLimit(k).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %v", res.Errors)
	}

	var hits []retrieval.Hit
	data, ok := res.Data["Get"].(map[string]interface{})
	if !ok {
		return hits, nil
	}
	rawChunks, ok := data[vector.ClassName].([]interface{})
	if !ok {
		return hits, nil
	}

	for _, raw := range rawChunks {
		props, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}

		c := chunk.Chunk{Metadata: make(map[string]string)}
		if text, ok := props["text"].(string); ok {
			c.Text = text
		}
		for key, prop := range metadataProps {
			if v, ok := props[prop].(string); ok {
				c.Metadata[key] = v
			}
		}

		var distance float64
		if additional, ok := props["_additional"].(map[string]interface{}); ok {
			if d, ok := additional["distance"].(float64); ok {
				distance = d
			}
		}

		hits = append(hits, retrieval.Hit{Chunk: c, Distance: distance})
	}
	return hits, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	exists, err := vector.NewWeaviateClientAdapter(s.client).ClassExists(ctx, vector.ClassName)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}

	res, err := s.client.GraphQL().Aggregate().
		WithClassName(vector.ClassName).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}).
		Do(ctx)
	if err != nil {
		return 0, err
	}
	if len(res.Errors) > 0 {
		return 0, fmt.Errorf("graphql error: %v", res.Errors)
	}

	if agg, ok := res.Data["Aggregate"].(map[string]interface{}); ok {
		if rows, ok := agg[vector.ClassName].([]interface{}); ok && len(rows) > 0 {
			if row, ok := rows[0].(map[string]interface{}); ok {
				if meta, ok := row["meta"].(map[string]interface{}); ok {
					if count, ok := meta["count"].(float64); ok {
						return int(count), nil
					}
				}
			}
		}
	}
	return 0, nil
}
