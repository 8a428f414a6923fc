package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"kb-engine/internal/config"
	"kb-engine/internal/domain/kbmodel"
	"kb-engine/internal/provider/retry"
	"kb-engine/pkg/logging"
)

type Qdrant struct {
	client     *qdrant.Client
	collection string
	logger     *logging.Logger
}

// NewQdrant connects and ensures the chunk collection exists (cosine space,
// the embedding gateway's dimensionality).
func NewQdrant(ctx context.Context, collection string) (*Qdrant, error) {
	logger := logging.New("Qdrant")

	host := config.Getenv("QDRANT_HOST", config.QdrantHost)
	port, err := strconv.Atoi(config.Getenv("QDRANT_PORT", ""))
	if err != nil {
		port = config.QdrantGrpcPort
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:     host,
		Port:     port,
		UseTLS:   config.QdrantUseTLS,
		PoolSize: uint(config.QdrantPoolSize),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %v", kbmodel.ErrStoreUnavailable, err)
	}

	q := &Qdrant{client: client, collection: collection, logger: logger}
	if err := q.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return q, nil
}

func (q *Qdrant) Close() error {
	return q.client.Close()
}

func (q *Qdrant) ensureCollection(ctx context.Context) error {
	if q.collection == "" {
		return errors.New("empty collection name")
	}

	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return fmt.Errorf("%w: collection check: %v", kbmodel.ErrStoreUnavailable, err)
	}
	if exists {
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(config.EmbeddingOutputDimensionality),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("%w: create collection: %v", kbmodel.ErrStoreUnavailable, err)
	}
	return nil
}

// Upsert writes chunks keyed by their caller-generated ids; re-writing the
// same id overwrites in place, never duplicates.
func (q *Qdrant) Upsert(ctx context.Context, chunks []kbmodel.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(chunks))
	for i, chunk := range chunks {
		if len(chunk.Vector) == 0 {
			return fmt.Errorf("chunk %s has no vector", chunk.ID)
		}
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(chunk.ID),
			Vectors: qdrant.NewVectors(chunk.Vector...),
			Payload: qdrant.NewValueMap(payloadFromChunk(chunk)),
		}
	}

	err := retry.Do(ctx, config.ProviderRetryAttempts, config.ProviderRetryBackoff, grpcRetryable, func() error {
		_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: q.collection,
			Points:         points,
			Wait:           qdrant.PtrOf(true),
		})
		return err
	})
	if err != nil {
		q.logger.Error("upsert failed", "points", len(points), "error", err)
		return fmt.Errorf("%w: upsert: %v", kbmodel.ErrStoreUnavailable, err)
	}
	return nil
}

// DeleteByFilter drops every point matching the filter. No matches is not an
// error. The zero filter is rejected so a bug can never wipe the collection.
func (q *Qdrant) DeleteByFilter(ctx context.Context, filter Filter) error {
	if filter.IsZero() {
		return errors.New("refusing to delete with an empty filter")
	}

	err := retry.Do(ctx, config.ProviderRetryAttempts, config.ProviderRetryBackoff, grpcRetryable, func() error {
		_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
			CollectionName: q.collection,
			Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
				Must: filterConditions(filter),
			}),
			Wait: qdrant.PtrOf(true),
		})
		return err
	})
	if err != nil {
		q.logger.Error("delete by filter failed", "error", err)
		return fmt.Errorf("%w: delete: %v", kbmodel.ErrStoreUnavailable, err)
	}
	return nil
}

// Query returns up to k nearest chunks by cosine distance. A provided but
// empty filter is fully exclusionary: empty result, not an error.
func (q *Qdrant) Query(ctx context.Context, vector []float32, k int, filter *Filter) ([]kbmodel.ScoredChunk, error) {
	if k <= 0 {
		k = config.DefaultTopK
	}
	var qf *qdrant.Filter
	if filter != nil {
		if filter.IsZero() {
			return nil, nil
		}
		qf = &qdrant.Filter{Must: filterConditions(*filter)}
	}

	var hits []*qdrant.ScoredPoint
	err := retry.Do(ctx, config.ProviderRetryAttempts, config.ProviderRetryBackoff, grpcRetryable, func() error {
		var callErr error
		hits, callErr = q.client.Query(ctx, &qdrant.QueryPoints{
			CollectionName: q.collection,
			Query:          qdrant.NewQuery(vector...),
			Filter:         qf,
			Limit:          qdrant.PtrOf(uint64(k)),
			WithPayload:    qdrant.NewWithPayload(true),
		})
		return callErr
	})
	if err != nil {
		q.logger.Error("query failed", "error", err)
		return nil, fmt.Errorf("%w: query: %v", kbmodel.ErrStoreUnavailable, err)
	}

	results := make([]kbmodel.ScoredChunk, 0, len(hits))
	for _, hit := range hits {
		results = append(results, chunkFromPayload(hit.Id.GetUuid(), hit.Score, hit.Payload))
	}
	return results, nil
}

func grpcRetryable(err error) bool {
	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded:
			return true
		}
	}
	return false
}
