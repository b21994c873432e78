// Package qdrant provides a vector.Driver backed by a Qdrant collection over gRPC.
package qdrant

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	qc "github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/papercomputeco/graphchat/pkg/vector"
)

const (
	// DefaultPort is Qdrant's gRPC port.
	DefaultPort = 6334

	// DefaultCollectionName is used when Config.CollectionName is empty.
	DefaultCollectionName = "graphchat"

	// docIDKey and contentKey are reserved payload keys.
	docIDKey   = "doc_id"
	contentKey = "page_content"
)

// pointNamespace derives stable point UUIDs from arbitrary document IDs.
var pointNamespace = uuid.MustParse("6f1f7c4e-3a5b-4f0e-9a7c-2d1b8e6c5a40")

// Config holds Qdrant connection settings.
type Config struct {
	Host           string
	Port           int
	APIKey         string
	UseTLS         bool
	CollectionName string

	// Dimensions sizes the collection when it has to be created.
	Dimensions uint64
}

// Driver implements vector.Driver using Qdrant.
type Driver struct {
	client     *qc.Client
	collection string
	logger     *zap.Logger
}

var _ vector.Driver = (*Driver)(nil)

// NewDriver connects to Qdrant and ensures the collection exists.
func NewDriver(ctx context.Context, c Config, logger *zap.Logger) (*Driver, error) {
	if c.Host == "" {
		return nil, fmt.Errorf("qdrant host is required")
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.CollectionName == "" {
		c.CollectionName = DefaultCollectionName
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := qc.NewClient(&qc.Config{
		Host:   c.Host,
		Port:   c.Port,
		APIKey: c.APIKey,
		UseTLS: c.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", vector.ErrConnection, err)
	}

	d := &Driver{
		client:     client,
		collection: c.CollectionName,
		logger:     logger,
	}
	if err := d.ensureCollection(ctx, c.Dimensions); err != nil {
		client.Close()
		return nil, err
	}

	logger.Info("connected to qdrant",
		zap.String("host", c.Host),
		zap.Int("port", c.Port),
		zap.String("collection", c.CollectionName),
	)
	return d, nil
}

func (d *Driver) ensureCollection(ctx context.Context, dims uint64) error {
	exists, err := d.client.CollectionExists(ctx, d.collection)
	if err != nil {
		return fmt.Errorf("%w: checking collection: %w", vector.ErrConnection, err)
	}
	if exists {
		return nil
	}
	if dims == 0 {
		return fmt.Errorf("qdrant collection %q does not exist and dimensions are not configured", d.collection)
	}

	err = d.client.CreateCollection(ctx, &qc.CreateCollection{
		CollectionName: d.collection,
		VectorsConfig: qc.NewVectorsConfig(&qc.VectorParams{
			Size:     dims,
			Distance: qc.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", d.collection, err)
	}
	return nil
}

// PointID maps a document ID onto the UUID Qdrant stores it under.
func PointID(docID string) string {
	if _, err := uuid.Parse(docID); err == nil {
		return docID
	}
	return uuid.NewSHA1(pointNamespace, []byte(docID)).String()
}

// Add upserts documents as points.
func (d *Driver) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	points := make([]*qc.PointStruct, 0, len(docs))
	for _, doc := range docs {
		payload, err := encodePayload(doc)
		if err != nil {
			return fmt.Errorf("encoding payload for doc %s: %w", doc.ID, err)
		}
		points = append(points, &qc.PointStruct{
			Id:      qc.NewIDUUID(PointID(doc.ID)),
			Vectors: qc.NewVectors(doc.Embedding...),
			Payload: payload,
		})
	}

	wait := true
	if _, err := d.client.Upsert(ctx, &qc.UpsertPoints{
		CollectionName: d.collection,
		Wait:           &wait,
		Points:         points,
	}); err != nil {
		return fmt.Errorf("upserting points: %w", err)
	}

	d.logger.Debug("added documents to qdrant",
		zap.Int("count", len(docs)),
	)
	return nil
}

// Query finds the topK nearest points.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = 10
	}
	limit := uint64(topK)

	points, err := d.client.Query(ctx, &qc.QueryPoints{
		CollectionName: d.collection,
		Query:          qc.NewQuery(embedding...),
		Limit:          &limit,
		WithPayload:    qc.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("querying points: %w", err)
	}

	results := make([]vector.QueryResult, 0, len(points))
	for _, p := range points {
		results = append(results, vector.QueryResult{
			Document: decodePayload(p.GetId(), p.GetPayload()),
			Score:    p.GetScore(),
		})
	}

	d.logger.Debug("queried qdrant",
		zap.Int("results", len(results)),
	)
	return results, nil
}

func pointIDs(ids []string) []*qc.PointId {
	out := make([]*qc.PointId, len(ids))
	for i, id := range ids {
		out[i] = qc.NewIDUUID(PointID(id))
	}
	return out
}

// Get retrieves documents by ID; unknown IDs are skipped.
func (d *Driver) Get(ctx context.Context, ids []string) ([]vector.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	points, err := d.client.Get(ctx, &qc.GetPoints{
		CollectionName: d.collection,
		Ids:            pointIDs(ids),
		WithPayload:    qc.NewWithPayload(true),
		WithVectors:    qc.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("getting points: %w", err)
	}

	docs := make([]vector.Document, 0, len(points))
	for _, p := range points {
		doc := decodePayload(p.GetId(), p.GetPayload())
		doc.Embedding = p.GetVectors().GetVector().GetData()
		docs = append(docs, doc)
	}
	return docs, nil
}

// Delete removes points by document ID.
func (d *Driver) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	wait := true
	if _, err := d.client.Delete(ctx, &qc.DeletePoints{
		CollectionName: d.collection,
		Wait:           &wait,
		Points:         qc.NewPointsSelector(pointIDs(ids)...),
	}); err != nil {
		return fmt.Errorf("deleting points: %w", err)
	}
	return nil
}

// Close closes the gRPC connection.
func (d *Driver) Close() error {
	return d.client.Close()
}
