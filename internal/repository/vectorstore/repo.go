// Package vectorstore persists embedded documents as hashes behind an
// FT vector index and serves the semantic-cache KNN probes.
package vectorstore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/luminehq/lumine/internal/db"
	"github.com/luminehq/lumine/internal/domain"
)

const (
	fieldText   = "text"
	fieldURI    = "uri"
	fieldVector = "vector"
)

// store is the consumer interface for the vector store (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string, deleteDocs bool) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Config holds the collection parameters.
type Config struct {
	KeyPrefix  string
	Collection string
	Dimension  int
	HNSWM      int
	HNSWEF     int
}

// Repo implements usecase/retrieval.VectorStore.
type Repo struct {
	store store
	cfg   Config
}

// New creates a vector store repository.
func New(s store, cfg Config) *Repo {
	return &Repo{store: s, cfg: cfg}
}

// Reset drops the collection (index and documents) and recreates it empty.
func (r *Repo) Reset(ctx context.Context) error {
	err := r.store.DropIndex(ctx, r.indexName(), true)
	if err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index %s: %w", r.indexName(), err)
	}
	return r.createIndex(ctx)
}

// EnsureIndex creates the collection index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, r.indexName())
	if err != nil {
		return fmt.Errorf("check index %s: %w", r.indexName(), err)
	}
	if exists {
		return nil
	}
	return r.createIndex(ctx)
}

func (r *Repo) createIndex(ctx context.Context) error {
	def := &db.IndexDefinition{
		Name:     r.indexName(),
		Prefixes: []string{r.keyPrefix()},
		Fields: []db.IndexField{
			{Name: fieldText, Type: db.IndexFieldText},
			{
				Name:              fieldVector,
				Type:              db.IndexFieldVector,
				VectorAlgo:        db.VectorHNSW,
				VectorDim:         r.cfg.Dimension,
				VectorDistance:    db.DistanceCosine,
				VectorM:           r.cfg.HNSWM,
				VectorEFConstruct: r.cfg.HNSWEF,
			},
		},
	}
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", r.indexName(), err)
	}
	return nil
}

// Search runs a KNN probe and returns documents scored by cosine similarity,
// descending. Entries below minScore are dropped; minScore <= 0 disables the cut.
func (r *Repo) Search(ctx context.Context, vector []float32, limit int, minScore float64) (
	[]domain.ScoredDocument, error,
) {
	q := &db.KNNQuery{
		IndexName:    r.indexName(),
		Vector:       vector,
		K:            limit,
		ReturnFields: []string{fieldText, fieldURI, "__vector_score"},
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search knn %s: %w", r.cfg.Collection, err)
	}
	if sr == nil || sr.Total == 0 {
		return nil, nil
	}

	docs := make([]domain.ScoredDocument, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		if minScore > 0 && entry.Score < minScore {
			continue
		}
		docs = append(docs, domain.ScoredDocument{
			Document: domain.Document{
				URI:  entry.Fields[fieldURI],
				Text: entry.Fields[fieldText],
			},
			Score: entry.Score,
		})
	}
	return docs, nil
}

// Upsert writes points in a single pipelined batch. Point IDs are
// content-derived, so re-ingesting the same document overwrites in place.
func (r *Repo) Upsert(ctx context.Context, points []domain.StoredPoint) error {
	if len(points) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, 0, len(points))
	for _, p := range points {
		items = append(items, db.HashSetItem{
			Key: r.pointKey(p.ID),
			Fields: map[string]string{
				fieldText:   p.Document.Text,
				fieldURI:    p.Document.URI,
				fieldVector: vectorToBytes(p.Vector),
			},
		})
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert %d points into %s: %w", len(points), r.cfg.Collection, err)
	}
	return nil
}

func (r *Repo) indexName() string {
	return fmt.Sprintf("%s%s:idx", r.cfg.KeyPrefix, r.cfg.Collection)
}

func (r *Repo) keyPrefix() string {
	return fmt.Sprintf("%s%s:", r.cfg.KeyPrefix, r.cfg.Collection)
}

func (r *Repo) pointKey(id string) string {
	return r.keyPrefix() + id
}

// vectorToBytes serializes []float32 to the binary string FT expects.
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
