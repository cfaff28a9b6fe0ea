package domain

import "github.com/google/uuid"

// Document is a single retrievable unit: a social post or a web snippet.
// URI is an opaque source locator (an AT-proto URI or a web URL).
// Documents are immutable once created.
type Document struct {
	URI  string `json:"uri"`
	Text string `json:"text"`
}

// ScoredDocument is a similarity-search hit. Score is cosine similarity in [0,1].
type ScoredDocument struct {
	Document
	Score float64 `json:"score"`
}

// StoredPoint is a document plus its embedding as persisted in the vector store.
type StoredPoint struct {
	ID       string
	Vector   []float32
	Document Document
}

// PointID derives the storage id from document text via UUIDv5 name hashing.
// Re-ingesting identical text always maps to the same point, so upserts
// overwrite instead of duplicating.
func PointID(text string) string {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(text)).String()
}

// NewStoredPoint builds a point with a deterministic id.
func NewStoredPoint(doc Document, vector []float32) StoredPoint {
	return StoredPoint{
		ID:       PointID(doc.Text),
		Vector:   vector,
		Document: doc,
	}
}

// SourcedVector pairs an embedding with the document it was computed from,
// so callers can re-attach metadata after embedding.
type SourcedVector struct {
	Document Document
	Vector   []float32
}

// DedupDocuments drops documents with duplicate text, first occurrence wins.
func DedupDocuments(docs []Document) []Document {
	seen := make(map[string]struct{}, len(docs))
	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		if _, ok := seen[d.Text]; ok {
			continue
		}
		seen[d.Text] = struct{}{}
		out = append(out, d)
	}
	return out
}
