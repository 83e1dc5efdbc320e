package vector

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
)

var (
	// ErrNotAvailable is returned when the vector index feature is
	// disabled by configuration.
	ErrNotAvailable = errors.New("vector index is not available")

	// ErrConfig marks failures caused by operator or caller input:
	// missing or malformed artifacts, incomplete configuration, unusable
	// query vectors. ErrConfig errors are never retried by the store.
	ErrConfig = errors.New("vector index configuration error")
)

// Config holds the settings of the vector index.
type Config struct {
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	Embeddings  string `json:"embeddings" yaml:"embeddings"`
	Metadata    string `json:"metadata" yaml:"metadata"`
	Documents   string `json:"documents" yaml:"documents"`
	Model       string `json:"model,omitempty" yaml:"model,omitempty"`
	DefaultTopK int    `json:"defaultTopK,omitempty" yaml:"defaultTopK,omitempty"`
}

// SearchResult pairs a cosine similarity score with the record it was
// computed for. The record is shared with the store, not copied.
type SearchResult struct {
	Score  float64 `json:"score"`
	Record *Record `json:"record"`
}

// Store is an immutable in-memory cosine similarity index. Row i of the
// embedding matrix corresponds to record i; every row is unit-normalized
// at load time, so a matrix-vector product against a unit query vector
// yields cosine similarities directly. A Store is safe for concurrent
// use once built.
type Store struct {
	rows    [][]float32
	dim     int
	records []*Record
	encoder QueryEncoder
}

// New builds a Store from the artifacts named by cfg. When encoder is
// nil, one is derived from cfg.Model. Construction fails with ErrConfig
// if any artifact is missing, malformed, or if the embedding row count
// does not match the record count.
func New(cfg Config, encoder QueryEncoder) (*Store, error) {
	for _, path := range []string{cfg.Embeddings, cfg.Metadata, cfg.Documents} {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("%w: artifact not found: %s", ErrConfig, path)
		}
	}

	rows, err := readNPY(cfg.Embeddings)
	if err != nil {
		return nil, err
	}

	dim := 0
	if len(rows) > 0 {
		dim = len(rows[0])
	}
	for i, row := range rows {
		if len(row) != dim {
			return nil, fmt.Errorf("%w: embedding row %d has %d dimensions, expected %d",
				ErrConfig, i, len(row), dim)
		}
		normalize(row)
	}

	records, err := loadRecords(cfg.Metadata, cfg.Documents)
	if err != nil {
		return nil, err
	}

	if len(rows) != len(records) {
		return nil, fmt.Errorf("%w: mismatch between embeddings (%d) and records (%d)",
			ErrConfig, len(rows), len(records))
	}

	if encoder == nil {
		encoder = NewEncoder(cfg.Model)
	}

	return &Store{
		rows:    rows,
		dim:     dim,
		records: records,
		encoder: encoder,
	}, nil
}

// Len returns the number of indexed records.
func (s *Store) Len() int { return len(s.records) }

// Dim returns the embedding dimensionality.
func (s *Store) Dim() int { return s.dim }

// EncoderAvailable reports whether text queries can be embedded, or
// whether callers must supply a precomputed query vector.
func (s *Store) EncoderAvailable() bool { return s.encoder.Available() }

// Search returns the topK records most similar to the query, descending
// by cosine similarity. Exactly one of query / queryEmbedding must be
// usable: a supplied embedding takes precedence and is re-normalized
// before use; otherwise the query text is embedded via the configured
// encoder. The order among equal scores is unspecified.
func (s *Store) Search(ctx context.Context, query string, queryEmbedding []float32, topK int) ([]SearchResult, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive, got %d", ErrConfig, topK)
	}

	var q []float32
	if queryEmbedding != nil {
		if len(queryEmbedding) != s.dim {
			return nil, fmt.Errorf("%w: query embedding has %d dimensions, index has %d",
				ErrConfig, len(queryEmbedding), s.dim)
		}

		q = append([]float32(nil), queryEmbedding...)
		if normalize(q) == 0 {
			return nil, fmt.Errorf("%w: query embedding must not be the zero vector", ErrConfig)
		}
	} else {
		if query == "" {
			return nil, fmt.Errorf("%w: either a text query or a query embedding is required", ErrConfig)
		}

		embedded, err := s.encoder.Encode(ctx, query)
		if err != nil {
			return nil, err
		}
		if len(embedded) != s.dim {
			return nil, fmt.Errorf("%w: encoder produced %d dimensions, index has %d",
				ErrConfig, len(embedded), s.dim)
		}

		q = embedded
		if normalize(q) == 0 {
			return nil, fmt.Errorf("%w: encoder produced a zero vector", ErrConfig)
		}
	}

	scores := make([]float64, len(s.rows))
	for i, row := range s.rows {
		scores[i] = dot(row, q)
	}

	indices := topIndices(scores, topK)

	results := make([]SearchResult, len(indices))
	for i, idx := range indices {
		results[i] = SearchResult{
			Score:  scores[idx],
			Record: s.records[idx],
		}
	}

	return results, nil
}

// topIndices selects the k highest-scoring row indices, descending by
// score. When k covers all rows it is a full descending sort; otherwise
// a bounded min-heap keeps the selection at O(n log k).
func topIndices(scores []float64, k int) []int {
	n := len(scores)
	if k >= n {
		indices := make([]int, n)
		for i := range indices {
			indices[i] = i
		}
		sort.Slice(indices, func(a, b int) bool {
			return scores[indices[a]] > scores[indices[b]]
		})
		return indices
	}

	h := &minScoreHeap{scores: scores}
	for i := 0; i < n; i++ {
		if h.Len() < k {
			heap.Push(h, i)
		} else if scores[i] > scores[h.indices[0]] {
			h.indices[0] = i
			heap.Fix(h, 0)
		}
	}

	indices := h.indices
	sort.Slice(indices, func(a, b int) bool {
		return scores[indices[a]] > scores[indices[b]]
	})
	return indices
}

// minScoreHeap is a min-heap of row indices ordered by their scores,
// holding the best k seen so far with the worst of them on top.
type minScoreHeap struct {
	scores  []float64
	indices []int
}

func (h *minScoreHeap) Len() int { return len(h.indices) }

func (h *minScoreHeap) Less(a, b int) bool {
	return h.scores[h.indices[a]] < h.scores[h.indices[b]]
}

func (h *minScoreHeap) Swap(a, b int) {
	h.indices[a], h.indices[b] = h.indices[b], h.indices[a]
}

func (h *minScoreHeap) Push(x any) {
	h.indices = append(h.indices, x.(int))
}

func (h *minScoreHeap) Pop() any {
	last := h.indices[len(h.indices)-1]
	h.indices = h.indices[:len(h.indices)-1]
	return last
}

// normalize scales v to unit length in place and returns its original
// L2 norm. A zero vector is left untouched so load-time normalization
// never manufactures NaNs.
func normalize(v []float32) float64 {
	norm := magnitude(v)
	if norm == 0 {
		return 0
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return norm
}

func magnitude(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
