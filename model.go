package drivesearch

import (
	"github.com/vettore/drivesearch/vector"
)

// DefaultTopK applies when neither the request nor the configuration
// sets a result count.
const DefaultTopK = 5

type Config struct {
	Vector vector.Config `json:"vector" yaml:"vector"`
}

// SearchRequest is the wire shape of a search call. Query and
// QueryEmbedding are mutually exclusive; QueryEmbedding wins when both
// are present. A zero TopK means "use the configured default".
type SearchRequest struct {
	Query          string    `json:"query,omitempty" yaml:"query,omitempty"`
	QueryEmbedding []float32 `json:"query_embedding,omitempty" yaml:"query_embedding,omitempty"`
	TopK           int       `json:"top_k,omitempty" yaml:"top_k,omitempty"`
}

// IndexStatus describes the loaded index.
type IndexStatus struct {
	Records          int  `json:"records"`
	Dimensions       int  `json:"dimensions"`
	EncoderAvailable bool `json:"encoder_available"`
}
