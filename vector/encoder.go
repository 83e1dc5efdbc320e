package vector

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/philippgille/chromem-go"
)

// QueryEncoder turns a raw query string into an embedding vector.
// Implementations can call any embedding provider as long as they return
// a vector matching the dimensionality of the stored embeddings.
type QueryEncoder interface {
	Encode(ctx context.Context, query string) ([]float32, error)
	Available() bool
}

// NewEncoder picks the encoder variant for the configured model name.
// An empty name yields an encoder that always fails with ErrConfig,
// pointing the caller at the query_embedding escape hatch. Names of the
// form "ollama/<model>" use a local Ollama instance; anything else is
// treated as an OpenAI embedding model.
func NewEncoder(model string) QueryEncoder {
	if model == "" {
		return unavailableEncoder{}
	}
	return &chromemEncoder{model: model}
}

type unavailableEncoder struct{}

func (unavailableEncoder) Available() bool { return false }

func (unavailableEncoder) Encode(ctx context.Context, query string) ([]float32, error) {
	return nil, fmt.Errorf("%w: no embedding model configured; supply query_embedding instead", ErrConfig)
}

// chromemEncoder embeds queries through a chromem-go embedding function.
// The function is built on first use and cached for the lifetime of the
// owning store.
type chromemEncoder struct {
	model string

	mu sync.Mutex
	fn chromem.EmbeddingFunc
}

func (e *chromemEncoder) Available() bool { return true }

func (e *chromemEncoder) Encode(ctx context.Context, query string) ([]float32, error) {
	fn, err := e.embeddingFunc()
	if err != nil {
		return nil, err
	}

	embedding, err := fn(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query with model %q: %w", e.model, err)
	}

	return embedding, nil
}

func (e *chromemEncoder) embeddingFunc() (chromem.EmbeddingFunc, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.fn != nil {
		return e.fn, nil
	}

	if name, ok := strings.CutPrefix(e.model, "ollama/"); ok {
		e.fn = chromem.NewEmbeddingFuncOllama(name, "")
		return e.fn, nil
	}

	name := strings.TrimPrefix(e.model, "openai/")

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY is not set for model %q; supply query_embedding instead",
			ErrConfig, e.model)
	}

	e.fn = chromem.NewEmbeddingFuncOpenAI(apiKey, chromem.EmbeddingModelOpenAI(name))
	return e.fn, nil
}
