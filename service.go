package drivesearch

import (
	"context"

	"go.uber.org/zap"

	"github.com/vettore/drivesearch/vector"
)

// Service defines the core logic of DriveSearch.
type Service interface {

	// Close gracefully shuts down the service.
	Close() error

	// Search returns the records most similar to the query in the
	// request, ranked by cosine similarity.
	Search(ctx context.Context, req SearchRequest) ([]vector.SearchResult, error)

	// IndexStatus reports the state of the loaded vector index.
	IndexStatus(ctx context.Context) (*IndexStatus, error)
}

type ServiceMiddleware func(Service) Service

// NewService wires the service to the shared vector store described by
// cfg. The store itself is loaded lazily on the first request, so a
// disabled or misconfigured index surfaces per-request rather than at
// startup.
func NewService(ctx context.Context, cfg Config) (Service, error) {
	log := zap.L().With(
		zap.String("service", "drivesearch"),
	)

	if cfg.Vector.Enabled {
		log.Info("vector index enabled, deferring artifact load to first request",
			zap.String("embeddings", cfg.Vector.Embeddings),
		)
	} else {
		log.Warn("vector index disabled")
	}

	return &service{
		cfg: cfg,
		log: log,
	}, nil
}

type service struct {
	cfg Config
	log *zap.Logger
}

func (svc *service) Close() error {
	return nil
}

func (svc *service) Search(ctx context.Context, req SearchRequest) ([]vector.SearchResult, error) {
	store, err := vector.SharedStore(svc.cfg.Vector)
	if err != nil {
		return nil, err
	}

	topK := req.TopK
	if topK <= 0 {
		topK = svc.cfg.Vector.DefaultTopK
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	return store.Search(ctx, req.Query, req.QueryEmbedding, topK)
}

func (svc *service) IndexStatus(ctx context.Context) (*IndexStatus, error) {
	store, err := vector.SharedStore(svc.cfg.Vector)
	if err != nil {
		return nil, err
	}

	return &IndexStatus{
		Records:          store.Len(),
		Dimensions:       store.Dim(),
		EncoderAvailable: store.EncoderAvailable(),
	}, nil
}
