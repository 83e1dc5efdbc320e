package drivesearch

import (
	"context"

	"go.uber.org/zap"

	"github.com/vettore/drivesearch/vector"
)

func LoggingMiddleware(log *zap.Logger) ServiceMiddleware {
	log = log.With(
		zap.String("service", "drivesearch"),
	)

	return func(next Service) Service {
		log.Info("service initialized")

		return &loggingMiddleware{
			log:  log,
			next: next,
		}
	}
}

type loggingMiddleware struct {
	log  *zap.Logger
	next Service
}

func (mw *loggingMiddleware) Close() error {
	log := mw.log.With(
		zap.String("action", "close"),
	)

	err := mw.next.Close()
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("service closed")
	return nil
}

func (mw *loggingMiddleware) Search(ctx context.Context, req SearchRequest) ([]vector.SearchResult, error) {
	log := mw.log.With(
		zap.String("action", "search"),
	)

	if req.Query != "" {
		log = log.With(
			zap.String("query", req.Query),
		)
	}

	if len(req.QueryEmbedding) > 0 {
		log = log.With(
			zap.Int("query_embedding_dims", len(req.QueryEmbedding)),
		)
	}

	if req.TopK > 0 {
		log = log.With(
			zap.Int("top_k", req.TopK),
		)
	}

	results, err := mw.next.Search(ctx, req)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("documents searched", zap.Int("count", len(results)))
	return results, nil
}

func (mw *loggingMiddleware) IndexStatus(ctx context.Context) (*IndexStatus, error) {
	log := mw.log.With(
		zap.String("action", "index_status"),
	)

	status, err := mw.next.IndexStatus(ctx)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("index status reported",
		zap.Int("records", status.Records),
		zap.Int("dimensions", status.Dimensions),
	)

	return status, nil
}
