package drivesearch

import (
	"context"
	"errors"

	"github.com/vettore/drivesearch/vector"
)

// ProxyMiddleware implements Service over an EndpointSet, letting remote
// callers (such as the stdio MCP bridge) use the same interface as the
// in-process service.
func ProxyMiddleware(endpoints *EndpointSet) ServiceMiddleware {
	return func(next Service) Service {
		return &proxyMiddleware{
			endpoints: endpoints,
		}
	}
}

type proxyMiddleware struct {
	endpoints *EndpointSet
}

func (mw *proxyMiddleware) Close() error {
	return errors.New("method not implemented")
}

func (mw *proxyMiddleware) Search(ctx context.Context, req SearchRequest) ([]vector.SearchResult, error) {
	resp, err := mw.endpoints.Search(ctx, req)
	if err != nil {
		return nil, err
	}

	results, ok := resp.([]vector.SearchResult)
	if !ok {
		return nil, errors.New("invalid response type")
	}

	return results, nil
}

func (mw *proxyMiddleware) IndexStatus(ctx context.Context) (*IndexStatus, error) {
	resp, err := mw.endpoints.IndexStatus(ctx, nil)
	if err != nil {
		return nil, err
	}

	status, ok := resp.(*IndexStatus)
	if !ok {
		return nil, errors.New("invalid response type")
	}

	return status, nil
}
