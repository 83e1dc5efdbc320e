package nats

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/go-kit/kit/endpoint"
	"github.com/nats-io/nats.go/micro"

	"github.com/vettore/drivesearch"
	"github.com/vettore/drivesearch/vector"
)

// errorCode mirrors the HTTP transport's mapping: disabled or
// misconfigured index → 503, anything else → 500.
func errorCode(err error) string {
	switch {
	case errors.Is(err, vector.ErrNotAvailable), errors.Is(err, vector.ErrConfig):
		return "503"
	default:
		return "500"
	}
}

func SearchHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		var req drivesearch.SearchRequest
		if err := json.Unmarshal(r.Data(), &req); err != nil {
			r.Error("400", err.Error(), nil)
			return
		}

		ctx := context.Background()
		resp, err := endpoint(ctx, req)
		if err != nil {
			r.Error(errorCode(err), err.Error(), nil)
			return
		}

		results, ok := resp.([]vector.SearchResult)
		if !ok {
			r.Error("500", "invalid response type", nil)
			return
		}

		r.RespondJSON(&results)
	}
}

func IndexStatusHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		ctx := context.Background()

		resp, err := endpoint(ctx, nil)
		if err != nil {
			r.Error(errorCode(err), err.Error(), nil)
			return
		}

		status, ok := resp.(*drivesearch.IndexStatus)
		if !ok {
			r.Error("500", "invalid response type", nil)
			return
		}

		r.RespondJSON(status)
	}
}
