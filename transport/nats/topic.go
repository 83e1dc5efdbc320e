package nats

import (
	"github.com/nats-io/nats.go/micro"

	"github.com/vettore/drivesearch"
)

func AddEndpoints(group micro.Group, endpoints drivesearch.EndpointSet) {
	group.AddEndpoint("search", SearchHandler(endpoints.Search))
	group.AddEndpoint("index_status", IndexStatusHandler(endpoints.IndexStatus))
}
