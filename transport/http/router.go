package http

import (
	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/vettore/drivesearch"

	mcpE "github.com/vettore/drivesearch/mcp"
)

func AddRouters(r *gin.Engine, endpoints drivesearch.EndpointSet) {
	r.GET("/health", HealthHandler())

	// RESTful API routes
	api := r.Group("/api")
	{
		api.POST("/drive/search", SearchHandler(endpoints.Search))
		api.GET("/drive/status", IndexStatusHandler(endpoints.IndexStatus))
	}
}

func AddStreamableRouters(r *gin.Engine, endpoints map[mcp.MCPMethod]mcpE.MCPEndpoint) {
	mcp := r.Group("/mcp")
	{
		mcp.POST("/", MCPStreamableHandler(endpoints))
	}
}
