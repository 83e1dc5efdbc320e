package mcp

import (
	"context"
	"encoding/json"
	"slices"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/vettore/drivesearch"
)

type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      mcp.RequestId   `json:"id"`
	Method  mcp.MCPMethod   `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

func errorResponse(id any, code int, message string) mcp.JSONRPCError {
	return mcp.JSONRPCError{
		JSONRPC: mcp.JSONRPC_VERSION,
		ID:      mcp.NewRequestId(id),
		Error: struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Data    any    `json:"data,omitempty"`
		}{
			Code:    code,
			Message: message,
		},
	}
}

// MethodNotFoundResponse is the JSON-RPC error returned for methods no
// endpoint is registered for. Shared with the transports.
func MethodNotFoundResponse(id mcp.RequestId) mcp.JSONRPCError {
	return mcp.JSONRPCError{
		JSONRPC: mcp.JSONRPC_VERSION,
		ID:      id,
		Error: struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Data    any    `json:"data,omitempty"`
		}{
			Code:    mcp.METHOD_NOT_FOUND,
			Message: "method not found",
		},
	}
}

type MCPEndpoint func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage

const (
	SearchDocumentsTool = "search_documents"
	IndexStatusTool     = "index_status"
)

const MCPSERVER_INSTRUCTIONS string = `DriveSearch answers similarity queries over an index of Drive document embeddings:

1. **Semantic Search**: Find documents using natural language queries
2. **Vector Queries**: Supply a precomputed query embedding when no encoding model is configured
3. **Index Status**: Inspect the size and capabilities of the loaded index

Available tools:
- search_documents: Rank indexed documents by cosine similarity
- index_status: Report record count, dimensionality and encoder availability

Results carry each document's Drive metadata and, when available, a text extract.`

// Tools lists the tools this server exposes.
func Tools() []mcp.Tool {
	return []mcp.Tool{
		mcp.NewTool(SearchDocumentsTool,
			mcp.WithDescription("Rank indexed Drive documents by cosine similarity to a query."),
			mcp.WithString("query",
				mcp.Description("Natural language query. Requires a configured embedding model."),
			),
			mcp.WithArray("query_embedding",
				mcp.Description("Precomputed query vector. Takes precedence over query."),
				mcp.Items(map[string]any{"type": "number"}),
			),
			mcp.WithNumber("top_k",
				mcp.Description("Number of results to return. Defaults to the configured value."),
			),
		),
		mcp.NewTool(IndexStatusTool,
			mcp.WithDescription("Report the state of the loaded vector index."),
		),
	}
}

func InitializeEndpoint(svc drivesearch.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		var params mcp.InitializeParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
		}

		protocolVersion := mcp.LATEST_PROTOCOL_VERSION
		if clientVersion := params.ProtocolVersion; clientVersion != "" {
			if slices.Contains(mcp.ValidProtocolVersions, clientVersion) {
				protocolVersion = clientVersion
			}
		}

		result := &mcp.InitializeResult{
			ProtocolVersion: protocolVersion,
			Capabilities: mcp.ServerCapabilities{
				Tools: &struct {
					ListChanged bool `json:"listChanged,omitempty"`
				}{},
			},
			ServerInfo: mcp.Implementation{
				Name:    "drivesearch",
				Version: "1.0.0",
			},
			Instructions: MCPSERVER_INSTRUCTIONS,
		}

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  result,
		}
	}
}

func PingEndpoint(svc drivesearch.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  struct{}{}, // empty response
		}
	}
}

func ListToolsEndpoint(svc drivesearch.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		result := &mcp.ListToolsResult{
			Tools: Tools(),
		}

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  result,
		}
	}
}

func CallToolEndpoint(svc drivesearch.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		var params mcp.CallToolParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
		}

		var result any
		switch params.Name {
		case SearchDocumentsTool:
			args, err := json.Marshal(params.Arguments)
			if err != nil {
				return errorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
			}

			var searchReq drivesearch.SearchRequest
			if err := json.Unmarshal(args, &searchReq); err != nil {
				return errorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
			}

			results, err := svc.Search(ctx, searchReq)
			if err != nil {
				return errorResponse(req.ID, mcp.INTERNAL_ERROR, err.Error())
			}

			result = results

		case IndexStatusTool:
			status, err := svc.IndexStatus(ctx)
			if err != nil {
				return errorResponse(req.ID, mcp.INTERNAL_ERROR, err.Error())
			}

			result = status

		default:
			return errorResponse(req.ID, mcp.INVALID_PARAMS, "unknown tool: "+params.Name)
		}

		bs, err := json.Marshal(result)
		if err != nil {
			return errorResponse(req.ID, mcp.INTERNAL_ERROR, err.Error())
		}

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  mcp.NewToolResultText(string(bs)),
		}
	}
}
