package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"

	"github.com/vettore/drivesearch"
	"github.com/vettore/drivesearch/vector"
)

type stubService struct {
	lastSearch drivesearch.SearchRequest
	results    []vector.SearchResult
	status     *drivesearch.IndexStatus
	err        error
}

func (s *stubService) Close() error { return nil }

func (s *stubService) Search(ctx context.Context, req drivesearch.SearchRequest) ([]vector.SearchResult, error) {
	s.lastSearch = req
	return s.results, s.err
}

func (s *stubService) IndexStatus(ctx context.Context) (*drivesearch.IndexStatus, error) {
	return s.status, s.err
}

func TestUnmarshalSearchToolRequest(t *testing.T) {
	assert := assert.New(t)

	input := []byte(`{
	  "jsonrpc": "2.0",
	  "id": 7,
	  "method": "tools/call",
	  "params": {
	    "name": "search_documents",
	    "arguments": {
	      "query": "budget report 2023",
	      "top_k": 3
	    }
	  }
	}`)

	var req JSONRPCRequest
	if err := json.Unmarshal(input, &req); err != nil {
		assert.Fail(err.Error())
		return
	}

	var params mcp.CallToolParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Equal(mcp.JSONRPC_VERSION, req.JSONRPC)
	assert.Equal(mcp.NewRequestId(int64(7)), req.ID)
	assert.Equal(mcp.MethodToolsCall, req.Method)
	assert.Equal(SearchDocumentsTool, params.Name)
	assert.Contains(params.Arguments, "query")
}

func TestListToolsEndpoint(t *testing.T) {
	assert := assert.New(t)

	endpoint := ListToolsEndpoint(&stubService{})

	resp := endpoint(context.Background(), JSONRPCRequest{
		JSONRPC: mcp.JSONRPC_VERSION,
		ID:      mcp.NewRequestId(int64(1)),
		Method:  mcp.MethodToolsList,
	})

	response, ok := resp.(mcp.JSONRPCResponse)
	if !ok {
		assert.Fail("expected a JSONRPCResponse")
		return
	}

	result, ok := response.Result.(*mcp.ListToolsResult)
	if !ok {
		assert.Fail("expected a ListToolsResult")
		return
	}

	assert.Len(result.Tools, 2)
	assert.Equal(SearchDocumentsTool, result.Tools[0].Name)
	assert.Equal(IndexStatusTool, result.Tools[1].Name)
}

func TestCallToolEndpointSearch(t *testing.T) {
	assert := assert.New(t)

	extract := "contents of a"
	svc := &stubService{
		results: []vector.SearchResult{
			{
				Score: 0.91,
				Record: &vector.Record{
					Metadata:    map[string]any{"id": "a"},
					TextExtract: &extract,
				},
			},
		},
	}

	endpoint := CallToolEndpoint(svc)

	resp := endpoint(context.Background(), JSONRPCRequest{
		JSONRPC: mcp.JSONRPC_VERSION,
		ID:      mcp.NewRequestId(int64(2)),
		Method:  mcp.MethodToolsCall,
		Params:  json.RawMessage(`{"name": "search_documents", "arguments": {"query_embedding": [1, 0], "top_k": 1}}`),
	})

	response, ok := resp.(mcp.JSONRPCResponse)
	if !ok {
		assert.Fail("expected a JSONRPCResponse")
		return
	}

	assert.Equal([]float32{1, 0}, svc.lastSearch.QueryEmbedding)
	assert.Equal(1, svc.lastSearch.TopK)

	result, ok := response.Result.(*mcp.CallToolResult)
	if !ok {
		assert.Fail("expected a CallToolResult")
		return
	}

	content, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		assert.Fail("expected text content")
		return
	}

	var results []vector.SearchResult
	if err := json.Unmarshal([]byte(content.Text), &results); err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Len(results, 1)
	assert.InDelta(0.91, results[0].Score, 1e-9)
	assert.Equal("a", results[0].Record.Metadata["id"])
	assert.Equal("contents of a", *results[0].Record.TextExtract)
}

func TestCallToolEndpointStatus(t *testing.T) {
	assert := assert.New(t)

	svc := &stubService{
		status: &drivesearch.IndexStatus{
			Records:          12,
			Dimensions:       384,
			EncoderAvailable: true,
		},
	}

	endpoint := CallToolEndpoint(svc)

	resp := endpoint(context.Background(), JSONRPCRequest{
		JSONRPC: mcp.JSONRPC_VERSION,
		ID:      mcp.NewRequestId(int64(3)),
		Method:  mcp.MethodToolsCall,
		Params:  json.RawMessage(`{"name": "index_status"}`),
	})

	response, ok := resp.(mcp.JSONRPCResponse)
	if !ok {
		assert.Fail("expected a JSONRPCResponse")
		return
	}

	result, ok := response.Result.(*mcp.CallToolResult)
	if !ok {
		assert.Fail("expected a CallToolResult")
		return
	}

	content, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		assert.Fail("expected text content")
		return
	}

	var status drivesearch.IndexStatus
	if err := json.Unmarshal([]byte(content.Text), &status); err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Equal(12, status.Records)
	assert.Equal(384, status.Dimensions)
	assert.True(status.EncoderAvailable)
}

func TestCallToolEndpointUnknownTool(t *testing.T) {
	assert := assert.New(t)

	endpoint := CallToolEndpoint(&stubService{})

	resp := endpoint(context.Background(), JSONRPCRequest{
		JSONRPC: mcp.JSONRPC_VERSION,
		ID:      mcp.NewRequestId(int64(4)),
		Method:  mcp.MethodToolsCall,
		Params:  json.RawMessage(`{"name": "no_such_tool"}`),
	})

	rpcErr, ok := resp.(mcp.JSONRPCError)
	if !ok {
		assert.Fail("expected a JSONRPCError")
		return
	}

	assert.Equal(mcp.INVALID_PARAMS, rpcErr.Error.Code)
	assert.Contains(rpcErr.Error.Message, "no_such_tool")
}

func TestInitializeEndpoint(t *testing.T) {
	assert := assert.New(t)

	endpoint := InitializeEndpoint(&stubService{})

	resp := endpoint(context.Background(), JSONRPCRequest{
		JSONRPC: mcp.JSONRPC_VERSION,
		ID:      mcp.NewRequestId(int64(5)),
		Method:  mcp.MethodInitialize,
		Params:  json.RawMessage(`{"protocolVersion": "2024-11-05"}`),
	})

	response, ok := resp.(mcp.JSONRPCResponse)
	if !ok {
		assert.Fail("expected a JSONRPCResponse")
		return
	}

	result, ok := response.Result.(*mcp.InitializeResult)
	if !ok {
		assert.Fail("expected an InitializeResult")
		return
	}

	assert.Equal("2024-11-05", result.ProtocolVersion)
	assert.Equal("drivesearch", result.ServerInfo.Name)
}
