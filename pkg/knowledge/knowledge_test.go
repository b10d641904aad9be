package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edumentor-ai/edumentor/pkg/config"
)

func TestLocalRetriever_Retrieve(t *testing.T) {
	r := NewLocalRetriever()

	tests := []struct {
		name      string
		query     string
		wantTopic string
	}{
		{"exact topic", "help me with fractions", "fractions"},
		{"keyword in content", "what is photosynthesis", "biology"},
		{"fuzzy plural", "triangles", "geometry"},
		{"algebra equation", "how do I solve an equation", "algebra"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			facts, err := r.Retrieve(context.Background(), tt.query, 3)
			require.NoError(t, err)
			require.NotEmpty(t, facts)
			assert.Equal(t, tt.wantTopic, facts[0].Topic)
			assert.Equal(t, "local", facts[0].Source)
		})
	}
}

func TestLocalRetriever_NoMatch(t *testing.T) {
	r := NewLocalRetriever()

	facts, err := r.Retrieve(context.Background(), "zzzz qqqq", 3)
	require.NoError(t, err)
	assert.Empty(t, facts)
}

func TestLocalRetriever_Limit(t *testing.T) {
	r := NewLocalRetriever()

	facts, err := r.Retrieve(context.Background(), "fractions numerator denominator", 1)
	require.NoError(t, err)
	assert.Len(t, facts, 1)
}

type stubRetriever struct {
	name  string
	facts []Fact
	err   error
	calls int
}

func (s *stubRetriever) Retrieve(ctx context.Context, query string, limit int) ([]Fact, error) {
	s.calls++
	return s.facts, s.err
}
func (s *stubRetriever) Name() string { return s.name }
func (s *stubRetriever) Close() error { return nil }

func TestChain_FallsThroughOnError(t *testing.T) {
	failing := &stubRetriever{name: "primary", err: errors.New("connection refused")}
	fallback := &stubRetriever{name: "fallback", facts: []Fact{{Content: "f", Source: "local"}}}

	chain := NewChain(failing, fallback)
	facts, err := chain.Retrieve(context.Background(), "q", 3)
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, fallback.calls)
}

func TestChain_FallsThroughOnEmpty(t *testing.T) {
	empty := &stubRetriever{name: "primary"}
	fallback := &stubRetriever{name: "fallback", facts: []Fact{{Content: "f"}}}

	chain := NewChain(empty, fallback)
	facts, err := chain.Retrieve(context.Background(), "q", 3)
	require.NoError(t, err)
	assert.Len(t, facts, 1)
}

func TestChain_ReturnsLastError(t *testing.T) {
	first := &stubRetriever{name: "a", err: errors.New("first")}
	second := &stubRetriever{name: "b", err: errors.New("second")}

	chain := NewChain(first, second)
	_, err := chain.Retrieve(context.Background(), "q", 3)
	require.Error(t, err)
	assert.Equal(t, "second", err.Error())
}

func mcpToolResult(texts ...string) map[string]any {
	content := make([]any, len(texts))
	for i, text := range texts {
		content[i] = map[string]any{"type": "text", "text": text}
	}
	return map[string]any{"content": content}
}

func TestMCPRetriever_HTTP(t *testing.T) {
	var methods []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req jsonRPCRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		methods = append(methods, req.Method)

		resp := jsonRPCResponse{JSONRPC: "2.0", ID: req.ID}
		switch req.Method {
		case "initialize":
			resp.Result = map[string]any{"protocolVersion": mcpProtocolVersion}
		case "tools/call":
			params := req.Params.(map[string]any)
			assert.Equal(t, "search", params["name"])
			resp.Result = mcpToolResult("Fact one.", "Fact two.", "Fact three.")
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	retriever, err := NewMCPRetriever(config.MCPConfig{
		Enabled:   true,
		Transport: config.MCPTransportHTTP,
		URL:       server.URL,
		Tool:      "search",
		Timeout:   config.Duration(5 * time.Second),
	})
	require.NoError(t, err)
	defer retriever.Close()

	facts, err := retriever.Retrieve(context.Background(), "fractions", 2)
	require.NoError(t, err)
	require.Len(t, facts, 2)
	assert.Equal(t, "Fact one.", facts[0].Content)
	assert.Equal(t, "mcp", facts[0].Source)

	// Lazy connect: initialize once, then the tool call.
	assert.Equal(t, []string{"initialize", "tools/call"}, methods)

	// Second call reuses the connection.
	_, err = retriever.Retrieve(context.Background(), "algebra", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"initialize", "tools/call", "tools/call"}, methods)
}

func TestMCPRetriever_HTTP_ConcurrentRetrieves(t *testing.T) {
	// The server rotates the session ID on every response, so
	// concurrent calls exercise the shared session state.
	var counter int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req jsonRPCRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		w.Header().Set("Mcp-Session-Id", fmt.Sprintf("sess-%d", atomic.AddInt64(&counter, 1)))
		resp := jsonRPCResponse{JSONRPC: "2.0", ID: req.ID}
		switch req.Method {
		case "initialize":
			resp.Result = map[string]any{"protocolVersion": mcpProtocolVersion}
		case "tools/call":
			resp.Result = mcpToolResult("Fact.")
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	retriever, err := NewMCPRetriever(config.MCPConfig{
		Enabled:   true,
		Transport: config.MCPTransportHTTP,
		URL:       server.URL,
		Tool:      "search",
		Timeout:   config.Duration(5 * time.Second),
	})
	require.NoError(t, err)
	defer retriever.Close()

	const workers = 8
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = retriever.Retrieve(context.Background(), "algebra", 3)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "worker %d", i)
	}
}

func TestMCPRetriever_HTTP_SSEResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req jsonRPCRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		resp := jsonRPCResponse{JSONRPC: "2.0", ID: req.ID}
		if req.Method == "tools/call" {
			resp.Result = mcpToolResult("Streamed fact.")
		} else {
			resp.Result = map[string]any{}
		}

		data, _ := json.Marshal(resp)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintf(w, "data: %s\n\n", data)
	}))
	defer server.Close()

	retriever, err := NewMCPRetriever(config.MCPConfig{
		Enabled:   true,
		Transport: config.MCPTransportHTTP,
		URL:       server.URL,
		Tool:      "search",
		Timeout:   config.Duration(5 * time.Second),
	})
	require.NoError(t, err)
	defer retriever.Close()

	facts, err := retriever.Retrieve(context.Background(), "anything", 3)
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, "Streamed fact.", facts[0].Content)
}

func TestMCPRetriever_HTTP_ToolError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req jsonRPCRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		resp := jsonRPCResponse{JSONRPC: "2.0", ID: req.ID}
		if req.Method == "tools/call" {
			resp.Result = map[string]any{
				"isError": true,
				"content": []any{map[string]any{"type": "text", "text": "index unavailable"}},
			}
		} else {
			resp.Result = map[string]any{}
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	retriever, err := NewMCPRetriever(config.MCPConfig{
		Enabled:   true,
		Transport: config.MCPTransportHTTP,
		URL:       server.URL,
		Tool:      "search",
		Timeout:   config.Duration(5 * time.Second),
	})
	require.NoError(t, err)
	defer retriever.Close()

	_, err = retriever.Retrieve(context.Background(), "anything", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index unavailable")
}

func TestNewMCPRetriever_Validation(t *testing.T) {
	_, err := NewMCPRetriever(config.MCPConfig{Transport: config.MCPTransportStdio})
	assert.Error(t, err)

	_, err = NewMCPRetriever(config.MCPConfig{Transport: config.MCPTransportHTTP})
	assert.Error(t, err)

	_, err = NewMCPRetriever(config.MCPConfig{Transport: "carrier-pigeon", URL: "x"})
	assert.Error(t, err)
}

func TestNewRetriever_LocalOnly(t *testing.T) {
	cfg := config.KnowledgeConfig{}
	cfg.SetDefaults()

	retriever, err := NewRetriever(cfg)
	require.NoError(t, err)
	defer retriever.Close()

	facts, err := retriever.Retrieve(context.Background(), "fractions", 3)
	require.NoError(t, err)
	assert.NotEmpty(t, facts)
}
