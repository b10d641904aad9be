package knowledge

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/edumentor-ai/edumentor/pkg/config"
	"github.com/edumentor-ai/edumentor/pkg/httpclient"
	"github.com/edumentor-ai/edumentor/pkg/version"
)

const mcpProtocolVersion = "2024-11-05"

// MCPRetriever fetches facts from an MCP knowledge server.
//
// Transport support:
//   - stdio: mcp-go client over a spawned subprocess
//   - http: JSON-RPC over HTTP with retry/backoff, SSE responses included
//
// The connection is established lazily on the first Retrieve call.
type MCPRetriever struct {
	cfg config.MCPConfig

	mu         sync.Mutex
	client     *client.Client     // stdio transport
	httpClient *httpclient.Client // http transport
	connected  bool

	// sessionID has its own lock: it is touched on every HTTP call,
	// including the initialize call made while mu is held.
	sessMu    sync.Mutex
	sessionID string // streamable-http session
}

// NewMCPRetriever validates the transport configuration; it does not
// connect.
func NewMCPRetriever(cfg config.MCPConfig) (*MCPRetriever, error) {
	switch cfg.Transport {
	case config.MCPTransportStdio:
		if cfg.Command == "" {
			return nil, fmt.Errorf("mcp command is required for stdio transport")
		}
	case config.MCPTransportHTTP:
		if cfg.URL == "" {
			return nil, fmt.Errorf("mcp url is required for http transport")
		}
	default:
		return nil, fmt.Errorf("unsupported mcp transport %q", cfg.Transport)
	}
	return &MCPRetriever{cfg: cfg}, nil
}

func (r *MCPRetriever) Name() string { return "mcp" }

// Retrieve calls the configured search tool and parses its text
// content into facts.
func (r *MCPRetriever) Retrieve(ctx context.Context, query string, limit int) ([]Fact, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout.Duration())
	defer cancel()

	if err := r.ensureConnected(ctx); err != nil {
		return nil, err
	}

	args := map[string]any{
		"query": query,
		"limit": limit,
	}

	var texts []string
	var err error
	if r.cfg.Transport == config.MCPTransportStdio {
		texts, err = r.callStdio(ctx, args)
	} else {
		texts, err = r.callHTTP(ctx, args)
	}
	if err != nil {
		return nil, err
	}

	facts := make([]Fact, 0, len(texts))
	for _, text := range texts {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		facts = append(facts, Fact{Content: text, Source: "mcp"})
		if limit > 0 && len(facts) >= limit {
			break
		}
	}
	return facts, nil
}

func (r *MCPRetriever) ensureConnected(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.connected {
		return nil
	}
	if r.cfg.Transport == config.MCPTransportStdio {
		return r.connectStdio(ctx)
	}
	return r.connectHTTP(ctx)
}

// connectStdio spawns the MCP server and performs the initialize
// handshake. Callers must hold r.mu.
func (r *MCPRetriever) connectStdio(ctx context.Context) error {
	mcpClient, err := client.NewStdioMCPClient(r.cfg.Command, nil, r.cfg.Args...)
	if err != nil {
		return fmt.Errorf("failed to create MCP client: %w", err)
	}

	if err := mcpClient.Start(ctx); err != nil {
		return fmt.Errorf("failed to start MCP client: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "edumentor",
		Version: version.Version,
	}
	initReq.Params.ProtocolVersion = mcpProtocolVersion

	if _, err := mcpClient.Initialize(ctx, initReq); err != nil {
		mcpClient.Close()
		return fmt.Errorf("failed to initialize MCP: %w", err)
	}

	r.client = mcpClient
	r.connected = true

	slog.Info("Connected to MCP knowledge server (stdio)",
		"command", r.cfg.Command)
	return nil
}

// connectHTTP initializes the JSON-RPC session. Callers must hold r.mu.
func (r *MCPRetriever) connectHTTP(ctx context.Context) error {
	r.httpClient = httpclient.New(
		httpclient.WithHTTPClient(&http.Client{Timeout: r.cfg.Timeout.Duration()}),
		httpclient.WithMaxRetries(3),
		httpclient.WithBaseDelay(2*time.Second),
	)

	initResp, err := r.makeHTTPRequest(ctx, r.httpClient, "initialize", map[string]any{
		"protocolVersion": mcpProtocolVersion,
		"clientInfo": map[string]any{
			"name":    "edumentor",
			"version": version.Version,
		},
		"capabilities": map[string]any{},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize MCP: %w", err)
	}
	if initResp.Error != nil {
		return fmt.Errorf("MCP init error: %s", initResp.Error.Message)
	}

	r.connected = true

	slog.Info("Connected to MCP knowledge server (HTTP)", "url", r.cfg.URL)
	return nil
}

func (r *MCPRetriever) callStdio(ctx context.Context, args map[string]any) ([]string, error) {
	r.mu.Lock()
	mcpClient := r.client
	r.mu.Unlock()

	if mcpClient == nil {
		return nil, fmt.Errorf("MCP client not connected")
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = r.cfg.Tool
	req.Params.Arguments = args

	resp, err := mcpClient.CallTool(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("MCP call failed: %w", err)
	}

	if resp.IsError {
		for _, content := range resp.Content {
			if textContent, ok := content.(mcp.TextContent); ok {
				return nil, fmt.Errorf("MCP tool error: %s", textContent.Text)
			}
		}
		return nil, fmt.Errorf("MCP tool error")
	}

	var texts []string
	for _, content := range resp.Content {
		if textContent, ok := content.(mcp.TextContent); ok {
			texts = append(texts, textContent.Text)
		}
	}
	return texts, nil
}

func (r *MCPRetriever) callHTTP(ctx context.Context, args map[string]any) ([]string, error) {
	r.mu.Lock()
	hc := r.httpClient
	r.mu.Unlock()

	if hc == nil {
		return nil, fmt.Errorf("MCP client not connected")
	}

	resp, err := r.makeHTTPRequest(ctx, hc, "tools/call", map[string]any{
		"name":      r.cfg.Tool,
		"arguments": args,
	})
	if err != nil {
		return nil, fmt.Errorf("MCP call failed: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("MCP tool error: %s", resp.Error.Message)
	}

	resultMap, ok := resp.Result.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from tools/call")
	}

	if isError, _ := resultMap["isError"].(bool); isError {
		if msg := firstText(resultMap); msg != "" {
			return nil, fmt.Errorf("MCP tool error: %s", msg)
		}
		return nil, fmt.Errorf("MCP tool error")
	}

	var texts []string
	if content, ok := resultMap["content"].([]any); ok {
		for _, c := range content {
			if cm, ok := c.(map[string]any); ok && cm["type"] == "text" {
				if text, ok := cm["text"].(string); ok {
					texts = append(texts, text)
				}
			}
		}
	}
	return texts, nil
}

func firstText(resultMap map[string]any) string {
	content, ok := resultMap["content"].([]any)
	if !ok {
		return ""
	}
	for _, c := range content {
		if cm, ok := c.(map[string]any); ok {
			if text, ok := cm["text"].(string); ok {
				return text
			}
		}
	}
	return ""
}

// JSON-RPC types
type jsonRPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type jsonRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Result  any           `json:"result,omitempty"`
	Error   *jsonRPCError `json:"error,omitempty"`
}

type jsonRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// makeHTTPRequest sends a JSON-RPC request, handling both plain JSON
// and SSE responses.
func (r *MCPRetriever) makeHTTPRequest(ctx context.Context, hc *httpclient.Client, method string, params any) (*jsonRPCResponse, error) {
	req := jsonRPCRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", r.cfg.URL, strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json, text/event-stream")

	r.sessMu.Lock()
	sessionID := r.sessionID
	r.sessMu.Unlock()
	if sessionID != "" {
		httpReq.Header.Set("mcp-session-id", sessionID)
	}

	httpResp, err := hc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if newSessionID := httpResp.Header.Get("mcp-session-id"); newSessionID != "" {
		r.sessMu.Lock()
		r.sessionID = newSessionID
		r.sessMu.Unlock()
	}

	if httpResp.StatusCode != http.StatusOK {
		responseBody, _ := io.ReadAll(httpResp.Body)
		return nil, fmt.Errorf("HTTP error %d: %s", httpResp.StatusCode, string(responseBody))
	}

	if strings.Contains(httpResp.Header.Get("Content-Type"), "text/event-stream") {
		return readSSEResponse(httpResp.Body)
	}

	responseBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp jsonRPCResponse
	if err := json.Unmarshal(responseBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &resp, nil
}

// readSSEResponse reads the first complete JSON-RPC message from an
// SSE stream.
func readSSEResponse(body io.Reader) (*jsonRPCResponse, error) {
	reader := bufio.NewReader(body)
	var currentData strings.Builder

	flush := func() *jsonRPCResponse {
		if currentData.Len() == 0 {
			return nil
		}
		var resp jsonRPCResponse
		if err := json.Unmarshal([]byte(currentData.String()), &resp); err == nil {
			return &resp
		}
		currentData.Reset()
		return nil
	}

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("SSE read error: %w", err)
		}

		lineStr := strings.TrimSpace(line)
		if lineStr == "" {
			if resp := flush(); resp != nil {
				return resp, nil
			}
			continue
		}
		if strings.HasPrefix(lineStr, "data:") {
			currentData.WriteString(strings.TrimSpace(strings.TrimPrefix(lineStr, "data:")))
		}
	}

	if resp := flush(); resp != nil {
		return resp, nil
	}
	return nil, fmt.Errorf("SSE stream ended without complete message")
}

// Close shuts down the MCP connection.
func (r *MCPRetriever) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client != nil {
		err := r.client.Close()
		r.client = nil
		r.connected = false
		return err
	}
	r.httpClient = nil
	r.connected = false
	return nil
}

var _ Retriever = (*MCPRetriever)(nil)
