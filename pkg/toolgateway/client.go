package toolgateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/angelmondragon/catering-backend/pkg/errors"
	"github.com/angelmondragon/catering-backend/pkg/metrics"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	defaultEndpoint   = "http://127.0.0.1:8000/mcp"
	defaultClientName = "catering-backend"
	defaultTimeout    = 60 * time.Second
	clientVersion     = "1.0.0"
)

// Caller is the contract the workflow depends on.
type Caller interface {
	ListTools(ctx context.Context) ([]string, error)
	CallTool(ctx context.Context, name string, payload map[string]any) (map[string]any, error)
}

// Client talks to a remote MCP tool server over streamable HTTP. The tool set
// is discovered on first use and cached for the lifetime of the client. The
// session is reopened after any failed exchange.
type Client struct {
	httpClient *http.Client
	endpoint   string
	clientName string
	timeout    time.Duration
	metrics    *metrics.WorkflowMetrics
	transport  func() mcp.Transport

	mu      sync.Mutex
	mcp     *mcp.Client
	session *mcp.ClientSession
	tools   map[string]struct{}
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used by the transport.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithEndpoint overrides the tool server URL.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(endpoint)
		if trimmed != "" {
			c.endpoint = trimmed
		}
	}
}

// WithTimeout bounds the handshake and every tool call.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithClientName sets the name announced during the initialize handshake.
func WithClientName(name string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			c.clientName = trimmed
		}
	}
}

// WithMetrics records every tool call outcome.
func WithMetrics(m *metrics.WorkflowMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithTransport replaces the streamable HTTP transport. newTransport is called
// for every new session.
func WithTransport(newTransport func() mcp.Transport) Option {
	return func(c *Client) {
		if newTransport != nil {
			c.transport = newTransport
		}
	}
}

// NewClient builds a tool gateway client. Nothing is sent until the first
// ListTools or CallTool.
func NewClient(opts ...Option) *Client {
	client := &Client{
		httpClient: http.DefaultClient,
		endpoint:   defaultEndpoint,
		clientName: defaultClientName,
		timeout:    defaultTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.transport == nil {
		client.transport = func() mcp.Transport {
			return &mcp.StreamableClientTransport{Endpoint: client.endpoint, HTTPClient: client.httpClient}
		}
	}
	client.mcp = mcp.NewClient(&mcp.Implementation{Name: client.clientName, Version: clientVersion}, nil)
	return client
}

// ListTools returns the sorted names of the discovered tools.
func (c *Client) ListTools(ctx context.Context) ([]string, error) {
	tools, err := c.discover(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(tools))
	for name := range tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// CallTool invokes name with payload as its arguments.
func (c *Client) CallTool(ctx context.Context, name string, payload map[string]any) (map[string]any, error) {
	result, err := c.callTool(ctx, name, payload)
	c.metrics.ObserveToolCall(name, err)
	return result, err
}

// Close ends the open session, if any.
func (c *Client) Close() error {
	c.mu.Lock()
	session := c.session
	c.session = nil
	c.mu.Unlock()
	if session == nil {
		return nil
	}
	return session.Close()
}

func (c *Client) callTool(ctx context.Context, name string, payload map[string]any) (map[string]any, error) {
	tools, err := c.discover(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := tools[name]; !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("tool %q is not available", name)).
			WithReason(pkgerrors.ReasonToolNotFound)
	}
	if payload == nil {
		payload = map[string]any{}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.mu.Lock()
	session, err := c.sessionLocked(ctx)
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	result, err := session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: payload})
	if err != nil {
		c.dropSession(session)
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, fmt.Sprintf("tool gateway call %s failed", name))
	}
	if result.IsError {
		return nil, pkgerrors.New(pkgerrors.CodeUpstream, fmt.Sprintf("tool %s failed: %s", name, resultText(result))).
			WithDetails(map[string]any{"tool": name})
	}
	return resultMapping(result), nil
}

// discover lists the tools once. A failed listing is not cached.
func (c *Client) discover(ctx context.Context) (map[string]struct{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tools != nil {
		return c.tools, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	session, err := c.sessionLocked(ctx)
	if err != nil {
		return nil, err
	}

	tools := map[string]struct{}{}
	params := &mcp.ListToolsParams{}
	for {
		page, err := session.ListTools(ctx, params)
		if err != nil {
			c.session = nil
			_ = session.Close()
			return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "tool gateway tools/list failed")
		}
		for _, tool := range page.Tools {
			tools[tool.Name] = struct{}{}
		}
		if page.NextCursor == "" {
			break
		}
		params = &mcp.ListToolsParams{Cursor: page.NextCursor}
	}

	c.tools = tools
	return tools, nil
}

func (c *Client) sessionLocked(ctx context.Context) (*mcp.ClientSession, error) {
	if c.session != nil {
		return c.session, nil
	}
	session, err := c.mcp.Connect(ctx, c.transport(), nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "tool gateway initialize failed")
	}
	c.session = session
	return session, nil
}

// dropSession forgets session unless another caller already replaced it.
func (c *Client) dropSession(session *mcp.ClientSession) {
	c.mu.Lock()
	if c.session == session {
		c.session = nil
	}
	c.mu.Unlock()
	_ = session.Close()
}

func resultText(result *mcp.CallToolResult) string {
	for _, content := range result.Content {
		if text, ok := content.(*mcp.TextContent); ok {
			return text.Text
		}
	}
	return ""
}

// resultMapping converts a tool result into a mapping. Structured content
// wins; otherwise the text content is decoded as JSON. Anything that is not an
// object is wrapped under "result".
func resultMapping(result *mcp.CallToolResult) map[string]any {
	if result.StructuredContent != nil {
		if structured, ok := asObject(result.StructuredContent); ok {
			return structured
		}
	}

	text := resultText(result)
	var decoded any
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		return map[string]any{"result": text}
	}
	if obj, ok := decoded.(map[string]any); ok {
		return obj
	}
	return map[string]any{"result": decoded}
}

func asObject(value any) (map[string]any, bool) {
	if obj, ok := value.(map[string]any); ok {
		return obj, obj != nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}
