package toolgateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	pkgerrors "github.com/angelmondragon/catering-backend/pkg/errors"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sessionHeader = "Mcp-Session-Id"

type recordedToolCall struct {
	name      string
	arguments map[string]any
}

// fakeToolServer serves a fixed tool set over streamable HTTP. Swapping the
// handler drops every session the server knew about.
type fakeToolServer struct {
	t          *testing.T
	tools      []string
	handshakes atomic.Int32
	failInit   atomic.Bool
	handler    atomic.Pointer[http.Handler]

	mu      sync.Mutex
	results map[string]*mcp.CallToolResult
	calls   []recordedToolCall
}

func newFakeToolServer(t *testing.T, tools ...string) (*fakeToolServer, *httptest.Server) {
	fs := &fakeToolServer{t: t, tools: tools, results: map[string]*mcp.CallToolResult{}}
	fs.restart()
	srv := httptest.NewServer(http.HandlerFunc(fs.serveHTTP))
	t.Cleanup(srv.Close)
	return fs, srv
}

func (f *fakeToolServer) restart() {
	server := mcp.NewServer(&mcp.Implementation{Name: "fake-tools", Version: "0.0.1"}, nil)
	for _, name := range f.tools {
		server.AddTool(&mcp.Tool{Name: name, InputSchema: json.RawMessage(`{"type":"object"}`)}, f.handleTool(name))
	}
	var handler http.Handler = mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return server }, nil)
	f.handler.Store(&handler)
}

func (f *fakeToolServer) serveHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost && r.Header.Get(sessionHeader) == "" {
		f.handshakes.Add(1)
		if f.failInit.Load() {
			http.Error(w, "warming up", http.StatusServiceUnavailable)
			return
		}
	}
	(*f.handler.Load()).ServeHTTP(w, r)
}

func (f *fakeToolServer) handleTool(name string) mcp.ToolHandler {
	return func(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := map[string]any{}
		if len(req.Params.Arguments) > 0 {
			require.NoError(f.t, json.Unmarshal(req.Params.Arguments, &args))
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		f.calls = append(f.calls, recordedToolCall{name: name, arguments: args})
		if result, ok := f.results[name]; ok {
			return result, nil
		}
		return textResult("null"), nil
	}
}

func (f *fakeToolServer) setResult(name string, result *mcp.CallToolResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[name] = result
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	client := NewClient(WithEndpoint(srv.URL))
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestListToolsDiscoversOnceUnderConcurrency(t *testing.T) {
	fs, srv := newFakeToolServer(t, "kpi2", "kpi1", "model_endpoint")
	client := newTestClient(t, srv)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			names, err := client.ListTools(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, []string{"kpi1", "kpi2", "model_endpoint"}, names)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), fs.handshakes.Load())
}

func TestCallToolUnknownToolIsNotFound(t *testing.T) {
	_, srv := newFakeToolServer(t, "kpi1")
	client := newTestClient(t, srv)

	_, err := client.CallTool(context.Background(), "kpi9", nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
	assert.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonToolNotFound))
}

func TestCallToolResultMapping(t *testing.T) {
	fs, srv := newFakeToolServer(t, "structured", "object", "number", "array", "plain", "broken")
	fs.setResult("structured", &mcp.CallToolResult{
		Content:           []mcp.Content{&mcp.TextContent{Text: "ignored"}},
		StructuredContent: map[string]any{"result": 0.8},
	})
	fs.setResult("object", textResult(`{"content":"180"}`))
	fs.setResult("number", textResult(`12.5`))
	fs.setResult("array", textResult(`[{"flight":"AA100"}]`))
	fs.setResult("plain", textResult(`A321`))
	fs.setResult("broken", &mcp.CallToolResult{IsError: true, Content: []mcp.Content{&mcp.TextContent{Text: "bad input"}}})

	client := newTestClient(t, srv)
	ctx := context.Background()

	got, err := client.CallTool(ctx, "structured", nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"result": 0.8}, got)

	got, err = client.CallTool(ctx, "object", nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"content": "180"}, got)

	got, err = client.CallTool(ctx, "number", nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"result": 12.5}, got)

	got, err = client.CallTool(ctx, "array", nil)
	require.NoError(t, err)
	assert.Equal(t, []any{map[string]any{"flight": "AA100"}}, got["result"])

	got, err = client.CallTool(ctx, "plain", nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"result": "A321"}, got)

	_, err = client.CallTool(ctx, "broken", nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUpstream))
	assert.Contains(t, err.Error(), "bad input")
}

func TestCallToolSendsArguments(t *testing.T) {
	fs, srv := newFakeToolServer(t, "kpi1")
	fs.setResult("kpi1", textResult(`0.8`))
	client := newTestClient(t, srv)

	got, err := client.CallTool(context.Background(), "kpi1", map[string]any{"quantity_consumed": 80})
	require.NoError(t, err)
	assert.Equal(t, 0.8, got["result"])

	fs.mu.Lock()
	defer fs.mu.Unlock()
	require.Len(t, fs.calls, 1)
	assert.Equal(t, "kpi1", fs.calls[0].name)
	assert.Equal(t, map[string]any{"quantity_consumed": float64(80)}, fs.calls[0].arguments)
}

func TestCallToolReconnectsAfterSessionLoss(t *testing.T) {
	fs, srv := newFakeToolServer(t, "model_endpoint")
	fs.setResult("model_endpoint", textResult(`{"content":"150"}`))
	client := newTestClient(t, srv)
	ctx := context.Background()

	_, err := client.CallTool(ctx, "model_endpoint", nil)
	require.NoError(t, err)

	// The server forgets the session, as it would after a restart or expiry.
	fs.restart()
	_, _ = client.CallTool(ctx, "model_endpoint", nil)

	got, err := client.CallTool(ctx, "model_endpoint", nil)
	require.NoError(t, err)
	assert.Equal(t, "150", got["content"])
	assert.GreaterOrEqual(t, fs.handshakes.Load(), int32(2))
}

func TestFailedDiscoveryIsRetried(t *testing.T) {
	fs, srv := newFakeToolServer(t, "kpi1")
	fs.failInit.Store(true)
	client := newTestClient(t, srv)

	_, err := client.ListTools(context.Background())
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUpstream))

	fs.failInit.Store(false)
	names, err := client.ListTools(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"kpi1"}, names)
	assert.Equal(t, int32(2), fs.handshakes.Load())
}

func TestTransportFailureIsUpstream(t *testing.T) {
	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, fmt.Errorf("connection refused")
	})
	client := NewClient(WithEndpoint("http://tools.test/mcp"), WithHTTPClient(&http.Client{Transport: rt}))

	_, err := client.CallTool(context.Background(), "kpi1", nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUpstream))
}

func TestInMemoryTransport(t *testing.T) {
	server := mcp.NewServer(&mcp.Implementation{Name: "memory-tools", Version: "0.0.1"}, nil)
	server.AddTool(&mcp.Tool{Name: "kpi3", InputSchema: json.RawMessage(`{"type":"object"}`)},
		func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return textResult(`42`), nil
		})

	client := NewClient(WithTransport(func() mcp.Transport {
		clientTransport, serverTransport := mcp.NewInMemoryTransports()
		_, err := server.Connect(context.Background(), serverTransport, nil)
		require.NoError(t, err)
		return clientTransport
	}))
	t.Cleanup(func() { _ = client.Close() })

	got, err := client.CallTool(context.Background(), "kpi3", nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"result": float64(42)}, got)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
