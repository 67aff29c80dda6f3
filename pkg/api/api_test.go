package api

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/hazyhaar/ckan-mcp/pkg/ckan"
	"github.com/hazyhaar/ckan-mcp/pkg/portal"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// fakeCKAN answers /api/3/action/<action> with canned bodies and records
// every query it receives.
type fakeCKAN struct {
	*httptest.Server
	mu     sync.Mutex
	calls  []*url.URL
	bodies map[string]string
	status map[string]int
}

func newFakeCKAN(t *testing.T) *fakeCKAN {
	t.Helper()
	f := &fakeCKAN{
		bodies: map[string]string{},
		status: map[string]int{},
	}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.calls = append(f.calls, r.URL)
		f.mu.Unlock()

		action := strings.TrimPrefix(r.URL.Path, "/api/3/action/")
		body, ok := f.bodies[action]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"success": false, "error": {"message": "Not found", "__type": "Not Found Error"}}`))
			return
		}
		if code := f.status[action]; code != 0 {
			w.WriteHeader(code)
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeCKAN) on(action, result string) {
	f.bodies[action] = `{"success": true, "result": ` + result + `}`
}

func (f *fakeCKAN) lastQuery(t *testing.T) url.Values {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		t.Fatal("no CKAN request was made")
	}
	return f.calls[len(f.calls)-1].Query()
}

func (f *fakeCKAN) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestServer(t *testing.T) *server.MCPServer {
	t.Helper()
	reg, err := portal.Default()
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
	return NewMCPServer(Deps{
		Client:  ckan.NewClient(ckan.WithLogger(logger)),
		Portals: reg,
		Logger:  logger,
	})
}

func newTestClient(t *testing.T, srv *server.MCPServer) *client.Client {
	t.Helper()
	ctx := context.Background()
	c, err := client.NewInProcessClient(srv)
	if err != nil {
		t.Fatalf("NewInProcessClient: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	var init mcp.InitializeRequest
	init.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	init.Params.ClientInfo = mcp.Implementation{Name: "api-test", Version: "0"}
	if _, err := c.Initialize(ctx, init); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return c
}

func callTool(t *testing.T, c *client.Client, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	res, err := c.CallTool(context.Background(), req)
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	return res
}

func resultText(res *mcp.CallToolResult) string {
	var parts []string
	for _, c := range res.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}
