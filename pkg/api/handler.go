package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hazyhaar/ckan-mcp/pkg/kit"
	"github.com/mark3labs/mcp-go/server"
)

// Health is the static descriptor served on GET /health.
type Health struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Tools     int    `json:"tools"`
	Resources int    `json:"resources"`
	Prompts   int    `json:"prompts"`
	Transport string `json:"transport"`
}

// HealthInfo describes what NewMCPServer registers.
func HealthInfo(transport string) Health {
	return Health{
		Status:    "ok",
		Version:   Version,
		Tools:     len(Specs()),
		Resources: len(resourceKinds),
		Prompts:   1,
		Transport: transport,
	}
}

// NewStreamableHandler serves srv over streamable HTTP without sessions.
// Every request is tagged with the http transport and the caller's
// X-Request-ID when present.
func NewStreamableHandler(srv *server.MCPServer) http.Handler {
	return server.NewStreamableHTTPServer(srv,
		server.WithStateLess(true),
		server.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			ctx = kit.WithTransport(ctx, "http")
			if id := r.Header.Get("X-Request-ID"); id != "" {
				ctx = kit.WithRequestID(ctx, id)
			}
			return ctx
		}),
	)
}

// NewRouter returns an http.Handler with the MCP endpoint and health check.
func NewRouter(mcpHandler http.Handler, health Health) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/mcp", mcpHandler)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, health)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	return cors(mux)
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// cors is a simple CORS middleware for browser-based clients.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Mcp-Session-Id, Mcp-Protocol-Version, X-Request-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
