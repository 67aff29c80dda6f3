package chassis

import (
	"context"
	"crypto/tls"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hazyhaar/ckan-mcp/pkg/mcpquic"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/quic-go/quic-go/http3"
)

func startChassis(t *testing.T) *Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "ok "+r.Proto)
	})

	mcpSrv := server.NewMCPServer("chassis-test", "0", server.WithToolCapabilities(false))
	mcpSrv.AddTool(mcp.NewTool("ping"), func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText("pong"), nil
	})

	s, err := New(Config{
		Addr:      "127.0.0.1:0",
		Handler:   mux,
		MCPServer: mcpSrv,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Listen(); err != nil {
		t.Fatalf("Listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(15 * time.Second):
			t.Error("Serve did not return after cancel")
		}
	})
	return s
}

func TestNew_NilHandler(t *testing.T) {
	if _, err := New(Config{Addr: ":0"}); err == nil {
		t.Error("nil handler accepted")
	}
}

func TestChassis_TCP(t *testing.T) {
	s := startChassis(t)
	client := &http.Client{
		Timeout:   5 * time.Second,
		Transport: &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}},
	}

	resp, err := client.Get("https://" + s.Addr().String() + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !strings.HasPrefix(string(body), "ok HTTP/1.1") {
		t.Errorf("body = %q", body)
	}
	if got := resp.Header.Get("Alt-Svc"); !strings.HasPrefix(got, `h3=":`) {
		t.Errorf("Alt-Svc = %q", got)
	}
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
}

func TestChassis_HTTP3(t *testing.T) {
	s := startChassis(t)
	tr := &http3.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}}
	defer tr.Close()
	client := &http.Client{Timeout: 5 * time.Second, Transport: tr}

	resp, err := client.Get("https://" + s.Addr().String() + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "ok HTTP/3.0" {
		t.Errorf("body = %q", body)
	}
}

func TestChassis_MCPOverQUIC(t *testing.T) {
	s := startChassis(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c := mcpquic.NewClient(s.Addr().String(), nil)
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	res, err := c.CallTool(ctx, "ping", nil)
	if err != nil {
		t.Fatal(err)
	}
	if text, ok := res.Content[0].(mcp.TextContent); !ok || text.Text != "pong" {
		t.Errorf("content = %+v", res.Content)
	}
}

func TestChassis_StopDuringConnects(t *testing.T) {
	s := startChassis(t)
	addr := s.Addr().String()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var dialers sync.WaitGroup
	for i := 0; i < 8; i++ {
		dialers.Add(1)
		go func() {
			defer dialers.Done()
			for j := 0; j < 5; j++ {
				c := mcpquic.NewClient(addr, nil)
				if err := c.Connect(ctx); err != nil {
					return
				}
				c.Close()
			}
		}()
	}

	stopErrs := make(chan error, 3)
	for i := 0; i < 3; i++ {
		go func() { stopErrs <- s.Stop(context.Background()) }()
	}
	var first error
	for i := 0; i < 3; i++ {
		select {
		case err := <-stopErrs:
			if i == 0 {
				first = err
			} else if (err == nil) != (first == nil) {
				t.Errorf("Stop results differ: %v vs %v", first, err)
			}
		case <-time.After(15 * time.Second):
			t.Fatal("Stop did not return")
		}
	}
	dialers.Wait()

	c := mcpquic.NewClient(addr, nil)
	shortCtx, shortCancel := context.WithTimeout(context.Background(), time.Second)
	defer shortCancel()
	if err := c.Connect(shortCtx); err == nil {
		c.Close()
		t.Error("Connect succeeded after Stop")
	}
}
