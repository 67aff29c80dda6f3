package mcpquic

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/hazyhaar/ckan-mcp/pkg/kit"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func TestMagicBytes(t *testing.T) {
	var buf bytes.Buffer
	if err := SendMagicBytes(&buf); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "CKN1" {
		t.Errorf("preamble = %q", buf.String())
	}
	if err := ValidateMagicBytes(&buf); err != nil {
		t.Errorf("valid preamble rejected: %v", err)
	}

	err := ValidateMagicBytes(strings.NewReader("MCP1"))
	if !errors.Is(err, ErrInvalidMagicBytes) {
		t.Errorf("err = %v, want ErrInvalidMagicBytes", err)
	}
	if err := ValidateMagicBytes(strings.NewReader("CK")); err == nil {
		t.Error("short preamble accepted")
	}
}

func TestReadLine(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("{\"a\":1}\n\r\n{\"b\":2}\r\n{\"c\":3}"))
	var got []string
	for {
		line, err := readLine(r, 64)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, string(line))
	}
	want := []string{`{"a":1}`, ``, `{"b":2}`, `{"c":3}`}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("lines = %q, want %q", got, want)
	}
}

func TestReadLine_TooLarge(t *testing.T) {
	r := bufio.NewReaderSize(strings.NewReader(strings.Repeat("x", 10000)+"\n"), 16)
	if _, err := readLine(r, 100); !errors.Is(err, ErrMessageTooLarge) {
		t.Errorf("err = %v, want ErrMessageTooLarge", err)
	}
}

func TestLoopback(t *testing.T) {
	srv := server.NewMCPServer("quic-test", "0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithPromptCapabilities(false),
	)
	srv.AddResource(mcp.NewResource("ckan://demo.ckan.org/dataset/x", "x"),
		func(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			return []mcp.ResourceContents{mcp.TextResourceContents{URI: req.Params.URI, MIMEType: "application/json", Text: `{"name":"x"}`}}, nil
		})
	srv.AddPrompt(mcp.NewPrompt("greet", mcp.WithArgument("who")),
		func(_ context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
			return mcp.NewGetPromptResult("greet", []mcp.PromptMessage{
				mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent("hello "+req.Params.Arguments["who"])),
			}), nil
		})
	kit.RegisterMCPTool(srv, mcp.NewTool("transport"), func(ctx context.Context, _ any) (any, error) {
		return kit.GetTransport(ctx), nil
	}, func(mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{}, nil
	})

	tlsCfg, err := SelfSignedTLSConfig()
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	l, err := NewListener("127.0.0.1:0", tlsCfg, srv, logger)
	if err != nil {
		t.Fatalf("NewListener: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	serveCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- l.Serve(serveCtx) }()
	defer func() {
		stop()
		l.Close()
		<-done
	}()

	c := NewClient(l.Addr().String(), nil)
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	if err := c.Ping(ctx); err != nil {
		t.Errorf("Ping: %v", err)
	}
	if got := c.ServerInfo().Name; got != "quic-test" {
		t.Errorf("server name = %q", got)
	}

	tools, err := c.ListTools(ctx)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if len(tools.Tools) != 1 || tools.Tools[0].Name != "transport" {
		t.Errorf("tools = %+v", tools.Tools)
	}

	res, err := c.CallTool(ctx, "transport", nil)
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if len(res.Content) != 1 {
		t.Fatalf("content = %+v", res.Content)
	}
	if text, _ := res.Content[0].(mcp.TextContent); text.Text != "mcp_quic" {
		t.Errorf("transport seen by tool = %q", text.Text)
	}

	rr, err := c.ReadResource(ctx, "ckan://demo.ckan.org/dataset/x")
	if err != nil {
		t.Fatalf("ReadResource: %v", err)
	}
	if len(rr.Contents) != 1 {
		t.Fatalf("contents = %+v", rr.Contents)
	}
	if tc, ok := rr.Contents[0].(mcp.TextResourceContents); !ok || tc.Text != `{"name":"x"}` {
		t.Errorf("resource = %+v", rr.Contents[0])
	}

	pr, err := c.GetPrompt(ctx, "greet", map[string]string{"who": "ckan"})
	if err != nil {
		t.Fatalf("GetPrompt: %v", err)
	}
	if len(pr.Messages) != 1 {
		t.Fatalf("messages = %+v", pr.Messages)
	}
	if tc, ok := pr.Messages[0].Content.(mcp.TextContent); !ok || tc.Text != "hello ckan" {
		t.Errorf("prompt message = %+v", pr.Messages[0].Content)
	}
}

func TestClient_NotConnected(t *testing.T) {
	c := NewClient("127.0.0.1:1", nil)
	if _, err := c.CallTool(context.Background(), "x", nil); !errors.Is(err, ErrNotConnected) {
		t.Errorf("err = %v", err)
	}
	if _, err := c.ReadResource(context.Background(), "ckan://x/dataset/y"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("err = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close on unconnected client: %v", err)
	}
}
