package mcpquic

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/quic-go/quic-go"
)

// Client is an MCP client for a ckan-mcp quic or chassis listener. It is not
// safe for concurrent Connect/Close; calls on a connected client are.
type Client struct {
	addr   string
	tlsCfg *tls.Config
	info   mcp.Implementation

	conn    *quic.Conn
	stream  *quic.Stream
	session *client.Client
	server  mcp.Implementation
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClientInfo sets the implementation name and version sent in initialize.
func WithClientInfo(name, version string) ClientOption {
	return func(c *Client) {
		c.info = mcp.Implementation{Name: name, Version: version}
	}
}

// NewClient prepares a client for addr. A nil tlsCfg accepts self-signed
// certificates.
func NewClient(addr string, tlsCfg *tls.Config, opts ...ClientOption) *Client {
	if tlsCfg == nil {
		tlsCfg = ClientTLSConfig(true)
	}
	c := &Client{
		addr:   addr,
		tlsCfg: tlsCfg,
		info:   mcp.Implementation{Name: "ckan-mcp-quic-client", Version: "1.0.0"},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect opens the MCP stream and runs the initialize handshake.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.dial(ctx); err != nil {
		return err
	}
	if err := c.initialize(ctx); err != nil {
		c.closeTransport()
		return err
	}
	return nil
}

// dial establishes the connection, checks ALPN and sends the preamble.
func (c *Client) dial(ctx context.Context) error {
	conn, err := quic.DialAddr(ctx, c.addr, c.tlsCfg, QUICConfig())
	if err != nil {
		return &ConnectionError{RemoteAddr: c.addr, Code: ConnErrorNoError, Err: err}
	}
	if alpn := conn.ConnectionState().TLS.NegotiatedProtocol; alpn != ALPNProtocol {
		conn.CloseWithError(ConnErrorUnsupportedALPN, "unsupported ALPN: "+alpn)
		return &ConnectionError{RemoteAddr: c.addr, Code: ConnErrorUnsupportedALPN, Err: ErrUnsupportedALPN}
	}

	stream, err := conn.OpenStreamSync(ctx)
	if err == nil {
		err = SendMagicBytes(stream)
	}
	if err != nil {
		conn.CloseWithError(ConnErrorProtocolViolation, "stream setup failed")
		return &ConnectionError{RemoteAddr: c.addr, Code: ConnErrorProtocolViolation, Err: err}
	}

	c.conn, c.stream = conn, stream
	return nil
}

func (c *Client) initialize(ctx context.Context) error {
	session := client.NewClient(transport.NewIO(c.stream, streamWriter{c.stream}, nopReadCloser{}))
	if err := session.Start(ctx); err != nil {
		return fmt.Errorf("mcp start: %w", err)
	}

	var req mcp.InitializeRequest
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = c.info

	initCtx, cancel := context.WithTimeout(ctx, DefaultHandshakeTimeout)
	defer cancel()
	res, err := session.Initialize(initCtx, req)
	if err != nil {
		session.Close()
		return fmt.Errorf("mcp initialize: %w", err)
	}

	c.session = session
	c.server = res.ServerInfo
	return nil
}

// ServerInfo is what the server reported during initialize.
func (c *Client) ServerInfo() mcp.Implementation {
	return c.server
}

func (c *Client) connected() (*client.Client, error) {
	if c.session == nil {
		return nil, ErrNotConnected
	}
	return c.session, nil
}

func (c *Client) ListTools(ctx context.Context) (*mcp.ListToolsResult, error) {
	s, err := c.connected()
	if err != nil {
		return nil, err
	}
	return s.ListTools(ctx, mcp.ListToolsRequest{})
}

// CallTool invokes a tool. Tool failures come back as results with IsError
// set, not as errors.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	s, err := c.connected()
	if err != nil {
		return nil, err
	}
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return s.CallTool(ctx, req)
}

// ReadResource reads a resource such as ckan://demo.ckan.org/dataset/<id>.
func (c *Client) ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	s, err := c.connected()
	if err != nil {
		return nil, err
	}
	var req mcp.ReadResourceRequest
	req.Params.URI = uri
	return s.ReadResource(ctx, req)
}

func (c *Client) GetPrompt(ctx context.Context, name string, args map[string]string) (*mcp.GetPromptResult, error) {
	s, err := c.connected()
	if err != nil {
		return nil, err
	}
	var req mcp.GetPromptRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return s.GetPrompt(ctx, req)
}

func (c *Client) Ping(ctx context.Context) error {
	s, err := c.connected()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.Ping(ctx)
}

// Close ends the MCP session and the connection. Closing an unconnected
// client is a no-op.
func (c *Client) Close() error {
	if c.session != nil {
		c.session.Close()
		c.session = nil
	}
	return c.closeTransport()
}

func (c *Client) closeTransport() error {
	var err error
	if c.stream != nil {
		c.stream.Close()
		c.stream = nil
	}
	if c.conn != nil {
		err = c.conn.CloseWithError(ConnErrorNoError, "client closing")
		c.conn = nil
	}
	return err
}

// streamWriter adapts a QUIC stream to the io.WriteCloser mcp-go writes to.
type streamWriter struct{ stream *quic.Stream }

func (w streamWriter) Write(p []byte) (int, error) { return w.stream.Write(p) }
func (w streamWriter) Close() error                { return w.stream.Close() }

// nopReadCloser stands in for the stderr pipe of a subprocess transport.
type nopReadCloser struct{}

func (nopReadCloser) Read([]byte) (int, error) { return 0, io.EOF }
func (nopReadCloser) Close() error             { return nil }
