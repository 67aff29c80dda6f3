// Package chassis serves one MCP server on a single port over every transport
// it speaks.
//
// Two listeners share the port:
//   - TCP: HTTP/1.1 + HTTP/2 over TLS (streamable MCP on /mcp, /health)
//   - UDP: QUIC, demultiplexed by ALPN:
//     "h3"          -> HTTP/3 (same handler as TCP)
//     "ckan-mcp-v1" -> MCP JSON-RPC over a QUIC stream
//
// HTTP responses carry an Alt-Svc header advertising HTTP/3 so capable
// clients can upgrade.
package chassis

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/hazyhaar/ckan-mcp/pkg/mcpquic"
	"github.com/mark3labs/mcp-go/server"
	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"
)

const alpnH3 = "h3"

// Application error codes for QUIC connections rejected at demux.
const (
	connErrMCPDisabled quic.ApplicationErrorCode = 0x10
	connErrUnknownALPN quic.ApplicationErrorCode = 0x11
)

// Config holds configuration for the chassis server.
type Config struct {
	Addr      string            // TCP and UDP listen address; port 0 picks one free port for both
	TLS       *tls.Config       // nil: load CertFile/KeyFile, or self-signed when unset
	CertFile  string
	KeyFile   string
	Handler   http.Handler      // served on TCP and HTTP/3
	MCPServer *server.MCPServer // nil disables MCP over QUIC
	Logger    *slog.Logger
}

// Server is the dual-transport chassis.
type Server struct {
	logger      *slog.Logger
	tlsCfg      *tls.Config
	handler     http.Handler
	mcpHandler  *mcpquic.Handler
	addr        string
	tcpServer   *http.Server
	h3Server    *http3.Server
	tcpLn       net.Listener
	quicLn      *quic.Listener
	wg          sync.WaitGroup
	connMu      sync.Mutex
	stopping    bool
	stopOnce    sync.Once
	stopErr     error
	listenMu    sync.Mutex
	isListening bool
}

// New validates cfg and prepares TLS. Nothing is bound until Listen.
func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Handler == nil {
		return nil, errors.New("chassis: nil handler")
	}

	tlsCfg := cfg.TLS
	if tlsCfg == nil {
		var selfSigned bool
		var err error
		tlsCfg, selfSigned, err = mcpquic.ListenerTLSConfig(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("chassis tls: %w", err)
		}
		if selfSigned {
			cfg.Logger.Warn("TLS: self-signed certificate generated")
		}
	}
	tlsCfg = tlsCfg.Clone()
	tlsCfg.NextProtos = []string{alpnH3, mcpquic.ALPNProtocol}

	s := &Server{
		logger:  cfg.Logger,
		tlsCfg:  tlsCfg,
		handler: cfg.Handler,
		addr:    cfg.Addr,
	}
	if cfg.MCPServer != nil {
		s.mcpHandler = mcpquic.NewHandler(cfg.MCPServer, cfg.Logger)
	}
	return s, nil
}

// securityHeaders adds standard security headers to every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// altSvc advertises HTTP/3 on port.
func altSvc(port int, next http.Handler) http.Handler {
	value := fmt.Sprintf(`h3=":%d"; ma=86400`, port)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Alt-Svc", value)
		next.ServeHTTP(w, r)
	})
}

// Listen binds UDP first, then TCP on the port UDP obtained.
func (s *Server) Listen() error {
	s.listenMu.Lock()
	defer s.listenMu.Unlock()
	if s.isListening {
		return errors.New("chassis: already listening")
	}

	ln, err := quic.ListenAddr(s.addr, s.tlsCfg, mcpquic.QUICConfig())
	if err != nil {
		return fmt.Errorf("quic listen %s: %w", s.addr, err)
	}
	udp := ln.Addr().(*net.UDPAddr)

	host, _, err := net.SplitHostPort(s.addr)
	if err != nil {
		ln.Close()
		return fmt.Errorf("chassis addr %q: %w", s.addr, err)
	}
	tcpTLS := s.tlsCfg.Clone()
	tcpTLS.NextProtos = []string{"h2", "http/1.1"}
	tcpLn, err := tls.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(udp.Port)), tcpTLS)
	if err != nil {
		ln.Close()
		return fmt.Errorf("tcp listen: %w", err)
	}

	handler := securityHeaders(altSvc(udp.Port, s.handler))
	s.quicLn = ln
	s.tcpLn = tcpLn
	s.tcpServer = &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	s.h3Server = &http3.Server{Handler: handler}
	s.isListening = true

	s.logger.Info("chassis listening",
		"addr", udp.String(),
		"tcp", "HTTP/1.1+HTTP/2 (TLS)",
		"udp", "QUIC (HTTP/3 + MCP)",
	)
	return nil
}

// Addr returns the bound UDP address; TCP uses the same port.
func (s *Server) Addr() net.Addr {
	if s.quicLn == nil {
		return nil
	}
	return s.quicLn.Addr()
}

// Serve runs both listeners until ctx is cancelled or one of them fails,
// then stops everything. Listen is called if it has not been.
func (s *Server) Serve(ctx context.Context) error {
	s.listenMu.Lock()
	listening := s.isListening
	s.listenMu.Unlock()
	if !listening {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	errCh := make(chan error, 2)
	go func() {
		if err := s.tcpServer.Serve(s.tcpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("tcp: %w", err)
		}
	}()
	go func() {
		if err := s.acceptQUIC(ctx); err != nil {
			errCh <- err
		}
	}()

	var err error
	select {
	case <-ctx.Done():
	case err = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if stopErr := s.Stop(shutdownCtx); err == nil {
		err = stopErr
	}
	return err
}

// acceptQUIC demultiplexes QUIC connections by negotiated ALPN.
func (s *Server) acceptQUIC(ctx context.Context) error {
	for {
		conn, err := s.quicLn.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, quic.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("quic accept: %w", err)
		}

		alpn := conn.ConnectionState().TLS.NegotiatedProtocol
		switch {
		case alpn == alpnH3:
			s.track(conn, func() {
				if err := s.h3Server.ServeQUICConn(conn); err != nil {
					s.logger.Debug("http3 conn done", "remote", conn.RemoteAddr(), "error", err)
				}
			})
		case alpn == mcpquic.ALPNProtocol && s.mcpHandler != nil:
			s.track(conn, func() {
				s.mcpHandler.ServeConn(ctx, conn)
			})
		case alpn == mcpquic.ALPNProtocol:
			conn.CloseWithError(connErrMCPDisabled, "MCP not enabled")
		default:
			s.logger.Warn("unknown ALPN, closing", "alpn", alpn, "remote", conn.RemoteAddr())
			conn.CloseWithError(connErrUnknownALPN, "unsupported ALPN: "+alpn)
		}
	}
}

// track runs serve for conn under the wait group. Connections accepted after
// Stop has begun are closed instead.
func (s *Server) track(conn *quic.Conn, serve func()) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.stopping {
		conn.CloseWithError(mcpquic.ConnErrorNoError, "server stopping")
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		serve()
	}()
}

// Stop shuts down the TCP server, HTTP/3 and the QUIC listener, then waits
// for open QUIC sessions. Safe to call more than once.
func (s *Server) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() {
		s.logger.Info("chassis stopping")
		s.connMu.Lock()
		s.stopping = true
		s.connMu.Unlock()

		var errs []error
		if s.tcpServer != nil {
			errs = append(errs, s.tcpServer.Shutdown(ctx))
		}
		if s.h3Server != nil {
			errs = append(errs, s.h3Server.Close())
		}
		if s.quicLn != nil {
			errs = append(errs, s.quicLn.Close())
		}
		s.wg.Wait()
		s.stopErr = errors.Join(errs...)
		s.logger.Info("chassis stopped")
	})
	return s.stopErr
}
