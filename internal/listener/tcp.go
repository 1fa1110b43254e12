package listener

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/danmuck/ledctl/internal/observability"
	"github.com/danmuck/ledctl/internal/protocol/frame"
	"github.com/rs/zerolog/log"
)

// TCPListener accepts one frame per connection: it reads until the peer
// closes, decodes the whole buffer, then closes its side.
type TCPListener struct {
	cfg      Config
	resolver *Resolver
	handler  Handler

	wg      sync.WaitGroup
	connsMu sync.Mutex
	conns   map[net.Conn]struct{}
}

func NewTCP(cfg Config, resolver *Resolver, handler Handler) *TCPListener {
	return &TCPListener{
		cfg:      cfg,
		resolver: resolver,
		handler:  handler,
		conns:    make(map[net.Conn]struct{}),
	}
}

// ListenAndServe binds cfg.Addr and serves until ctx is cancelled.
func (l *TCPListener) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", l.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen tcp %s: %w", l.cfg.Addr, err)
	}
	return l.Serve(ctx, ln)
}

// Serve runs the accept loop on an existing listener. In-flight connections
// are closed when ctx is cancelled.
func (l *TCPListener) Serve(ctx context.Context, ln net.Listener) error {
	defer ln.Close()
	log.Info().Str("addr", ln.Addr().String()).Msg("tcp listener started")
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		_ = ln.Close()
		l.closeAllConns()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				l.wg.Wait()
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				log.Warn().Err(err).Msg("tcp accept timeout")
				continue
			}
			l.wg.Wait()
			return err
		}
		l.trackConn(conn)
		if ctx.Err() != nil {
			// Accepted after the shutdown sweep ran.
			_ = conn.Close()
		}
		l.wg.Add(1)
		go l.handleConn(ctx, conn)
	}
}

func (l *TCPListener) handleConn(ctx context.Context, conn net.Conn) {
	defer l.wg.Done()
	defer l.untrackConn(conn)
	defer conn.Close()
	remote := conn.RemoteAddr()
	defer recoverHandler(TransportTCP, remote)

	if l.cfg.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(l.cfg.ReadTimeout))
	}
	data, err := io.ReadAll(io.LimitReader(conn, frame.MaxImageFrameLen+1))
	if err != nil {
		log.Warn().Str("remote", remote.String()).Err(err).Msg("tcp read failed")
		return
	}
	if len(data) == 0 {
		return
	}
	if len(data) > frame.MaxImageFrameLen {
		observability.RecordDecodeError(TransportTCP, frame.Reason(frame.ErrMalformedFrame))
		log.Error().
			Str("remote", remote.String()).
			Int("limit", frame.MaxImageFrameLen).
			Msg("dropping oversized tcp frame")
		return
	}
	deliver(ctx, TransportTCP, data, remote, l.resolver, l.handler)
}

func (l *TCPListener) trackConn(conn net.Conn) {
	l.connsMu.Lock()
	defer l.connsMu.Unlock()
	l.conns[conn] = struct{}{}
}

func (l *TCPListener) untrackConn(conn net.Conn) {
	l.connsMu.Lock()
	defer l.connsMu.Unlock()
	delete(l.conns, conn)
}

func (l *TCPListener) closeAllConns() {
	l.connsMu.Lock()
	defer l.connsMu.Unlock()
	for conn := range l.conns {
		_ = conn.Close()
	}
}
