package listener

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/rs/zerolog/log"
)

const maxDatagram = 64 * 1024

// UDPListener decodes each datagram as exactly one frame. Datagrams are
// handled on the receive loop, so frames from one source keep their order.
type UDPListener struct {
	cfg      Config
	resolver *Resolver
	handler  Handler
}

func NewUDP(cfg Config, resolver *Resolver, handler Handler) *UDPListener {
	return &UDPListener{cfg: cfg, resolver: resolver, handler: handler}
}

// ListenAndServe binds cfg.Addr and serves until ctx is cancelled.
func (l *UDPListener) ListenAndServe(ctx context.Context) error {
	pc, err := net.ListenPacket("udp", l.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen udp %s: %w", l.cfg.Addr, err)
	}
	return l.Serve(ctx, pc)
}

// Serve runs the receive loop on an existing packet conn.
func (l *UDPListener) Serve(ctx context.Context, pc net.PacketConn) error {
	defer pc.Close()
	log.Info().Str("addr", pc.LocalAddr().String()).Msg("udp listener started")
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		_ = pc.Close()
	}()

	buf := make([]byte, maxDatagram)
	for {
		n, addr, err := pc.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return err
		}
		if n == 0 {
			continue
		}
		l.handlePacket(ctx, buf[:n], addr)
	}
}

func (l *UDPListener) handlePacket(ctx context.Context, data []byte, addr net.Addr) {
	defer recoverHandler(TransportUDP, addr)
	deliver(ctx, TransportUDP, data, addr, l.resolver, l.handler)
}
