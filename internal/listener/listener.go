package listener

import (
	"context"
	"net"
	"runtime/debug"
	"time"

	"github.com/danmuck/ledctl/internal/observability"
	"github.com/danmuck/ledctl/internal/protocol/frame"
	"github.com/rs/zerolog/log"
)

const (
	TransportTCP = "tcp"
	TransportUDP = "udp"
)

// Source identifies where a frame came from.
type Source struct {
	Identity  string
	Addr      net.Addr
	Transport string
}

// Handler receives every successfully decoded frame.
type Handler func(f frame.Frame, src Source)

// Config is shared by both transports.
type Config struct {
	Addr string
	// ReadTimeout bounds a stream connection from accept to EOF. Zero disables it.
	ReadTimeout time.Duration
}

// deliver decodes one message and hands it to h. Decode failures drop the
// message only.
func deliver(ctx context.Context, transport string, data []byte, addr net.Addr, r *Resolver, h Handler) {
	f, err := frame.Decode(data)
	if err != nil {
		observability.RecordDecodeError(transport, frame.Reason(err))
		log.Error().
			Str("transport", transport).
			Str("remote", addrString(addr)).
			Int("bytes", len(data)).
			Err(err).
			Msg("dropping undecodable frame")
		return
	}
	observability.RecordFrame(transport, f.Kind())
	src := Source{
		Identity:  r.Identity(ctx, addr),
		Addr:      addr,
		Transport: transport,
	}
	log.Trace().
		Str("transport", transport).
		Str("client", src.Identity).
		Str("kind", f.Kind()).
		Msg("frame received")
	if h != nil {
		h(f, src)
	}
}

// recoverHandler keeps one bad message from taking the listener down.
func recoverHandler(transport string, addr net.Addr) {
	if r := recover(); r != nil {
		log.Error().
			Str("transport", transport).
			Str("remote", addrString(addr)).
			Interface("panic", r).
			Bytes("stack", debug.Stack()).
			Msg("frame handler panicked")
	}
}

func addrString(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	return addr.String()
}
