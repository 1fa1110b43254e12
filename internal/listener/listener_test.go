package listener

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/ledctl/internal/protocol/frame"
	"github.com/danmuck/ledctl/internal/testutil/testlog"
)

type delivery struct {
	f   frame.Frame
	src Source
}

type collector struct {
	mu  sync.Mutex
	got []delivery
	ch  chan struct{}
}

func newCollector() *collector {
	return &collector{ch: make(chan struct{}, 64)}
}

func (c *collector) handle(f frame.Frame, src Source) {
	c.mu.Lock()
	c.got = append(c.got, delivery{f: f, src: src})
	c.mu.Unlock()
	c.ch <- struct{}{}
}

func (c *collector) wait(t *testing.T, n int) []delivery {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-c.ch:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for delivery %d of %d", i+1, n)
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]delivery, len(c.got))
	copy(out, c.got)
	return out
}

func (c *collector) expectNone(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case <-c.ch:
		t.Fatalf("unexpected delivery")
	case <-time.After(d):
	}
}

func rawResolver() *Resolver {
	cfg := DefaultResolverConfig()
	cfg.Reverse = false
	return NewResolver(cfg)
}

func mustEncode(t *testing.T, f frame.Frame) []byte {
	t.Helper()
	b, err := frame.Encode(f)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return b
}

func startTCP(t *testing.T, h Handler) (string, func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	l := NewTCP(Config{}, rawResolver(), h)
	done := make(chan error, 1)
	go func() { done <- l.Serve(ctx, ln) }()
	return ln.Addr().String(), func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("serve returned error: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("tcp listener did not stop")
		}
	}
}

func sendTCP(t *testing.T, addr string, payload []byte) {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if _, err := conn.Write(payload); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestTCPDeliversOneFramePerConnection(t *testing.T) {
	testlog.Start(t)
	c := newCollector()
	addr, stop := startTCP(t, c.handle)
	defer stop()

	img := frame.ImageFrame{Height: 16, Width: 32, Pixels: make([]byte, 16*32*4)}
	sendTCP(t, addr, mustEncode(t, img))

	got := c.wait(t, 1)
	out, ok := got[0].f.(frame.ImageFrame)
	if !ok || out.Height != 16 || out.Width != 32 {
		t.Fatalf("unexpected frame: %#v", got[0].f)
	}
	if got[0].src.Identity != "127.0.0.1" || got[0].src.Transport != TransportTCP {
		t.Fatalf("unexpected source: %+v", got[0].src)
	}
}

func TestTCPMalformedConnectionDoesNotAffectOthers(t *testing.T) {
	testlog.Start(t)
	c := newCollector()
	addr, stop := startTCP(t, c.handle)
	defer stop()

	// Held-open connection that has not finished its frame yet.
	pending, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	cmd := mustEncode(t, frame.CommandFrame{Command: frame.SetPriority, Value: 9})
	if _, err := pending.Write(cmd[:2]); err != nil {
		t.Fatalf("write partial: %v", err)
	}

	sendTCP(t, addr, []byte{0xde, 0xad, 0xbe, 0xef})
	sendTCP(t, addr, []byte{})
	sendTCP(t, addr, mustEncode(t, frame.CommandFrame{Command: frame.SetBrightness, Value: 20}))

	got := c.wait(t, 1)
	if cf, ok := got[0].f.(frame.CommandFrame); !ok || cf.Command != frame.SetBrightness || cf.Value != 20 {
		t.Fatalf("unexpected frame: %#v", got[0].f)
	}

	if _, err := pending.Write(cmd[2:]); err != nil {
		t.Fatalf("write rest: %v", err)
	}
	_ = pending.Close()
	got = c.wait(t, 1)
	if cf, ok := got[1].f.(frame.CommandFrame); !ok || cf.Command != frame.SetPriority || cf.Value != 9 {
		t.Fatalf("unexpected frame from held connection: %#v", got[1].f)
	}
}

func TestTCPHandlerPanicIsContained(t *testing.T) {
	testlog.Start(t)
	c := newCollector()
	var calls int
	var mu sync.Mutex
	h := func(f frame.Frame, src Source) {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			panic("boom")
		}
		c.handle(f, src)
	}
	addr, stop := startTCP(t, h)
	defer stop()

	cmd := mustEncode(t, frame.CommandFrame{Command: frame.SetPriority, Value: 1})
	sendTCP(t, addr, cmd)
	sendTCP(t, addr, cmd)
	c.wait(t, 1)
}

func TestTCPRejectsOversizedPayload(t *testing.T) {
	testlog.Start(t)
	c := newCollector()
	addr, stop := startTCP(t, c.handle)
	defer stop()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	// The server may hang up before the whole payload is written.
	_, _ = conn.Write(make([]byte, frame.MaxImageFrameLen+10))
	_ = conn.Close()
	c.expectNone(t, 100*time.Millisecond)
}

func TestUDPDeliversDatagramsInOrder(t *testing.T) {
	testlog.Start(t)
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	c := newCollector()
	ctx, cancel := context.WithCancel(context.Background())
	l := NewUDP(Config{}, rawResolver(), c.handle)
	done := make(chan error, 1)
	go func() { done <- l.Serve(ctx, pc) }()

	conn, err := net.Dial("udp", pc.LocalAddr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte{0x00, 0x00, 0x01}); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	for v := uint8(1); v <= 5; v++ {
		if _, err := conn.Write(mustEncode(t, frame.CommandFrame{Command: frame.SetPriority, Value: v})); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	got := c.wait(t, 5)
	for i, d := range got {
		cf := d.f.(frame.CommandFrame)
		if cf.Value != uint8(i+1) {
			t.Fatalf("out of order delivery at %d: %+v", i, cf)
		}
		if d.src.Identity != "127.0.0.1" || d.src.Transport != TransportUDP {
			t.Fatalf("unexpected source: %+v", d.src)
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("udp listener did not stop")
	}
}

func TestResolverUsesReverseNameAndCaches(t *testing.T) {
	testlog.Start(t)
	r := NewResolver(DefaultResolverConfig())
	lookups := 0
	r.lookup = func(ctx context.Context, ip string) ([]string, error) {
		lookups++
		return []string{"panel-feeder.lan."}, nil
	}
	addr := &net.UDPAddr{IP: net.ParseIP("10.0.0.7"), Port: 4000}
	for i := 0; i < 3; i++ {
		if got := r.Identity(context.Background(), addr); got != "panel-feeder.lan" {
			t.Fatalf("unexpected identity %q", got)
		}
	}
	if lookups != 1 {
		t.Fatalf("expected one cached lookup, got %d", lookups)
	}
}

func TestResolverFallsBackToAddress(t *testing.T) {
	testlog.Start(t)
	cfg := DefaultResolverConfig()
	cfg.IncludePort = true
	r := NewResolver(cfg)
	r.lookup = func(ctx context.Context, ip string) ([]string, error) {
		return nil, errors.New("no such host")
	}
	addr := &net.TCPAddr{IP: net.ParseIP("192.168.1.20"), Port: 51000}
	if got := r.Identity(context.Background(), addr); got != "192.168.1.20:51000" {
		t.Fatalf("unexpected identity %q", got)
	}
}

func TestResolverWithoutReverseLookup(t *testing.T) {
	testlog.Start(t)
	r := rawResolver()
	r.lookup = func(ctx context.Context, ip string) ([]string, error) {
		t.Fatalf("lookup should not run when reverse resolution is disabled")
		return nil, nil
	}
	addr := &net.UDPAddr{IP: net.ParseIP("::1"), Port: 9}
	if got := r.Identity(context.Background(), addr); got != "::1" {
		t.Fatalf("unexpected identity %q", got)
	}
	var nilResolver *Resolver
	if got := nilResolver.Identity(context.Background(), addr); got != "::1" {
		t.Fatalf("nil resolver should return raw ip, got %q", got)
	}
}
