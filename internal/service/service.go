package service

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/danmuck/ledctl/internal/arbiter"
	"github.com/danmuck/ledctl/internal/listener"
	"github.com/danmuck/ledctl/internal/logging"
	"github.com/danmuck/ledctl/internal/observability"
	"github.com/danmuck/ledctl/internal/protocol/frame"
	"github.com/danmuck/ledctl/internal/render"
	"github.com/danmuck/ledctl/internal/status"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Loader reads a ServiceConfig from a file; used by hot reload.
type Loader func(path string) (ServiceConfig, error)

// Service runs the listeners, the election loop, and the status server
// around one arbiter and one sink.
type Service struct {
	cfg    ServiceConfig
	sink   arbiter.Sink
	arb    *arbiter.Arbiter
	status *status.Server
	logger zerolog.Logger

	configPath string
	loader     Loader

	mu      sync.RWMutex
	tcpAddr net.Addr
	udpAddr net.Addr
	ready   chan struct{}
}

// New validates cfg and builds the sink it names.
func New(cfg ServiceConfig) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sink, err := buildSink(cfg)
	if err != nil {
		return nil, err
	}
	return NewWithSink(cfg, sink)
}

// NewWithSink builds a service that dispatches to an existing sink.
func NewWithSink(cfg ServiceConfig, sink arbiter.Sink) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.InstanceID) == "" {
		cfg.InstanceID = uuid.NewString()
	}
	observability.RegisterMetrics()

	s := &Service{
		cfg:    cfg,
		sink:   sink,
		arb:    arbiter.New(sink, cfg.arbiterConfig()),
		logger: log.With().Str("instance", cfg.InstanceID).Logger(),
		ready:  make(chan struct{}),
	}
	if cfg.StatusAddr != "" {
		s.status = status.New(status.Config{
			Addr:        cfg.StatusAddr,
			CORSOrigins: cfg.CORSOrigins,
			InstanceID:  cfg.InstanceID,
		}, s.arb)
	}
	return s, nil
}

func buildSink(cfg ServiceConfig) (arbiter.Sink, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Display.Sink)) {
	case SinkNone:
		return render.Discard{}, nil
	case SinkMatrix:
		strip := render.NewFramebuffer(cfg.Display.Height * cfg.Display.Width)
		return render.NewMatrix(cfg.matrixConfig(), strip)
	case SinkTerminal:
		strip := render.NewTerminal(os.Stdout, cfg.Display.Height, cfg.Display.Width)
		return render.NewMatrix(cfg.matrixConfig(), strip)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidSink, cfg.Display.Sink)
	}
}

func (s *Service) Arbiter() *arbiter.Arbiter { return s.arb }

func (s *Service) InstanceID() string { return s.cfg.InstanceID }

// Ready is closed once every configured socket is bound.
func (s *Service) Ready() <-chan struct{} { return s.ready }

// TCPAddr returns the bound stream listener address, nil before Ready.
func (s *Service) TCPAddr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tcpAddr
}

// UDPAddr returns the bound datagram listener address, nil before Ready.
func (s *Service) UDPAddr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.udpAddr
}

// WatchConfigFile enables hot reload of path during Run.
func (s *Service) WatchConfigFile(path string, load Loader) {
	s.configPath = path
	s.loader = load
}

// Run blocks until ctx is done or SIGINT/SIGTERM arrives, then blanks the display.
func (s *Service) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer s.clearDisplay()

	tcpLn, udpConn, statusLn, err := s.bind()
	if err != nil {
		return err
	}

	s.showPattern()

	resolver := listener.NewResolver(s.cfg.Resolver)
	lcfg := listener.Config{ReadTimeout: s.cfg.ReadTimeout}
	handler := func(f frame.Frame, src listener.Source) {
		s.arb.Ingest(f, src.Identity)
	}

	g, gctx := errgroup.WithContext(ctx)
	if tcpLn != nil {
		tcp := listener.NewTCP(lcfg, resolver, handler)
		g.Go(func() error { return tcp.Serve(gctx, tcpLn) })
	}
	if udpConn != nil {
		udp := listener.NewUDP(lcfg, resolver, handler)
		g.Go(func() error { return udp.Serve(gctx, udpConn) })
	}
	g.Go(func() error { return s.arb.Run(gctx, s.cfg.ElectionInterval) })
	if statusLn != nil {
		g.Go(func() error { return s.status.Serve(gctx, statusLn) })
		s.status.SetReady(true)
	}
	if s.configPath != "" && s.loader != nil {
		g.Go(func() error { return s.WatchConfig(gctx, s.configPath, s.loader) })
	}

	s.logger.Info().
		Str("tcp", addrString(tcpLn)).
		Str("udp", packetAddrString(udpConn)).
		Dur("stream_timeout", s.cfg.StreamTimeout).
		Int("default_priority", s.cfg.DefaultPriority).
		Str("sink", s.cfg.Display.Sink).
		Msg("display server running")
	close(s.ready)

	err = g.Wait()
	if s.status != nil {
		s.status.SetReady(false)
	}
	s.logger.Info().Msg("display server shutdown")
	return err
}

func (s *Service) bind() (net.Listener, net.PacketConn, net.Listener, error) {
	var (
		tcpLn    net.Listener
		udpConn  net.PacketConn
		statusLn net.Listener
		err      error
	)
	closeAll := func() {
		for _, c := range []interface{ Close() error }{tcpLn, udpConn, statusLn} {
			if c != nil {
				_ = c.Close()
			}
		}
	}
	if s.cfg.TCPAddr != "" {
		if tcpLn, err = net.Listen("tcp", s.cfg.TCPAddr); err != nil {
			return nil, nil, nil, fmt.Errorf("listen tcp %s: %w", s.cfg.TCPAddr, err)
		}
	}
	if s.cfg.UDPAddr != "" {
		if udpConn, err = net.ListenPacket("udp", s.cfg.UDPAddr); err != nil {
			closeAll()
			return nil, nil, nil, fmt.Errorf("listen udp %s: %w", s.cfg.UDPAddr, err)
		}
	}
	if s.status != nil {
		if statusLn, err = net.Listen("tcp", s.cfg.StatusAddr); err != nil {
			closeAll()
			return nil, nil, nil, fmt.Errorf("listen status %s: %w", s.cfg.StatusAddr, err)
		}
	}

	s.mu.Lock()
	if tcpLn != nil {
		s.tcpAddr = tcpLn.Addr()
	}
	if udpConn != nil {
		s.udpAddr = udpConn.LocalAddr()
	}
	s.mu.Unlock()
	return tcpLn, udpConn, statusLn, nil
}

func (s *Service) showPattern() {
	if s.cfg.Display.Pattern == "" {
		return
	}
	pixels, err := render.LoadPattern(s.cfg.Display.Pattern, s.cfg.Display.Height, s.cfg.Display.Width)
	if err != nil {
		s.logger.Warn().Err(err).Str("pattern", s.cfg.Display.Pattern).Msg("startup pattern skipped")
		return
	}
	if err := s.sink.Display(uint16(s.cfg.Display.Height), uint16(s.cfg.Display.Width), pixels); err != nil {
		s.logger.Warn().Err(err).Msg("startup pattern display failed")
	}
}

func (s *Service) clearDisplay() {
	if s.sink == nil {
		return
	}
	if err := s.sink.Clear(); err != nil {
		s.logger.Error().Err(err).Msg("clear display on shutdown")
	}
}

// Apply updates the settings that can change without a restart.
func (s *Service) Apply(cfg ServiceConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.arb.SetTimeout(cfg.StreamTimeout)
	s.arb.SetDefaultPriority(cfg.DefaultPriority)
	if cfg.LogLevel != "" {
		logging.SetLevel(cfg.LogLevel)
	}
	s.logger.Info().
		Dur("stream_timeout", cfg.StreamTimeout).
		Int("default_priority", cfg.DefaultPriority).
		Str("log_level", cfg.LogLevel).
		Msg("config reloaded")
	return nil
}

func addrString(ln net.Listener) string {
	if ln == nil {
		return ""
	}
	return ln.Addr().String()
}

func packetAddrString(pc net.PacketConn) string {
	if pc == nil {
		return ""
	}
	return pc.LocalAddr().String()
}
