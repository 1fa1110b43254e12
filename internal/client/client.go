package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/danmuck/ledctl/internal/protocol/frame"
)

var ErrUnknownTransport = errors.New("client: unknown transport")

type Config struct {
	Addr         string
	Transport    string
	DialTimeout  time.Duration
	WriteTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Addr:         "127.0.0.1:20304",
		Transport:    "tcp",
		DialTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Sender delivers frames to a display server, one frame per stream
// connection or per datagram.
type Sender struct {
	cfg    Config
	dialer net.Dialer
}

func New(cfg Config) (*Sender, error) {
	d := DefaultConfig()
	if cfg.Addr == "" {
		cfg.Addr = d.Addr
	}
	if cfg.Transport == "" {
		cfg.Transport = d.Transport
	}
	if cfg.Transport != "tcp" && cfg.Transport != "udp" {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransport, cfg.Transport)
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = d.DialTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = d.WriteTimeout
	}
	return &Sender{cfg: cfg, dialer: net.Dialer{Timeout: cfg.DialTimeout}}, nil
}

// Send encodes f and writes it as one message.
func (s *Sender) Send(ctx context.Context, f frame.Frame) error {
	payload, err := frame.Encode(f)
	if err != nil {
		return err
	}
	conn, err := s.dialer.DialContext(ctx, s.cfg.Transport, s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("dial %s %s: %w", s.cfg.Transport, s.cfg.Addr, err)
	}
	defer conn.Close()

	_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	if _, err := conn.Write(payload); err != nil {
		return fmt.Errorf("write %s frame: %w", f.Kind(), err)
	}
	// The server reads to EOF; half-close so it can decode before we tear down.
	if tc, ok := conn.(*net.TCPConn); ok {
		if err := tc.CloseWrite(); err != nil {
			return fmt.Errorf("close write: %w", err)
		}
	}
	return nil
}

func (s *Sender) SetBrightness(ctx context.Context, level uint8) error {
	return s.Send(ctx, frame.CommandFrame{Command: frame.SetBrightness, Value: level})
}

func (s *Sender) SetPriority(ctx context.Context, priority uint8) error {
	return s.Send(ctx, frame.CommandFrame{Command: frame.SetPriority, Value: priority})
}

func (s *Sender) Image(ctx context.Context, height, width uint16, pixels []byte) error {
	return s.Send(ctx, frame.ImageFrame{Height: height, Width: width, Pixels: pixels})
}

// Fill builds a solid-color RGBX pixel buffer.
func Fill(height, width int, r, g, b uint8) []byte {
	out := make([]byte, 0, height*width*4)
	for i := 0; i < height*width; i++ {
		out = append(out, r, g, b, 0)
	}
	return out
}
