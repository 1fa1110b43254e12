package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danmuck/ledctl/internal/arbiter"
	"github.com/danmuck/ledctl/internal/listener"
	"github.com/danmuck/ledctl/internal/logging"
	"github.com/danmuck/ledctl/internal/render"
)

const (
	SinkTerminal = "terminal"
	SinkMatrix   = "matrix"
	SinkNone     = "none"
)

var (
	ErrInvalidSink     = errors.New("service: invalid sink")
	ErrInvalidDisplay  = errors.New("service: invalid display geometry")
	ErrInvalidPriority = errors.New("service: default priority out of range")
	ErrInvalidTimeout  = errors.New("service: stream timeout must be positive")
	ErrInvalidInterval = errors.New("service: election interval must be positive")
	ErrNoListener      = errors.New("service: no listener address configured")
)

type DisplayConfig struct {
	Sink       string
	Height     int
	Width      int
	Brightness uint8
	Gamma      float64
	// Pattern is an optional image shown once at startup.
	Pattern string
}

// ServiceConfig configures a display server process.
type ServiceConfig struct {
	InstanceID       string
	TCPAddr          string
	UDPAddr          string
	ReadTimeout      time.Duration
	StreamTimeout    time.Duration
	ElectionInterval time.Duration
	DefaultPriority  int
	StatusAddr       string
	CORSOrigins      []string
	LogLevel         string
	LogFile          logging.FileConfig
	Resolver         listener.ResolverConfig
	Display          DisplayConfig
}

func DefaultServiceConfig() ServiceConfig {
	m := render.DefaultMatrixConfig()
	return ServiceConfig{
		TCPAddr:          ":20304",
		UDPAddr:          ":20304",
		StreamTimeout:    arbiter.DefaultTimeout,
		ElectionInterval: time.Second,
		DefaultPriority:  arbiter.DefaultPriority,
		StatusAddr:       "127.0.0.1:9304",
		LogLevel:         "info",
		Resolver:         listener.DefaultResolverConfig(),
		Display: DisplayConfig{
			Sink:       SinkTerminal,
			Height:     m.Height,
			Width:      m.Width,
			Brightness: m.Brightness,
			Gamma:      m.Gamma,
		},
	}
}

// Validate reports the first setting that would prevent the service from running.
func (c ServiceConfig) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Display.Sink)) {
	case SinkTerminal, SinkMatrix, SinkNone:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidSink, c.Display.Sink)
	}
	if c.Display.Height <= 0 || c.Display.Width <= 0 || c.Display.Height*c.Display.Width*4 > 0xFFFF {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDisplay, c.Display.Height, c.Display.Width)
	}
	if c.Display.Gamma <= 0 {
		return fmt.Errorf("%w: gamma %v", ErrInvalidDisplay, c.Display.Gamma)
	}
	if c.DefaultPriority < 0 || c.DefaultPriority > 255 {
		return fmt.Errorf("%w: %d", ErrInvalidPriority, c.DefaultPriority)
	}
	if c.StreamTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.ElectionInterval <= 0 {
		return ErrInvalidInterval
	}
	if strings.TrimSpace(c.TCPAddr) == "" && strings.TrimSpace(c.UDPAddr) == "" {
		return ErrNoListener
	}
	if c.LogLevel != "" {
		if _, ok := logging.ParseLevel(c.LogLevel); !ok {
			return fmt.Errorf("service: invalid log level %q", c.LogLevel)
		}
	}
	return nil
}

func (c ServiceConfig) matrixConfig() render.MatrixConfig {
	return render.MatrixConfig{
		Height:     c.Display.Height,
		Width:      c.Display.Width,
		Brightness: c.Display.Brightness,
		Gamma:      c.Display.Gamma,
	}
}

func (c ServiceConfig) arbiterConfig() arbiter.Config {
	cfg := arbiter.DefaultConfig()
	cfg.Timeout = c.StreamTimeout
	cfg.DefaultPriority = c.DefaultPriority
	return cfg
}
