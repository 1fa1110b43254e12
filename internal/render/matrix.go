package render

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/rs/zerolog/log"
)

var (
	ErrDimensionMismatch = errors.New("render: frame dimensions do not match matrix")
	ErrStripSize         = errors.New("render: strip length does not match matrix")
	ErrShortPixels       = errors.New("render: pixel buffer too short")
)

// Color is a packed 0x00RRGGBB value, the layout WS281x drivers take.
type Color uint32

func RGB(r, g, b uint8) Color {
	return Color(uint32(r)<<16 | uint32(g)<<8 | uint32(b))
}

func (c Color) RGB() (r, g, b uint8) {
	return uint8(c >> 16), uint8(c >> 8), uint8(c)
}

// Strip is an addressable LED chain.
type Strip interface {
	Len() int
	SetPixel(i int, c Color)
	SetBrightness(level uint8)
	Show() error
}

type MatrixConfig struct {
	Height     int
	Width      int
	Brightness uint8
	Gamma      float64
}

func DefaultMatrixConfig() MatrixConfig {
	return MatrixConfig{
		Height:     16,
		Width:      32,
		Brightness: 30,
		Gamma:      1.5,
	}
}

// Matrix maps row-major frames onto a column-serpentine strip with a gamma
// curve. It implements the arbiter's render sink.
type Matrix struct {
	mu    sync.Mutex
	cfg   MatrixConfig
	strip Strip
	gamma [256]uint8
}

func NewMatrix(cfg MatrixConfig, strip Strip) (*Matrix, error) {
	if cfg.Height <= 0 || cfg.Width <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrDimensionMismatch, cfg.Height, cfg.Width)
	}
	if cfg.Gamma <= 0 {
		cfg.Gamma = 1
	}
	if strip.Len() != cfg.Height*cfg.Width {
		return nil, fmt.Errorf("%w: strip has %d leds, matrix needs %d", ErrStripSize, strip.Len(), cfg.Height*cfg.Width)
	}
	m := &Matrix{cfg: cfg, strip: strip, gamma: GammaTable(cfg.Gamma)}
	strip.SetBrightness(cfg.Brightness)
	return m, nil
}

// GammaTable returns round((i/255)^gamma * 255) for every 8-bit input.
func GammaTable(gamma float64) [256]uint8 {
	var t [256]uint8
	for i := range t {
		t[i] = uint8(math.Pow(float64(i)/255, gamma)*255 + 0.5)
	}
	return t
}

// StripIndex is the LED index of (x, y) on a panel wired in columns that
// alternate direction, even columns running bottom to top.
func StripIndex(height, x, y int) int {
	if x%2 == 0 {
		y = height - y - 1
	}
	return y + x*height
}

func (m *Matrix) Dimensions() (height, width int) {
	return m.cfg.Height, m.cfg.Width
}

func (m *Matrix) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < m.strip.Len(); i++ {
		m.strip.SetPixel(i, 0)
	}
	return m.strip.Show()
}

// Display renders RGBX pixels in row-major order.
func (m *Matrix) Display(height, width uint16, pixels []byte) error {
	h, w := int(height), int(width)
	if h != m.cfg.Height || w != m.cfg.Width {
		return fmt.Errorf("%w: frame is for %d x %d matrix but we have %d x %d",
			ErrDimensionMismatch, w, h, m.cfg.Width, m.cfg.Height)
	}
	if len(pixels) < h*w*4 {
		return fmt.Errorf("%w: %d bytes for %dx%d", ErrShortPixels, len(pixels), w, h)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := pixels[(y*w+x)*4:]
			c := RGB(m.gamma[p[0]], m.gamma[p[1]], m.gamma[p[2]])
			m.strip.SetPixel(StripIndex(h, x, y), c)
		}
	}
	return m.strip.Show()
}

func (m *Matrix) SetBrightness(level uint8) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg.Brightness = level
	m.strip.SetBrightness(level)
	log.Debug().Uint8("level", level).Msg("matrix brightness set")
	return m.strip.Show()
}
