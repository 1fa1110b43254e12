package render

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/ledctl/internal/testutil/testlog"
)

func newTestMatrix(t *testing.T, h, w int) (*Matrix, *Framebuffer) {
	t.Helper()
	testlog.Start(t)
	fb := NewFramebuffer(h * w)
	cfg := DefaultMatrixConfig()
	cfg.Height, cfg.Width, cfg.Gamma = h, w, 1
	m, err := NewMatrix(cfg, fb)
	if err != nil {
		t.Fatalf("new matrix: %v", err)
	}
	return m, fb
}

func TestGammaTableEndpoints(t *testing.T) {
	testlog.Start(t)
	table := GammaTable(1.5)
	if table[0] != 0 || table[255] != 255 {
		t.Fatalf("gamma endpoints wrong: %d %d", table[0], table[255])
	}
	// (128/255)^1.5*255 = 90.7
	if table[128] != 91 {
		t.Fatalf("unexpected gamma midpoint %d", table[128])
	}
	linear := GammaTable(1)
	for i, v := range linear {
		if int(v) != i {
			t.Fatalf("gamma 1 must be identity, table[%d]=%d", i, v)
		}
	}
}

func TestStripIndexSerpentine(t *testing.T) {
	testlog.Start(t)
	const h = 16
	cases := []struct{ x, y, want int }{
		{0, 0, 15},
		{0, 15, 0},
		{1, 0, 16},
		{1, 15, 31},
		{2, 0, 47},
	}
	for _, c := range cases {
		if got := StripIndex(h, c.x, c.y); got != c.want {
			t.Fatalf("StripIndex(%d,%d)=%d want %d", c.x, c.y, got, c.want)
		}
	}
}

func TestMatrixDisplayMapsPixels(t *testing.T) {
	m, fb := newTestMatrix(t, 2, 2)
	pixels := []byte{
		10, 0, 0, 0, 20, 0, 0, 0, // row 0
		30, 0, 0, 0, 40, 0, 0, 0, // row 1
	}
	if err := m.Display(2, 2, pixels); err != nil {
		t.Fatalf("display: %v", err)
	}
	got := fb.Pixels()
	want := []Color{RGB(30, 0, 0), RGB(10, 0, 0), RGB(20, 0, 0), RGB(40, 0, 0)}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("led %d: got %06x want %06x", i, got[i], want[i])
		}
	}
	if fb.Shows() != 1 {
		t.Fatalf("expected one show, got %d", fb.Shows())
	}
}

func TestMatrixRejectsWrongDimensions(t *testing.T) {
	m, fb := newTestMatrix(t, 16, 32)
	err := m.Display(8, 8, make([]byte, 8*8*4))
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
	if err := m.Display(16, 32, make([]byte, 10)); !errors.Is(err, ErrShortPixels) {
		t.Fatalf("expected ErrShortPixels, got %v", err)
	}
	if fb.Shows() != 0 {
		t.Fatalf("rejected frames must not be shown")
	}
}

func TestMatrixClearAndBrightness(t *testing.T) {
	m, fb := newTestMatrix(t, 2, 2)
	if fb.Brightness() != 30 {
		t.Fatalf("expected default brightness 30, got %d", fb.Brightness())
	}
	if err := m.Display(2, 2, bytes.Repeat([]byte{255, 255, 255, 0}, 4)); err != nil {
		t.Fatalf("display: %v", err)
	}
	if err := m.SetBrightness(200); err != nil {
		t.Fatalf("brightness: %v", err)
	}
	if fb.Brightness() != 200 {
		t.Fatalf("expected brightness 200, got %d", fb.Brightness())
	}
	if err := m.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	for i, c := range fb.Pixels() {
		if c != 0 {
			t.Fatalf("led %d not cleared: %06x", i, c)
		}
	}
}

func TestNewMatrixValidatesStrip(t *testing.T) {
	testlog.Start(t)
	if _, err := NewMatrix(DefaultMatrixConfig(), NewFramebuffer(10)); !errors.Is(err, ErrStripSize) {
		t.Fatalf("expected ErrStripSize, got %v", err)
	}
}

func TestTerminalRendersHalfBlocks(t *testing.T) {
	testlog.Start(t)
	var buf bytes.Buffer
	term := NewTerminal(&buf, 4, 3)
	cfg := MatrixConfig{Height: 4, Width: 3, Brightness: 255, Gamma: 1}
	m, err := NewMatrix(cfg, term)
	if err != nil {
		t.Fatalf("new matrix: %v", err)
	}
	if err := m.Display(4, 3, bytes.Repeat([]byte{255, 0, 0, 0}, 12)); err != nil {
		t.Fatalf("display: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, cursorHome) {
		t.Fatalf("expected cursor home prefix")
	}
	if lines := strings.Count(out, "\n"); lines != 2 {
		t.Fatalf("expected 2 text lines for 4 rows, got %d", lines)
	}
	if cells := strings.Count(out, "▀"); cells != 6 {
		t.Fatalf("expected 6 cells, got %d", cells)
	}
}

func TestScaleBrightness(t *testing.T) {
	testlog.Start(t)
	if scale(255, 255) != 255 || scale(255, 0) != 0 || scale(200, 128) != 100 {
		t.Fatalf("unexpected scale results")
	}
}

func TestLoadPattern(t *testing.T) {
	testlog.Start(t)
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	img.Set(1, 0, color.RGBA{B: 255, A: 255})

	path := filepath.Join(t.TempDir(), "pattern.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	_ = f.Close()

	pixels, err := LoadPattern(path, 1, 2)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := []byte{255, 0, 0, 0, 0, 0, 255, 0}
	if !bytes.Equal(pixels, want) {
		t.Fatalf("unexpected pixels %v", pixels)
	}
	if _, err := LoadPattern(path, 16, 32); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
	if _, err := LoadPattern(filepath.Join(t.TempDir(), "missing.png"), 1, 2); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestDiscardAcceptsEverything(t *testing.T) {
	testlog.Start(t)
	var d Discard
	if d.Clear() != nil || d.Display(1, 1, []byte{0, 0, 0, 0}) != nil || d.SetBrightness(3) != nil {
		t.Fatalf("discard sink returned an error")
	}
}
