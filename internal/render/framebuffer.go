package render

import "sync"

// Framebuffer is an in-memory strip.
type Framebuffer struct {
	mu         sync.RWMutex
	pixels     []Color
	brightness uint8
	shows      int
}

func NewFramebuffer(n int) *Framebuffer {
	return &Framebuffer{pixels: make([]Color, n)}
}

func (f *Framebuffer) Len() int { return len(f.pixels) }

func (f *Framebuffer) SetPixel(i int, c Color) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i >= 0 && i < len(f.pixels) {
		f.pixels[i] = c
	}
}

func (f *Framebuffer) SetBrightness(level uint8) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.brightness = level
}

func (f *Framebuffer) Show() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shows++
	return nil
}

// Pixels returns a copy of the strip in LED order.
func (f *Framebuffer) Pixels() []Color {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]Color, len(f.pixels))
	copy(out, f.pixels)
	return out
}

func (f *Framebuffer) Brightness() uint8 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.brightness
}

func (f *Framebuffer) Shows() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.shows
}
