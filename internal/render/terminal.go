package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const cursorHome = "\x1b[H"

// Terminal is a strip that previews the panel on a terminal using half-block
// cells, two panel rows per text line.
type Terminal struct {
	*Framebuffer
	out      io.Writer
	renderer *lipgloss.Renderer
	height   int
	width    int
}

func NewTerminal(out io.Writer, height, width int) *Terminal {
	return &Terminal{
		Framebuffer: NewFramebuffer(height * width),
		out:         out,
		renderer:    lipgloss.NewRenderer(out),
		height:      height,
		width:       width,
	}
}

func (t *Terminal) Show() error {
	if err := t.Framebuffer.Show(); err != nil {
		return err
	}
	_, err := io.WriteString(t.out, cursorHome+t.Render())
	return err
}

// Render draws the current strip contents, brightness applied.
func (t *Terminal) Render() string {
	pixels := t.Pixels()
	level := t.Brightness()
	at := func(x, y int) lipgloss.Color {
		if y >= t.height {
			return lipgloss.Color("#000000")
		}
		r, g, b := pixels[StripIndex(t.height, x, y)].RGB()
		return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", scale(r, level), scale(g, level), scale(b, level)))
	}

	var sb strings.Builder
	for y := 0; y < t.height; y += 2 {
		for x := 0; x < t.width; x++ {
			cell := t.renderer.NewStyle().Foreground(at(x, y)).Background(at(x, y+1))
			sb.WriteString(cell.Render("▀"))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func scale(v, level uint8) uint8 {
	return uint8(uint16(v) * uint16(level) / 255)
}
