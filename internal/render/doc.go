// Package render turns RGBX image buffers into LED strip colors.
//
// A Matrix maps row-major pixels onto a column-serpentine strip, applies a
// gamma table, and pushes the result with Show. Strips are pluggable: an
// in-memory Framebuffer, or a Terminal that previews the panel with
// half-block characters.
package render
