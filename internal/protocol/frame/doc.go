// Package frame owns the binary wire contract for display frames.
//
// Two frame kinds exist, discriminated by a 2-byte tag:
//   - command (0x4321): tag, command code (u8), value (u8); exactly 4 bytes
//   - image (0x1234): tag, height, width, pixel length (u16 each), then pixel bytes
//
// All multi-byte integers are little-endian. Pixel data is 4 bytes per pixel
// (R, G, B, ignored) in row-major order.
package frame
