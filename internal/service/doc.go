// Package service assembles a display server process.
//
// A Service binds the stream and datagram listeners, feeds every decoded
// frame into one arbiter, runs the election loop on a fixed interval, and
// optionally serves the status endpoints. On shutdown it blanks the display.
package service
