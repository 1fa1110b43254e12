// Package client sends frames to a display server.
package client
