// Package status serves health, readiness, metrics, and the live stream table
// over HTTP.
package status
