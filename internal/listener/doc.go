// Package listener receives frames from the network.
//
// The stream transport (TCP) carries exactly one frame per connection: the
// listener reads until the peer closes, then decodes the buffer. The datagram
// transport (UDP) carries exactly one frame per datagram. Both resolve a
// source identity and pass decoded frames to a Handler; undecodable input is
// logged and dropped without affecting other connections.
package listener
