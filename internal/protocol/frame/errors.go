package frame

import "errors"

var (
	ErrUnknownFrameType = errors.New("frame: unknown frame type")
	ErrUnknownCommand   = errors.New("frame: unknown command")
	ErrMalformedFrame   = errors.New("frame: malformed frame")
	ErrLengthMismatch   = errors.New("frame: pixel length mismatch")
)

// Reason maps a decode error to a short label for logs and metrics.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnknownFrameType):
		return "unknown_frame_type"
	case errors.Is(err, ErrUnknownCommand):
		return "unknown_command"
	case errors.Is(err, ErrLengthMismatch):
		return "length_mismatch"
	case errors.Is(err, ErrMalformedFrame):
		return "malformed_frame"
	default:
		return "other"
	}
}
