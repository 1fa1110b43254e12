package frame

import (
	"encoding/binary"
	"fmt"
)

// Wire tags. All multi-byte integers on the wire are little-endian.
const (
	TagCommand uint16 = 0x4321
	TagImage   uint16 = 0x1234
)

const (
	TagLen           = 2
	CommandFrameLen  = 4
	ImageHeaderLen   = 8
	BytesPerPixel    = 4
	MaxPixelBytes    = 0xFFFF
	MaxImageFrameLen = ImageHeaderLen + MaxPixelBytes
)

// Command is the one-byte command code carried by a CommandFrame.
type Command uint8

const (
	SetBrightness Command = 0
	SetPriority   Command = 1
)

func (c Command) String() string {
	switch c {
	case SetBrightness:
		return "set_brightness"
	case SetPriority:
		return "set_priority"
	default:
		return fmt.Sprintf("command(%d)", uint8(c))
	}
}

func (c Command) valid() bool {
	return c == SetBrightness || c == SetPriority
}

// Frame is one decoded protocol message. The set of implementations is closed:
// CommandFrame and ImageFrame.
type Frame interface {
	Tag() uint16
	Kind() string
	isFrame()
}

// CommandFrame adjusts global brightness or the sender's stream priority.
type CommandFrame struct {
	Command Command
	Value   uint8
}

func (CommandFrame) Tag() uint16  { return TagCommand }
func (CommandFrame) Kind() string { return "command" }
func (CommandFrame) isFrame()     {}

// ImageFrame carries height*width pixels of 4 bytes each (R, G, B, ignored).
type ImageFrame struct {
	Height uint16
	Width  uint16
	Pixels []byte
}

func (ImageFrame) Tag() uint16  { return TagImage }
func (ImageFrame) Kind() string { return "image" }
func (ImageFrame) isFrame()     {}

// ExpectedPixelLen is height*width*4.
func (f ImageFrame) ExpectedPixelLen() int {
	return int(f.Height) * int(f.Width) * BytesPerPixel
}

type decodeFunc func(b []byte) (Frame, error)

var decoders = map[uint16]decodeFunc{
	TagCommand: decodeCommand,
	TagImage:   decodeImage,
}

// PeekTag returns the wire tag of b without validating the rest of the frame.
func PeekTag(b []byte) (uint16, error) {
	if len(b) < TagLen {
		return 0, fmt.Errorf("%w: %d bytes, need at least %d", ErrMalformedFrame, len(b), TagLen)
	}
	return binary.LittleEndian.Uint16(b[0:TagLen]), nil
}

// Decode parses exactly one frame from b.
func Decode(b []byte) (Frame, error) {
	tag, err := PeekTag(b)
	if err != nil {
		return nil, err
	}
	decode, ok := decoders[tag]
	if !ok {
		return nil, fmt.Errorf("%w: 0x%04x", ErrUnknownFrameType, tag)
	}
	return decode(b)
}

// Encode serializes f into its wire form.
func Encode(f Frame) ([]byte, error) {
	switch v := f.(type) {
	case CommandFrame:
		return encodeCommand(v)
	case *CommandFrame:
		return encodeCommand(*v)
	case ImageFrame:
		return encodeImage(v)
	case *ImageFrame:
		return encodeImage(*v)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownFrameType, f)
	}
}

func decodeCommand(b []byte) (Frame, error) {
	if len(b) != CommandFrameLen {
		return nil, fmt.Errorf("%w: command frame is %d bytes, want %d", ErrMalformedFrame, len(b), CommandFrameLen)
	}
	cmd := Command(b[2])
	if !cmd.valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCommand, b[2])
	}
	return CommandFrame{Command: cmd, Value: b[3]}, nil
}

func encodeCommand(f CommandFrame) ([]byte, error) {
	if !f.Command.valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCommand, uint8(f.Command))
	}
	buf := make([]byte, CommandFrameLen)
	binary.LittleEndian.PutUint16(buf[0:2], TagCommand)
	buf[2] = byte(f.Command)
	buf[3] = f.Value
	return buf, nil
}

func decodeImage(b []byte) (Frame, error) {
	if len(b) < ImageHeaderLen {
		return nil, fmt.Errorf("%w: image header is %d bytes, want %d", ErrMalformedFrame, len(b), ImageHeaderLen)
	}
	height := binary.LittleEndian.Uint16(b[2:4])
	width := binary.LittleEndian.Uint16(b[4:6])
	declared := int(binary.LittleEndian.Uint16(b[6:8]))
	pixels := b[ImageHeaderLen:]

	if declared != len(pixels) {
		return nil, fmt.Errorf("%w: declared %d pixel bytes, got %d", ErrLengthMismatch, declared, len(pixels))
	}
	f := ImageFrame{Height: height, Width: width}
	if want := f.ExpectedPixelLen(); declared != want {
		return nil, fmt.Errorf("%w: %dx%d needs %d pixel bytes, declared %d", ErrLengthMismatch, height, width, want, declared)
	}
	f.Pixels = make([]byte, len(pixels))
	copy(f.Pixels, pixels)
	return f, nil
}

func encodeImage(f ImageFrame) ([]byte, error) {
	if want := f.ExpectedPixelLen(); len(f.Pixels) != want {
		return nil, fmt.Errorf("%w: %dx%d needs %d pixel bytes, have %d", ErrLengthMismatch, f.Height, f.Width, want, len(f.Pixels))
	}
	if len(f.Pixels) > MaxPixelBytes {
		return nil, fmt.Errorf("%w: %d pixel bytes exceeds %d", ErrLengthMismatch, len(f.Pixels), MaxPixelBytes)
	}
	buf := make([]byte, ImageHeaderLen+len(f.Pixels))
	binary.LittleEndian.PutUint16(buf[0:2], TagImage)
	binary.LittleEndian.PutUint16(buf[2:4], f.Height)
	binary.LittleEndian.PutUint16(buf[4:6], f.Width)
	binary.LittleEndian.PutUint16(buf[6:8], uint16(len(f.Pixels)))
	copy(buf[ImageHeaderLen:], f.Pixels)
	return buf, nil
}
