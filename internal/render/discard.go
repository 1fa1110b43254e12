package render

import "github.com/rs/zerolog/log"

// Discard accepts every call and only logs it.
type Discard struct{}

func (Discard) Clear() error {
	log.Debug().Msg("discard sink clear")
	return nil
}

func (Discard) Display(height, width uint16, pixels []byte) error {
	log.Trace().Uint16("height", height).Uint16("width", width).Int("bytes", len(pixels)).Msg("discard sink display")
	return nil
}

func (Discard) SetBrightness(level uint8) error {
	log.Debug().Uint8("level", level).Msg("discard sink brightness")
	return nil
}
