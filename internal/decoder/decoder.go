// Package decoder turns compressed frames received from a host back into RGBA images.
package decoder

import "image"

// Decoder decodes bytes into an image. dst may be reused when its bounds match.
type Decoder interface {
	DecodeInto(data []byte, dst *image.RGBA) (*image.RGBA, error)
}
