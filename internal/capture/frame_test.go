package capture

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
)

func bytesReader(b []byte) io.Reader { return bytes.NewReader(b) }

func TestRawFrame_Validate(t *testing.T) {
	tests := []struct {
		name    string
		frame   RawFrame
		wantErr bool
	}{
		{"packed rgba", RawFrame{Width: 2, Height: 2, BitsPerPixel: 32, Data: make([]byte, 16)}, false},
		{"rgb565", RawFrame{Width: 3, Height: 1, BitsPerPixel: 16, Data: make([]byte, 6)}, false},
		{"padded stride, short last row ok", RawFrame{Width: 2, Height: 2, BitsPerPixel: 32, Stride: 12, Data: make([]byte, 20)}, false},
		{"too short", RawFrame{Width: 2, Height: 2, BitsPerPixel: 32, Data: make([]byte, 15)}, true},
		{"zero width", RawFrame{Width: 0, Height: 2, BitsPerPixel: 32}, true},
		{"bad bpp", RawFrame{Width: 1, Height: 1, BitsPerPixel: 12, Data: make([]byte, 4)}, true},
		{"stride under row", RawFrame{Width: 2, Height: 1, BitsPerPixel: 32, Stride: 4, Data: make([]byte, 8)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.frame.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedFrame) {
					t.Errorf("expected ErrMalformedFrame, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestPatternSource(t *testing.T) {
	src := NewPatternSource(32, 16)
	raw, err := src.Fetch(context.Background(), nil)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if err := raw.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if src.Frames() != 1 {
		t.Errorf("Frames() = %d", src.Frames())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.Fetch(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestDeviceString(t *testing.T) {
	var nilDev *Device
	if nilDev.String() != "<none>" {
		t.Errorf("nil device = %q", nilDev.String())
	}
	if NewDevice("").String() != "<default>" || NewDevice("abc").String() != "abc" {
		t.Error("unexpected device names")
	}
}
