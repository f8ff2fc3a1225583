package capture

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"
)

// DefaultADBAddr is where the adb server listens by default.
const DefaultADBAddr = "127.0.0.1:5037"

const maxFramebufferBytes = 256 << 20

// ADBSource pulls framebuffers through a local adb server using the
// "framebuffer:" service.
type ADBSource struct {
	addr    string
	timeout time.Duration
	dialer  net.Dialer
}

// NewADBSource returns a source talking to the adb server at addr. timeout
// bounds a whole fetch; zero means 5s.
func NewADBSource(addr string, timeout time.Duration) *ADBSource {
	if addr == "" {
		addr = DefaultADBAddr
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ADBSource{addr: addr, timeout: timeout}
}

// DeviceInfo is one line of "adb devices".
type DeviceInfo struct {
	Serial string
	State  string
}

// Devices lists the devices known to the adb server.
func (s *ADBSource) Devices(ctx context.Context) ([]DeviceInfo, error) {
	conn, err := s.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.SetDeadline(time.Unix(1, 0)) })
	defer stop()

	if err := request(conn, "host:devices"); err != nil {
		return nil, s.mapErr(ctx, err)
	}
	body, err := readHexPrefixed(conn)
	if err != nil {
		return nil, s.mapErr(ctx, err)
	}
	return parseDevices(body), nil
}

// Fetch implements ScreenshotSource.
func (s *ADBSource) Fetch(ctx context.Context, dev *Device) (*RawFrame, error) {
	conn, err := s.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.SetDeadline(time.Unix(1, 0)) })
	defer stop()

	transport := "host:transport-any"
	if dev != nil && dev.Serial != "" {
		transport = "host:transport:" + dev.Serial
	}
	if err := request(conn, transport); err != nil {
		return nil, s.mapErr(ctx, err)
	}
	if err := request(conn, "framebuffer:"); err != nil {
		return nil, s.mapErr(ctx, err)
	}

	r := bufio.NewReaderSize(conn, 64*1024)
	raw, size, err := readFramebufferHeader(r)
	if err != nil {
		return nil, s.mapErr(ctx, err)
	}
	if size > maxFramebufferBytes {
		return nil, fmt.Errorf("%w: framebuffer of %d bytes exceeds limit", ErrTransportRejected, size)
	}
	// The service waits for one byte before streaming pixels.
	if _, err := conn.Write([]byte{0}); err != nil {
		return nil, s.mapErr(ctx, err)
	}
	raw.Data = make([]byte, size)
	if _, err := io.ReadFull(r, raw.Data); err != nil {
		return nil, s.mapErr(ctx, fmt.Errorf("read framebuffer data: %w", err))
	}
	return raw, nil
}

func (s *ADBSource) dial(ctx context.Context) (net.Conn, error) {
	conn, err := s.dialer.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, s.mapErr(ctx, fmt.Errorf("dial adb server %s: %w", s.addr, err))
	}
	conn.SetDeadline(time.Now().Add(s.timeout))
	return conn, nil
}

// mapErr folds transport failures into the capture error taxonomy.
// Cancellation wins over everything so callers can tell shutdown apart.
func (s *ADBSource) mapErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, ErrTransportRejected) || errors.Is(err, ErrTransportTimeout) {
		return err
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %v", ErrTransportTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrTransportRejected, err)
}

// request sends one length-prefixed adb request and consumes the status.
func request(conn net.Conn, payload string) error {
	msg := fmt.Sprintf("%04x%s", len(payload), payload)
	if _, err := io.WriteString(conn, msg); err != nil {
		return fmt.Errorf("send %q: %w", payload, err)
	}
	var status [4]byte
	if _, err := io.ReadFull(conn, status[:]); err != nil {
		return fmt.Errorf("read status for %q: %w", payload, err)
	}
	switch string(status[:]) {
	case "OKAY":
		return nil
	case "FAIL":
		reason, err := readHexPrefixed(conn)
		if err != nil {
			reason = "unknown"
		}
		return fmt.Errorf("%w: %s: %s", ErrTransportRejected, payload, reason)
	default:
		return fmt.Errorf("%w: unexpected status %q for %s", ErrTransportRejected, status[:], payload)
	}
}

func readHexPrefixed(r io.Reader) (string, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return "", err
	}
	n, err := strconv.ParseUint(string(lenBuf[:]), 16, 32)
	if err != nil {
		return "", fmt.Errorf("bad length prefix %q: %w", lenBuf[:], err)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return "", err
	}
	return string(body), nil
}

func parseDevices(body string) []DeviceInfo {
	var out []DeviceInfo
	for _, line := range strings.Split(body, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		out = append(out, DeviceInfo{Serial: fields[0], State: fields[1]})
	}
	return out
}

// readFramebufferHeader parses the header sent by the framebuffer service
// and returns the frame skeleton plus the pixel data size.
//
// Version 1 carries bpp, size, width, height and four offset/length pairs
// (red, blue, green, alpha). Version 2 adds a color space after bpp. The
// legacy version 16 header carries size, width, height of an RGB565 image.
func readFramebufferHeader(r io.Reader) (*RawFrame, int, error) {
	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, 0, fmt.Errorf("read framebuffer version: %w", err)
	}

	var n int
	switch version {
	case 16:
		n = 3
	case 1:
		n = 12
	case 2:
		n = 13
	default:
		return nil, 0, fmt.Errorf("%w: unsupported framebuffer version %d", ErrTransportRejected, version)
	}
	fields := make([]uint32, n)
	if err := binary.Read(r, binary.LittleEndian, fields); err != nil {
		return nil, 0, fmt.Errorf("read framebuffer header: %w", err)
	}

	if version == 16 {
		f := &RawFrame{
			BitsPerPixel: 16,
			Width:        int(fields[1]),
			Height:       int(fields[2]),
			Format:       FormatRGB565,
		}
		return f, int(fields[0]), nil
	}

	if version == 2 {
		// Drop the color space; pixels are decoded as-is.
		fields = append(fields[:1], fields[2:]...)
	}
	ch := func(off, length uint32) Channel { return Channel{Offset: uint8(off), Length: uint8(length)} }
	f := &RawFrame{
		BitsPerPixel: int(fields[0]),
		Width:        int(fields[2]),
		Height:       int(fields[3]),
		Format: PixelFormat{
			Red:   ch(fields[4], fields[5]),
			Blue:  ch(fields[6], fields[7]),
			Green: ch(fields[8], fields[9]),
			Alpha: ch(fields[10], fields[11]),
		},
	}
	return f, int(fields[1]), nil
}
