//go:build darwin

package capture

/*
#cgo LDFLAGS: -framework CoreGraphics -framework CoreFoundation
#include <CoreGraphics/CoreGraphics.h>
#include <dlfcn.h>
#include <stdlib.h>

typedef struct {
    void*  data;
    size_t size;
    int    width;
    int    height;
    size_t bytesPerRow;
} FrameData;

// CGWindowListCreateImage is unavailable in the macOS 15 SDK headers but still
// present in the CoreGraphics dylib. Load it dynamically.
typedef CGImageRef (*CGWindowListCreateImageFunc)(
    CGRect screenBounds,
    uint32_t listOption,
    uint32_t windowID,
    uint32_t imageOption
);

static CGWindowListCreateImageFunc getCGWindowListCreateImage(void) {
    static CGWindowListCreateImageFunc fn = NULL;
    if (!fn) {
        fn = (CGWindowListCreateImageFunc)dlsym(RTLD_DEFAULT, "CGWindowListCreateImage");
    }
    return fn;
}

FrameData captureDisplay(CGDirectDisplayID displayID) {
    FrameData result = {0};

    CGWindowListCreateImageFunc fn = getCGWindowListCreateImage();
    if (!fn) {
        return result;
    }

    CGRect bounds = CGDisplayBounds(displayID);
    // kCGWindowListOptionOnScreenOnly = 1, kCGNullWindowID = 0, kCGWindowImageDefault = 0
    CGImageRef image = fn(bounds, 1, 0, 0);
    if (!image) {
        return result;
    }

    result.width  = (int)CGImageGetWidth(image);
    result.height = (int)CGImageGetHeight(image);

    result.bytesPerRow = result.width * 4;
    result.size        = result.bytesPerRow * result.height;
    result.data        = malloc(result.size);
    if (!result.data) {
        CGImageRelease(image);
        result.size = 0;
        return result;
    }

    CGColorSpaceRef cs = CGColorSpaceCreateDeviceRGB();
    CGContextRef ctx = CGBitmapContextCreate(
        result.data,
        result.width,
        result.height,
        8,
        result.bytesPerRow,
        cs,
        kCGImageAlphaPremultipliedLast
    );
    CGContextDrawImage(ctx, CGRectMake(0, 0, result.width, result.height), image);
    CGContextRelease(ctx);
    CGColorSpaceRelease(cs);
    CGImageRelease(image);

    return result;
}

void freeFrameData(void* data) {
    free(data);
}
*/
import "C"

import (
	"context"
	"fmt"
	"unsafe"

	"github.com/junsooki/screencast/internal/permissions"
)

// DisplaySource snapshots a local macOS display through CoreGraphics.
type DisplaySource struct {
	displayID C.CGDirectDisplayID
}

// NewDisplaySource resolves a display index (0 = main display).
func NewDisplaySource(displayIndex int) (*DisplaySource, error) {
	if !permissions.HasScreenRecording() {
		permissions.RequestScreenRecording()
		return nil, fmt.Errorf("screen recording permission not granted; grant it in System Settings and restart")
	}

	var displayID C.CGDirectDisplayID
	if displayIndex == 0 {
		displayID = C.CGMainDisplayID()
	} else {
		var displays [16]C.CGDirectDisplayID
		var count C.uint32_t
		C.CGGetActiveDisplayList(16, &displays[0], &count)
		if displayIndex >= int(count) {
			return nil, fmt.Errorf("display index %d out of range (have %d displays)", displayIndex, count)
		}
		displayID = displays[displayIndex]
	}
	return &DisplaySource{displayID: displayID}, nil
}

// Fetch implements ScreenshotSource. The device handle is ignored.
func (s *DisplaySource) Fetch(ctx context.Context, _ *Device) (*RawFrame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fd := C.captureDisplay(s.displayID)
	if fd.data == nil {
		return nil, fmt.Errorf("%w: display %d returned no image", ErrTransportRejected, uint32(s.displayID))
	}
	defer C.freeFrameData(fd.data)

	n := int(fd.size)
	pix := make([]byte, n)
	copy(pix, unsafe.Slice((*byte)(fd.data), n))

	return &RawFrame{
		Width:        int(fd.width),
		Height:       int(fd.height),
		BitsPerPixel: 32,
		Stride:       int(fd.bytesPerRow),
		Format:       FormatRGBA8888,
		Data:         pix,
	}, nil
}
