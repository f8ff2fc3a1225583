package capture

import (
	"context"
	"log/slog"
	"time"
)

// DeviceLister lists the devices currently attached.
type DeviceLister interface {
	Devices(ctx context.Context) ([]DeviceInfo, error)
}

// WatchDevices polls lister every interval and reports the device matching
// serial (any ready device when serial is empty) through set. set receives
// a new handle when the device appears and nil when it goes away. It returns
// when ctx is done.
func WatchDevices(ctx context.Context, lister DeviceLister, serial string, interval time.Duration, set func(*Device), log *slog.Logger) {
	var current *Device
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		infos, err := lister.Devices(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Debug("list devices failed", "error", err)
		} else {
			found, ok := pickDevice(infos, serial)
			switch {
			case ok && current == nil:
				current = NewDevice(found)
				log.Info("device attached", "serial", found)
				set(current)
			case !ok && current != nil:
				log.Info("device detached", "serial", current.Serial)
				current = nil
				set(nil)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// pickDevice returns the serial to capture from. With an empty serial it
// picks the first ready device.
func pickDevice(infos []DeviceInfo, serial string) (string, bool) {
	for _, d := range infos {
		if d.State != "device" {
			continue
		}
		if serial == "" || d.Serial == serial {
			return d.Serial, true
		}
	}
	return "", false
}
