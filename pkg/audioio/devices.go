package audioio

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gen2brain/malgo"
)

// DeviceKind selects capture or playback devices.
type DeviceKind int

const (
	KindCapture DeviceKind = iota
	KindPlayback
)

func (k DeviceKind) String() string {
	if k == KindPlayback {
		return "playback"
	}
	return "capture"
}

func (k DeviceKind) malgoType() malgo.DeviceType {
	if k == KindPlayback {
		return malgo.Playback
	}
	return malgo.Capture
}

// DeviceInfo describes one audio device as reported by miniaudio.
type DeviceInfo struct {
	Index     int
	Name      string
	IsDefault bool

	id malgo.DeviceID
}

// ListDevices returns the devices of the given kind.
func ListDevices(kind DeviceKind) ([]DeviceInfo, error) {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: init context: %v", ErrDeviceUnavailable, err)
	}
	defer func() {
		_ = mctx.Uninit()
		mctx.Free()
	}()
	return listDevices(mctx, kind)
}

func listDevices(mctx *malgo.AllocatedContext, kind DeviceKind) ([]DeviceInfo, error) {
	infos, err := mctx.Devices(kind.malgoType())
	if err != nil {
		return nil, fmt.Errorf("failed to get %s device list: %w", kind, err)
	}

	out := make([]DeviceInfo, 0, len(infos))
	for i, info := range infos {
		out = append(out, DeviceInfo{
			Index:     i,
			Name:      info.Name(),
			IsDefault: info.IsDefault != 0,
			id:        info.ID,
		})
	}
	return out, nil
}

// selectDevice resolves a Config.Device selector against a device list.
// A nil result with no error means "use the system default".
func selectDevice(devices []DeviceInfo, selector string) (*DeviceInfo, error) {
	selector = strings.TrimSpace(selector)
	switch selector {
	case "":
		return nil, nil
	case DeviceFirst:
		if len(devices) == 0 {
			return nil, fmt.Errorf("no devices available")
		}
		return &devices[0], nil
	}

	if idx, err := strconv.Atoi(selector); err == nil {
		if idx < 0 || idx >= len(devices) {
			return nil, fmt.Errorf("device index %d out of range (have %d)", idx, len(devices))
		}
		return &devices[idx], nil
	}

	needle := strings.ToLower(selector)
	for i := range devices {
		if strings.Contains(strings.ToLower(devices[i].Name), needle) {
			return &devices[i], nil
		}
	}
	return nil, fmt.Errorf("no device matching %q", selector)
}
