package camera

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// GoCVDevice opens cameras through OpenCV.
type GoCVDevice struct {
	cfg Config
}

// NewGoCVDevice creates a device that applies cfg to every handle it opens.
func NewGoCVDevice(cfg Config) *GoCVDevice {
	return &GoCVDevice{cfg: cfg}
}

// Open opens the camera at index.
func (d *GoCVDevice) Open(index int) (Handle, error) {
	vc, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return nil, err
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("camera %d did not open", index)
	}

	if d.cfg.Width > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(d.cfg.Width))
	}
	if d.cfg.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameHeight, float64(d.cfg.Height))
	}

	return &gocvHandle{
		vc:      vc,
		index:   index,
		mirror:  d.cfg.Mirror,
		quality: d.cfg.Quality,
		mat:     gocv.NewMat(),
	}, nil
}

type gocvHandle struct {
	mu      sync.Mutex
	vc      *gocv.VideoCapture
	mat     gocv.Mat
	index   int
	mirror  bool
	quality int
	closed  bool
}

func (h *gocvHandle) Read() (*Frame, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed || !h.vc.IsOpened() {
		return nil, ErrDeviceUnavailable
	}
	if ok := h.vc.Read(&h.mat); !ok || h.mat.Empty() {
		return nil, ErrNoFrame
	}
	if h.mirror {
		gocv.Flip(h.mat, &h.mat, 1)
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, h.mat, []int{int(gocv.IMWriteJpegQuality), h.quality})
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()

	return &Frame{
		Data:       bytes.Clone(buf.GetBytes()),
		Width:      h.mat.Cols(),
		Height:     h.mat.Rows(),
		Index:      h.index,
		CapturedAt: time.Now(),
	}, nil
}

func (h *gocvHandle) Index() int { return h.index }

func (h *gocvHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	h.mat.Close()
	return h.vc.Close()
}
