package inference

import (
	"encoding/base64"

	"github.com/teslashibe/go-jarvis/pkg/camera"
)

// ImageDataURL returns the frame's JPEG bytes as a data URL for chat image parts.
func ImageDataURL(frame *camera.Frame) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(frame.Data)
}
