// devices lists audio devices and probes for cameras, to help pick values
// for the audio.device, speaker.device and camera.index settings.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/teslashibe/go-jarvis/pkg/audioio"
	"github.com/teslashibe/go-jarvis/pkg/camera"
)

func main() {
	maxIndex := flag.Int("max-camera", 10, "Highest camera index to probe")
	noCamera := flag.Bool("no-camera", false, "Skip camera probing")
	flag.Parse()

	failed := false
	for _, kind := range []audioio.DeviceKind{audioio.KindCapture, audioio.KindPlayback} {
		devices, err := audioio.ListDevices(kind)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s devices: %v\n", kind, err)
			failed = true
			continue
		}
		fmt.Printf("%s devices:\n", kind)
		if len(devices) == 0 {
			fmt.Println("  (none)")
		}
		for _, d := range devices {
			mark := " "
			if d.IsDefault {
				mark = "*"
			}
			fmt.Printf(" %s %2d  %s\n", mark, d.Index, d.Name)
		}
		fmt.Println()
	}

	if !*noCamera {
		cfg := camera.DefaultConfig()
		found := camera.Probe(camera.NewGoCVDevice(cfg), *maxIndex)
		fmt.Printf("cameras (0..%d):\n", *maxIndex)
		if len(found) == 0 {
			fmt.Println("  (none)")
		}
		for _, i := range found {
			fmt.Printf("   %2d\n", i)
		}
	}

	if failed {
		os.Exit(1)
	}
}
