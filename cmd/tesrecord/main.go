// Command tesrecord writes the same synthetic orbiting-sphere demo
// stream tesserve broadcasts live to a recording file on disk, using the
// stream file layout described by the streamutil package, and finalises
// the recording on close.
package main

import (
	"fmt"
	"math"
	"os"
	"os/signal"
	"time"

	"github.com/leaanthony/clir"
	"github.com/tes-go/tes/connection"
	"github.com/tes-go/tes/messages"
	"github.com/tes-go/tes/shapes"
	"github.com/tes-go/tes/streamutil"
)

const frameInterval = 33 * time.Millisecond
const demoOrbitRadius = 2.0

// noCloseFile wraps an *os.File so that Connection.Close (which closes
// its underlying io.WriteCloser) never closes the file out from under
// the finalise step, which still needs to seek and overwrite the
// preamble once the sink goroutine has drained.
type noCloseFile struct{ *os.File }

func (noCloseFile) Close() error { return nil }

func main() {
	var outPath string
	var frameCount int

	cli := clir.NewCli("tesrecord", "Record a synthetic debug-visualisation demo stream to disk", "v0.0.1")

	recordCmd := cli.NewSubCommand("record", "Record an orbiting sphere until interrupted, or for a fixed frame count")
	recordCmd.StringFlag("out", "Output file path", &outPath)
	recordCmd.IntFlag("frames", "Stop after this many frames (0 = run until interrupted)", &frameCount)
	recordCmd.Action(func() error {
		if outPath == "" {
			outPath = "recording.tes"
		}
		return record(outPath, frameCount)
	})

	if err := cli.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "tesrecord:", err)
		os.Exit(1)
	}
}

func record(outPath string, frameLimit int) error {
	file, err := os.Create(outPath)
	if err != nil {
		return err
	}

	info := messages.DefaultServerInfo()
	if err := streamutil.WritePreamble(file, info); err != nil {
		_ = file.Close()
		return err
	}

	conn := connection.New(noCloseFile{file}, "", 0)

	sphere := shapes.NewSphere()
	sphere.ID = 1
	sphere.Attributes.Colour = 0xFF3030FF

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	var elapsed float64
	var frames uint32
	created := false

loop:
	for {
		select {
		case <-sigCh:
			break loop
		case <-ticker.C:
			elapsed += frameInterval.Seconds()
			sphere.Attributes.Position[0] = demoOrbitRadius * math.Cos(elapsed)
			sphere.Attributes.Position[2] = demoOrbitRadius * math.Sin(elapsed)

			if err := writeSphere(conn, sphere, !created); err != nil {
				return err
			}
			created = true

			if err := conn.UpdateFrame(float32(frameInterval.Seconds()), true); err != nil {
				return err
			}
			frames++
			if frameLimit > 0 && int(frames) >= frameLimit {
				break loop
			}
		}
	}

	if err := conn.Close(); err != nil {
		return err
	}
	if err := streamutil.Finalise(file, nil, frames); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func writeSphere(c *connection.Connection, sphere *shapes.Simple, create bool) error {
	if create {
		return c.Create(sphere)
	}
	return c.Update(sphere, messages.UFPosition)
}
