// Command tesserve runs a standalone server that accepts viewer
// connections and emits a synthetic demo stream: a single sphere
// orbiting the origin, advanced one frame at a time.
package main

import (
	"fmt"
	"math"
	"net"
	"os"
	"os/signal"
	"time"

	"github.com/leaanthony/clir"
	"github.com/tes-go/tes/connection"
	"github.com/tes-go/tes/messages"
	"github.com/tes-go/tes/shapes"
)

const frameInterval = 33 * time.Millisecond

// demoOrbitRadius is the orbit radius, in world units, of the sphere
// tesserve streams.
const demoOrbitRadius = 2.0

func main() {
	var port int

	cli := clir.NewCli("tesserve", "Serve a synthetic debug-visualisation demo stream", "v0.0.1")

	listenCmd := cli.NewSubCommand("listen", "Listen for viewer connections and stream an orbiting sphere")
	listenCmd.IntFlag("port", "TCP port to listen on", &port)
	listenCmd.Action(func() error {
		if port == 0 {
			port = 33500
		}
		return serve(port, demoOrbitRadius)
	})

	if err := cli.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "tesserve:", err)
		os.Exit(1)
	}
}

func serve(port int, radius float64) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return err
	}

	monitor := connection.NewConnectionMonitor(listener)
	monitor.Start()
	defer monitor.Stop()

	srv := connection.NewServer(messages.DefaultServerInfo(), monitor)

	sphere := shapes.NewSphere()
	sphere.ID = 1
	sphere.Attributes.Colour = 0xFF3030FF

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	var elapsed float64
	created := false

	for {
		select {
		case <-sigCh:
			return srv.Close()
		case <-ticker.C:
			if err := srv.MonitorConnections(); err != nil {
				return err
			}

			elapsed += frameInterval.Seconds()
			sphere.Attributes.Position[0] = radius * math.Cos(elapsed)
			sphere.Attributes.Position[2] = radius * math.Sin(elapsed)

			if err := broadcastSphere(srv, sphere, !created); err != nil {
				return err
			}
			created = true

			if err := srv.UpdateTransfers(0); err != nil {
				return err
			}
			if err := srv.UpdateFrame(float32(frameInterval.Seconds()), true); err != nil {
				return err
			}
		}
	}
}

// broadcastSphere sends a Create the first time it's called and an
// Update (position only) on every call after that, to every connection
// the server currently has established.
func broadcastSphere(srv *connection.Server, sphere *shapes.Simple, create bool) error {
	for _, c := range srv.Connections() {
		if create {
			if err := c.Create(sphere); err != nil {
				return err
			}
			continue
		}
		if err := c.Update(sphere, messages.UFPosition); err != nil {
			return err
		}
	}
	return nil
}
