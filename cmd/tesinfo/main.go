// Command tesinfo walks a recorded stream file and prints one line per
// decoded message: routing id, message id, and payload size, expanding
// collated packets into their inner messages.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/leaanthony/clir"
	"github.com/tes-go/tes/collate"
	"github.com/tes-go/tes/messages"
	"github.com/tes-go/tes/packet"
	"github.com/tes-go/tes/packetstream"
)

func main() {
	var inPath string

	cli := clir.NewCli("tesinfo", "Dump the message sequence of a recorded debug-visualisation stream", "v0.0.1")

	dumpCmd := cli.NewSubCommand("dump", "Print one line per decoded message in the recording")
	dumpCmd.StringFlag("in", "Input file path", &inPath)
	dumpCmd.Action(func() error {
		if inPath == "" {
			return fmt.Errorf("tesinfo: -in is required")
		}
		return dump(inPath)
	})

	if err := cli.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "tesinfo:", err)
		os.Exit(1)
	}
}

func dump(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	reader := packetstream.NewReader(file)
	index := 0
	for {
		frame, err := reader.ExtractPacket()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		r, err := packet.NewReader(frame)
		if err != nil {
			return err
		}
		if err := printMessage(index, r); err != nil {
			return err
		}
		index++
	}
	return nil
}

func printMessage(index int, r *packet.Reader) error {
	if r.RoutingID() != uint16(messages.RIDCollated) {
		fmt.Printf("%4d  %s\n", index, describe(r))
		return nil
	}

	fmt.Printf("%4d  %s\n", index, describe(r))
	dec, err := collate.NewDecoder(r)
	if err != nil {
		return err
	}
	for {
		inner, err := dec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		ir, err := packet.NewReader(inner)
		if err != nil {
			return err
		}
		fmt.Printf("        +-- %s\n", describe(ir))
	}
	return nil
}

func describe(r *packet.Reader) string {
	return fmt.Sprintf("routing=%-18s message=%-5d payload=%d bytes",
		routingName(r.RoutingID()), r.MessageID(), r.PayloadSize())
}

func routingName(id uint16) string {
	switch messages.RoutingID(id) {
	case messages.RIDServerInfo:
		return "ServerInfo"
	case messages.RIDControl:
		return "Control"
	case messages.RIDCollated:
		return "Collated"
	case messages.RIDMesh:
		return "Mesh"
	case messages.RIDCamera:
		return "Camera"
	case messages.RIDCategory:
		return "Category"
	case messages.RIDMaterial:
		return "Material"
	case messages.RIDSphere:
		return "Sphere"
	case messages.RIDBox:
		return "Box"
	case messages.RIDCone:
		return "Cone"
	case messages.RIDCylinder:
		return "Cylinder"
	case messages.RIDCapsule:
		return "Capsule"
	case messages.RIDPlane:
		return "Plane"
	case messages.RIDStar:
		return "Star"
	case messages.RIDArrow:
		return "Arrow"
	case messages.RIDMeshShape:
		return "MeshShape"
	case messages.RIDMeshSet:
		return "MeshSet"
	case messages.RIDPointCloud:
		return "PointCloud"
	case messages.RIDText3D:
		return "Text3D"
	case messages.RIDText2D:
		return "Text2D"
	case messages.RIDPose:
		return "Pose"
	default:
		return fmt.Sprintf("0x%04x", id)
	}
}
