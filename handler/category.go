package handler

import (
	"github.com/tes-go/tes/category"
	"github.com/tes-go/tes/messages"
	"github.com/tes-go/tes/packet"
)

// Category is the RIDCategory handler: it decodes CategoryName messages
// into the connection's category.Tree and re-serialises every known
// category on request.
type Category struct {
	tree *category.Tree
}

// NewCategory wraps tree as a Handler. tree must not be nil.
func NewCategory(tree *category.Tree) *Category {
	return &Category{tree: tree}
}

func (c *Category) RoutingID() messages.RoutingID { return messages.RIDCategory }

func (c *Category) Initialise() error { return nil }

func (c *Category) Reset() error {
	c.tree.Reset()
	return nil
}

func (c *Category) UpdateServerInfo(messages.ServerInfo) error { return nil }

// ReadMessage decodes a CategoryName record and merges it into the tree.
// CMIDName is the only message id defined under RIDCategory.
func (c *Category) ReadMessage(r *packet.Reader) error {
	var msg messages.CategoryName
	if err := msg.Read(r); err != nil {
		return err
	}
	c.tree.Update(category.FromMessage(msg))
	return nil
}

func (c *Category) PrepareFrame(FrameStamp) error { return nil }
func (c *Category) EndFrame(FrameStamp) error     { return nil }

// Serialise writes every known category as a CategoryName message, so a
// newly connected client or a keyframe observes the full category set.
func (c *Category) Serialise(sink Sink, _ messages.ServerInfo) error {
	for _, info := range c.tree.All() {
		msg := info.ToMessage()
		w := packet.NewWriter(uint16(messages.RIDCategory), uint16(messages.CMIDName), 256)
		if err := msg.Write(w); err != nil {
			return err
		}
		if err := w.Finalise(); err != nil {
			return err
		}
		if err := sink.SendPacket(w); err != nil {
			return err
		}
	}
	return nil
}
