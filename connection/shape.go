package connection

import (
	"github.com/rotisserie/eris"
	"github.com/tes-go/tes/messages"
	"github.com/tes-go/tes/packet"
	"github.com/tes-go/tes/shapes"
)

// Create sends s's create message, streams its data packets if the shape
// is complex, and references any attached mesh resources for transfer
// unless the shape carries OFSkipResources. While inactive this is a
// no-op.
func (c *Connection) Create(s shapes.Shape) error {
	if !c.Active() {
		return nil
	}
	w := packet.NewWriter(s.RoutingID(), uint16(messages.OIDCreate), packet.MaxPayloadSize)
	if err := s.WriteCreate(w); err != nil {
		return eris.Wrap(err, "connection: encoding shape create")
	}
	if err := w.Finalise(); err != nil {
		return eris.Wrap(err, "connection: finalising shape create")
	}
	if _, err := c.Send(w.Bytes(), true); err != nil {
		return err
	}

	if cs, ok := s.(shapes.ComplexShape); ok && s.IsComplex() {
		var prog shapes.DataProgress
		for !prog.Complete && !prog.Failed {
			dw := packet.NewWriter(s.RoutingID(), uint16(messages.OIDData), packet.MaxPayloadSize)
			if err := cs.WriteData(dw, &prog, 0); err != nil {
				return eris.Wrap(err, "connection: encoding shape data")
			}
			if err := dw.Finalise(); err != nil {
				return eris.Wrap(err, "connection: finalising shape data")
			}
			if _, err := c.Send(dw.Bytes(), true); err != nil {
				return err
			}
		}
	}

	if skipResources(s) {
		return nil
	}
	if rp, ok := s.(shapes.ResourceProvider); ok {
		for _, res := range rp.Resources() {
			c.ReferenceResource(res)
		}
	}
	return nil
}

// Update sends s's update message with fields selecting the authoritative
// attribute sub-fields. While inactive this is a no-op.
func (c *Connection) Update(s shapes.Shape, fields messages.UpdateFlag) error {
	if !c.Active() {
		return nil
	}
	w := packet.NewWriter(s.RoutingID(), uint16(messages.OIDUpdate), packet.MaxPayloadSize)
	if err := s.WriteUpdate(w, fields); err != nil {
		return eris.Wrap(err, "connection: encoding shape update")
	}
	if err := w.Finalise(); err != nil {
		return eris.Wrap(err, "connection: finalising shape update")
	}
	_, err := c.Send(w.Bytes(), true)
	return err
}

// Destroy sends s's destroy message and releases its attached mesh
// resources, emitting mesh DESTROY messages for any whose refcount
// reaches zero. While inactive this is a no-op.
func (c *Connection) Destroy(s shapes.Shape) error {
	if !c.Active() {
		return nil
	}
	w := packet.NewWriter(s.RoutingID(), uint16(messages.OIDDestroy), 16)
	if err := s.WriteDestroy(w); err != nil {
		return eris.Wrap(err, "connection: encoding shape destroy")
	}
	if err := w.Finalise(); err != nil {
		return eris.Wrap(err, "connection: finalising shape destroy")
	}
	if _, err := c.Send(w.Bytes(), true); err != nil {
		return err
	}

	if skipResources(s) {
		return nil
	}
	if rp, ok := s.(shapes.ResourceProvider); ok {
		for _, res := range rp.Resources() {
			if err := c.ReleaseResource(res.MeshID); err != nil {
				return err
			}
		}
	}
	return nil
}

func skipResources(s shapes.Shape) bool {
	type flagged interface{ ObjectFlags() messages.ObjectFlag }
	f, ok := s.(flagged)
	return ok && f.ObjectFlags()&messages.OFSkipResources != 0
}
