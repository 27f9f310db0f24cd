package connection

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tes-go/tes/collate"
	"github.com/tes-go/tes/messages"
	"github.com/tes-go/tes/meshres"
	"github.com/tes-go/tes/packet"
	"github.com/tes-go/tes/packetstream"
	"github.com/tes-go/tes/shapes"
)

func newTestMeshResource(t *testing.T) *meshres.Resource {
	t.Helper()
	return meshres.New(7, 0, 0, meshres.DrawPoints, false)
}

// bufWriteCloser is an in-memory io.WriteCloser standing in for a
// net.Conn or recording file in tests.
type bufWriteCloser struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	closed bool
}

func (b *bufWriteCloser) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *bufWriteCloser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *bufWriteCloser) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]byte, b.buf.Len())
	copy(out, b.buf.Bytes())
	return out
}

func TestInactiveConnectionSendIsNoop(t *testing.T) {
	w := &bufWriteCloser{}
	c := New(w, "127.0.0.1", 33000)
	defer c.Close()
	c.SetActive(false)

	n, err := c.Send([]byte{1, 2, 3}, false)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestSendServerInfoWritesImmediately(t *testing.T) {
	w := &bufWriteCloser{}
	c := New(w, "127.0.0.1", 33000)
	defer c.Close()

	require.NoError(t, c.SendServerInfo(messages.DefaultServerInfo()))
	require.NoError(t, c.Close())

	r, err := packet.NewReader(w.Bytes())
	require.NoError(t, err)
	require.Equal(t, uint16(messages.RIDServerInfo), r.RoutingID())
}

func TestUpdateFrameFlushesCollatedPacket(t *testing.T) {
	w := &bufWriteCloser{}
	c := New(w, "127.0.0.1", 33000)
	defer c.Close()

	require.NoError(t, c.UpdateFrame(0.016, true))
	require.NoError(t, c.Close())

	require.NotEmpty(t, w.Bytes())
	r, err := packet.NewReader(w.Bytes())
	require.NoError(t, err)
	require.Equal(t, uint16(messages.RIDCollated), r.RoutingID())
}

func TestCloseIsIdempotent(t *testing.T) {
	w := &bufWriteCloser{}
	c := New(w, "127.0.0.1", 33000)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	require.False(t, c.IsConnected())
}

func TestReferenceAndReleaseResourceEmitsDestroy(t *testing.T) {
	// Release is only meaningful once a resource has actually been
	// referenced through this connection's registry.
	w := &bufWriteCloser{}
	c := New(w, "127.0.0.1", 33000)
	defer c.Close()

	res := newTestMeshResource(t)
	require.Equal(t, 1, c.ReferenceResource(res))
	require.NoError(t, c.ReleaseResource(res.MeshID))
	// The DESTROY is staged in the collated packet until the next flush.
	require.NoError(t, c.FlushCollated())
	require.NoError(t, c.Close())

	outer, err := packet.NewReader(w.Bytes())
	require.NoError(t, err)
	require.Equal(t, uint16(messages.RIDCollated), outer.RoutingID())
	dec, err := collate.NewDecoder(outer)
	require.NoError(t, err)
	inner, err := dec.Next()
	require.NoError(t, err)
	r, err := packet.NewReader(inner)
	require.NoError(t, err)
	require.Equal(t, uint16(messages.RIDMesh), r.RoutingID())
	require.Equal(t, uint16(meshres.MIDDestroy), r.MessageID())
}

func TestCreateSendsShapeAndReferencesResources(t *testing.T) {
	w := &bufWriteCloser{}
	c := New(w, "127.0.0.1", 33000)
	defer c.Close()

	res := meshres.New(9, 0, 0, meshres.DrawPoints, false)
	cloud := shapes.NewPointCloud(0)
	cloud.ID = 4
	cloud.Resource = res

	require.NoError(t, c.Create(cloud))
	require.NoError(t, c.FlushCollated())
	require.NoError(t, c.UpdateTransfers(0))
	require.NoError(t, c.Destroy(cloud))
	require.NoError(t, c.FlushCollated())
	require.NoError(t, c.Close())

	var mids []uint16
	sr := packetstream.NewReader(bytes.NewReader(w.Bytes()))
	for {
		frame, err := sr.ExtractPacket()
		if err != nil {
			break
		}
		r, err := packet.NewReader(frame)
		require.NoError(t, err)
		if messages.RoutingID(r.RoutingID()) == messages.RIDCollated {
			dec, err := collate.NewDecoder(r)
			require.NoError(t, err)
			for {
				inner, err := dec.Next()
				if err != nil {
					break
				}
				ir, err := packet.NewReader(inner)
				require.NoError(t, err)
				if messages.RoutingID(ir.RoutingID()) == messages.RIDMesh {
					mids = append(mids, ir.MessageID())
				}
			}
		} else if messages.RoutingID(r.RoutingID()) == messages.RIDMesh {
			mids = append(mids, r.MessageID())
		}
	}

	// One CREATE/FINALISE pair from the transfer pump, one DESTROY when
	// the point cloud released its only reference.
	require.Equal(t, []uint16{
		uint16(meshres.MIDCreate),
		uint16(meshres.MIDFinalise),
		uint16(meshres.MIDDestroy),
	}, mids)
}

func TestCreateSkipResourcesLeavesRegistryEmpty(t *testing.T) {
	w := &bufWriteCloser{}
	c := New(w, "127.0.0.1", 33000)
	defer c.Close()

	res := meshres.New(10, 0, 0, meshres.DrawPoints, false)
	cloud := shapes.NewPointCloud(0)
	cloud.ID = 5
	cloud.Flags = uint16(messages.OFSkipResources)
	cloud.Resource = res

	require.NoError(t, c.Create(cloud))
	require.Equal(t, 0, c.resources.RefCount(10))
}

func TestNakedFrameMessageBypassesCollation(t *testing.T) {
	w := &bufWriteCloser{}
	c := New(w, "127.0.0.1", 33000)
	defer c.Close()
	c.SetServerFlags(SFNakedFrameMessage)

	require.NoError(t, c.UpdateFrame(0.033, true))
	require.NoError(t, c.Close())

	r, err := packet.NewReader(w.Bytes())
	require.NoError(t, err)
	require.Equal(t, uint16(messages.RIDControl), r.RoutingID())
	require.Equal(t, uint16(messages.CIDFrame), r.MessageID())
}
