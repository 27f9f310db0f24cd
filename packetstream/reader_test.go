package packetstream

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tes-go/tes/packet"
)

func buildFrame(t *testing.T, routingID, messageID uint16, payload []byte) []byte {
	t.Helper()
	w := packet.NewWriter(routingID, messageID, uint16(len(payload)))
	_, err := w.WriteRaw(payload)
	require.NoError(t, err)
	require.NoError(t, w.Finalise())
	return w.Bytes()
}

func TestExtractPacketSkipsJunkAndYieldsInOrder(t *testing.T) {
	f1 := buildFrame(t, 64, 1, []byte("hello"))
	f2 := buildFrame(t, 64, 2, []byte("world!!"))

	var buf bytes.Buffer
	buf.WriteString("garbagebytes-no-marker-here")
	buf.Write(f1)
	buf.WriteString("\x00\x00\x00more-junk")
	buf.Write(f2)

	r := NewReader(bytes.NewReader(buf.Bytes()))

	got1, err := r.ExtractPacket()
	require.NoError(t, err)
	require.Equal(t, f1, append([]byte(nil), got1...))

	got2, err := r.ExtractPacket()
	require.NoError(t, err)
	require.Equal(t, f2, append([]byte(nil), got2...))
}

func TestExtractPacketEOFOnShortTrailingJunk(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("nomarkerhereatall")
	r := NewReader(bytes.NewReader(buf.Bytes()))
	_, err := r.ExtractPacket()
	require.Error(t, err)
}

func TestSeekResetsBufferAndResyncs(t *testing.T) {
	f1 := buildFrame(t, 64, 1, []byte("abc"))
	f2 := buildFrame(t, 64, 2, []byte("defg"))
	var buf bytes.Buffer
	buf.Write(f1)
	buf.Write(f2)

	src := bytes.NewReader(buf.Bytes())
	r := NewReader(src)

	_, err := r.ExtractPacket()
	require.NoError(t, err)

	require.NoError(t, r.Seek(0))
	got, err := r.ExtractPacket()
	require.NoError(t, err)
	require.Equal(t, f1, append([]byte(nil), got...))
}
