// Package endian provides byte-reversal primitives for the wire protocol,
// which is always big-endian regardless of host order.
package endian

import "encoding/binary"

// Network is the byte order used on the wire. Every multi-byte field of
// every packet is encoded big-endian.
var Network = binary.BigEndian

// hostIsBigEndian reports whether the running process is already big-endian,
// in which case swaps are no-ops.
var hostIsBigEndian = func() bool {
	buf := [2]byte{}
	binary.NativeEndian.PutUint16(buf[:], 1)
	return buf[0] == 0
}()

// Swap1 is a no-op: single bytes have no order.
func Swap1(_ []byte) {}

// Swap2 reverses a 2-byte value in place.
func Swap2(data []byte) {
	data[0], data[1] = data[1], data[0]
}

// Swap4 reverses a 4-byte value in place.
func Swap4(data []byte) {
	data[0], data[3] = data[3], data[0]
	data[1], data[2] = data[2], data[1]
}

// Swap8 reverses an 8-byte value in place.
func Swap8(data []byte) {
	data[0], data[7] = data[7], data[0]
	data[1], data[6] = data[6], data[1]
	data[2], data[5] = data[5], data[2]
	data[3], data[4] = data[4], data[3]
}

// Swap16 reverses a 16-byte value in place.
func Swap16(data []byte) {
	for i, j := 0, 15; i < j; i, j = i+1, j-1 {
		data[i], data[j] = data[j], data[i]
	}
}

// SwapWidth reverses a value of the given byte width in place. width must be
// one of 1, 2, 4, 8, 16.
func SwapWidth(data []byte, width int) {
	switch width {
	case 1:
		Swap1(data)
	case 2:
		Swap2(data)
	case 4:
		Swap4(data)
	case 8:
		Swap8(data)
	case 16:
		Swap16(data)
	}
}

// HostIsBigEndian reports whether the running host's native order already
// matches the wire order, in which case scalar reads/writes need not swap.
func HostIsBigEndian() bool {
	return hostIsBigEndian
}

// SwapArray byte-reverses each of count contiguous elements of
// elementSize bytes, in place, starting at data[0]. It does nothing on a
// big-endian host or when elementSize is 1 or less.
func SwapArray(data []byte, elementSize, count int) {
	if hostIsBigEndian || elementSize <= 1 {
		return
	}
	for i := 0; i < count; i++ {
		SwapWidth(data[i*elementSize:(i+1)*elementSize], elementSize)
	}
}
