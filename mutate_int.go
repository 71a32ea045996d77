package mutagen

import (
	"encoding/binary"
	"math/bits"
)

// *****************************************************************************
// ************************ Integer-Aware Mutators *****************************

// changeASCIIInt finds a decimal digit run, mutates its value, and rewrites
// it right-aligned in the same width. Digits beyond the original width are
// dropped: the run never grows, so surrounding bytes never shift.
func (md *MutationDispatcher) changeASCIIInt(data []byte, size, maxSize int) int {
	b := md.r.Intn(size)
	for b < size && !isDigit(data[b]) {
		b++
	}
	if b == size {
		return 0
	}
	e := b
	for e < size && isDigit(data[e]) {
		e++
	}

	md.rewriteASCIIInt(data, b, e, md.r.Intn(5))
	return size
}

// rewriteASCIIInt mutates the value of the digit run [b, e) and writes it
// back in the run's exact width.
func (md *MutationDispatcher) rewriteASCIIInt(data []byte, b, e, op int) {
	// The run is not null-terminated, accumulate manually.
	val := uint64(data[b] - '0')
	for i := b + 1; i < e; i++ {
		val = val*10 + uint64(data[i]-'0')
	}

	switch op {
	case 0:
		val++
	case 1:
		val--
	case 2:
		val /= 2
	case 3:
		val *= 2
	case 4:
		// Large jumps on purpose: length and overflow sensitive code sits
		// far from the current value.
		val = md.r.Uint64n(val * val)
	}

	for i := e - 1; i >= b; i-- {
		data[i] = byte(val%10) + '0'
		val /= 10
	}
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// changeBinInt treats a random offset as a 8/16/32/64-bit integer, adds a
// small delta, half the time after a byte-order swap to probe the opposite
// endianness reading, and often negates the result.
func (md *MutationDispatcher) changeBinInt(data []byte, size, maxSize int) int {
	width := 1 << uint(md.r.Intn(4))
	if size < width {
		return 0
	}
	off := md.r.Intn(size - width + 1)

	val := readUint(data[off:], width)
	delta := uint64(int64(md.r.Intn(21) - 10))
	if md.r.Bool() {
		val = bswap(bswap(val, width)+delta, width)
	} else {
		val += delta
	}
	if delta == 0 || md.r.Bool() {
		val = -val
	}
	writeUint(data[off:], width, val)
	return size
}

// ***** fixed-width little-endian accessors *****

func readUint(data []byte, width int) uint64 {
	switch width {
	case 1:
		return uint64(data[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(data))
	case 4:
		return uint64(binary.LittleEndian.Uint32(data))
	default:
		return binary.LittleEndian.Uint64(data)
	}
}

func writeUint(data []byte, width int, val uint64) {
	switch width {
	case 1:
		data[0] = byte(val)
	case 2:
		binary.LittleEndian.PutUint16(data, uint16(val))
	case 4:
		binary.LittleEndian.PutUint32(data, uint32(val))
	default:
		binary.LittleEndian.PutUint64(data, val)
	}
}

func bswap(val uint64, width int) uint64 {
	switch width {
	case 1:
		return val
	case 2:
		return uint64(bits.ReverseBytes16(uint16(val)))
	case 4:
		return uint64(bits.ReverseBytes32(uint32(val)))
	default:
		return bits.ReverseBytes64(val)
	}
}
