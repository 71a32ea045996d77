package mutagen

import (
	"bytes"
	"testing"
)

func newTestDispatcher(seed uint64) *MutationDispatcher {
	return NewMutationDispatcher(Options{Seed: seed}, nil)
}

func TestMutateSizeBounds(t *testing.T) {
	md := newTestDispatcher(1)

	const maxSize = 64
	data := make([]byte, maxSize)
	for iter := 0; iter < 10000; iter++ {
		size := md.r.Intn(maxSize) + 1
		for i := 0; i < size; i++ {
			data[i] = byte(i)
		}

		newSize := md.Mutate(data, size, maxSize)
		if newSize < 1 || newSize > maxSize {
			t.Fatalf("iter %d: Mutate(size=%d, maxSize=%d) = %d, outside [1, %d]",
				iter, size, maxSize, newSize, maxSize)
		}
	}
}

func TestMutateEmptyInput(t *testing.T) {
	for _, maxSize := range []int{1, 2, 7, 64, 4096} {
		md := newTestDispatcher(uint64(maxSize))
		data := make([]byte, maxSize)
		newSize := md.Mutate(data, 0, maxSize)
		if newSize != maxSize {
			t.Fatalf("Mutate(size=0, maxSize=%d) = %d, want %d",
				maxSize, newSize, maxSize)
		}
	}
}

func TestMutateEmptyInputOnlyASCII(t *testing.T) {
	md := NewMutationDispatcher(Options{Seed: 3, OnlyASCII: true}, nil)
	const maxSize = 512
	data := make([]byte, maxSize)
	newSize := md.Mutate(data, 0, maxSize)
	if newSize != maxSize {
		t.Fatalf("Mutate(size=0) = %d, want %d", newSize, maxSize)
	}
	for i, b := range data {
		if !isPrintable(b) && !isSpace(b) {
			t.Fatalf("byte %d = %#x, not printable ASCII", i, b)
		}
	}
}

func TestMutateOnlyASCIIFoldsResult(t *testing.T) {
	md := NewMutationDispatcher(Options{Seed: 17, OnlyASCII: true}, nil)
	const maxSize = 32
	data := make([]byte, maxSize)
	for iter := 0; iter < 2000; iter++ {
		size := md.r.Intn(maxSize) + 1
		for i := 0; i < size; i++ {
			data[i] = 0xc3 // Start outside the printable range.
		}
		newSize := md.Mutate(data, size, maxSize)
		if newSize == size && allBytesAre(data[:size], 0xc3) {
			// Retry budget exhausted: the input legitimately comes back
			// unmodified and unfolded.
			continue
		}
		for i := 0; i < newSize; i++ {
			if !isPrintable(data[i]) && !isSpace(data[i]) {
				t.Fatalf("iter %d: byte %d = %#x, not printable ASCII",
					iter, i, data[i])
			}
		}
	}
}

func TestMutateDeterministic(t *testing.T) {
	run := func() []byte {
		md := newTestDispatcher(42)
		data := make([]byte, 128)
		size := 16
		for i := 0; i < size; i++ {
			data[i] = byte(i * 3)
		}
		for iter := 0; iter < 100; iter++ {
			size = md.Mutate(data, size, len(data))
		}
		return append([]byte(nil), data[:size]...)
	}

	first := run()
	second := run()
	if !bytes.Equal(first, second) {
		t.Fatalf("same seed produced different outputs:\n%x\n%x", first, second)
	}
}

func TestMutatePreconditions(t *testing.T) {
	md := newTestDispatcher(5)
	for _, tc := range []struct {
		name          string
		data          []byte
		size, maxSize int
	}{
		{"zero capacity", make([]byte, 4), 0, 0},
		{"size beyond capacity", make([]byte, 4), 5, 4},
		{"negative size", make([]byte, 4), -1, 4},
		{"short buffer", make([]byte, 2), 1, 4},
	} {
		func() {
			defer func() {
				r := recover()
				if r == nil {
					t.Fatalf("%s: no panic", tc.name)
				}
				if _, ok := r.(ContractError); !ok {
					t.Fatalf("%s: panic value %v, want ContractError", tc.name, r)
				}
			}()
			md.Mutate(tc.data, tc.size, tc.maxSize)
		}()
	}
}

// *****************************************************************************
// *************************** Individual Mutators *****************************

func TestEraseBytesSingleByte(t *testing.T) {
	md := newTestDispatcher(7)
	data := []byte{0x42}
	for iter := 0; iter < 100; iter++ {
		if got := md.eraseBytes(data, 1, 8); got != 0 {
			t.Fatalf("eraseBytes(size=1) = %d, want 0", got)
		}
	}
}

func TestEraseBytesShrinks(t *testing.T) {
	md := newTestDispatcher(8)
	for iter := 0; iter < 1000; iter++ {
		data := []byte{0, 1, 2, 3, 4, 5, 6, 7}
		size := len(data)
		newSize := md.eraseBytes(data, size, size)
		if newSize < size/2 || newSize >= size {
			t.Fatalf("eraseBytes(size=%d) = %d, want [%d, %d)",
				size, newSize, size/2, size)
		}
	}
}

func TestInsertByteAtCapacity(t *testing.T) {
	md := newTestDispatcher(9)
	data := []byte{1, 2, 3}
	if got := md.insertByte(data, 3, 3); got != 0 {
		t.Fatalf("insertByte at capacity = %d, want 0", got)
	}
}

func TestInsertByteGrowsByOne(t *testing.T) {
	md := newTestDispatcher(10)
	for iter := 0; iter < 1000; iter++ {
		data := make([]byte, 16)
		for i := 0; i < 8; i++ {
			data[i] = byte(i + 1)
		}
		newSize := md.insertByte(data, 8, 16)
		if newSize != 9 {
			t.Fatalf("insertByte = %d, want 9", newSize)
		}
	}
}

func TestInsertRepeatedBytesHeadroom(t *testing.T) {
	md := newTestDispatcher(11)
	data := make([]byte, 6)
	// Headroom of 1 is below the minimum run of 3.
	if got := md.insertRepeatedBytes(data, 5, 6); got != 0 {
		t.Fatalf("insertRepeatedBytes(size=5, maxSize=6) = %d, want 0", got)
	}
}

func TestInsertRepeatedBytesRun(t *testing.T) {
	md := newTestDispatcher(12)
	for iter := 0; iter < 1000; iter++ {
		data := make([]byte, 64)
		size := 8
		newSize := md.insertRepeatedBytes(data, size, 64)
		if newSize < size+minRepeatedBytes || newSize > 64 {
			t.Fatalf("insertRepeatedBytes = %d, want [%d, 64]",
				newSize, size+minRepeatedBytes)
		}
	}
}

func TestChangeBitFlipsExactlyOne(t *testing.T) {
	md := newTestDispatcher(13)
	for iter := 0; iter < 1000; iter++ {
		data := make([]byte, 8)
		orig := append([]byte(nil), data...)
		if got := md.changeBit(data, 8, 8); got != 8 {
			t.Fatalf("changeBit = %d, want 8", got)
		}

		var flipped int
		for i := range data {
			d := data[i] ^ orig[i]
			for ; d != 0; d &= d - 1 {
				flipped++
			}
		}
		if flipped != 1 {
			t.Fatalf("changeBit flipped %d bits, want 1", flipped)
		}
	}
}

func TestShuffleBytesPreservesContent(t *testing.T) {
	md := newTestDispatcher(14)
	for iter := 0; iter < 1000; iter++ {
		data := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
		if got := md.shuffleBytes(data, 10, 10); got != 10 {
			t.Fatalf("shuffleBytes = %d, want 10", got)
		}

		var counts [10]int
		for _, b := range data {
			counts[b]++
		}
		for v, n := range counts {
			if n != 1 {
				t.Fatalf("iter %d: value %d appears %d times after shuffle",
					iter, v, n)
			}
		}
	}
}

func TestMutateRetriesExhaustedReturnsInput(t *testing.T) {
	// A registry of a single never-applicable mutator: a custom mutator
	// that always reports 0.
	md := NewMutationDispatcher(Options{
		Seed:          15,
		CustomMutator: func(data []byte, size, maxSize int, seed uint64) int { return 0 },
	}, nil)

	data := []byte{1, 2, 3, 4}
	if got := md.Mutate(data, 4, 4); got != 4 {
		t.Fatalf("Mutate with exhausted retries = %d, want original 4", got)
	}
	if !bytes.Equal(data, []byte{1, 2, 3, 4}) {
		t.Fatalf("buffer modified on failed mutation: %v", data)
	}
}

// *****************************************************************************
// *************************** External Callbacks ******************************

func TestCustomMutatorReplacesRegistry(t *testing.T) {
	calls := 0
	md := NewMutationDispatcher(Options{
		Seed: 16,
		CustomMutator: func(data []byte, size, maxSize int, seed uint64) int {
			calls++
			data[0] = 'M'
			return size
		},
	}, nil)

	if len(md.mutators) != 1 || md.mutators[0].name != "Custom" {
		t.Fatalf("registry = %v, want the single Custom entry", md.mutators)
	}

	data := []byte{0, 0}
	if got := md.Mutate(data, 2, 2); got != 2 {
		t.Fatalf("Mutate = %d, want 2", got)
	}
	if calls != 1 || data[0] != 'M' {
		t.Fatalf("custom mutator not applied: calls=%d data=%v", calls, data)
	}
}

func TestCustomCrossOverAppended(t *testing.T) {
	md := NewMutationDispatcher(Options{
		Seed: 17,
		CustomCrossOver: func(data1 []byte, size1 int, data2 []byte, size2 int,
			out []byte, seed uint64) int {
			return 0
		},
	}, nil)

	last := md.mutators[len(md.mutators)-1]
	if last.name != "CustomCrossOver" {
		t.Fatalf("last registry entry = %s, want CustomCrossOver", last.name)
	}
	if len(md.mutators) != len(md.defaultMutators)+1 {
		t.Fatalf("registry size = %d, want %d",
			len(md.mutators), len(md.defaultMutators)+1)
	}
}

func TestCustomMutatorOversizeIsContractBreach(t *testing.T) {
	md := NewMutationDispatcher(Options{
		Seed: 18,
		CustomMutator: func(data []byte, size, maxSize int, seed uint64) int {
			return maxSize + 1
		},
	}, nil)

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("no panic on oversized callback result")
		}
		if _, ok := r.(ContractError); !ok {
			t.Fatalf("panic value %v, want ContractError", r)
		}
	}()
	md.Mutate(make([]byte, 4), 2, 4)
}

func TestDefaultMutateIgnoresCustomRegistry(t *testing.T) {
	md := NewMutationDispatcher(Options{
		Seed: 19,
		CustomMutator: func(data []byte, size, maxSize int, seed uint64) int {
			t.Fatal("custom mutator called from DefaultMutate")
			return 0
		},
	}, nil)

	data := make([]byte, 32)
	for i := 0; i < 8; i++ {
		data[i] = byte(i)
	}
	newSize := md.DefaultMutate(data, 8, 32)
	if newSize < 1 || newSize > 32 {
		t.Fatalf("DefaultMutate = %d, outside [1, 32]", newSize)
	}
}

func allBytesAre(data []byte, b byte) bool {
	for _, d := range data {
		if d != b {
			return false
		}
	}
	return true
}

// *****************************************************************************

func TestToASCII(t *testing.T) {
	data := []byte{0x00, 'a', 0xff, '\n', 0x7f, ' ', 0x90}
	toASCII(data)
	for i, b := range data {
		if !isPrintable(b) && !isSpace(b) {
			t.Fatalf("byte %d = %#x after fold", i, b)
		}
	}
	if data[1] != 'a' || data[3] != '\n' || data[5] != ' ' {
		t.Fatalf("printable bytes not preserved: %v", data)
	}
}
