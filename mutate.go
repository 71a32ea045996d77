package mutagen

import (
	"os"
	"time"

	"github.com/stephens2424/writerset"
)

// *****************************************************************************
// ************************* Main Dispatcher Object ****************************

// mutatorFn applies one mutation in place on data[:size], with room up to
// maxSize, and returns the new size, or 0 when its preconditions cannot be
// met for the current buffer state.
type mutatorFn func(data []byte, size, maxSize int) int

// mutatorDesc is a named pointer to one mutation operation. Built once at
// construction, stateless afterward.
type mutatorDesc struct {
	name string
	fn   mutatorFn
}

// MutationDispatcher owns everything one fuzzing worker needs to perturb
// inputs: the random source, the three dictionaries, a scratch buffer for
// aliased splices, and the bookkeeping of the in-flight mutation chain.
// One instance per worker; nothing is shared, nothing locks.
type MutationDispatcher struct {
	r    *pcgRand
	opts Options

	corpus Corpus

	manualDict   dictionary
	tempAutoDict dictionary
	persAutoDict dictionary

	// Staging area for self-referential splices and crossover; resized to
	// the current capacity before each use, prior contents meaningless.
	scratch []byte

	defaultMutators []mutatorDesc
	mutators        []mutatorDesc
	retries         int

	// Per-chain bookkeeping, reset by StartMutationSequence.
	curMutatorSeq   []mutatorDesc
	curDictEntrySeq []*DictionaryEntry

	// Diagnostics.
	mutRecs    map[string]*mutatorRecord
	totalMuts  uint
	totalFails uint
	startT     time.Time
	diag       *writerset.WriterSet
}

// NewMutationDispatcher builds a dispatcher from its options. The corpus may
// be nil; crossover then reports non-applicable until SetCorpus is called.
func NewMutationDispatcher(opts Options, corpus Corpus) *MutationDispatcher {
	md := &MutationDispatcher{
		opts:   opts,
		corpus: corpus,
		retries: func() int {
			if opts.MaxRetries > 0 {
				return opts.MaxRetries
			}
			return defaultMutateRetries
		}(),
		tempAutoDict: dictionary{maxLen: maxAutoDictSize},
		persAutoDict: dictionary{maxLen: maxAutoDictSize},
		startT:       time.Now(),
		diag:         writerset.New(),
	}
	md.diag.Add(os.Stdout)

	if opts.Seed != 0 {
		md.r = newSeededPCG(opts.Seed)
	} else {
		md.r = newPCG()
	}

	md.defaultMutators = []mutatorDesc{
		{"EraseBytes", md.eraseBytes},
		{"InsertByte", md.insertByte},
		{"InsertRepeatedBytes", md.insertRepeatedBytes},
		{"ChangeByte", md.changeByte},
		{"ChangeBit", md.changeBit},
		{"ShuffleBytes", md.shuffleBytes},
		{"ChangeASCIIInt", md.changeASCIIInt},
		{"ChangeBinInt", md.changeBinInt},
		{"CopyPart", md.copyPart},
		{"CrossOver", md.crossOver},
		{"AddFromManualDict", md.addFromManualDict},
		{"AddFromTempAutoDict", md.addFromTempAutoDict},
		{"AddFromPersAutoDict", md.addFromPersAutoDict},
	}

	// A custom mutator replaces the whole built-in set; a custom crossover
	// is appended to whichever base set is active.
	if opts.CustomMutator != nil {
		md.mutators = []mutatorDesc{{"Custom", md.mutateCustom}}
	} else {
		md.mutators = md.defaultMutators
	}
	if opts.CustomCrossOver != nil {
		md.mutators = append(md.mutators,
			mutatorDesc{"CustomCrossOver", md.mutateCustomCrossOver})
	}

	md.mutRecs = make(map[string]*mutatorRecord)
	for _, m := range md.defaultMutators {
		md.mutRecs[m.name] = new(mutatorRecord)
	}
	for _, m := range md.mutators {
		if _, ok := md.mutRecs[m.name]; !ok {
			md.mutRecs[m.name] = new(mutatorRecord)
		}
	}

	if len(opts.DictPath) > 0 {
		for _, de := range loadDictionary(opts.DictPath) {
			md.manualDict.push(de)
		}
	}

	return md
}

// SetCorpus installs the external input pool crossover draws from.
func (md *MutationDispatcher) SetCorpus(corpus Corpus) { md.corpus = corpus }

// *****************************************************************************
// ****************************** Dispatch Loop ********************************

// Mutate perturbs data[:size] in place and returns the new size, in
// [1, maxSize]. len(data) must be at least maxSize. An empty input is
// replaced by maxSize freshly generated bytes; otherwise one mutator from
// the active registry is applied, retrying with another draw when one
// reports non-applicable, and the original size is returned if the whole
// retry budget is exhausted.
func (md *MutationDispatcher) Mutate(data []byte, size, maxSize int) int {
	return md.mutateImpl(data, size, maxSize, md.mutators)
}

// DefaultMutate dispatches over the built-in set even when a custom mutator
// replaced the active registry. Hosts call this from inside their custom
// mutator when they want the baseline mutations as a building block.
func (md *MutationDispatcher) DefaultMutate(data []byte, size, maxSize int) int {
	return md.mutateImpl(data, size, maxSize, md.defaultMutators)
}

func (md *MutationDispatcher) mutateImpl(data []byte, size, maxSize int,
	mutators []mutatorDesc) int {

	if maxSize <= 0 {
		contractViolation("Mutate: maxSize=%d, must be positive", maxSize)
	}
	if size < 0 || size > maxSize {
		contractViolation("Mutate: size=%d outside [0, %d]", size, maxSize)
	}
	if len(data) < maxSize {
		contractViolation("Mutate: buffer length %d below capacity %d",
			len(data), maxSize)
	}

	if size == 0 {
		// Nothing to perturb: generate a full-capacity input instead.
		// This path never fails.
		for i := 0; i < maxSize; i++ {
			data[i] = md.randCh()
		}
		if md.opts.OnlyASCII {
			toASCII(data[:maxSize])
		}
		md.totalMuts++
		return maxSize
	}

	for iter := 0; iter < md.retries; iter++ {
		m := mutators[md.r.Intn(len(mutators))]
		newSize := m.fn(data, size, maxSize)
		if newSize == 0 {
			md.totalFails++
			continue
		}
		if newSize < 0 || newSize > maxSize {
			contractViolation("mutator %s produced size %d beyond capacity %d",
				m.name, newSize, maxSize)
		}
		if md.opts.OnlyASCII {
			toASCII(data[:newSize])
		}
		md.curMutatorSeq = append(md.curMutatorSeq, m)
		md.mutRecs[m.name].applied++
		md.totalMuts++
		return newSize
	}

	return size // Degrade gracefully: the input goes out unchanged.
}

// *****************************************************************************
// ************************** Byte Generation **********************************

// Biased toward punctuation and control bytes: parsers branch on those far
// more often than on arbitrary values.
const specialChars = "!*'();:@&=+$,/?%#[]012Az-`~.\xff\x00"

func (md *MutationDispatcher) randCh() byte {
	if md.r.Bool() {
		return byte(md.r.Intn(256))
	}
	return specialChars[md.r.Intn(len(specialChars))]
}

// toASCII folds every byte into the printable range, keeping whitespace.
func toASCII(data []byte) {
	for i, b := range data {
		b &= 0x7f
		if !isPrintable(b) && !isSpace(b) {
			b = ' '
		}
		data[i] = b
	}
}

func isPrintable(b byte) bool { return b >= 0x20 && b <= 0x7e }

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

// *****************************************************************************
// *************************** Byte-Level Mutators *****************************

// eraseBytes removes a run of up to half the buffer by shifting the tail
// left. A single byte cannot shrink, so size 1 is non-applicable.
func (md *MutationDispatcher) eraseBytes(data []byte, size, maxSize int) int {
	if size == 1 {
		return 0
	}
	n := md.r.Intn(size/2) + 1
	idx := md.r.Intn(size - n + 1)
	copy(data[idx:size-n], data[idx+n:size])
	return size - n
}

// insertByte splices one freshly generated byte at a random offset.
func (md *MutationDispatcher) insertByte(data []byte, size, maxSize int) int {
	if size >= maxSize {
		return 0
	}
	idx := md.r.Intn(size + 1)
	copy(data[idx+1:size+1], data[idx:size])
	data[idx] = md.randCh()
	return size + 1
}

// insertRepeatedBytes splices a run of a single repeated value, preferring
// 0x00 and 0xff. Needs at least minRepeatedBytes of headroom.
func (md *MutationDispatcher) insertRepeatedBytes(data []byte, size, maxSize int) int {
	if size+minRepeatedBytes >= maxSize {
		return 0
	}
	maxN := maxSize - size
	if maxN > maxRepeatedBytes {
		maxN = maxRepeatedBytes
	}
	n := md.r.Intn(maxN-minRepeatedBytes+1) + minRepeatedBytes
	idx := md.r.Intn(size + 1)
	copy(data[idx+n:size+n], data[idx:size])

	var b byte
	if md.r.Bool() {
		b = byte(md.r.Intn(256))
	} else if md.r.Bool() {
		b = 0x00
	} else {
		b = 0xff
	}
	for i := 0; i < n; i++ {
		data[idx+i] = b
	}
	return size + n
}

func (md *MutationDispatcher) changeByte(data []byte, size, maxSize int) int {
	data[md.r.Intn(size)] = md.randCh()
	return size
}

func (md *MutationDispatcher) changeBit(data []byte, size, maxSize int) int {
	data[md.r.Intn(size)] ^= 1 << uint(md.r.Intn(8))
	return size
}

// shuffleBytes permutes a short contiguous run in place.
func (md *MutationDispatcher) shuffleBytes(data []byte, size, maxSize int) int {
	max := size
	if max > maxShuffleAmount {
		max = maxShuffleAmount
	}
	amount := md.r.Intn(max) + 1
	start := md.r.Intn(size - amount)
	run := data[start : start+amount]
	for i := amount - 1; i > 0; i-- {
		j := md.r.Intn(i + 1)
		run[i], run[j] = run[j], run[i]
	}
	return size
}

// *****************************************************************************
// ************************** External Callbacks *******************************

func (md *MutationDispatcher) mutateCustom(data []byte, size, maxSize int) int {
	newSize := md.opts.CustomMutator(data, size, maxSize, md.r.Uint64())
	if newSize > maxSize {
		contractViolation("custom mutator returned size %d beyond capacity %d",
			newSize, maxSize)
	}
	return newSize
}

func (md *MutationDispatcher) mutateCustomCrossOver(data []byte, size, maxSize int) int {
	if md.corpus == nil || md.corpus.Size() < 2 || size == 0 {
		return 0
	}
	other := md.corpus.Input(md.r.Intn(md.corpus.Size()))
	if len(other) == 0 {
		return 0
	}
	md.growScratch(maxSize)
	newSize := md.opts.CustomCrossOver(data[:size], size, other, len(other),
		md.scratch[:maxSize], md.r.Uint64())
	if newSize == 0 {
		return 0
	}
	if newSize > maxSize {
		contractViolation("custom crossover returned size %d beyond capacity %d",
			newSize, maxSize)
	}
	copy(data[:newSize], md.scratch[:newSize])
	return newSize
}

// growScratch makes the staging buffer at least n bytes long. Contents are
// never assumed valid across calls.
func (md *MutationDispatcher) growScratch(n int) {
	if cap(md.scratch) < n {
		md.scratch = make([]byte, n)
	}
	md.scratch = md.scratch[:cap(md.scratch)]
}
