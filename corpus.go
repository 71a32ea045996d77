package mutagen

import (
	"fmt"
	"hash/fnv"

	"sync"
)

/******************************************************************************/
/****************************** Corpus Management *****************************/
/******************************************************************************/

// MemoryCorpus is a ready-made Corpus: a deduplicated in-memory pool of
// accepted inputs. Hosts with their own seed scheduling implement Corpus
// themselves; this one covers the common case of a flat pool fed from the
// execution loop. Adding and reading may happen from different goroutines.
type MemoryCorpus struct {
	mtx    sync.RWMutex // Mutex on inputs because adds race with crossover reads
	inputs [][]byte
	known  map[uint64]struct{}
}

func NewMemoryCorpus() *MemoryCorpus {
	return &MemoryCorpus{known: make(map[uint64]struct{})}
}

// Add copies the input into the pool. Returns false when an identical input
// is already there.
func (c *MemoryCorpus) Add(input []byte) bool {
	h := hashInput(input)

	c.mtx.Lock()
	defer c.mtx.Unlock()
	if _, ok := c.known[h]; ok {
		return false
	}
	c.known[h] = struct{}{}

	cp := make([]byte, len(input))
	copy(cp, input)
	c.inputs = append(c.inputs, cp)
	return true
}

func (c *MemoryCorpus) Size() int {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	return len(c.inputs)
}

// Input returns the i-th pool entry. The engine only reads it; callers that
// want to modify it go through InputCopy.
func (c *MemoryCorpus) Input(i int) []byte {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	return c.inputs[i]
}

func (c *MemoryCorpus) InputCopy(i int) (cp []byte, curLen int) {
	c.mtx.RLock()
	curLen = len(c.inputs[i])
	cp = make([]byte, curLen)
	copy(cp, c.inputs[i])
	c.mtx.RUnlock()
	return cp, curLen
}

// MeanLen reports the average input length of the pool; a host can size its
// mutation buffers from it.
func (c *MemoryCorpus) MeanLen() (mean float64) {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	if len(c.inputs) == 0 {
		return 0
	}

	var totLen int
	for _, input := range c.inputs {
		totLen += len(input)
	}
	mean = float64(totLen) / float64(len(c.inputs))
	return mean
}

func (c *MemoryCorpus) String() string {
	return fmt.Sprintf("{corpus size=%d meanLen=%.1f}", c.Size(), c.MeanLen())
}

func hashInput(input []byte) uint64 {
	h := fnv.New64a()
	h.Write(input)
	return h.Sum64()
}
