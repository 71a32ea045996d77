package mutagen

import (
	"fmt"
)

/******************************************************************************/
/******************************* Various Types ********************************/
/******************************************************************************/

const (
	// Retry budget of the dispatch loop. A mutator that cannot apply to the
	// current buffer returns 0 and another one is drawn, up to this many
	// times, before the input is returned unchanged.
	defaultMutateRetries = 10

	// Bound of the two automatic dictionaries. The manual dictionary is
	// unbounded.
	maxAutoDictSize = 1 << 14

	// Bounds of insertRepeatedBytes runs.
	minRepeatedBytes = 3
	maxRepeatedBytes = 128

	// Longest run shuffleBytes permutes.
	maxShuffleAmount = 8

	// Entries without a remembered offset carry this hint.
	noPositionHint = -1
)

// *****************************************************************************
// ******************************* Dictionary **********************************

// Word is a byte string used as a dictionary payload or corpus sample. It is
// not modified once handed to the engine.
type Word []byte

func (w Word) String() string { return fmt.Sprintf("%q", []byte(w)) }

// DictionaryEntry is a candidate injectable word: the word itself, an
// optional byte offset at which it was previously found effective, and two
// monotonic counters maintained by the engine.
type DictionaryEntry struct {
	word         Word
	posHint      int // noPositionHint when absent
	useCount     int
	successCount int
}

// NewDictionaryEntry makes an entry without a position hint.
func NewDictionaryEntry(w Word) *DictionaryEntry {
	return &DictionaryEntry{word: w, posHint: noPositionHint}
}

// NewDictionaryEntryWithHint makes an entry remembering the offset at which
// the word was harvested.
func NewDictionaryEntryWithHint(w Word, hint int) *DictionaryEntry {
	return &DictionaryEntry{word: w, posHint: hint}
}

func (de *DictionaryEntry) Word() Word        { return de.word }
func (de *DictionaryEntry) UseCount() int     { return de.useCount }
func (de *DictionaryEntry) SuccessCount() int { return de.successCount }

func (de *DictionaryEntry) hasPositionHint() bool { return de.posHint != noPositionHint }

// dictionary is an ordered collection of entries. The automatic ones are
// capped; pushing past the cap is a silent no-op, like the original bound.
type dictionary struct {
	entries []*DictionaryEntry
	maxLen  int // 0 means unbounded
}

func (d *dictionary) empty() bool { return len(d.entries) == 0 }
func (d *dictionary) size() int   { return len(d.entries) }

func (d *dictionary) push(de *DictionaryEntry) {
	if d.maxLen > 0 && len(d.entries) >= d.maxLen {
		return
	}
	d.entries = append(d.entries, de)
}

// Linear search is fine here: this runs on the seldom slow paths
// (success recording, reporting), never per mutation.
func (d *dictionary) containsWord(w Word) bool {
	for _, de := range d.entries {
		if string(de.word) == string(w) {
			return true
		}
	}
	return false
}

func (d *dictionary) clear() { d.entries = d.entries[:0] }

// *****************************************************************************
// ********************************** Corpus ***********************************

// Corpus is the external pool of previously accepted inputs. The engine only
// ever reads it: crossover draws a second parent from it.
type Corpus interface {
	Size() int
	Input(i int) []byte
}

// *****************************************************************************
// ********************************* Options ***********************************

// CustomMutator is a host-supplied mutation operation. It receives the
// buffer, the number of valid bytes, the capacity it must respect and a
// fresh random seed, and returns the new size, or 0 when not applicable.
// When set, it replaces the whole built-in mutator set.
type CustomMutator func(data []byte, size, maxSize int, seed uint64) int

// CustomCrossOver is a host-supplied crossover operation. It combines the
// two inputs into out and returns the produced size, or 0 when not
// applicable. When set, it is appended to whichever base set is active.
type CustomCrossOver func(data1 []byte, size1 int,
	data2 []byte, size2 int, out []byte, seed uint64) int

// Options configure a dispatcher once, at construction. They are consumed
// read-only afterward.
type Options struct {
	// Seed of the random source. Runs with the same seed, corpus and call
	// sequence replay identically. 0 means seed from the clock.
	Seed uint64

	// OnlyASCII folds every successful mutation result into the printable
	// range before it is returned.
	OnlyASCII bool

	// MaxRetries overrides the dispatch retry budget. 0 keeps the default.
	MaxRetries int

	// DictPath points at the manual dictionary seed data: either a
	// directory of raw word files or an AFL-style token file.
	DictPath string

	CustomMutator   CustomMutator
	CustomCrossOver CustomCrossOver
}

// *****************************************************************************
// ***************************** Contract Breaches *****************************

// ContractError reports a broken caller contract: bad Mutate preconditions,
// or an external callback returning a size beyond the capacity it was given.
// These are programming errors, not runtime conditions, so they panic.
type ContractError string

func (e ContractError) Error() string { return string(e) }

func contractViolation(format string, a ...interface{}) {
	panic(ContractError(fmt.Sprintf(format, a...)))
}
