package mutagen

// *****************************************************************************
// ************************ Dictionary-Driven Mutators *************************
// Three dictionaries with three lifecycles. Manual: seeded once at startup,
// never touched afterward. Temporary-automatic: harvested candidates for the
// current base input, cleared each chain. Persistent-automatic: words that
// were part of a coverage-increasing chain, accumulated across the run.

func (md *MutationDispatcher) addFromManualDict(data []byte, size, maxSize int) int {
	return md.addWordFromDictionary(&md.manualDict, data, size, maxSize)
}

func (md *MutationDispatcher) addFromTempAutoDict(data []byte, size, maxSize int) int {
	return md.addWordFromDictionary(&md.tempAutoDict, data, size, maxSize)
}

func (md *MutationDispatcher) addFromPersAutoDict(data []byte, size, maxSize int) int {
	return md.addWordFromDictionary(&md.persAutoDict, data, size, maxSize)
}

// addWordFromDictionary draws one entry uniformly and either splices its
// word in or overwrites existing bytes with it, at the remembered offset
// when one exists, fits, and a coin flip keeps it.
func (md *MutationDispatcher) addWordFromDictionary(d *dictionary,
	data []byte, size, maxSize int) int {

	if d.empty() {
		return 0
	}
	de := d.entries[md.r.Intn(d.size())]
	w := de.word
	useHint := de.hasPositionHint() &&
		de.posHint+len(w) < size && md.r.Bool()

	if md.r.Bool() { // Insert w.
		if size+len(w) > maxSize {
			return 0
		}
		idx := md.r.Intn(size + 1)
		if useHint {
			idx = de.posHint
		}
		copy(data[idx+len(w):size+len(w)], data[idx:size])
		copy(data[idx:], w)
		size += len(w)
	} else { // Overwrite some bytes with w.
		if len(w) > size {
			return 0
		}
		idx := md.r.Intn(size - len(w))
		if useHint {
			idx = de.posHint
		}
		copy(data[idx:], w)
	}

	de.useCount++
	md.curDictEntrySeq = append(md.curDictEntrySeq, de)
	return size
}

// *****************************************************************************
// **************************** Dictionary Feeding *****************************

// AddWordToManualDictionary seeds the manual dictionary. Meant to be called
// only during startup; the manual dictionary is immutable once fuzzing runs.
func (md *MutationDispatcher) AddWordToManualDictionary(w Word) {
	md.manualDict.push(NewDictionaryEntry(w))
}

// AddWordToAutoDictionary records a candidate word harvested during the last
// execution, with the offset it was observed at. Silently dropped once the
// temporary dictionary is full.
func (md *MutationDispatcher) AddWordToAutoDictionary(w Word, posHint int) {
	md.tempAutoDict.push(NewDictionaryEntryWithHint(w, posHint))
}

// ClearAutoDictionary empties the temporary dictionary; called when the
// external loop moves on to a new base input.
func (md *MutationDispatcher) ClearAutoDictionary() {
	md.tempAutoDict.clear()
}

// ManualDictSize reports how many words the manual dictionary holds.
func (md *MutationDispatcher) ManualDictSize() int { return md.manualDict.size() }

// PersistentDictSize reports how many proven words accumulated so far.
func (md *MutationDispatcher) PersistentDictSize() int { return md.persAutoDict.size() }
