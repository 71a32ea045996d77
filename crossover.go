package mutagen

// *****************************************************************************
// ********************* Copy/Insert Primitives and Crossover ******************
// AFL calls the corpus variant splicing. All shifting goes through copy,
// which has memmove semantics, so overlapping ranges within one buffer are
// safe; the only read-after-write hazard left is a self-referential insert,
// staged through the scratch buffer.

// copyPartOf overwrites a random destination range of to[:toSize] with a
// matching-or-shorter source range of from[:fromSize]. Size is unchanged.
func (md *MutationDispatcher) copyPartOf(from []byte, fromSize int,
	to []byte, toSize int) int {

	toBeg := md.r.Intn(toSize)
	copySize := md.r.Intn(toSize-toBeg) + 1
	if copySize > fromSize {
		copySize = fromSize
	}
	fromBeg := md.r.Intn(fromSize - copySize + 1)
	copy(to[toBeg:toBeg+copySize], from[fromBeg:fromBeg+copySize])
	return toSize
}

// insertPartOf splices a source range sized to the available headroom into a
// random insertion point of to, shifting the tail right. Handles from and to
// being the same buffer.
func (md *MutationDispatcher) insertPartOf(from []byte, fromSize int,
	to []byte, toSize, maxToSize int) int {

	if toSize >= maxToSize {
		return 0
	}
	available := maxToSize - toSize
	maxCopy := fromSize
	if maxCopy > available {
		maxCopy = available
	}
	copySize := md.r.Intn(maxCopy) + 1
	fromBeg := md.r.Intn(fromSize - copySize + 1)
	insPos := md.r.Intn(toSize + 1)
	tail := toSize - insPos

	if sameBuffer(from, to) {
		// The tail shift below may run over the source range; stage the
		// copied slice first.
		md.growScratch(maxToSize)
		copy(md.scratch, from[fromBeg:fromBeg+copySize])
		copy(to[insPos+copySize:insPos+copySize+tail], to[insPos:insPos+tail])
		copy(to[insPos:], md.scratch[:copySize])
	} else {
		copy(to[insPos+copySize:insPos+copySize+tail], to[insPos:insPos+tail])
		copy(to[insPos:], from[fromBeg:fromBeg+copySize])
	}
	return toSize + copySize
}

func sameBuffer(a, b []byte) bool {
	return len(a) > 0 && len(b) > 0 && &a[0] == &b[0]
}

// copyPart applies one of the two primitives on the buffer against itself.
func (md *MutationDispatcher) copyPart(data []byte, size, maxSize int) int {
	if md.r.Bool() {
		return md.copyPartOf(data, size, data, size)
	}
	return md.insertPartOf(data, size, data, size, maxSize)
}

// *****************************************************************************
// ******************************** Crossover **********************************

// crossOverBlend interleaves random-length chunks of the two parents into
// out, up to a random output budget, and returns the produced size.
func (md *MutationDispatcher) crossOverBlend(data1 []byte, size1 int,
	data2 []byte, size2 int, out []byte) int {

	maxOut := md.r.Intn(len(out)) + 1
	var outPos, pos1, pos2 int
	usingFirst := true
	for outPos < maxOut && (pos1 < size1 || pos2 < size2) {
		data, size := data1, size1
		pos := &pos1
		if !usingFirst {
			data, size = data2, size2
			pos = &pos2
		}
		if *pos < size {
			outLeft := maxOut - outPos
			insLeft := size - *pos
			if insLeft > outLeft {
				insLeft = outLeft
			}
			extra := md.r.Intn(insLeft) + 1
			copy(out[outPos:outPos+extra], data[*pos:*pos+extra])
			outPos += extra
			*pos += extra
		}
		usingFirst = !usingFirst
	}
	return outPos
}

// crossOver combines the buffer with another non-empty corpus entry: a blend
// of the two, an insertion of a slice of the other, or an overwrite with a
// slice of the other; the result is staged in scratch and copied back. A
// non-empty result within capacity is an engine invariant here.
func (md *MutationDispatcher) crossOver(data []byte, size, maxSize int) int {
	if md.corpus == nil || md.corpus.Size() < 2 || size == 0 {
		return 0
	}
	other := md.corpus.Input(md.r.Intn(md.corpus.Size()))
	if len(other) == 0 {
		return 0
	}

	md.growScratch(maxSize)
	newSize := 0
	switch md.r.Intn(3) {
	case 0:
		newSize = md.crossOverBlend(data, size, other, len(other),
			md.scratch[:maxSize])
	case 1:
		copy(md.scratch, data[:size])
		newSize = md.insertPartOf(other, len(other), md.scratch, size, maxSize)
		if newSize != 0 {
			break
		}
		fallthrough
	case 2:
		copy(md.scratch, data[:size])
		newSize = md.copyPartOf(other, len(other), md.scratch, size)
	}

	if newSize == 0 || newSize > maxSize {
		contractViolation("crossover produced size %d with capacity %d",
			newSize, maxSize)
	}
	copy(data[:newSize], md.scratch[:newSize])
	return newSize
}
