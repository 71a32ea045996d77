package mutagen

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// *****************************************************************************
// *************************** Sequence Bookkeeping ****************************
// A mutation chain is every Mutate call between two StartMutationSequence
// calls. The external loop tells us when a chain paid off; that is the only
// feedback this engine gets, and it drives both the persistent dictionary
// and the per-mutator reward records.

// StartMutationSequence clears the bookkeeping of the previous chain. Called
// once per base input, before any mutation.
func (md *MutationDispatcher) StartMutationSequence() {
	md.curMutatorSeq = md.curMutatorSeq[:0]
	md.curDictEntrySeq = md.curDictEntrySeq[:0]
}

// RecordSuccessfulMutationSequence is called when the chain increased
// coverage. Every dictionary entry the chain used gets its success counter
// bumped, and its word is promoted to the persistent dictionary unless
// already there.
func (md *MutationDispatcher) RecordSuccessfulMutationSequence() {
	for _, de := range md.curDictEntrySeq {
		de.successCount++
		if !md.persAutoDict.containsWord(de.word) {
			md.persAutoDict.push(&DictionaryEntry{
				word:         de.word,
				posHint:      noPositionHint,
				successCount: 1,
			})
		}
	}
	for _, m := range md.curMutatorSeq {
		md.mutRecs[m.name].succeeded++
	}
}

// *****************************************************************************
// **************************** Mutation Adaptation ****************************
// Reward records over the registry. Dispatch stays uniform; these exist so a
// long campaign can be inspected for which operators actually earn their
// keep on this target.

type mutatorRecord struct{ applied, succeeded float64 }

func (rec *mutatorRecord) successRate() float64 {
	if rec.applied == 0 {
		return 0
	}
	return rec.succeeded / rec.applied
}

// MutatorStat is one registry entry's reward record.
type MutatorStat struct {
	Name        string
	Applied     uint
	Succeeded   uint
	SuccessRate float64
}

// MutatorStats returns the per-mutator reward records of the active
// registry, ordered by descending success rate.
func (md *MutationDispatcher) MutatorStats() (stats []MutatorStat) {
	for _, m := range md.mutators {
		rec := md.mutRecs[m.name]
		stats = append(stats, MutatorStat{
			Name:        m.name,
			Applied:     uint(rec.applied),
			Succeeded:   uint(rec.succeeded),
			SuccessRate: rec.successRate(),
		})
	}
	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].SuccessRate > stats[j].SuccessRate
	})
	return stats
}

// statSummary condenses the registry's success rates: mean, standard
// deviation, and each mutator's share of all successes.
func (md *MutationDispatcher) statSummary() (mean, std float64, shares []float64) {
	rates := make([]float64, 0, len(md.mutators))
	succs := make([]float64, 0, len(md.mutators))
	for _, m := range md.mutators {
		rec := md.mutRecs[m.name]
		rates = append(rates, rec.successRate())
		succs = append(succs, rec.succeeded)
	}

	mean = stat.Mean(rates, nil)
	std = stat.StdDev(rates, nil)

	tot := floats.Sum(succs)
	shares = succs
	if tot > 0 {
		floats.Scale(1/tot, shares)
	}
	return mean, std, shares
}

// weightByRate builds a cumulative weight table over the registry's success
// rates, the shape a weighted draw needs. Exposed for hosts that schedule
// mutator-heavy strategies themselves; the engine's own dispatch is uniform.
func (md *MutationDispatcher) weightByRate() []float64 {
	weights := make([]float64, len(md.mutators))
	for i, m := range md.mutators {
		// Unproven operators keep a floor weight so they still get drawn.
		weights[i] = md.mutRecs[m.name].successRate() + 1.0/float64(len(md.mutators))
	}
	cum := make([]float64, len(weights))
	floats.CumSum(cum, weights)
	return cum
}

// PickWeighted draws a mutator name proportionally to the reward records.
func (md *MutationDispatcher) PickWeighted() string {
	cum := md.weightByRate()
	x := float64(md.r.Uint32()) / (1 << 32) * cum[len(cum)-1]
	idx := sort.SearchFloat64s(cum, x)
	if idx >= len(md.mutators) {
		idx = len(md.mutators) - 1
	}
	return md.mutators[idx].name
}
