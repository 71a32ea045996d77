package mutagen

import (
	"fmt"
	"io"
	"log"
	"time"

	"github.com/buger/goterm"
	"github.com/olekukonko/tablewriter"
)

// *****************************************************************************
// ******************************** Reporter ***********************************
// Diagnostics only: nothing here feeds back into mutation decisions, but the
// counters printed are the live ones, so the output is faithful to the
// engine state at the time of the call.

var debug = false

// Debug print will only print if in debug mode.
func dbgPr(format string, a ...interface{}) {
	if debug {
		fmt.Printf(format, a...)
	}
}

// AddDiagnosticWriter attaches another sink for diagnostic output; every
// attached writer receives each report. os.Stdout is attached at
// construction.
func (md *MutationDispatcher) AddDiagnosticWriter(w io.Writer) {
	md.diag.Add(w)
}

// RemoveDiagnosticWriter detaches a sink.
func (md *MutationDispatcher) RemoveDiagnosticWriter(w io.Writer) {
	md.diag.Remove(w)
}

// *************************************
// *** A. Reporting the Current Chain ***

// MutationSequence renders the in-flight chain: the mutators applied since
// the last StartMutationSequence, then the dictionary words they injected.
func (md *MutationDispatcher) MutationSequence() string {
	str := fmt.Sprintf("MS: %d ", len(md.curMutatorSeq))
	for _, m := range md.curMutatorSeq {
		str += fmt.Sprintf("%s-", m.name)
	}
	if len(md.curDictEntrySeq) > 0 {
		str += " DE: "
		for _, de := range md.curDictEntrySeq {
			str += fmt.Sprintf("%s-", de.word)
		}
	}
	return str
}

// PrintMutationSequence writes the chain to every diagnostic sink.
func (md *MutationDispatcher) PrintMutationSequence() {
	diagPrintf(md.diag, "%s\n", md.MutationSequence())
}

// ******************************************
// *** B. Reporting the Dictionary Status ***

// RecommendedDictionary lists the persistent entries that are not already in
// the user's manual dictionary: the words the campaign itself proved out.
func (md *MutationDispatcher) RecommendedDictionary() (des []*DictionaryEntry) {
	for _, de := range md.persAutoDict.entries {
		if !md.manualDict.containsWord(de.word) {
			des = append(des, de)
		}
	}
	return des
}

// PrintRecommendedDictionary renders the recommended dictionary as a table.
func (md *MutationDispatcher) PrintRecommendedDictionary() {
	des := md.RecommendedDictionary()
	if len(des) == 0 {
		return
	}

	diagPrintf(md.diag, "###### Recommended dictionary. ######\n")
	table := tablewriter.NewWriter(md.diag)
	table.SetHeader([]string{"word", "uses", "successes"})
	for _, de := range des {
		table.Append([]string{
			de.word.String(),
			fmt.Sprintf("%d", de.useCount),
			fmt.Sprintf("%d", de.successCount),
		})
	}
	table.Render()
	diagPrintf(md.diag, "###### End of recommended dictionary. ######\n")
}

// ***************************************
// *** C. Reporting the Reward Records ***

// PrintMutatorStats renders the per-mutator reward records, with a summary
// row of the registry-wide mean and spread of success rates.
func (md *MutationDispatcher) PrintMutatorStats() {
	stats := md.MutatorStats()
	mean, std, _ := md.statSummary()

	table := tablewriter.NewWriter(md.diag)
	table.SetHeader([]string{"mutator", "applied", "succeeded", "rate"})
	for _, st := range stats {
		table.Append([]string{
			st.Name,
			fmt.Sprintf("%d", st.Applied),
			fmt.Sprintf("%d", st.Succeeded),
			fmt.Sprintf("%.4f", st.SuccessRate),
		})
	}
	table.Append([]string{
		"(registry)", "", "",
		fmt.Sprintf("%.4f (std=%.4f)", mean, std),
	})
	table.Render()
}

// ****************************
// *** D. Live Status Screen ***

// PrintStatus paints a live status screen for a long-running worker, the
// way a terminal dashboard is expected to: clear, totals, flush.
func (md *MutationDispatcher) PrintStatus() {
	cleanScreen()

	elapsed := time.Since(md.startT)
	gtPrintf("\nmutagen worker\n")
	gtPrintf("up: %v\n", elapsed.Round(time.Second))
	gtPrintf("mutations: %d - rejected draws: %d - throughput: %.3v/s\n",
		md.totalMuts, md.totalFails,
		float64(md.totalMuts)/elapsed.Seconds())
	gtPrintf("dicts: manual=%d temp=%d persistent=%d\n",
		md.manualDict.size(), md.tempAutoDict.size(), md.persAutoDict.size())
	gtPrintf("chain: %s\n", md.MutationSequence())

	gtPrintf("\n")
	goterm.Flush()
}

func gtPrintf(format string, a ...interface{}) {
	_, err := goterm.Printf(format, a...)
	if err != nil {
		log.Printf("Error while using goterm: %v.\n", err)
	}
}

func cleanScreen() {
	goterm.MoveCursor(1, 1)
	width := goterm.Width()
	strLine := ""

	if width > 0 {
		line := make([]byte, width)
		for i := range line {
			line[i] = 0x20
		}
		strLine = string(line)
	}

	var err error
	height := goterm.Height()
	for i := 0; i < height; i++ {
		_, err = goterm.Printf("%s\n", strLine)
	}
	if err != nil {
		log.Printf("Problem while cleaning screen: %v.\n", err)
	}

	goterm.Flush()
	goterm.MoveCursor(1, 1)
}

// ****************

func diagPrintf(w io.Writer, format string, a ...interface{}) {
	_, err := fmt.Fprintf(w, format, a...)
	if err != nil {
		log.Printf("Couldn't write diagnostics: %v.\n", err)
	}
}
