package core

// severityOrder encodes the Verdict Aggregator's ordering (spec §4.4):
// Unprocessed < AC < WA < TLE < MLE < RE < CE < OLE < IE.
// CE sits above RE and below OLE by design (source ambiguity, resolved
// deliberately in SPEC_FULL.md §13.2): any non-AC case in a phase
// determines the phase verdict, with IE dominating everything.
var severityOrder = map[Verdict]int{
	VerdictUnprocessed: 0,
	VerdictAC:          1,
	VerdictWA:          2,
	VerdictTLE:         3,
	VerdictMLE:         4,
	VerdictRE:          5,
	VerdictCE:          6,
	VerdictOLE:         7,
	VerdictIE:          8,
}

func severity(v Verdict) int {
	return severityOrder[v]
}

// Aggregator merges per-case verdicts into a single phase verdict.
// It starts at AC so a phase with zero cases reports AC.
type Aggregator struct {
	current Verdict
}

// NewAggregator returns an aggregator seeded at AC.
func NewAggregator() *Aggregator {
	return &Aggregator{current: VerdictAC}
}

// Update raises the stored verdict iff v is strictly more severe.
func (a *Aggregator) Update(v Verdict) {
	if severity(v) > severity(a.current) {
		a.current = v
	}
}

// Result returns the aggregated verdict so far.
func (a *Aggregator) Result() Verdict {
	return a.current
}
