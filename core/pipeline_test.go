package core

import "testing"

func TestClassifyOrderTLEBeatsEverything(t *testing.T) {
	result := TaskResult{TLE: true, ExitCode: 0, MemoryBytes: 0, Stdout: "x", Stderr: ""}
	tc := TestCase{ExpectedExitCode: 0}
	got := classify(result, tc, 512, "x", "")
	if got != VerdictTLE {
		t.Fatalf("classify() = %s, want TLE", got)
	}
}

func TestClassifyMLEBeatsREAndWA(t *testing.T) {
	result := TaskResult{TLE: false, ExitCode: 1, MemoryBytes: 600 * 1024 * 1024}
	tc := TestCase{ExpectedExitCode: 0}
	got := classify(result, tc, 500, "expected", "observed")
	if got != VerdictMLE {
		t.Fatalf("classify() = %s, want MLE", got)
	}
}

func TestClassifyMLERespectsPlatformFloor(t *testing.T) {
	// Even a tiny problem-specified memory limit is floored at the platform
	// default, so usage under that floor is never misclassified as MLE.
	result := TaskResult{MemoryBytes: 10 * 1024 * 1024, Stdout: "same", Stderr: "same"}
	tc := TestCase{ExpectedExitCode: 0}
	got := classify(result, tc, 1, "same", "same")
	if got != VerdictAC {
		t.Fatalf("classify() = %s, want AC", got)
	}
}

func TestClassifyRENonZeroExitMismatch(t *testing.T) {
	result := TaskResult{ExitCode: 2}
	tc := TestCase{ExpectedExitCode: 0}
	got := classify(result, tc, 512, "out", "")
	if got != VerdictRE {
		t.Fatalf("classify() = %s, want RE", got)
	}
}

func TestClassifyACRequiresExitCodeAndOutputMatch(t *testing.T) {
	result := TaskResult{ExitCode: 0, Stdout: "Hello, World!\n", Stderr: ""}
	tc := TestCase{ExpectedExitCode: 0}
	got := classify(result, tc, 512, "Hello, World!\n", "")
	if got != VerdictAC {
		t.Fatalf("classify() = %s, want AC", got)
	}
}

func TestClassifyWAOnOutputMismatch(t *testing.T) {
	result := TaskResult{ExitCode: 0, Stdout: "wrong\n", Stderr: ""}
	tc := TestCase{ExpectedExitCode: 0}
	got := classify(result, tc, 512, "right\n", "")
	if got != VerdictWA {
		t.Fatalf("classify() = %s, want WA", got)
	}
}

func TestClassifyACToleratesWhitespaceDifferences(t *testing.T) {
	result := TaskResult{ExitCode: 0, Stdout: "1  2   3\n", Stderr: ""}
	tc := TestCase{ExpectedExitCode: 0}
	got := classify(result, tc, 512, "1 2 3", "")
	if got != VerdictAC {
		t.Fatalf("classify() = %s, want AC", got)
	}
}

func TestPartitionByPhase(t *testing.T) {
	cases := []TestCase{
		{ID: 1, Phase: PhasePreBuild},
		{ID: 2, Phase: PhaseJudge},
		{ID: 3, Phase: PhasePreBuild},
		{ID: 4, Phase: PhasePostBuild},
	}
	got := partitionByPhase(cases)
	if len(got[PhasePreBuild]) != 2 {
		t.Fatalf("PhasePreBuild has %d cases, want 2", len(got[PhasePreBuild]))
	}
	if len(got[PhaseJudge]) != 1 {
		t.Fatalf("PhaseJudge has %d cases, want 1", len(got[PhaseJudge]))
	}
	if len(got[PhasePostBuild]) != 1 {
		t.Fatalf("PhasePostBuild has %d cases, want 1", len(got[PhasePostBuild]))
	}
}

func TestRunPhaseAggregationPicksMostSevereCase(t *testing.T) {
	agg := NewAggregator()
	agg.Update(VerdictWA)
	agg.Update(VerdictAC)
	agg.Update(VerdictTLE)
	agg.Update(VerdictWA)
	if got := agg.Result(); got != VerdictTLE {
		t.Fatalf("Aggregator.Result() = %s, want TLE", got)
	}
}
