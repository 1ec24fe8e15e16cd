package core

import "time"

// Phase identifies which stage of a problem's test cases a TestCase belongs to.
type Phase string

const (
	PhasePreBuild  Phase = "PreBuild"
	PhasePostBuild Phase = "PostBuild"
	PhaseJudge     Phase = "Judge"
)

// ProgressState is the submission's lifecycle state. It only ever advances
// Pending -> Queued -> Running -> Done.
type ProgressState string

const (
	ProgressPending ProgressState = "Pending"
	ProgressQueued  ProgressState = "Queued"
	ProgressRunning ProgressState = "Running"
	ProgressDone    ProgressState = "Done"
)

// Verdict is a per-case or per-phase outcome classification.
type Verdict string

const (
	VerdictUnprocessed Verdict = "Unprocessed"
	VerdictAC          Verdict = "AC"
	VerdictWA          Verdict = "WA"
	VerdictTLE         Verdict = "TLE"
	VerdictMLE         Verdict = "MLE"
	VerdictCE          Verdict = "CE"
	VerdictRE          Verdict = "RE"
	VerdictOLE         Verdict = "OLE"
	VerdictIE          Verdict = "IE"
)

// ProblemKey identifies a Problem by lecture/assignment/evaluation triple.
type ProblemKey struct {
	LectureID     int64
	AssignmentID  int64
	ForEvaluation bool
}

// Submission is the unit of judging work.
type Submission struct {
	ID              int64
	CreatedAt       time.Time
	BatchID         *string
	StudentID       string
	ProblemKey      ProblemKey
	Progress        ProgressState
	PrebuiltResult  Verdict
	PostbuiltResult Verdict
	JudgeVerdict    Verdict
	Message         string
}

// Problem describes the compile/run contract for one (lecture, assignment, eval) key.
type Problem struct {
	Key             ProblemKey
	Title           string
	DescriptionPath string
	TimeLimitMS     int
	MemoryLimitMB   int
	BuildScriptPath string
	Executable      string
	Language        string
}

// TestCase is one fixture to run during a given Phase.
type TestCase struct {
	ID                 int64
	ProblemKey         ProblemKey
	Phase              Phase
	ScriptPath         *string
	ArgumentPath       string
	StdinPath          *string
	ExpectedStdoutPath string
	ExpectedStderrPath string
	ExpectedExitCode   int
	Score              *int
	Description        *string
}

// JudgeResultRow is one (submission, test case) execution outcome.
type JudgeResultRow struct {
	ID           int64
	CreatedAt    time.Time
	SubmissionID int64
	TestCaseID   int64
	TimeMS       int64
	MemoryKB     int64
	ExitCode     int
	Stdout       string
	Stderr       string
	Verdict      Verdict
}
