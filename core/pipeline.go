package core

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"
)

const (
	// platformDefaultMemoryMB is the fixed memory ceiling used for pre/post
	// build cases, which carry no problem-specific limit of their own
	// (resolves the open question in spec §9(i): per-problem limit for the
	// judge phase, a fixed platform default otherwise).
	platformDefaultMemoryMB = 512
	mleSlackBytes           = 1 << 20 // 1 MiB slack before a case is classified MLE
	defaultPidsLimit        = 100
)

// Pipeline drives one claimed Submission through load-context -> materialize
// volume -> pre-build -> compile -> post-build -> judge -> cleanup (spec
// §4.5). It is stateless and safe to reuse across submissions; all
// per-submission state lives in the locals of one Run call.
type Pipeline struct {
	store        Store
	driver       *Driver
	cfg          Config
	resourceRoot string
}

func NewPipeline(store Store, driver *Driver, cfg Config) *Pipeline {
	return &Pipeline{store: store, driver: driver, cfg: cfg, resourceRoot: cfg.ResourcePath}
}

// Run executes the full pipeline for one claimed submission. The returned
// error is non-nil only when the problem lookup or the final
// UpdateSubmission fails; after a failed problem lookup the submission is
// left in the store as claimed (Running). Every other failure is absorbed
// into the submission's final persisted state.
func (p *Pipeline) Run(ctx context.Context, sub Submission) error {
	start := time.Now()
	var finalVerdict Verdict = VerdictIE
	defer func() {
		PipelineDurationSeconds.WithLabelValues(string(finalVerdict)).Observe(time.Since(start).Seconds())
	}()

	problem, err := p.store.FetchProblem(ctx, sub.ProblemKey)
	if err != nil {
		return fmt.Errorf("fetch problem: %w", err)
	}
	if problem == nil {
		finalVerdict = VerdictUnprocessed
		sub.Progress = ProgressDone
		sub.Message = "problem not found"
		return p.store.UpdateSubmission(ctx, sub)
	}

	testCases, err := p.store.FetchTestCases(ctx, sub.ProblemKey)
	if err != nil {
		return p.finishWithMessage(ctx, sub, fmt.Sprintf("failed to load test cases: %v", err))
	}
	byPhase := partitionByPhase(testCases)

	workVolume, err := p.materializeVolume(ctx, sub, *problem)
	if err != nil {
		return p.finishWithMessage(ctx, sub, fmt.Sprintf("failed to materialize working volume: %v", err))
	}
	defer func() {
		if werr := workVolume.Remove(context.Background()); werr != nil {
			log.Printf("submission %d: cleanup working volume: %v", sub.ID, werr)
		}
	}()

	preVerdict := p.runPhase(ctx, sub.ID, *problem, workVolume, byPhase[PhasePreBuild], p.cfg.BinaryRunnerImage, p.cfg.DefaultTimeLimitMs, platformDefaultMemoryMB)
	sub.PrebuiltResult = preVerdict
	if preVerdict != VerdictAC {
		finalVerdict = preVerdict
		sub.Progress = ProgressDone
		sub.Message = fmt.Sprintf("pre-build phase failed: %s", preVerdict)
		return p.store.UpdateSubmission(ctx, sub)
	}

	compileImage := compilerImageFor(p.cfg, problem.Language)
	if err := p.compile(ctx, workVolume, *problem, compileImage); err != nil {
		finalVerdict = VerdictCE
		sub.PostbuiltResult = VerdictCE
		sub.Progress = ProgressDone
		sub.Message = fmt.Sprintf("compile failed: %v", err)
		return p.store.UpdateSubmission(ctx, sub)
	}

	postVerdict := p.runPhase(ctx, sub.ID, *problem, workVolume, byPhase[PhasePostBuild], compileImage, p.cfg.CompileTimeLimitMs, platformDefaultMemoryMB)
	sub.PostbuiltResult = postVerdict
	if postVerdict != VerdictAC {
		finalVerdict = postVerdict
		sub.Progress = ProgressDone
		sub.Message = fmt.Sprintf("post-build phase failed: %s", postVerdict)
		return p.store.UpdateSubmission(ctx, sub)
	}

	judgeVerdict := p.runPhase(ctx, sub.ID, *problem, workVolume, byPhase[PhaseJudge], p.cfg.BinaryRunnerImage, problem.TimeLimitMS, problem.MemoryLimitMB)
	sub.JudgeVerdict = judgeVerdict
	finalVerdict = judgeVerdict
	sub.Progress = ProgressDone
	sub.Message = fmt.Sprintf("judge phase: %s", judgeVerdict)
	return p.store.UpdateSubmission(ctx, sub)
}

func (p *Pipeline) finishWithMessage(ctx context.Context, sub Submission, msg string) error {
	sub.Progress = ProgressDone
	sub.Message = msg
	return p.store.UpdateSubmission(ctx, sub)
}

func partitionByPhase(cases []TestCase) map[Phase][]TestCase {
	out := map[Phase][]TestCase{}
	for _, tc := range cases {
		out[tc.Phase] = append(out[tc.Phase], tc)
	}
	return out
}

// materializeVolume creates the per-submission working volume and copies in
// uploaded + arranged files (spec §4.5 step 2).
func (p *Pipeline) materializeVolume(ctx context.Context, sub Submission, problem Problem) (*Volume, error) {
	vol, err := p.driver.CreateVolume(ctx)
	if err != nil {
		return nil, err
	}

	uploaded, err := p.store.FetchUploadedPaths(ctx, sub.ID)
	if err != nil {
		_ = vol.Remove(context.Background())
		return nil, err
	}
	arranged, err := p.store.FetchArrangedPaths(ctx, sub.ProblemKey)
	if err != nil {
		_ = vol.Remove(context.Background())
		return nil, err
	}
	for i, ap := range arranged {
		arranged[i] = filepath.Join(p.resourceRoot, ap)
	}

	if err := vol.CopyFiles(ctx, uploaded, "."); err != nil {
		_ = vol.Remove(context.Background())
		return nil, err
	}
	if err := vol.CopyFiles(ctx, arranged, "."); err != nil {
		_ = vol.Remove(context.Background())
		return nil, err
	}
	return vol, nil
}

// compile reads the build script, runs it in the working volume, and
// removes the required-file sources from the volume afterward (spec §4.5
// step 4, grounded in the original judge's JudgeInfo.compile()).
func (p *Pipeline) compile(ctx context.Context, vol *Volume, problem Problem, image string) error {
	buildPath := filepath.Join(p.resourceRoot, problem.BuildScriptPath)
	argv, err := LoadBuildScript(buildPath)
	if err != nil {
		return err
	}

	task := &Task{
		driver:  p.driver,
		Image:   image,
		Args:    argv,
		Workdir: "/workdir",
		Mounts:  []volumeMount{{path: "/workdir", volume: vol}},
		Limits:  Limits{CPUs: p.cfg.CPULimit, MemoryMB: platformDefaultMemoryMB, PidsLimit: defaultPidsLimit, EnableNetwork: p.cfg.EnableNetwork, DisableLogging: p.cfg.DisableLogging},
		Timeout: time.Duration(p.cfg.CompileTimeLimitMs) * time.Millisecond,
		Grace:   p.cfg.TimeoutGrace,
	}
	result, err := task.Run(ctx)
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("build script exited %d: %s", result.ExitCode, result.Stderr)
	}

	required, err := p.store.FetchRequiredFiles(ctx, problem.Key)
	if err != nil {
		return fmt.Errorf("fetch required files: %w", err)
	}
	if len(required) > 0 {
		if err := vol.RemoveFiles(ctx, required); err != nil {
			return fmt.Errorf("remove compiled sources: %w", err)
		}
	}
	return nil
}

// runPhase runs every case in cases sequentially (spec §5 ordering
// guarantee) and aggregates their verdicts. Zero cases aggregates to AC
// (spec §8 boundary case).
func (p *Pipeline) runPhase(ctx context.Context, submissionID int64, problem Problem, vol *Volume, cases []TestCase, image string, timeLimitMs, memLimitMB int) Verdict {
	agg := NewAggregator()
	for _, tc := range cases {
		verdict := p.runCase(ctx, submissionID, problem, vol, tc, image, timeLimitMs, memLimitMB)
		agg.Update(verdict)
	}
	return agg.Result()
}

// runCase implements spec §4.5's runCase algorithm: clone the working
// volume, resolve argv[0] (case script or problem executable), append
// argument-file tokens, run the Task, classify, persist a JudgeResult.
func (p *Pipeline) runCase(ctx context.Context, submissionID int64, problem Problem, vol *Volume, tc TestCase, image string, timeLimitMs, memLimitMB int) Verdict {
	clone, err := vol.Clone(ctx)
	if err != nil {
		log.Printf("submission %d case %d: clone failed: %v", submissionID, tc.ID, err)
		return VerdictIE
	}
	defer func() {
		if rerr := clone.Remove(context.Background()); rerr != nil {
			log.Printf("submission %d case %d: clone cleanup failed: %v", submissionID, tc.ID, rerr)
		}
	}()

	argv0 := problem.Executable
	if tc.ScriptPath != nil && *tc.ScriptPath != "" {
		scriptHostPath := filepath.Join(p.resourceRoot, *tc.ScriptPath)
		scriptName := filepath.Base(*tc.ScriptPath)
		if err := clone.CopyFile(ctx, scriptHostPath, scriptName); err != nil {
			log.Printf("submission %d case %d: copy script failed: %v", submissionID, tc.ID, err)
			return VerdictIE
		}
		argv0 = "./" + scriptName
	} else {
		argv0 = "./" + argv0
	}

	argTokens, err := LoadArgv(filepath.Join(p.resourceRoot, tc.ArgumentPath))
	if err != nil {
		log.Printf("submission %d case %d: missing argument file: %v", submissionID, tc.ID, err)
		return VerdictIE
	}

	stdin, err := readOptionalStdin(p.resourceRoot, tc.StdinPath)
	if err != nil {
		log.Printf("submission %d case %d: missing stdin fixture: %v", submissionID, tc.ID, err)
		return VerdictIE
	}
	expectedStdout, err := readRequiredText(filepath.Join(p.resourceRoot, tc.ExpectedStdoutPath))
	if err != nil {
		log.Printf("submission %d case %d: missing expected stdout: %v", submissionID, tc.ID, err)
		return VerdictIE
	}
	expectedStderr, err := readRequiredText(filepath.Join(p.resourceRoot, tc.ExpectedStderrPath))
	if err != nil {
		log.Printf("submission %d case %d: missing expected stderr: %v", submissionID, tc.ID, err)
		return VerdictIE
	}

	effectiveMemMB := memLimitMB
	if effectiveMemMB <= 0 {
		effectiveMemMB = platformDefaultMemoryMB
	}

	task := &Task{
		driver:  p.driver,
		Image:   image,
		Args:    append([]string{argv0}, argTokens...),
		Stdin:   stdin,
		Workdir: "/workdir",
		Mounts:  []volumeMount{{path: "/workdir", volume: clone}},
		Limits:  Limits{CPUs: p.cfg.CPULimit, MemoryMB: effectiveMemMB, PidsLimit: defaultPidsLimit, EnableNetwork: p.cfg.EnableNetwork, DisableLogging: p.cfg.DisableLogging},
		Timeout: time.Duration(timeLimitMs) * time.Millisecond,
		Grace:   p.cfg.TimeoutGrace,
	}
	result, err := task.Run(ctx)
	if err != nil {
		log.Printf("submission %d case %d: task run failed: %v", submissionID, tc.ID, err)
		p.recordResult(ctx, submissionID, tc.ID, tc.Phase, TaskResult{ExitCode: -1}, VerdictIE)
		return VerdictIE
	}

	verdict := classify(result, tc, effectiveMemMB, expectedStdout, expectedStderr)
	p.recordResult(ctx, submissionID, tc.ID, tc.Phase, result, verdict)
	return verdict
}

func readOptionalStdin(root string, stdinPath *string) (string, error) {
	if stdinPath == nil || *stdinPath == "" {
		return "", nil
	}
	full := filepath.Join(root, *stdinPath)
	return readRequiredText(full)
}

// classify implements spec §4.5.1's per-case classification order:
// TLE -> MLE -> RE -> AC/WA.
func classify(result TaskResult, tc TestCase, memLimitMB int, expectedStdout, expectedStderr string) Verdict {
	if result.TLE {
		return VerdictTLE
	}
	limitBytes := int64(memLimitMB) * 1024 * 1024
	if limitBytes < platformDefaultMemoryMB*1024*1024 {
		limitBytes = platformDefaultMemoryMB * 1024 * 1024
	}
	if result.MemoryBytes+mleSlackBytes > limitBytes {
		return VerdictMLE
	}
	if result.ExitCode != tc.ExpectedExitCode {
		return VerdictRE
	}
	if Match(expectedStdout, result.Stdout) && Match(expectedStderr, result.Stderr) {
		return VerdictAC
	}
	return VerdictWA
}

func (p *Pipeline) recordResult(ctx context.Context, submissionID, testCaseID int64, phase Phase, result TaskResult, verdict Verdict) {
	CaseVerdictsTotal.WithLabelValues(string(phase), string(verdict)).Inc()
	row := JudgeResultRow{
		SubmissionID: submissionID,
		TestCaseID:   testCaseID,
		TimeMS:       result.TimeMS,
		MemoryKB:     result.MemoryBytes / 1024,
		ExitCode:     result.ExitCode,
		Stdout:       result.Stdout,
		Stderr:       result.Stderr,
		Verdict:      verdict,
	}
	if err := p.store.InsertJudgeResult(ctx, row); err != nil {
		log.Printf("submission %d case %d: insert judge result failed: %v", submissionID, testCaseID, err)
	}
}
