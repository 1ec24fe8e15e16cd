package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store abstracts every operation the engine needs against the external
// submission/problem/test-case/result tables (spec §4.8). It is a contract
// only: the rest of the system (Dispatcher, Pipeline) depends on this
// interface, never on pgx directly.
type Store interface {
	ClaimQueued(ctx context.Context, n int) ([]Submission, error)
	FetchProblem(ctx context.Context, key ProblemKey) (*Problem, error)
	FetchUploadedPaths(ctx context.Context, submissionID int64) ([]string, error)
	FetchArrangedPaths(ctx context.Context, key ProblemKey) ([]string, error)
	FetchRequiredFiles(ctx context.Context, key ProblemKey) ([]string, error)
	FetchTestCases(ctx context.Context, key ProblemKey) ([]TestCase, error)
	InsertJudgeResult(ctx context.Context, row JudgeResultRow) error
	UpdateSubmission(ctx context.Context, s Submission) error
	UndoRunning(ctx context.Context) error
}

// PgStore implements Store against a PostgreSQL-backed schema (spec §6
// "Store schema (essentials)").
type PgStore struct {
	db *pgxpool.Pool
}

func NewPgStore(db *pgxpool.Pool) *PgStore {
	return &PgStore{db: db}
}

// ClaimQueued atomically selects up to n Queued rows under a non-waiting
// exclusive lock, flips them to Running, and returns them in the same
// transaction (spec §4.8, invariant 2 and scenario 7). SKIP LOCKED means two
// dispatchers racing on the same rows never block each other or double-claim.
func (s *PgStore) ClaimQueued(ctx context.Context, n int) ([]Submission, error) {
	if n <= 0 {
		return nil, nil
	}
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("claim begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const sel = `
SELECT id, created_at, batch_id, student_id, lecture_id, assignment_id, for_evaluation
FROM submissions
WHERE status = 'Queued'
ORDER BY created_at
FOR UPDATE SKIP LOCKED
LIMIT $1`
	rows, err := tx.Query(ctx, sel, n)
	if err != nil {
		return nil, fmt.Errorf("claim select: %w", err)
	}
	var claimed []Submission
	for rows.Next() {
		var sub Submission
		if err := rows.Scan(&sub.ID, &sub.CreatedAt, &sub.BatchID, &sub.StudentID,
			&sub.ProblemKey.LectureID, &sub.ProblemKey.AssignmentID, &sub.ProblemKey.ForEvaluation); err != nil {
			rows.Close()
			return nil, fmt.Errorf("claim scan: %w", err)
		}
		sub.Progress = ProgressRunning
		sub.PrebuiltResult = VerdictUnprocessed
		sub.PostbuiltResult = VerdictUnprocessed
		sub.JudgeVerdict = VerdictUnprocessed
		claimed = append(claimed, sub)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("claim rows: %w", err)
	}
	if len(claimed) == 0 {
		return nil, tx.Commit(ctx)
	}

	ids := make([]int64, len(claimed))
	for i, sub := range claimed {
		ids[i] = sub.ID
	}
	const upd = `UPDATE submissions SET status = 'Running' WHERE id = ANY($1)`
	if _, err := tx.Exec(ctx, upd, ids); err != nil {
		return nil, fmt.Errorf("claim update: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("claim commit: %w", err)
	}
	return claimed, nil
}

func (s *PgStore) FetchProblem(ctx context.Context, key ProblemKey) (*Problem, error) {
	const q = `
SELECT title, description_path, time_ms, memory_mb, build_script_path, executable, language
FROM problems
WHERE lecture_id = $1 AND assignment_id = $2 AND for_evaluation = $3`
	var p Problem
	p.Key = key
	err := s.db.QueryRow(ctx, q, key.LectureID, key.AssignmentID, key.ForEvaluation).Scan(
		&p.Title, &p.DescriptionPath, &p.TimeLimitMS, &p.MemoryLimitMB, &p.BuildScriptPath, &p.Executable, &p.Language)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch problem: %w", err)
	}
	return &p, nil
}

func (s *PgStore) FetchUploadedPaths(ctx context.Context, submissionID int64) ([]string, error) {
	return s.queryPaths(ctx, `SELECT path FROM uploaded_files WHERE submission_id = $1`, submissionID)
}

func (s *PgStore) FetchArrangedPaths(ctx context.Context, key ProblemKey) ([]string, error) {
	return s.queryPaths(ctx,
		`SELECT path FROM arranged_files WHERE lecture_id = $1 AND assignment_id = $2 AND for_evaluation = $3`,
		key.LectureID, key.AssignmentID, key.ForEvaluation)
}

func (s *PgStore) FetchRequiredFiles(ctx context.Context, key ProblemKey) ([]string, error) {
	return s.queryPaths(ctx,
		`SELECT name FROM required_files WHERE lecture_id = $1 AND assignment_id = $2 AND for_evaluation = $3`,
		key.LectureID, key.AssignmentID, key.ForEvaluation)
}

func (s *PgStore) queryPaths(ctx context.Context, q string, args ...any) ([]string, error) {
	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query paths: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan path: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PgStore) FetchTestCases(ctx context.Context, key ProblemKey) ([]TestCase, error) {
	const q = `
SELECT id, phase, script_path, argument_path, stdin_path, stdout_path, stderr_path, exit_code, score, description
FROM test_cases
WHERE lecture_id = $1 AND assignment_id = $2 AND for_evaluation = $3
ORDER BY id`
	rows, err := s.db.Query(ctx, q, key.LectureID, key.AssignmentID, key.ForEvaluation)
	if err != nil {
		return nil, fmt.Errorf("fetch test cases: %w", err)
	}
	defer rows.Close()

	var out []TestCase
	for rows.Next() {
		var tc TestCase
		tc.ProblemKey = key
		if err := rows.Scan(&tc.ID, &tc.Phase, &tc.ScriptPath, &tc.ArgumentPath, &tc.StdinPath,
			&tc.ExpectedStdoutPath, &tc.ExpectedStderrPath, &tc.ExpectedExitCode, &tc.Score, &tc.Description); err != nil {
			return nil, fmt.Errorf("scan test case: %w", err)
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

func (s *PgStore) InsertJudgeResult(ctx context.Context, row JudgeResultRow) error {
	const q = `
INSERT INTO judge_results (submission_id, testcase_id, time_ms, memory_kb, exit_code, stdout, stderr, result)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := s.db.Exec(ctx, q, row.SubmissionID, row.TestCaseID, row.TimeMS, row.MemoryKB,
		row.ExitCode, row.Stdout, row.Stderr, row.Verdict)
	if err != nil {
		return fmt.Errorf("insert judge result: %w", err)
	}
	return nil
}

func (s *PgStore) UpdateSubmission(ctx context.Context, sub Submission) error {
	const q = `
UPDATE submissions
SET status = $1, prebuilt_result = $2, postbuilt_result = $3, judge_result = $4, message = $5
WHERE id = $6`
	_, err := s.db.Exec(ctx, q, sub.Progress, sub.PrebuiltResult, sub.PostbuiltResult, sub.JudgeVerdict, sub.Message, sub.ID)
	if err != nil {
		return fmt.Errorf("update submission %d: %w", sub.ID, err)
	}
	return nil
}

// UndoRunning repairs shutdown-interrupted work: every still-Running
// submission returns to Queued, and its partial JudgeResults are removed
// (spec §4.7 "on cancellation"). Running it twice is a no-op the second
// time since no rows remain in status=Running.
func (s *PgStore) UndoRunning(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("undo begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const del = `DELETE FROM judge_results WHERE submission_id IN (SELECT id FROM submissions WHERE status = 'Running')`
	if _, err := tx.Exec(ctx, del); err != nil {
		return fmt.Errorf("undo delete results: %w", err)
	}
	const upd = `UPDATE submissions SET status = 'Queued' WHERE status = 'Running'`
	if _, err := tx.Exec(ctx, upd); err != nil {
		return fmt.Errorf("undo requeue: %w", err)
	}
	return tx.Commit(ctx)
}
