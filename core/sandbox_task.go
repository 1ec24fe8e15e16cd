package core

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"
)

// TaskResult is the outcome of running one Task (spec §4.1).
type TaskResult struct {
	ExitCode    int
	Stdout      string
	Stderr      string
	TimeMS      int64
	MemoryBytes int64
	TLE         bool
}

// Task is a single sandboxed execution: one container, one command, limits,
// optional stdin, and a monitor sampling its peak memory (spec GLOSSARY).
type Task struct {
	driver  *Driver
	Image   string
	Args    []string
	Stdin   string
	Limits  Limits
	Workdir string
	Mounts  []volumeMount
	Timeout time.Duration // caller-supplied limit, without the wall-clock grace
	Grace   time.Duration // added to Timeout to get the wall-clock kill deadline
}

// Run performs create -> start (while the monitor samples) -> wait -> remove.
// The exit code comes from the wait response; the container is inspected
// for it only after a timeout stop.
func (t *Task) Run(ctx context.Context) (TaskResult, error) {
	id, err := t.driver.createContainer(ctx, t.Image, t.Args, t.Limits, t.Workdir, t.Mounts)
	if err != nil {
		return TaskResult{ExitCode: -1}, fmt.Errorf("task create: %w", err)
	}

	result, runErr := t.start(ctx, id)

	if err := t.driver.removeContainer(context.Background(), id); err != nil {
		if runErr != nil {
			runErr = fmt.Errorf("%w; %s", runErr, err.Error())
		} else {
			runErr = err
		}
	}
	return result, runErr
}

func (t *Task) start(ctx context.Context, id string) (TaskResult, error) {
	grace := t.Grace
	if grace <= 0 {
		grace = 500 * time.Millisecond
	}
	wallTimeout := t.Timeout + grace
	if wallTimeout <= grace {
		wallTimeout = 30 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, wallTimeout)
	defer cancel()

	mon := newMonitor(t.driver, id)

	attach, err := t.driver.cli.ContainerAttach(runCtx, id, container.AttachOptions{
		Stream: true, Stdin: true, Stdout: true, Stderr: true,
	})
	if err != nil {
		return TaskResult{ExitCode: -1}, fmt.Errorf("task attach: %w", err)
	}
	defer attach.Close()

	mon.start()

	if err := t.driver.cli.ContainerStart(runCtx, id, container.StartOptions{}); err != nil {
		mon.end()
		return TaskResult{ExitCode: -1}, fmt.Errorf("task start: %w", err)
	}

	go func() {
		_, _ = io.Copy(attach.Conn, strings.NewReader(t.Stdin))
		_ = attach.CloseWrite()
	}()

	var stdout, stderr bytes.Buffer
	copyDone := make(chan error, 1)
	go func() {
		_, cerr := stdcopy.StdCopy(&stdout, &stderr, attach.Reader)
		copyDone <- cerr
	}()

	waitCh, errCh := t.driver.cli.ContainerWait(runCtx, id, container.WaitConditionNotRunning)

	select {
	case <-runCtx.Done():
		mon.end()
		return t.handleTimeout(id, mon)
	case err := <-errCh:
		mon.end()
		return TaskResult{ExitCode: -1, TimeMS: mon.elapsedMS(), MemoryBytes: mon.peakMemoryBytes()}, fmt.Errorf("task wait: %w", err)
	case resp := <-waitCh:
		<-copyDone
		mon.end()
		tle := t.Timeout > 0 && mon.elapsedMS() > t.Timeout.Milliseconds()
		return TaskResult{
			ExitCode:    int(resp.StatusCode),
			Stdout:      stdout.String(),
			Stderr:      stderr.String(),
			TimeMS:      mon.elapsedMS(),
			MemoryBytes: mon.peakMemoryBytes(),
			TLE:         tle,
		}, nil
	}
}

// handleTimeout issues a stop, still collects the exit code, and returns a
// TaskResult with TLE=true per spec §4.1's timeout policy.
func (t *Task) handleTimeout(id string, mon *monitor) (TaskResult, error) {
	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := t.driver.cli.ContainerStop(stopCtx, id, container.StopOptions{}); err != nil {
		return TaskResult{TLE: true, TimeMS: mon.elapsedMS(), MemoryBytes: mon.peakMemoryBytes()}, fmt.Errorf("stop on timeout: %w", err)
	}
	exitCode, err := t.driver.inspectExitCode(stopCtx, id)
	if err != nil {
		return TaskResult{TLE: true, TimeMS: mon.elapsedMS(), MemoryBytes: mon.peakMemoryBytes()}, err
	}
	return TaskResult{
		ExitCode:    exitCode,
		TLE:         true,
		TimeMS:      mon.elapsedMS(),
		MemoryBytes: mon.peakMemoryBytes(),
	}, nil
}
