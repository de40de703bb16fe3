// Package slurm hands generated scripts to the cluster scheduler.
package slurm

import (
	"context"
	"log/slog"
	"os/exec"
	"regexp"
	"strings"

	"github.com/chenyuetian/galyleo/internal/errdefs"
)

// JobHandle is the scheduler-assigned job identifier. Opaque beyond
// equality and display.
type JobHandle string

// jobIDPattern matches the first run of digits in sbatch output, e.g.
// "Submitted batch job 456".
var jobIDPattern = regexp.MustCompile(`\d+`)

// runner executes the submission command and returns its combined
// output. Swapped out in tests.
type runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Submitter submits batch scripts via sbatch.
type Submitter struct {
	run runner
	log *slog.Logger
}

// NewSubmitter creates a submitter that shells out to sbatch.
func NewSubmitter(log *slog.Logger) *Submitter {
	if log == nil {
		log = slog.Default()
	}
	return &Submitter{
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).CombinedOutput()
		},
		log: log,
	}
}

// newSubmitterWithRunner is the test constructor.
func newSubmitterWithRunner(run runner, log *slog.Logger) *Submitter {
	s := NewSubmitter(log)
	s.run = run
	return s
}

// Submit hands the script to the scheduler and extracts the job id
// from its output. The submitter never rolls anything back itself;
// token cleanup after a failed submission is the orchestrator's job.
func (s *Submitter) Submit(ctx context.Context, scriptPath string) (JobHandle, error) {
	s.log.Debug("submitting batch script", "script", scriptPath)

	out, err := s.run(ctx, "sbatch", scriptPath)
	output := strings.TrimSpace(string(out))
	if err != nil {
		return "", errdefs.SubmissionError("scheduler rejected the batch script", err).
			WithContext("script", scriptPath).
			WithContext("output", output)
	}

	id := jobIDPattern.FindString(output)
	if id == "" {
		return "", errdefs.SubmissionError("no job id in scheduler output", nil).
			WithContext("script", scriptPath).
			WithContext("output", output)
	}

	s.log.Debug("job submitted", "jobid", id)
	return JobHandle(id), nil
}
