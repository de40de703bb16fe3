package slurm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chenyuetian/galyleo/internal/errdefs"
)

func TestSubmit(t *testing.T) {
	var gotName string
	var gotArgs []string
	s := newSubmitterWithRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		gotName = name
		gotArgs = args
		return []byte("Submitted batch job 456\n"), nil
	}, nil)

	job, err := s.Submit(context.Background(), "/cache/galyleo-x.sh")
	require.NoError(t, err)

	assert.Equal(t, JobHandle("456"), job)
	assert.Equal(t, "sbatch", gotName)
	assert.Equal(t, []string{"/cache/galyleo-x.sh"}, gotArgs)
}

func TestSubmitNonZeroExit(t *testing.T) {
	s := newSubmitterWithRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte("sbatch: error: Invalid account\n"), errors.New("exit status 1")
	}, nil)

	_, err := s.Submit(context.Background(), "x.sh")
	require.Error(t, err)
	assert.True(t, errdefs.IsCode(err, errdefs.CodeSubmissionError))
	assert.Contains(t, err.Error(), "Invalid account")
}

func TestSubmitUnparsableOutput(t *testing.T) {
	s := newSubmitterWithRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte("Submitted, but in an unexpected dialect\n"), nil
	}, nil)

	_, err := s.Submit(context.Background(), "x.sh")
	require.Error(t, err)
	assert.True(t, errdefs.IsCode(err, errdefs.CodeSubmissionError))
}

func TestSubmitExtractsFirstDigitRun(t *testing.T) {
	s := newSubmitterWithRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte("Submitted batch job 789 on cluster expanse2\n"), nil
	}, nil)

	job, err := s.Submit(context.Background(), "x.sh")
	require.NoError(t, err)
	assert.Equal(t, JobHandle("789"), job)
}
