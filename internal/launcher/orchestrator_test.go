package launcher

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chenyuetian/galyleo/internal/broker"
	"github.com/chenyuetian/galyleo/internal/config"
	"github.com/chenyuetian/galyleo/internal/errdefs"
	"github.com/chenyuetian/galyleo/internal/script"
	"github.com/chenyuetian/galyleo/internal/session"
	"github.com/chenyuetian/galyleo/internal/slurm"
	"github.com/chenyuetian/galyleo/internal/ui"
)

type fakeBroker struct {
	acquireErr  error
	linkErr     error
	destroyErrs []error

	acquires  int
	destroys  int
	linkedJob string
}

func (f *fakeBroker) Acquire(ctx context.Context) (*broker.Token, error) {
	f.acquires++
	if f.acquireErr != nil {
		return nil, f.acquireErr
	}
	return &broker.Token{Value: "f00dfeed"}, nil
}

func (f *fakeBroker) Link(ctx context.Context, tok *broker.Token, jobID string) error {
	if f.linkErr != nil {
		return f.linkErr
	}
	f.linkedJob = jobID
	return nil
}

func (f *fakeBroker) Destroy(ctx context.Context, tok *broker.Token) error {
	f.destroys++
	if len(f.destroyErrs) > 0 {
		err := f.destroyErrs[0]
		f.destroyErrs = f.destroyErrs[1:]
		return err
	}
	return nil
}

type fakeGenerator struct {
	err      error
	calls    int
	gotToken string
	path     string
}

func (f *fakeGenerator) Generate(req *session.Request, id session.Identity, tokenValue, serverToken string) (string, error) {
	f.calls++
	f.gotToken = tokenValue
	if f.err != nil {
		return "", f.err
	}
	return f.path, nil
}

type fakeSubmitter struct {
	err   error
	calls int
	job   slurm.JobHandle
}

func (f *fakeSubmitter) Submit(ctx context.Context, scriptPath string) (slurm.JobHandle, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.job, nil
}

// restoreWD undoes the working-directory change Resolve performs.
func restoreWD(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		ProxyDomain: "proxy.test.edu",
		DNSDomain:   "eth.cluster",
		Partition:   "shared",
		Interface:   "lab",
		CacheDir:    filepath.Join(t.TempDir(), "scripts"),
	}
}

func testOptions(t *testing.T) session.Options {
	t.Helper()
	return session.Options{
		session.OptAccount:     "abc123",
		session.OptNotebookDir: t.TempDir(),
	}
}

func newTestOrchestrator(t *testing.T, b *fakeBroker, g scriptGenerator, s *fakeSubmitter) (*Orchestrator, *bytes.Buffer) {
	t.Helper()
	var out, errOut bytes.Buffer
	o := &Orchestrator{
		cfg:       testConfig(t),
		ui:        ui.NewWithWriters(&out, &errOut, false),
		log:       slog.New(slog.NewTextHandler(&errOut, nil)),
		broker:    b,
		generator: g,
		submitter: s,
	}
	return o, &errOut
}

func TestLaunchSuccess(t *testing.T) {
	restoreWD(t)
	b := &fakeBroker{}
	g := &fakeGenerator{path: "/cache/galyleo-x.sh"}
	s := &fakeSubmitter{job: "456"}
	o, _ := newTestOrchestrator(t, b, g, s)

	res, err := o.Launch(context.Background(), testOptions(t), false)
	require.NoError(t, err)

	assert.Equal(t, "/cache/galyleo-x.sh", res.Script)
	assert.Equal(t, slurm.JobHandle("456"), res.Job)
	assert.True(t, res.Linked)
	assert.Equal(t, "456", b.linkedJob)
	assert.Equal(t, "f00dfeed", g.gotToken)
	assert.Zero(t, b.destroys)

	assert.Contains(t, res.URL, "https://f00dfeed.proxy.test.edu")
	assert.Contains(t, res.URL, "?token=")
}

func TestLaunchResolveFailureBeforeBroker(t *testing.T) {
	restoreWD(t)
	b := &fakeBroker{}
	g := &fakeGenerator{}
	o, _ := newTestOrchestrator(t, b, g, &fakeSubmitter{})

	opts := testOptions(t)
	opts["walltime"] = "01:00:00"
	_, err := o.Launch(context.Background(), opts, false)
	require.Error(t, err)

	assert.True(t, errdefs.IsCode(err, errdefs.CodeUnsupportedOption))
	assert.Zero(t, b.acquires)
	assert.Zero(t, g.calls)
}

func TestLaunchAcquireFailureStopsEverything(t *testing.T) {
	restoreWD(t)
	b := &fakeBroker{acquireErr: errdefs.BrokerRejected("https://manage.proxy.test.edu/getlink", 503)}
	g := &fakeGenerator{}
	s := &fakeSubmitter{}
	o, _ := newTestOrchestrator(t, b, g, s)

	_, err := o.Launch(context.Background(), testOptions(t), false)
	require.Error(t, err)

	assert.True(t, errdefs.IsCode(err, errdefs.CodeBrokerRejected))
	assert.Zero(t, g.calls)
	assert.Zero(t, s.calls)
	assert.Zero(t, b.destroys)
}

func TestLaunchGenerateFailureDestroysToken(t *testing.T) {
	restoreWD(t)
	b := &fakeBroker{}
	g := &fakeGenerator{err: errdefs.DuplicateSession("galyleo-x", "/cache/galyleo-x.sh")}
	s := &fakeSubmitter{}
	o, _ := newTestOrchestrator(t, b, g, s)

	_, err := o.Launch(context.Background(), testOptions(t), false)
	require.Error(t, err)

	assert.True(t, errdefs.IsCode(err, errdefs.CodeDuplicateSession))
	assert.Equal(t, 1, b.destroys)
	assert.Zero(t, s.calls)
}

func TestLaunchSubmitFailureDestroysToken(t *testing.T) {
	restoreWD(t)
	b := &fakeBroker{}
	g := &fakeGenerator{path: "/cache/galyleo-x.sh"}
	s := &fakeSubmitter{err: errdefs.SubmissionError("scheduler rejected the batch script", nil)}
	o, _ := newTestOrchestrator(t, b, g, s)

	_, err := o.Launch(context.Background(), testOptions(t), false)
	require.Error(t, err)

	assert.True(t, errdefs.IsCode(err, errdefs.CodeSubmissionError))
	assert.Equal(t, 1, b.destroys)
}

func TestLaunchDestroyRetriedOnce(t *testing.T) {
	restoreWD(t)
	b := &fakeBroker{destroyErrs: []error{errors.New("connection reset")}}
	g := &fakeGenerator{path: "/cache/galyleo-x.sh"}
	s := &fakeSubmitter{err: errors.New("exit status 1")}
	o, _ := newTestOrchestrator(t, b, g, s)

	_, err := o.Launch(context.Background(), testOptions(t), false)
	require.Error(t, err)

	// First destroy fails, the retry succeeds; no third attempt.
	assert.Equal(t, 2, b.destroys)
}

func TestLaunchDestroyGivesUpAfterRetry(t *testing.T) {
	restoreWD(t)
	b := &fakeBroker{destroyErrs: []error{errors.New("reset"), errors.New("reset")}}
	g := &fakeGenerator{path: "/cache/galyleo-x.sh"}
	s := &fakeSubmitter{err: errors.New("exit status 1")}
	o, errOut := newTestOrchestrator(t, b, g, s)

	_, err := o.Launch(context.Background(), testOptions(t), false)
	require.Error(t, err)

	assert.Equal(t, 2, b.destroys)
	assert.Contains(t, errOut.String(), "could not revoke")
}

func TestLaunchLinkFailureIsNonFatal(t *testing.T) {
	restoreWD(t)
	b := &fakeBroker{linkErr: errdefs.BrokerUnreachable("https://manage.proxy.test.edu/linktoken", errors.New("timeout"))}
	g := &fakeGenerator{path: "/cache/galyleo-x.sh"}
	s := &fakeSubmitter{job: "456"}
	o, errOut := newTestOrchestrator(t, b, g, s)

	res, err := o.Launch(context.Background(), testOptions(t), false)
	require.NoError(t, err)

	assert.False(t, res.Linked)
	assert.NotEmpty(t, res.URL)
	assert.Zero(t, b.destroys)
	assert.Contains(t, errOut.String(), "could not be linked")
}

func TestLaunchDryRun(t *testing.T) {
	restoreWD(t)
	b := &fakeBroker{}
	s := &fakeSubmitter{}
	cfg := testConfig(t)
	g := script.NewGenerator(cfg.CacheDir, broker.NewEndpoints(cfg.ProxyDomain), cfg.DNSDomain)

	var out, errOut bytes.Buffer
	o := &Orchestrator{
		cfg:       cfg,
		ui:        ui.NewWithWriters(&out, &errOut, false),
		log:       slog.New(slog.NewTextHandler(&errOut, nil)),
		broker:    b,
		generator: g,
		submitter: s,
	}

	res, err := o.Launch(context.Background(), testOptions(t), true)
	require.NoError(t, err)

	assert.True(t, res.DryRun)
	assert.Zero(t, b.acquires)
	assert.Zero(t, s.calls)
	assert.Empty(t, res.URL)
	assert.FileExists(t, res.Script)
}

func TestLaunchEndToEndScriptContent(t *testing.T) {
	restoreWD(t)
	b := &fakeBroker{}
	s := &fakeSubmitter{job: "456"}
	cfg := testConfig(t)
	g := script.NewGenerator(cfg.CacheDir, broker.NewEndpoints(cfg.ProxyDomain), cfg.DNSDomain)

	var out, errOut bytes.Buffer
	o := &Orchestrator{
		cfg:       cfg,
		ui:        ui.NewWithWriters(&out, &errOut, false),
		log:       slog.New(slog.NewTextHandler(&errOut, nil)),
		broker:    b,
		generator: g,
		submitter: s,
	}

	res, err := o.Launch(context.Background(), testOptions(t), false)
	require.NoError(t, err)

	data, err := os.ReadFile(res.Script)
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "--account=abc123")
	assert.Contains(t, content, "redeemtoken?token=f00dfeed")
	assert.Contains(t, content, "destroytoken?token=f00dfeed")
	assert.Equal(t, "456", b.linkedJob)
}
