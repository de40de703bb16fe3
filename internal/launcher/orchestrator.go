// Package launcher sequences one end-to-end session launch: resolve
// parameters, acquire a proxy token, generate the batch script, submit
// it, and link the token to the job, rolling the token back on any
// fatal failure along the way.
package launcher

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/chenyuetian/galyleo/internal/broker"
	"github.com/chenyuetian/galyleo/internal/config"
	"github.com/chenyuetian/galyleo/internal/script"
	"github.com/chenyuetian/galyleo/internal/session"
	"github.com/chenyuetian/galyleo/internal/slurm"
	"github.com/chenyuetian/galyleo/internal/ui"
)

// brokerClient is the token lifecycle surface the orchestrator needs.
type brokerClient interface {
	Acquire(ctx context.Context) (*broker.Token, error)
	Link(ctx context.Context, tok *broker.Token, jobID string) error
	Destroy(ctx context.Context, tok *broker.Token) error
}

// scriptGenerator renders a request into a cached batch script.
type scriptGenerator interface {
	Generate(req *session.Request, id session.Identity, tokenValue, serverToken string) (string, error)
}

// jobSubmitter hands a script to the scheduler.
type jobSubmitter interface {
	Submit(ctx context.Context, scriptPath string) (slurm.JobHandle, error)
}

// Orchestrator runs the launch sequence. It is single-threaded and
// blocks on every external call; once a side effect has happened it is
// either completed or explicitly rolled back by the next step.
type Orchestrator struct {
	cfg       config.Config
	ui        *ui.UI
	log       *slog.Logger
	broker    brokerClient
	generator scriptGenerator
	submitter jobSubmitter
}

// Result describes a completed (or previewed) launch.
type Result struct {
	Session session.Identity
	Script  string
	Job     slurm.JobHandle
	URL     string
	// Linked is false when submission succeeded but the token-to-job
	// link did not; the session still works.
	Linked bool
	DryRun bool
}

// New wires an orchestrator from the site configuration.
func New(cfg config.Config, u *ui.UI, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	client := broker.New(cfg.ProxyDomain, log)
	return &Orchestrator{
		cfg:       cfg,
		ui:        u,
		log:       log,
		broker:    client,
		generator: script.NewGenerator(cfg.CacheDir, client.Endpoints(), cfg.DNSDomain),
		submitter: slurm.NewSubmitter(log),
	}
}

// Launch runs the full sequence for one session. With dryRun set it
// stops after script generation: no token is acquired and nothing is
// submitted.
//
// The orchestrator never polls the job; redemption and the final
// destruction of the token belong to the generated script running on
// the compute node.
func (o *Orchestrator) Launch(ctx context.Context, opts session.Options, dryRun bool) (*Result, error) {
	req, err := session.Resolve(opts, o.cfg)
	if err != nil {
		return nil, err
	}
	o.reportRequest(req)

	id := session.NewIdentity("galyleo")
	o.ui.KeyValue("session", id.Name())

	serverToken := session.NewServerToken()

	if dryRun {
		path, err := o.generator.Generate(req, id, "dry-run", serverToken)
		if err != nil {
			return nil, err
		}
		o.ui.Success("dry run: script generated, nothing submitted")
		o.ui.KeyValue("script", path)
		return &Result{Session: id, Script: path, DryRun: true}, nil
	}

	tok, err := o.broker.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	o.ui.Success("reverse proxy token acquired")

	path, err := o.generator.Generate(req, id, tok.Value, serverToken)
	if err != nil {
		o.rollback(ctx, tok)
		return nil, err
	}
	o.ui.KeyValue("script", path)

	job, err := o.submitter.Submit(ctx, path)
	if err != nil {
		o.rollback(ctx, tok)
		return nil, err
	}
	o.ui.Success("job " + string(job) + " submitted")

	linked := true
	if err := o.broker.Link(ctx, tok, string(job)); err != nil {
		// The job is real and charging; only the token-to-job mapping
		// is degraded. Report and carry on.
		linked = false
		o.log.Warn("could not link token to job", "jobid", job, "error", err)
		o.ui.Warning("token could not be linked to job " + string(job) + "; the session URL still works")
	} else {
		o.ui.Success("token linked to job " + string(job))
	}

	url := fmt.Sprintf("https://%s.%s?token=%s", tok.Value, o.cfg.ProxyDomain, serverToken)
	o.ui.Println("")
	o.ui.Info("your session will be available at:")
	o.ui.URL(url)
	o.ui.Warning("this URL is a bearer credential: anyone holding it can reach your session. Do not share it.")

	return &Result{
		Session: id,
		Script:  path,
		Job:     job,
		URL:     url,
		Linked:  linked,
	}, nil
}

// rollback destroys an acquired token on the failure path so no
// ACQUIRED or LINKED token outlives a reported failure. A failed
// destroy is retried once; after that the orphaned token is logged and
// surfaced, not retried further.
func (o *Orchestrator) rollback(ctx context.Context, tok *broker.Token) {
	if err := o.broker.Destroy(ctx, tok); err != nil {
		o.log.Warn("token destroy failed, retrying", "error", err)
		if err := o.broker.Destroy(ctx, tok); err != nil {
			o.log.Error("token destroy failed twice, token is orphaned", "error", err)
			o.ui.Warning("could not revoke the reverse proxy token; it will expire on its own")
			return
		}
	}
	o.ui.Subtle("reverse proxy token revoked")
}

// reportRequest prints a status line for every resolved parameter.
func (o *Orchestrator) reportRequest(req *session.Request) {
	o.ui.KeyValue("account", req.Account)
	if req.Reservation != "" {
		o.ui.KeyValue("reservation", req.Reservation)
	}
	o.ui.KeyValue("partition", req.Partition)
	if req.QOS != "" {
		o.ui.KeyValue("qos", req.QOS)
	}
	o.ui.KeyValue("nodes", strconv.Itoa(req.Nodes))
	o.ui.KeyValue("tasks per node", strconv.Itoa(req.TasksPerNode))
	o.ui.KeyValue("cpus per task", strconv.Itoa(req.CPUsPerTask))
	if mem := req.MemoryDirective(); mem != "" {
		o.ui.KeyValue("memory", strings.TrimPrefix(mem, "--"))
	}
	if accel := req.AcceleratorDirective(); accel != "" {
		o.ui.KeyValue("accelerator", strings.TrimPrefix(accel, "--"))
	}
	o.ui.KeyValue("time limit", req.TimeLimit)
	if req.Constraint != "" {
		o.ui.KeyValue("constraint", req.Constraint)
	}
	o.ui.KeyValue("interface", req.Interface)
	o.ui.KeyValue("notebook directory", req.NotebookDir)
	if req.Image != "" {
		o.ui.KeyValue("container image", req.Image)
		if len(req.Binds) > 0 {
			o.ui.KeyValue("bind mounts", strings.Join(req.Binds, ", "))
		}
		if req.Accelerator != session.AcceleratorNone {
			o.ui.KeyValue("container accelerator", req.Accelerator)
		}
	}
	if len(req.Modules) > 0 {
		o.ui.KeyValue("environment modules", strings.Join(req.Modules, ", "))
	}
	if req.CondaEnv != "" {
		o.ui.KeyValue("conda environment", req.CondaEnv)
	}
}
