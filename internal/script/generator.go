// Package script renders launch requests into self-contained batch
// scripts and manages the per-user script cache.
package script

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/chenyuetian/galyleo/internal/broker"
	"github.com/chenyuetian/galyleo/internal/errdefs"
	"github.com/chenyuetian/galyleo/internal/port"
	"github.com/chenyuetian/galyleo/internal/session"
)

// portVar is the shell variable the embedded allocator loop assigns.
const portVar = "GALYLEO_PORT"

// scriptTemplate is the skeleton of every generated batch script. The
// sections are assembled by Generate; the template only fixes their
// order: directives, environment setup, port allocation, server start
// (non-blocking), redeem call, wait, destroy call.
var scriptTemplate = template.Must(template.New("batch").Parse(`#!/usr/bin/env bash
#
# galyleo session {{.Name}}
# created {{.Created}}
#
{{- range .Directives}}
#SBATCH {{.}}
{{- end}}

{{range .Setup}}{{.}}
{{end -}}
{{.PortLoop}}

{{.StartLine}}
curl -s "{{.RedeemURL}}" > /dev/null
wait
curl -s "{{.DestroyURL}}" > /dev/null
`))

type templateData struct {
	Name       string
	Created    string
	Directives []string
	Setup      []string
	PortLoop   string
	StartLine  string
	RedeemURL  string
	DestroyURL string
}

// Generator renders and caches batch scripts.
type Generator struct {
	cacheDir  string
	endpoints broker.Endpoints
	dnsDomain string
}

// NewGenerator creates a generator writing into cacheDir and embedding
// broker calls against the given endpoints.
func NewGenerator(cacheDir string, eps broker.Endpoints, dnsDomain string) *Generator {
	return &Generator{cacheDir: cacheDir, endpoints: eps, dnsDomain: dnsDomain}
}

// Generate renders the request into an executable script named after
// the session identity. Generation is create-only: an existing script
// of the same name is a fatal duplicate and is never touched.
//
// The account check lives here rather than in the resolver because this
// is the last point before an irreversible file write.
func (g *Generator) Generate(req *session.Request, id session.Identity, tokenValue, serverToken string) (string, error) {
	if req.Account == "" {
		return "", errdefs.InvalidParameter(session.OptAccount, "",
			"an account is required to submit a batch job").
			WithSuggestion("pass --account with your allocation id")
	}

	if err := ensureCacheDir(g.cacheDir); err != nil {
		return "", err
	}

	name := id.Name()
	data := templateData{
		Name:       name,
		Created:    id.CreatedAt.Format(time.RFC3339),
		Directives: directives(req, name),
		Setup:      setupCommands(req),
		PortLoop:   port.ShellFragment(portVar),
		StartLine:  startLine(req, serverToken, g.dnsDomain),
		RedeemURL:  g.endpoints.RedeemURL(tokenValue, "${"+portVar+"}"),
		DestroyURL: g.endpoints.DestroyURL(tokenValue),
	}

	var rendered strings.Builder
	if err := scriptTemplate.Execute(&rendered, data); err != nil {
		return "", fmt.Errorf("render script: %w", err)
	}

	path := filepath.Join(g.cacheDir, name+".sh")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o700)
	if err != nil {
		if os.IsExist(err) {
			return "", errdefs.DuplicateSession(name, path)
		}
		return "", fmt.Errorf("create script %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(rendered.String()); err != nil {
		return "", fmt.Errorf("write script %s: %w", path, err)
	}

	return path, nil
}

// directives maps request fields 1:1 onto scheduler directives.
func directives(req *session.Request, name string) []string {
	d := []string{
		"--job-name=" + name,
		"--output=" + name + ".o%j",
		"--account=" + req.Account,
	}
	if req.Reservation != "" {
		d = append(d, "--reservation="+req.Reservation)
	}
	if req.Partition != "" {
		d = append(d, "--partition="+req.Partition)
	}
	if req.QOS != "" {
		d = append(d, "--qos="+req.QOS)
	}
	d = append(d,
		"--nodes="+strconv.Itoa(req.Nodes),
		"--ntasks-per-node="+strconv.Itoa(req.TasksPerNode),
		"--cpus-per-task="+strconv.Itoa(req.CPUsPerTask),
	)
	if mem := req.MemoryDirective(); mem != "" {
		d = append(d, mem)
	}
	if accel := req.AcceleratorDirective(); accel != "" {
		d = append(d, accel)
	}
	d = append(d, "--time="+req.TimeLimit)
	if req.Constraint != "" {
		d = append(d, "--constraint="+req.Constraint)
	}
	return d
}

// setupCommands emits the environment setup sequence. Each command is
// an opaque external invocation whose non-zero exit aborts the job
// before any broker state changes hands.
func setupCommands(req *session.Request) []string {
	var cmds []string
	for _, m := range req.Modules {
		cmds = append(cmds, "module load "+m+" || exit 1")
	}
	if req.CondaEnv != "" {
		cmds = append(cmds, "source activate "+req.CondaEnv+" || exit 1")
	}
	return cmds
}

// startLine builds the non-blocking server start command, wrapped in a
// container exec when an image was requested. A port already stolen
// between the allocator's check and this bind makes the server exit
// loudly; the job log keeps the evidence and wait returns immediately.
func startLine(req *session.Request, serverToken, dnsDomain string) string {
	var b strings.Builder

	if req.Image != "" {
		b.WriteString("singularity exec ")
		switch req.Accelerator {
		case session.AcceleratorNV:
			b.WriteString("--nv ")
		case session.AcceleratorROCm:
			b.WriteString("--rocm ")
		}
		for _, bind := range req.Binds {
			b.WriteString("-B " + bind + " ")
		}
		b.WriteString(req.Image + " ")
	}

	fmt.Fprintf(&b, "jupyter %s --ip=\"$(hostname -s).%s\" --port=\"${%s}\" --notebook-dir='%s' --NotebookApp.token='%s' --no-browser &",
		req.Interface, dnsDomain, portVar, req.NotebookDir, serverToken)

	return b.String()
}

// ensureCacheDir creates the cache directory with owner-only access.
// Group and other permissions stay stripped: the scripts embed bearer
// tokens.
func ensureCacheDir(dir string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create cache directory %s: %w", dir, err)
	}
	return nil
}
