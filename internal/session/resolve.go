package session

import (
	"os"
	"strconv"
	"strings"

	"github.com/chenyuetian/galyleo/internal/config"
	"github.com/chenyuetian/galyleo/internal/errdefs"
)

// Options is the raw key/value form of a launch request, as collected
// from command-line flags or a profile file. Keys use the flag names.
type Options map[string]string

// Option keys recognized by Resolve. Anything else is fatal.
const (
	OptAccount       = "account"
	OptReservation   = "reservation"
	OptPartition     = "partition"
	OptQOS           = "qos"
	OptNodes         = "nodes"
	OptTasksPerNode  = "ntasks-per-node"
	OptCPUsPerTask   = "cpus-per-task"
	OptMemoryPerNode = "memory-per-node"
	OptMemoryPerCPU  = "memory-per-cpu"
	OptGPUs          = "gpus"
	OptGRES          = "gres"
	OptTimeLimit     = "time-limit"
	OptConstraint    = "constraint"
	OptInterface     = "interface"
	OptNotebookDir   = "notebook-dir"
	OptImage         = "sif"
	OptBind          = "bind"
	OptNV            = "nv"
	OptROCm          = "rocm"
	OptModules       = "env-modules"
	OptCondaEnv      = "conda-env"
)

var knownOptions = map[string]bool{
	OptAccount: true, OptReservation: true, OptPartition: true,
	OptQOS: true, OptNodes: true, OptTasksPerNode: true,
	OptCPUsPerTask: true, OptMemoryPerNode: true, OptMemoryPerCPU: true,
	OptGPUs: true, OptGRES: true, OptTimeLimit: true, OptConstraint: true,
	OptInterface: true, OptNotebookDir: true, OptImage: true,
	OptBind: true, OptNV: true, OptROCm: true, OptModules: true,
	OptCondaEnv: true,
}

// Resolve validates raw options against the site configuration and
// produces an immutable Request. As a side effect it changes the
// process working directory to the notebook directory, so the failure
// is surfaced before any remote call is made.
func Resolve(opts Options, cfg config.Config) (*Request, error) {
	for key := range opts {
		if !knownOptions[key] {
			return nil, errdefs.UnsupportedOption(key)
		}
	}

	req := &Request{
		Account:     opts[OptAccount],
		Reservation: opts[OptReservation],
		Partition:   stringOr(opts[OptPartition], cfg.Partition),
		QOS:         opts[OptQOS],
		GRES:        opts[OptGRES],
		TimeLimit:   stringOr(opts[OptTimeLimit], "00:30:00"),
		Constraint:  opts[OptConstraint],
		Image:       opts[OptImage],
		CondaEnv:    opts[OptCondaEnv],
		Accelerator: AcceleratorNone,
	}

	var err error
	if req.Nodes, err = intOption(opts, OptNodes, 1); err != nil {
		return nil, err
	}
	if req.TasksPerNode, err = intOption(opts, OptTasksPerNode, 1); err != nil {
		return nil, err
	}
	if req.CPUsPerTask, err = intOption(opts, OptCPUsPerTask, 1); err != nil {
		return nil, err
	}
	if req.MemoryPerNode, err = intOption(opts, OptMemoryPerNode, 0); err != nil {
		return nil, err
	}
	if req.MemoryPerCPU, err = intOption(opts, OptMemoryPerCPU, 0); err != nil {
		return nil, err
	}
	if req.GPUs, err = intOption(opts, OptGPUs, 0); err != nil {
		return nil, err
	}

	// GPU count and raw GRES are different spellings of the same
	// reservation; accepting both would emit conflicting directives.
	if req.GPUs > 0 && req.GRES != "" {
		return nil, errdefs.InvalidParameter(OptGRES, req.GRES,
			"--gpus and --gres are mutually exclusive")
	}

	req.Interface = stringOr(opts[OptInterface], stringOr(cfg.Interface, InterfaceLab))
	if req.Interface != InterfaceLab && req.Interface != InterfaceNotebook {
		return nil, errdefs.InvalidParameter(OptInterface, req.Interface,
			"interface must be \"lab\" or \"notebook\"")
	}

	nv, err := boolOption(opts, OptNV)
	if err != nil {
		return nil, err
	}
	rocm, err := boolOption(opts, OptROCm)
	if err != nil {
		return nil, err
	}
	switch {
	case nv && rocm:
		return nil, errdefs.InvalidParameter(OptROCm, "true",
			"--nv and --rocm are mutually exclusive")
	case nv:
		req.Accelerator = AcceleratorNV
	case rocm:
		req.Accelerator = AcceleratorROCm
	}

	if binds := opts[OptBind]; binds != "" {
		req.Binds = splitList(binds)
	}
	if modules := opts[OptModules]; modules != "" {
		req.Modules = splitList(modules)
	}

	req.NotebookDir = opts[OptNotebookDir]
	if req.NotebookDir == "" {
		home, herr := os.UserHomeDir()
		if herr != nil {
			return nil, errdefs.DirectoryError("$HOME", herr)
		}
		req.NotebookDir = home
	}

	// Fail fast and cheaply: enter the notebook directory before any
	// remote call happens.
	if err := os.Chdir(req.NotebookDir); err != nil {
		return nil, errdefs.DirectoryError(req.NotebookDir, err)
	}

	return req, nil
}

func stringOr(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

func intOption(opts Options, key string, fallback int) (int, error) {
	raw, ok := opts[key]
	if !ok || raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errdefs.InvalidParameter(key, raw, "expected a non-negative integer")
	}
	return n, nil
}

func boolOption(opts Options, key string) (bool, error) {
	raw, ok := opts[key]
	if !ok || raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, errdefs.InvalidParameter(key, raw, "expected true or false")
	}
	return b, nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
