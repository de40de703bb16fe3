package session

import "strconv"

// Interface kinds the launcher recognizes.
const (
	InterfaceLab      = "lab"
	InterfaceNotebook = "notebook"
)

// Accelerator flavors for the container wrapper.
const (
	AcceleratorNone = "none"
	AcceleratorNV   = "nv"
	AcceleratorROCm = "rocm"
)

// Request is a validated, normalized launch request. It is built once
// by Resolve and never mutated afterwards.
type Request struct {
	// Scheduler fields, mapped 1:1 onto batch directives.
	Account      string
	Reservation  string
	Partition    string
	QOS          string
	Nodes        int
	TasksPerNode int
	CPUsPerTask  int

	// Memory is specified either per node or per CPU, in gigabytes.
	// Per-node is authoritative when both are given.
	MemoryPerNode int
	MemoryPerCPU  int

	// GPUs and GRES are mutually exclusive; Resolve rejects both.
	GPUs int
	GRES string

	TimeLimit  string
	Constraint string

	// Interface fields.
	Interface   string
	NotebookDir string

	// Container fields. Image empty means no container wrapper.
	Image       string
	Binds       []string
	Accelerator string

	// Environment fields. Modules keeps the user's load order.
	Modules  []string
	CondaEnv string
}

// MemoryDirective returns the batch memory directive for the request,
// honoring the per-node-wins rule, or "" when no memory was requested.
func (r *Request) MemoryDirective() string {
	if r.MemoryPerNode > 0 {
		return "--mem=" + strconv.Itoa(r.MemoryPerNode) + "G"
	}
	if r.MemoryPerCPU > 0 {
		return "--mem-per-cpu=" + strconv.Itoa(r.MemoryPerCPU) + "G"
	}
	return ""
}

// AcceleratorDirective returns the single accelerator directive for the
// request, or "" when neither GPUs nor GRES was requested.
func (r *Request) AcceleratorDirective() string {
	if r.GPUs > 0 {
		return "--gpus=" + strconv.Itoa(r.GPUs)
	}
	if r.GRES != "" {
		return "--gres=" + r.GRES
	}
	return ""
}
