// Package port picks unused ephemeral ports on a shared compute node.
//
// The allocation is a best-effort check against the node's listening
// socket table, not a reservation: another process can bind the chosen
// port between the check and the server's own bind. The server start
// step treats that bind failure as fatal, so correctness rests on the
// bind failing loudly rather than on the check being authoritative.
package port

import (
	"fmt"
	"math/rand"
)

// Registered ephemeral port range. The lower bound is the IANA dynamic
// range start; the upper bound is the end of the port space.
const (
	EphemeralLow  = 49152
	EphemeralHigh = 65535
)

// Table reports whether a port currently has an active listener.
type Table interface {
	InUse(port int) bool
}

// TableFunc adapts a function to the Table interface.
type TableFunc func(port int) bool

// InUse implements Table.
func (f TableFunc) InUse(port int) bool { return f(port) }

// Allocate samples candidates uniformly from the ephemeral range until
// one has no active listener. There is no cap on the number of samples;
// on a node whose ephemeral range is nearly exhausted this loops until
// a port frees up, which is a known liveness risk accepted because the
// range is large relative to concurrent usage.
func Allocate(rng *rand.Rand, tbl Table) int {
	for {
		candidate := EphemeralLow + rng.Intn(EphemeralHigh-EphemeralLow+1)
		if !tbl.InUse(candidate) {
			return candidate
		}
	}
}

// ShellFragment returns the same sample-until-free loop as Allocate,
// expressed in bash for embedding into generated batch scripts. The
// chosen port lands in the shell variable named by varName. The loop
// samples with shuf and checks the listener table with ss, mirroring
// the Go implementation's range and acceptance rule.
func ShellFragment(varName string) string {
	return fmt.Sprintf(`while true; do
    %[1]s="$(shuf -i %[2]d-%[3]d -n 1)"
    if ! ss -Htan 2>/dev/null | awk '{print $4}' | grep -q ":${%[1]s}$"; then
        break
    fi
done`, varName, EphemeralLow, EphemeralHigh)
}
