package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Identity names one launch invocation. The name combines a
// human-readable prefix, a timestamp, the unix time and a random
// component, so concurrent invocations by the same or different users
// get distinct script names without any coordination. Uniqueness is
// probabilistic; the generator's create-only file check catches the
// astronomically unlikely collision.
type Identity struct {
	Prefix    string
	CreatedAt time.Time
	Rand      string
}

// NewIdentity mints a fresh identity with the given prefix.
func NewIdentity(prefix string) Identity {
	return Identity{
		Prefix:    prefix,
		CreatedAt: time.Now(),
		Rand:      strings.ReplaceAll(uuid.NewString(), "-", "")[:8],
	}
}

// Name returns the session name used for the script file and job name.
func (id Identity) Name() string {
	return fmt.Sprintf("%s-%s-%d-%s",
		id.Prefix,
		id.CreatedAt.Format("20060102T150405"),
		id.CreatedAt.Unix(),
		id.Rand)
}

// NewServerToken returns the per-session secret the Jupyter server is
// started with. It rides on the final access URL as a query parameter.
func NewServerToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
