package converge

import (
	"fmt"

	"github.com/micahrl/cobsync/internal/resource"
)

// MutationError reports a failed create, modify, save or remove call. The
// server may hold a partially applied change; nothing is rolled back.
type MutationError struct {
	Op       string // remote procedure, e.g. modify_distro
	Kind     resource.Kind
	Name     string
	Property string // set for modify calls
	Value    any
	Err      error
}

func (e *MutationError) Error() string {
	if e.Property != "" {
		return fmt.Sprintf("unable to change '%s' to '%v' on %s '%s': %v", e.Property, e.Value, e.Kind, e.Name, e.Err)
	}
	return fmt.Sprintf("%s '%s' failed: %v", e.Op, e.Name, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }

// SyncError reports a failed sync call. All convergence work before it has
// already been committed on the server.
type SyncError struct {
	Err error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("failed to sync Cobbler: %v", e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }
