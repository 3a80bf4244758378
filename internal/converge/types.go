package converge

import (
	"fmt"
	"time"

	"github.com/micahrl/cobsync/internal/resource"
)

// State is the desired existence of a resource.
type State string

const (
	StatePresent State = "present"
	StateAbsent  State = "absent"
	StateQuery   State = "query"
)

// ParseState returns the State named by s. An empty string means present.
func ParseState(s string) (State, error) {
	switch State(s) {
	case "":
		return StatePresent, nil
	case StatePresent, StateAbsent, StateQuery:
		return State(s), nil
	}
	return "", fmt.Errorf("invalid state %q (want present, absent or query)", s)
}

// Desired is what the caller wants one distro or profile to look like.
type Desired struct {
	Kind       resource.Kind
	Name       string
	Properties resource.Properties // unset properties are left alone
	State      State
	Sync       bool // run a server-wide sync after a change
}

// Options control how a Converger applies plans.
type Options struct {
	DryRun bool // compute and report, send no mutating calls
	Diff   bool // include a before/after diff in results
}

// SetOp is a single property mutation.
type SetOp struct {
	Key     string
	Value   any
	Current any
	Known   bool // the key exists on the current resource
}

// Plan describes the remote calls needed to bring a resource to its desired
// state.
type Plan struct {
	Create  bool
	Remove  bool
	Sets    []SetOp  // sorted by key
	Unknown []string // desired keys the existing resource does not have
}

// PlanStats summarises a plan.
type PlanStats struct {
	Creates int
	Sets    int
	Removes int
}

// Diff holds the before and after snapshots of a converged resource.
type Diff struct {
	Before resource.Properties
	After  resource.Properties
}

// Result reports the outcome of one Converge call.
type Result struct {
	Kind  resource.Kind
	Name  string
	State State

	Changed bool
	DryRun  bool
	Synced  bool

	// Before is the snapshot found before converging, nil if absent.
	Before resource.Properties
	// After is the snapshot re-fetched after converging, nil if absent.
	// For named queries it is the queried resource.
	After resource.Properties
	// Resource is the typed view of After, nil if absent.
	Resource *resource.Resource
	// Collection is the full listing for an unnamed query.
	Collection []resource.Properties

	Plan     *Plan
	Diff     *Diff
	Warnings []string
	Elapsed  time.Duration
}
