package converge

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/micahrl/cobsync/internal/cobbler"
	"github.com/micahrl/cobsync/internal/resource"
)

// Converger drives one authenticated session against a Cobbler server.
type Converger struct {
	client cobbler.Client
	token  cobbler.Token
	opts   Options
	log    zerolog.Logger
}

// New returns a Converger using an already authenticated session.
func New(client cobbler.Client, token cobbler.Token, opts Options, log zerolog.Logger) *Converger {
	return &Converger{client: client, token: token, opts: opts, log: log}
}

// Login authenticates against the server and returns a Converger for the
// resulting session.
func Login(ctx context.Context, client cobbler.Client, username, password string, opts Options, log zerolog.Logger) (*Converger, error) {
	token, err := client.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("username", username).Msg("authenticated")
	return New(client, token, opts, log), nil
}

// Converge brings one resource to its desired state, or queries it.
func (c *Converger) Converge(ctx context.Context, desired Desired) (*Result, error) {
	start := time.Now()
	if errs := desired.Validate(); len(errs) > 0 {
		return nil, errors.Errorf("invalid desired state: %v", errs[0])
	}

	log := c.log.With().Str("kind", desired.Kind.String()).Str("name", desired.Name).Logger()
	res := &Result{
		Kind:   desired.Kind,
		Name:   desired.Name,
		State:  desired.State,
		DryRun: c.opts.DryRun,
	}

	if desired.State == StateQuery {
		if err := c.query(ctx, desired, res); err != nil {
			return nil, err
		}
		res.Elapsed = time.Since(start)
		return res, nil
	}

	before, err := c.lookup(ctx, desired.Kind, desired.Name)
	if err != nil {
		return nil, err
	}
	var current *resource.Resource
	if before != nil {
		current = resource.FromSnapshot(desired.Kind, before)
	}
	res.Before = current.Snapshot()

	plan := ComputePlan(&desired, current)
	res.Plan = plan
	res.Changed = plan.Changed()
	for _, key := range plan.Unknown {
		msg := fmt.Sprintf("Property '%s' is not a valid %s property.", key, desired.Kind)
		res.Warnings = append(res.Warnings, msg)
		log.Warn().Str("property", key).Msg(msg)
	}
	log.Info().Str("plan", plan.Stats().String()).Bool("dry_run", c.opts.DryRun).Msg("computed plan")

	if err := c.apply(ctx, desired, plan, log); err != nil {
		return nil, err
	}

	if desired.Sync && res.Changed && !c.opts.DryRun {
		log.Info().Msg("syncing")
		if err := c.client.Sync(ctx, c.token); err != nil {
			return nil, &SyncError{Err: err}
		}
		res.Synced = true
	}

	after, err := c.lookup(ctx, desired.Kind, desired.Name)
	if err != nil {
		return nil, err
	}
	res.After = after
	res.Resource = typed(desired.Kind, after)

	if c.opts.Diff {
		res.Diff = &Diff{Before: before, After: after}
		if c.opts.DryRun {
			res.Diff.After = plan.Predict(desired.Name, before)
		}
	}

	res.Elapsed = time.Since(start)
	return res, nil
}

func (c *Converger) query(ctx context.Context, desired Desired, res *Result) error {
	if len(desired.Properties) > 0 {
		c.log.Debug().Strs("properties", desired.Properties.Keys()).Msg("properties ignored for query")
	}
	if desired.Name == "" {
		items, err := c.client.List(ctx, desired.Kind)
		if err != nil {
			return errors.Wrapf(err, "listing %s", desired.Kind.Plural())
		}
		res.Collection = items
		return nil
	}
	item, err := c.lookup(ctx, desired.Kind, desired.Name)
	if err != nil {
		return err
	}
	res.Before = item
	res.After = item
	res.Resource = typed(desired.Kind, item)
	return nil
}

func typed(kind resource.Kind, snap resource.Properties) *resource.Resource {
	if snap == nil {
		return nil
	}
	return resource.FromSnapshot(kind, snap)
}

func (c *Converger) lookup(ctx context.Context, kind resource.Kind, name string) (resource.Properties, error) {
	item, err := cobbler.Lookup(ctx, c.client, kind, name, c.token)
	if err != nil {
		return nil, errors.Wrapf(err, "looking up %s '%s'", kind, name)
	}
	return item, nil
}

func (c *Converger) apply(ctx context.Context, desired Desired, plan *Plan, log zerolog.Logger) error {
	if !plan.Changed() {
		log.Debug().Msg("already converged")
		return nil
	}
	if c.opts.DryRun {
		log.Info().Msg("dry run, no changes sent")
		return nil
	}

	kind, name := desired.Kind, desired.Name

	if plan.Remove {
		if err := c.client.Remove(ctx, kind, name, c.token); err != nil {
			return &MutationError{Op: "remove_" + kind.String(), Kind: kind, Name: name, Err: err}
		}
		log.Info().Msg("removed")
		return nil
	}

	var h cobbler.Handle
	var err error
	if plan.Create {
		h, err = c.client.New(ctx, kind, c.token)
		if err != nil {
			return &MutationError{Op: "new_" + kind.String(), Kind: kind, Name: name, Err: err}
		}
		if err := c.modify(ctx, kind, name, h, "name", name); err != nil {
			return err
		}
	} else {
		h, err = c.client.Handle(ctx, kind, name, c.token)
		if err != nil {
			return &MutationError{Op: "get_" + kind.String() + "_handle", Kind: kind, Name: name, Err: err}
		}
	}

	for _, op := range plan.Sets {
		if err := c.modify(ctx, kind, name, h, op.Key, op.Value); err != nil {
			return err
		}
	}

	if err := c.client.Save(ctx, kind, h, c.token); err != nil {
		return &MutationError{Op: "save_" + kind.String(), Kind: kind, Name: name, Err: err}
	}
	if plan.Create {
		log.Info().Int("properties", len(plan.Sets)).Msg("created")
	} else {
		log.Info().Int("properties", len(plan.Sets)).Msg("updated")
	}
	return nil
}

func (c *Converger) modify(ctx context.Context, kind resource.Kind, name string, h cobbler.Handle, key string, value any) error {
	c.log.Debug().Str("property", key).Msg("modify")
	if err := c.client.Modify(ctx, kind, h, key, value, c.token); err != nil {
		return &MutationError{Op: "modify_" + kind.String(), Kind: kind, Name: name, Property: key, Value: value, Err: err}
	}
	return nil
}
