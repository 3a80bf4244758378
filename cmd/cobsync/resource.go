package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/micahrl/cobsync/internal/cobbler"
	"github.com/micahrl/cobsync/internal/converge"
	"github.com/micahrl/cobsync/internal/desired"
	"github.com/micahrl/cobsync/internal/report"
	"github.com/micahrl/cobsync/internal/resource"
)

// resourceOptions are the flags of the distro and profile commands.
type resourceOptions struct {
	name   string
	state  string
	sets   []string
	file   string
	sync   bool
	check  bool
	diff   bool
	output string
}

var errValidation = errors.New("validation failed")

func newResourceCmd(g *globalOptions, kind resource.Kind) *cobra.Command {
	opts := &resourceOptions{}

	cmd := &cobra.Command{
		Use:   kind.String(),
		Short: fmt.Sprintf("Create, update, remove or query a Cobbler %s", kind),
		Example: fmt.Sprintf("  cobsync %[1]s --name example --set comment=hello --diff\n"+
			"  cobsync %[1]s --file %[1]s.yaml --check\n"+
			"  cobsync %[1]s --state query", kind),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runResource(cmd, g, opts, kind)
		},
	}

	opts.bind(cmd.Flags())
	return cmd
}

func (o *resourceOptions) bind(f *pflag.FlagSet) {
	f.StringVar(&o.name, "name", "", "resource name")
	f.StringVar(&o.state, "state", "", "desired state: present, absent or query (default present)")
	f.StringArrayVar(&o.sets, "set", nil, "property to set as key=value (repeatable)")
	f.StringVarP(&o.file, "file", "f", "", "desired-state YAML or JSON file")
	f.BoolVar(&o.sync, "sync", false, "run a Cobbler sync after a change")
	f.BoolVar(&o.check, "check", false, "dry run: report what would change without changing it")
	f.BoolVar(&o.diff, "diff", false, "include a before/after diff")
	f.StringVarP(&o.output, "output", "o", string(report.FormatText), "output format: json, yaml or text")
}

func runResource(cmd *cobra.Command, g *globalOptions, opts *resourceOptions, kind resource.Kind) error {
	log := g.logger()

	format, err := report.ParseFormat(opts.output)
	if err != nil {
		return err
	}

	want, err := buildDesired(cmd, opts, kind)
	if err != nil {
		return err
	}
	logDesired(log, want)
	if verrs := want.Validate(); len(verrs) > 0 {
		fmt.Fprintf(os.Stderr, "Validation errors:\n")
		for _, e := range verrs {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", e.Field, e.Message)
		}
		return errValidation
	}
	for _, key := range want.Properties.Keys() {
		if _, ok := kind.Lookup(key); !ok {
			log.Warn().Str("property", key).Msgf("%s is not a known %s field", key, kind)
		}
	}

	cfg, err := g.loadConfig(cmd, log)
	if err != nil {
		return err
	}

	rpc, err := cobbler.Dial(cfg.Conn(), log)
	if err != nil {
		return err
	}
	defer rpc.Close()

	ctx := cmd.Context()
	log.Info().Str("url", rpc.URL()).Str("username", cfg.Username).Msg("connecting")
	conv, err := converge.Login(ctx, rpc, cfg.Username, cfg.Password, converge.Options{
		DryRun: opts.check,
		Diff:   opts.diff,
	}, log)
	if err != nil {
		return err
	}

	res, err := conv.Converge(ctx, want)
	if err != nil {
		return err
	}
	return report.Write(cmd.OutOrStdout(), format, res)
}

// buildDesired combines the desired-state file with the command line. Flags
// the user set win over the file; --set entries override file properties key
// by key.
func buildDesired(cmd *cobra.Command, opts *resourceOptions, kind resource.Kind) (converge.Desired, error) {
	want := converge.Desired{Kind: kind}

	var file desired.File
	if opts.file != "" {
		f, err := desired.ParseFile(opts.file)
		if err != nil {
			return want, err
		}
		if f.Kind != "" {
			fileKind, err := resource.ParseKind(f.Kind)
			if err != nil {
				return want, errors.Wrap(err, opts.file)
			}
			if fileKind != kind {
				return want, errors.Errorf("%s describes a %s, not a %s", opts.file, fileKind, kind)
			}
		}
		file = *f
	}

	flags := cmd.Flags()

	want.Name = file.Name
	if flags.Changed("name") {
		want.Name = opts.name
	}

	rawState := file.State
	if flags.Changed("state") {
		rawState = opts.state
	}
	state, err := converge.ParseState(rawState)
	if err != nil {
		return want, err
	}
	want.State = state

	if file.Sync != nil {
		want.Sync = *file.Sync
	}
	if flags.Changed("sync") {
		want.Sync = opts.sync
	}

	assigned, err := desired.ParseAssignments(kind, opts.sets)
	if err != nil {
		return want, err
	}
	want.Properties = desired.Merge(file.Properties, assigned)

	return want, nil
}

func logDesired(log zerolog.Logger, want converge.Desired) {
	log.Debug().
		Str("kind", want.Kind.String()).
		Str("name", want.Name).
		Str("state", string(want.State)).
		Bool("sync", want.Sync).
		Strs("properties", want.Properties.Keys()).
		Msg("desired state")
}
