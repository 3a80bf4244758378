package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/micahrl/cobsync/internal/config"
	"github.com/micahrl/cobsync/internal/logging"
	"github.com/micahrl/cobsync/internal/resource"
)

var version = "dev"

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	logLevel   string
	debug      bool

	host          string
	port          int
	username      string
	password      string
	useSSL        bool
	validateCerts bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fatal("%v", err)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "cobsync",
		Short: "Converge Cobbler distros and profiles to a desired state",
		Long: "cobsync creates, updates, removes and queries Cobbler distros and profiles\n" +
			"over the Cobbler XML-RPC API.\n\n" +
			"Connection settings are read from " + config.DefaultPath + ", then the environment,\n" +
			"then flags.\n\n" + config.EnvUsage(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", config.DefaultPath, "path to config file")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	pf.StringVar(&opts.host, "host", "", "Cobbler server name or address")
	pf.IntVar(&opts.port, "port", 0, "Cobbler port")
	pf.StringVar(&opts.username, "username", "", "Cobbler username")
	pf.StringVar(&opts.password, "password", "", "Cobbler password")
	pf.BoolVar(&opts.useSSL, "use-ssl", true, "use HTTPS")
	pf.BoolVar(&opts.validateCerts, "validate-certs", true, "validate TLS certificates")

	for _, kind := range resource.Kinds {
		root.AddCommand(newResourceCmd(opts, kind))
	}
	root.AddCommand(newInitCmd(opts))
	root.AddCommand(newVersionCmd())

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

func (o *globalOptions) logger() zerolog.Logger {
	return logging.New(os.Stderr, logging.Level(o.logLevel, o.debug))
}

// loadConfig layers the config file and environment, then any flag the user
// actually set.
func (o *globalOptions) loadConfig(cmd *cobra.Command, log zerolog.Logger) (config.Config, error) {
	optional := !cmd.Flags().Changed("config")
	cfg, unknown, err := config.Load(o.configPath, optional)
	if err != nil {
		return cfg, err
	}
	for _, key := range unknown {
		log.Warn().Str("file", o.configPath).Str("key", key).Msg("unknown config key")
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Host = o.host
	}
	if flags.Changed("port") {
		cfg.Port = o.port
	}
	if flags.Changed("username") {
		cfg.Username = o.username
	}
	if flags.Changed("password") {
		cfg.Password = o.password
	}
	if flags.Changed("use-ssl") {
		cfg.UseSSL = o.useSSL
	}
	if flags.Changed("validate-certs") {
		cfg.ValidateCerts = o.validateCerts
	}

	return cfg, cfg.Validate()
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}
