package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/micahrl/cobsync/internal/config"
	"github.com/micahrl/cobsync/internal/resource"
	"github.com/micahrl/cobsync/internal/scaffold"
)

type sampleFile struct {
	name string
	data []byte
}

func newInitCmd(g *globalOptions) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Print or write a sample config and desired-state files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Default()
			if cmd.Flags().Changed("host") {
				cfg.Host = g.host
			}
			if cmd.Flags().Changed("use-ssl") {
				cfg.UseSSL = g.useSSL
			}

			files := []sampleFile{{config.DefaultPath, scaffold.BuildConfig(scaffold.ConfigTOML, cfg.Host, cfg.UseSSL)}}
			for _, kind := range resource.Kinds {
				files = append(files, sampleFile{kind.String() + ".yaml", scaffold.Desired(kind)})
			}

			if dir == "" {
				return printSamples(cmd.OutOrStdout(), files)
			}
			return writeSamples(cmd.ErrOrStderr(), dir, files)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "write the files into this directory instead of printing them")
	return cmd
}

func printSamples(w io.Writer, files []sampleFile) error {
	for i, f := range files {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "# ==> %s <==\n", f.name)
		if _, err := w.Write(f.data); err != nil {
			return err
		}
	}
	return nil
}

// writeSamples creates each file in dir, refusing to overwrite existing ones.
func writeSamples(progress io.Writer, dir string, files []sampleFile) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "creating %s", dir)
	}
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			return errors.Wrapf(err, "creating %s", path)
		}
		_, err = out.Write(f.data)
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return errors.Wrapf(err, "writing %s", path)
		}
		fmt.Fprintf(progress, "Wrote %s\n", path)
	}
	return nil
}
