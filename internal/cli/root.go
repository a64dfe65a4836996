// Package cli implements the statekit command line: listing the demo
// catalog, running a store from flags or a run config, and validating run
// configs.
package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/gxo-labs/statekit/internal/catalog"
	"github.com/gxo-labs/statekit/internal/logger"
	skcatalog "github.com/gxo-labs/statekit/pkg/statekit/v1/catalog"
	sklog "github.com/gxo-labs/statekit/pkg/statekit/v1/log"

	_ "github.com/gxo-labs/statekit/internal/demo/counter"
	_ "github.com/gxo-labs/statekit/internal/demo/todo"
	_ "github.com/gxo-labs/statekit/internal/demo/trades"
)

const (
	DefaultLogLevel  = "warn"
	DefaultLogFormat = "text"
)

// ValidFormats lists the accepted --format and --log-format values.
var ValidFormats = []string{"text", "json"}

// VersionInfo is stamped into the binary at build time.
type VersionInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

// RootOptions holds global flags for all commands.
type RootOptions struct {
	LogLevel  string
	LogFormat string
	Format    string

	// Registry resolves store names. Nil means the built-in catalog.
	Registry skcatalog.Registry
	Info     VersionInfo
}

func (o *RootOptions) registry() skcatalog.Registry {
	if o.Registry == nil {
		return catalog.Default
	}
	return o.Registry
}

func (o *RootOptions) newLogger(w io.Writer) sklog.Logger {
	return logger.NewLogger(o.LogLevel, o.LogFormat, w)
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr()}
}

// NewRootCommand creates the statekit root command.
func NewRootCommand(info VersionInfo) *cobra.Command {
	return newRootCommand(&RootOptions{Info: info})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "statekit",
		Short: "statekit - reactive state stores",
		Long:  "Run, inspect and validate statekit stores from the built-in catalog.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitUsageError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			if !isValidFormat(opts.LogFormat) {
				return NewExitError(ExitUsageError, fmt.Sprintf("invalid log format %q: must be one of %v", opts.LogFormat, ValidFormats))
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return WrapExitError(ExitUsageError, "invalid flags", err)
	})

	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", DefaultLogLevel, "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", DefaultLogFormat, "log format (text|json)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json)")

	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewVersionCommand(opts))
	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
