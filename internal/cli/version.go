package cli

import (
	"runtime"

	"github.com/spf13/cobra"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			info := rootOpts.Info
			if f.JSON() {
				return f.Respond(map[string]string{
					"version":    info.Version,
					"commit":     info.Commit,
					"built":      info.BuildDate,
					"go_version": runtime.Version(),
					"os_arch":    runtime.GOOS + "/" + runtime.GOARCH,
				}, "", nil)
			}
			f.Printf("statekit version %s\n", info.Version)
			f.Printf("commit: %s\n", info.Commit)
			f.Printf("built: %s\n", info.BuildDate)
			f.Printf("go version: %s\n", runtime.Version())
			f.Printf("os/arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
			return nil
		},
	}
}
