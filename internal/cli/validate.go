package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gxo-labs/statekit/internal/config"
	skcatalog "github.com/gxo-labs/statekit/pkg/statekit/v1/catalog"
	skerrors "github.com/gxo-labs/statekit/pkg/statekit/v1/errors"
)

// ValidationResult is the outcome of validate.
type ValidationResult struct {
	Valid       bool   `json:"valid"`
	Store       string `json:"store,omitempty"`
	Invocations int    `json:"invocations"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a run config without running it",
		Long: `Validate a run config: schema, schemaVersion, field values, the store
name against the catalog, params against the store factory, and every
invoked action against the store definition.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, path, cmd)
		},
	}
	cmd.Flags().StringVar(&path, "config", "", "path to the run config YAML file (required)")
	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	if path == "" {
		return NewExitError(ExitUsageError, "--config is required")
	}
	formatter := opts.formatter(cmd)
	log := opts.newLogger(cmd.ErrOrStderr())

	fail := func(err error) error {
		if formatter.JSON() {
			if rErr := formatter.Respond(ValidationResult{Valid: false}, ErrCodeUsage, err); rErr != nil {
				return rErr
			}
		}
		return WrapExitError(ExitUsageError, "run config is invalid", err)
	}

	cfg, err := config.LoadFile(path)
	if err != nil {
		return fail(err)
	}
	factory, err := opts.registry().Get(cfg.Store)
	if err != nil {
		return fail(err)
	}
	def, err := factory(skcatalog.Deps{Log: log, Params: cfg.Params})
	if err != nil {
		return fail(err)
	}
	for i, inv := range cfg.Invoke {
		if _, ok := def.Actions[inv.Action]; !ok {
			return fail(skerrors.NewValidationError(fmt.Sprintf("invoke %d: store '%s' has no action '%s'", i, cfg.Store, inv.Action), nil))
		}
	}

	result := ValidationResult{Valid: true, Store: cfg.Store, Invocations: len(cfg.Invoke)}
	if formatter.JSON() {
		return formatter.Respond(result, "", nil)
	}
	formatter.Printf("valid: store '%s', %d invocation(s)\n", result.Store, result.Invocations)
	return nil
}
