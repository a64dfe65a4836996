package cli

import (
	"sort"
	"strings"

	"github.com/spf13/cobra"

	sk "github.com/gxo-labs/statekit/pkg/statekit/v1"
	skcatalog "github.com/gxo-labs/statekit/pkg/statekit/v1/catalog"
)

// StoreInfo describes one catalog entry.
type StoreInfo struct {
	Name    string   `json:"name"`
	Fields  []string `json:"fields"`
	Queries []string `json:"queries"`
	Actions []string `json:"actions"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the stores in the catalog",
		Long: `List every store in the catalog with its state fields, queries and
actions. Stores are described with their default params.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(rootOpts, cmd)
		},
	}
}

func runList(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	log := opts.newLogger(cmd.ErrOrStderr())
	reg := opts.registry()

	var infos []StoreInfo
	for _, name := range reg.List() {
		factory, err := reg.Get(name)
		if err != nil {
			return err
		}
		def, err := factory(skcatalog.Deps{Log: log})
		if err != nil {
			return WrapExitError(ExitFailure, "describe store '"+name+"'", err)
		}
		infos = append(infos, describe(name, def))
	}

	if formatter.JSON() {
		return formatter.Respond(infos, "", nil)
	}
	for _, info := range infos {
		formatter.Printf("%s\n", info.Name)
		formatter.Printf("  fields:  %s\n", strings.Join(info.Fields, ", "))
		formatter.Printf("  queries: %s\n", strings.Join(info.Queries, ", "))
		formatter.Printf("  actions: %s\n", strings.Join(info.Actions, ", "))
	}
	return nil
}

func describe(name string, def sk.Definition) StoreInfo {
	info := StoreInfo{Name: name, Fields: []string{}, Queries: []string{}, Actions: []string{}}
	for _, f := range def.State {
		info.Fields = append(info.Fields, f.Name)
	}
	for q := range def.Queries {
		info.Queries = append(info.Queries, q)
	}
	for a := range def.Actions {
		info.Actions = append(info.Actions, a)
	}
	sort.Strings(info.Queries)
	sort.Strings(info.Actions)
	return info
}
