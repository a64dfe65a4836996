package cli

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/gxo-labs/statekit/internal/config"
	internalevents "github.com/gxo-labs/statekit/internal/events"
	"github.com/gxo-labs/statekit/internal/metrics"
	"github.com/gxo-labs/statekit/internal/store"
	"github.com/gxo-labs/statekit/internal/tracing"
	sk "github.com/gxo-labs/statekit/pkg/statekit/v1"
	skcatalog "github.com/gxo-labs/statekit/pkg/statekit/v1/catalog"
	skerrors "github.com/gxo-labs/statekit/pkg/statekit/v1/errors"
	"github.com/gxo-labs/statekit/pkg/statekit/v1/events"
	sklog "github.com/gxo-labs/statekit/pkg/statekit/v1/log"
)

const shutdownTimeout = 5 * time.Second

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Store       string
	ConfigPath  string
	Invokes     []string
	Params      []string
	Watch       bool
	MetricsFile string
}

// RunResult is the outcome of a run.
type RunResult struct {
	Store       string                 `json:"store"`
	Version     uint64                 `json:"version"`
	State       map[string]interface{} `json:"state"`
	Queries     map[string]interface{} `json:"queries"`
	Invocations []InvocationResult     `json:"invocations,omitempty"`
	Changes     []ChangeRecord         `json:"changes,omitempty"`
}

// InvocationResult records one action call.
type InvocationResult struct {
	Action string        `json:"action"`
	Args   []interface{} `json:"args,omitempty"`
	Status string        `json:"status"`
	Error  string        `json:"error,omitempty"`
}

// ChangeRecord is a dispatch observed with --watch.
type ChangeRecord struct {
	Version  uint64      `json:"version"`
	Field    string      `json:"field"`
	Value    interface{} `json:"value"`
	Previous interface{} `json:"previous"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run actions against a store and print its final state",
		Long: `Build a store from the catalog, invoke actions in order and print the
resulting state and query values.

Invocations come from the run config's invoke list, followed by --invoke
flags. Arguments after '=' are a YAML flow list.

Example:
  statekit run --store counter --invoke increment --invoke add=2
  statekit run --config run.yaml --watch --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStore(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Store, "store", "", "catalog store name (overrides the run config)")
	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "path to a run config YAML file")
	cmd.Flags().StringArrayVar(&opts.Invokes, "invoke", nil, "action to invoke, as name or name=arg1,arg2 (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Params, "param", nil, "store param as key=value (repeatable)")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "print every dispatch")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "write Prometheus metrics to this file after the run")

	return cmd
}

// resolveRunConfig merges the run config file with command line flags.
func (o *RunOptions) resolveRunConfig() (*config.RunConfig, error) {
	cfg := &config.RunConfig{}
	if o.ConfigPath != "" {
		loaded, err := config.LoadFile(o.ConfigPath)
		if err != nil {
			return nil, WrapExitError(ExitUsageError, "invalid run config", err)
		}
		cfg = loaded
	}
	if o.Store != "" {
		cfg.Store = o.Store
	}
	if cfg.Store == "" {
		return nil, NewExitError(ExitUsageError, "a store is required: use --store or a run config")
	}

	for _, raw := range o.Params {
		key, value, err := parseParam(raw)
		if err != nil {
			return nil, WrapExitError(ExitUsageError, "invalid flags", err)
		}
		if cfg.Params == nil {
			cfg.Params = make(map[string]interface{})
		}
		cfg.Params[key] = value
	}
	for _, raw := range o.Invokes {
		inv, err := parseInvocation(raw)
		if err != nil {
			return nil, WrapExitError(ExitUsageError, "invalid flags", err)
		}
		cfg.Invoke = append(cfg.Invoke, inv)
	}
	return cfg, nil
}

func runStore(opts *RunOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	log := opts.newLogger(cmd.ErrOrStderr())

	cfg, err := opts.resolveRunConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	timeout, err := cfg.TimeoutDuration()
	if err != nil {
		return WrapExitError(ExitUsageError, "invalid timeout", err)
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	factory, err := opts.registry().Get(cfg.Store)
	if err != nil {
		return WrapExitError(ExitUsageError, "unknown store", err)
	}
	def, err := factory(skcatalog.Deps{Log: log, Params: cfg.Params})
	if err != nil {
		return WrapExitError(ExitUsageError, fmt.Sprintf("invalid params for store '%s'", cfg.Store), err)
	}

	provider := metrics.NewProcessRegistryProvider()
	tracerProvider, err := tracing.NewProviderFromEnv(ctx, log)
	if err != nil {
		log.Warnf("Failed to initialize tracing from environment: %v. Using NoOp tracer.", err)
		tracerProvider = tracing.NewNoOpProvider()
	}
	if !tracerProvider.IsEffectivelyNoOp() {
		log.Debugf("Tracing enabled, spans exported over OTLP")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Warnf("Error shutting down tracer provider: %v", err)
		}
	}()

	storeOpts := []sk.StoreOption{
		sk.WithLogger(log),
		sk.WithMetricsRegistryProvider(provider),
		sk.WithTracerProvider(tracerProvider),
	}
	stopEvents := func() {}
	if cfg.EventsEnabled() {
		bus, stop, err := startEventListener(ctx, cfg.BufferSize(), provider.Registry(), log)
		if err != nil {
			return err
		}
		stopEvents = stop
		defer stop()
		storeOpts = append(storeOpts, sk.WithEventBus(bus))
	}
	storeOpts = append(storeOpts, cfg.StoreOptions()...)

	s, err := store.New(log, def, storeOpts...)
	if err != nil {
		return WrapExitError(ExitUsageError, fmt.Sprintf("cannot build store '%s'", cfg.Store), err)
	}
	defer s.Close()

	result := RunResult{Store: s.Name()}
	var outMu sync.Mutex
	if opts.Watch {
		s.Subscribe(func(c sk.Change) error {
			outMu.Lock()
			defer outMu.Unlock()
			if formatter.JSON() {
				result.Changes = append(result.Changes, ChangeRecord{Version: c.Version, Field: c.Field, Value: c.Value, Previous: c.Previous})
				return nil
			}
			formatter.Printf("change v%d %s: %s -> %s\n", c.Version, c.Field, formatValue(c.Previous), formatValue(c.Value))
			return nil
		})
	}

	var runErr error
	for _, inv := range cfg.Invoke {
		err := s.Invoke(ctx, inv.Action, inv.Args...)
		rec := InvocationResult{Action: inv.Action, Args: inv.Args, Status: "ok"}
		if err != nil {
			rec.Status = "failed"
			rec.Error = err.Error()
		}

		outMu.Lock()
		result.Invocations = append(result.Invocations, rec)
		if !formatter.JSON() {
			label := inv.Action
			if len(inv.Args) > 0 {
				label = fmt.Sprintf("%s(%s)", inv.Action, formatArgs(inv.Args))
			}
			if err != nil {
				formatter.Printf("invoke %s: failed: %v\n", label, err)
			} else {
				formatter.Printf("invoke %s: ok\n", label)
			}
		}
		outMu.Unlock()

		if err != nil {
			if inv.IgnoreErrors && ctx.Err() == nil {
				log.Warnf("Action '%s' failed, continuing: %v", inv.Action, err)
				continue
			}
			runErr = err
			break
		}
	}

	fillState(&result, s)
	if err := s.Close(); err != nil {
		log.Warnf("Error closing store: %v", err)
	}
	stopEvents()
	if opts.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(opts.MetricsFile, provider.Registry()); err != nil {
			log.Errorf("Failed to write metrics file '%s': %v", opts.MetricsFile, err)
		}
	}

	exitErr, code := classify(runErr)
	if formatter.JSON() {
		var respErr error
		if exitErr != nil {
			respErr = exitErr.Err
		}
		if err := formatter.Respond(result, code, respErr); err != nil {
			return err
		}
	} else {
		printResult(formatter, s, &result)
	}
	if exitErr != nil {
		return exitErr
	}
	return nil
}

// startEventListener wires a channel bus to the event counter. The returned
// stop function closes the bus and waits for the listener to drain it; it may
// be called more than once.
func startEventListener(ctx context.Context, size int, reg prometheus.Registerer, log sklog.Logger) (events.Bus, func(), error) {
	bus := internalevents.NewChannelEventBus(size, log)
	listener, err := internalevents.NewMetricsEventListener(bus, reg, log, func(e events.Event) {
		log.Debugf("Event %s store=%s action=%s field=%s", e.Type, e.StoreName, e.Action, e.Field)
	})
	if err != nil {
		bus.Close()
		return nil, nil, WrapExitError(ExitFailure, "cannot start event listener", err)
	}
	listenCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	go func() {
		defer close(done)
		listener.Start(listenCtx)
	}()
	var once sync.Once
	return bus, func() {
		once.Do(func() {
			bus.Close()
			<-done
			cancel()
			if n := bus.Dropped(); n > 0 {
				log.Warnf("Event buffer full, %d event(s) dropped", n)
			}
		})
	}, nil
}

func fillState(result *RunResult, s *store.Store) {
	snap := s.State()
	result.Version = snap.Version()
	result.State = snap.ToMap()
	result.Queries = make(map[string]interface{}, len(s.QueryNames()))
	for _, name := range s.QueryNames() {
		v, err := s.Query(name)
		if err != nil {
			result.Queries[name] = "error: " + err.Error()
			continue
		}
		result.Queries[name] = v
	}
}

func printResult(f *OutputFormatter, s *store.Store, result *RunResult) {
	f.Printf("store: %s\n", result.Store)
	f.Printf("version: %d\n", result.Version)
	f.Printf("state:\n")
	for _, name := range s.Fields() {
		f.Printf("  %s: %s\n", name, formatValue(result.State[name]))
	}
	if len(result.Queries) == 0 {
		return
	}
	f.Printf("queries:\n")
	for _, name := range s.QueryNames() {
		f.Printf("  %s: %s\n", name, formatValue(result.Queries[name]))
	}
}

// classify maps an invocation error to an exit error and a JSON error code.
func classify(err error) (*ExitError, string) {
	var nameErr *skerrors.UnknownNameError
	switch {
	case err == nil:
		return nil, ""
	case errors.Is(err, context.DeadlineExceeded):
		return WrapExitError(ExitTimeout, "run timed out", err), ErrCodeTimeout
	case errors.Is(err, context.Canceled):
		return WrapExitError(ExitSigInt, "run interrupted", err), ErrCodeInterrupted
	case errors.As(err, &nameErr):
		return WrapExitError(ExitUsageError, "invalid invocation", err), ErrCodeUsage
	case !skerrors.IsActionFailure(err) && skerrors.IsProgrammingError(err):
		return WrapExitError(ExitUsageError, "invalid invocation", err), ErrCodeUsage
	default:
		return WrapExitError(ExitFailure, "action failed", err), ErrCodeAction
	}
}
