// Command dqcsim is the command-line front end for a simulation run
// (spec.md §6): it assembles a config.SimulatorConfig from flags and
// positional plugin specifications, drives a pipeline.Controller through
// its host calls, and optionally records or replays a reproduction file.
// Grounded on the original source's dqcsim-cli/src/arg_parse/{opts,
// plugins}.rs for the flag surface, adapted from StructOpt's declarative
// derive onto github.com/spf13/cobra + github.com/spf13/pflag (pack:
// teranos-QNTX's cmd/qntx/main.go), the same CLI stack teranos-QNTX uses.
package main

import (
	"fmt"
	"net/http"
	"os"
	"os/user"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/dqcsim/dqcsim/clihost"
	"github.com/dqcsim/dqcsim/config"
	"github.com/dqcsim/dqcsim/internal/dqlog"
	"github.com/dqcsim/dqcsim/internal/types"
	"github.com/dqcsim/dqcsim/pipeline"
	"github.com/dqcsim/dqcsim/repro"
)

// cliOpts mirrors DQCsimStructOpt: the flat set of flags accepted at the
// top level, before per-plugin positional arguments.
type cliOpts struct {
	calls          []string
	hostStdout     bool
	reproOut       string
	noReproOut     bool
	reproPathStyle string
	reproduce      string
	reproduceExact string
	seed           string
	stderrLevel    string
	tee            []string
	dqcsimLevel    string
	metricsAddr    string
	pluginLevel    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts cliOpts

	cmd := &cobra.Command{
		Use:   "dqcsim <plugin>...",
		Short: "Run a pipelined quantum-classical simulation",
		Long: `dqcsim spawns a pipeline of plugins (one frontend, any number of
operators, one backend) and drives the frontend's accelerator program
through a sequence of host calls.

Plugins are given in pipeline order: the first is the frontend, the last
is the backend, and everything between is an operator. Each plugin is
given as an executable path, optionally prefixed with name= to give the
plugin an explicit name (name=executable).`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts, args)
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVarP(&opts.calls, "call", "C", nil, "a host call to perform, in the mini-language of spec.md §6 (repeatable)")
	flags.BoolVar(&opts.hostStdout, "host-stdout", false, "also print the accelerator's output to stdout")
	flags.StringVar(&opts.reproOut, "repro-out", "", "write a reproduction file to this path after the run")
	flags.BoolVar(&opts.noReproOut, "no-repro-out", false, "disable writing a reproduction file")
	flags.StringVar(&opts.reproPathStyle, "repro-paths", "keep", "how to record plugin paths: keep, relative, or absolute")
	flags.StringVar(&opts.reproduce, "reproduce", "", "replay the host calls recorded in this reproduction file")
	flags.StringVar(&opts.reproduceExact, "reproduce-exactly", "", "like --reproduce, but also restores the recorded seed")
	flags.StringVar(&opts.seed, "seed", "", "PRNG seed: a number, or a string to hash into one")
	flags.StringVarP(&opts.stderrLevel, "level", "l", "info", "stderr log level: critical, error, warning, notice, info, or debug")
	flags.StringArrayVarP(&opts.tee, "tee", "T", nil, "an additional log file, as level:filename (repeatable)")
	flags.StringVar(&opts.dqcsimLevel, "dqcsim-level", "debug", "log level for DQCsim's own internal messages (stored in the simulator configuration; DQCsim's messages are filtered only by the --level and --tee sink levels)")
	flags.StringVar(&opts.pluginLevel, "plugin-level", "debug", "default log level for plugins that don't override it")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "if set, serve Prometheus metrics at http://<addr>/metrics for the duration of the run")

	return cmd
}

// serveMetrics starts a background HTTP server exposing /metrics on addr,
// mirroring the common promhttp.Handler()-on-a-ServeMux idiom. The server is
// best-effort: a failure to bind only logs a warning, since metrics are a
// diagnostic surface and must never block a simulation run from starting.
func serveMetrics(addr string, log *dqlog.Logger) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Warningf("metrics server on %s: %s", addr, err)
		}
	}()
}

func run(opts cliOpts, pluginPaths []string) error {
	if opts.reproduce != "" && opts.reproduceExact != "" {
		return fmt.Errorf("--reproduce and --reproduce-exactly are mutually exclusive")
	}
	if (opts.reproduce != "" || opts.reproduceExact != "") && len(opts.calls) > 0 {
		return fmt.Errorf("--call cannot be combined with --reproduce or --reproduce-exactly")
	}

	stderrLevel, err := dqlog.ParseLevel(opts.stderrLevel)
	if err != nil {
		return fmt.Errorf("parsing --level: %w", err)
	}
	dqcsimLevel, err := dqlog.ParseLevel(opts.dqcsimLevel)
	if err != nil {
		return fmt.Errorf("parsing --dqcsim-level: %w", err)
	}
	pluginLevel, err := dqlog.ParseLevel(opts.pluginLevel)
	if err != nil {
		return fmt.Errorf("parsing --plugin-level: %w", err)
	}

	sinks := []*dqlog.Sink{dqlog.StderrSink(stderrLevel)}
	teeFiles := make([]*os.File, 0, len(opts.tee))
	defer func() {
		for _, f := range teeFiles {
			f.Close()
		}
	}()
	for _, spec := range opts.tee {
		sink, f, err := parseTee(spec)
		if err != nil {
			return err
		}
		sinks = append(sinks, sink)
		teeFiles = append(teeFiles, f)
	}
	logBackend := dqlog.NewBackend(sinks...)
	defer logBackend.Close()
	log := logBackend.GetLogger("dqcsim")
	serveMetrics(opts.metricsAddr, log)

	var cfg config.SimulatorConfig
	cfg.DQCsimLevel = int(dqcsimLevel)
	cfg.StderrLevel = int(stderrLevel)

	var calls []clihost.Call
	var rep *repro.Reproduction

	switch {
	case opts.reproduce != "" || opts.reproduceExact != "":
		path := opts.reproduce
		exact := false
		if opts.reproduceExact != "" {
			path = opts.reproduceExact
			exact = true
		}
		rep, err = repro.FromFile(path)
		if err != nil {
			return fmt.Errorf("loading reproduction file: %w", err)
		}
		calls, err = rep.ToRun(&cfg, exact)
		if err != nil {
			return fmt.Errorf("replaying reproduction file: %w", err)
		}

	default:
		cfg.Seed = seedFrom(opts.seed)
		cfg.Plugins, err = buildPlugins(pluginPaths, pluginLevel)
		if err != nil {
			return err
		}
		for _, s := range opts.calls {
			c, err := clihost.ParseCall(s)
			if err != nil {
				return fmt.Errorf("parsing --call %q: %w", s, err)
			}
			calls = append(calls, c)
		}
	}

	if err := cfg.CheckPluginList(); err != nil {
		return fmt.Errorf("invalid plugin pipeline: %w", err)
	}

	style, err := parsePathStyle(opts.reproPathStyle)
	if err != nil {
		return err
	}
	if rep == nil && !opts.noReproOut {
		workdir, _ := os.Getwd()
		rep, err = repro.NewLogger(cfg, hostname(), username(), workdir, style)
		if err != nil {
			log.Warningf("not recording a reproduction file: %s", err)
			rep = nil
		}
	}

	ctrl, err := pipeline.New(cfg, logBackend)
	if err != nil {
		return fmt.Errorf("starting pipeline: %w", err)
	}
	defer ctrl.Drop()

	for _, c := range calls {
		if rep != nil {
			rep.Record(c)
		}
		if err := perform(ctrl, c, opts.hostStdout); err != nil {
			return fmt.Errorf("host call %q: %w", c, err)
		}
	}

	if rep != nil && !opts.noReproOut {
		out := opts.reproOut
		if out == "" {
			out = "dqcsim.repro.yaml"
		}
		if err := rep.ToFile(out); err != nil {
			log.Warningf("writing reproduction file: %s", err)
		}
	}
	return nil
}

// perform drives one host call against the pipeline, matching the CLI
// loop described by dqcsim-cli's --call handling: start/send/recv/wait
// work against the host-call engine, arb dispatches to a named plugin, and
// yield flushes any pending asynchronous call.
func perform(ctrl *pipeline.Controller, c clihost.Call, hostStdout bool) error {
	eng := ctrl.Engine()
	switch c.Function {
	case clihost.Start:
		return eng.Start(c.Data)
	case clihost.Wait:
		result, err := eng.Wait()
		if err != nil {
			return err
		}
		if hostStdout {
			fmt.Fprintln(os.Stdout, result)
		}
		return nil
	case clihost.Send:
		return eng.Send(c.Data)
	case clihost.Recv:
		result, err := eng.Recv()
		if err != nil {
			return err
		}
		if hostStdout {
			fmt.Fprintln(os.Stdout, result)
		}
		return nil
	case clihost.Yield:
		return eng.Yield()
	case clihost.Arb:
		result, err := ctrl.Arb(c.Target, c.Cmd)
		if err != nil {
			return err
		}
		if hostStdout {
			fmt.Fprintln(os.Stdout, result)
		}
		return nil
	}
	return fmt.Errorf("unknown host call function")
}

// buildPlugins turns positional plugin specs into a plugin list in pipeline
// order: first is the frontend, last is the backend, everything between is
// an operator, mirroring to_run's "pretend every plugin is an operator,
// then fix up" convention used throughout the original CLI and
// reproduction file handling. Each spec is either a bare executable path,
// or name=executable to give the plugin an explicit name.
func buildPlugins(specs []string, defaultLevel dqlog.Level) ([]config.Plugin, error) {
	if len(specs) < 2 {
		return nil, fmt.Errorf("at least two plugins (a frontend and a backend) are required, got %d", len(specs))
	}
	plugins := make([]config.Plugin, len(specs))
	for i, spec := range specs {
		name, exe, _ := strings.Cut(spec, "=")
		if exe == "" {
			exe = name
			name = ""
		}
		typ := types.Operator
		switch i {
		case 0:
			typ = types.Frontend
		case len(specs) - 1:
			typ = types.Backend
		}
		p := config.NewPluginProcessConfig(name, typ, exe)
		p.Verbosity = defaultLevel
		plugins[i] = &p
	}
	return plugins, nil
}

func parseTee(spec string) (*dqlog.Sink, *os.File, error) {
	levelStr, path, ok := strings.Cut(spec, ":")
	if !ok {
		return nil, nil, fmt.Errorf("tee spec %q must be of the form level:filename", spec)
	}
	level, err := dqlog.ParseLevel(levelStr)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing tee level in %q: %w", spec, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening tee file %q: %w", path, err)
	}
	return &dqlog.Sink{Name: path, Level: level, Writer: f}, f, nil
}

func parsePathStyle(s string) (repro.PathStyle, error) {
	switch strings.ToLower(s) {
	case "keep", "":
		return repro.KeepAsTyped, nil
	case "relative":
		return repro.RelativeToWorkdir, nil
	case "absolute":
		return repro.Absolute, nil
	}
	return 0, fmt.Errorf("--repro-paths must be keep, relative, or absolute, got %q", s)
}

// seedFrom parses --seed as a decimal number, falling back to hashing the
// string with FNV-1a, mirroring opts.rs's "a u64, or a string to hash"
// --seed grammar.
func seedFrom(s string) int64 {
	if s == "" {
		return 0
	}
	var n int64
	if _, err := fmt.Sscanf(s, "%d", &n); err == nil {
		return n
	}
	return int64(fnv1a(s))
}

func fnv1a(s string) uint64 {
	const offset = 14695981039346656037
	const prime = 1099511628211
	h := uint64(offset)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime
	}
	return h
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}

func username() string {
	u, err := user.Current()
	if err != nil {
		return "unknown"
	}
	return u.Username
}
