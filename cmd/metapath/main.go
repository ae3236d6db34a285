// Command metapath compiles and evaluates Metapath expressions against
// JSON and YAML documents.
//
//	metapath eval -e "//control/@id" -f catalog.json
//	metapath check -e "for $c in //control return $c/title" --tree
//	metapath functions --prefix array
//
// Settings are read from ~/.config/metapath/config.yaml, then from the
// file named by --config or METAPATH_CONFIG; flags override both.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/wandmagic/metapath"
	"github.com/wandmagic/metapath/pkg/cst"
	"github.com/wandmagic/metapath/pkg/evaluator"
	"github.com/wandmagic/metapath/pkg/ext/extutil"
	"github.com/wandmagic/metapath/pkg/item"
	"github.com/wandmagic/metapath/pkg/metrics"
	"github.com/wandmagic/metapath/pkg/model/memdoc"
	"github.com/wandmagic/metapath/pkg/types"
)

const appName = "metapath"

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// app carries the state shared by the subcommands.
type app struct {
	configPath string
	logLevel   string
	logFormat  string
	extensions bool
	timezone   string

	cfg    *Config
	logger *slog.Logger
}

func rootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Evaluate Metapath expressions",
		Long:          `metapath compiles Metapath expressions and evaluates them against JSON or YAML documents.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "Config file path (YAML); defaults to $"+ConfigEnv)
	flags.StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&a.logFormat, "log-format", "", "Log format (text, json)")
	flags.BoolVar(&a.extensions, "ext", false, "Enable the ext: extension functions")
	flags.StringVar(&a.timezone, "timezone", "", "Implicit timezone, Z or ±hh:mm")

	cmd.AddCommand(a.evalCmd(), a.checkCmd(), a.functionsCmd(), versionCmd())
	return cmd
}

// setup loads the configuration, applies flag overrides and installs the
// logger.
func (a *app) setup(cmd *cobra.Command) error {
	bootstrap := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
	cfg, err := NewLoader(bootstrap).Load(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = a.logFormat
	}
	if flags.Changed("ext") {
		cfg.Extensions = a.extensions
	}
	if flags.Changed("timezone") {
		cfg.Timezone = a.timezone
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	a.cfg = cfg
	a.logger = newLogger(cmd.ErrOrStderr(), cfg.Log)
	return nil
}

func newLogger(w io.Writer, c LogConfig) *slog.Logger {
	level, _ := parseLevel(c.Level)
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func (a *app) docOptions() memdoc.Options {
	return memdoc.Options{
		Namespace:      a.cfg.DefaultNamespace,
		ScalarsAsFlags: a.cfg.ScalarsAsFlags,
	}
}

func (a *app) evalCmd() *cobra.Command {
	var (
		expression  string
		file        string
		vars        []string
		output      string
		showMetrics bool
	)
	cmd := &cobra.Command{
		Use:   "eval [expression]",
		Short: "Evaluate an expression",
		Long: `Evaluate an expression, optionally against a JSON or YAML document.

The document becomes the context item and its location the static base URI,
so doc('other.yaml') resolves next to it. Variables given with --var are
bound as strings.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := expressionArg(expression, args)
			if err != nil {
				return err
			}
			bindings, err := parseVars(vars)
			if err != nil {
				return err
			}

			var m *metrics.Metrics
			reg := prometheus.NewRegistry()
			if showMetrics {
				m = metrics.New(reg)
			}

			loader := memdoc.NewFileLoader(a.docOptions(), a.logger)
			opts := []evaluator.EvalOption{
				evaluator.WithLogger(a.logger),
				evaluator.WithTimeout(a.cfg.Timeout),
				evaluator.WithDocumentLoader(loader),
				evaluator.WithMetrics(m),
			}
			if tz := a.cfg.ImplicitTimezone(); tz != nil {
				opts = append(opts, evaluator.WithImplicitTimezone(tz))
			}

			var focus item.Item
			baseURI := ""
			if file != "" {
				doc, err := loader.Load(cmd.Context(), file)
				if err != nil {
					return fmt.Errorf("load %s: %w", file, err)
				}
				focus = item.NodeOf(doc)
				baseURI = doc.BaseURI()
			}

			expr, err := metapath.Compile(src, a.cfg.StaticContext(baseURI), opts...)
			if err != nil {
				return err
			}
			dynOpts := []evaluator.DynamicOption{evaluator.WithLoader(loader)}
			if tz := a.cfg.ImplicitTimezone(); tz != nil {
				dynOpts = append(dynOpts, evaluator.WithTimezone(tz))
			}
			dyn := metapath.NewDynamicContext(dynOpts...)
			for name, value := range bindings {
				dyn = dyn.Bind(name, item.Sequence{item.String(value)})
			}

			result, err := expr.Evaluate(cmd.Context(), focus, dyn)
			if err != nil {
				return err
			}
			if err := writeResult(cmd.OutOrStdout(), result, output); err != nil {
				return err
			}
			if showMetrics {
				return writeMetrics(cmd.ErrOrStderr(), reg)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&expression, "expression", "e", "", "Expression to evaluate")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Document to use as the context item (.json, .yaml, .yml)")
	cmd.Flags().StringArrayVar(&vars, "var", nil, "Bind a variable, name=value (repeatable)")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format (text, json)")
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "Print evaluation metrics to stderr")
	return cmd
}

func (a *app) checkCmd() *cobra.Command {
	var (
		expression string
		tree       bool
	)
	cmd := &cobra.Command{
		Use:   "check [expression]",
		Short: "Compile an expression without evaluating it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := expressionArg(expression, args)
			if err != nil {
				return err
			}
			expr, err := metapath.Compile(src, a.cfg.StaticContext(""), evaluator.WithLogger(a.logger))
			if err != nil {
				return err
			}
			if tree {
				_, err = fmt.Fprint(cmd.OutOrStdout(), cst.Print(expr.Compiled().Root()))
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return err
		},
	}
	cmd.Flags().StringVarP(&expression, "expression", "e", "", "Expression to compile")
	cmd.Flags().BoolVar(&tree, "tree", false, "Print the compiled syntax tree")
	return cmd
}

func (a *app) functionsCmd() *cobra.Command {
	var prefix string
	cmd := &cobra.Command{
		Use:   "functions",
		Short: "List the available functions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			prefixes := make(map[string]string)
			for p, uri := range types.WellKnownNamespaces {
				prefixes[uri] = p
			}
			for p, uri := range a.cfg.Namespaces {
				prefixes[uri] = p
			}
			prefixes[extutil.Namespace] = extutil.Prefix

			w := cmd.OutOrStdout()
			for _, fn := range a.cfg.StaticContext("").Library().Functions() {
				name := fn.Name()
				p, ok := prefixes[name.Namespace]
				if !ok {
					p = "Q{" + name.Namespace + "}"
				}
				if prefix != "" && p != prefix {
					continue
				}
				if _, err := fmt.Fprintf(w, "%s:%s%s\n", p, name.Local, fn.Signature()); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&prefix, "prefix", "p", "", "Only list functions bound to this prefix")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, metapath.Version())
		},
	}
}

func expressionArg(flag string, args []string) (string, error) {
	switch {
	case flag != "" && len(args) > 0:
		return "", fmt.Errorf("give the expression either with -e or as an argument, not both")
	case flag != "":
		return flag, nil
	case len(args) > 0:
		return args[0], nil
	default:
		return "", fmt.Errorf("no expression given")
	}
}

func parseVars(vars []string) (map[string]string, error) {
	out := make(map[string]string, len(vars))
	for _, v := range vars {
		name, value, ok := strings.Cut(v, "=")
		name = strings.TrimPrefix(strings.TrimSpace(name), "$")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --var %q: expected name=value", v)
		}
		out[name] = value
	}
	return out, nil
}

func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
