package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/DrSkyle/bubblescope/pkg/config"
	"github.com/DrSkyle/bubblescope/pkg/oracle"
	"github.com/DrSkyle/bubblescope/pkg/version"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FF99")).
			MarginBottom(1)
	flagStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA"))
	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF0055"))
)

// app is the state shared by every subcommand of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     config.Config
	logger  *slog.Logger
}

// Execute runs the command tree and returns the process exit code.
func Execute(ctx context.Context) int {
	root := NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), errorStyle.Render("Error:")+" "+err.Error())
		return 1
	}
	return 0
}

// NewRootCmd builds a fresh command tree with its own viper instance.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "bubblescope",
		Short: "Variation graph bubble explorer",
		Long: `BubbleScope - Variation Graph Bubble Explorer

Extract. Lay out. Inspect.`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "Config file (default $HOME/.bubblescope.yaml)")
	pf.StringP("graph", "g", "", "GFA graph (plain or gzipped)")
	pf.StringP("variants", "v", "", "VCF with AT traversals (plain or gzipped)")
	pf.String("layout-cmd", "", "Layout program reading GML on stdin, writing GML on stdout")
	pf.Duration("layout-timeout", config.DefaultLayoutTimeout, "Timeout for one layout run")
	pf.String("log-level", config.DefaultLogLevel, "Log level (debug, info, warn, error)")
	pf.String("log-format", config.DefaultLogFormat, "Log format (text, json)")
	pf.String("otel-endpoint", "", "OTLP HTTP endpoint for traces")
	a.bind(pf, map[string]string{
		"graph":          "graph",
		"variants":       "variants",
		"layout.command": "layout-cmd",
		"layout.timeout": "layout-timeout",
		"log.level":      "log-level",
		"log.format":     "log-format",
		"otel_endpoint":  "otel-endpoint",
	})

	root.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		renderHelp(cmd)
	})

	root.AddCommand(newGenerateCmd(a))
	root.AddCommand(newServeCmd(a))
	root.AddCommand(newExtractCmd(a))
	return root
}

// bind maps viper keys onto flags.
func (a *app) bind(flags *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if err := a.v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}
}

func (a *app) initConfig(cmd *cobra.Command) error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		a.v.SetConfigFile(filepath.Join(home, ".bubblescope.yaml"))
		a.v.SetConfigType("yaml")
	}
	a.v.SetEnvPrefix("BUBBLESCOPE")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	a.v.AutomaticEnv()

	loaded := true
	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
		// The default file is optional; an explicit one is not.
		if a.cfgFile != "" || !missing {
			return fmt.Errorf("read config: %w", err)
		}
		loaded = false
	}

	cfg, err := config.FromViper(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := newLogger(cmd.ErrOrStderr(), cfg.Log)
	if err != nil {
		return err
	}
	a.logger = logger
	slog.SetDefault(logger)
	if loaded {
		logger.Debug("Using config file", "path", a.v.ConfigFileUsed())
	}
	return nil
}

func newLogger(w io.Writer, cfg config.LogConfig) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
}

// layoutOracle returns the configured external layout, or the identity layout.
func (a *app) layoutOracle() (oracle.Oracle, error) {
	if strings.TrimSpace(a.cfg.Layout.Command) == "" {
		return oracle.Identity{}, nil
	}
	return oracle.ParseCommand(a.cfg.Layout.Command, a.cfg.Layout.Timeout)
}

func renderHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("BUBBLESCOPE %s", version.Current)))
	fmt.Fprintln(out, "Neighbourhood extraction and layout for variation graph bubbles.")

	fmt.Fprintln(out, titleStyle.Render("USAGE"))
	fmt.Fprintf(out, "  %s\n\n", cmd.UseLine())

	if cmd.HasAvailableSubCommands() {
		fmt.Fprintln(out, titleStyle.Render("COMMANDS"))
		for _, c := range cmd.Commands() {
			if c.IsAvailableCommand() {
				fmt.Fprintf(out, "  %-12s %s\n", c.Name(), c.Short)
			}
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintln(out, titleStyle.Render("EXAMPLES"))
	fmt.Fprintln(out, "  bubblescope generate -g graph.gfa -v calls.vcf -@ 8 > layouts.tsv")
	fmt.Fprintln(out, "  bubblescope serve -g graph.gfa -v calls.vcf --static web/")
	fmt.Fprintln(out, "  bubblescope extract -g graph.gfa -v calls.vcf --id rs123")
	fmt.Fprintln(out)

	fmt.Fprintln(out, titleStyle.Render("FLAGS"))
	flags := pflag.NewFlagSet(cmd.Name(), pflag.ContinueOnError)
	flags.AddFlagSet(cmd.LocalFlags())
	flags.AddFlagSet(cmd.InheritedFlags())
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		name := "--" + f.Name
		if f.Shorthand != "" {
			name = "-" + f.Shorthand + ", " + name
		}
		line := fmt.Sprintf("  %-22s %s", name, f.Usage)
		if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "0" && f.DefValue != "[]" {
			line += fmt.Sprintf(" (default %s)", f.DefValue)
		}
		fmt.Fprintln(out, flagStyle.Render(line))
	})
	fmt.Fprintln(out)
}
