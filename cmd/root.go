package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cfgpkg "github.com/KaramelBytes/dqscan-cli/internal/config"
	"github.com/KaramelBytes/dqscan-cli/internal/logging"
)

var (
	// Global flags
	cfgFile string
	debug   bool

	// Loaded configuration and logger
	cfg    *cfgpkg.Global
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "dqscan",
	Short: "dqscan: multi-perspective data-quality reports for tabular files",
	Long: `dqscan analyzes CSV, TSV and XLSX files and produces a structured data-quality report:
auto-generated expectations, profiling constraints, null-like value detection with repair
suggestions, and model-based label-quality scoring.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	// Initialize configuration before executing commands
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fail(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent global flags available to all subcommands
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.dqscan/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to built-in defaults
		warn(os.Stderr, "failed to load config: %v", err)
		c = cfgpkg.Default()
		if dir, derr := cfgpkg.Dir(); derr == nil {
			c.HistoryDB = filepath.Join(dir, "history.db")
		}
	}
	cfg = c

	l, err := logging.New(cfg.LogLevel, debug)
	if err != nil {
		warn(os.Stderr, "%v; using warn level", err)
		l, _ = logging.New("warn", debug)
	}
	logger = l
}

// currentConfig returns the loaded configuration, loading it on demand.
func currentConfig() *cfgpkg.Global {
	if cfg == nil {
		loadConfig()
	}
	return cfg
}

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed, color.Bold)
)

func success(w io.Writer, format string, args ...any) {
	okColor.Fprintf(w, "✓ %s\n", fmt.Sprintf(format, args...))
}

func warn(w io.Writer, format string, args ...any) {
	warnColor.Fprintf(w, "⚠ Warning: %s\n", fmt.Sprintf(format, args...))
}

func fail(w io.Writer, err error) {
	errColor.Fprintf(w, "✗ Error: %v\n", err)
}
