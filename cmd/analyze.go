package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cfgpkg "github.com/KaramelBytes/dqscan-cli/internal/config"
	"github.com/KaramelBytes/dqscan-cli/internal/dataset"
	"github.com/KaramelBytes/dqscan-cli/internal/history"
	"github.com/KaramelBytes/dqscan-cli/internal/ml"
	"github.com/KaramelBytes/dqscan-cli/internal/quality"
	"github.com/KaramelBytes/dqscan-cli/internal/utils"
)

// analysisFlags are shared by analyze and analyze-batch.
type analysisFlags struct {
	format     string
	maxRows    int
	maxSizeMB  int
	seed       int64
	trees      int
	delimiter  string
	decimal    string
	thousands  string
	sheetName  string
	sheetIndex int
	parallel   bool
	save       bool
}

func (af *analysisFlags) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&af.format, "format", "", "report format: json | markdown (default from config)")
	f.IntVar(&af.maxRows, "max-rows", 0, "rows to analyze; larger inputs are sampled (0 = unlimited, default from config)")
	f.IntVar(&af.maxSizeMB, "max-size-mb", 0, "reject source files above this size in MB (0 = unlimited, default from config)")
	f.Int64Var(&af.seed, "seed", 0, "random seed for sampling and the classifier (default from config)")
	f.IntVar(&af.trees, "trees", 0, "trees in the label-quality forest (default from config)")
	f.StringVar(&af.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' | '|'")
	f.StringVar(&af.decimal, "decimal", "", "decimal separator for numbers: '.'|'comma'")
	f.StringVar(&af.thousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space'")
	f.StringVar(&af.sheetName, "sheet-name", "", "XLSX: sheet name to analyze")
	f.IntVar(&af.sheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	f.BoolVar(&af.parallel, "parallel", true, "run analyzers concurrently (default from config)")
	f.BoolVar(&af.save, "save", false, "store the report in the history database")
}

// settings merges config with flags the user actually set.
type settings struct {
	load    dataset.Options
	seed    int64
	trees   int
	par     bool
	format  string
	save    bool
	history string
}

func (af *analysisFlags) resolve(cmd *cobra.Command, c *cfgpkg.Global) (settings, error) {
	flags := cmd.Flags()
	s := settings{
		load:    dataset.DefaultOptions(),
		seed:    c.Seed,
		trees:   c.Trees,
		par:     c.Parallel,
		format:  c.OutputFormat,
		save:    c.SaveHistory,
		history: c.HistoryDB,
	}
	s.load.MaxRows = c.MaxRows
	s.load.MaxBytes = int64(c.MaxFileMB) * 1024 * 1024

	if flags.Changed("format") {
		s.format = strings.ToLower(strings.TrimSpace(af.format))
	}
	switch s.format {
	case "json", "markdown":
	case "md":
		s.format = "markdown"
	default:
		return s, fmt.Errorf("unsupported --format: %s (use json|markdown)", s.format)
	}
	if flags.Changed("max-rows") {
		if af.maxRows < 0 {
			return s, fmt.Errorf("--max-rows must be >= 0")
		}
		s.load.MaxRows = af.maxRows
	}
	if flags.Changed("max-size-mb") {
		if af.maxSizeMB < 0 {
			return s, fmt.Errorf("--max-size-mb must be >= 0")
		}
		s.load.MaxBytes = int64(af.maxSizeMB) * 1024 * 1024
	}
	if flags.Changed("seed") {
		s.seed = af.seed
	}
	if flags.Changed("trees") {
		if af.trees < 1 {
			return s, fmt.Errorf("--trees must be >= 1")
		}
		s.trees = af.trees
	}
	if flags.Changed("parallel") {
		s.par = af.parallel
	}
	if flags.Changed("save") {
		s.save = af.save
	}
	s.load.Seed = s.seed

	if af.delimiter != "" {
		switch af.delimiter {
		case ",":
			s.load.Delimiter = ','
		case "\t", "tab":
			s.load.Delimiter = '\t'
		case ";":
			s.load.Delimiter = ';'
		case "|", "pipe":
			s.load.Delimiter = '|'
		default:
			return s, fmt.Errorf("unsupported --delimiter: %s", af.delimiter)
		}
	}
	// Locale separators
	switch strings.ToLower(strings.TrimSpace(af.decimal)) {
	case ",", "comma":
		s.load.DecimalSeparator = ','
	case ".", "dot":
		s.load.DecimalSeparator = '.'
	case "":
	default:
		return s, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", af.decimal)
	}
	switch strings.ToLower(strings.TrimSpace(af.thousands)) {
	case ",":
		s.load.ThousandsSeparator = ','
	case ".":
		s.load.ThousandsSeparator = '.'
	case "space", " ":
		s.load.ThousandsSeparator = ' '
	case "":
	default:
		return s, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", af.thousands)
	}
	s.load.SheetName = af.sheetName
	s.load.SheetIndex = af.sheetIndex
	s.load.Logger = logger
	return s, nil
}

// analyzeFile loads path and runs every analyzer. Input errors yield a
// degraded report rather than an error.
func analyzeFile(ctx context.Context, path string, s settings) *quality.Report {
	snap, err := dataset.Load(path, s.load)
	if err != nil {
		logger.Warn("input rejected", zap.String("file", path), zap.Error(err))
		return quality.Degraded(path, err)
	}
	clf := ml.NewForest(ml.Config{Trees: s.trees, Seed: s.seed})
	eng := quality.NewEngine(quality.DefaultAnalyzers(clf), quality.Options{Parallel: s.par, Logger: logger})
	rep := eng.Run(ctx, snap)
	rep.Dataset.File = path
	return rep
}

func render(rep *quality.Report, format string) ([]byte, error) {
	if format == "markdown" {
		return []byte(rep.Markdown()), nil
	}
	return utils.PrettyJSON(rep)
}

func saveHistory(ctx context.Context, path string, reps ...*quality.Report) error {
	store, err := history.Open(ctx, path)
	if err != nil {
		return err
	}
	defer store.Close()
	for _, rep := range reps {
		if err := store.Save(ctx, rep); err != nil {
			return err
		}
	}
	return nil
}

var (
	anaOutputPath string
	anaFlags      analysisFlags
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Analyze a CSV/TSV/XLSX file and print a data-quality report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		s, err := anaFlags.resolve(cmd, currentConfig())
		if err != nil {
			return err
		}
		rep := analyzeFile(cmd.Context(), path, s)
		if rep.Dataset.Error != "" {
			warn(cmd.ErrOrStderr(), "%s", rep.Dataset.Error)
		}
		body, err := render(rep, s.format)
		if err != nil {
			return err
		}

		if anaOutputPath != "" {
			if err := utils.SafeWriteFile(anaOutputPath, body); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			success(cmd.ErrOrStderr(), "Wrote report to %s", anaOutputPath)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), string(body))
		}

		if s.save {
			if err := saveHistory(cmd.Context(), s.history, rep); err != nil {
				warn(cmd.ErrOrStderr(), "report not saved to history: %v", err)
			} else {
				success(cmd.ErrOrStderr(), "Saved run %s (%s)", rep.RunID, filepath.Base(s.history))
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "optional path to write the report")
	anaFlags.bind(analyzeCmd)
}
