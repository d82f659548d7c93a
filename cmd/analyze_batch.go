package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/dqscan-cli/internal/quality"
	"github.com/KaramelBytes/dqscan-cli/internal/utils"
)

var (
	abOutDir string
	abQuiet  bool
	abFlags  analysisFlags
)

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <files...>",
	Short: "Analyze multiple CSV/TSV/XLSX files with progress output",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files := utils.ExpandInputs(args)
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}
		s, err := abFlags.resolve(cmd, currentConfig())
		if err != nil {
			return err
		}
		ext := ".quality.json"
		if s.format == "markdown" {
			ext = ".quality.md"
		}

		stderr := cmd.ErrOrStderr()
		var reports []*quality.Report
		total := len(files)
		for i, path := range files {
			if !abQuiet {
				fmt.Fprintf(stderr, "[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			rep := analyzeFile(cmd.Context(), path, s)
			if rep.Dataset.Error != "" && !abQuiet {
				warn(stderr, "%s: %s", filepath.Base(path), rep.Dataset.Error)
			}
			reports = append(reports, rep)

			body, err := render(rep, s.format)
			if err != nil {
				return err
			}
			if abOutDir == "" {
				fmt.Fprintln(cmd.OutOrStdout(), string(body))
				continue
			}
			base := filepath.Base(path)
			outFile := utils.UniquePath(abOutDir, strings.TrimSuffix(base, filepath.Ext(base)), ext)
			if err := utils.SafeWriteFile(outFile, body); err != nil {
				return fmt.Errorf("write report for %s: %w", base, err)
			}
			if !abQuiet {
				success(stderr, "Wrote %s", outFile)
			}
		}

		if s.save {
			if err := saveHistory(cmd.Context(), s.history, reports...); err != nil {
				warn(stderr, "reports not saved to history: %v", err)
			} else if !abQuiet {
				success(stderr, "Saved %d runs to history", len(reports))
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	analyzeBatchCmd.Flags().StringVar(&abOutDir, "out-dir", "", "directory for <name>.quality.json|md reports (default prints to stdout)")
	analyzeBatchCmd.Flags().BoolVar(&abQuiet, "quiet", false, "suppress progress and non-essential output")
	abFlags.bind(analyzeBatchCmd)
}
