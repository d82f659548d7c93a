package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/dqscan-cli/internal/history"
)

var histLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse reports saved with --save",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved reports, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := history.Open(cmd.Context(), currentConfig().HistoryDB)
		if err != nil {
			return err
		}
		defer store.Close()
		entries, err := store.List(cmd.Context(), histLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(entries) == 0 {
			fmt.Fprintln(out, "No saved reports.")
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "RUN\tWHEN\tFILE\tROWS\tCOLS\tFAILED\tNULL-LIKE\tMISLABELS\tERRORS")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\n",
				shortID(e.RunID), humanize.Time(e.CreatedAt), e.File, e.Rows, e.Columns,
				e.ExpectationsFailed, e.NullLikeColumns, e.MislabelRows, e.Errors)
		}
		return tw.Flush()
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print a saved report (a unique run id prefix is enough)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := history.Open(cmd.Context(), currentConfig().HistoryDB)
		if err != nil {
			return err
		}
		defer store.Close()
		body, err := store.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(body))
		return nil
	},
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyListCmd.Flags().IntVar(&histLimit, "limit", 20, "maximum reports to list (0 = all)")
}
