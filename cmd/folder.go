package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"squeeze/internal/config"
	"squeeze/internal/lock"
	"squeeze/internal/tui"
)

var folderShallow bool

var folderCmd = &cobra.Command{
	Use:   "folder <dir>",
	Short: "Recompress the heavy images of one folder in place",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := config.ExpandPath(resolveRoot(args[0]))
		if err != nil {
			return err
		}
		info, err := os.Stat(dir)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("not a directory: %s", dir)
		}

		session, err := lock.Acquire("", dir)
		if err != nil {
			return err
		}
		defer session.Release()

		engine := newEngine()
		res := withProgress(info.Name(), engine, func() batchResult {
			totals, err := engine.ConvertFolder(cmd.Context(), dir, folderShallow)
			return batchResult{totals: totals, err: err}
		})
		if res.err != nil {
			return res.err
		}

		fmt.Fprintln(cmd.OutOrStdout(), tui.RenderSummary(tui.TotalsRows(res.totals)))
		if res.totals.Errors > 0 {
			return fmt.Errorf("%d images failed to convert", res.totals.Errors)
		}
		return nil
	},
}

func init() {
	folderCmd.Flags().BoolVar(&folderShallow, "shallow", false, "only convert images directly inside the folder")

	rootCmd.AddCommand(folderCmd)
}
