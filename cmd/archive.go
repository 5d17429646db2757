package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"squeeze/internal/config"
	"squeeze/internal/transcode"
	"squeeze/internal/tui"
)

var archiveCmd = &cobra.Command{
	Use:   "archive <src> [dst]",
	Short: "Convert one archive into a store-only zip beside it",
	Long: "archive converts the heavy images of one zip, cbz, rar, cbr or 7z archive and writes a new " +
		"zip. The source archive is never modified. dst defaults to <stem>_<codec suffix>.zip next to src.",
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := config.ExpandPath(resolveRoot(args[0]))
		if err != nil {
			return err
		}
		dst := transcode.OutputPath(src, cfg.Profile())
		if len(args) == 2 {
			if dst, err = config.ExpandPath(resolveRoot(args[1])); err != nil {
				return err
			}
		}

		engine := newEngine()
		converter := &transcode.ArchiveConverter{
			Engine:     engine,
			Extractor:  newExtractor(),
			ScratchDir: cfg.Archive.ScratchDir,
		}

		type archiveOutcome struct {
			res transcode.ArchiveResult
			err error
		}
		out := withProgress(filepath.Base(src), engine, func() archiveOutcome {
			res, err := converter.Convert(cmd.Context(), src, dst)
			return archiveOutcome{res: res, err: err}
		})
		if out.err != nil {
			logger.Error("archive conversion failed", "name", filepath.Base(src), "error", out.err)
			return out.err
		}

		res := out.res
		rows := tui.TotalsRows(res.Totals)
		rows = append(rows, tui.SummaryRow{
			Label: "Archive",
			Value: fmt.Sprintf("%s -> %s", tui.FormatSize(res.SourceSize), tui.FormatSize(res.ArchiveSize)),
		})
		fmt.Fprintln(cmd.OutOrStdout(), tui.RenderSummary(rows))
		fmt.Fprintf(cmd.OutOrStdout(), "Written to: %s\n", res.Output)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(archiveCmd)
}
