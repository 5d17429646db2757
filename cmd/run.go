package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"squeeze/internal/classify"
	"squeeze/internal/config"
	"squeeze/internal/lock"
	"squeeze/internal/selection"
	"squeeze/internal/transcode"
	"squeeze/internal/tui"
)

var runCmd = &cobra.Command{
	Use:   "run <dir>",
	Short: "Pick archives and folders interactively and recompress them",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := config.ExpandPath(resolveRoot(args[0]))
		if err != nil {
			return err
		}
		session, err := lock.Acquire("", root)
		if err != nil {
			return err
		}
		defer session.Release()

		exe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("locate squeeze executable: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		profile := cfg.Profile()
		out := cmd.OutOrStdout()
		logger.Debug("session started", "root", root, "codec", profile, "quality", cfg.EffectiveQuality())

		controller := &selection.Controller{
			Root:    root,
			Scanner: newScanner(),
			Dispatcher: &sessionDispatcher{
				out: out,
				child: selection.ChildArchive{
					Exe:     exe,
					Args:    forwardedFlags(),
					Timeout: cfg.ArchiveTimeout(),
					Stdout:  os.Stdout,
					Stderr:  os.Stderr,
				},
			},
			OutputPath: func(src string) string { return transcode.OutputPath(src, profile) },
			In:         os.Stdin,
			Out:        out,
			Log:        logger,
		}

		err = controller.Run(ctx)
		if errors.Is(err, selection.ErrAborted) {
			return nil
		}
		return err
	},
}

// sessionDispatcher converts folders in process and archives in a child
// squeeze process.
type sessionDispatcher struct {
	out   io.Writer
	child selection.ChildArchive
}

func (d *sessionDispatcher) ConvertFolder(ctx context.Context, entry classify.Entry) error {
	engine := newEngine()
	res := withProgress(entry.DisplayName, engine, func() batchResult {
		totals, err := engine.ConvertFolder(ctx, entry.Location, entry.Shallow)
		return batchResult{totals: totals, err: err}
	})
	if res.err != nil {
		return res.err
	}
	fmt.Fprintln(d.out, tui.RenderSummary(tui.TotalsRows(res.totals)))
	return nil
}

func (d *sessionDispatcher) ConvertArchive(ctx context.Context, entry classify.Entry, dst string) error {
	return d.child.Run(ctx, entry.Location, dst)
}

func init() {
	rootCmd.AddCommand(runCmd)
}
