package cmd

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"squeeze/internal/transcode"
	"squeeze/internal/tui"
)

// toolCheck is one external executable squeeze may call.
type toolCheck struct {
	Name     string
	Binary   string
	Purpose  string
	Required bool
	Path     string
}

func toolChecks(profile transcode.Profile) []toolCheck {
	t := cfg.Tools
	return []toolCheck{
		{Name: "ffmpeg", Binary: t.FFmpeg, Purpose: "nvenc and webp encoding", Required: profile != transcode.ProfileAVIF},
		{Name: "ffprobe", Binary: t.FFprobe, Purpose: "dimensions of webp/avif/bmp inputs"},
		{Name: "magick", Binary: t.Magick, Purpose: "avif encoding", Required: profile == transcode.ProfileAVIF},
		{Name: "unar", Binary: t.Unar, Purpose: "rar/cbr extraction"},
		{Name: "lsar", Binary: t.Lsar, Purpose: "rar/cbr listing"},
		{Name: "7z", Binary: t.SevenZ, Purpose: "7z listing and extraction"},
	}
}

func lookupTools(checks []toolCheck) []toolCheck {
	for i := range checks {
		if path, err := exec.LookPath(checks[i].Binary); err == nil {
			checks[i].Path = path
		}
	}
	return checks
}

func renderChecks(checks []toolCheck) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Tool", "Status", "Path", "Used for"})
	for _, c := range checks {
		status := "ok"
		path := c.Path
		switch {
		case c.Path == "" && c.Required:
			status = tui.Error("missing")
			path = c.Binary
		case c.Path == "":
			status = tui.Warn("missing")
			path = tui.Dim(c.Binary)
		}
		tw.AppendRow(table.Row{c.Name, status, path, c.Purpose})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report which external tools squeeze can find",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		profile := cfg.Profile()
		checks := lookupTools(toolChecks(profile))
		fmt.Fprintln(cmd.OutOrStdout(), renderChecks(checks))

		var missing []string
		for _, c := range checks {
			if c.Required && c.Path == "" {
				missing = append(missing, c.Name)
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("codec %s needs %s", profile, strings.Join(missing, ", "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
