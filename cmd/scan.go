package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"squeeze/internal/classify"
	"squeeze/internal/config"
	"squeeze/internal/tui"
)

var scanFormat string

var scanCmd = &cobra.Command{
	Use:   "scan <dir>",
	Short: "List recompressible archives and folders without converting anything",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := config.ExpandPath(resolveRoot(args[0]))
		if err != nil {
			return err
		}
		entries, err := newScanner().Scan(cmd.Context(), root)
		if err != nil {
			return err
		}
		return writeScan(cmd.OutOrStdout(), scanFormat, entries)
	},
}

// scanRecord is the exported form of one listed entry.
type scanRecord struct {
	Index        int     `json:"index" yaml:"index"`
	Name         string  `json:"name" yaml:"name"`
	Path         string  `json:"path" yaml:"path"`
	Kind         string  `json:"kind" yaml:"kind"`
	Size         int64   `json:"size" yaml:"size"`
	Images       int     `json:"images" yaml:"images"`
	Heavy        int     `json:"heavy" yaml:"heavy"`
	LightPercent float64 `json:"light_percent" yaml:"light_percent"`
	Format       string  `json:"format" yaml:"format"`
	Status       string  `json:"status" yaml:"status"`
}

func scanRecords(entries []classify.Entry) []scanRecord {
	records := make([]scanRecord, 0, len(entries))
	for i, e := range entries {
		records = append(records, scanRecord{
			Index:        i + 1,
			Name:         e.DisplayName,
			Path:         e.Location,
			Kind:         e.Kind.String(),
			Size:         e.Size,
			Images:       e.ImageCount,
			Heavy:        e.HeavyCount,
			LightPercent: e.LightPercent,
			Format:       e.FormatLabel,
			Status:       e.Status.String(),
		})
	}
	return records
}

func writeScan(w io.Writer, format string, entries []classify.Entry) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "table":
		if len(entries) == 0 {
			fmt.Fprintln(w, "No archives or image folders found.")
			return nil
		}
		fmt.Fprintln(w, tui.RenderEntries(entries))
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(scanRecords(entries))
	case "yaml":
		data, err := yaml.Marshal(scanRecords(entries))
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	default:
		return fmt.Errorf("unknown format %q (want table, json or yaml)", format)
	}
}

func init() {
	scanCmd.Flags().StringVarP(&scanFormat, "format", "f", "table", "output format: table, json or yaml")

	rootCmd.AddCommand(scanCmd)
}
