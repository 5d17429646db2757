package cmd

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/afero"

	"squeeze/internal/classify"
	"squeeze/internal/extract"
	"squeeze/internal/scanner"
	"squeeze/internal/transcode"
	"squeeze/internal/tui"
)

func newEngine() *transcode.Engine {
	return &transcode.Engine{
		Codec:   transcode.NewCodec(cfg.Profile(), cfg.Binaries()),
		Prober:  transcode.NewProber(cfg.Tools.FFprobe),
		Log:     logger,
		Options: cfg.TranscodeOptions(),
	}
}

func newExtractor() *extract.Extractor {
	x := extract.New(logger)
	x.Tools = extract.Tools{
		Unar:   cfg.Tools.Unar,
		Lsar:   cfg.Tools.Lsar,
		SevenZ: cfg.Tools.SevenZ,
	}
	return x
}

func newScanner() *scanner.Scanner {
	return &scanner.Scanner{
		Fs:         afero.NewOsFs(),
		Lister:     newExtractor(),
		Classifier: classify.Classifier{Marker: cfg.Profile().Suffix()},
		Log:        logger,
	}
}

// withProgress runs work with a live progress bar when stdout is a terminal,
// and with checkpoint log lines otherwise.
func withProgress[T any](title string, engine *transcode.Engine, work func() T) T {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		engine.Reporter = transcode.LogReporter{Log: logger}
		return work()
	}
	return tui.RunWithProgress(title, func(r transcode.Reporter) T {
		engine.Reporter = r
		return work()
	})
}

type batchResult struct {
	totals transcode.Totals
	err    error
}
