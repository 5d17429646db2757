// Package transcode runs batches of image conversions through an external
// codec with a bounded worker pool.
package transcode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultTaskTimeout bounds one encode call.
const DefaultTaskTimeout = 60 * time.Second

// Options tune a batch.
type Options struct {
	// Quality is the 1-100 dial; zero selects the codec default.
	Quality int
	Workers int
	// MaxDimension caps the longest side in pixels; zero disables resizing.
	MaxDimension int
	TaskTimeout  time.Duration
}

// DefaultQuality is the quality used when none is configured.
func DefaultQuality(p Profile) int {
	if p == ProfileNVENC {
		return 70
	}
	return 75
}

// Engine converts tasks with Codec, resizing anything larger than
// MaxDimension. It is safe to reuse across batches.
type Engine struct {
	Codec    Codec
	Prober   Prober
	Log      *slog.Logger
	Reporter Reporter
	Options  Options
}

// Run processes every task and returns the aggregated totals once all of them
// have finished. Cancelling ctx does not stop a started batch; each task is
// bounded by its own timeout instead.
func (e *Engine) Run(ctx context.Context, tasks []Task) Totals {
	start := time.Now()
	totals := Totals{}
	if len(tasks) == 0 {
		return totals
	}

	ctx = context.WithoutCancel(ctx)
	results := make(chan Outcome)

	workers := e.Options.Workers
	if workers < 1 {
		workers = 1
	}

	go func() {
		var g errgroup.Group
		g.SetLimit(workers)
		for _, task := range tasks {
			g.Go(func() error {
				results <- e.process(ctx, task)
				return nil
			})
		}
		_ = g.Wait()
		close(results)
	}()

	log := e.logger()
	done := 0
	for o := range results {
		done++
		totals.Add(o)
		if !o.Accepted {
			level := slog.LevelWarn
			if o.Reason == ReasonOutputLarger {
				level = slog.LevelInfo
			}
			log.Log(ctx, level, "kept original", "name", o.Task.Name, "reason", o.Reason.String(), "error", o.Err)
		}

		p := Progress{
			Done:        done,
			Total:       len(tasks),
			InputBytes:  totals.InputBytes,
			OutputBytes: totals.OutputBytes,
			Elapsed:     time.Since(start),
			Last:        o,
		}
		if e.Reporter != nil {
			e.Reporter.Report(p)
		}
	}

	totals.Elapsed = time.Since(start)
	return totals
}

func (e *Engine) process(ctx context.Context, task Task) Outcome {
	out := Outcome{Task: task}

	inInfo, err := os.Stat(task.Input)
	if err != nil {
		out.Reason = ReasonEncodeFailed
		out.Err = err
		return out
	}
	out.InputSize = inInfo.Size()

	profile := e.Codec.Profile()
	quality := e.Options.Quality
	if quality == 0 {
		quality = DefaultQuality(profile)
	}
	req := Request{
		Input:   task.Input,
		Quality: profile.NativeQuality(quality),
	}

	if e.Options.MaxDimension > 0 && e.Prober != nil {
		dims, err := e.Prober.Dimensions(ctx, task.Input)
		if err != nil {
			e.logger().Debug("probe failed, encoding without resize", "name", task.Name, "error", err)
		} else if scale, ok := ScaleFor(dims.Width, dims.Height, e.Options.MaxDimension); ok {
			req.Scale = &scale
		}
	}

	tmp, err := tempSibling(task.Output)
	if err != nil {
		out.Reason = ReasonEncodeFailed
		out.Err = err
		return out
	}
	req.Output = tmp
	defer os.Remove(tmp)

	timeout := e.Options.TaskTimeout
	if timeout <= 0 {
		timeout = DefaultTaskTimeout
	}
	encodeCtx, cancel := context.WithTimeout(ctx, timeout)
	err = e.Codec.Encode(encodeCtx, req)
	cancel()
	if err != nil {
		out.Reason = ReasonEncodeFailed
		if !errors.Is(err, ErrEncodeFailed) {
			err = fmt.Errorf("%w: %v", ErrEncodeFailed, err)
		}
		out.Err = err
		return out
	}

	tmpInfo, err := os.Stat(tmp)
	if err != nil || tmpInfo.Size() == 0 {
		out.Reason = ReasonOutputMissing
		return out
	}
	if tmpInfo.Size() >= out.InputSize {
		out.Reason = ReasonOutputLarger
		out.OutputSize = tmpInfo.Size()
		return out
	}

	if err := replaceFile(tmp, task.Output); err != nil {
		out.Reason = ReasonEncodeFailed
		out.Err = err
		return out
	}

	final, err := os.Stat(task.Output)
	if err != nil || final.Size() == 0 || final.Size() >= out.InputSize {
		_ = os.Remove(task.Output)
		out.Reason = ReasonOutputMissing
		out.Err = err
		return out
	}

	if task.RemoveInput {
		if err := os.Remove(task.Input); err != nil {
			e.logger().Warn("could not remove original", "path", task.Input, "error", err)
		}
	}

	out.Accepted = true
	out.OutputSize = final.Size()
	out.Resized = req.Scale != nil
	return out
}

// tempSibling reserves a scratch file next to dest with the same extension,
// so encoders that infer the format from the name still see it.
func tempSibling(dest string) (string, error) {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	ext := filepath.Ext(dest)
	f, err := os.CreateTemp(dir, ".squeeze-*"+ext)
	if err != nil {
		return "", err
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return "", err
	}
	return name, nil
}

func replaceFile(tmpPath, destPath string) error {
	if err := os.Rename(tmpPath, destPath); err == nil {
		return nil
	}
	if err := os.Remove(destPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.Rename(tmpPath, destPath)
}

func (e *Engine) logger() *slog.Logger {
	if e.Log == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return e.Log
}

// LogReporter writes a progress line at every checkpoint.
type LogReporter struct {
	Log *slog.Logger
}

func (r LogReporter) Report(p Progress) {
	if r.Log == nil || !p.Checkpoint() {
		return
	}
	r.Log.Info(fmt.Sprintf("[%d/%d]", p.Done, p.Total),
		"ratio", fmt.Sprintf("%.1f%%", p.Ratio()),
		"elapsed", FormatDuration(p.Elapsed),
		"eta", FormatDuration(p.ETA()),
	)
}

// FormatDuration renders d as m:ss, or h:mm:ss past an hour.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d.Round(time.Second) / time.Second)
	h, m, s := secs/3600, (secs/60)%60, secs%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// OutputName replaces the extension of name with ext.
func OutputName(name, ext string) string {
	trimmed := strings.TrimSuffix(name, filepath.Ext(name))
	return trimmed + ext
}
