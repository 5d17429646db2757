package selection

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"squeeze/internal/classify"
	"squeeze/internal/tui"
)

// State is a step of the interactive loop.
type State int

const (
	StateRescanning State = iota
	StateListing
	StateAwaitingInput
	StateDispatching
	StateDone
)

func (s State) String() string {
	switch s {
	case StateRescanning:
		return "rescanning"
	case StateListing:
		return "listing"
	case StateAwaitingInput:
		return "awaiting-input"
	case StateDispatching:
		return "dispatching"
	default:
		return "done"
	}
}

// Prompt is the selection prompt text.
const Prompt = "Select (e.g. 1,2 / all / r=rescan / q): "

// Scanner produces the ranked entry list for a root.
type Scanner interface {
	Scan(ctx context.Context, root string) ([]classify.Entry, error)
}

// Dispatcher converts one selected entry.
type Dispatcher interface {
	ConvertFolder(ctx context.Context, entry classify.Entry) error
	ConvertArchive(ctx context.Context, entry classify.Entry, dst string) error
}

// Controller runs scan, list, prompt and dispatch until the operator quits.
type Controller struct {
	Root       string
	Scanner    Scanner
	Dispatcher Dispatcher
	// OutputPath maps a source archive to its converted path.
	OutputPath func(src string) string
	In         io.Reader
	Out        io.Writer
	Log        *slog.Logger

	state    State
	entries  []classify.Entry
	selected []int
	rescans  int
	lines    chan lineResult
	reader   *bufio.Reader
	pending  bool
}

type lineResult struct {
	text string
	err  error
}

// ErrAborted is returned when the prompt sees end of input or an interrupt.
var ErrAborted = errors.New("aborted")

// Run drives the loop. It returns nil when the operator quits or the list
// runs dry, and ErrAborted on end of input or cancellation at a prompt.
func (c *Controller) Run(ctx context.Context) error {
	c.state = StateRescanning
	for c.state != StateDone {
		next, err := c.step(ctx)
		if err != nil {
			return err
		}
		c.logger().Debug("state transition", "from", c.state, "to", next)
		c.state = next
	}
	return nil
}

// State reports the current step.
func (c *Controller) State() State { return c.state }

func (c *Controller) step(ctx context.Context) (State, error) {
	switch c.state {
	case StateRescanning:
		return c.rescan(ctx)
	case StateListing:
		fmt.Fprintln(c.Out)
		fmt.Fprintln(c.Out, tui.RenderEntries(c.entries))
		fmt.Fprintln(c.Out)
		return StateAwaitingInput, nil
	case StateAwaitingInput:
		return c.awaitInput(ctx)
	case StateDispatching:
		c.dispatch(ctx)
		return StateRescanning, nil
	default:
		return StateDone, nil
	}
}

func (c *Controller) rescan(ctx context.Context) (State, error) {
	fmt.Fprintf(c.Out, "\nScanning %s ...\n", c.Root)
	entries, err := c.Scanner.Scan(ctx, c.Root)
	if err != nil {
		return StateDone, err
	}
	first := c.rescans == 0
	c.rescans++
	c.entries = entries
	if len(entries) == 0 {
		if first {
			fmt.Fprintf(c.Out, "No archives or image folders found in %s\n", c.Root)
		} else {
			fmt.Fprintln(c.Out, "No more items found.")
		}
		return StateDone, nil
	}
	return StateListing, nil
}

func (c *Controller) awaitInput(ctx context.Context) (State, error) {
	fmt.Fprint(c.Out, Prompt)
	line, err := c.readLine(ctx)
	if err != nil {
		fmt.Fprintln(c.Out, "\nAborted.")
		return StateDone, ErrAborted
	}

	cmd, err := Parse(line, len(c.entries))
	if err != nil {
		fmt.Fprintln(c.Out, tui.Error("Error: "+err.Error()))
		return StateListing, nil
	}
	switch cmd.Kind {
	case CmdQuit:
		fmt.Fprintln(c.Out, "Done.")
		return StateDone, nil
	case CmdRescan:
		return StateRescanning, nil
	}
	if len(cmd.Indices) == 0 {
		fmt.Fprintln(c.Out, "Nothing selected.")
		return StateListing, nil
	}
	c.selected = cmd.Indices
	return StateDispatching, nil
}

// dispatch converts the selection in order. Failures are reported per entry
// and never stop the batch.
func (c *Controller) dispatch(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	total := len(c.selected)
	for i, idx := range c.selected {
		entry := c.entries[idx]
		n := i + 1

		if entry.Kind == classify.KindFolder {
			if entry.HeavyCount == 0 {
				fmt.Fprintf(c.Out, "\n[%d/%d] Skipping %s (no heavy images)\n", n, total, entry.DisplayName)
				continue
			}
			fmt.Fprintf(c.Out, "\n[%d/%d] Converting folder: %s (%s, %d heavy images)\n",
				n, total, entry.DisplayName, tui.FormatSize(entry.Size), entry.HeavyCount)
			if err := c.Dispatcher.ConvertFolder(ctx, entry); err != nil {
				fmt.Fprintln(c.Out, tui.Error(fmt.Sprintf("  ERROR: conversion failed for %s: %v", entry.DisplayName, err)))
			}
			continue
		}

		dst := c.OutputPath(entry.Location)
		if _, err := os.Stat(dst); err == nil {
			fmt.Fprint(c.Out, tui.Warn(fmt.Sprintf("  WARNING: %s exists. Overwrite? (y/N): ", filepath.Base(dst))))
			ans, err := c.readLine(ctx)
			if err != nil || strings.ToLower(strings.TrimSpace(ans)) != "y" {
				if err != nil {
					fmt.Fprintln(c.Out)
				}
				fmt.Fprintln(c.Out, "  Skipped.")
				continue
			}
		}

		fmt.Fprintf(c.Out, "\n[%d/%d] Converting archive: %s (%s)\n", n, total, entry.DisplayName, tui.FormatSize(entry.Size))
		fmt.Fprintf(c.Out, "  -> %s\n", filepath.Base(dst))
		if err := c.Dispatcher.ConvertArchive(ctx, entry, dst); err != nil {
			c.logger().Warn("archive conversion failed", "archive", entry.Location, "error", err)
			fmt.Fprintln(c.Out, tui.Error("  ERROR: conversion failed for "+entry.DisplayName))
		}
	}
	fmt.Fprintf(c.Out, "\nBatch done. %d items processed.\n", total)
}

// readLine reads one line without blocking cancellation. A read abandoned
// by cancellation is picked up by the next call so no input is lost.
func (c *Controller) readLine(ctx context.Context) (string, error) {
	if c.lines == nil {
		c.reader = bufio.NewReader(c.In)
		c.lines = make(chan lineResult, 1)
	}
	if !c.pending {
		c.pending = true
		go c.readOne()
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-c.lines:
		c.pending = false
		if res.err != nil && (res.text == "" || !errors.Is(res.err, io.EOF)) {
			return "", res.err
		}
		return strings.TrimRight(res.text, "\r\n"), nil
	}
}

func (c *Controller) readOne() {
	text, err := c.reader.ReadString('\n')
	c.lines <- lineResult{text: text, err: err}
}

func (c *Controller) logger() *slog.Logger {
	if c.Log == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c.Log
}
