package transcode

import (
	"errors"
	"time"
)

var (
	ErrEncodeFailed = errors.New("encode failed")
	ErrProbeFailed  = errors.New("probe failed")
)

// Task is one image to transcode.
type Task struct {
	Input  string
	Output string
	// Name labels the task in logs; in archive mode it is the member name.
	Name string
	// RemoveInput deletes Input once a smaller Output is confirmed on disk.
	RemoveInput bool
}

// Reason explains why an outcome was not accepted.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonEncodeFailed
	ReasonOutputLarger
	ReasonOutputMissing
)

func (r Reason) String() string {
	switch r {
	case ReasonEncodeFailed:
		return "encode failed"
	case ReasonOutputLarger:
		return "output larger than input"
	case ReasonOutputMissing:
		return "output missing or empty"
	default:
		return "accepted"
	}
}

// Outcome is the result of one task. Anything not Accepted leaves the
// original bytes in place.
type Outcome struct {
	Task       Task
	Accepted   bool
	Reason     Reason
	InputSize  int64
	OutputSize int64
	Resized    bool
	Err        error
}

// Totals accumulates outcomes. Every update is a sum, so the result does not
// depend on completion order.
type Totals struct {
	Tasks        int
	Converted    int
	InputBytes   int64
	OutputBytes  int64
	Resized      int
	Errors       int
	KeptOriginal int
	Elapsed      time.Duration
}

// Add folds one outcome into the totals.
func (t *Totals) Add(o Outcome) {
	t.Tasks++
	t.InputBytes += o.InputSize
	if o.Accepted {
		t.Converted++
		t.OutputBytes += o.OutputSize
		if o.Resized {
			t.Resized++
		}
		return
	}
	t.OutputBytes += o.InputSize
	if o.Reason == ReasonOutputLarger {
		t.KeptOriginal++
	} else {
		t.Errors++
	}
}

// Ratio is output bytes as a percentage of input bytes.
func (t Totals) Ratio() float64 {
	if t.InputBytes == 0 {
		return 0
	}
	return float64(t.OutputBytes) / float64(t.InputBytes) * 100
}

// Saved is the number of bytes removed; negative means growth.
func (t Totals) Saved() int64 {
	return t.InputBytes - t.OutputBytes
}

// Progress is a snapshot of a running batch.
type Progress struct {
	Done        int
	Total       int
	InputBytes  int64
	OutputBytes int64
	Elapsed     time.Duration
	Last        Outcome
}

// Checkpoint reports whether this snapshot falls on the reporting cadence:
// every 20 completions and the final one.
func (p Progress) Checkpoint() bool {
	return p.Done > 0 && (p.Done%progressEvery == 0 || p.Done == p.Total)
}

// ETA extrapolates the remaining time linearly from the average so far.
func (p Progress) ETA() time.Duration {
	if p.Done == 0 {
		return 0
	}
	return time.Duration(float64(p.Elapsed) / float64(p.Done) * float64(p.Total-p.Done))
}

// Ratio is output bytes as a percentage of input bytes so far.
func (p Progress) Ratio() float64 {
	if p.InputBytes == 0 {
		return 0
	}
	return float64(p.OutputBytes) / float64(p.InputBytes) * 100
}

const progressEvery = 20

// Reporter receives a snapshot after every completed task. It is called from
// a single goroutine.
type Reporter interface {
	Report(p Progress)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(p Progress)

func (f ReporterFunc) Report(p Progress) { f(p) }
