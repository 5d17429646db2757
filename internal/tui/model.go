package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"squeeze/internal/transcode"
)

// Model renders a live progress view for one batch.
type Model struct {
	title    string
	updates  <-chan transcode.Progress
	bar      progress.Model
	width    int
	last     transcode.Progress
	errors   int
	kept     int
	status   string
	quitting bool
}

type doneMsg struct{}

type updateMsg transcode.Progress

// NewModel returns a model that consumes snapshots until updates closes.
func NewModel(title string, updates <-chan transcode.Progress) Model {
	return Model{
		title:   title,
		updates: updates,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
}

func (m Model) Init() tea.Cmd {
	return listenForUpdates(m.updates)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case updateMsg:
		p := transcode.Progress(msg)
		m.last = p
		if !p.Last.Accepted {
			if p.Last.Reason == transcode.ReasonOutputLarger {
				m.kept++
			} else {
				m.errors++
			}
		}
		if p.Checkpoint() {
			m.status = ProgressLine(p)
		}
		return m, listenForUpdates(m.updates)
	case doneMsg:
		m.quitting = true
		return m, tea.Quit
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = min(60, max(20, msg.Width-10))
		return m, nil
	default:
		return m, nil
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	ratio := 0.0
	if m.last.Total > 0 {
		ratio = float64(m.last.Done) / float64(m.last.Total)
	}

	lines := []string{
		titleStyle.Render(m.title),
		labelStyle.Render(fmt.Sprintf("Images: %d/%d", m.last.Done, m.last.Total)) +
			dimStyle.Render(fmt.Sprintf("  errors:%d  kept:%d", m.errors, m.kept)),
		labelStyle.Render(fmt.Sprintf("Size: %s -> %s", FormatSize(m.last.InputBytes), FormatSize(m.last.OutputBytes))),
		m.bar.ViewAs(ratio),
	}
	if m.status != "" {
		lines = append(lines, dimStyle.Render(m.status))
	}
	return strings.Join(lines, "\n")
}

func listenForUpdates(updates <-chan transcode.Progress) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-updates
		if !ok {
			return doneMsg{}
		}
		return updateMsg(update)
	}
}

// ProgressLine is the checkpoint text: done count, running ratio, elapsed
// time and the remaining-time estimate.
func ProgressLine(p transcode.Progress) string {
	return fmt.Sprintf("[%d/%d] %.1f%% | Elapsed %s | ETA %s",
		p.Done, p.Total, p.Ratio(),
		transcode.FormatDuration(p.Elapsed),
		transcode.FormatDuration(p.ETA()),
	)
}

// ChannelReporter forwards every snapshot to a channel read by Model.
type ChannelReporter chan transcode.Progress

func (c ChannelReporter) Report(p transcode.Progress) { c <- p }

// runProgram drives the view until it quits or fails to start.
var runProgram = func(m Model) error {
	_, err := tea.NewProgram(m, tea.WithInput(nil)).Run()
	return err
}

// RunWithProgress shows the progress view while work runs. work receives the
// reporter to hand to the engine. stdin is never read so the caller's
// prompt keeps it. If the view stops early, later updates are discarded.
func RunWithProgress[T any](title string, work func(transcode.Reporter) T) T {
	updates := make(ChannelReporter, 64)

	uiDone := make(chan struct{})
	go func() {
		defer close(uiDone)
		_ = runProgram(NewModel(title, updates))
		for range updates {
		}
	}()

	result := work(updates)
	close(updates)
	<-uiDone
	return result
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	labelStyle = lipgloss.NewStyle().Foreground(ColorInk)
	dimStyle   = lipgloss.NewStyle().Foreground(ColorDim)
)
