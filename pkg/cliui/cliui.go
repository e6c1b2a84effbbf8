// Package cliui provides reusable terminal UI helpers (spinners, step
// indicators, key/value styles, markdown rendering) for livewire CLI commands.
package cliui

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	SuccessMark = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render("✓")
	FailMark    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗")
	IdleMark    = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Render("○")

	StepStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	KeyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	ValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	DimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	HeaderStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	WarnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
)

var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

// spinner redraws a single status line until stopped.
type spinner struct {
	w     io.Writer
	msg   string
	stop  chan struct{}
	ended chan struct{}
}

func startSpinner(w io.Writer, msg string) *spinner {
	sp := &spinner{
		w:     w,
		msg:   msg,
		stop:  make(chan struct{}),
		ended: make(chan struct{}),
	}
	go sp.loop()
	return sp
}

func (sp *spinner) loop() {
	defer close(sp.ended)

	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()

	for frame := 0; ; frame++ {
		fmt.Fprintf(sp.w, "\r  %s %s",
			spinnerStyle.Render(spinnerFrames[frame%len(spinnerFrames)]),
			sp.msg,
		)

		select {
		case <-sp.stop:
			return
		case <-ticker.C:
		}
	}
}

// finish stops the animation and leaves a final mark with the elapsed time.
// Only the caller writes to w once loop has returned.
func (sp *spinner) finish(err error, elapsed time.Duration) {
	close(sp.stop)
	<-sp.ended

	fmt.Fprintf(sp.w, "\r  %s %s %s\n",
		Mark(err),
		sp.msg,
		StepStyle.Render(fmt.Sprintf("(%s)", FormatDuration(elapsed))),
	)
}

// Step shows a spinner on w while fn runs, then a ✓ or ✗ with the elapsed
// time. fn's error is returned unchanged.
func Step(w io.Writer, msg string, fn func() error) error {
	sp := startSpinner(w, msg)

	start := time.Now()
	err := fn()
	sp.finish(err, time.Since(start))

	return err
}

// StepTTY behaves like Step when w is a terminal and otherwise just runs
// fn, keeping carriage returns out of pipes and log files.
func StepTTY(w io.Writer, msg string, fn func() error) error {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return Step(w, msg, fn)
	}
	return fn()
}

// Mark returns a ✓ for nil errors or ✗ for non-nil errors.
func Mark(err error) string {
	if err != nil {
		return FailMark
	}
	return SuccessMark
}

// FormatDuration formats a duration for display (e.g. "12ms" or "3.2s").
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// KeyValue renders a "key  value" line, dimming empty values as <not set>.
func KeyValue(key, value string) string {
	if value == "" {
		return fmt.Sprintf("  %s  %s", KeyStyle.Render(key), DimStyle.Render("<not set>"))
	}
	return fmt.Sprintf("  %s  %s", KeyStyle.Render(key), ValueStyle.Render(value))
}

// RenderMarkdown renders markdown content for terminal display using glamour.
func RenderMarkdown(content string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return content, err
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content, err
	}

	return rendered, nil
}
