package main

import (
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// UI provides user-friendly output utilities. Everything except Reply goes
// to stderr so stdout stays clean for piping.
type UI struct {
	noColor  bool
	jsonMode bool
}

// NewUI creates a new UI instance.
func NewUI(jsonMode, noColor bool) *UI {
	return &UI{noColor: noColor || !IsTerminal(), jsonMode: jsonMode}
}

func (ui *UI) print(attr color.Attribute, symbol, format string, args ...interface{}) {
	if ui.jsonMode {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if ui.noColor {
		fmt.Fprintf(os.Stderr, "%s %s\n", symbol, msg)
		return
	}
	color.New(attr).Fprintf(os.Stderr, "%s %s\n", symbol, msg)
}

// Success prints a success message.
func (ui *UI) Success(format string, args ...interface{}) {
	ui.print(color.FgGreen, "✓", format, args...)
}

// Error prints an error message.
func (ui *UI) Error(format string, args ...interface{}) {
	ui.print(color.FgRed, "✗", format, args...)
}

// Info prints an info message.
func (ui *UI) Info(format string, args ...interface{}) {
	ui.print(color.FgCyan, "ℹ", format, args...)
}

// Step prints a step message.
func (ui *UI) Step(format string, args ...interface{}) {
	ui.print(color.FgBlue, "→", format, args...)
}

// Reply prints an assistant reply to stdout.
func (ui *UI) Reply(text string) {
	if ui.noColor {
		fmt.Println(text)
		return
	}
	color.New(color.FgWhite, color.Bold).Println(text)
}

// Spinner starts an indeterminate progress indicator. Stop it with the
// returned function. It is a no-op off a terminal.
func (ui *UI) Spinner(label string) func() {
	if ui.jsonMode || !IsTerminal() {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + label
	s.Start()
	return s.Stop
}

// Progress wraps an mpb container with a single counter bar.
type Progress struct {
	p   *mpb.Progress
	bar *mpb.Bar
}

// ProgressBar creates a counter bar. The result is nil-safe: off a terminal
// or in JSON mode every method is a no-op.
func (ui *UI) ProgressBar(name string, total int64) *Progress {
	if ui.jsonMode || !IsTerminal() || total <= 0 {
		return nil
	}
	p := mpb.New(mpb.WithWidth(48), mpb.WithOutput(os.Stderr))
	bar := p.AddBar(total,
		mpb.PrependDecorators(
			decor.Name(name, decor.WC{W: len(name) + 1, C: decor.DSyncSpaceR}),
			decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.OnComplete(decor.Percentage(decor.WC{W: 5}), " done"),
		),
	)
	return &Progress{p: p, bar: bar}
}

// Increment advances the bar by one.
func (p *Progress) Increment() {
	if p != nil {
		p.bar.Increment()
	}
}

// Done waits for the bar to finish rendering. An incomplete bar is aborted.
func (p *Progress) Done() {
	if p == nil {
		return
	}
	if !p.bar.Completed() {
		p.bar.Abort(false)
	}
	p.p.Wait()
}

// IsTerminal reports whether stdout is a terminal.
func IsTerminal() bool {
	fileInfo, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}
