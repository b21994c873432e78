// Package cliui provides terminal UI helpers for graphchat CLI commands:
// spinners, styled key/value output and markdown rendering of answers.
package cliui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
)

var (
	SuccessMark  = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render("✓")
	FailMark     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗")
	StepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))

	KeyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("75")).Bold(true)
	ValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	DimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	NameStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))

	UserPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	BotPrompt  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("graphchat> ")
)

var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

// Step prints an animated spinner while fn runs, then replaces it with
// a ✓ or ✗ checkmark and elapsed time.
func Step(w io.Writer, msg string, fn func() error) error {
	done := make(chan struct{})
	var mu sync.Mutex

	// Run spinner animation in background
	go func() {
		frame := 0
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for {
			mu.Lock()
			fmt.Fprintf(w, "\r  %s %s",
				spinnerStyle.Render(spinnerFrames[frame%len(spinnerFrames)]),
				msg,
			)
			mu.Unlock()

			select {
			case <-done:
				return
			case <-ticker.C:
				frame++
			}
		}
	}()

	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	close(done)

	// Clear the spinner line and print final result
	mu.Lock()
	fmt.Fprintf(w, "\r  %s %s %s\n",
		Mark(err),
		msg,
		StepStyle.Render(fmt.Sprintf("(%s)", FormatDuration(elapsed))),
	)
	mu.Unlock()

	return err
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

// RenderMarkdown renders markdown content for terminal display using glamour.
// NO_COLOR and CLICOLOR=0 select the plain style.
func RenderMarkdown(content string) (string, error) {
	style := glamour.WithAutoStyle()
	if termenv.EnvNoColor() {
		style = glamour.WithStandardStyle("notty")
	}

	r, err := glamour.NewTermRenderer(
		style,
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

// RenderAnswer renders a model answer as markdown, falling back to the raw
// text when rendering fails.
func RenderAnswer(answer string) string {
	rendered, err := RenderMarkdown(answer)
	if err != nil {
		return answer + "\n"
	}
	return rendered
}

// KeyValue formats one styled "key  value" line; empty values render as
// <not set>.
func KeyValue(key, value string) string {
	if value == "" {
		return fmt.Sprintf("  %s  %s", KeyStyle.Render(key), DimStyle.Render("<not set>"))
	}
	return fmt.Sprintf("  %s  %s", KeyStyle.Render(key), ValueStyle.Render(value))
}

// Truncate shortens s to width cells, ending in "…" when cut. Escape
// sequences do not count towards the width.
func Truncate(s string, width int) string {
	return ansi.Truncate(s, width, "…")
}
