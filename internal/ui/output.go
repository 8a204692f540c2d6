// Package ui prints the interactive console output of the CLI. Everything
// goes to stderr by default so stdout stays free for beancount results.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow, color.Bold)
	blue   = color.New(color.FgBlue)
	red    = color.New(color.FgRed)
	faint  = color.New(color.Faint)

	out io.Writer = os.Stderr
)

// SetOutput redirects all console output and returns the previous writer.
func SetOutput(w io.Writer) io.Writer {
	previous := out
	out = w
	return previous
}

// Header prints a formatted header
func Header(text string) {
	line := strings.Repeat("=", 60)
	green.Fprintf(out, "\n%s\n", line)
	green.Fprintf(out, "%-60s\n", center(text, 60))
	green.Fprintf(out, "%s\n\n", line)
}

// Step prints a step indicator
func Step(stepNum, totalSteps int, text string) {
	yellow.Fprintf(out, "[%d/%d] %s\n", stepNum, totalSteps, text)
}

// Success prints a success message
func Success(text string) {
	green.Fprintf(out, "  → %s\n", text)
}

// Info prints an info message
func Info(text string) {
	fmt.Fprintf(out, "  → %s\n", text)
}

// Warning prints a warning message
func Warning(text string) {
	yellow.Fprintf(out, "  ⚠ %s\n", text)
}

// Error prints an error message
func Error(text string) {
	red.Fprintf(out, "Error: %s\n", text)
}

// BlueText prints blue text
func BlueText(text string) {
	blue.Fprintln(out, text)
}

// YellowText prints yellow text
func YellowText(text string) {
	yellow.Fprintln(out, text)
}

// Block prints multi-line text indented, e.g. a formatted transaction.
func Block(text string) {
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		faint.Fprintf(out, "    %s\n", line)
	}
}

// Prompt prints a question without a trailing newline.
func Prompt(text string) {
	blue.Fprintf(out, "%s: ", text)
}

// center centers text within a given width
func center(text string, width int) string {
	if len(text) >= width {
		return text
	}
	padding := (width - len(text)) / 2
	return strings.Repeat(" ", padding) + text
}
