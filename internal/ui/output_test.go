package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func capture(t *testing.T, fn func()) string {
	t.Helper()
	noColor := color.NoColor
	color.NoColor = true
	var buf bytes.Buffer
	previous := SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(previous)
		color.NoColor = noColor
	})
	fn()
	return buf.String()
}

func TestCenter(t *testing.T) {
	tests := []struct {
		text  string
		width int
		want  string
	}{
		{"Simplii", 15, "    Simplii"},
		{"Simplii", 7, "Simplii"},
		{"ManuLife Text", 5, "ManuLife Text"},
		{"Test", 10, "   Test"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := center(tt.text, tt.width); got != tt.want {
				t.Errorf("center(%q, %d) = %q; want %q", tt.text, tt.width, got, tt.want)
			}
		})
	}
}

func TestMessages(t *testing.T) {
	tests := []struct {
		name string
		fn   func()
		want string
	}{
		{"Step", func() { Step(2, 3, "Rogers CC File june.csv") }, "[2/3] Rogers CC File june.csv\n"},
		{"Success", func() { Success("wrote 4 transactions") }, "  → wrote 4 transactions\n"},
		{"Info", func() { Info("no transactions") }, "  → no transactions\n"},
		{"Warning", func() { Warning("possible duplicate") }, "  ⚠ possible duplicate\n"},
		{"Error", func() { Error("login failed") }, "Error: login failed\n"},
		{"BlueText", func() { BlueText("simplii") }, "simplii\n"},
		{"YellowText", func() { YellowText("wealthsimple") }, "wealthsimple\n"},
		{"Prompt", func() { Prompt("Account") }, "Account: "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := capture(t, tt.fn); got != tt.want {
				t.Errorf("got %q; want %q", got, tt.want)
			}
		})
	}
}

func TestHeader(t *testing.T) {
	got := capture(t, func() { Header("Import") })

	lines := strings.Split(strings.Trim(got, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), got)
	}
	if lines[0] != strings.Repeat("=", 60) || lines[2] != lines[0] {
		t.Errorf("header not framed by a 60 character rule: %q", got)
	}
	if strings.TrimSpace(lines[1]) != "Import" || len(lines[1]) != 60 {
		t.Errorf("title not padded to the rule width: %q", lines[1])
	}
}

func TestBlock(t *testing.T) {
	got := capture(t, func() {
		Block("2020-06-05 * \"Groceries\"\n  Assets:Simplii  -10.00 CAD\n")
	})

	want := "    2020-06-05 * \"Groceries\"\n      Assets:Simplii  -10.00 CAD\n"
	if got != want {
		t.Errorf("got %q; want %q", got, want)
	}
}

func TestSetOutput(t *testing.T) {
	var buf bytes.Buffer
	previous := SetOutput(&buf)
	restored := SetOutput(previous)

	if restored != &buf {
		t.Errorf("SetOutput should return the writer it replaces")
	}
}
