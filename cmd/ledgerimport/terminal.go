package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/rumor-ml/commons.systems/ledgerimport/internal/importer"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/ui"
)

// terminal is the interactive importer.Delegate. Prompts are serialized by
// input; mu only guards the error count, so Error never waits for an answer.
type terminal struct {
	input      sync.Mutex
	mu         sync.Mutex
	in         *bufio.Reader
	readSecret func() (string, error)
	errors     int
}

// newTerminal reads answers from in. readSecret reads secrets without echo
// and may be nil, in which case secrets are read like any other line.
func newTerminal(in io.Reader, readSecret func() (string, error)) *terminal {
	return &terminal{in: bufio.NewReader(in), readSecret: readSecret}
}

// stdinTerminal reads from stdin, hiding secrets when stdin is a terminal.
func stdinTerminal() *terminal {
	fd := int(os.Stdin.Fd())
	var readSecret func() (string, error)
	if term.IsTerminal(fd) {
		readSecret = func() (string, error) {
			secret, err := term.ReadPassword(fd)
			fmt.Fprintln(os.Stderr)
			if err != nil {
				return "", fmt.Errorf("failed to read secret: %w", err)
			}
			return string(secret), nil
		}
	}
	return newTerminal(os.Stdin, readSecret)
}

// Error prints a non-fatal importer error.
func (t *terminal) Error(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errors++
	ui.Error(err.Error())
}

// Errors returns how many errors were reported.
func (t *terminal) Errors() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.errors
}

// RequestInput prompts until an acceptable answer is given. An empty text
// answer takes the first suggestion.
func (t *terminal) RequestInput(ctx context.Context, request importer.InputRequest) (string, error) {
	t.input.Lock()
	defer t.input.Unlock()

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		switch request.Kind {
		case importer.InputSecret:
			ui.Prompt(request.Name)
			if t.readSecret != nil {
				return t.readSecret()
			}
			return t.readLine()

		case importer.InputBool:
			ui.Prompt(request.Name + " (y/n)")
			answer, err := t.readLine()
			if err != nil {
				return "", err
			}
			switch strings.ToLower(answer) {
			case "y", "yes", "true":
				return "true", nil
			case "n", "no", "false":
				return "false", nil
			}
			ui.Warning("please answer y or n")

		case importer.InputChoice:
			for i, choice := range request.Choices {
				ui.Info(fmt.Sprintf("%d) %s", i+1, choice))
			}
			ui.Prompt(request.Name)
			answer, err := t.readLine()
			if err != nil {
				return "", err
			}
			if choice, ok := pickChoice(answer, request.Choices); ok {
				return choice, nil
			}
			ui.Warning(fmt.Sprintf("please pick one of 1-%d", len(request.Choices)))

		default:
			prompt := request.Name
			if len(request.Suggestions) > 0 && request.Suggestions[0] != "" {
				prompt += fmt.Sprintf(" [%s]", request.Suggestions[0])
			}
			ui.Prompt(prompt)
			answer, err := t.readLine()
			if err != nil {
				return "", err
			}
			if answer == "" && len(request.Suggestions) > 0 {
				return request.Suggestions[0], nil
			}
			return answer, nil
		}
	}
}

func pickChoice(answer string, choices []string) (string, bool) {
	if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(choices) {
		return choices[n-1], true
	}
	for _, choice := range choices {
		if choice == answer {
			return choice, true
		}
	}
	return "", false
}

func (t *terminal) readLine() (string, error) {
	line, err := t.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("input closed: %w", io.ErrUnexpectedEOF)
		}
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
