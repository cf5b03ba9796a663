package repl

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
)

// LineReader is the input side of a REPL. The readline implementation
// is used interactively; tests and dumb terminals get the basic one.
type LineReader interface {
	ReadLine(prompt string) (string, error)
	Close() error
}

// ErrInterrupt is returned when the user presses Ctrl-C at the prompt
var ErrInterrupt = readline.ErrInterrupt

type basicReader struct {
	reader *bufio.Reader
	out    io.Writer
}

// NewBasicReader reads lines from r, echoing prompts to out
func NewBasicReader(r io.Reader, out io.Writer) LineReader {
	return &basicReader{reader: bufio.NewReader(r), out: out}
}

func (b *basicReader) ReadLine(prompt string) (string, error) {
	if b.out != nil {
		fmt.Fprint(b.out, prompt)
	}
	line, err := b.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (b *basicReader) Close() error { return nil }

type readlineReader struct {
	instance *readline.Instance
}

func (r *readlineReader) ReadLine(prompt string) (string, error) {
	r.instance.SetPrompt(prompt)
	return r.instance.Readline()
}

func (r *readlineReader) Close() error {
	if r == nil || r.instance == nil {
		return nil
	}
	return r.instance.Close()
}

// NewLineReader returns a readline-backed reader with persistent
// history, falling back to plain stdin when the terminal cannot
// support it.
func NewLineReader(historyPath string) (LineReader, error) {
	if historyPath != "" {
		if err := os.MkdirAll(filepath.Dir(historyPath), 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	instance, err := readline.NewEx(&readline.Config{
		Prompt:            "> ",
		HistoryFile:       historyPath,
		HistorySearchFold: true,
	})
	if err != nil {
		return NewBasicReader(os.Stdin, os.Stdout), nil
	}
	return &readlineReader{instance: instance}, nil
}

// Confirm asks a yes/no question and reports the answer. Empty input
// takes the default.
func Confirm(in LineReader, out io.Writer, question string, defaultYes bool) bool {
	suffix := "[y/N]"
	if defaultYes {
		suffix = "[Y/n]"
	}
	answer, err := in.ReadLine(fmt.Sprintf("%s %s ", question, suffix))
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	if answer == "" {
		return defaultYes
	}
	return answer == "y" || answer == "yes"
}
