// Package editor shells out to the user's text editor for buffer edits
// and config editing.
package editor

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ErrNoEditor means no editor could be resolved from the environment or PATH.
var ErrNoEditor = errors.New("no text editor found")

// candidates are probed in order when EDITOR and VISUAL are unset
var candidates = []string{"code", "subl", "vim", "nano", "emacs", "vi"}

// Resolve returns the editor command line: $EDITOR first, then $VISUAL,
// then the first known editor on PATH
func Resolve() (string, error) {
	for _, v := range []string{"EDITOR", "VISUAL"} {
		if cmd := strings.TrimSpace(os.Getenv(v)); cmd != "" {
			return cmd, nil
		}
	}
	for _, name := range candidates {
		if _, err := exec.LookPath(name); err == nil {
			return name, nil
		}
	}
	return "", ErrNoEditor
}

// Edit opens path in the resolved editor and blocks until it exits
func Edit(path string) error {
	cmdline, err := Resolve()
	if err != nil {
		return err
	}

	// EDITOR may carry flags ("code --wait").
	parts := strings.Fields(cmdline)
	args := append(parts[1:], path)
	cmd := exec.Command(parts[0], args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("editor %s: %w", parts[0], err)
	}
	return nil
}

// EditText round-trips text through a temporary file in the editor and
// returns the edited result
func EditText(stem, text string) (string, error) {
	tmp, err := os.CreateTemp("", fmt.Sprintf("terminote-%s-*.md", stem))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	path := tmp.Name()
	defer os.Remove(path)

	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	if err := Edit(path); err != nil {
		return "", err
	}

	edited, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read edited file: %w", err)
	}
	return string(edited), nil
}
