package repl

import (
	"fmt"
	"io"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner animates a short wait message on a single line
type Spinner struct {
	out     io.Writer
	message string
	stop    chan struct{}
	done    chan struct{}
}

// NewSpinner returns a spinner that writes to out
func NewSpinner(out io.Writer, message string) *Spinner {
	return &Spinner{
		out:     out,
		message: message,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start begins the animation in a goroutine
func (s *Spinner) Start() {
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()
		for i := 0; ; i++ {
			fmt.Fprintf(s.out, "\r%s %s", spinnerFrames[i%len(spinnerFrames)], s.message)
			select {
			case <-s.stop:
				// Clear the line before the caller prints the outcome.
				fmt.Fprint(s.out, "\r\033[K")
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop ends the animation and waits until the line is cleared
func (s *Spinner) Stop() {
	close(s.stop)
	<-s.done
}
