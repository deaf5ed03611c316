package cli

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"
)

// spinnerFrames drive the activity indicator drawn on stderr while a
// long repository operation runs (archive extraction, graph rendering).
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const spinnerInterval = 90 * time.Millisecond

// Spinner is a terminal activity indicator. It stops on Stop or when its
// parent context is cancelled, whichever comes first.
type Spinner struct {
	msg     string
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	stopped chan struct{}
	mu      sync.Mutex
}

func newSpinner(msg string) *Spinner {
	return newSpinnerWithContext(context.Background(), msg)
}

// newSpinnerWithContext creates a spinner tied to ctx, so that an
// interrupted command takes its indicator down with it.
func newSpinnerWithContext(ctx context.Context, msg string) *Spinner {
	spinCtx, cancel := context.WithCancel(ctx)
	return &Spinner{
		msg:     msg,
		ctx:     spinCtx,
		cancel:  cancel,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Start begins drawing frames. It returns immediately; the animation
// runs until Stop or context cancellation.
func (s *Spinner) Start() {
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(spinnerInterval)
		defer ticker.Stop()

		for i := 0; ; i++ {
			select {
			case <-s.ctx.Done():
				s.clearLine()
				return
			case <-s.done:
				return
			case <-ticker.C:
				frame := spinnerFrames[i%len(spinnerFrames)]
				s.mu.Lock()
				fmt.Fprintf(os.Stderr, "\r%s %s", styleIconSpinner.Render(frame), StyleDim.Render(s.msg))
				s.mu.Unlock()
			}
		}
	}()
}

// Stop halts the animation and clears the line. Safe to call more than
// once.
func (s *Spinner) Stop() {
	s.cancel()
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	<-s.stopped
	s.clearLine()
}

func (s *Spinner) clearLine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprint(os.Stderr, "\r\x1b[2K")
}

// StopWithSuccess stops the spinner and prints a styled success line in
// its place.
func (s *Spinner) StopWithSuccess(msg string) {
	s.Stop()
	printSuccess("%s", msg)
}

// StopWithError stops the spinner and prints a styled error line in its
// place.
func (s *Spinner) StopWithError(msg string) {
	s.Stop()
	printError("%s", msg)
}

// Cancelled reports whether the spinner went down with its context
// rather than through Stop.
func (s *Spinner) Cancelled() bool {
	return s.ctx.Err() != nil
}
