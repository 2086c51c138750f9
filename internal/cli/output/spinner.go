package output

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// Spinner animates a status message on a terminal.
type Spinner struct {
	r      *Renderer
	frames spinner.Spinner
	msg    string

	mu      sync.Mutex
	stop    chan struct{}
	done    chan struct{}
	running bool
}

// NewSpinner creates a spinner. It only animates when output is a terminal.
func (r *Renderer) NewSpinner(msg string) *Spinner {
	return &Spinner{r: r, frames: spinner.MiniDot, msg: msg}
}

// Start begins animating.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running || !s.r.tty {
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.loop(s.stop, s.done)
}

func (s *Spinner) loop(stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.frames.FPS)
	defer ticker.Stop()
	for i := 0; ; i++ {
		frame := s.frames.Frames[i%len(s.frames.Frames)]
		_, _ = fmt.Fprintf(s.r.out, "\r%s %s", s.r.styles.Info.Render(frame), s.message())
		select {
		case <-stop:
			_, _ = fmt.Fprint(s.r.out, "\r\033[K")
			return
		case <-ticker.C:
		}
	}
}

func (s *Spinner) message() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.msg
}

// Update replaces the message.
func (s *Spinner) Update(msg string) {
	s.mu.Lock()
	s.msg = msg
	s.mu.Unlock()
}

// Stop halts the animation and clears the line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stop, done := s.stop, s.done
	s.mu.Unlock()
	close(stop)
	<-done
}
