package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Sink receives raw report dumps.
type Sink interface {
	// Write stores content under name.
	Write(name, content string) error
	// WritesFiles reports whether dumps end up in files rather than on the console.
	WritesFiles() bool
}

// ConsoleSink prints dumps to a writer, usually stdout.
type ConsoleSink struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleSink creates a sink writing to out.
func NewConsoleSink(out io.Writer) *ConsoleSink {
	return &ConsoleSink{out: out}
}

func (s *ConsoleSink) Write(_, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintln(s.out, content)
	return err
}

func (s *ConsoleSink) WritesFiles() bool { return false }

// DirectorySink writes each dump to its own file under Dir. The directory
// is created on first use.
type DirectorySink struct {
	Dir string
}

// NewDirectorySink creates a sink writing to dir.
func NewDirectorySink(dir string) *DirectorySink {
	return &DirectorySink{Dir: dir}
}

func (s *DirectorySink) Write(name, content string) (err error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create results directory: %w", err)
	}

	f, err := os.Create(filepath.Join(s.Dir, name))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	_, err = fmt.Fprintln(f, content)
	return err
}

func (s *DirectorySink) WritesFiles() bool { return true }
