package player

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/nupi-ai/go-ttsd/internal/engine"
)

// FileSink is a minimal AudioSink for environments with no real audio
// output wired in: it appends each client's raw PCM stream to its own file
// under dir. Drain closes that file, and the next Write for the client
// starts it over from empty. It ignores SetPaused: chunks that arrive while
// a lane is paused are written like any other.
type FileSink struct {
	dir string

	mu    sync.Mutex
	files map[int]*os.File
}

// NewFileSink writes each client's audio to dir/client-<uid>.pcm.
func NewFileSink(dir string) *FileSink {
	return &FileSink{dir: dir, files: make(map[int]*os.File)}
}

func (s *FileSink) Write(uid int, data []byte, event engine.ResultEvent) error {
	if len(data) == 0 {
		return nil
	}
	f, err := s.fileFor(uid)
	if err != nil {
		return err
	}
	_, err = f.Write(data)
	return err
}

func (s *FileSink) SetPaused(uid int, paused bool) error { return nil }

func (s *FileSink) Drain(uid int) error {
	s.mu.Lock()
	f, ok := s.files[uid]
	delete(s.files, uid)
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return f.Close()
}

func (s *FileSink) fileFor(uid int) (*os.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.files[uid]; ok {
		return f, nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("filesink: mkdir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(s.dir, fmt.Sprintf("client-%d.pcm", uid)), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("filesink: open: %w", err)
	}
	s.files[uid] = f
	return f, nil
}
