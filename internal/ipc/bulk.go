package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/nupi-ai/go-ttsd/internal/ipcmsg"
)

// BulkChannelDir returns the directory holding the per-(pid,mode) event
// file. Grounded on common/tts_defs.h's MESSAGE_FILE_PATH_ROOT +
// MESSAGE_FILE_PREFIX_* naming scheme, generalized to a directory of
// newline-delimited JSON events instead of a single custom binary format.
func BulkChannelDir(root string, pid int, mode Mode) string {
	return filepath.Join(root, "bulk", fmt.Sprintf("%s-%d", mode, pid))
}

const bulkFileName = "events.ndjson"

// FileChannel is the daemon-side write end of the bulk/file message
// channel: opened once per (pid, mode) on the first client for that pid,
// closed when the last client for that pid is destroyed (§4.2).
type FileChannel struct {
	mu   sync.Mutex
	file *os.File
}

// OpenFileChannel creates dir and appends to (or creates) its event file.
func OpenFileChannel(dir string) (*FileChannel, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ipc: mkdir bulk channel dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, bulkFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("ipc: open bulk channel file: %w", err)
	}
	return &FileChannel{file: f}, nil
}

// Append writes one event as a single NDJSON line.
func (c *FileChannel) Append(evt ipcmsg.Event) error {
	line, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("ipc: marshal event: %w", err)
	}
	line = append(line, '\n')

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err = c.file.Write(line)
	return err
}

// Close closes the underlying file. The containing directory is left for
// the caller to remove once no client references it.
func (c *FileChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.file.Close()
}

// Tailer is the client-side read end: it watches the bulk channel
// directory for appends and delivers newly-written events on Events.
type Tailer struct {
	Events chan ipcmsg.Event
	Errors chan error

	watcher *fsnotify.Watcher
	path    string
	offset  int64
	done    chan struct{}
}

// NewTailer starts watching dir's event file for appends, beginning at the
// file's current length (only events written after the tailer starts are
// delivered, since clients attach to an already-open channel).
func NewTailer(dir string) (*Tailer, error) {
	path := filepath.Join(dir, bulkFileName)
	// Ensure the file exists so both the initial offset and the watch
	// target are well-defined even if the daemon hasn't written yet.
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		f.Close()
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	t := &Tailer{
		Events:  make(chan ipcmsg.Event, 16),
		Errors:  make(chan error, 1),
		watcher: watcher,
		path:    path,
		offset:  info.Size(),
		done:    make(chan struct{}),
	}
	go t.loop()
	return t, nil
}

func (t *Tailer) loop() {
	defer close(t.Events)
	for {
		select {
		case <-t.done:
			return
		case ev, ok := <-t.watcher.Events:
			if !ok {
				return
			}
			if ev.Name != t.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			t.readNewLines()
		case err, ok := <-t.watcher.Errors:
			if !ok {
				return
			}
			select {
			case t.Errors <- err:
			default:
			}
		}
	}
}

func (t *Tailer) readNewLines() {
	f, err := os.Open(t.path)
	if err != nil {
		return
	}
	defer f.Close()

	if _, err := f.Seek(t.offset, 0); err != nil {
		return
	}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		t.offset += int64(len(line)) + 1
		var evt ipcmsg.Event
		if err := json.Unmarshal(line, &evt); err != nil {
			continue
		}
		select {
		case t.Events <- evt:
		case <-t.done:
			return
		}
	}
}

// Close stops the tailer.
func (t *Tailer) Close() error {
	close(t.done)
	return t.watcher.Close()
}
