package daemon

import (
	"fmt"
	"sync"

	"github.com/nupi-ai/go-ttsd/internal/ipc"
	"github.com/nupi-ai/go-ttsd/internal/ipcmsg"
)

// FileBulkBus adapts internal/ipc's per-(pid,mode) FileChannel to the
// daemon core's narrow BulkBus interface, translating the daemon's
// mode-agnostic BulkEvent into the wire ipcmsg.Event.
type FileBulkBus struct {
	root string
	mode ipc.Mode

	mu       sync.Mutex
	channels map[int]*ipc.FileChannel
}

// NewFileBulkBus constructs a FileBulkBus rooted at root for the given mode.
func NewFileBulkBus(root string, mode ipc.Mode) *FileBulkBus {
	return &FileBulkBus{root: root, mode: mode, channels: make(map[int]*ipc.FileChannel)}
}

func (b *FileBulkBus) Open(pid int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.channels[pid]; exists {
		return fmt.Errorf("bulkbus: channel for pid %d already open", pid)
	}
	fc, err := ipc.OpenFileChannel(ipc.BulkChannelDir(b.root, pid, b.mode))
	if err != nil {
		return err
	}
	b.channels[pid] = fc
	return nil
}

func (b *FileBulkBus) Close(pid int) error {
	b.mu.Lock()
	fc, ok := b.channels[pid]
	delete(b.channels, pid)
	b.mu.Unlock()
	if !ok {
		return nil
	}
	return fc.Close()
}

func (b *FileBulkBus) Publish(pid int, evt BulkEvent) error {
	b.mu.Lock()
	fc, ok := b.channels[pid]
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("bulkbus: no open channel for pid %d", pid)
	}
	return fc.Append(ipcmsg.Event{
		Name:  evt.Name,
		UID:   evt.UID,
		UttID: evt.UttID,
		Code:  evt.Code,
		State: evt.State,
	})
}
