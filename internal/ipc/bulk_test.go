package ipc_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/nupi-ai/go-ttsd/internal/ipc"
	"github.com/nupi-ai/go-ttsd/internal/ipcmsg"
)

func TestFileChannelTailerDeliversAppendedEvents(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "bulk", "default-1234")

	tailer, err := ipc.NewTailer(dir)
	if err != nil {
		t.Fatalf("NewTailer: %v", err)
	}
	defer tailer.Close()

	ch, err := ipc.OpenFileChannel(dir)
	if err != nil {
		t.Fatalf("OpenFileChannel: %v", err)
	}
	defer ch.Close()

	want := ipcmsg.Event{Name: ipcmsg.EventUtteranceStarted, UID: 1, UttID: 5}
	if err := ch.Append(want); err != nil {
		t.Fatalf("Append: %v", err)
	}

	select {
	case got := <-tailer.Events:
		if got != want {
			t.Fatalf("got %+v, want %+v", got, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for tailed event")
	}
}

func TestBulkChannelDirNaming(t *testing.T) {
	dir := ipc.BulkChannelDir("/var/run/ttsd", 42, ipc.Notification)
	want := "/var/run/ttsd/bulk/notification-42"
	if dir != want {
		t.Fatalf("BulkChannelDir = %q, want %q", dir, want)
	}
}
