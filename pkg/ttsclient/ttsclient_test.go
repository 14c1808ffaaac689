package ttsclient

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/nupi-ai/go-ttsd/internal/config"
	"github.com/nupi-ai/go-ttsd/internal/daemon"
	"github.com/nupi-ai/go-ttsd/internal/engine"
	"github.com/nupi-ai/go-ttsd/internal/engine/toybackend"
	"github.com/nupi-ai/go-ttsd/internal/errtaxonomy"
	"github.com/nupi-ai/go-ttsd/internal/ipc"
	"github.com/nupi-ai/go-ttsd/internal/ipcmsg"
	"github.com/nupi-ai/go-ttsd/internal/player"
	"github.com/nupi-ai/go-ttsd/internal/ttsconfig"
)

type nopSink struct{}

func (nopSink) Write(uid int, data []byte, event engine.ResultEvent) error { return nil }
func (nopSink) SetPaused(uid int, paused bool) error                      { return nil }
func (nopSink) Drain(uid int) error                                       { return nil }

func startTestDaemon(t *testing.T) (root string, cfg config.Config) {
	t.Helper()
	root = t.TempDir()
	cfg = config.Config{
		SocketRoot:       root,
		HelloTimeoutMs:   100,
		LivenessPeriodMs: 60_000,
		RetryCount:       5,
		RetryBackoffUs:   1000,
		SynthPollMs:      5,
	}

	agent := engine.NewAgent(toybackend.New())
	if err := agent.Initialize(); err != nil {
		t.Fatalf("agent.Initialize: %v", err)
	}
	p := player.New(nopSink{})
	bus := daemon.NewFileBulkBus(root, ipc.Default)

	store, err := ttsconfig.Open(filepath.Join(root, "config-default.txt"), filepath.Join(root, "config-system.txt"))
	if err != nil {
		t.Fatalf("ttsconfig.Open: %v", err)
	}

	d := daemon.New(ipc.Default, cfg, zerolog.Nop(), agent, p, bus, store, nil)
	d.Run()
	t.Cleanup(d.Close)

	srv, err := ipc.Listen(ipc.SocketPath(root, ipc.Default), d.Handler())
	if err != nil {
		t.Fatalf("ipc.Listen: %v", err)
	}
	t.Cleanup(func() { srv.Close() })

	return root, cfg
}

func TestHandleOpenAddQueuePlayDeliversCallbacks(t *testing.T) {
	root, cfg := startTestDaemon(t)

	started := make(chan int, 1)
	completed := make(chan int, 1)

	h, err := Open(ipc.Default, root, cfg, Callbacks{
		OnUtteranceStarted:   func(uttID int) { started <- uttID },
		OnUtteranceCompleted: func(uttID int) { completed <- uttID },
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer h.Close()

	if h.State() != StateReady {
		t.Fatalf("expected StateReady after Open, got %v", h.State())
	}

	uttID, err := h.AddQueue(Voice{Language: "en_US", Type: 2}, "hello there", 8)
	if err != nil {
		t.Fatalf("AddQueue: %v", err)
	}
	if err := h.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}

	select {
	case id := <-started:
		if id != uttID {
			t.Fatalf("expected utterance_started for %d, got %d", uttID, id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for OnUtteranceStarted")
	}
	select {
	case id := <-completed:
		if id != uttID {
			t.Fatalf("expected utterance_completed for %d, got %d", uttID, id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for OnUtteranceCompleted")
	}
}

func TestHandlePauseRequiresPlaying(t *testing.T) {
	root, cfg := startTestDaemon(t)
	h, err := Open(ipc.Default, root, cfg, Callbacks{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer h.Close()

	if err := h.Pause(); err == nil {
		t.Fatal("expected error pausing from Ready")
	}
}

func TestUnprepareThenPrepareRoundTrips(t *testing.T) {
	root, cfg := startTestDaemon(t)
	h, err := Open(ipc.Default, root, cfg, Callbacks{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer h.Close()

	if err := h.Unprepare(); err != nil {
		t.Fatalf("Unprepare: %v", err)
	}
	if h.State() != StateCreated {
		t.Fatalf("expected StateCreated after Unprepare, got %v", h.State())
	}
	if err := h.Unprepare(); err == nil {
		t.Fatal("expected error Unpreparing twice in a row")
	}

	if err := h.Prepare(); err != nil {
		t.Fatalf("re-Prepare: %v", err)
	}
	if h.State() != StateReady {
		t.Fatalf("expected StateReady after re-Prepare, got %v", h.State())
	}
}

func TestGetDefaultVoice(t *testing.T) {
	root, cfg := startTestDaemon(t)
	h, err := Open(ipc.Default, root, cfg, Callbacks{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer h.Close()

	if _, err := h.GetDefaultVoice(); err != nil {
		t.Fatalf("GetDefaultVoice: %v", err)
	}
}

func TestAddQueueRejectsInvalidUTF8WithoutIPCTraffic(t *testing.T) {
	root, cfg := startTestDaemon(t)
	h, err := Open(ipc.Default, root, cfg, Callbacks{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer h.Close()

	invalid := "hel\xfflo"
	if _, err := h.AddQueue(Voice{Language: "en_US"}, invalid, 3); CodeOf(err) != CodeInvalidParameter {
		t.Fatalf("expected CodeInvalidParameter for malformed UTF-8, got %v", err)
	}
}

// TestPrepareEngineNotFoundFiresOnErrorAndStaysCreated exercises S5: a
// prepare that fails because the daemon's engine could not initialize
// fires OnError and leaves the handle in StateCreated rather than
// discarding it, so the caller can retry Prepare once the engine recovers.
func TestPrepareEngineNotFoundFiresOnErrorAndStaysCreated(t *testing.T) {
	root := t.TempDir()
	cfg := config.Config{HelloTimeoutMs: 100, RetryCount: 1, RetryBackoffUs: 1000}

	srv, err := ipc.Listen(ipc.SocketPath(root, ipc.Default), func(req ipcmsg.Request) ipcmsg.Response {
		if req.Method == ipcmsg.MethodInitialize {
			return ipcmsg.Response{Code: int(errtaxonomy.EngineNotFound)}
		}
		return ipcmsg.Response{Code: int(errtaxonomy.None)}
	})
	if err != nil {
		t.Fatalf("ipc.Listen: %v", err)
	}
	t.Cleanup(func() { srv.Close() })

	var gotErr bool
	var gotCode Code
	h, err := Open(ipc.Default, root, cfg, Callbacks{
		OnError: func(uttID int, code Code) { gotErr = true; gotCode = code },
	})
	if err == nil {
		t.Fatal("expected Open/Prepare to fail")
	}
	if h == nil {
		t.Fatal("expected a live Handle even though prepare failed")
	}
	if h.State() != StateCreated {
		t.Fatalf("expected StateCreated after failed prepare, got %v", h.State())
	}
	if !gotErr {
		t.Fatal("expected OnError to fire on prepare failure")
	}
	if gotCode != errtaxonomy.EngineNotFound {
		t.Fatalf("expected EngineNotFound, got %v", gotCode)
	}
}

func TestDaemonBinaryEnvUnsetFailsDialOnly(t *testing.T) {
	os.Unsetenv(DaemonBinaryEnv)
	root := filepath.Join(t.TempDir(), "no-daemon-here")
	cfg := config.Config{HelloTimeoutMs: 10, RetryCount: 1, RetryBackoffUs: 100}
	if _, err := dialOrSpawn(root, ipc.Default, cfg); err == nil {
		t.Fatal("expected error with no daemon running and no binary configured")
	}
}
