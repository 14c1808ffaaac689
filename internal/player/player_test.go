package player

import (
	"testing"

	"github.com/nupi-ai/go-ttsd/internal/engine"
)

type fakeWrite struct {
	uid   int
	data  []byte
	event engine.ResultEvent
}

type fakeSink struct {
	writes []fakeWrite
	paused map[int]bool
	drains []int
}

func newFakeSink() *fakeSink { return &fakeSink{paused: make(map[int]bool)} }

func (s *fakeSink) Write(uid int, data []byte, event engine.ResultEvent) error {
	s.writes = append(s.writes, fakeWrite{uid, data, event})
	return nil
}
func (s *fakeSink) SetPaused(uid int, paused bool) error { s.paused[uid] = paused; return nil }
func (s *fakeSink) Drain(uid int) error                  { s.drains = append(s.drains, uid); return nil }

func TestPlayerLifecycle(t *testing.T) {
	sink := newFakeSink()
	p := New(sink)

	if err := p.Create(1, 0); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := p.Create(1, 0); err == nil {
		t.Fatal("expected error creating duplicate lane")
	}
	if err := p.Play(1); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if sink.paused[1] {
		t.Fatal("expected lane unpaused after Play")
	}
	if err := p.Enqueue(1, []byte("hi"), engine.EventStart); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if len(sink.writes) != 1 {
		t.Fatalf("expected 1 write, got %d", len(sink.writes))
	}

	if err := p.Pause(1); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if !sink.paused[1] {
		t.Fatal("expected lane paused")
	}

	if err := p.Stop(1); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if len(sink.drains) != 1 {
		t.Fatalf("expected 1 drain after Stop, got %d", len(sink.drains))
	}

	if err := p.Destroy(1); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if err := p.Enqueue(1, []byte("late"), engine.EventContinue); err == nil {
		t.Fatal("expected error enqueueing on destroyed lane")
	}
}

func TestPlayerUnknownLaneErrors(t *testing.T) {
	p := New(newFakeSink())
	if err := p.Play(99); err == nil {
		t.Fatal("expected error playing unknown lane")
	}
	if err := p.Pause(99); err == nil {
		t.Fatal("expected error pausing unknown lane")
	}
	if err := p.Stop(99); err == nil {
		t.Fatal("expected error stopping unknown lane")
	}
	if err := p.Destroy(99); err == nil {
		t.Fatal("expected error destroying unknown lane")
	}
}
