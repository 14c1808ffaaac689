package toybackend_test

import (
	"sync"
	"testing"

	"github.com/nupi-ai/go-ttsd/internal/engine"
	"github.com/nupi-ai/go-ttsd/internal/engine/toybackend"
)

func TestStartSynthEventOrder(t *testing.T) {
	b := toybackend.New()
	v := toybackend.DefaultVoices()[0]

	var mu sync.Mutex
	var events []engine.ResultEvent
	done := make(chan struct{})

	err := b.StartSynth(engine.SynthContext{UID: 1, UttID: 1, Token: "t1"}, v, "hi", engine.SpeedNormal, func(_ engine.SynthContext, chunk engine.Chunk) bool {
		mu.Lock()
		events = append(events, chunk.Event)
		mu.Unlock()
		if chunk.Event == engine.EventFinish || chunk.Event == engine.EventFail {
			close(done)
		}
		return true
	})
	if err != nil {
		t.Fatalf("StartSynth: %v", err)
	}
	<-done

	mu.Lock()
	defer mu.Unlock()
	if len(events) < 2 {
		t.Fatalf("expected at least Start+Finish, got %v", events)
	}
	if events[0] != engine.EventStart {
		t.Fatalf("first event = %v, want Start", events[0])
	}
	last := events[len(events)-1]
	if last != engine.EventFinish {
		t.Fatalf("last event = %v, want Finish", last)
	}
	for _, e := range events[1 : len(events)-1] {
		if e != engine.EventContinue {
			t.Fatalf("middle event = %v, want Continue", e)
		}
	}
}

func TestCancelSynthDeliversFail(t *testing.T) {
	b := toybackend.New()
	v := toybackend.DefaultVoices()[0]
	ctx := engine.SynthContext{UID: 1, UttID: 1, Token: "t2"}

	done := make(chan engine.ResultEvent, 1)
	err := b.StartSynth(ctx, v, "a very long utterance to synthesize so cancellation can land mid-stream", engine.SpeedNormal, func(_ engine.SynthContext, chunk engine.Chunk) bool {
		if chunk.Event == engine.EventStart {
			_ = b.CancelSynth(ctx)
		}
		if chunk.Event == engine.EventFinish || chunk.Event == engine.EventFail {
			done <- chunk.Event
		}
		return true
	})
	if err != nil {
		t.Fatalf("StartSynth: %v", err)
	}
	if got := <-done; got != engine.EventFail {
		t.Fatalf("terminal event after cancel = %v, want Fail", got)
	}
}

func TestIsValidVoice(t *testing.T) {
	b := toybackend.New()
	if !b.IsValidVoice(toybackend.DefaultVoices()[0]) {
		t.Fatal("expected default voice to be valid")
	}
	if b.IsValidVoice(engine.Voice{Language: "xx_XX", Type: engine.Male}) {
		t.Fatal("expected unknown voice to be invalid")
	}
}
