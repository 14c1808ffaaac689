// Package toybackend provides a deterministic, dependency-free engine.Backend
// used as the daemon's always-available default and in tests. It generates
// no real audio; it synthesizes silent PCM chunks whose total size is
// proportional to the input text length, which is enough to exercise the full
// Start/Continue/Finish event sequence the daemon's pipeline depends on.
//
// Adapted from nupi-ai-plugin-vad-local-silero's StubEngine: that engine
// toggles a deterministic speech/silence flag every N frames; this backend
// applies the same "deterministic, counter-driven, no real signal
// processing" idea to chunked audio delivery instead.
package toybackend

import (
	"sync"

	"github.com/nupi-ai/go-ttsd/internal/engine"
	"github.com/nupi-ai/go-ttsd/internal/errtaxonomy"
)

// ChunkBytes is the size of each synthesized PCM chunk.
const ChunkBytes = 4096

// BytesPerChar is how many PCM bytes the toy backend fabricates per input
// character, giving callers a duration roughly proportional to text length.
const BytesPerChar = 320

// SampleRate is the fixed sample rate the toy backend reports.
const SampleRate = 16000

// Backend is a deterministic engine.Backend with a fixed voice table.
type Backend struct {
	mu         sync.Mutex
	pitch      int
	voices     []engine.Voice
	cancelled  map[string]bool
}

// DefaultVoices mirrors the common locale/type combinations exercised by
// the original engine's sample plugin.
func DefaultVoices() []engine.Voice {
	return []engine.Voice{
		{Language: "en_US", Type: engine.Female},
		{Language: "en_US", Type: engine.Male},
		{Language: "ko_KR", Type: engine.Female},
	}
}

// New creates a Backend with DefaultVoices.
func New() *Backend {
	return &Backend{
		pitch:     int(engine.SpeedNormal),
		voices:    DefaultVoices(),
		cancelled: make(map[string]bool),
	}
}

func (b *Backend) Name() string { return "toy" }

func (b *Backend) Initialize() error   { return nil }
func (b *Backend) Deinitialize() error { return nil }

func (b *Backend) ForeachVoice(fn func(engine.Voice) bool) error {
	for _, v := range b.voices {
		if !fn(v) {
			break
		}
	}
	return nil
}

func (b *Backend) IsValidVoice(v engine.Voice) bool {
	for _, known := range b.voices {
		if known == v {
			return true
		}
	}
	return false
}

func (b *Backend) SetPitch(pitch int) error {
	if pitch < 1 || pitch > 15 {
		return errtaxonomy.New(errtaxonomy.InvalidParameter)
	}
	b.mu.Lock()
	b.pitch = pitch
	b.mu.Unlock()
	return nil
}

func (b *Backend) LoadVoice(v engine.Voice) error {
	if !b.IsValidVoice(v) {
		return errtaxonomy.New(errtaxonomy.InvalidVoice)
	}
	return nil
}

func (b *Backend) UnloadVoice(engine.Voice) error { return nil }

// StartSynth fabricates len(text)*BytesPerChar bytes of silence split into
// ChunkBytes-sized Continue chunks, bracketed by Start and Finish. A
// cancellation requested via CancelSynth, or result returning false, ends
// the stream with Fail instead of Finish.
func (b *Backend) StartSynth(ctx engine.SynthContext, v engine.Voice, text string, speed engine.Speed, result engine.ResultFunc) error {
	if !b.IsValidVoice(v) {
		return errtaxonomy.New(errtaxonomy.InvalidVoice)
	}
	if text == "" {
		return errtaxonomy.New(errtaxonomy.InvalidParameter)
	}

	total := len(text) * BytesPerChar
	go func() {
		result(ctx, engine.Chunk{Event: engine.EventStart, AudioType: engine.S16PCM, SampleRate: SampleRate, Channels: 1})

		sent := 0
		for sent < total {
			if b.isCancelled(ctx.Token) {
				b.clearCancelled(ctx.Token)
				result(ctx, engine.Chunk{Event: engine.EventFail})
				return
			}
			n := ChunkBytes
			if total-sent < n {
				n = total - sent
			}
			if !result(ctx, engine.Chunk{
				Event:      engine.EventContinue,
				Data:       make([]byte, n),
				AudioType:  engine.S16PCM,
				SampleRate: SampleRate,
				Channels:   1,
			}) {
				b.clearCancelled(ctx.Token)
				result(ctx, engine.Chunk{Event: engine.EventFail})
				return
			}
			sent += n
		}
		b.clearCancelled(ctx.Token)
		result(ctx, engine.Chunk{Event: engine.EventFinish})
	}()
	return nil
}

func (b *Backend) CancelSynth(ctx engine.SynthContext) error {
	b.mu.Lock()
	b.cancelled[ctx.Token] = true
	b.mu.Unlock()
	return nil
}

func (b *Backend) isCancelled(token string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cancelled[token]
}

func (b *Backend) clearCancelled(token string) {
	b.mu.Lock()
	delete(b.cancelled, token)
	b.mu.Unlock()
}
