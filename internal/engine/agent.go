package engine

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/nupi-ai/go-ttsd/internal/errtaxonomy"
)

// Agent wraps a Backend and adds the bookkeeping the daemon core relies on:
// voice reference counting (load on first reference, unload on last
// release) and single-flight enforcement of start_synth/cancel_synth, so
// the Backend implementation itself never has to worry about either.
//
// Grounded on ttsd_engine_agent / ttsd_data's used_voices bookkeeping
// described by server/ttsd_server.c and server/ttsd_data.h.
type Agent struct {
	backend Backend

	mu        sync.Mutex
	refcounts map[Voice]int
	running   *SynthContext // non-nil while a synthesis is in flight
}

// NewAgent wraps backend. Initialize must be called before use.
func NewAgent(backend Backend) *Agent {
	return &Agent{
		backend:   backend,
		refcounts: make(map[Voice]int),
	}
}

func (a *Agent) Initialize() error   { return a.backend.Initialize() }
func (a *Agent) Deinitialize() error { return a.backend.Deinitialize() }
func (a *Agent) Name() string        { return a.backend.Name() }

// SelectValidVoice implements the fallback selection described in §4.5:
// if the exact (language, type) pair is unsupported, fall back to the same
// language with any type, then to any voice at all. Returns InvalidVoice if
// the backend supports nothing.
func (a *Agent) SelectValidVoice(requested Voice) (Voice, error) {
	if a.backend.IsValidVoice(requested) {
		return requested, nil
	}

	var sameLanguage *Voice
	var any *Voice
	_ = a.backend.ForeachVoice(func(v Voice) bool {
		if v.Language == requested.Language && sameLanguage == nil {
			cp := v
			sameLanguage = &cp
		}
		if any == nil {
			cp := v
			any = &cp
		}
		return sameLanguage == nil
	})

	if sameLanguage != nil {
		return *sameLanguage, nil
	}
	if any != nil {
		return *any, nil
	}
	return Voice{}, errtaxonomy.New(errtaxonomy.InvalidVoice)
}

// LoadVoice increments the refcount for v, calling the backend's LoadVoice
// only on the first reference.
func (a *Agent) LoadVoice(v Voice) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.refcounts[v] > 0 {
		a.refcounts[v]++
		return nil
	}
	if err := a.backend.LoadVoice(v); err != nil {
		return err
	}
	a.refcounts[v] = 1
	return nil
}

// UnloadVoice decrements the refcount for v, calling the backend's
// UnloadVoice only once the last reference is released (invariant 6).
func (a *Agent) UnloadVoice(v Voice) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	n, ok := a.refcounts[v]
	if !ok || n <= 0 {
		return errtaxonomy.New(errtaxonomy.InvalidVoice)
	}
	n--
	if n == 0 {
		delete(a.refcounts, v)
		return a.backend.UnloadVoice(v)
	}
	a.refcounts[v] = n
	return nil
}

// RefCount reports the current reference count for v (0 if unloaded); used
// by tests to assert invariant 6.
func (a *Agent) RefCount(v Voice) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.refcounts[v]
}

// ForeachVoiceSafe exposes the backend's voice table to read-only callers
// (tts_method_get_support_voices) without handing them the Backend itself.
func (a *Agent) ForeachVoiceSafe(fn func(Voice) bool) error {
	return a.backend.ForeachVoice(fn)
}

// NewToken produces a synthesis correlation token distinct from any
// previous one, even across utt_id wraparound.
func NewToken() string { return uuid.NewString() }

// StartSynth enforces at-most-one-concurrent-synthesis (synth_control =
// Idle precondition, §4.3) before delegating to the backend.
func (a *Agent) StartSynth(uid, uttID int, v Voice, text string, speed Speed, result ResultFunc) (SynthContext, error) {
	a.mu.Lock()
	if a.running != nil {
		a.mu.Unlock()
		return SynthContext{}, errtaxonomy.New(errtaxonomy.InvalidState)
	}
	ctx := SynthContext{UID: uid, UttID: uttID, Token: NewToken()}
	a.running = &ctx
	a.mu.Unlock()

	wrapped := func(c SynthContext, chunk Chunk) bool {
		cont := result(c, chunk)
		if chunk.Event == EventFinish || chunk.Event == EventFail {
			a.mu.Lock()
			if a.running != nil && a.running.Token == c.Token {
				a.running = nil
			}
			a.mu.Unlock()
		}
		return cont
	}

	if err := a.backend.StartSynth(ctx, v, text, speed, wrapped); err != nil {
		a.mu.Lock()
		if a.running != nil && a.running.Token == ctx.Token {
			a.running = nil
		}
		a.mu.Unlock()
		return SynthContext{}, err
	}
	return ctx, nil
}

// CancelSynth cancels the currently running synthesis, if any.
func (a *Agent) CancelSynth() error {
	a.mu.Lock()
	ctx := a.running
	a.mu.Unlock()
	if ctx == nil {
		return errtaxonomy.New(errtaxonomy.InvalidState)
	}
	return a.backend.CancelSynth(*ctx)
}

// IsSynthesizing reports whether a synthesis is currently in flight
// (synth_control = InProgress).
func (a *Agent) IsSynthesizing() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running != nil
}

func (a *Agent) String() string {
	return fmt.Sprintf("agent(%s)", a.backend.Name())
}
