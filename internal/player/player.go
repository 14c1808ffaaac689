// Package player implements the per-client audio queue and playback state
// machine (§4.6): it accepts synthesized chunks from the daemon core and
// hands finished, in-order audio to an AudioSink. It never decodes audio or
// touches hardware — that boundary is explicitly out of scope (see
// SPEC_FULL.md §1 Non-goals) and lives behind the AudioSink interface so a
// real build can plug in PulseAudio/ALSA/CoreAudio without this package
// changing.
//
// Grounded on the daemon core's own event-loop-owns-mutable-state pattern
// (internal/daemon/daemon.go): each client gets one lane, and lanes never
// share a mutex with each other or with the daemon loop.
package player

import (
	"sync"

	"github.com/nupi-ai/go-ttsd/internal/engine"
	"github.com/nupi-ai/go-ttsd/internal/errtaxonomy"
)

// AudioSink receives raw PCM for one client's audio lane. A real
// implementation would stream this to the system's audio output; tests use
// a fake that just records what it was handed.
type AudioSink interface {
	// Write delivers one chunk of PCM for uid. event marks the chunk's
	// position in its synthesis stream (Start/Continue/Finish/Fail).
	Write(uid int, data []byte, event engine.ResultEvent) error
	// SetPaused starts or stops output for uid without discarding queued
	// audio, so a Pause/Play cycle resumes mid-utterance.
	SetPaused(uid int, paused bool) error
	// Drain discards any audio queued for uid (used by Stop).
	Drain(uid int) error
}

type laneState int

const (
	laneStopped laneState = iota
	lanePlaying
	lanePaused
)

type lane struct {
	soundType int
	state     laneState
}

// Player is a sink-backed implementation of daemon.Player.
type Player struct {
	sink AudioSink

	mu    sync.Mutex
	lanes map[int]*lane
}

// New constructs a Player writing to sink.
func New(sink AudioSink) *Player {
	return &Player{sink: sink, lanes: make(map[int]*lane)}
}

func (p *Player) Create(uid int, soundType int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.lanes[uid]; exists {
		return errtaxonomy.New(errtaxonomy.InvalidState)
	}
	p.lanes[uid] = &lane{soundType: soundType, state: laneStopped}
	return nil
}

func (p *Player) Destroy(uid int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.lanes[uid]
	if !ok {
		return errtaxonomy.New(errtaxonomy.InvalidState)
	}
	delete(p.lanes, uid)
	if l.state != laneStopped {
		return p.sink.Drain(uid)
	}
	return nil
}

func (p *Player) Play(uid int) error {
	p.mu.Lock()
	l, ok := p.lanes[uid]
	p.mu.Unlock()
	if !ok {
		return errtaxonomy.New(errtaxonomy.InvalidState)
	}
	p.mu.Lock()
	l.state = lanePlaying
	p.mu.Unlock()
	return p.sink.SetPaused(uid, false)
}

func (p *Player) Pause(uid int) error {
	p.mu.Lock()
	l, ok := p.lanes[uid]
	if ok {
		l.state = lanePaused
	}
	p.mu.Unlock()
	if !ok {
		return errtaxonomy.New(errtaxonomy.InvalidState)
	}
	return p.sink.SetPaused(uid, true)
}

func (p *Player) Stop(uid int) error {
	p.mu.Lock()
	l, ok := p.lanes[uid]
	if ok {
		l.state = laneStopped
	}
	p.mu.Unlock()
	if !ok {
		return errtaxonomy.New(errtaxonomy.InvalidState)
	}
	return p.sink.Drain(uid)
}

// AllStop implements ttsd_player_all_stop: every lane still playing or
// paused is stopped and drained, used by the configuration-change callback
// (§4.4) when the default engine changes out from under every client at
// once.
func (p *Player) AllStop() error {
	p.mu.Lock()
	uids := make([]int, 0, len(p.lanes))
	for uid, l := range p.lanes {
		if l.state != laneStopped {
			l.state = laneStopped
			uids = append(uids, uid)
		}
	}
	p.mu.Unlock()

	var firstErr error
	for _, uid := range uids {
		if err := p.sink.Drain(uid); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Enqueue hands one synthesized chunk to the sink for uid. A chunk arriving
// for a lane that isn't currently playing (e.g. one last Finish delivered
// just after Stop) is written anyway; what happens to audio written after a
// Drain is up to the sink (FileSink starts the client's file over). The
// daemon core already drops stale chunks before they reach Enqueue.
func (p *Player) Enqueue(uid int, data []byte, event engine.ResultEvent) error {
	p.mu.Lock()
	_, ok := p.lanes[uid]
	p.mu.Unlock()
	if !ok {
		return errtaxonomy.New(errtaxonomy.InvalidState)
	}
	return p.sink.Write(uid, data, event)
}
