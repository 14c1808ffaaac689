package daemon

import (
	"github.com/nupi-ai/go-ttsd/internal/engine"
	"github.com/nupi-ai/go-ttsd/internal/errtaxonomy"
	"github.com/nupi-ai/go-ttsd/internal/ttsconfig"
)

// AddQueue validates and enqueues text for synthesis (ttsd_server_add_queue
// / tts_method_add_queue) under the client-assigned uttID. Returns nil on
// success; the caller echoes uttID back to the client.
func (d *Daemon) AddQueue(uid, uttID int, voice engine.Voice, text string, speed engine.Speed) error {
	var result error
	d.exec(func() {
		c, ok := d.clients[uid]
		if !ok {
			result = errtaxonomy.New(errtaxonomy.InvalidState)
			return
		}
		if c.State == Created {
			result = errtaxonomy.New(errtaxonomy.InvalidState)
			return
		}

		selected, err := d.agent.SelectValidVoice(voice)
		if err != nil {
			result = err
			return
		}
		if !c.UsedVoices[selected] {
			if err := d.agent.LoadVoice(selected); err != nil {
				result = err
				return
			}
			c.UsedVoices[selected] = true
		}

		c.PendingUtterances = append(c.PendingUtterances, SpeakRequest{
			UttID: uttID,
			Text:  text,
			Voice: selected,
			Speed: speed,
		})

		// If this client is already playing and nothing is in flight,
		// the new utterance can be picked up immediately rather than
		// waiting for the next poll tick.
		if d.playingUID == uid && d.synth == SynthIdle {
			d.advanceLocked()
		}
	})
	return result
}

// tryAdvance is the deferred task described in §4.3: polled at a short
// interval so that completion of one synthesis naturally triggers the
// next without holding any caller's thread.
func (d *Daemon) tryAdvance() {
	d.advanceLocked()
}

// advanceLocked must only run on the event-loop goroutine.
func (d *Daemon) advanceLocked() {
	if d.playingUID == 0 || d.synth != SynthIdle {
		return
	}
	client, ok := d.clients[d.playingUID]
	if !ok {
		return
	}
	req, ok := client.popUtterance()
	if !ok {
		return
	}

	d.synth = SynthInProgress
	ctx, err := d.agent.StartSynth(client.UID, req.UttID, req.Voice, req.Text, req.Speed, d.makeResultFunc())
	if err != nil {
		d.synth = SynthIdle
		d.logSynthError(client, req, err, "advanceLocked")
		return
	}
	d.running = &ctx
}

// makeResultFunc builds the callback handed to the engine agent. It is
// invoked on a backend-owned goroutine, so it hops back onto the event loop
// via exec before touching any daemon state (§5 ordering guarantees).
func (d *Daemon) makeResultFunc() engine.ResultFunc {
	return func(ctx engine.SynthContext, chunk engine.Chunk) bool {
		var cont bool
		d.exec(func() {
			cont = d.handleChunkLocked(ctx, chunk)
		})
		return cont
	}
}

func (d *Daemon) handleChunkLocked(ctx engine.SynthContext, chunk engine.Chunk) bool {
	client, ok := d.clients[ctx.UID]
	if !ok {
		// Client gone; let the backend wind down but discard output.
		if chunk.Event == engine.EventFinish || chunk.Event == engine.EventFail {
			d.synth = SynthIdle
			d.running = nil
		}
		return false
	}

	if ctx.UttID <= client.LastStoppedUttID {
		// Stale chunk (invariant 3): discard silently.
		if chunk.Event == engine.EventFinish || chunk.Event == engine.EventFail {
			d.synth = SynthIdle
			d.running = nil
		}
		return false
	}

	switch chunk.Event {
	case engine.EventStart:
		client.AudioQueue = append(client.AudioQueue, toAudioChunk(ctx.UttID, chunk))
		_ = d.player.Enqueue(client.UID, chunk.Data, chunk.Event)
		_ = d.bulk.Publish(client.PID, BulkEvent{Name: bulkUtteranceStarted, UID: client.UID, UttID: ctx.UttID})
		return true
	case engine.EventContinue:
		client.AudioQueue = append(client.AudioQueue, toAudioChunk(ctx.UttID, chunk))
		_ = d.player.Enqueue(client.UID, chunk.Data, chunk.Event)
		return true
	case engine.EventFinish:
		client.AudioQueue = append(client.AudioQueue, toAudioChunk(ctx.UttID, chunk))
		_ = d.player.Enqueue(client.UID, chunk.Data, chunk.Event)
		d.synth = SynthIdle
		d.running = nil
		_ = d.bulk.Publish(client.PID, BulkEvent{Name: bulkUtteranceCompleted, UID: client.UID, UttID: ctx.UttID})
		return false
	case engine.EventFail:
		d.synth = SynthExpired
		d.running = nil
		d.logSynthError(client, SpeakRequest{UttID: ctx.UttID}, errTaxonomyOperationFailed(), "handleChunkLocked")
		_ = d.bulk.Publish(client.PID, BulkEvent{Name: bulkError, UID: client.UID, UttID: ctx.UttID, Code: int(errtaxonomy.OperationFailed)})
		d.synth = SynthIdle
		return false
	default:
		return false
	}
}

func toAudioChunk(uttID int, chunk engine.Chunk) AudioChunk {
	return AudioChunk{
		UttID:      uttID,
		Data:       chunk.Data,
		Event:      chunk.Event,
		AudioType:  chunk.AudioType,
		SampleRate: chunk.SampleRate,
		Channels:   chunk.Channels,
	}
}

func errTaxonomyOperationFailed() error { return errtaxonomy.New(errtaxonomy.OperationFailed) }

func (d *Daemon) logSynthError(client *Client, req SpeakRequest, err error, fn string) {
	if !errtaxonomy.CodeOf(err).Loggable() {
		return
	}
	if d.errlog == nil {
		return
	}
	_ = d.errlog.Append(ttsconfig.ErrorRecord{
		Func:      fn,
		Message:   errtaxonomy.CodeOf(err).String(),
		UID:       client.UID,
		UttID:     req.UttID,
		Language:  req.Voice.Language,
		VoiceType: int(req.Voice.Type),
		Text:      req.Text,
		EngineID:  d.agent.Name(),
	})
}

const (
	bulkUtteranceStarted   = "utterance_started"
	bulkUtteranceCompleted = "utterance_completed"
	bulkError              = "error"
	bulkStateChanged       = "state_changed"
)
