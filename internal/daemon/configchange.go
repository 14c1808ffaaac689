package daemon

import (
	"github.com/nupi-ai/go-ttsd/internal/engine"
	"github.com/nupi-ai/go-ttsd/internal/ttsconfig"
)

// ConfigChanged implements __config_changed_cb (§4.4's "configuration-change
// callback"): cmd/ttsd/main.go registers it as the ttsconfig.Store's
// ChangeCallback, so a config field persisted through the Store reaches the
// daemon core on its own event-loop goroutine via exec.
func (d *Daemon) ConfigChanged(t ttsconfig.ChangeType, strParam string, intParam int) {
	switch t {
	case ttsconfig.ChangeEngine:
		d.exec(func() { d.applyEngineChangeLocked(strParam) })
	case ttsconfig.ChangeVoice:
		d.exec(func() { d.applyVoiceChangeLocked(strParam, intParam) })
	case ttsconfig.ChangeSpeed:
		// Speed applies to the next add_queue call; no running state to
		// disturb.
	}
}

// applyEngineChangeLocked implements TTS_CONFIG_TYPE_ENGINE: a no-op if the
// new id matches the running engine, else the full disruptive sequence —
// stop every player lane, move every prepared client back to Ready,
// cancel any in-flight synthesis. Must only run on the event-loop goroutine.
func (d *Daemon) applyEngineChangeLocked(engineID string) {
	if engineID == "" || engineID == d.agent.Name() {
		d.log.Debug().Str("engine", engineID).Msg("config: new engine matches current, ignoring")
		return
	}

	_ = d.player.AllStop()

	for uid, c := range d.clients {
		if c.State == Created {
			continue
		}
		c.clearPending()
		c.State = Ready
		_ = d.bulk.Publish(c.PID, BulkEvent{Name: bulkStateChanged, UID: uid, State: Ready.String()})
	}

	if d.synth == SynthInProgress {
		_ = d.agent.CancelSynth()
	}
	d.synth = SynthIdle
	d.running = nil
	d.playingUID = 0

	// internal/engine has no multi-engine registry in this build — one
	// backend is compiled in per process (cmd/ttsd's -engine flag) — so
	// there is no second backend to swap to here. The disruptive sequence
	// above still runs in full; only the final ttsd_engine_agent_set_
	// default_engine step has nothing further to do.
	d.log.Info().Str("engine", engineID).Msg("config: default engine changed, all clients reset to ready")
}

// applyVoiceChangeLocked implements TTS_CONFIG_TYPE_VOICE: validates the
// requested default voice against the engine's table, logging a warning if
// unsupported (ttsd_engine_select_valid_voice's failure path). The Store
// has already persisted the raw request regardless, matching the original's
// decoupled save-then-notify flow.
func (d *Daemon) applyVoiceChangeLocked(language string, voiceType int) {
	if _, err := d.agent.SelectValidVoice(engine.Voice{Language: language, Type: engine.VoiceType(voiceType)}); err != nil {
		d.log.Warn().Str("language", language).Int("voice_type", voiceType).Msg("config: requested default voice unsupported by engine")
	}
}
