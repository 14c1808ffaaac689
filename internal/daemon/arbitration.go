package daemon

import "github.com/nupi-ai/go-ttsd/internal/errtaxonomy"

// ArbitrationPolicy selects how a preempted client is treated when another
// client requests Play while it holds Playing (§4.4).
type ArbitrationPolicy int

const (
	// PolicyPause moves the preempted client to Paused (Default mode).
	PolicyPause ArbitrationPolicy = iota
	// PolicyStop moves the preempted client to Ready, cancelling any
	// in-flight synthesis (Notification / ScreenReader modes).
	PolicyStop
)

// policyForMode maps the daemon's mode, given as whether it is ipc.Default,
// to its arbitration policy. Default mode pauses the preempted client;
// Notification and ScreenReader stop it.
func policyForMode(defaultMode bool) ArbitrationPolicy {
	if defaultMode {
		return PolicyPause
	}
	return PolicyStop
}

// Play implements ttsd_server_play.
func (d *Daemon) Play(uid int, defaultMode bool) error {
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
		if d.playingUID == uid {
			return // already playing: no-op success
		}

		if d.playingUID != 0 {
			d.preemptLocked(d.playingUID, policyForMode(defaultMode))
		}

		c.State = Playing
		d.playingUID = uid
		_ = d.bulk.Publish(c.PID, BulkEvent{Name: bulkStateChanged, UID: uid, State: Playing.String()})
		_ = d.player.Play(uid)
		d.advanceLocked()
	})
	return result
}

// preemptLocked moves the currently-playing client aside for a new Play
// request. Must only run on the event-loop goroutine.
func (d *Daemon) preemptLocked(uid int, policy ArbitrationPolicy) {
	c, ok := d.clients[uid]
	if !ok {
		d.playingUID = 0
		return
	}

	switch policy {
	case PolicyPause:
		c.State = Paused
		_ = d.player.Pause(uid)
		_ = d.bulk.Publish(c.PID, BulkEvent{Name: bulkStateChanged, UID: uid, State: Paused.String()})
	case PolicyStop:
		c.State = Ready
		_ = d.player.Stop(uid)
		_ = d.bulk.Publish(c.PID, BulkEvent{Name: bulkStateChanged, UID: uid, State: Ready.String()})
		var inFlightUttID int
		if d.running != nil && d.running.UID == uid {
			inFlightUttID = d.running.UttID
			if d.synth == SynthInProgress {
				_ = d.agent.CancelSynth()
			}
			d.synth = SynthExpired
			d.running = nil
			d.synth = SynthIdle
		}
		c.clearPending(inFlightUttID)
	}
	d.playingUID = 0
}

// Stop implements ttsd_server_stop.
func (d *Daemon) Stop(uid int) error {
	var result error
	d.exec(func() {
		c, ok := d.clients[uid]
		if !ok {
			result = errtaxonomy.New(errtaxonomy.InvalidState)
			return
		}
		if c.State != Playing && c.State != Paused {
			// Double-stop from Ready is a documented no-op success.
			return
		}
		_ = d.player.Stop(uid)
		var inFlightUttID int
		if d.running != nil && d.running.UID == uid {
			inFlightUttID = d.running.UttID
			if d.synth == SynthInProgress {
				_ = d.agent.CancelSynth()
			}
			d.synth = SynthExpired
			d.running = nil
		}
		c.State = Ready
		c.clearPending(inFlightUttID)
		if d.playingUID == uid {
			d.playingUID = 0
		}
		d.synth = SynthIdle
		_ = d.bulk.Publish(c.PID, BulkEvent{Name: bulkStateChanged, UID: uid, State: Ready.String()})
	})
	return result
}

// Pause implements ttsd_server_pause: only valid from Playing. Any
// already-queued synthesis may continue to completion.
func (d *Daemon) Pause(uid int) error {
	var result error
	d.exec(func() {
		c, ok := d.clients[uid]
		if !ok || c.State != Playing {
			result = errtaxonomy.New(errtaxonomy.InvalidState)
			return
		}
		_ = d.player.Pause(uid)
		c.State = Paused
		_ = d.bulk.Publish(c.PID, BulkEvent{Name: bulkStateChanged, UID: uid, State: Paused.String()})
	})
	return result
}

// PlayingUID reports the uid currently holding Playing, or 0 if none
// (invariant 1: at most one client has state = Playing).
func (d *Daemon) PlayingUID() int {
	var uid int
	d.exec(func() { uid = d.playingUID })
	return uid
}
