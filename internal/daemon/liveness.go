package daemon

import "time"

// sweepLiveness drops clients that have gone silent for longer than the
// configured liveness period (§4.4's deferred housekeeping task).
//
// The original daemon confirms liveness by asking each client's own process
// to answer a reverse hello; that requires a callback channel into every
// client process, which is disproportionate for a single-daemon spec with no
// cross-process supervision tree. Instead this freshness-timeout heuristic
// treats any request handled for uid (hello, add_queue, play, ...) as proof
// of life and reaps a client that hasn't made one within LivenessPeriod,
// running its exact Finalize teardown. See DESIGN.md.
func (d *Daemon) sweepLiveness() {
	deadline := d.cfg.LivenessPeriod()
	var stale []int
	for uid, c := range d.clients {
		if time.Since(c.lastSeen) > deadline {
			stale = append(stale, uid)
		}
	}
	for _, uid := range stale {
		_ = d.finalizeLocked(uid)
	}
}
