package daemon

import "testing"

func TestClearPendingFoldsInFlightUttIDIntoStalenessFloor(t *testing.T) {
	c := newClient(1, 1)
	c.PendingUtterances = []SpeakRequest{{UttID: 3}, {UttID: 4}}

	// Utterance 7 has already been popped into the engine for synthesis
	// (so it appears in neither PendingUtterances nor AudioQueue yet) when
	// Stop/preemption happens; it must still raise the staleness floor so
	// a chunk that lands for it afterward is recognized as stale.
	c.clearPending(7)

	if c.LastStoppedUttID != 7 {
		t.Fatalf("LastStoppedUttID = %d, want 7", c.LastStoppedUttID)
	}
	if len(c.PendingUtterances) != 0 || len(c.AudioQueue) != 0 {
		t.Fatal("expected clearPending to drop all pending state")
	}
}

func TestClearPendingIgnoresZeroExtraWhenNothingInFlight(t *testing.T) {
	c := newClient(1, 1)
	c.PendingUtterances = []SpeakRequest{{UttID: 9}}

	c.clearPending(0)

	if c.LastStoppedUttID != 9 {
		t.Fatalf("LastStoppedUttID = %d, want 9 (zero extra must not win over real pending ids)", c.LastStoppedUttID)
	}
}
