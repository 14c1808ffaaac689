package daemon

import (
	"time"

	"github.com/nupi-ai/go-ttsd/internal/engine"
)

// ClientState mirrors app_state_e from ttsd_data.h.
type ClientState int

const (
	Created ClientState = iota
	Ready
	Playing
	Paused
)

func (s ClientState) String() string {
	switch s {
	case Created:
		return "created"
	case Ready:
		return "ready"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "unknown-state"
	}
}

// SoundType selects the player's output stream routing (§4.6).
type SoundType int

const (
	SoundNormal SoundType = iota
	SoundFixedMax
)

// SpeakRequest is one queued utterance, grounded on speak_data_s.
type SpeakRequest struct {
	UttID     int
	Text      string
	Voice     engine.Voice
	Speed     engine.Speed
}

// AudioChunk is one unit of synthesized audio queued for the player,
// grounded on sound_data_s.
type AudioChunk struct {
	UttID      int
	Data       []byte
	Event      engine.ResultEvent
	AudioType  engine.AudioType
	SampleRate int
	Channels   int
}

// Client is the daemon-side registry entry for one connected handle,
// grounded on app_data_s.
type Client struct {
	PID int
	UID int

	State             ClientState
	LastStoppedUttID  int
	SoundType         SoundType

	PendingUtterances []SpeakRequest
	AudioQueue        []AudioChunk
	UsedVoices        map[engine.Voice]bool

	lastSeen time.Time
}

func newClient(pid, uid int) *Client {
	return &Client{
		PID:        pid,
		UID:        uid,
		State:      Created,
		UsedVoices: make(map[engine.Voice]bool),
		lastSeen:   time.Now(),
	}
}

// touch records activity from this client, resetting its liveness deadline.
func (c *Client) touch() { c.lastSeen = time.Now() }

// popUtterance removes and returns the oldest pending utterance, if any.
func (c *Client) popUtterance() (SpeakRequest, bool) {
	if len(c.PendingUtterances) == 0 {
		return SpeakRequest{}, false
	}
	req := c.PendingUtterances[0]
	c.PendingUtterances = c.PendingUtterances[1:]
	return req, true
}

// clearPending drops all pending utterances and queued audio, recording the
// highest utt_id observed as the new staleness floor (§4.4 "Stop"
// semantics). extra carries utt_ids that aren't reflected in either slice
// at the moment of the call — chiefly one already popped into the engine
// for synthesis, whose Start/Continue/Finish chunks haven't landed in
// AudioQueue yet — so a late chunk for it is still recognized as stale
// once it does arrive, instead of being mistaken for a fresh utterance.
func (c *Client) clearPending(extra ...int) {
	maxID := c.LastStoppedUttID
	for _, r := range c.PendingUtterances {
		if r.UttID > maxID {
			maxID = r.UttID
		}
	}
	for _, a := range c.AudioQueue {
		if a.UttID > maxID {
			maxID = a.UttID
		}
	}
	for _, id := range extra {
		if id > maxID {
			maxID = id
		}
	}
	c.PendingUtterances = nil
	c.AudioQueue = nil
	c.LastStoppedUttID = maxID
}
