// Package engine drives a pluggable text-to-speech backend conforming to
// the engine plugin ABI (grounded on ttsp.h/ttspe_funcs_s from the original
// daemon): initialize/deinitialize, voice enumeration and validation, pitch,
// reference-counted voice load/unload, and a non-blocking start/cancel
// synthesis pair that streams results through a callback.
package engine

import "fmt"

// VoiceType is one of Male, Female or Child, matching TTSP_VOICE_TYPE_*.
type VoiceType int

const (
	Male VoiceType = iota + 1
	Female
	Child
)

func (t VoiceType) String() string {
	switch t {
	case Male:
		return "male"
	case Female:
		return "female"
	case Child:
		return "child"
	default:
		return fmt.Sprintf("voice-type(%d)", int(t))
	}
}

// Voice is a (language, type) pair. Language is a locale tag formatted as
// two-letter country + underscore + two-letter language code, e.g. "en_US".
type Voice struct {
	Language string
	Type     VoiceType
}

func (v Voice) String() string { return fmt.Sprintf("%s/%s", v.Language, v.Type) }

// AudioType is the PCM sample encoding delivered by the engine.
type AudioType int

const (
	S16PCM AudioType = iota
	U8PCM
)

// ResultEvent marks the position of a chunk within a synthesis stream.
// Exactly one Start, zero or more Continue, and exactly one of Finish/Fail
// is delivered per start_synthesis invocation (§4.5, invariant 5).
type ResultEvent int

const (
	EventFail ResultEvent = iota - 1
	_
	EventStart
	EventContinue
	EventFinish
)

func (e ResultEvent) String() string {
	switch e {
	case EventFail:
		return "fail"
	case EventStart:
		return "start"
	case EventContinue:
		return "continue"
	case EventFinish:
		return "finish"
	default:
		return "unknown"
	}
}

// Chunk is one unit of synthesized audio (or a terminal Fail marker)
// delivered by a Backend to its ResultFunc.
type Chunk struct {
	Event      ResultEvent
	Data       []byte
	AudioType  AudioType
	SampleRate int
	Channels   int
}

// SynthContext correlates a running synthesis with the request that started
// it; it is opaque to the backend and echoed back unchanged on every Chunk
// delivered for that request.
type SynthContext struct {
	UID   int
	UttID int
	Token string // correlation token, distinct even across utt_id wraparound
}

// ResultFunc receives one chunk of a synthesis stream. Returning false asks
// the backend to stop producing further chunks for this context, mirroring
// ttspe_result_cb's boolean "continue iteration" return value.
type ResultFunc func(ctx SynthContext, chunk Chunk) bool

// Speed is a speaking-speed value in 1..15, normal=8, matching
// TTSP_SPEED_MIN/NORMAL/MAX.
type Speed int

const (
	SpeedMin    Speed = 1
	SpeedNormal Speed = 8
	SpeedMax    Speed = 15
)

// SpeedAuto is the client-facing sentinel meaning "use the backend default".
const SpeedAuto Speed = 0

// Clamp returns s bounded to [SpeedMin, SpeedMax], or SpeedNormal if s is
// SpeedAuto.
func (s Speed) Clamp() Speed {
	if s == SpeedAuto {
		return SpeedNormal
	}
	if s < SpeedMin {
		return SpeedMin
	}
	if s > SpeedMax {
		return SpeedMax
	}
	return s
}

// Backend is the plugin ABI a synthesis engine implements. It is driven
// exclusively by the Agent (§5: "the daemon is the sole owner of the Engine
// Agent and its voice table; clients may not invoke engine functions").
type Backend interface {
	// Name identifies the backend for config persistence and logging.
	Name() string
	// Initialize prepares the backend to receive synthesis requests.
	Initialize() error
	// Deinitialize releases all backend resources.
	Deinitialize() error
	// ForeachVoice invokes fn for every supported voice until fn returns
	// false or voices are exhausted.
	ForeachVoice(fn func(Voice) bool) error
	// IsValidVoice reports whether the backend supports v.
	IsValidVoice(v Voice) bool
	// SetPitch sets the default pitch, 1..15 normal=8.
	SetPitch(pitch int) error
	// LoadVoice prepares v for synthesis. Called at most once per
	// distinct voice by the Agent's refcounting layer.
	LoadVoice(v Voice) error
	// UnloadVoice releases v. Called when its refcount reaches zero.
	UnloadVoice(v Voice) error
	// StartSynth begins synthesizing text asynchronously for ctx,
	// delivering chunks to result. It must return quickly; delivery
	// happens on a backend-owned goroutine.
	StartSynth(ctx SynthContext, v Voice, text string, speed Speed, result ResultFunc) error
	// CancelSynth requests that the in-flight synthesis abort. The
	// backend must still emit a Fail or Finish chunk to close the
	// stream.
	CancelSynth(ctx SynthContext) error
}
