// Package ipcmsg defines the wire envelope and method names for the
// control channel between a client handle and a daemon instance, and a
// length-prefixed JSON codec to read/write them over any io.ReadWriter
// (in practice a Unix domain socket).
//
// Grounded on the tagged-union ControlMsg pattern used for the quic-go
// transport in other_examples/..._rustyguts-bken__client-transport.go: one
// struct carries every method's fields behind `omitempty`, discriminated by
// a Method string, instead of a generated protobuf oneof.
package ipcmsg

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// Method names, carried over verbatim from common/tts_defs.h's
// TTS_METHOD_*/TTSD_METHOD_* constants.
const (
	MethodHello             = "hello"
	MethodInitialize        = "initialize"
	MethodFinalize          = "finalize"
	MethodGetSupportVoices  = "get_support_voices"
	MethodGetCurrentVoice   = "get_current_voice"
	MethodSetSoundType      = "set_sound_type"
	MethodAddQueue          = "add_queue"
	MethodPlay              = "play"
	MethodStop              = "stop"
	MethodPause             = "pause"

	// Daemon-to-client events, delivered over the bulk/file channel
	// (see internal/ipc's FileChannel), not the control channel.
	EventUtteranceStarted   = "utterance_started"
	EventUtteranceCompleted = "utterance_completed"
	EventError              = "error"
	EventStateChanged       = "state_changed"
)

// VoiceMsg is the wire shape of an engine.Voice.
type VoiceMsg struct {
	Language string `json:"language"`
	Type     int    `json:"type"`
}

// Request is the envelope sent on the control channel from client to
// daemon. Only the fields relevant to Method are populated.
type Request struct {
	Method string `json:"method"`
	UID    int    `json:"uid"`
	PID    int    `json:"pid,omitempty"`

	SoundType string `json:"sound_type,omitempty"`

	Text      string `json:"text,omitempty"`
	Language  string `json:"language,omitempty"`
	VoiceType int    `json:"voice_type,omitempty"`
	Speed     int    `json:"speed,omitempty"`
	UttID     int    `json:"utt_id,omitempty"`
}

// Response is the envelope sent back from daemon to client.
type Response struct {
	Code int `json:"code"`

	Voices       []VoiceMsg `json:"voices,omitempty"`
	VoiceLang    string     `json:"voice_lang,omitempty"`
	VoiceType    int        `json:"voice_type,omitempty"`
	UttID        int        `json:"utt_id,omitempty"`
}

// Event is the envelope appended to a per-(pid,mode) bulk channel file.
type Event struct {
	Name  string `json:"name"`
	UID   int    `json:"uid"`
	UttID int    `json:"utt_id,omitempty"`
	Code  int    `json:"code,omitempty"`
	State string `json:"state,omitempty"`
}

// Writer frames a JSON value with a 4-byte big-endian length prefix.
type Writer struct{ w io.Writer }

func NewWriter(w io.Writer) *Writer { return &Writer{w: w} }

func (w *Writer) WriteJSON(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("ipcmsg: marshal: %w", err)
	}
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(payload)))
	if _, err := w.w.Write(hdr[:]); err != nil {
		return fmt.Errorf("ipcmsg: write length: %w", err)
	}
	if _, err := w.w.Write(payload); err != nil {
		return fmt.Errorf("ipcmsg: write payload: %w", err)
	}
	return nil
}

// MaxFrameBytes bounds a single frame to guard against a corrupt or hostile
// peer asking the reader to allocate unbounded memory.
const MaxFrameBytes = 8 << 20

// Reader reads length-prefixed JSON values written by Writer.
type Reader struct{ r *bufio.Reader }

func NewReader(r io.Reader) *Reader { return &Reader{r: bufio.NewReader(r)} }

func (r *Reader) ReadJSON(v any) error {
	var hdr [4]byte
	if _, err := io.ReadFull(r.r, hdr[:]); err != nil {
		return err
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if n > MaxFrameBytes {
		return fmt.Errorf("ipcmsg: frame of %d bytes exceeds max %d", n, MaxFrameBytes)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r.r, payload); err != nil {
		return fmt.Errorf("ipcmsg: read payload: %w", err)
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("ipcmsg: unmarshal: %w", err)
	}
	return nil
}
