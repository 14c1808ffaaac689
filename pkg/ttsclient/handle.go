package ttsclient

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/nupi-ai/go-ttsd/internal/config"
	"github.com/nupi-ai/go-ttsd/internal/errtaxonomy"
	"github.com/nupi-ai/go-ttsd/internal/ipc"
	"github.com/nupi-ai/go-ttsd/internal/ipcmsg"
)

// handleCounter distinguishes multiple handles opened within the same
// process, since uid must be unique per registered client (ttsd_data's
// app_data_s is keyed by uid, not pid).
var handleCounter int32

// State mirrors the client-local view of tts_state_e: the handle tracks its
// own state independent of (but synchronized with) the daemon's, since
// between an event firing and the handle observing it the two may briefly
// disagree.
type State int

const (
	StateCreated State = iota
	StateReady
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateReady:
		return "ready"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Voice is the client-facing voice selector; it is looser than engine.Voice
// in that Type may be left at its zero value to mean "any type".
type Voice struct {
	Language string
	Type     int
}

// Handle is one application's connection to a ttsd instance for one Mode.
// Its methods map directly onto the control-channel methods in internal/ipcmsg.
type Handle struct {
	mode ipc.Mode
	root string
	cfg  config.Config

	uid int

	mu            sync.Mutex
	state         State
	callbackInUse bool
	currentUttID  int

	conn   *ipc.Client
	tailer *ipc.Tailer

	callbacks Callbacks

	closed chan struct{}
}

// Open connects (spawning the daemon on demand if necessary) and prepares
// the handle. Connect and prepare are deliberately two steps (tts_prepare
// is a distinct call from tts_create in the original client): a connect
// failure leaves nothing behind to report through, so it still returns
// (nil, err); a prepare failure (S5: the daemon's engine failed to
// initialize) instead returns the live Handle alongside the error, in
// StateCreated, with OnError already fired — mirroring tts_prepare's
// async failure mode rather than discarding the handle.
func Open(mode ipc.Mode, root string, cfg config.Config, callbacks Callbacks) (*Handle, error) {
	conn, err := dialOrSpawn(root, mode, cfg)
	if err != nil {
		return nil, err
	}

	uid := processID()*1000 + int(atomic.AddInt32(&handleCounter, 1))
	h := &Handle{
		mode:      mode,
		root:      root,
		cfg:       cfg,
		uid:       uid,
		state:     StateCreated,
		conn:      conn,
		callbacks: callbacks,
		closed:    make(chan struct{}),
	}

	if err := h.Prepare(); err != nil {
		return h, err
	}
	return h, nil
}

// Prepare performs the initialize handshake (tts_prepare) and, on success,
// opens the bulk event tailer and starts delivering callbacks, moving the
// handle from Created to Ready. Only valid from Created. On failure the
// handle remains Created and OnError fires with the failing code (S5), so
// a caller may retry Prepare later (e.g. once the engine becomes
// available) rather than having to re-dial.
func (h *Handle) Prepare() error {
	h.mu.Lock()
	if h.state != StateCreated {
		h.mu.Unlock()
		return errtaxonomy.New(errtaxonomy.InvalidState)
	}
	h.mu.Unlock()

	resp, err := h.callWithRetry(ipcmsg.Request{Method: ipcmsg.MethodInitialize, UID: h.uid, PID: processID()})
	if err != nil {
		h.fireError(errtaxonomy.CodeOf(err))
		return err
	}
	if resp.Code != int(errtaxonomy.None) {
		code := errtaxonomy.Code(resp.Code)
		h.fireError(code)
		return errtaxonomy.New(code)
	}

	h.mu.Lock()
	h.state = StateReady
	h.mu.Unlock()

	tailer, err := ipc.NewTailer(ipc.BulkChannelDir(h.root, processID(), h.mode))
	if err != nil {
		return fmt.Errorf("ttsclient: open bulk tailer: %w", err)
	}
	h.tailer = tailer
	go h.dispatchLoop()

	return nil
}

// Unprepare releases the daemon-side registration (Ready -> Created) while
// keeping the handle's connection open, mirroring tts_unprepare: a single
// finalize request, after which the handle may be Prepare'd again.
func (h *Handle) Unprepare() error {
	h.mu.Lock()
	if h.state != StateReady {
		h.mu.Unlock()
		return errtaxonomy.New(errtaxonomy.InvalidState)
	}
	h.mu.Unlock()

	resp, err := h.callWithRetry(ipcmsg.Request{Method: ipcmsg.MethodFinalize, UID: h.uid})
	if err != nil {
		return err
	}
	if resp.Code != int(errtaxonomy.None) {
		return errtaxonomy.New(errtaxonomy.Code(resp.Code))
	}

	if h.tailer != nil {
		h.tailer.Close()
		h.tailer = nil
	}
	h.mu.Lock()
	h.state = StateCreated
	h.mu.Unlock()
	return nil
}

func (h *Handle) fireError(code Code) {
	if h.callbacks.OnError != nil {
		h.callbacks.OnError(0, code)
	}
}

// State reports the handle's last-known local state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// MaxTextBytes bounds a single add_queue request, matching the original
// client's TTS_TEXT_LIMIT.
const MaxTextBytes = 2000

// AddQueue enqueues text for synthesis and returns the assigned utt_id. The
// handle assigns utt_id itself (current_utt_id++, wrapping 9999->1), the
// same way tts_add_text does, rather than letting the daemon choose it.
func (h *Handle) AddQueue(voice Voice, text string, speed int) (int, error) {
	if len(text) > MaxTextBytes {
		return 0, errtaxonomy.New(errtaxonomy.InvalidParameter)
	}
	if !utf8.ValidString(text) {
		return 0, errtaxonomy.New(errtaxonomy.InvalidParameter)
	}

	h.mu.Lock()
	if h.state == StateCreated {
		h.mu.Unlock()
		return 0, errtaxonomy.New(errtaxonomy.InvalidState)
	}
	h.currentUttID++
	if h.currentUttID >= 10000 {
		h.currentUttID = 1
	}
	uttID := h.currentUttID
	h.mu.Unlock()

	resp, err := h.callWithRetry(ipcmsg.Request{
		Method:    ipcmsg.MethodAddQueue,
		UID:       h.uid,
		UttID:     uttID,
		Text:      text,
		Language:  voice.Language,
		VoiceType: voice.Type,
		Speed:     speed,
	})
	if err != nil {
		return 0, err
	}
	if resp.Code != int(errtaxonomy.None) {
		return 0, errtaxonomy.New(errtaxonomy.Code(resp.Code))
	}
	return resp.UttID, nil
}

// Play requests playback begin. Invalid from StateCreated or StatePlaying.
func (h *Handle) Play() error {
	h.mu.Lock()
	s := h.state
	h.mu.Unlock()
	if s == StateCreated || s == StatePlaying {
		return errtaxonomy.New(errtaxonomy.InvalidState)
	}
	return h.simpleCall(ipcmsg.MethodPlay, StatePlaying)
}

// Stop requests playback stop and all pending utterances be discarded.
func (h *Handle) Stop() error {
	return h.simpleCall(ipcmsg.MethodStop, StateReady)
}

// Pause requests playback pause; only valid from StatePlaying.
func (h *Handle) Pause() error {
	return h.simpleCall(ipcmsg.MethodPause, StatePaused)
}

func (h *Handle) simpleCall(method string, onSuccess State) error {
	resp, err := h.callWithRetry(ipcmsg.Request{Method: method, UID: h.uid})
	if err != nil {
		return err
	}
	if resp.Code != int(errtaxonomy.None) {
		return errtaxonomy.New(errtaxonomy.Code(resp.Code))
	}
	h.mu.Lock()
	h.state = onSuccess
	h.mu.Unlock()
	return nil
}

// SupportedVoices returns every voice the daemon's engine supports.
func (h *Handle) SupportedVoices() ([]Voice, error) {
	resp, err := h.callWithRetry(ipcmsg.Request{Method: ipcmsg.MethodGetSupportVoices, UID: h.uid})
	if err != nil {
		return nil, err
	}
	if resp.Code != int(errtaxonomy.None) {
		return nil, errtaxonomy.New(errtaxonomy.Code(resp.Code))
	}
	voices := make([]Voice, len(resp.Voices))
	for i, v := range resp.Voices {
		voices[i] = Voice{Language: v.Language, Type: v.Type}
	}
	return voices, nil
}

// GetDefaultVoice returns the daemon's persisted default voice
// (tts_get_default_voice / tts_method_get_current_voice).
func (h *Handle) GetDefaultVoice() (Voice, error) {
	resp, err := h.callWithRetry(ipcmsg.Request{Method: ipcmsg.MethodGetCurrentVoice, UID: h.uid})
	if err != nil {
		return Voice{}, err
	}
	if resp.Code != int(errtaxonomy.None) {
		return Voice{}, errtaxonomy.New(errtaxonomy.Code(resp.Code))
	}
	return Voice{Language: resp.VoiceLang, Type: resp.VoiceType}, nil
}

// Close finalizes the handle and releases its local resources.
func (h *Handle) Close() error {
	close(h.closed)
	if h.tailer != nil {
		h.tailer.Close()
	}
	_, _ = h.callWithRetry(ipcmsg.Request{Method: ipcmsg.MethodFinalize, UID: h.uid})
	return h.conn.Close()
}

// callWithRetry mirrors tts.c's per-call retry loop: a TimedOut response is
// retried up to cfg.RetryCount times with cfg.RetryBackoff between
// attempts; any other error (or exhausting the retry budget) is returned
// immediately.
func (h *Handle) callWithRetry(req ipcmsg.Request) (ipcmsg.Response, error) {
	var resp ipcmsg.Response
	var err error
	for attempt := 0; attempt <= h.cfg.RetryCount; attempt++ {
		resp, err = h.conn.Call(req)
		if err != nil {
			return resp, err
		}
		if resp.Code != int(errtaxonomy.TimedOut) {
			return resp, nil
		}
		time.Sleep(h.cfg.RetryBackoff())
	}
	return resp, nil
}

func processID() int { return os.Getpid() }
