// Package execbackend provides an engine.Backend that drives an external
// command-line speech synthesizer, the same way
// RedClaus-cortex/apps/cortex-avatar's PiperProvider shells out to the
// local "piper" binary: resolve a binary path from common install
// locations, invoke it with the voice and text, and stream its stdout as
// PCM audio.
//
// Unlike PiperProvider (which writes a temp WAV file and returns it whole),
// execbackend streams the subprocess's stdout directly in chunks of at most
// ChunkBytes, matching the daemon pipeline's Start/Continue/Finish contract.
package execbackend

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/nupi-ai/go-ttsd/internal/engine"
	"github.com/nupi-ai/go-ttsd/internal/errtaxonomy"
)

// ChunkBytes is the read buffer size used when streaming subprocess stdout.
const ChunkBytes = 4096

// Config configures the external synthesizer invocation.
type Config struct {
	// BinaryPath is the synthesizer executable. If empty, the paths from
	// candidates() are probed in order.
	BinaryPath string
	// Args is the argument template; "{lang}", "{voice}", "{speed}" are
	// substituted from the request. Text is always piped via stdin.
	Args []string
	// SampleRate is the rate of the PCM the subprocess emits on stdout.
	SampleRate int
	// Voices lists the voices this backend claims to support.
	Voices []engine.Voice
}

// DefaultArgs mirrors a piper-style invocation: model selected by voice,
// raw PCM to stdout.
func DefaultArgs() []string {
	return []string{"--voice", "{voice}", "--lang", "{lang}", "--speed", "{speed}", "--output-raw"}
}

// candidates mirrors PiperProvider's binary search list.
func candidates() []string {
	home, _ := os.UserHomeDir()
	return []string{
		filepath.Join(home, ".local/bin/tts-engine"),
		"/usr/local/bin/tts-engine",
		"/opt/homebrew/bin/tts-engine",
	}
}

// Backend shells out to an external synthesizer binary per request.
type Backend struct {
	log        zerolog.Logger
	binaryPath string
	args       []string
	sampleRate int
	voices     []engine.Voice

	mu     sync.Mutex
	cancel map[string]context.CancelFunc
}

// New resolves the binary path (explicit config, then candidates()) and
// returns a Backend. It does not error if no binary is found; IsAvailable
// can be checked by the caller before wiring this backend in.
func New(cfg Config, log zerolog.Logger) *Backend {
	path := cfg.BinaryPath
	if path == "" {
		for _, c := range candidates() {
			if _, err := os.Stat(c); err == nil {
				path = c
				break
			}
		}
	}
	args := cfg.Args
	if len(args) == 0 {
		args = DefaultArgs()
	}
	rate := cfg.SampleRate
	if rate == 0 {
		rate = 22050
	}
	return &Backend{
		log:        log.With().Str("backend", "exec").Logger(),
		binaryPath: path,
		args:       args,
		sampleRate: rate,
		voices:     cfg.Voices,
		cancel:     make(map[string]context.CancelFunc),
	}
}

func (b *Backend) Name() string { return "exec" }

// IsAvailable reports whether a synthesizer binary was found.
func (b *Backend) IsAvailable() bool {
	if b.binaryPath == "" {
		return false
	}
	_, err := os.Stat(b.binaryPath)
	return err == nil
}

func (b *Backend) Initialize() error {
	if !b.IsAvailable() {
		return errtaxonomy.New(errtaxonomy.EngineNotFound)
	}
	return nil
}

func (b *Backend) Deinitialize() error { return nil }

func (b *Backend) ForeachVoice(fn func(engine.Voice) bool) error {
	for _, v := range b.voices {
		if !fn(v) {
			break
		}
	}
	return nil
}

func (b *Backend) IsValidVoice(v engine.Voice) bool {
	for _, known := range b.voices {
		if known == v {
			return true
		}
	}
	return false
}

func (b *Backend) SetPitch(pitch int) error {
	if pitch < 1 || pitch > 15 {
		return errtaxonomy.New(errtaxonomy.InvalidParameter)
	}
	return nil
}

func (b *Backend) LoadVoice(v engine.Voice) error {
	if !b.IsValidVoice(v) {
		return errtaxonomy.New(errtaxonomy.InvalidVoice)
	}
	return nil
}

func (b *Backend) UnloadVoice(engine.Voice) error { return nil }

func (b *Backend) buildArgs(v engine.Voice, speed engine.Speed) []string {
	out := make([]string, len(b.args))
	for i, a := range b.args {
		a = strings.ReplaceAll(a, "{lang}", v.Language)
		a = strings.ReplaceAll(a, "{voice}", v.String())
		a = strings.ReplaceAll(a, "{speed}", strconv.Itoa(int(speed.Clamp())))
		out[i] = a
	}
	return out
}

// StartSynth pipes text to the subprocess's stdin and streams its stdout as
// Continue chunks, bracketed by Start/Finish. The stream ends with Fail when
// the subprocess exits with an error that CancelSynth did not cause
// (including a kill after result returned false); a cancelled synthesis
// ends with Finish.
func (b *Backend) StartSynth(sctx engine.SynthContext, v engine.Voice, text string, speed engine.Speed, result engine.ResultFunc) error {
	if !b.IsAvailable() {
		return errtaxonomy.New(errtaxonomy.EngineNotFound)
	}
	if !b.IsValidVoice(v) {
		return errtaxonomy.New(errtaxonomy.InvalidVoice)
	}
	if text == "" {
		return errtaxonomy.New(errtaxonomy.InvalidParameter)
	}

	ctx, cancel := context.WithCancel(context.Background())
	b.mu.Lock()
	b.cancel[sctx.Token] = cancel
	b.mu.Unlock()

	cmd := exec.CommandContext(ctx, b.binaryPath, b.buildArgs(v, speed)...)
	cmd.Stdin = strings.NewReader(text)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		b.clearCancel(sctx.Token)
		return fmt.Errorf("execbackend: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		b.clearCancel(sctx.Token)
		return fmt.Errorf("execbackend: start: %w", err)
	}

	go func() {
		defer cancel()
		defer b.clearCancel(sctx.Token)

		result(sctx, engine.Chunk{Event: engine.EventStart, AudioType: engine.S16PCM, SampleRate: b.sampleRate, Channels: 1})

		reader := bufio.NewReaderSize(stdout, ChunkBytes)
		buf := make([]byte, ChunkBytes)
		failed := false
		for {
			n, readErr := reader.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				if !result(sctx, engine.Chunk{
					Event:      engine.EventContinue,
					Data:       chunk,
					AudioType:  engine.S16PCM,
					SampleRate: b.sampleRate,
					Channels:   1,
				}) {
					_ = cmd.Process.Kill()
					break
				}
			}
			if readErr != nil {
				break
			}
		}

		if err := cmd.Wait(); err != nil && ctx.Err() == nil {
			b.log.Error().Err(err).Str("token", sctx.Token).Msg("synthesizer exited with error")
			failed = true
		}
		if failed {
			result(sctx, engine.Chunk{Event: engine.EventFail})
		} else {
			result(sctx, engine.Chunk{Event: engine.EventFinish})
		}
	}()
	return nil
}

func (b *Backend) CancelSynth(sctx engine.SynthContext) error {
	b.mu.Lock()
	cancel, ok := b.cancel[sctx.Token]
	b.mu.Unlock()
	if !ok {
		return errtaxonomy.New(errtaxonomy.InvalidState)
	}
	cancel()
	return nil
}

func (b *Backend) clearCancel(token string) {
	b.mu.Lock()
	delete(b.cancel, token)
	b.mu.Unlock()
}
