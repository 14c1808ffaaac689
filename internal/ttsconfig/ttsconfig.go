// Package ttsconfig persists the daemon's selected engine id, default voice
// and default speed in the whitespace key-value format described in §6,
// grounded line-for-line on original_source/server/ttsd_config.c's
// __ttsd_config_save/__ttsd_config_load:
//
//	ENGINE_ID <id>
//	VOICE <language> <type>
//	SPEED <speed>
//
// First read falls back to a system default file; any parse error causes
// the daemon to rewrite a fresh file from current in-memory values — this
// is a literal spec-mandated wire format, not a generic serialization
// concern, so it is intentionally hand-rolled rather than routed through a
// general-purpose config library (see DESIGN.md).
package ttsconfig

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

const (
	keyEngineID = "ENGINE_ID"
	keyVoice    = "VOICE"
	keySpeed    = "SPEED"
)

// ChangeType identifies which configuration field changed, mirroring
// tts_config_type_e.
type ChangeType int

const (
	ChangeEngine ChangeType = iota
	ChangeVoice
	ChangeSpeed
)

// ChangeCallback mirrors ttsd_config_changed_cb: invoked after a field is
// persisted, with the new value carried the same way the original passes
// it — a string for Engine and Voice's language, an int for Speed and
// Voice's type (unused slot left zero).
type ChangeCallback func(t ChangeType, strParam string, intParam int)

// Values holds the persisted configuration fields.
type Values struct {
	EngineID      string
	VoiceLanguage string
	VoiceType     int
	Speed         int
}

// DefaultValues mirrors ttsd_config_initialize's in-memory defaults before
// any file is read (vc_type=1 i.e. Male, speed=3).
func DefaultValues() Values {
	return Values{VoiceType: 1, Speed: 3}
}

// Store reads from / rewrites a persisted config file at path, falling back
// to defaultPath on first read.
type Store struct {
	path        string
	defaultPath string

	mu       sync.Mutex
	values   Values
	onChange ChangeCallback
}

// OnChange registers the callback invoked after SetEngineID/SetVoice/
// SetSpeed persist a new value, mirroring ttsd_config_initialize(callback).
// Call once, before any Set method runs.
func (s *Store) OnChange(cb ChangeCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = cb
}

// Open loads values from path, falling back to defaultPath if path does not
// exist or fails to parse; on fallback (or parse error) it immediately
// rewrites path from the resulting in-memory values, matching the original
// daemon's "rewrite fresh file on any parse error" behavior.
func Open(path, defaultPath string) (*Store, error) {
	s := &Store{path: path, defaultPath: defaultPath}

	values, err := load(path)
	if err != nil {
		values, err = load(defaultPath)
		if err != nil {
			values = DefaultValues()
		}
		s.values = values
		if saveErr := s.saveLocked(); saveErr != nil {
			return nil, fmt.Errorf("ttsconfig: rewrite after fallback: %w", saveErr)
		}
		return s, nil
	}

	s.values = values
	return s, nil
}

func load(path string) (Values, error) {
	f, err := os.Open(path)
	if err != nil {
		return Values{}, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var v Values
	var sawEngine, sawVoice, sawSpeed bool

	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case keyEngineID:
			if len(fields) != 2 {
				return Values{}, fmt.Errorf("ttsconfig: malformed %s line", keyEngineID)
			}
			v.EngineID = fields[1]
			sawEngine = true
		case keyVoice:
			if len(fields) != 3 {
				return Values{}, fmt.Errorf("ttsconfig: malformed %s line", keyVoice)
			}
			t, err := strconv.Atoi(fields[2])
			if err != nil {
				return Values{}, fmt.Errorf("ttsconfig: malformed %s type: %w", keyVoice, err)
			}
			v.VoiceLanguage = fields[1]
			v.VoiceType = t
			sawVoice = true
		case keySpeed:
			if len(fields) != 2 {
				return Values{}, fmt.Errorf("ttsconfig: malformed %s line", keySpeed)
			}
			s, err := strconv.Atoi(fields[1])
			if err != nil {
				return Values{}, fmt.Errorf("ttsconfig: malformed %s value: %w", keySpeed, err)
			}
			v.Speed = s
			sawSpeed = true
		}
	}
	if err := scanner.Err(); err != nil {
		return Values{}, err
	}
	if !sawEngine || !sawVoice || !sawSpeed {
		return Values{}, fmt.Errorf("ttsconfig: %s missing required keys", path)
	}
	return v, nil
}

// Values returns a copy of the current in-memory configuration.
func (s *Store) Values() Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values
}

// SetEngineID updates and persists the selected engine id, then notifies
// the registered ChangeCallback (if any) — __config_changed_cb's
// TTS_CONFIG_TYPE_ENGINE case runs from this notification.
func (s *Store) SetEngineID(id string) error {
	s.mu.Lock()
	s.values.EngineID = id
	err := s.saveLocked()
	cb := s.onChange
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if cb != nil {
		cb(ChangeEngine, id, 0)
	}
	return nil
}

// SetVoice updates and persists the default voice, then notifies the
// registered ChangeCallback.
func (s *Store) SetVoice(language string, voiceType int) error {
	s.mu.Lock()
	s.values.VoiceLanguage = language
	s.values.VoiceType = voiceType
	err := s.saveLocked()
	cb := s.onChange
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if cb != nil {
		cb(ChangeVoice, language, voiceType)
	}
	return nil
}

// SetSpeed updates and persists the default speed (1..5 scale per §6),
// then notifies the registered ChangeCallback.
func (s *Store) SetSpeed(speed int) error {
	s.mu.Lock()
	s.values.Speed = speed
	err := s.saveLocked()
	cb := s.onChange
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if cb != nil {
		cb(ChangeSpeed, "", speed)
	}
	return nil
}

func (s *Store) saveLocked() error {
	f, err := os.Create(s.path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "%s %s\n", keyEngineID, s.values.EngineID)
	fmt.Fprintf(w, "%s %s %d\n", keyVoice, s.values.VoiceLanguage, s.values.VoiceType)
	fmt.Fprintf(w, "%s %d\n", keySpeed, s.values.Speed)
	return w.Flush()
}
