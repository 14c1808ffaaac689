package daemon

import (
	"github.com/nupi-ai/go-ttsd/internal/engine"
	"github.com/nupi-ai/go-ttsd/internal/errtaxonomy"
	"github.com/nupi-ai/go-ttsd/internal/ipc"
	"github.com/nupi-ai/go-ttsd/internal/ipcmsg"
)

// Hello answers the handshake probe; a daemon that can schedule this
// handler at all is, by definition, alive.
func (d *Daemon) Hello(uid int) error {
	d.exec(func() {
		if c, ok := d.clients[uid]; ok {
			c.touch()
		}
	})
	return nil
}

// SetSoundType implements tts_method_set_sound_type.
func (d *Daemon) SetSoundType(uid int, normal bool) error {
	var result error
	d.exec(func() {
		c, ok := d.clients[uid]
		if !ok {
			result = errtaxonomy.New(errtaxonomy.InvalidState)
			return
		}
		c.touch()
		if normal {
			c.SoundType = SoundNormal
		} else {
			c.SoundType = SoundFixedMax
		}
	})
	return result
}

// GetSupportVoices implements tts_method_get_support_voices.
func (d *Daemon) GetSupportVoices() ([]engine.Voice, error) {
	var voices []engine.Voice
	var result error
	d.exec(func() {
		if err := d.agent.ForeachVoiceSafe(func(v engine.Voice) bool {
			voices = append(voices, v)
			return true
		}); err != nil {
			result = err
		}
	})
	return voices, result
}

// GetCurrentVoice implements tts_method_get_current_voice from the
// persisted default-voice configuration.
func (d *Daemon) GetCurrentVoice() (engine.Voice, error) {
	if d.ttscfg == nil {
		return engine.Voice{}, errtaxonomy.New(errtaxonomy.OperationFailed)
	}
	v := d.ttscfg.Values()
	return engine.Voice{Language: v.VoiceLanguage, Type: engine.VoiceType(v.VoiceType)}, nil
}

// Handler builds the ipc.Handler that dispatches framed control-channel
// requests into the daemon core.
func (d *Daemon) Handler() func(ipcmsg.Request) ipcmsg.Response {
	return func(req ipcmsg.Request) ipcmsg.Response {
		// Every request for a registered uid refreshes its liveness
		// deadline (see sweepLiveness).
		d.exec(func() {
			if c, ok := d.clients[req.UID]; ok {
				c.touch()
			}
		})
		switch req.Method {
		case ipcmsg.MethodHello:
			_ = d.Hello(req.UID)
			return ipcmsg.Response{Code: int(errtaxonomy.None)}

		case ipcmsg.MethodInitialize:
			err := d.Initialize(req.PID, req.UID)
			return ipcmsg.Response{Code: int(errtaxonomy.CodeOf(err))}

		case ipcmsg.MethodFinalize:
			err := d.Finalize(req.UID)
			return ipcmsg.Response{Code: int(errtaxonomy.CodeOf(err))}

		case ipcmsg.MethodSetSoundType:
			err := d.SetSoundType(req.UID, req.SoundType != "fixed")
			return ipcmsg.Response{Code: int(errtaxonomy.CodeOf(err))}

		case ipcmsg.MethodAddQueue:
			voice := engine.Voice{Language: req.Language, Type: engine.VoiceType(req.VoiceType)}
			err := d.AddQueue(req.UID, req.UttID, voice, req.Text, engine.Speed(req.Speed))
			if err != nil {
				return ipcmsg.Response{Code: int(errtaxonomy.CodeOf(err))}
			}
			return ipcmsg.Response{Code: int(errtaxonomy.None), UttID: req.UttID}

		case ipcmsg.MethodPlay:
			// Default mode pauses a preempted client; Notification and
			// ScreenReader stop it outright (§4.4, policyForMode).
			err := d.Play(req.UID, d.mode == ipc.Default)
			return ipcmsg.Response{Code: int(errtaxonomy.CodeOf(err))}

		case ipcmsg.MethodStop:
			err := d.Stop(req.UID)
			return ipcmsg.Response{Code: int(errtaxonomy.CodeOf(err))}

		case ipcmsg.MethodPause:
			err := d.Pause(req.UID)
			return ipcmsg.Response{Code: int(errtaxonomy.CodeOf(err))}

		case ipcmsg.MethodGetSupportVoices:
			voices, err := d.GetSupportVoices()
			if err != nil {
				return ipcmsg.Response{Code: int(errtaxonomy.CodeOf(err))}
			}
			msgs := make([]ipcmsg.VoiceMsg, len(voices))
			for i, v := range voices {
				msgs[i] = ipcmsg.VoiceMsg{Language: v.Language, Type: int(v.Type)}
			}
			return ipcmsg.Response{Code: int(errtaxonomy.None), Voices: msgs}

		case ipcmsg.MethodGetCurrentVoice:
			v, err := d.GetCurrentVoice()
			if err != nil {
				return ipcmsg.Response{Code: int(errtaxonomy.CodeOf(err))}
			}
			return ipcmsg.Response{Code: int(errtaxonomy.None), VoiceLang: v.Language, VoiceType: int(v.Type)}

		default:
			return ipcmsg.Response{Code: int(errtaxonomy.InvalidParameter)}
		}
	}
}
