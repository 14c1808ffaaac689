package ttsclient

import "github.com/nupi-ai/go-ttsd/internal/ipcmsg"

// Callbacks holds the application's event handlers. Any left nil are
// simply not invoked.
type Callbacks struct {
	OnUtteranceStarted   func(uttID int)
	OnUtteranceCompleted func(uttID int)
	OnError              func(uttID int, code Code)
	OnStateChanged       func(state State)
}

// dispatchLoop drains the bulk channel and invokes the registered callback
// for each event, one at a time. deliver sets callbackInUse for the
// duration of each callback; no Handle method reads the flag, so a
// callback's own control-channel calls (e.g. calling Stop from inside
// OnError) are not rejected.
func (h *Handle) dispatchLoop() {
	for {
		select {
		case <-h.closed:
			return
		case evt, ok := <-h.tailer.Events:
			if !ok {
				return
			}
			h.deliver(evt)
		}
	}
}

func (h *Handle) deliver(evt ipcmsg.Event) {
	h.mu.Lock()
	h.callbackInUse = true
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		h.callbackInUse = false
		h.mu.Unlock()
	}()

	switch evt.Name {
	case ipcmsg.EventUtteranceStarted:
		if h.callbacks.OnUtteranceStarted != nil {
			h.callbacks.OnUtteranceStarted(evt.UttID)
		}
	case ipcmsg.EventUtteranceCompleted:
		if h.callbacks.OnUtteranceCompleted != nil {
			h.callbacks.OnUtteranceCompleted(evt.UttID)
		}
	case ipcmsg.EventError:
		if h.callbacks.OnError != nil {
			h.callbacks.OnError(evt.UttID, Code(evt.Code))
		}
	case ipcmsg.EventStateChanged:
		h.mu.Lock()
		h.state = stateFromString(evt.State)
		h.mu.Unlock()
		if h.callbacks.OnStateChanged != nil {
			h.callbacks.OnStateChanged(stateFromString(evt.State))
		}
	}
}

func stateFromString(s string) State {
	switch s {
	case "ready":
		return StateReady
	case "playing":
		return StatePlaying
	case "paused":
		return StatePaused
	default:
		return StateCreated
	}
}
