// Package ttsclient is the client handle library (§6): the public API an
// application links against to talk to a running ttsd instance. It owns the
// handle's local state machine, dispatches daemon-originated callbacks, and
// drives the spawn-on-demand handshake — none of which the daemon core in
// internal/daemon is aware of.
package ttsclient

import "github.com/nupi-ai/go-ttsd/internal/errtaxonomy"

// Code re-exports the client-visible error taxonomy so callers never need to
// import internal/errtaxonomy directly.
type Code = errtaxonomy.Code

const (
	CodeNone               = errtaxonomy.None
	CodeOutOfMemory        = errtaxonomy.OutOfMemory
	CodeIOError            = errtaxonomy.IOError
	CodeInvalidParameter   = errtaxonomy.InvalidParameter
	CodeOutOfNetwork       = errtaxonomy.OutOfNetwork
	CodeInvalidState       = errtaxonomy.InvalidState
	CodeInvalidVoice       = errtaxonomy.InvalidVoice
	CodeEngineNotFound     = errtaxonomy.EngineNotFound
	CodeTimedOut           = errtaxonomy.TimedOut
	CodeOperationFailed    = errtaxonomy.OperationFailed
	CodeAudioPolicyBlocked = errtaxonomy.AudioPolicyBlocked
)

// CodeOf extracts the taxonomy code from err: CodeNone if err is nil,
// CodeOperationFailed if err is not one of ours.
func CodeOf(err error) Code { return errtaxonomy.CodeOf(err) }
