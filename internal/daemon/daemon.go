// Package daemon implements the daemon core: the client registry, the
// single-flight synthesis pipeline, multi-client arbitration, and the IPC
// handler that dispatches control-channel requests into the core's single
// event loop.
//
// Grounded on original_source/server/ttsd_server.c: one process-wide main
// loop owns synth_control and the client registry; nothing outside the
// loop goroutine mutates either directly (§5 "the client registry and
// synth_control flag are owned by the main loop; mutators are all
// loop-local").
package daemon

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nupi-ai/go-ttsd/internal/config"
	"github.com/nupi-ai/go-ttsd/internal/engine"
	"github.com/nupi-ai/go-ttsd/internal/errtaxonomy"
	"github.com/nupi-ai/go-ttsd/internal/ipc"
	"github.com/nupi-ai/go-ttsd/internal/ttsconfig"
)

// Player is the narrow interface the daemon core drives; internal/player
// implements it. Kept as an interface so daemon tests can use a fake.
type Player interface {
	Create(uid int, soundType int) error
	Destroy(uid int) error
	Play(uid int) error
	Pause(uid int) error
	Stop(uid int) error
	Enqueue(uid int, data []byte, event engine.ResultEvent) error
	AllStop() error
}

// BulkBus is the narrow interface the daemon core uses to deliver events to
// clients; FileBulkBus implements it over one internal/ipc FileChannel per
// (pid, mode).
type BulkBus interface {
	Open(pid int) error
	Close(pid int) error
	Publish(pid int, evt BulkEvent) error
}

// BulkEvent is a daemon-to-client notification delivered over the bulk/file
// channel.
type BulkEvent struct {
	Name  string
	UID   int
	UttID int
	Code  int
	State string
}

// Daemon is one mode's instance of the daemon core (one process per mode
// per §4.2/§6 — three named instances total).
type Daemon struct {
	mode   ipc.Mode
	cfg    config.Config
	log    zerolog.Logger
	agent  *engine.Agent
	player Player
	bulk   BulkBus
	ttscfg *ttsconfig.Store
	errlog *ttsconfig.ErrorLog

	clients    map[int]*Client
	playingUID int
	synth      SynthControl
	running    *engine.SynthContext

	cmdCh  chan func()
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New constructs a Daemon. Run must be called to start its event loop.
func New(mode ipc.Mode, cfg config.Config, log zerolog.Logger, agent *engine.Agent, player Player, bulk BulkBus, ttscfg *ttsconfig.Store, errlog *ttsconfig.ErrorLog) *Daemon {
	return &Daemon{
		mode:    mode,
		cfg:     cfg,
		log:     log,
		agent:   agent,
		player:  player,
		bulk:    bulk,
		ttscfg:  ttscfg,
		errlog:  errlog,
		clients: make(map[int]*Client),
		cmdCh:   make(chan func(), 256),
		stopCh:  make(chan struct{}),
	}
}

// Run starts the single event-loop goroutine. It returns immediately;
// Close stops the loop.
func (d *Daemon) Run() {
	d.wg.Add(1)
	go d.loop()
}

// Close stops the event loop and waits for it to exit.
func (d *Daemon) Close() {
	close(d.stopCh)
	d.wg.Wait()
}

func (d *Daemon) loop() {
	defer d.wg.Done()

	synthTicker := time.NewTicker(d.cfg.SynthPollInterval())
	defer synthTicker.Stop()
	livenessTicker := time.NewTicker(d.cfg.LivenessPeriod())
	defer livenessTicker.Stop()

	for {
		select {
		case <-d.stopCh:
			return
		case fn := <-d.cmdCh:
			fn()
		case <-synthTicker.C:
			d.tryAdvance()
		case <-livenessTicker.C:
			d.sweepLiveness()
		}
	}
}

// exec runs fn on the event-loop goroutine and blocks until it completes,
// letting external callers (the IPC handler, tests) safely read/mutate
// daemon state without a separate lock.
func (d *Daemon) exec(fn func()) {
	done := make(chan struct{})
	select {
	case d.cmdCh <- func() { fn(); close(done) }:
	case <-d.stopCh:
		return
	}
	<-done
}

// Initialize registers a new client (ttsd_server_initialize).
func (d *Daemon) Initialize(pid, uid int) error {
	var result error
	d.exec(func() {
		if _, exists := d.clients[uid]; exists {
			result = errtaxonomy.New(errtaxonomy.InvalidState)
			return
		}
		firstForPID := d.firstClientForPID(pid)

		c := newClient(pid, uid)
		d.clients[uid] = c

		if firstForPID {
			if err := d.bulk.Open(pid); err != nil {
				delete(d.clients, uid)
				result = errtaxonomy.New(errtaxonomy.IOError)
				return
			}
		}
		if err := d.player.Create(uid, int(SoundNormal)); err != nil {
			result = errtaxonomy.New(errtaxonomy.OperationFailed)
			return
		}
		c.State = Ready
	})
	return result
}

func (d *Daemon) firstClientForPID(pid int) bool {
	for _, c := range d.clients {
		if c.PID == pid {
			return false
		}
	}
	return true
}

// Finalize tears down a client (ttsd_server_finalize): stop its player,
// release any voices it referenced, remove it from the registry, close the
// bulk channel if it was the last client for that pid.
func (d *Daemon) Finalize(uid int) error {
	var result error
	d.exec(func() { result = d.finalizeLocked(uid) })
	return result
}

// finalizeLocked is Finalize's body, callable directly from the event-loop
// goroutine (sweepLiveness) as well as via exec (the IPC handler).
func (d *Daemon) finalizeLocked(uid int) error {
	c, ok := d.clients[uid]
	if !ok {
		return errtaxonomy.New(errtaxonomy.InvalidState)
	}
	if d.playingUID == uid {
		if d.synth == SynthInProgress {
			_ = d.agent.CancelSynth()
		}
		d.synth = SynthIdle
		d.running = nil
		d.playingUID = 0
	}
	_ = d.player.Destroy(uid)
	for v := range c.UsedVoices {
		_ = d.agent.UnloadVoice(v)
	}
	pid := c.PID
	delete(d.clients, uid)

	if d.firstClientForPID(pid) {
		_ = d.bulk.Close(pid)
	}
	return nil
}

// ClientCount reports the number of registered clients (used by callers to
// decide whether the daemon process may exit).
func (d *Daemon) ClientCount() int {
	var n int
	d.exec(func() { n = len(d.clients) })
	return n
}

// State returns the current state of uid, or Created if unknown.
func (d *Daemon) State(uid int) ClientState {
	var s ClientState
	d.exec(func() {
		if c, ok := d.clients[uid]; ok {
			s = c.State
		}
	})
	return s
}
