// Command ttsd runs one mode's instance of the text-to-speech daemon: it
// owns a control-channel socket, a bulk/file event channel, an engine
// backend, and the daemon core that arbitrates between connected clients.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/nupi-ai/go-ttsd/internal/config"
	"github.com/nupi-ai/go-ttsd/internal/daemon"
	"github.com/nupi-ai/go-ttsd/internal/engine"
	"github.com/nupi-ai/go-ttsd/internal/engine/execbackend"
	"github.com/nupi-ai/go-ttsd/internal/engine/toybackend"
	"github.com/nupi-ai/go-ttsd/internal/ipc"
	"github.com/nupi-ai/go-ttsd/internal/obslog"
	"github.com/nupi-ai/go-ttsd/internal/player"
	"github.com/nupi-ai/go-ttsd/internal/ttsconfig"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	modeFlag := flag.String("mode", "default", "daemon mode: default, notification, or screen-reader")
	rootFlag := flag.String("root", "", "socket/bulk-channel root directory (overrides TTSD_SOCKET_ROOT)")
	engineFlag := flag.String("engine", "auto", "engine backend: auto, toy, or exec")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Loader{}.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "ttsd: failed to load configuration:", err)
		os.Exit(1)
	}
	if *rootFlag != "" {
		cfg.SocketRoot = *rootFlag
	}

	log := obslog.New(os.Stderr, cfg.LogLevel)

	mode, err := parseMode(*modeFlag)
	if err != nil {
		log.Error().Err(err).Msg("invalid -mode")
		os.Exit(1)
	}

	log.Info().
		Str("version", version).
		Str("mode", mode.String()).
		Str("socket_root", cfg.SocketRoot).
		Str("engine", *engineFlag).
		Msg("starting ttsd")

	// The control-channel socket is bound at socketPath only after the
	// engine, config store and daemon core are running (ipc.Listen below),
	// so a client that connects always reaches a working handler.
	socketPath := ipc.SocketPath(cfg.SocketRoot, mode)

	backend, resolvedEngine := resolveBackend(*engineFlag, log.With().Str("component", "engine").Logger())
	agent := engine.NewAgent(backend)
	if err := agent.Initialize(); err != nil {
		log.Error().Err(err).Str("engine", resolvedEngine).Msg("engine initialize failed")
		os.Exit(1)
	}
	defer agent.Deinitialize()

	cfgStorePath := filepath.Join(cfg.SocketRoot, fmt.Sprintf("config-%s.txt", mode))
	cfgDefaultPath := filepath.Join(cfg.SocketRoot, "config-default.txt")
	ttscfg, err := ttsconfig.Open(cfgStorePath, cfgDefaultPath)
	if err != nil {
		log.Error().Err(err).Msg("failed to open persisted config")
		os.Exit(1)
	}

	errlog := ttsconfig.OpenErrorLog(filepath.Join(cfg.SocketRoot, fmt.Sprintf("error-%s.log", mode)))

	audioPlayer := player.New(player.NewFileSink(filepath.Join(cfg.SocketRoot, "audio")))
	bus := daemon.NewFileBulkBus(cfg.SocketRoot, mode)

	d := daemon.New(mode, cfg, log, agent, audioPlayer, bus, ttscfg, errlog)
	ttscfg.OnChange(d.ConfigChanged)
	d.Run()
	defer d.Close()

	srv, err := ipc.Listen(socketPath, d.Handler())
	if err != nil {
		log.Error().Err(err).Str("socket", socketPath).Msg("failed to listen")
		os.Exit(1)
	}
	defer srv.Close()

	log.Info().Str("socket", socketPath).Msg("listening")

	<-ctx.Done()
	log.Info().Msg("shutting down")
}

func parseMode(s string) (ipc.Mode, error) {
	switch s {
	case "default", "":
		return ipc.Default, nil
	case "notification":
		return ipc.Notification, nil
	case "screen-reader":
		return ipc.ScreenReader, nil
	default:
		return 0, fmt.Errorf("unknown mode %q", s)
	}
}

// resolveBackend picks the engine backend. "auto" prefers an exec backend if
// its binary is resolvable on disk, falling back to the always-available
// toy backend otherwise — the same probe-then-fall-back shape the teacher
// adapter uses for its native/stub engine choice.
func resolveBackend(name string, log zerolog.Logger) (engine.Backend, string) {
	switch name {
	case "toy":
		return toybackend.New(), "toy"
	case "exec":
		return execbackend.New(execbackend.Config{Voices: toybackend.DefaultVoices()}, log), "exec"
	default: // "auto", ""
		b := execbackend.New(execbackend.Config{Voices: toybackend.DefaultVoices()}, log)
		if b.IsAvailable() {
			return b, "exec"
		}
		log.Warn().Msg("auto-detected engine: toy (no external synthesizer binary found)")
		return toybackend.New(), "toy"
	}
}
