package ttsclient

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/nupi-ai/go-ttsd/internal/config"
	"github.com/nupi-ai/go-ttsd/internal/ipc"
)

// spawnOnce allows at most one daemon-spawn attempt per mode for the life of
// this process, mirroring __tts_connect_daemon's g_is_sr_daemon_started/
// g_is_noti_daemon_started guards against double-forking the same mode's
// daemon from concurrent handles. The guard is never reset.
var spawnOnce [3]sync.Once

// DaemonBinaryEnv names the environment variable pointing at the ttsd
// binary to spawn on demand. If unset, dialOrSpawn only ever dials an
// already-running daemon and never forks one.
const DaemonBinaryEnv = "TTSD_BINARY"

// dialOrSpawn connects to mode's control-channel socket, spawning the
// daemon process for that mode on first failure if TTSD_BINARY is set.
func dialOrSpawn(root string, mode ipc.Mode, cfg config.Config) (*ipc.Client, error) {
	path := ipc.SocketPath(root, mode)

	if conn, err := ipc.Dial(path); err == nil {
		return conn, nil
	}

	binary := os.Getenv(DaemonBinaryEnv)
	if binary == "" {
		return nil, fmt.Errorf("ttsclient: no daemon listening at %s and %s is unset", path, DaemonBinaryEnv)
	}

	spawnOnce[mode].Do(func() {
		cmd := exec.Command(binary, "-mode", mode.String(), "-root", root)
		cmd.Stdout, cmd.Stderr = os.Stdout, os.Stderr
		_ = cmd.Start()
	})

	// Poll at the hello cadence (cfg.HelloTimeout), not the tight
	// RetryBackoff used between a single call's retries: a freshly spawned
	// daemon takes real wall-clock time to bind its socket, so this loop
	// mirrors __tts_connect_daemon's "retry hello periodically" behavior
	// rather than busy-polling.
	deadline := time.Now().Add(cfg.HelloTimeout() * time.Duration(cfg.RetryCount+1))
	for time.Now().Before(deadline) {
		if conn, err := ipc.Dial(path); err == nil {
			return conn, nil
		}
		time.Sleep(cfg.HelloTimeout())
	}
	return nil, fmt.Errorf("ttsclient: daemon for mode %s did not come up at %s", mode, path)
}
