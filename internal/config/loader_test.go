package config

import "testing"

func TestLoaderDefaults(t *testing.T) {
	loader := Loader{
		Lookup: func(string) (string, bool) { return "", false },
	}
	cfg, err := loader.Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SocketRoot != DefaultSocketRoot {
		t.Errorf("SocketRoot = %q, want %q", cfg.SocketRoot, DefaultSocketRoot)
	}
	if cfg.HelloTimeoutMs != DefaultHelloTimeoutMs {
		t.Errorf("HelloTimeoutMs = %d, want %d", cfg.HelloTimeoutMs, DefaultHelloTimeoutMs)
	}
	if cfg.RetryCount != DefaultRetryCount {
		t.Errorf("RetryCount = %d, want %d", cfg.RetryCount, DefaultRetryCount)
	}
}

func TestLoaderJSON(t *testing.T) {
	env := map[string]string{
		"TTSD_CONFIG": `{"socket_root":"/tmp/custom","retry_count":3}`,
	}
	loader := Loader{
		Lookup: func(key string) (string, bool) {
			v, ok := env[key]
			return v, ok
		},
	}
	cfg, err := loader.Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SocketRoot != "/tmp/custom" {
		t.Errorf("SocketRoot = %q, want /tmp/custom", cfg.SocketRoot)
	}
	if cfg.RetryCount != 3 {
		t.Errorf("RetryCount = %d, want 3", cfg.RetryCount)
	}
	// Unset fields keep defaults.
	if cfg.HelloTimeoutMs != DefaultHelloTimeoutMs {
		t.Errorf("HelloTimeoutMs = %d, want default %d", cfg.HelloTimeoutMs, DefaultHelloTimeoutMs)
	}
}

func TestLoaderEnvOverride(t *testing.T) {
	env := map[string]string{
		"TTSD_CONFIG":           `{"retry_count":3}`,
		"TTSD_SOCKET_ROOT":      "/var/run/ttsd-test",
		"TTSD_RETRY_COUNT":      "7",
		"TTSD_HELLO_TIMEOUT_MS": "250",
	}
	loader := Loader{
		Lookup: func(key string) (string, bool) {
			v, ok := env[key]
			return v, ok
		},
	}
	cfg, err := loader.Load()
	if err != nil {
		t.Fatal(err)
	}
	// Env var overrides JSON.
	if cfg.RetryCount != 7 {
		t.Errorf("RetryCount = %d, want 7 (env override)", cfg.RetryCount)
	}
	if cfg.SocketRoot != "/var/run/ttsd-test" {
		t.Errorf("SocketRoot = %q, want %q", cfg.SocketRoot, "/var/run/ttsd-test")
	}
	if cfg.HelloTimeoutMs != 250 {
		t.Errorf("HelloTimeoutMs = %d, want 250", cfg.HelloTimeoutMs)
	}
}

func TestLoaderInvalidJSON(t *testing.T) {
	env := map[string]string{
		"TTSD_CONFIG": `{bad json}`,
	}
	loader := Loader{
		Lookup: func(key string) (string, bool) {
			v, ok := env[key]
			return v, ok
		},
	}
	_, err := loader.Load()
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestLoaderRejectsInvalidConfig(t *testing.T) {
	env := map[string]string{
		"TTSD_SOCKET_ROOT": "   ",
	}
	loader := Loader{
		Lookup: func(key string) (string, bool) {
			v, ok := env[key]
			return v, ok
		},
	}
	// Whitespace-only override is ignored (trimmed to empty -> keeps
	// default), so this should still succeed; exercise the Validate path
	// explicitly instead.
	if _, err := loader.Load(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bad := Config{SocketRoot: "", HelloTimeoutMs: 100, RetryCount: 1}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected Validate to reject empty SocketRoot")
	}
}
