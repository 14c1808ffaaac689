package ttsconfig_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nupi-ai/go-ttsd/internal/ttsconfig"
)

func TestOpenFallsBackToDefaultAndRewrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ttsd.conf")
	defaultPath := filepath.Join(dir, "ttsd-default.conf")

	if err := os.WriteFile(defaultPath, []byte("ENGINE_ID toy\nVOICE en_US 2\nSPEED 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	store, err := ttsconfig.Open(path, defaultPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got := store.Values()
	if got.EngineID != "toy" || got.VoiceLanguage != "en_US" || got.VoiceType != 2 || got.Speed != 3 {
		t.Fatalf("unexpected fallback values: %+v", got)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected rewritten config file at %s: %v", path, err)
	}
}

func TestSetAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ttsd.conf")
	defaultPath := filepath.Join(dir, "missing-default.conf")

	store, err := ttsconfig.Open(path, defaultPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.SetEngineID("exec"); err != nil {
		t.Fatalf("SetEngineID: %v", err)
	}
	if err := store.SetVoice("ko_KR", 2); err != nil {
		t.Fatalf("SetVoice: %v", err)
	}
	if err := store.SetSpeed(4); err != nil {
		t.Fatalf("SetSpeed: %v", err)
	}

	reopened, err := ttsconfig.Open(path, defaultPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got := reopened.Values()
	want := ttsconfig.Values{EngineID: "exec", VoiceLanguage: "ko_KR", VoiceType: 2, Speed: 4}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestOnChangeFiresForEachSetter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ttsd.conf")
	defaultPath := filepath.Join(dir, "missing-default.conf")

	store, err := ttsconfig.Open(path, defaultPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	type notification struct {
		t        ttsconfig.ChangeType
		strParam string
		intParam int
	}
	var got []notification
	store.OnChange(func(ct ttsconfig.ChangeType, s string, i int) {
		got = append(got, notification{ct, s, i})
	})

	if err := store.SetEngineID("exec"); err != nil {
		t.Fatalf("SetEngineID: %v", err)
	}
	if err := store.SetVoice("ko_KR", 2); err != nil {
		t.Fatalf("SetVoice: %v", err)
	}
	if err := store.SetSpeed(4); err != nil {
		t.Fatalf("SetSpeed: %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("expected 3 callback invocations, got %d", len(got))
	}
	if got[0].t != ttsconfig.ChangeEngine || got[0].strParam != "exec" {
		t.Fatalf("unexpected engine change notification: %+v", got[0])
	}
	if got[1].t != ttsconfig.ChangeVoice || got[1].strParam != "ko_KR" || got[1].intParam != 2 {
		t.Fatalf("unexpected voice change notification: %+v", got[1])
	}
	if got[2].t != ttsconfig.ChangeSpeed || got[2].intParam != 4 {
		t.Fatalf("unexpected speed change notification: %+v", got[2])
	}
}

func TestMalformedFileFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ttsd.conf")
	if err := os.WriteFile(path, []byte("garbage\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	defaultPath := filepath.Join(dir, "missing-default.conf")

	store, err := ttsconfig.Open(path, defaultPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got := store.Values()
	if got != ttsconfig.DefaultValues() {
		t.Fatalf("got %+v, want defaults %+v", got, ttsconfig.DefaultValues())
	}
}

func TestErrorLogAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ttsd_default.err")
	log := ttsconfig.OpenErrorLog(path)

	if err := log.Append(ttsconfig.ErrorRecord{
		Func: "synthesize", Line: 42, Message: "backend crashed",
		UID: 7, UttID: 3, Language: "en_US", VoiceType: 2, Text: "hello", EngineID: "toy",
	}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty error log")
	}
}
