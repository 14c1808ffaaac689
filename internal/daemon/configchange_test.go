package daemon

import (
	"testing"

	"github.com/nupi-ai/go-ttsd/internal/ttsconfig"
)

func TestConfigChangedEngineStopsAllAndResetsClientsToReady(t *testing.T) {
	d, player, bulk := newTestDaemon(t)

	if err := d.Initialize(1, 1); err != nil {
		t.Fatal(err)
	}
	if err := d.Initialize(2, 2); err != nil {
		t.Fatal(err)
	}
	if err := d.Play(1, true); err != nil {
		t.Fatal(err)
	}

	d.ConfigChanged(ttsconfig.ChangeEngine, "a-different-engine", 0)

	if d.State(1) != Ready {
		t.Fatalf("expected client 1 reset to Ready, got %v", d.State(1))
	}
	if d.State(2) != Ready {
		t.Fatalf("expected client 2 reset to Ready, got %v", d.State(2))
	}
	if d.PlayingUID() != 0 {
		t.Fatalf("expected no playing uid after engine change, got %d", d.PlayingUID())
	}
	if player.allStop != 1 {
		t.Fatalf("expected player.AllStop to be called once, got %d", player.allStop)
	}

	var sawReadyFor1, sawReadyFor2 bool
	for _, e := range bulk.events {
		if e.Name == bulkStateChanged && e.State == Ready.String() {
			switch e.UID {
			case 1:
				sawReadyFor1 = true
			case 2:
				sawReadyFor2 = true
			}
		}
	}
	if !sawReadyFor1 || !sawReadyFor2 {
		t.Fatal("expected a ready state_changed bulk event for every prepared client")
	}
}

func TestConfigChangedEngineSameIDIsNoop(t *testing.T) {
	d, player, _ := newTestDaemon(t)
	if err := d.Initialize(1, 1); err != nil {
		t.Fatal(err)
	}
	if err := d.Play(1, true); err != nil {
		t.Fatal(err)
	}

	d.ConfigChanged(ttsconfig.ChangeEngine, d.agent.Name(), 0)

	if player.allStop != 0 {
		t.Fatalf("expected no-op for an unchanged engine id, got %d AllStop calls", player.allStop)
	}
	if d.PlayingUID() != 1 {
		t.Fatalf("expected client 1 to remain playing, got playing uid %d", d.PlayingUID())
	}
}

func TestConfigChangedSkipsClientsStillInCreatedState(t *testing.T) {
	d, player, bulk := newTestDaemon(t)

	// Register a client directly in Created (Initialize would move it to
	// Ready), so the engine change has a Created client to skip.
	d.exec(func() { d.clients[3] = newClient(3, 3) })

	d.ConfigChanged(ttsconfig.ChangeEngine, "a-different-engine", 0)

	if d.State(3) != Created {
		t.Fatalf("expected Created client left in Created, got %v", d.State(3))
	}
	if player.allStop != 1 {
		t.Fatalf("expected AllStop to still run even with no prepared clients, got %d", player.allStop)
	}
	if len(bulk.events) != 0 {
		t.Fatalf("expected no state_changed events with zero prepared clients, got %d", len(bulk.events))
	}
}
