package recovery_test

import (
	"testing"

	"fabula/internal/recovery"
)

func TestCheckpointRoundTrip(t *testing.T) {
	store, err := recovery.NewCheckpointStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	checkpoint := recovery.Checkpoint{
		ProjectID:       "proj-1",
		Stage:           "video",
		CompletedStages: []string{"idea", "script", "characters", "image"},
		Failures:        []string{"video: timeout"},
	}
	if err := store.Save(checkpoint); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, found, err := store.Load("proj-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !found {
		t.Fatal("saved checkpoint not found")
	}
	if loaded.Stage != "video" || len(loaded.CompletedStages) != 4 {
		t.Fatalf("loaded = %+v", loaded)
	}
	if loaded.SavedAt.IsZero() {
		t.Fatal("save must stamp SavedAt")
	}
	if len(loaded.RecoveryOptions) == 0 {
		t.Fatal("save must fill default recovery options")
	}
}

func TestCheckpointMissingIsNotAnError(t *testing.T) {
	store, err := recovery.NewCheckpointStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	_, found, err := store.Load("nope")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if found {
		t.Fatal("missing checkpoint reported as found")
	}
}

func TestCheckpointRemove(t *testing.T) {
	store, err := recovery.NewCheckpointStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.Save(recovery.Checkpoint{ProjectID: "proj-1", Stage: "idea"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Remove("proj-1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, found, _ := store.Load("proj-1"); found {
		t.Fatal("checkpoint still present after remove")
	}
	if err := store.Remove("proj-1"); err != nil {
		t.Fatalf("second remove should be a no-op: %v", err)
	}
}

func TestRecoveryOptionsForAudio(t *testing.T) {
	options := recovery.RecoveryOptionsFor("audio")
	foundSilent := false
	for _, option := range options {
		if option == "generate silent audio and continue" {
			foundSilent = true
		}
	}
	if !foundSilent {
		t.Fatalf("audio stage should offer a silent-audio option, got %v", options)
	}
}
