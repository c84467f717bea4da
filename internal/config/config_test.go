package config

import (
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Defaults()
	if cfg != want {
		t.Fatalf("Load(missing) = %+v, want defaults %+v", cfg, want)
	}
}

func TestLoadMergesOnDiskOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := Save(path, Config{OllamaModel: "custom-model", PollIntervalMS: 9000}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OllamaModel != "custom-model" {
		t.Fatalf("OllamaModel = %q, want custom-model", cfg.OllamaModel)
	}
	if cfg.PollIntervalMS != 9000 {
		t.Fatalf("PollIntervalMS = %d, want 9000", cfg.PollIntervalMS)
	}
	// Fields the file left zero fall back to defaults.
	if cfg.SessionTimeoutMS != defaultSessionTimeoutMS {
		t.Fatalf("SessionTimeoutMS = %d, want default %d", cfg.SessionTimeoutMS, defaultSessionTimeoutMS)
	}
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := Save(path, Config{OllamaBaseURL: "http://file:1111"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	t.Setenv(envOllamaBaseURL, "http://env:2222")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OllamaBaseURL != "http://env:2222" {
		t.Fatalf("OllamaBaseURL = %q, want env override", cfg.OllamaBaseURL)
	}
}

func TestInvalidFieldFallsBackToDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := Save(path, Config{PollIntervalMS: -5}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PollIntervalMS != defaultPollIntervalMS {
		t.Fatalf("PollIntervalMS = %d, want default %d after validation", cfg.PollIntervalMS, defaultPollIntervalMS)
	}
}
