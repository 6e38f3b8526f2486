package main

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/MilesGuan/NewsDistill/internal/config"
)

func keylessConfig() *config.Config {
	cfg := config.Default()
	for i := range cfg.Distill.Backends {
		cfg.Distill.Backends[i].APIKey = ""
		cfg.Distill.Backends[i].APIKeyEnv = ""
	}
	return cfg
}

func TestBuildDistillerWithoutKeysIsNil(t *testing.T) {
	t.Parallel()

	d, err := buildDistiller(keylessConfig(), slog.Default())
	if err != nil {
		t.Fatalf("build distiller: %v", err)
	}
	if d != nil {
		t.Fatal("keyless backends must yield no distiller (crawl-only mode)")
	}
}

func TestBuildDistillerSkipsOnlyKeylessBackends(t *testing.T) {
	t.Parallel()

	cfg := keylessConfig()
	cfg.Distill.Backends[1].APIKey = "sk-test"

	d, err := buildDistiller(cfg, slog.Default())
	if err != nil {
		t.Fatalf("build distiller: %v", err)
	}
	if d == nil {
		t.Fatal("a backend with a key must produce a distiller")
	}
}

func TestDistillRequiresBackendCredentials(t *testing.T) {
	t.Parallel()

	// The distill command refuses to degrade to crawl-only mode.
	a := &app{}
	if err := a.requireDistiller(); !errors.Is(err, errNoBackends) {
		t.Fatalf("err = %v, want errNoBackends for a keyless app", err)
	}

	cfg := keylessConfig()
	cfg.Distill.Backends[0].APIKey = "sk-test"
	d, err := buildDistiller(cfg, slog.Default())
	if err != nil {
		t.Fatalf("build distiller: %v", err)
	}
	a.distiller = d
	if err := a.requireDistiller(); err != nil {
		t.Fatalf("keyed app rejected: %v", err)
	}
}
