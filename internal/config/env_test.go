package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()

	if cfg.Library.DataDir != "data" {
		t.Errorf("DataDir = %q, want data", cfg.Library.DataDir)
	}
	if cfg.Library.ManifestRef != "data_detail.txt" {
		t.Errorf("ManifestRef = %q", cfg.Library.ManifestRef)
	}
	if cfg.Render.DefaultZoom != 1.5 {
		t.Errorf("DefaultZoom = %v, want 1.5", cfg.Render.DefaultZoom)
	}
	if cfg.Queue.Stream != "jobs:section:exports" {
		t.Errorf("Stream = %q", cfg.Queue.Stream)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Server.Port)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("DATA_DIR", "/srv/pages")
	t.Setenv("RENDER_DEFAULT_ZOOM", "2.5")
	t.Setenv("CACHE_TTL", "5m")
	t.Setenv("CACHE_ENABLED", "false")
	t.Setenv("AXIOM_DATASET", "prod")

	cfg := FromEnv()
	if cfg.Library.DataDir != "/srv/pages" {
		t.Errorf("DataDir = %q", cfg.Library.DataDir)
	}
	if cfg.Render.DefaultZoom != 2.5 {
		t.Errorf("DefaultZoom = %v", cfg.Render.DefaultZoom)
	}
	if cfg.Cache.TTL != 5*time.Minute {
		t.Errorf("TTL = %v", cfg.Cache.TTL)
	}
	if cfg.Cache.Enabled {
		t.Error("Cache.Enabled = true, want false")
	}
	if cfg.Axiom.Dataset != "prod_docsections" {
		t.Errorf("Axiom dataset = %q", cfg.Axiom.Dataset)
	}
}

func TestParseHelpers(t *testing.T) {
	if parseInt("abc", 7) != 7 {
		t.Error("parseInt should fall back on bad input")
	}
	if parseFloat("", 1.5) != 1.5 {
		t.Error("parseFloat should fall back on empty input")
	}
	if !parseBool("YES") || !parseBool("on") || parseBool("off") {
		t.Error("parseBool truthy set mismatch")
	}
	if parseDuration("nope", time.Second) != time.Second {
		t.Error("parseDuration should fall back on bad input")
	}
}
