package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func TestConfigPathSurvivesFlagRegistration(t *testing.T) {
	// Registering --config resets the flag-bound variable to its empty
	// default, so the discovered path must come from resolution, not
	// from the variable itself.
	if configFile != "" {
		t.Fatalf("expected the flag default to leave configFile empty, got %q", configFile)
	}
	if defaultConfigFile == "" {
		t.Fatal("expected a discovered default config path")
	}
	if got := resolveConfigFile(); got == "" {
		t.Error("expected a usable config path without --config")
	}

	configFile = "/tmp/override.yml"
	t.Cleanup(func() { configFile = "" })
	if got := resolveConfigFile(); got != "/tmp/override.yml" {
		t.Errorf("expected the flag to win, got %q", got)
	}
}

func TestResolvePackagesDirPrecedence(t *testing.T) {
	oldFlag, oldDefault := packagesDir, defaultPackagesDir
	t.Cleanup(func() {
		packagesDir, defaultPackagesDir = oldFlag, oldDefault
		viper.Set("packages_dir", "")
	})

	packagesDir = ""
	defaultPackagesDir = "/data/accessiclock/packages"
	viper.Set("packages_dir", "")
	if got := resolvePackagesDir(); got != "/data/accessiclock/packages" {
		t.Errorf("expected the discovered default, got %q", got)
	}

	viper.Set("packages_dir", "/from/config")
	if got := resolvePackagesDir(); got != "/from/config" {
		t.Errorf("expected the config value, got %q", got)
	}

	packagesDir = "/from/flag"
	if got := resolvePackagesDir(); got != "/from/flag" {
		t.Errorf("expected the flag to win, got %q", got)
	}
}

func TestEnsureConfigFileFallsBackToDiscoveredPath(t *testing.T) {
	oldFlag, oldDefault := configFile, defaultConfigFile
	t.Cleanup(func() { configFile, defaultConfigFile = oldFlag, oldDefault })

	configFile = ""
	defaultConfigFile = filepath.Join(t.TempDir(), "accessiclock.yml")

	if err := ensureConfigFile(); err != nil {
		t.Fatalf("ensureConfigFile failed: %v", err)
	}
	if configFile == "" {
		t.Fatal("expected ensureConfigFile to adopt the discovered path")
	}

	data, err := os.ReadFile(configFile)
	if err != nil {
		t.Fatalf("default config was not written: %v", err)
	}
	if !strings.Contains(string(data), "selected_package") {
		t.Error("expected the default config template")
	}
}
