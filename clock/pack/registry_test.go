package pack

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDiscoverIsolatesMalformedSiblings(t *testing.T) {
	root := t.TempDir()
	writePackage(t, root, "good", `id: "good"
name: "Good"
version: "1.0"
clock_type: "digital"
chimes:
  - hourly
audio:
  hour_chime: "hour.wav"
`, "hour.wav")
	writePackage(t, root, "bad", "{{{ not yaml")

	r, err := NewRegistry(root)
	if err != nil {
		t.Fatal(err)
	}

	pkgs, problems, err := r.Discover()
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if len(pkgs) != 1 || pkgs[0].ID != "good" {
		t.Errorf("expected only the good package, got %v", pkgs)
	}
	if len(problems) != 1 || problems[0].ID != "bad" {
		t.Errorf("expected one problem for the bad package, got %v", problems)
	}

	if _, ok := r.Get("good"); !ok {
		t.Error("expected the good package to be retrievable")
	}
	if _, ok := r.Get("bad"); ok {
		t.Error("the malformed package must not be retrievable")
	}
}

func TestDiscoverSkipsDirsWithoutConfig(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "not-a-package"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "stray-file"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := NewRegistry(root)
	if err != nil {
		t.Fatal(err)
	}
	pkgs, problems, err := r.Discover()
	if err != nil {
		t.Fatal(err)
	}
	if len(pkgs) != 0 {
		t.Errorf("expected no packages, got %v", pkgs)
	}
	// A directory without a config is reported, a stray file is ignored.
	if len(problems) != 1 {
		t.Errorf("expected one problem, got %v", problems)
	}
	if !errors.Is(problems[0].Err, ErrMissingField) {
		t.Errorf("expected ErrMissingField, got %v", problems[0].Err)
	}
}

func TestDiscoverMissingRoot(t *testing.T) {
	r, err := NewRegistry(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := r.Discover(); err == nil {
		t.Error("expected an error for a missing package root")
	}
}

func TestWatchRediscoversNewPackage(t *testing.T) {
	root := t.TempDir()
	r, err := NewRegistry(root)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := r.Discover(); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan []*ClockPackage, 8)
	done := make(chan error, 1)
	go func() {
		done <- r.Watch(ctx, func(pkgs []*ClockPackage) { changed <- pkgs })
	}()

	// Give the watcher time to register before mutating the root.
	time.Sleep(100 * time.Millisecond)

	// Assemble the package outside the watched root and move it in, so
	// it appears fully formed in a single rename event.
	staging := t.TempDir()
	writePackage(t, staging, "hotpkg", `id: "hotpkg"
name: "Hot"
version: "1.0"
clock_type: "digital"
chimes:
  - hourly
audio:
  hour_chime: "hour.wav"
`, "hour.wav")
	if err := os.Rename(filepath.Join(staging, "hotpkg"), filepath.Join(root, "hotpkg")); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case pkgs := <-changed:
			for _, pkg := range pkgs {
				if pkg.ID == "hotpkg" {
					if _, ok := r.Get("hotpkg"); !ok {
						t.Error("expected the new package to be retrievable")
					}
					cancel()
					if err := <-done; err != nil {
						t.Errorf("Watch returned an error: %v", err)
					}
					return
				}
			}
		case <-deadline:
			t.Fatal("watcher never picked up the new package")
		}
	}
}

func TestRegistryListSorted(t *testing.T) {
	root := t.TempDir()
	for _, id := range []string{"zeta", "alpha"} {
		writePackage(t, root, id,
			`id: "`+id+`"
name: "Pack"
version: "1.0"
clock_type: "digital"
chimes:
  - hourly
audio:
  hour_chime: "hour.wav"
`, "hour.wav")
	}

	r, err := NewRegistry(root)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := r.Discover(); err != nil {
		t.Fatal(err)
	}

	list := r.List()
	if len(list) != 2 || list[0].ID != "alpha" || list[1].ID != "zeta" {
		t.Errorf("expected [alpha zeta], got %v", list)
	}
}
