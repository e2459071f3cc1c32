package pack

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// ConfigFileName is the per-package config file inside each package
// directory.
const ConfigFileName = "package.yaml"

// Problem reports a package that failed to load. One malformed package
// never blocks discovery of its siblings.
type Problem struct {
	ID   string
	Path string
	Err  error
}

// Registry discovers and caches clock packages under a root directory.
type Registry struct {
	root string

	mu       sync.RWMutex
	packages map[string]*ClockPackage
	problems []Problem
}

// NewRegistry creates a registry over root. The path may contain a leading
// tilde.
func NewRegistry(root string) (*Registry, error) {
	expanded, err := homedir.Expand(root)
	if err != nil {
		return nil, fmt.Errorf("unable to expand package root: %w", err)
	}
	return &Registry{
		root:     expanded,
		packages: make(map[string]*ClockPackage),
	}, nil
}

// Root returns the directory the registry scans.
func (r *Registry) Root() string { return r.root }

// Discover scans the root directory, loading and validating every package.
// It returns the valid packages and a problem report for each rejected
// one.
func (r *Registry) Discover() ([]*ClockPackage, []Problem, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to read package root %s: %w", r.root, err)
	}

	var (
		packages []*ClockPackage
		problems []Problem
	)

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(r.root, entry.Name())

		pkg, err := Load(dir)
		if err != nil {
			id := entry.Name()
			if pkg != nil && pkg.ID != "" {
				id = pkg.ID
			}
			log.Warn("skipping invalid clock package", "package", id, "err", err)
			problems = append(problems, Problem{ID: id, Path: dir, Err: err})
			continue
		}

		packages = append(packages, pkg)
	}

	sort.Slice(packages, func(i, j int) bool { return packages[i].ID < packages[j].ID })

	r.mu.Lock()
	r.packages = make(map[string]*ClockPackage, len(packages))
	for _, pkg := range packages {
		r.packages[pkg.ID] = pkg
	}
	r.problems = problems
	r.mu.Unlock()

	return packages, problems, nil
}

// Load reads and validates a single package directory. On a config parse
// failure the partial package is returned alongside the error so callers
// can still report its id.
func Load(dir string) (*ClockPackage, error) {
	cfgPath := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(cfgPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingField, cfgPath)
	}

	v := viper.New()
	v.SetConfigFile(cfgPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", cfgPath, err)
	}

	var pkg ClockPackage
	if err := v.Unmarshal(&pkg); err != nil {
		return nil, fmt.Errorf("unable to decode %s: %w", cfgPath, err)
	}
	pkg.Dir = dir

	if err := pkg.Validate(); err != nil {
		return &pkg, err
	}
	return &pkg, nil
}

// Get returns a discovered package by id.
func (r *Registry) Get(id string) (*ClockPackage, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pkg, ok := r.packages[id]
	return pkg, ok
}

// List returns the discovered packages sorted by id.
func (r *Registry) List() []*ClockPackage {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*ClockPackage, 0, len(r.packages))
	for _, pkg := range r.packages {
		out = append(out, pkg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Problems returns the report from the most recent Discover.
func (r *Registry) Problems() []Problem {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Problem, len(r.problems))
	copy(out, r.problems)
	return out
}

// Watch re-runs discovery whenever the package root changes and invokes
// onChange with the refreshed package list. It blocks until ctx is done.
func (r *Registry) Watch(ctx context.Context, onChange func([]*ClockPackage)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("unable to watch package root: %w", err)
	}
	defer watcher.Close() //nolint:errcheck

	if err := watcher.Add(r.root); err != nil {
		return fmt.Errorf("unable to watch %s: %w", r.root, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			log.Debug("package root changed, rediscovering", "event", event.Op.String(), "path", event.Name)
			packages, _, err := r.Discover()
			if err != nil {
				log.Warn("package rediscovery failed", "err", err)
				continue
			}
			if onChange != nil {
				onChange(packages)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("package watcher error", "err", err)
		}
	}
}
