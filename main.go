// Package main provides the entry point for the AccessiClock CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/accessiclock/accessiclock/clock"
	"github.com/accessiclock/accessiclock/clock/audio"
	"github.com/accessiclock/accessiclock/clock/pack"
	"github.com/accessiclock/accessiclock/clock/speech"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile  string
	packagesDir string
	cacheFile   string
	silent      bool

	// Flag registration resets the flag-bound variables to their empty
	// defaults after init() has discovered these, so the discovered
	// values live separately and are consulted at command run time.
	defaultConfigFile  string
	defaultPackagesDir string

	rootCmd = &cobra.Command{
		Use:   "accessiclock",
		Short: "An accessible talking clock for the terminal",
		Long: paragraph(
			fmt.Sprintf("\nAn %s clock: chimes on the hour, speaks the time, and keeps working offline.", keyword("accessible talking")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.NoArgs,
		RunE:             runClock,
	}
)

// envOverrides are environment knobs that take precedence over the
// config file, so credentials never need to live on disk.
type envOverrides struct {
	APIKey  string `env:"ACCESSICLOCK_API_KEY"`
	BaseURL string `env:"ACCESSICLOCK_TTS_URL"`
	Voice   string `env:"ACCESSICLOCK_VOICE"`
}

// resolveConfigFile returns the preferences file path: the --config
// flag when given, then the file viper actually loaded, then the first
// user config directory.
func resolveConfigFile() string {
	if configFile != "" {
		return configFile
	}
	if used := viper.GetViper().ConfigFileUsed(); used != "" {
		return used
	}
	return defaultConfigFile
}

// resolvePackagesDir returns the package root: the --packages flag when
// given, then the config file's packages_dir, then the user data
// directory.
func resolvePackagesDir() string {
	if packagesDir != "" {
		return packagesDir
	}
	if dir := viper.GetString("packages_dir"); dir != "" {
		return dir
	}
	return defaultPackagesDir
}

// loadPrefs reads the preferences from the config file and applies
// environment overrides.
func loadPrefs() (clock.Preferences, error) {
	prefs := clock.LoadPreferences(resolveConfigFile())

	overrides, err := env.ParseAs[envOverrides]()
	if err != nil {
		return prefs, fmt.Errorf("error parsing environment: %w", err)
	}
	if overrides.APIKey != "" {
		prefs.Speech.APIKey = overrides.APIKey
	}
	if overrides.BaseURL != "" {
		prefs.Speech.BaseURL = overrides.BaseURL
	}
	if overrides.Voice != "" {
		prefs.Speech.Voice = overrides.Voice
	}
	return prefs, nil
}

// newRegistry opens the package registry rooted at the configured
// packages directory.
func newRegistry() (*pack.Registry, error) {
	return pack.NewRegistry(resolvePackagesDir())
}

// selectPackage discovers packages and returns the one preferences name,
// falling back to the first discovered package. A nil return means no
// usable package exists; the clock still runs, silently.
func selectPackage(registry *pack.Registry, prefs clock.Preferences) *pack.ClockPackage {
	pkgs, problems, err := registry.Discover()
	if err != nil {
		log.Warn("could not scan packages", "dir", registry.Root(), "err", err)
		return nil
	}
	for _, p := range problems {
		log.Warn("skipping unusable package", "id", p.ID, "err", p.Err)
	}
	if len(pkgs) == 0 {
		log.Warn("no clock packages found", "dir", registry.Root())
		return nil
	}
	if pkg, ok := registry.Get(prefs.SelectedPackage); ok {
		return pkg
	}
	log.Warn("selected package not found, using first available",
		"selected", prefs.SelectedPackage, "using", pkgs[0].ID)
	return pkgs[0]
}

// newPipeline assembles the speech pipeline from preferences: cache,
// optional remote tier, local fallback. The cache snapshot is restored
// when a cache file is configured.
func newPipeline(prefs clock.Preferences) *speech.Pipeline {
	cache := speech.NewCache(32 << 20)
	if cacheFile != "" {
		if err := speech.LoadSnapshot(cacheFile, cache); err != nil {
			log.Warn("could not restore speech cache", "file", cacheFile, "err", err)
		}
	}

	var remote speech.Provider
	if prefs.Speech.APIKey != "" {
		rc := speech.DefaultRemoteConfig()
		rc.APIKey = prefs.Speech.APIKey
		rc.BaseURL = prefs.Speech.BaseURL
		remote = speech.NewRemoteProvider(rc)
	}

	cfg := speech.DefaultConfig()
	cfg.Voice = prefs.Speech.Voice
	return speech.NewPipeline(remote, speech.NewLocalSynth(), cache, cfg)
}

// newMixer opens the audio device. With --silent the device is skipped
// and playback goes to a mock sink, which keeps every other code path
// identical.
func newMixer() (*audio.Mixer, error) {
	if silent {
		return audio.NewMixer(audio.NewMockContext()), nil
	}
	ctx, err := audio.NewOtoContext()
	if err != nil {
		return nil, fmt.Errorf("unable to open audio device: %w", err)
	}
	return audio.NewMixer(ctx), nil
}

// buildEngine wires the full stack. Used by run and the one-shot
// commands alike so they agree on configuration.
func buildEngine() (*clock.Engine, *pack.Registry, clock.Preferences, error) {
	prefs, err := loadPrefs()
	if err != nil {
		return nil, nil, prefs, err
	}

	registry, err := newRegistry()
	if err != nil {
		return nil, nil, prefs, err
	}
	pkg := selectPackage(registry, prefs)

	mixer, err := newMixer()
	if err != nil {
		return nil, nil, prefs, err
	}

	engine, err := clock.NewEngine(mixer, newPipeline(prefs), pkg, prefs)
	if err != nil {
		return nil, nil, prefs, err
	}
	return engine, registry, prefs, nil
}

func runClock(*cobra.Command, []string) error {
	engine, registry, prefs, err := buildEngine()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := engine.Start(ctx); err != nil {
		return err
	}

	// Hot-swap the active package when the packages directory changes;
	// installing or editing a package takes effect without a restart.
	go func() {
		err := registry.Watch(ctx, func(pkgs []*pack.ClockPackage) {
			if pkg, ok := registry.Get(prefs.SelectedPackage); ok {
				engine.ApplyPackage(pkg)
				return
			}
			if len(pkgs) > 0 {
				engine.ApplyPackage(pkgs[0])
				return
			}
			engine.ApplyPackage(nil)
		})
		if err != nil {
			log.Warn("package hot-reload disabled", "err", err)
		}
	}()

	status := engine.Status()
	fmt.Println(paragraph(fmt.Sprintf("%s is running. Press ctrl+c to quit.", keyword("accessiclock"))))
	if status.PackageName != "" {
		fmt.Println(paragraph("Clock package: " + keyword(status.PackageName)))
	}
	if !prefs.ChimeEnabled {
		fmt.Println(paragraph("Chimes are disabled."))
	}

	for {
		select {
		case <-ctx.Done():
			if err := engine.Stop(); err != nil {
				log.Debug("engine stop", "err", err)
			}
			if cacheFile != "" {
				if err := speech.SaveSnapshot(cacheFile, engine.SpeechCache()); err != nil {
					log.Warn("could not save speech cache", "file", cacheFile, "err", err)
				}
			}
			return nil
		case note := <-engine.Events():
			printNotification(note)
		}
	}
}

func printNotification(n clock.Notification) {
	switch n.Kind {
	case clock.NoteChime:
		fmt.Println(paragraph(fmt.Sprintf("%s %s", keyword("chime"), n.Role)))
	case clock.NoteAnnouncement:
		fmt.Println(paragraph(n.Text))
	case clock.NoteError:
		log.Warn("clock error", "err", n.Err)
	}
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().StringVar(&packagesDir, "packages", "", "clock packages directory")
	rootCmd.PersistentFlags().BoolVar(&silent, "silent", false, "run without an audio device")

	_ = viper.BindPFlag("packages_dir", rootCmd.PersistentFlags().Lookup("packages"))

	viper.SetDefault("packages_dir", "")
	viper.SetDefault("cache_file", "")

	rootCmd.AddCommand(speakCmd, chimeCmd, packagesCmd, statusCmd, configCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "accessiclock")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not find the configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "accessiclock")}, dirs...)
	}

	if c := os.Getenv("ACCESSICLOCK_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("accessiclock")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("accessiclock")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", used)
	}
	defaultConfigFile = filepath.Join(dirs[0], "accessiclock.yml")

	if dataDirs, err := scope.DataDirs(); err == nil && len(dataDirs) > 0 {
		defaultPackagesDir = filepath.Join(dataDirs[0], "packages")
	}

	cacheFile = viper.GetString("cache_file")
	if cacheFile == "" {
		if cacheDir, err := scope.CacheDir(); err == nil {
			cacheFile = filepath.Join(cacheDir, "speech.cache")
		}
	}
}
