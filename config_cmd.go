package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
)

const defaultConfig = `# preferences schema version
version: 1

# clock package to use, by id
selected_package: "default"

# play chimes at the configured intervals
chime_enabled: true
# speak the time at the most frequent configured interval
speech_enabled: true

# chime intervals
intervals:
  hourly: true
  half_hour: false
  quarter_hour: false
  # custom interval in minutes, 1 to 180 (0 disables)
  custom_minutes: 0

# volumes are 0.0 to 1.0; effective volume is master times channel
master_volume: 1.0
volumes:
  tick: 1.0
  chime: 1.0
  speech: 1.0

# speech synthesis; leave api_key empty for offline-only synthesis.
# ACCESSICLOCK_API_KEY overrides api_key so it can stay out of this file.
speech:
  voice: "default"
  base_url: ""
  api_key: ""

# which clock events surface as notifications
notifications:
  enabled: true
  on_chime: true
  on_error: true

# directory scanned for clock packages (defaults to the user data dir)
# packages_dir: "~/clock-packages"

# speech cache snapshot, restored on start and saved on exit
# cache_file: "~/.cache/accessiclock/speech.cache"
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the accessiclock config file",
	Long:    paragraph(fmt.Sprintf("\n%s the accessiclock config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("accessiclock config\naccessiclock config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("AccessiClock", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = resolveConfigFile()
	}
	if configFile == "" {
		return errors.New("no configuration file path available")
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
