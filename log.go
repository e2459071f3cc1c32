package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// setupLog routes logging. With ACCESSICLOCK_LOGFILE set, everything goes
// to that file at debug level; otherwise warnings and up go to stderr so
// they never interleave with clock output on stdout.
func setupLog() (func() error, error) {
	log.SetOutput(os.Stderr)
	log.SetLevel(log.WarnLevel)

	if os.Getenv("ACCESSICLOCK_DEBUG") != "" {
		log.SetLevel(log.DebugLevel)
	}

	if logFile := os.Getenv("ACCESSICLOCK_LOGFILE"); logFile != "" {
		f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("error setting up logging: %w", err)
		}
		log.SetOutput(f)
		log.SetLevel(log.DebugLevel)
		return f.Close, nil
	}

	if os.Getenv("ACCESSICLOCK_DEBUG") == "" && !isattyStderr() {
		log.SetOutput(io.Discard)
	}

	return func() error { return nil }, nil
}

func isattyStderr() bool {
	fi, err := os.Stderr.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}
