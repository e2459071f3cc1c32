package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/accessiclock/accessiclock/clock"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the configured schedule and next chime",
	Long:  paragraph(fmt.Sprintf("\n%s the active package, chime schedule, and when the next chime will fire.", keyword("Show"))),
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		prefs, err := loadPrefs()
		if err != nil {
			return err
		}

		registry, err := newRegistry()
		if err != nil {
			return err
		}
		pkg := selectPackage(registry, prefs)

		if pkg != nil {
			fmt.Println(paragraph("Package: " + keyword(pkg.Name)))
		} else {
			fmt.Println(paragraph("Package: " + keyword("none")))
		}

		fmt.Println(paragraph("Chimes: " + enabledWord(prefs.ChimeEnabled)))
		fmt.Println(paragraph("Speech: " + enabledWord(prefs.SpeechEnabled)))

		sched := clock.NewScheduler(prefs.Intervals, prefs.ChimeEnabled, prefs.SpeechEnabled)
		if next, role, ok := sched.NextChime(time.Now()); ok {
			fmt.Println(paragraph(fmt.Sprintf("Next chime: %s at %s (%s)",
				keyword(string(role)), next.Format("15:04"), humanize.Time(next))))
		} else {
			fmt.Println(paragraph("Next chime: " + keyword("no intervals configured")))
		}

		if cacheFile != "" {
			if fi, err := os.Stat(cacheFile); err == nil {
				fmt.Println(paragraph(fmt.Sprintf("Speech cache: %s (%s)",
					humanize.Bytes(uint64(fi.Size())), cacheFile)))
			}
		}
		return nil
	},
}

func enabledWord(on bool) string {
	if on {
		return keyword("enabled")
	}
	return "disabled"
}
