package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/accessiclock/accessiclock/clock"
	"github.com/accessiclock/accessiclock/clock/audio"
)

var speakCmd = &cobra.Command{
	Use:     "speak [TEXT]",
	Short:   "Speak the time, or arbitrary text",
	Long:    paragraph(fmt.Sprintf("\n%s the current time out loud, or any text you pass. Uses the configured voice, falling back to offline synthesis.", keyword("Speak"))),
	Example: paragraph("accessiclock speak\naccessiclock speak \"lunch time\""),
	RunE: func(cmd *cobra.Command, args []string) error {
		prefs, err := loadPrefs()
		if err != nil {
			return err
		}

		text := strings.Join(args, " ")
		if text == "" {
			text = clock.SpokenTime(time.Now())
		}

		pipeline := newPipeline(prefs)
		wav, err := pipeline.Speak(cmd.Context(), text)
		if err != nil {
			return fmt.Errorf("unable to synthesize speech: %w", err)
		}

		asset, err := audio.AssetFromWAV(wav)
		if err != nil {
			return fmt.Errorf("unable to decode synthesized audio: %w", err)
		}

		mixer, err := newMixer()
		if err != nil {
			return err
		}
		defer mixer.StopAll()

		mixer.SetMasterVolume(prefs.MasterVolume)
		if err := mixer.Play(audio.ChannelSpeech, asset); err != nil {
			return err
		}

		fmt.Println(paragraph(text))
		waitForPlayback(cmd.Context(), mixer, audio.ChannelSpeech, asset.Duration)
		return nil
	},
}

// waitForPlayback blocks until the channel goes quiet, with the asset
// duration plus a grace period as an upper bound.
func waitForPlayback(ctx context.Context, mixer *audio.Mixer, ch audio.Channel, d time.Duration) {
	deadline := time.After(d + 250*time.Millisecond)
	poll := time.NewTicker(50 * time.Millisecond)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			return
		case <-poll.C:
			if !mixer.IsActive(ch) {
				return
			}
		}
	}
}
