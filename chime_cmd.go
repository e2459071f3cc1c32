package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/accessiclock/accessiclock/clock/audio"
	"github.com/accessiclock/accessiclock/clock/pack"
)

var chimeCmd = &cobra.Command{
	Use:     "chime [ROLE]",
	Short:   "Play a chime now",
	Long:    paragraph(fmt.Sprintf("\n%s one of the selected package's chime sounds immediately, outside the schedule. Handy for auditioning packages.", keyword("Play"))),
	Example: paragraph("accessiclock chime\naccessiclock chime quarter_chime"),
	Args:    cobra.MaximumNArgs(1),
	ValidArgs: []string{
		string(pack.RoleHourChime),
		string(pack.RoleHalfChime),
		string(pack.RoleQuarterChime),
		string(pack.RoleCustomChime),
		string(pack.RoleTick),
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		role := pack.RoleHourChime
		if len(args) == 1 {
			role = pack.Role(args[0])
		}

		prefs, err := loadPrefs()
		if err != nil {
			return err
		}

		registry, err := newRegistry()
		if err != nil {
			return err
		}
		pkg := selectPackage(registry, prefs)
		if pkg == nil {
			return fmt.Errorf("no clock packages found in %s", registry.Root())
		}

		asset := pkg.Asset(role)
		if asset == nil {
			return fmt.Errorf("%w: package %s has no %s sound",
				audio.ErrAssetUnavailable, pkg.ID, role)
		}

		mixer, err := newMixer()
		if err != nil {
			return err
		}
		defer mixer.StopAll()

		mixer.SetMasterVolume(prefs.MasterVolume)
		if err := mixer.Play(audio.ChannelChime, asset); err != nil {
			return err
		}

		fmt.Println(paragraph(fmt.Sprintf("Playing %s from %s.", keyword(string(role)), pkg.Name)))
		waitForPlayback(cmd.Context(), mixer, audio.ChannelChime, asset.Duration)
		return nil
	},
}
