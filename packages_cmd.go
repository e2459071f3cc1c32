package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/accessiclock/accessiclock/clock/pack"
)

var packagesCmd = &cobra.Command{
	Use:     "packages",
	Short:   "List installed clock packages",
	Long:    paragraph(fmt.Sprintf("\n%s every clock package found in the packages directory, including ones that failed to load and why.", keyword("List"))),
	Example: paragraph("accessiclock packages\naccessiclock packages --packages ~/my-clocks"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		registry, err := newRegistry()
		if err != nil {
			return err
		}

		pkgs, problems, err := registry.Discover()
		if err != nil {
			return fmt.Errorf("unable to scan %s: %w", registry.Root(), err)
		}

		if len(pkgs) == 0 && len(problems) == 0 {
			fmt.Println(paragraph(fmt.Sprintf("No clock packages in %s.", keyword(registry.Root()))))
			return nil
		}

		for _, pkg := range pkgs {
			fmt.Println(paragraph(fmt.Sprintf("%s (%s) v%s", keyword(pkg.Name), pkg.ID, pkg.Version)))
			if pkg.Description != "" {
				fmt.Println(paragraph("  " + pkg.Description))
			}
			fmt.Println(paragraph(fmt.Sprintf("  %s clock, %d sounds, %s of audio",
				pkg.ClockType, len(pkg.Assets), humanize.Bytes(assetBytes(pkg)))))
		}

		for _, p := range problems {
			fmt.Println(paragraph(fmt.Sprintf("%s could not be loaded: %v", keyword(p.ID), p.Err)))
		}
		return nil
	},
}

func assetBytes(pkg *pack.ClockPackage) uint64 {
	var n uint64
	for _, asset := range pkg.Assets {
		n += uint64(len(asset.PCM))
	}
	return n
}
