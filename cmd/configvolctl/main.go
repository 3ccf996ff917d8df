// Command configvolctl is an operator utility for working with a simulated
// virtual config volume image offline: seeding a registry from a CSV
// manifest and dumping the resulting FAT12 image to a file for inspection
// in a normal disk image viewer. It has no role in the device firmware
// itself; it follows github.com/dargueta/disko/cmd's urfave/cli/v2 pattern.
package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/halfword/configvol/flash"
	"github.com/halfword/configvol/image"
	"github.com/halfword/configvol/registry"
	"github.com/halfword/configvol/volume"
)

func main() {
	app := &cli.App{
		Usage: "Inspect and seed virtual config volume images",
		Commands: []*cli.Command{
			{
				Name:      "dump",
				Usage:     "Bootstrap a registry from a CSV manifest and write the resulting image to a file",
				ArgsUsage: "MANIFEST_CSV OUTPUT_IMG",
				Action:    dumpImage,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("fatal error: %s", err.Error())
	}
}

// dumpImage loads a CSV manifest of (label, default_value, comment) rows
// into a fresh Entry Registry, bootstraps a Volume against it, forces an
// immediate commit, and writes the resulting simulated flash chip to a
// file. The seeded entries get no validate/update/print callbacks — this
// tool only needs to see what the canonical CONFIG.TXT would look like,
// not wire up live application state.
func dumpImage(c *cli.Context) error {
	if c.Args().Len() < 2 {
		return fmt.Errorf("usage: dump MANIFEST_CSV OUTPUT_IMG")
	}
	manifestPath := c.Args().Get(0)
	outputPath := c.Args().Get(1)

	manifest, err := os.Open(manifestPath)
	if err != nil {
		return fmt.Errorf("opening manifest: %w", err)
	}
	defer manifest.Close()

	reg := registry.New()
	if err := reg.LoadSeedsFromCSV(manifest); err != nil {
		return fmt.Errorf("loading manifest: %w", err)
	}

	geom := flash.Geometry{BaseAddress: 0x0800_0000, PageBytes: 1024, ImageBytes: image.DefaultImageBytes}
	sim, raw := flash.NewSimulator(geom)
	store := flash.New(sim, geom, raw, nil)

	v := volume.New(reg, store, nil)
	if err := v.Init(); err != nil {
		return fmt.Errorf("initializing volume: %w", err)
	}
	if err := v.ForceCommit(); err != nil {
		return fmt.Errorf("committing bootstrap image: %w", err)
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("creating output image: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, sim.Stream()); err != nil {
		return fmt.Errorf("writing output image: %w", err)
	}

	fmt.Printf("wrote %d bytes to %s\n", geom.ImageBytes, outputPath)
	return nil
}
