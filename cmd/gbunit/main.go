// Package main provides the gbunit command line tool.
// gbunit runs unit tests against Game Boy ROMs on a cycle-counting SM83
// simulator, with no hardware or emulator in the loop.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gbkit/gbunit/config"
	"github.com/gbkit/gbunit/cpu"
	"github.com/gbkit/gbunit/loader"
	"github.com/gbkit/gbunit/mem"
	"github.com/gbkit/gbunit/report"
	"github.com/gbkit/gbunit/symfile"
)

var (
	configPath string
	symPath    string
	dumpDir    string
	silence    int
)

func main() {
	root := &cobra.Command{
		Use:   "gbunit [flags] <rom>",
		Short: "Run unit tests against a Game Boy ROM",
		Long: `gbunit executes unit tests described in a TOML file against a Game Boy
ROM on a cycle-counting SM83 simulator. The ROM path "-" reads from
standard input.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0])
		},
	}

	root.Flags().StringVarP(&configPath, "config", "c", "",
		"path to the TOML test description (required)")
	root.Flags().StringVarP(&symPath, "symfile", "n", "",
		"path to an RGBDS symbol file")
	root.Flags().StringVarP(&dumpDir, "dump-dir", "d", "",
		"directory to write address-space dumps of failing tests")
	root.Flags().CountVarP(&silence, "silent", "s",
		"hide passing tests; pass twice to hide breakpoints too")
	_ = root.MarkFlagRequired("config")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "gbunit: %v\n", err)
		os.Exit(1)
	}
}

func run(romPath string) error {
	var syms symfile.Table
	if symPath != "" {
		var err error
		syms, err = symfile.Load(symPath)
		if err != nil {
			return err
		}
	}

	tests, err := config.LoadFile(configPath, syms)
	if err != nil {
		return err
	}

	rom, err := loader.ROM(romPath)
	if err != nil {
		return err
	}
	base := mem.NewSpace(rom)

	level := report.SilenceLevel(silence)
	if level > report.SilenceAll {
		level = report.SilenceAll
	}
	logger := report.NewLogger(filepath.Base(romPath), level)

	for _, test := range tests {
		space := base.Clone()
		state := cpu.NewState(space)
		if !test.Run(state, logger.MakeTest(test.Name)) && dumpDir != "" {
			if err := dumpSpace(space, test.Name); err != nil {
				return err
			}
		}
	}

	logger.Finish()
	if !logger.AllPassed() {
		return fmt.Errorf("%d test(s) failed", logger.Total()-logger.Passed())
	}
	return nil
}

// dumpSpace writes the failing test's address space to <dump-dir>/<name>.txt.
func dumpSpace(space *mem.Space, name string) error {
	if err := os.MkdirAll(dumpDir, 0o755); err != nil {
		return fmt.Errorf("creating dump directory: %w", err)
	}
	path := filepath.Join(dumpDir, name+".txt")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating dump file: %w", err)
	}
	defer f.Close()
	if err := space.Dump(f); err != nil {
		return fmt.Errorf("writing dump file: %w", err)
	}
	return nil
}
