package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vertexdlt/wasmlink/linker"
)

var (
	linkOutput      string
	linkRelocatable bool
)

var linkCmd = &cobra.Command{
	Use:   "link <in1.wasm> <in2.wasm> ...",
	Short: "Merge relocatable modules into a single module",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		defer log.Sync()

		out, err := linker.Link(linker.Options{
			Relocatable: linkRelocatable,
			OutputPath:  linkOutput,
			Inputs:      args,
			Logger:      log,
		})
		if err != nil {
			printError(cmd, err)
			return err
		}

		if linkOutput == "" {
			fmt.Fprintf(cmd.OutOrStdout(), "linked %d byte(s) from %d input(s) (no --output given, discarding)\n", len(out), len(args))
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s: %d byte(s) from %d input(s)\n", linkOutput, len(out), len(args))
		return nil
	},
}

func init() {
	linkCmd.Flags().StringVarP(&linkOutput, "output", "o", "", "output module path")
	linkCmd.Flags().BoolVar(&linkRelocatable, "relocatable", false, "keep unresolved imports and emit rebased reloc sections instead of failing")
}
