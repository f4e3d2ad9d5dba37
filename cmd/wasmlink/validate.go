package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vertexdlt/wasmlink/compile"
	"github.com/vertexdlt/wasmlink/reader"
)

var traceSections bool

var validateCmd = &cobra.Command{
	Use:   "validate <in.wasm>",
	Short: "Decode and type-check a module, reporting the first error found",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		data, err := os.ReadFile(path)
		if err != nil {
			printError(cmd, err)
			return err
		}

		log := newLogger()
		defer log.Sync()

		if traceSections {
			printSection(cmd, "reading %s (%d bytes)", path, len(data))
		}

		c := compile.NewCompiler(compile.Options{Logger: log})
		if err := reader.Read(data, c, reader.Options{ReadDebugNames: true, Logger: log}); err != nil {
			printError(cmd, err)
			return err
		}
		result, err := c.Result()
		if err != nil {
			printError(cmd, err)
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "ok: %d function(s), %d byte istream\n",
			len(result.FuncOffsets), len(result.Istream))
		return nil
	},
}

func init() {
	validateCmd.Flags().BoolVar(&traceSections, "trace", false, "print a dim line with the input path and size before reading")
}
