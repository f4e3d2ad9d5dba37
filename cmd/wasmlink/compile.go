package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vertexdlt/wasmlink/compile"
	"github.com/vertexdlt/wasmlink/reader"
)

var compileCmd = &cobra.Command{
	Use:   "compile <in.wasm> <out.istream>",
	Short: "Validate a module and write its lowered instruction stream",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, out := args[0], args[1]
		data, err := os.ReadFile(in)
		if err != nil {
			printError(cmd, err)
			return err
		}

		log := newLogger()
		defer log.Sync()

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

		if err := os.WriteFile(out, result.Istream, 0o644); err != nil {
			printError(cmd, err)
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s: %d byte istream, %d function(s), %d import(s)\n",
			out, len(result.Istream), len(result.FuncOffsets), result.NumFuncImports)
		return nil
	},
}
