// Command wasmlink is a thin CLI over the reader/compile/linker packages:
// validate a module, lower it to an istream, or link several relocatable
// modules into one. It drives the core library end to end but implements
// no wasm semantics of its own.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
