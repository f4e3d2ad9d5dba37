package linker

import "fmt"

// LinkError is returned for every §4.4/§7 "Link" failure: an undefined
// external symbol in executable (non-relocatable) mode, conflicting start
// sections, or one of the single-table/single-memory invariants violated
// across inputs.
type LinkError struct {
	Context string
	Message string
}

func (e *LinkError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("wasm link error (%s): %s", e.Context, e.Message)
	}
	return fmt.Sprintf("wasm link error: %s", e.Message)
}

func linkErrf(context, format string, args ...interface{}) error {
	return &LinkError{Context: context, Message: fmt.Sprintf(format, args...)}
}
