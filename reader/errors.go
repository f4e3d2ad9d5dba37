package reader

import "fmt"

// DecodeError is the single fatal-error type the Reader produces (§7):
// every decode/schema violation is reported through one on_error sink and
// unwinds to the top-level entry point with this error, carrying the byte
// offset where the problem was detected.
type DecodeError struct {
	Offset  uint32
	Context string
	Message string
}

func (e *DecodeError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("wasm decode error at offset %d (%s): %s", e.Offset, e.Context, e.Message)
	}
	return fmt.Sprintf("wasm decode error at offset %d: %s", e.Offset, e.Message)
}

func (e *DecodeError) withContext(ctx string) *DecodeError {
	if e.Context != "" {
		return e
	}
	e.Context = ctx
	return e
}
