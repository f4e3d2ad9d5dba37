package compile

import "fmt"

// ValidationError is returned for every type-stack, label, or index
// violation the compiler detects (§4.3 "Failure semantics", §7
// "Validation" taxonomy). It carries enough context — the function being
// compiled, the offending instruction's byte offset within that function's
// body — that a caller can point a user at the exact spot without the
// library needing to log anything itself.
type ValidationError struct {
	FuncIdx  uint32
	Offset   uint32
	Context  string
	Message  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("wasm: validation error in function %d at offset %d (%s): %s", e.FuncIdx, e.Offset, e.Context, e.Message)
}

func (c *Compiler) errf(offset uint32, context, format string, args ...interface{}) error {
	return &ValidationError{
		FuncIdx: c.curFunc,
		Offset:  offset,
		Context: context,
		Message: fmt.Sprintf(format, args...),
	}
}
