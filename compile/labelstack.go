package compile

import "github.com/vertexdlt/wasmlink/wasm"

// labelKind is one state of the §4.3 control-flow state machine.
type labelKind int

const (
	labelFunc labelKind = iota
	labelBlock
	labelLoop
	labelIf
	labelElse
)

func (k labelKind) String() string {
	switch k {
	case labelFunc:
		return "func"
	case labelBlock:
		return "block"
	case labelLoop:
		return "loop"
	case labelIf:
		return "if"
	case labelElse:
		return "else"
	default:
		return "label"
	}
}

// label is one entry of the label stack (§4.3, §9 "Control-flow label
// lifetime"): a strict stack tied to lexical block/loop/if/else/end
// pairing, never a graph.
type label struct {
	ID                int
	Kind              labelKind
	ResultType        wasm.ValueType
	StackDepthOnEntry int

	// BranchTarget is the istream offset a branch to this label jumps to.
	// Known immediately for Loop (its own entry point); resolved only once
	// Block/If/Else closes, when the Compiler patches the forward branches
	// it recorded under this label's ID in branchFixups.
	BranchTarget      uint32
	BranchTargetKnown bool

	// PendingFixup is the istream offset of the most recently emitted
	// forward-branch placeholder this label still owns: the br_unless
	// operand while Kind == If, the end-skipping br operand while
	// Kind == Else. Unused for Func/Block/Loop.
	PendingFixup uint32

	// Unreachable marks the label polymorphically dead following an
	// unconditional branch, return, or unreachable instruction (§4.3): pops
	// below StackDepthOnEntry no longer underflow, they yield wasm.Any.
	Unreachable bool
}

// labelStack enforces the strict push/pop pairing §9 calls for instead of
// a graph representation.
type labelStack struct {
	labels []label
	nextID int
}

func newLabelStack() *labelStack {
	return &labelStack{}
}

func (s *labelStack) push(l label) *label {
	s.nextID++
	l.ID = s.nextID
	s.labels = append(s.labels, l)
	return &s.labels[len(s.labels)-1]
}

func (s *labelStack) pop() label {
	l := s.labels[len(s.labels)-1]
	s.labels = s.labels[:len(s.labels)-1]
	return l
}

func (s *labelStack) top() *label {
	if len(s.labels) == 0 {
		return nil
	}
	return &s.labels[len(s.labels)-1]
}

func (s *labelStack) depth() int {
	return len(s.labels)
}

func (s *labelStack) empty() bool {
	return len(s.labels) == 0
}

// at returns the label branchDepth levels out from the innermost one (0 =
// innermost), the indexing `br`/`br_if`/`br_table` use.
func (s *labelStack) at(branchDepth uint32) (*label, bool) {
	idx := len(s.labels) - 1 - int(branchDepth)
	if idx < 0 {
		return nil, false
	}
	return &s.labels[idx], true
}

// funcLabel returns the outermost (Func) label of the current body.
func (s *labelStack) funcLabel() *label {
	return &s.labels[0]
}
