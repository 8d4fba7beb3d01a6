package glsl

import "fmt"

// Diagnostic is one recorded compile error.
type Diagnostic struct {
	Line   int
	Reason string
	Token  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%d: %s: %s", d.Line, d.Reason, d.Token)
}

// CompileContext is the explicit diagnostics sink threaded through
// emission. Emission keeps going after an error where it can, so one
// compile reports as many diagnostics as possible; any recorded error
// marks the program invalid.
type CompileContext struct {
	TreeRoot    *Node
	diagnostics []Diagnostic
}

// Error records a diagnostic against a source line.
func (c *CompileContext) Error(line int, reason, token string) {
	c.diagnostics = append(c.diagnostics, Diagnostic{Line: line, Reason: reason, Token: token})
}

// ErrorCount returns the number of recorded diagnostics.
func (c *CompileContext) ErrorCount() int {
	return len(c.diagnostics)
}

// Diagnostics returns the recorded diagnostics in order.
func (c *CompileContext) Diagnostics() []Diagnostic {
	return c.diagnostics
}
