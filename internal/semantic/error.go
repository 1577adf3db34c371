package semantic

import "fmt"

// Error is a fatal semantic-analysis diagnostic. Analysis stops at the
// first one raised; there is no error recovery or multi-error report.
type Error struct {
	Line    int
	Rule    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("Error line %d: %s (rule %s)", e.Line, e.Message, e.Rule)
}

func errorf(line int, rule, format string, args ...any) *Error {
	return &Error{Line: line, Rule: rule, Message: fmt.Sprintf(format, args...)}
}
