// Package symtab implements the scope stack used by the semantic pass:
// a LIFO stack of name-to-declaration maps with two independent offset
// counters, one for globals and one for locals.
package symtab

import "github.com/minic-lang/minicc/internal/ast"

type scope struct {
	symbols map[string]*ast.Node
}

func newScope() *scope {
	return &scope{symbols: make(map[string]*ast.Node)}
}

// Env is the lexically scoped symbol table. The bottom of the stack is
// the global scope; every function entry and every block pushes a new
// local scope on top of it.
type Env struct {
	scopes       []*scope
	globalOffset int32
	localOffset  int32
}

// NewEnv returns an empty environment. Call PushGlobal before using it.
func NewEnv() *Env {
	return &Env{}
}

// PushGlobal initializes the scope stack with the global scope and
// resets the global-offset counter. Must be called exactly once,
// before any other operation.
func (e *Env) PushGlobal() {
	e.scopes = []*scope{newScope()}
	e.globalOffset = 0
}

// Push opens a new local scope (function entry or block entry).
func (e *Env) Push() {
	e.scopes = append(e.scopes, newScope())
}

// Pop closes the top scope. It is a no-op if only the global scope
// remains, so a stray Pop can never remove the global scope.
func (e *Env) Pop() {
	if len(e.scopes) <= 1 {
		return
	}
	e.scopes = e.scopes[:len(e.scopes)-1]
}

// isGlobalFrame reports whether the current top scope is the global
// scope, i.e. the stack holds only the bottom frame.
func (e *Env) isGlobalFrame() bool {
	return len(e.scopes) == 1
}

// Add inserts name bound to node in the top scope and assigns its
// offset (global addresses start at 0 and increment by 4; local slots
// use the shared local counter, which is not reset between nested
// blocks). It reports ok=false if name already exists in the top scope.
func (e *Env) Add(name string, node *ast.Node) (offset int32, ok bool) {
	top := e.scopes[len(e.scopes)-1]
	if _, exists := top.symbols[name]; exists {
		return -1, false
	}
	if e.isGlobalFrame() {
		offset = e.globalOffset
		e.globalOffset += 4
	} else {
		offset = e.localOffset
		e.localOffset += 4
	}
	top.symbols[name] = node
	return offset, true
}

// Lookup searches from the top scope downward to the global scope and
// returns the bound declaration node, or nil if name is unresolved.
func (e *Env) Lookup(name string) *ast.Node {
	for i := len(e.scopes) - 1; i >= 0; i-- {
		if n, ok := e.scopes[i].symbols[name]; ok {
			return n
		}
	}
	return nil
}

// ResetOffset zeroes the local-offset counter, called at function entry.
func (e *Env) ResetOffset() {
	e.localOffset = 0
}

// Offset returns the current local-offset counter, i.e. the size in
// bytes of the local-variable block accumulated so far.
func (e *Env) Offset() int32 {
	return e.localOffset
}
