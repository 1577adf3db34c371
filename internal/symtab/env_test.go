package symtab

import (
	"testing"

	"github.com/minic-lang/minicc/internal/ast"
)

func TestGlobalOffsetsIncrementByFour(t *testing.T) {
	env := NewEnv()
	env.PushGlobal()

	off1, ok := env.Add("g1", ast.NewIdent(1, "g1"))
	if !ok || off1 != 0 {
		t.Fatalf("first global offset = %d, ok=%v, want 0, true", off1, ok)
	}
	off2, ok := env.Add("g2", ast.NewIdent(1, "g2"))
	if !ok || off2 != 4 {
		t.Fatalf("second global offset = %d, ok=%v, want 4, true", off2, ok)
	}
}

func TestRedeclarationInSameScopeFails(t *testing.T) {
	env := NewEnv()
	env.PushGlobal()

	if _, ok := env.Add("x", ast.NewIdent(1, "x")); !ok {
		t.Fatal("first declaration of x should succeed")
	}
	if _, ok := env.Add("x", ast.NewIdent(2, "x")); ok {
		t.Fatal("redeclaration of x in the same scope should fail")
	}
}

func TestShadowingAcrossScopesIsAllowed(t *testing.T) {
	env := NewEnv()
	env.PushGlobal()
	env.Add("x", ast.NewIdent(1, "x"))

	env.Push()
	if _, ok := env.Add("x", ast.NewIdent(2, "x")); !ok {
		t.Fatal("a local scope should be able to shadow a global name")
	}
}

func TestLocalOffsetResetAtFunctionEntryNotBetweenBlocks(t *testing.T) {
	env := NewEnv()
	env.PushGlobal()
	env.ResetOffset()

	env.Push() // function scope
	a, _ := env.Add("a", ast.NewIdent(1, "a"))
	env.Push() // nested block
	b, _ := env.Add("b", ast.NewIdent(2, "b"))
	env.Pop()
	c, _ := env.Add("c", ast.NewIdent(3, "c"))

	if a != 0 || b != 4 || c != 8 {
		t.Fatalf("offsets = %d, %d, %d; want 0, 4, 8 (no slot reuse across blocks)", a, b, c)
	}
}

func TestLookupWalksFromTopToGlobal(t *testing.T) {
	env := NewEnv()
	env.PushGlobal()
	globalX := ast.NewIdent(1, "x")
	env.Add("x", globalX)

	env.Push()
	localY := ast.NewIdent(2, "y")
	env.Add("y", localY)

	if got := env.Lookup("x"); got != globalX {
		t.Fatalf("Lookup(x) should find the global declaration")
	}
	if got := env.Lookup("y"); got != localY {
		t.Fatalf("Lookup(y) should find the local declaration")
	}
	if got := env.Lookup("nope"); got != nil {
		t.Fatalf("Lookup of an unresolved name should return nil, got %v", got)
	}
}

func TestPopNeverRemovesGlobalScope(t *testing.T) {
	env := NewEnv()
	env.PushGlobal()
	env.Pop()
	env.Pop()

	if _, ok := env.Add("x", ast.NewIdent(1, "x")); !ok {
		t.Fatal("the global scope should still accept declarations after stray Pop calls")
	}
}
