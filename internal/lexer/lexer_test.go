package lexer

import "testing"

func lexAll(t *testing.T, src string) []Token {
	t.Helper()
	lx := New(src)
	var toks []Token
	for {
		tok, err := lx.Next()
		if err != nil {
			t.Fatalf("lexing %q: %v", src, err)
		}
		toks = append(toks, tok)
		if tok.Kind == EOF {
			return toks
		}
	}
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	toks := lexAll(t, "int x while foo")
	want := []Kind{KwInt, IDENT, KwWhile, IDENT, EOF}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Fatalf("token %d kind = %v, want %v", i, toks[i].Kind, k)
		}
	}
	if toks[1].Text != "x" || toks[3].Text != "foo" {
		t.Fatalf("identifier text not preserved: %+v", toks)
	}
}

func TestIntegerLiteral(t *testing.T) {
	toks := lexAll(t, "42")
	if toks[0].Kind != INTLIT || toks[0].IntVal != 42 {
		t.Fatalf("got %+v, want INTLIT 42", toks[0])
	}
}

func TestStringLiteralWithEscapes(t *testing.T) {
	toks := lexAll(t, `"a=\n"`)
	if toks[0].Kind != STRINGLIT || toks[0].Text != "a=\n" {
		t.Fatalf("got %+v, want STRINGLIT \"a=\\n\"", toks[0])
	}
}

func TestShiftOperatorsDisambiguatedFromRelational(t *testing.T) {
	toks := lexAll(t, "<< >> < > <= >=")
	want := []Kind{Shl, Shr, Lt, Gt, Le, Ge, EOF}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Fatalf("token %d kind = %v, want %v", i, toks[i].Kind, k)
		}
	}
}

func TestLineNumbersAdvanceAcrossNewlines(t *testing.T) {
	toks := lexAll(t, "int\nx\n=\n1;")
	if toks[0].Line != 1 {
		t.Fatalf("'int' line = %d, want 1", toks[0].Line)
	}
	if toks[1].Line != 2 {
		t.Fatalf("'x' line = %d, want 2", toks[1].Line)
	}
	if toks[3].Line != 4 {
		t.Fatalf("'1' line = %d, want 4", toks[3].Line)
	}
}

func TestCommentsAreSkipped(t *testing.T) {
	toks := lexAll(t, "int x; // trailing\n/* block */ int y;")
	var kinds []Kind
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	want := []Kind{KwInt, IDENT, Semi, KwInt, IDENT, Semi, EOF}
	if len(kinds) != len(want) {
		t.Fatalf("got %d tokens %v, want %d", len(kinds), kinds, len(want))
	}
}
