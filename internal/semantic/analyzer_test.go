package semantic

import (
	"strings"
	"testing"

	"github.com/minic-lang/minicc/internal/parser"
)

func analyze(t *testing.T, src string) error {
	t.Helper()
	root, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return NewAnalyzer().Analyze(root)
}

func TestValidProgramAnalyzesCleanly(t *testing.T) {
	src := `int g = 7; void main(){ int a = g * 3 + 1; print("a=", a); }`
	if err := analyze(t, src); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMainMustBeNamedMain(t *testing.T) {
	err := analyze(t, "void notmain(){}")
	requireRule(t, err, "1.4")
}

func TestVoidVariableIsRejected(t *testing.T) {
	err := analyze(t, "void main(){ void x; }")
	requireRule(t, err, "1.8")
}

func TestDuplicateDeclarationInSameScopeFails(t *testing.T) {
	err := analyze(t, "void main(){ int x; int x; }")
	requireRule(t, err, "1.11")
}

func TestShadowingInNestedScopeSucceeds(t *testing.T) {
	err := analyze(t, "int x; void main(){ { int x; } }")
	if err != nil {
		t.Fatalf("shadowing a global in a nested block should be legal: %v", err)
	}
}

func TestGlobalInitMustBeLiteral(t *testing.T) {
	err := analyze(t, "int g = 1 + 1; void main(){}")
	requireRule(t, err, "1.12")
}

func TestGlobalInitTypeMismatch(t *testing.T) {
	err := analyze(t, "int g = true; void main(){}")
	requireRule(t, err, "1.12")
}

func TestLocalInitTypeMismatch(t *testing.T) {
	err := analyze(t, "void main(){ int a = true; }")
	requireRule(t, err, "1.13")
}

func TestUndeclaredIdentifierFails(t *testing.T) {
	err := analyze(t, "void main(){ x = 1; }")
	requireRule(t, err, "1.61")
	if !strings.Contains(err.Error(), "Error line 1:") {
		t.Fatalf("diagnostic should cite the source line, got %q", err.Error())
	}
}

func TestNonBoolConditionsAreRejected(t *testing.T) {
	cases := []struct {
		src  string
		rule string
	}{
		{"void main(){ if (1) {} }", "1.18"},
		{"void main(){ while (1) {} }", "1.20"},
		{"void main(){ for (;1;) {} }", "1.21"},
		{"void main(){ do {} while (1); }", "1.22"},
	}
	for _, c := range cases {
		err := analyze(t, c.src)
		requireRule(t, err, c.rule)
	}
}

func TestBinaryOperatorTypeMismatch(t *testing.T) {
	err := analyze(t, "void main(){ bool b; int a; a = a + b; }")
	requireRule(t, err, "1.30")
}

func TestAssignmentToNonIdentFails(t *testing.T) {
	// 1 = a parses as an AFFECT whose left-hand side is not an IDENT.
	err := analyze(t, "void main(){ int a; 1 = a; }")
	requireRule(t, err, "1.32")
}

func TestPrintArgumentsAreTypeChecked(t *testing.T) {
	err := analyze(t, "void main(){ bool a; print(a + 1); }")
	if err == nil {
		t.Fatal("expected a type error from a non-INT operand to '+' inside print")
	}
}

func TestBitwiseScenarioTypesCleanly(t *testing.T) {
	src := `void main(){
		int a = 12; int b = 10;
		print(" band: ", a & b);
		print(" bor: ", a | b);
		print(" bxor: ", a ^ b);
		print(" bnot: ", ~a);
		print(" sll: ", a << 2);
		print(" sra: ", a >> 1);
	}`
	if err := analyze(t, src); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestControlFlowScenarioTypesCleanly(t *testing.T) {
	src := `void main(){
		int i = 0; int s = 0;
		while (i < 10) { s = s + i; i = i + 1; }
		print("s=", s);
	}`
	if err := analyze(t, src); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func requireRule(t *testing.T, err error, rule string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected an error (rule %s), got nil", rule)
	}
	semErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *semantic.Error, got %T: %v", err, err)
	}
	if semErr.Rule != rule {
		t.Fatalf("got rule %s, want %s (%v)", semErr.Rule, rule, err)
	}
}
