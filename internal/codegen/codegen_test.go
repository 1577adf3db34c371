package codegen

import (
	"strings"
	"testing"

	"github.com/minic-lang/minicc/internal/emitter"
	"github.com/minic-lang/minicc/internal/parser"
	"github.com/minic-lang/minicc/internal/semantic"
)

func compile(t *testing.T, src string, maxRegisters int) string {
	t.Helper()
	root, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := semantic.NewAnalyzer().Analyze(root); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	emit := emitter.NewMipsWriter()
	gen := NewGenerator(emit, maxRegisters)
	if err := gen.Generate(root); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return emit.String()
}

func TestDataSectionEmitsGlobalsThenStrings(t *testing.T) {
	out := compile(t, `int g = 7; void main(){ print("a="); }`, emitter.MaxTempRegisters)
	if !strings.Contains(out, "g:\t.word\t7") {
		t.Fatalf("expected a global word directive for g, got:\n%s", out)
	}
	if !strings.Contains(out, ".asciiz") {
		t.Fatalf("expected an .asciiz directive, got:\n%s", out)
	}
}

func TestIntegerLiteralEncodingBoundaries(t *testing.T) {
	cases := []struct {
		name  string
		value string
		want  []string
	}{
		{"small", "65535", []string{"ori"}},                 // 0xFFFF
		{"needs-lui", "65536", []string{"lui", "ori"}},      // 0x10000
		{"max-int32", "2147483647", []string{"lui", "ori"}}, // 0x7FFFFFFF
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			src := "void main(){ int a; a = " + c.value + "; }"
			out := compile(t, src, emitter.MaxTempRegisters)
			for _, instr := range c.want {
				if !strings.Contains(out, instr) {
					t.Fatalf("value %s: expected %q in output:\n%s", c.value, instr, out)
				}
			}
		})
	}
}

func TestPlusEmitsAddu(t *testing.T) {
	out := compile(t, "void main(){ int a; int b; int c; c = a + b; }", emitter.MaxTempRegisters)
	if !strings.Contains(out, "addu") {
		t.Fatalf("expected addu in output:\n%s", out)
	}
}

func TestComparisonOperatorsSwapOperandsForGtAndLe(t *testing.T) {
	out := compile(t, "void main(){ int a; int b; bool r; r = a > b; }", emitter.MaxTempRegisters)
	if !strings.Contains(out, "slt") {
		t.Fatalf("expected slt for GT, got:\n%s", out)
	}
}

func TestDivAndModEmitDivideByZeroTrap(t *testing.T) {
	out := compile(t, "void main(){ int a; int b; int c; c = a / b; }", emitter.MaxTempRegisters)
	if !strings.Contains(out, "div") || !strings.Contains(out, "teq") {
		t.Fatalf("expected div + teq trap, got:\n%s", out)
	}
}

func TestSpillProtocolTriggersWithSmallRegisterWindow(t *testing.T) {
	// Eight distinct variables summed in a right-nested tree, forced
	// through a register window of N=4: genBinary fully evaluates the
	// left operand before allocating for the right, so a left-leaning
	// chain (the parser's default left-associative fold of "+") only
	// ever peaks at 2 live registers and would never spill. Parenthesize
	// explicitly so the right operand keeps recursing and the register
	// window is actually exceeded.
	src := `void main(){
		int v0=1; int v1=2; int v2=3; int v3=4;
		int v4=5; int v5=6; int v6=7; int v7=8;
		int s;
		s = v0 + (v1 + (v2 + (v3 + (v4 + (v5 + (v6 + v7))))));
	}`
	out := compile(t, src, 4)
	if strings.Count(out, "lw\t$s7") == 0 {
		t.Fatalf("expected at least one spill restore into the dedicated restore register, got:\n%s", out)
	}
}

func TestNoSpillWithAmpleRegisterWindow(t *testing.T) {
	src := "void main(){ int a; int b; int c; c = a + b; }"
	out := compile(t, src, emitter.MaxTempRegisters)
	if strings.Contains(out, "$s7") {
		t.Fatalf("a two-operand expression should never need the restore register, got:\n%s", out)
	}
}

func TestIfElseProducesDistinctLabels(t *testing.T) {
	src := `void main(){
		int a; bool c1; bool c2;
		if (c1) { if (c2) { a = 1; } else { a = 2; } } else { a = 3; }
	}`
	out := compile(t, src, emitter.MaxTempRegisters)
	labels := map[string]bool{}
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "L") && strings.HasSuffix(line, ":") {
			if labels[line] {
				t.Fatalf("label %s emitted more than once", line)
			}
			labels[line] = true
		}
	}
	if len(labels) < 4 {
		t.Fatalf("expected at least 4 distinct labels for nested if/else, got %d: %v", len(labels), labels)
	}
}

func TestEmptyForLoopEmitsOnlyBackEdge(t *testing.T) {
	out := compile(t, "void main(){ for(;;) { } }", emitter.MaxTempRegisters)
	if strings.Count(out, "beq") != 0 {
		t.Fatalf("an empty for(;;) has no condition, so it should emit no beq, got:\n%s", out)
	}
	if !strings.Contains(out, "j\tL") {
		t.Fatalf("expected an unconditional jump back-edge, got:\n%s", out)
	}
}

func TestDoWhileEmitsTrailingBne(t *testing.T) {
	out := compile(t, "void main(){ int i; i = 0; do { i = i + 1; } while (i < 5); }", emitter.MaxTempRegisters)
	if !strings.Contains(out, "bne") {
		t.Fatalf("expected a trailing bne for do-while, got:\n%s", out)
	}
}

func TestExitSyscallSequence(t *testing.T) {
	out := compile(t, "void main(){}", emitter.MaxTempRegisters)
	if !strings.Contains(out, "ori\t$v0, $zero, 0xa") {
		t.Fatalf("expected the exit syscall selector (10) to be loaded into $v0, got:\n%s", out)
	}
	if !strings.Contains(out, "syscall") {
		t.Fatalf("expected a syscall instruction, got:\n%s", out)
	}
}
