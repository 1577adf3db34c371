// Package codegen implements pass 2: it walks the annotated AST and
// emits a MIPS32 assembly program for the MARS/SPIM simulator,
// including string-literal pooling, the register allocator's spill
// protocol, control-flow label generation, and the standard main()
// prologue/epilogue. Built around the emitter/regalloc/strpool
// interfaces so the tree walk never touches assembly text directly.
package codegen

import (
	"fmt"

	"github.com/minic-lang/minicc/internal/ast"
	"github.com/minic-lang/minicc/internal/emitter"
	"github.com/minic-lang/minicc/internal/regalloc"
	"github.com/minic-lang/minicc/internal/strpool"
)

// Generator runs pass 2 over a single, already pass-1-annotated
// compilation unit.
type Generator struct {
	emit    emitter.Emitter
	reg     tempWindow
	strings *strpool.Pool
	labels  int
}

// tempWindow maps the allocator's window slots 0..N-1 onto the physical
// temporaries $t0 upward.
type tempWindow struct{ *regalloc.Allocator }

// CurrentReg returns the physical register of the current window slot.
func (w tempWindow) CurrentReg() int { return emitter.T0 + w.Allocator.CurrentReg() }

// NewGenerator returns a generator writing to emit, with a register
// window of maxRegisters temporaries (typically emitter.MaxTempRegisters).
func NewGenerator(emit emitter.Emitter, maxRegisters int) *Generator {
	g := &Generator{
		emit:    emit,
		reg:     tempWindow{regalloc.New()},
		strings: strpool.New(),
	}
	g.reg.SetMaxRegisters(maxRegisters)
	return g
}

// Generate is gen_code_passe_2: it collects string literals, emits the
// data section, then the text section for the program's sole function.
func (g *Generator) Generate(root *ast.Node) error {
	globalsSize := countGlobals(root.Opr[0]) * 4
	g.collectStrings(root, globalsSize)

	g.reg.Reset()
	g.reg.ResetTemporaryMax()

	g.genDataSection(root)

	if root.Opr[1] != nil {
		return g.genTextSection(root.Opr[1])
	}
	return nil
}

func (g *Generator) newLabel() int {
	id := g.labels
	g.labels++
	return id
}

// countGlobals counts DECL leaves under a global DECLS/LIST spine, so
// the string pool can be based past the end of the globals block: both
// regions share the single data segment addressed from DataSegmentHi.
func countGlobals(node *ast.Node) int32 {
	if node == nil {
		return 0
	}
	switch node.Nature {
	case ast.LIST:
		return countGlobals(node.Opr[0]) + countGlobals(node.Opr[1])
	case ast.DECLS:
		return countGlobals(node.Opr[1])
	case ast.DECL:
		return 1
	}
	return 0
}

// collectStrings is the pre-order pass that interns every STRINGVAL
// literal and writes its data-segment offset back onto the node, based
// past globalsSize bytes of global-variable words.
func (g *Generator) collectStrings(node *ast.Node, globalsSize int32) {
	if node == nil {
		return
	}
	if node.Nature == ast.STRINGVAL {
		node.Offset = globalsSize + g.strings.Add(node.Str)
		return
	}
	for i := 0; i < node.Nops; i++ {
		g.collectStrings(node.Opr[i], globalsSize)
	}
}

// genDataSection emits .data, one .word per global in declaration
// order, then one .asciiz per pooled string.
func (g *Generator) genDataSection(root *ast.Node) {
	g.emit.DataSection()
	g.genGlobalDecls(root.Opr[0])
	for i := 0; i < g.strings.Count(); i++ {
		g.emit.Asciiz(g.strings.String(i))
	}
}

func (g *Generator) genGlobalDecls(node *ast.Node) {
	if node == nil {
		return
	}
	switch node.Nature {
	case ast.LIST:
		g.genGlobalDecls(node.Opr[0])
		g.genGlobalDecls(node.Opr[1])
	case ast.DECLS:
		g.genGlobalDecls(node.Opr[1])
	case ast.DECL:
		ident := node.Opr[0]
		var initValue int32
		if node.Nops == 2 {
			init := node.Opr[1]
			if init.Nature == ast.INTVAL || init.Nature == ast.BOOLVAL {
				initValue = int32(init.Value)
			}
		}
		g.emit.Word(ident.Ident, initValue)
	}
}

// genTextSection emits .text, the main: label, the prologue/epilogue,
// and the function body in between.
func (g *Generator) genTextSection(fn *ast.Node) error {
	g.emit.TextSection()
	g.emit.Label("main")

	g.reg.SetTemporaryStart(fn.Offset)
	alloc := g.emit.AllocateStack()

	if fn.Nops == 3 && fn.Opr[2] != nil {
		g.genBlock(fn.Opr[2])
	}

	frameSize := fn.Offset
	if max := g.reg.TemporaryMax(); max > frameSize {
		frameSize = max
	}
	g.emit.PatchStackAlloc(alloc, frameSize)
	g.emit.DeallocateStack(frameSize)

	g.emit.Ori(emitter.V0, emitter.R0, 10) // MARS exit syscall
	g.emit.Syscall()
	return nil
}

func (g *Generator) genBlock(block *ast.Node) {
	if block == nil {
		return
	}
	g.genLocalDecls(block.Opr[0])
	g.genStmt(block.Opr[1])
}

func (g *Generator) genLocalDecls(node *ast.Node) {
	if node == nil {
		return
	}
	switch node.Nature {
	case ast.LIST:
		g.genLocalDecls(node.Opr[0])
		g.genLocalDecls(node.Opr[1])
	case ast.DECLS:
		g.genLocalDecls(node.Opr[1])
	case ast.DECL:
		if node.Nops == 2 {
			ident := node.Opr[0]
			g.genExpr(node.Opr[1])
			g.emit.Sw(g.reg.CurrentReg(), ident.Offset, emitter.SP)
		}
	}
}

// genStmt dispatches a single statement (or a LIST spine of them).
func (g *Generator) genStmt(node *ast.Node) {
	if node == nil {
		return
	}
	switch node.Nature {
	case ast.LIST:
		g.genStmt(node.Opr[0])
		g.genStmt(node.Opr[1])
	case ast.BLOCK:
		g.genBlock(node)
	case ast.IF:
		g.genIf(node)
	case ast.WHILE:
		g.genWhile(node)
	case ast.FOR:
		g.genFor(node)
	case ast.DOWHILE:
		g.genDoWhile(node)
	case ast.PRINT:
		g.genPrint(node)
	default:
		g.genExpr(node)
	}
}

func (g *Generator) genIf(node *ast.Node) {
	labelElse := g.newLabel()

	g.genExpr(node.Opr[0])
	g.emit.BeqLabel(g.reg.CurrentReg(), emitter.R0, labelElse)

	g.genStmt(node.Opr[1])

	if node.Nops == 3 {
		labelEnd := g.newLabel()
		g.emit.JumpLabel(labelEnd)
		g.emit.NumericLabel(labelElse)
		g.genStmt(node.Opr[2])
		g.emit.NumericLabel(labelEnd)
	} else {
		g.emit.NumericLabel(labelElse)
	}
}

func (g *Generator) genWhile(node *ast.Node) {
	labelStart := g.newLabel()
	labelEnd := g.newLabel()

	g.emit.NumericLabel(labelStart)
	g.genExpr(node.Opr[0])
	g.emit.BeqLabel(g.reg.CurrentReg(), emitter.R0, labelEnd)

	g.genStmt(node.Opr[1])

	g.emit.JumpLabel(labelStart)
	g.emit.NumericLabel(labelEnd)
}

func (g *Generator) genFor(node *ast.Node) {
	init, cond, step, body := node.Opr[0], node.Opr[1], node.Opr[2], node.Opr[3]

	labelStart := g.newLabel()
	labelEnd := g.newLabel()

	if init != nil {
		g.genExpr(init)
	}

	g.emit.NumericLabel(labelStart)

	if cond != nil {
		g.genExpr(cond)
		g.emit.BeqLabel(g.reg.CurrentReg(), emitter.R0, labelEnd)
	}

	g.genStmt(body)

	if step != nil {
		g.genExpr(step)
	}

	g.emit.JumpLabel(labelStart)
	g.emit.NumericLabel(labelEnd)
}

func (g *Generator) genDoWhile(node *ast.Node) {
	labelStart := g.newLabel()

	g.emit.NumericLabel(labelStart)
	g.genStmt(node.Opr[0])

	g.genExpr(node.Opr[1])
	g.emit.BneLabel(g.reg.CurrentReg(), emitter.R0, labelStart)
}

// genPrint walks print's argument list, emitting one MARS syscall per
// argument.
func (g *Generator) genPrint(node *ast.Node) {
	g.genPrintList(node.Opr[0])
}

func (g *Generator) genPrintList(node *ast.Node) {
	if node == nil {
		return
	}
	if node.Nature == ast.LIST {
		g.genPrintList(node.Opr[0])
		g.genPrintList(node.Opr[1])
		return
	}
	g.genPrintItem(node)
}

func (g *Generator) genPrintItem(item *ast.Node) {
	switch {
	case item.Nature == ast.STRINGVAL:
		g.emit.Lui(emitter.A0, emitter.DataSegmentHi)
		g.emit.Ori(emitter.A0, emitter.A0, item.Offset)
		g.emit.Ori(emitter.V0, emitter.R0, 4) // MARS print-string syscall
		g.emit.Syscall()

	case item.Nature == ast.IDENT:
		decl := item.DeclNode
		if decl != nil && decl.GlobalDecl {
			g.emit.Lui(emitter.A0, emitter.DataSegmentHi)
			g.emit.Lw(emitter.A0, decl.Offset, emitter.A0)
		} else {
			g.emit.Lw(emitter.A0, item.Offset, emitter.SP)
		}
		g.emit.Ori(emitter.V0, emitter.R0, 1) // MARS print-int syscall
		g.emit.Syscall()

	default:
		g.genExpr(item)
		g.emit.Addu(emitter.A0, g.reg.CurrentReg(), emitter.R0)
		g.emit.Ori(emitter.V0, emitter.R0, 1)
		g.emit.Syscall()
	}
}

// genExpr emits code for expr into the allocator's current register.
func (g *Generator) genExpr(expr *ast.Node) {
	if expr == nil {
		return
	}

	switch expr.Nature {
	case ast.INTVAL, ast.BOOLVAL:
		g.genLiteral(expr.Value)

	case ast.IDENT:
		g.genIdentLoad(expr)

	case ast.AFFECT:
		g.genAffect(expr)

	case ast.NOT:
		g.genExpr(expr.Opr[0])
		reg := g.reg.CurrentReg()
		g.emit.Xori(reg, reg, 1)

	case ast.UMINUS:
		g.genExpr(expr.Opr[0])
		reg := g.reg.CurrentReg()
		g.emit.Subu(reg, emitter.R0, reg)

	case ast.BNOT:
		g.genExpr(expr.Opr[0])
		reg := g.reg.CurrentReg()
		g.emit.Nor(reg, emitter.R0, reg)

	default:
		g.genBinary(expr)
	}
}

func (g *Generator) genLiteral(value int64) {
	reg := g.reg.CurrentReg()
	if value >= 0 && value <= 0xFFFF {
		g.emit.Ori(reg, emitter.R0, int32(value))
		return
	}
	g.emit.Lui(reg, int32((value>>16)&0xFFFF))
	g.emit.Ori(reg, reg, int32(value&0xFFFF))
}

func (g *Generator) genIdentLoad(ident *ast.Node) {
	reg := g.reg.CurrentReg()
	if ident.GlobalDecl {
		g.emit.Lui(reg, emitter.DataSegmentHi)
		g.emit.Lw(reg, ident.DeclNode.Offset, reg)
	} else {
		g.emit.Lw(reg, ident.Offset, emitter.SP)
	}
}

func (g *Generator) genAffect(expr *ast.Node) {
	g.genExpr(expr.Opr[1])
	reg := g.reg.CurrentReg()

	left := expr.Opr[0]
	if left.GlobalDecl {
		g.reg.Allocate()
		tmp := g.reg.CurrentReg()
		g.emit.Lui(tmp, emitter.DataSegmentHi)
		g.emit.Sw(reg, left.DeclNode.Offset, tmp)
		g.reg.Release()
	} else {
		g.emit.Sw(reg, left.Offset, emitter.SP)
	}
}

// combine emits the instruction(s) for nature, combining a left-value
// register l and a right-value register r into destination d. Every
// binary operator nature reduces to this (d, l, r) shape: relational
// operators that read MIPS slt with swapped operands (GT, LE) just
// reorder l/r internally, rather than needing a different call shape.
func (g *Generator) combine(nature ast.Nature, d, l, r int) {
	switch nature {
	case ast.PLUS:
		g.emit.Addu(d, l, r)
	case ast.MINUS:
		g.emit.Subu(d, l, r)
	case ast.MUL:
		g.emit.Mult(l, r)
		g.emit.Mflo(d)
	case ast.DIV:
		g.emit.Div(l, r)
		g.emit.Teq(r, emitter.R0)
		g.emit.Mflo(d)
	case ast.MOD:
		g.emit.Div(l, r)
		g.emit.Teq(r, emitter.R0)
		g.emit.Mfhi(d)
	case ast.LT:
		g.emit.Slt(d, l, r)
	case ast.GT:
		g.emit.Slt(d, r, l)
	case ast.LE:
		g.emit.Slt(d, r, l)
		g.emit.Xori(d, d, 1)
	case ast.GE:
		g.emit.Slt(d, l, r)
		g.emit.Xori(d, d, 1)
	case ast.EQ:
		g.emit.Xor(d, l, r)
		g.emit.Sltiu(d, d, 1)
	case ast.NE:
		g.emit.Xor(d, l, r)
		g.emit.Sltu(d, emitter.R0, d)
	case ast.AND, ast.BAND:
		g.emit.And(d, l, r)
	case ast.OR, ast.BOR:
		g.emit.Or(d, l, r)
	case ast.BXOR:
		g.emit.Xor(d, l, r)
	case ast.SLL:
		g.emit.Sllv(d, l, r)
	case ast.SRA:
		g.emit.Srav(d, l, r)
	case ast.SRL:
		g.emit.Srlv(d, l, r)
	default:
		panic(fmt.Sprintf("codegen: %s is not a binary operator", nature))
	}
}

// genBinary implements the register allocator's spill protocol shared
// by every binary operator: the left operand is computed into the
// current register; if the window is exhausted before evaluating the
// right operand, the left value is spilled to a dedicated stack slot
// and restored into the dedicated restore register after the right
// operand is evaluated.
func (g *Generator) genBinary(expr *ast.Node) {
	g.genExpr(expr.Opr[0])
	regLeft := g.reg.CurrentReg()

	spilled := !g.reg.Available()
	var spillOffset int32
	if spilled {
		spillOffset = g.reg.PushTemporary()
		g.emit.Sw(regLeft, spillOffset, emitter.SP)
	}

	g.reg.Allocate()
	g.genExpr(expr.Opr[1])
	regRight := g.reg.CurrentReg()

	if spilled {
		offset := g.reg.PopTemporary()
		g.emit.Lw(emitter.RestoreReg, offset, emitter.SP)
		g.combine(expr.Nature, regRight, emitter.RestoreReg, regRight)
	} else {
		g.combine(expr.Nature, regLeft, regLeft, regRight)
		g.reg.Release()
	}
}
