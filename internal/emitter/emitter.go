// Package emitter defines the instruction-sink interface consumed by
// the code generator and a concrete textual MIPS32 writer for the
// MARS/SPIM simulator. The interface exposes one call per
// instruction/directive/label so the generator never formats assembly
// text directly.
package emitter

import (
	"bytes"
	"fmt"
)

// Register numbers follow the standard MIPS32 assembler names.
const (
	R0 = 0 // $zero, hardwired constant zero
	AT = 1

	V0 = 2
	V1 = 3

	A0 = 4
	A1 = 5
	A2 = 6
	A3 = 7

	T0 = 8
	T1 = 9
	T2 = 10
	T3 = 11
	T4 = 12
	T5 = 13
	T6 = 14
	T7 = 15

	S0 = 16
	S1 = 17
	S2 = 18
	S3 = 19
	S4 = 20
	S5 = 21
	S6 = 22
	S7 = 23 // reserved as the dedicated spill restore register

	T8 = 24
	T9 = 25

	GP = 28
	SP = 29 // the stack register returned by a real get_stack_reg()
	FP = 30
	RA = 31
)

// RestoreReg is the dedicated register the spill protocol pops a saved
// operand into; it is never a member of the allocatable temporary
// window, so it cannot collide with a register the allocator hands out.
const RestoreReg = S7

// MaxTempRegisters is the number of $t registers available to the
// allocator's temporary window ($t0-$t7); S7 is reserved above.
const MaxTempRegisters = 8

// DataSegmentHi is the upper 16 bits of the MARS/SPIM data segment
// base address 0x10010000, used to compute global variable addresses
// with a single lui.
const DataSegmentHi = 0x1001

var regNames = [32]string{
	"$zero", "$at", "$v0", "$v1",
	"$a0", "$a1", "$a2", "$a3",
	"$t0", "$t1", "$t2", "$t3", "$t4", "$t5", "$t6", "$t7",
	"$s0", "$s1", "$s2", "$s3", "$s4", "$s5", "$s6", "$s7",
	"$t8", "$t9", "$k0", "$k1",
	"$gp", "$sp", "$fp", "$ra",
}

func regName(r int) string {
	if r < 0 || r >= len(regNames) {
		return fmt.Sprintf("$%d", r)
	}
	return regNames[r]
}

// StackAllocHandle identifies a previously emitted placeholder stack
// allocation instruction so it can later be patched with the final
// frame size, once the whole function body has been generated.
type StackAllocHandle int

// Emitter is the instruction sink: one method per MIPS instruction,
// directive, or label used by the code generator.
type Emitter interface {
	DataSection()
	TextSection()
	Word(label string, value int32)
	Asciiz(s string)
	Label(name string)
	NumericLabel(id int)

	Addu(d, s, t int)
	Subu(d, s, t int)
	And(d, s, t int)
	Or(d, s, t int)
	Xor(d, s, t int)
	Nor(d, s, t int)
	Slt(d, s, t int)
	Sltu(d, s, t int)
	Sllv(d, s, t int)
	Srav(d, s, t int)
	Srlv(d, s, t int)
	Mult(s, t int)
	Div(s, t int)
	Mflo(d int)
	Mfhi(d int)
	Teq(s, t int)

	Ori(d, s int, imm int32)
	Xori(d, s int, imm int32)
	Sltiu(d, s int, imm int32)
	Lui(d int, imm int32)
	Lw(d int, offset int32, base int)
	Sw(s int, offset int32, base int)
	BeqLabel(s, t, label int)
	BneLabel(s, t, label int)

	JumpLabel(label int)
	Syscall()

	AllocateStack() StackAllocHandle
	PatchStackAlloc(handle StackAllocHandle, size int32)
	DeallocateStack(size int32)

	String() string
}

// MipsWriter is a concrete Emitter that renders textual MIPS32
// assembly into an internal buffer line by line.
type MipsWriter struct {
	lines []string
}

// NewMipsWriter returns an empty MIPS text emitter.
func NewMipsWriter() *MipsWriter {
	return &MipsWriter{}
}

func (w *MipsWriter) emit(format string, args ...any) {
	w.lines = append(w.lines, "\t"+fmt.Sprintf(format, args...))
}

func (w *MipsWriter) DataSection() { w.lines = append(w.lines, ".data") }
func (w *MipsWriter) TextSection() { w.lines = append(w.lines, ".text") }

func (w *MipsWriter) Word(label string, value int32) {
	w.lines = append(w.lines, fmt.Sprintf("%s:\t.word\t%d", label, value))
}

func (w *MipsWriter) Asciiz(s string) {
	w.lines = append(w.lines, fmt.Sprintf("\t.asciiz\t%q", s))
}

func (w *MipsWriter) Label(name string) {
	w.lines = append(w.lines, name+":")
}

func (w *MipsWriter) NumericLabel(id int) {
	w.lines = append(w.lines, fmt.Sprintf("L%d:", id))
}

func (w *MipsWriter) Addu(d, s, t int) { w.emit("addu\t%s, %s, %s", regName(d), regName(s), regName(t)) }
func (w *MipsWriter) Subu(d, s, t int) { w.emit("subu\t%s, %s, %s", regName(d), regName(s), regName(t)) }
func (w *MipsWriter) And(d, s, t int)  { w.emit("and\t%s, %s, %s", regName(d), regName(s), regName(t)) }
func (w *MipsWriter) Or(d, s, t int)   { w.emit("or\t%s, %s, %s", regName(d), regName(s), regName(t)) }
func (w *MipsWriter) Xor(d, s, t int)  { w.emit("xor\t%s, %s, %s", regName(d), regName(s), regName(t)) }
func (w *MipsWriter) Nor(d, s, t int)  { w.emit("nor\t%s, %s, %s", regName(d), regName(s), regName(t)) }
func (w *MipsWriter) Slt(d, s, t int)  { w.emit("slt\t%s, %s, %s", regName(d), regName(s), regName(t)) }
func (w *MipsWriter) Sltu(d, s, t int) { w.emit("sltu\t%s, %s, %s", regName(d), regName(s), regName(t)) }
func (w *MipsWriter) Sllv(d, s, t int) { w.emit("sllv\t%s, %s, %s", regName(d), regName(s), regName(t)) }
func (w *MipsWriter) Srav(d, s, t int) { w.emit("srav\t%s, %s, %s", regName(d), regName(s), regName(t)) }
func (w *MipsWriter) Srlv(d, s, t int) { w.emit("srlv\t%s, %s, %s", regName(d), regName(s), regName(t)) }
func (w *MipsWriter) Mult(s, t int)    { w.emit("mult\t%s, %s", regName(s), regName(t)) }
func (w *MipsWriter) Div(s, t int)     { w.emit("div\t%s, %s", regName(s), regName(t)) }
func (w *MipsWriter) Mflo(d int)       { w.emit("mflo\t%s", regName(d)) }
func (w *MipsWriter) Mfhi(d int)       { w.emit("mfhi\t%s", regName(d)) }
func (w *MipsWriter) Teq(s, t int)     { w.emit("teq\t%s, %s", regName(s), regName(t)) }

func (w *MipsWriter) Ori(d, s int, imm int32) {
	w.emit("ori\t%s, %s, 0x%x", regName(d), regName(s), uint32(imm)&0xFFFF)
}
func (w *MipsWriter) Xori(d, s int, imm int32) {
	w.emit("xori\t%s, %s, 0x%x", regName(d), regName(s), uint32(imm)&0xFFFF)
}
func (w *MipsWriter) Sltiu(d, s int, imm int32) {
	w.emit("sltiu\t%s, %s, %d", regName(d), regName(s), imm)
}
func (w *MipsWriter) Lui(d int, imm int32) {
	w.emit("lui\t%s, 0x%x", regName(d), uint32(imm)&0xFFFF)
}
func (w *MipsWriter) Lw(d int, offset int32, base int) {
	w.emit("lw\t%s, %d(%s)", regName(d), offset, regName(base))
}
func (w *MipsWriter) Sw(s int, offset int32, base int) {
	w.emit("sw\t%s, %d(%s)", regName(s), offset, regName(base))
}
func (w *MipsWriter) BeqLabel(s, t, label int) {
	w.emit("beq\t%s, %s, L%d", regName(s), regName(t), label)
}
func (w *MipsWriter) BneLabel(s, t, label int) {
	w.emit("bne\t%s, %s, L%d", regName(s), regName(t), label)
}
func (w *MipsWriter) JumpLabel(label int) { w.emit("j\tL%d", label) }
func (w *MipsWriter) Syscall()            { w.emit("syscall") }

// AllocateStack emits a placeholder frame-allocation instruction and
// returns a handle that PatchStackAlloc later rewrites with the real
// size, once the function body (and therefore its spill depth) is
// known. This is the "placeholder+patch" option the emitter contract
// allows in place of a deferred emit.
func (w *MipsWriter) AllocateStack() StackAllocHandle {
	w.lines = append(w.lines, "")
	return StackAllocHandle(len(w.lines) - 1)
}

func (w *MipsWriter) PatchStackAlloc(handle StackAllocHandle, size int32) {
	w.lines[handle] = fmt.Sprintf("\tsubu\t%s, %s, %d", regName(SP), regName(SP), size)
}

func (w *MipsWriter) DeallocateStack(size int32) {
	w.emit("addu\t%s, %s, %d", regName(SP), regName(SP), size)
}

func (w *MipsWriter) String() string {
	var buf bytes.Buffer
	for _, l := range w.lines {
		buf.WriteString(l)
		buf.WriteByte('\n')
	}
	return buf.String()
}
