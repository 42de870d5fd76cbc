package vm

import (
	"fmt"

	"github.com/bakervm/bakervm/internal/value"
)

// TargetKind discriminates the five addressable memory regions spec.md
// §3 defines.
type TargetKind uint8

const (
	TargetStack TargetKind = iota
	TargetValueIndex
	TargetFramebuffer
	TargetBasePointer
	TargetKeyRegister
)

func (k TargetKind) String() string {
	switch k {
	case TargetStack:
		return "Stack"
	case TargetValueIndex:
		return "ValueIndex"
	case TargetFramebuffer:
		return "Framebuffer"
	case TargetBasePointer:
		return "BasePointer"
	case TargetKeyRegister:
		return "KeyRegister"
	default:
		return "Target?"
	}
}

// Target names a location an instruction can read from or write to. Addr
// carries the ValueIndex address or the KeyRegister key code; it is
// unused for Stack, Framebuffer and BasePointer.
type Target struct {
	Kind TargetKind
	Addr uint64
}

func Stack() Target                 { return Target{Kind: TargetStack} }
func ValueIndex(addr uint64) Target { return Target{Kind: TargetValueIndex, Addr: addr} }
func Framebuffer() Target           { return Target{Kind: TargetFramebuffer} }
func BasePointer() Target           { return Target{Kind: TargetBasePointer} }
func KeyRegister(code uint64) Target {
	return Target{Kind: TargetKeyRegister, Addr: code}
}

func (t Target) String() string {
	switch t.Kind {
	case TargetValueIndex:
		return fmt.Sprintf("ValueIndex(%d)", t.Addr)
	case TargetKeyRegister:
		return fmt.Sprintf("KeyRegister(%d)", t.Addr)
	default:
		return t.Kind.String()
	}
}

// Signal is a VM-internal directive an instruction can emit. FlushFrame
// is currently the only one (spec.md §4.3, §4.6): "Signal" names the
// outbound direction (VM to I/O thread), "Event" the inbound one.
type Signal uint8

const (
	SignalFlushFrame Signal = iota
)

// Opcode identifies an Instruction's operation.
type Opcode uint8

const (
	OpAdd Opcode = iota
	OpSub
	OpDiv
	OpMul
	OpRem
	OpCmp
	OpJmp
	OpJmpLt
	OpJmpGt
	OpJmpEq
	OpJmpLtEq
	OpJmpGtEq
	OpCall
	OpRet
	OpPush
	OpMov
	OpSwp
	OpDup
	OpCast
	OpHalt
	OpPause
	OpNop
	OpSig
)

func (op Opcode) String() string {
	names := [...]string{
		"Add", "Sub", "Div", "Mul", "Rem", "Cmp",
		"Jmp", "JmpLt", "JmpGt", "JmpEq", "JmpLtEq", "JmpGtEq",
		"Call", "Ret", "Push", "Mov", "Swp", "Dup", "Cast",
		"Halt", "Pause", "Nop", "Sig",
	}
	if int(op) < len(names) {
		return names[op]
	}
	return "Op?"
}

// Instruction is the wire and in-memory representation of one VM
// instruction. Every Opcode only ever reads the subset of fields that
// apply to it; the rest are left at their zero value, which keeps the
// struct a single flat, self-describing named record when serialized
// through the msgpack codec (see internal/image).
type Instruction struct {
	Op     Opcode
	Dest   Target
	Src    Target
	Value  value.Value
	Type   value.Type
	Signal Signal
	Addr   uint64 // jump / call target for Jmp-class and Call
}

func Add(dest, src Target) Instruction       { return Instruction{Op: OpAdd, Dest: dest, Src: src} }
func Sub(dest, src Target) Instruction       { return Instruction{Op: OpSub, Dest: dest, Src: src} }
func Div(dest, src Target) Instruction       { return Instruction{Op: OpDiv, Dest: dest, Src: src} }
func Mul(dest, src Target) Instruction       { return Instruction{Op: OpMul, Dest: dest, Src: src} }
func Rem(dest, src Target) Instruction       { return Instruction{Op: OpRem, Dest: dest, Src: src} }
func Cmp(a, b Target) Instruction            { return Instruction{Op: OpCmp, Dest: a, Src: b} }
func Jmp(addr uint64) Instruction            { return Instruction{Op: OpJmp, Addr: addr} }
func JmpLt(addr uint64) Instruction          { return Instruction{Op: OpJmpLt, Addr: addr} }
func JmpGt(addr uint64) Instruction          { return Instruction{Op: OpJmpGt, Addr: addr} }
func JmpEq(addr uint64) Instruction          { return Instruction{Op: OpJmpEq, Addr: addr} }
func JmpLtEq(addr uint64) Instruction        { return Instruction{Op: OpJmpLtEq, Addr: addr} }
func JmpGtEq(addr uint64) Instruction        { return Instruction{Op: OpJmpGtEq, Addr: addr} }
func Call(addr uint64) Instruction           { return Instruction{Op: OpCall, Addr: addr} }
func Ret() Instruction                       { return Instruction{Op: OpRet} }
func Push(dest Target, v value.Value) Instruction {
	return Instruction{Op: OpPush, Dest: dest, Value: v}
}
func Mov(dest, src Target) Instruction { return Instruction{Op: OpMov, Dest: dest, Src: src} }
func Swp(a, b Target) Instruction      { return Instruction{Op: OpSwp, Dest: a, Src: b} }
func Dup(t Target) Instruction         { return Instruction{Op: OpDup, Dest: t} }
func Cast(t Target, typ value.Type) Instruction {
	return Instruction{Op: OpCast, Dest: t, Type: typ}
}
func Halt() Instruction           { return Instruction{Op: OpHalt} }
func Pause() Instruction          { return Instruction{Op: OpPause} }
func Nop() Instruction            { return Instruction{Op: OpNop} }
func Sig(s Signal) Instruction    { return Instruction{Op: OpSig, Signal: s} }
