package image

import "github.com/bakervm/bakervm/internal/vm"

// Builder assembles an instruction vector fluently. It is not a parser
// or assembler: callers still build instructions with vm's constructors
// (vm.Push, vm.Add, ...) one at a time, Builder only tracks position and
// resolves forward labels.
type Builder struct {
	instructions []vm.Instruction
	labels       map[string]uint64
	pending      []pendingLabel
}

type pendingLabel struct {
	index int
	label string
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{labels: make(map[string]uint64)}
}

// Emit appends one instruction and returns its address.
func (b *Builder) Emit(instr vm.Instruction) uint64 {
	addr := uint64(len(b.instructions))
	b.instructions = append(b.instructions, instr)
	return addr
}

// Label records that name refers to the next instruction to be emitted.
func (b *Builder) Label(name string) {
	b.labels[name] = uint64(len(b.instructions))
}

// EmitJumpTo appends a jump-class instruction whose Addr field is
// resolved to name's address once Build runs, even if name hasn't been
// labeled yet (a forward reference). make must ignore the addr argument
// it's given; Build substitutes the resolved address afterward.
func (b *Builder) EmitJumpTo(name string, make func(addr uint64) vm.Instruction) uint64 {
	addr := b.Emit(make(0))
	b.pending = append(b.pending, pendingLabel{index: int(addr), label: name})
	return addr
}

// Build resolves all forward label references and returns the finished
// instruction vector. It panics if a referenced label was never defined
// — a programming error in the caller, not a runtime condition.
func (b *Builder) Build() []vm.Instruction {
	for _, p := range b.pending {
		target, ok := b.labels[p.label]
		if !ok {
			panic("image: undefined label " + p.label)
		}
		b.instructions[p.index].Addr = target
	}
	return b.instructions
}
