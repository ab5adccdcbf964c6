package ic

// Optimize runs the peephole optimizer to a fixpoint (spec §4.3). It is
// idempotent: running it again afterward performs zero further deletions
// (spec §8's monotonicity property).
func (b *Builder) Optimize() {
	for {
		changed := false
		changed = b.foldBranchChains() || changed
		changed = b.foldBranchOverBranch() || changed
		changed = b.dropFallthroughBranches() || changed
		changed = b.dropDeadTails() || changed
		changed = b.dropUnreachableLabels() || changed
		b.compact()
		if !changed {
			break
		}
	}
}

// branchTarget returns the single Label operand of an unconditional Branch
// instruction, or nil if ins is not such an instruction.
func branchTarget(ins *Instruction) *Label {
	if ins.deleted || ins.Opcode != Branch {
		return nil
	}
	for _, op := range ins.Operands {
		if op.Kind == OperandLabel {
			return op.Lbl
		}
	}
	return nil
}

// instructionAfterLabel returns the first non-deleted, non-Label instruction at or
// after label l's position, and its index. Label pseudo-instructions are
// transparent for this purpose.
func (b *Builder) instructionAfterLabel(l *Label) (*Instruction, int) {
	found := false
	for i, ins := range b.instructions {
		if ins.deleted {
			continue
		}
		if ins.Opcode == Label_ {
			if ins.Operands[0].Lbl == l {
				found = true
			}
			continue
		}
		if found {
			return ins, i
		}
	}
	return nil, -1
}

// foldBranchChains short-circuits a branch whose target is itself an
// unconditional branch: Branch L1 where L1: Branch L2 becomes Branch L2.
func (b *Builder) foldBranchChains() bool {
	changed := false
	for _, ins := range b.instructions {
		if ins.deleted {
			continue
		}
		target := labelOperandOf(ins)
		if target == nil {
			continue
		}
		next, _ := b.instructionAfterLabel(target)
		if next == nil {
			continue
		}
		if finalTarget := branchTarget(next); finalTarget != nil && finalTarget != target {
			setLabelOperand(ins, finalTarget)
			changed = true
		}
	}
	return changed
}

// labelOperandOf returns the "primary" jump-target label operand of ins, for
// opcodes that have exactly one (Branch and the BranchXxx relational family;
// Call is excluded, since folding a Call's target into a further branch
// would change reduce-entry semantics, not just control flow).
func labelOperandOf(ins *Instruction) *Label {
	if ins.deleted {
		return nil
	}
	if ins.Opcode != Branch && !ins.Opcode.IsConditionalBranch() {
		return nil
	}
	for _, op := range ins.Operands {
		if op.Kind == OperandLabel {
			return op.Lbl
		}
	}
	return nil
}

func setLabelOperand(ins *Instruction, l *Label) {
	for i, op := range ins.Operands {
		if op.Kind == OperandLabel {
			ins.Operands[i].Lbl = l
			return
		}
	}
}

// foldBranchOverBranch replaces a conditional branch immediately followed by
// an unconditional branch to L2, where the conditional's own target is the
// label immediately after that unconditional branch, with the inverse
// conditional branching directly to L2 (spec §4.3).
//
//	BranchEqual L1, a, b
//	Branch L2
//	L1: ...
//
// becomes
//
//	BranchNotEqual L2, a, b
//	L1: ...
func (b *Builder) foldBranchOverBranch() bool {
	changed := false
	for i := 0; i < len(b.instructions)-1; i++ {
		cond := b.instructions[i]
		if cond.deleted || !cond.Opcode.IsConditionalBranch() {
			continue
		}
		uncond := nextLive(b.instructions, i)
		if uncond == nil || uncond.deleted || uncond.Opcode != Branch {
			continue
		}
		condTarget := labelOperandOf(cond)
		// condTarget must be the label immediately following uncond.
		if !labelImmediatelyFollows(b.instructions, uncond, condTarget) {
			continue
		}
		l2 := branchTarget(uncond)
		if l2 == nil {
			continue
		}
		inverse := OpInfo(cond.Opcode).Inverse
		cond.Opcode = inverse
		setLabelOperand(cond, l2)
		uncond.deleted = true
		changed = true
	}
	return changed
}

func nextLive(instructions []*Instruction, from int) *Instruction {
	for i := from + 1; i < len(instructions); i++ {
		if !instructions[i].deleted {
			return instructions[i]
		}
	}
	return nil
}

func labelImmediatelyFollows(instructions []*Instruction, after *Instruction, l *Label) bool {
	seenAfter := false
	for _, ins := range instructions {
		if ins == after {
			seenAfter = true
			continue
		}
		if !seenAfter {
			continue
		}
		if ins.deleted {
			continue
		}
		if ins.Opcode == Label_ {
			return ins.Operands[0].Lbl == l
		}
		return false
	}
	return false
}

// dropFallthroughBranches deletes an unconditional Branch whose target is
// the instruction immediately following it (spec §4.3).
func (b *Builder) dropFallthroughBranches() bool {
	changed := false
	for i, ins := range b.instructions {
		target := branchTarget(ins)
		if target == nil {
			continue
		}
		next := nextLive(b.instructions, i)
		if next == nil || next.Opcode != Label_ {
			continue
		}
		if next.Operands[0].Lbl == target {
			ins.deleted = true
			changed = true
		}
	}
	return changed
}

// dropDeadTails deletes every instruction after an is_no_follow terminator,
// up to the next label (spec §4.3).
func (b *Builder) dropDeadTails() bool {
	changed := false
	dead := false
	for _, ins := range b.instructions {
		if ins.deleted {
			continue
		}
		if ins.Opcode == Label_ {
			dead = false
			continue
		}
		if dead {
			ins.deleted = true
			changed = true
			continue
		}
		if OpInfo(ins.Opcode).IsNoFollow {
			dead = true
		}
	}
	return changed
}

// dropUnreachableLabels deletes label pseudo-instructions that are not an
// extern label and are never referenced by any live operand (spec §4.3).
func (b *Builder) dropUnreachableLabels() bool {
	referenced := map[*Label]bool{}
	for _, ins := range b.instructions {
		if ins.deleted || ins.Opcode == Label_ {
			continue
		}
		for _, op := range ins.Operands {
			if op.Kind == OperandLabel {
				referenced[op.Lbl] = true
			}
		}
	}
	changed := false
	for _, ins := range b.instructions {
		if ins.deleted || ins.Opcode != Label_ {
			continue
		}
		l := ins.Operands[0].Lbl
		if l.IsExtern || referenced[l] {
			continue
		}
		ins.deleted = true
		changed = true
	}
	return changed
}

// compact removes deleted instructions from the backing slice, keeping the
// Builder's invariants simple between optimization passes (spec §4.3).
func (b *Builder) compact() {
	out := b.instructions[:0]
	for _, ins := range b.instructions {
		if !ins.deleted {
			out = append(out, ins)
		}
	}
	b.instructions = out
}
