package main

import "fmt"

// codegenCtx carries the state shared across the lowering of every chunk
// in a program: the module being built and the per-chunk entry blocks
// used both for direct branches (known Next) and for the shared dispatch
// switch (spec.md §4.4).
type codegenCtx struct {
	m             *moduleBuilder
	chunks        []Chunk
	blocksByChunk []*block
}

// GenerateLLIR lowers a fully-optimized chunk program to a textual LLIR
// module, following spec.md §4.4's CFG construction: a global ring
// stack, one basic block per chunk, a shared "stack-jump" dispatch block
// for chunks without a statically-known successor, and an "unreachable"
// stack-error trap as the dispatch's default case.
func GenerateLLIR(chunks []Chunk) string {
	m := newModuleBuilder()
	cg := &codegenCtx{m: m, chunks: chunks}

	start := m.newBlock("start")
	start.emit("%%stack_top = alloca i64")
	start.emit("store i64 0, ptr %%stack_top")
	start.emit("%%stack_bottom = alloca i64")
	start.emit("store i64 %d, ptr %%stack_bottom", stackMask)
	start.emit("%%top_value = alloca i32")
	start.emit("store i32 0, ptr %%top_value")

	if len(chunks) == 0 {
		start.terminate("ret i32 0")
		return m.Render()
	}
	start.terminate("br label %%chunk_0")

	cg.blocksByChunk = make([]*block, len(chunks))
	for i := range chunks {
		cg.blocksByChunk[i] = m.newBlock(fmt.Sprintf("chunk_%d", i))
	}

	for i, c := range chunks {
		cg.lowerCommands(cg.blocksByChunk[i], c.Commands, i, c.Next, nil)
	}

	cg.emitDispatch()

	return m.Render()
}

// emitDispatch builds the shared "stack-jump" block that every chunk
// without a statically-known successor branches to: it loads top_value
// and switches on it to the matching chunk_N block, trapping into
// "stack-error" (unreachable) if the value is out of range.
func (cg *codegenCtx) emitDispatch() {
	dispatch := cg.m.newBlock("stack-jump")
	t := cg.m.temp()
	dispatch.emit("%s = load i32, ptr %%top_value", t)

	cases := ""
	for i := range cg.chunks {
		cases += fmt.Sprintf("    i32 %d, label %%chunk_%d\n", i, i)
	}
	dispatch.terminate("switch i32 %s, label %%stack-error [\n%s  ]", t, cases)

	trap := cg.m.newBlock("stack-error")
	trap.terminate("unreachable")
}

// terminateNormal closes out a block that fell off the end of its
// command list (no Exit, no Jump): any pending first-visit predicate
// globals are stored before branching to the chunk's known successor,
// or to the shared dispatch block when the successor isn't statically
// known (spec.md §4.4's chunk terminator policy).
func (cg *codegenCtx) terminateNormal(b *block, next *int, pending []string) {
	for _, g := range pending {
		b.emit("store i1 true, ptr %s", g)
	}
	if next != nil && *next >= 0 && *next < len(cg.chunks) {
		b.terminate("br label %%chunk_%d", *next)
	} else {
		b.terminate("br label %%stack-jump")
	}
}

// lowerCommands lowers a (sub-)chunk's command list into b, recursing
// into fresh blocks whenever an IgnoreFirst/IgnoreVisited predicate
// splits execution. pending accumulates the visited-globals that must be
// stored just before this particular execution path's eventual
// terminator, per spec.md §4.4's first-visit bookkeeping; Exit bypasses
// that bookkeeping entirely, since it terminates the function outright.
func (cg *codegenCtx) lowerCommands(b *block, cmds []Command, chunkIdx int, next *int, pending []string) {
	for i := 0; i < len(cmds); i++ {
		cmd := cmds[i]

		switch cmd.Op {
		case OpInput:
			cg.emitInput(b)
		case OpOutput:
			cg.emitOutput(b)
		case OpPop:
			cg.pop(b)
		case OpDup:
			cg.emitDup(b)
		case OpSwap:
			cg.emitSwap(b)
		case OpInc:
			cg.emitIncDec(b, 1)
		case OpDec:
			cg.emitIncDec(b, -1)
		case OpAdd:
			cg.emitAdd(b)
		case OpSub:
			cg.emitSub(b)
		case OpBottom:
			cg.emitBottom(b)
		case OpNop, OpRandomize:
			// No runtime effect; Randomize lowers as an unconditional no-op.
		case OpExit:
			b.terminate("ret i32 0")
			return
		case OpJump:
			cg.terminateNormal(b, next, pending)
			return
		case OpIgnoreFirst, OpIgnoreVisited:
			cg.lowerPredicate(b, cmds, i, cmd.Op, chunkIdx, next, pending)
			return
		case OpAddToSecond:
			cg.emitAddToSecond(b, cmd.Payload)
		case OpMultiplySecond:
			cg.emitMultiplySecond(b, cmd.Payload)
		case OpPopSecondValue:
			cg.emitPopSecondValue(b)
		case OpPushSecondValue:
			cg.emitPushSecondValue(b, cmd.Payload)
		case OpPushValueToBottom:
			cg.emitPushValueToBottom(b, cmd.Payload)
		case OpSetSecondValue:
			cg.emitSetSecondValue(b, cmd.Payload)
		case OpSetTop:
			cg.emitSetTop(b, cmd.Payload)
		}
	}

	cg.terminateNormal(b, next, pending)
}

// lowerPredicate implements the IgnoreFirst/IgnoreVisited split described
// in spec.md §4.4: the remaining commands after the predicate split into
// next_sub (i+1:) and skip_sub (i+2:), and a private i1 global records
// whether this particular predicate has already fired once before.
func (cg *codegenCtx) lowerPredicate(b *block, cmds []Command, i int, op Opcode, chunkIdx int, next *int, pending []string) {
	var nextSub, skipSub []Command
	if i+1 < len(cmds) {
		nextSub = cmds[i+1:]
	}
	if i+2 < len(cmds) {
		skipSub = cmds[i+2:]
	}

	if len(nextSub) == 0 && len(skipSub) == 0 {
		// Predicate is the last command with no tail to split: no-op.
		cg.terminateNormal(b, next, pending)
		return
	}

	global := cg.m.visitedGlobal(chunkIdx)
	vtemp := cg.m.temp()
	b.emit("%s = load i1, ptr %s", vtemp, global)

	visitedBlock := cg.m.newBlock(fmt.Sprintf("chunk_%d_visited", chunkIdx))
	freshBlock := cg.m.newBlock(fmt.Sprintf("chunk_%d_fresh", chunkIdx))
	b.terminate("br i1 %s, label %%%s, label %%%s", vtemp, visitedBlock.label, freshBlock.label)

	// IgnoreFirst: the first execution (visited == false) takes skip_sub,
	// and that is the path which must record the visit. IgnoreVisited: the
	// first execution (visited == false) takes next_sub instead.
	if op == OpIgnoreFirst {
		cg.lowerCommands(visitedBlock, nextSub, chunkIdx, next, pending)
		cg.lowerCommands(freshBlock, skipSub, chunkIdx, next, append(append([]string{}, pending...), global))
	} else {
		cg.lowerCommands(visitedBlock, skipSub, chunkIdx, next, pending)
		cg.lowerCommands(freshBlock, nextSub, chunkIdx, next, append(append([]string{}, pending...), global))
	}
}

func (cg *codegenCtx) pop(b *block) {
	st := cg.m.temp()
	b.emit("%s = load i64, ptr %%stack_top", st)
	st2 := cg.m.temp()
	b.emit("%s = sub i64 %s, 1", st2, st)
	st3 := cg.m.temp()
	b.emit("%s = and i64 %s, %d", st3, st2, stackMask)
	ptr := cg.m.temp()
	b.emit("%s = getelementptr inbounds [%d x i32], ptr @stack, i64 0, i64 %s", ptr, stackSize, st3)
	val := cg.m.temp()
	b.emit("%s = load i32, ptr %s", val, ptr)
	b.emit("store i32 %s, ptr %%top_value", val)
	b.emit("store i64 %s, ptr %%stack_top", st3)
}

func (cg *codegenCtx) push(b *block, valueExpr string) {
	old := cg.m.temp()
	b.emit("%s = load i32, ptr %%top_value", old)
	st := cg.m.temp()
	b.emit("%s = load i64, ptr %%stack_top", st)
	ptr := cg.m.temp()
	b.emit("%s = getelementptr inbounds [%d x i32], ptr @stack, i64 0, i64 %s", ptr, stackSize, st)
	b.emit("store i32 %s, ptr %s", old, ptr)
	b.emit("store i32 %s, ptr %%top_value", valueExpr)
	st2 := cg.m.temp()
	b.emit("%s = add i64 %s, 1", st2, st)
	st3 := cg.m.temp()
	b.emit("%s = and i64 %s, %d", st3, st2, stackMask)
	b.emit("store i64 %s, ptr %%stack_top", st3)
}

func (cg *codegenCtx) emitInput(b *block) {
	t := cg.m.temp()
	b.emit("%s = call i32 @getchar()", t)
	isEOF := cg.m.temp()
	b.emit("%s = icmp eq i32 %s, -1", isEOF, t)
	v := cg.m.temp()
	b.emit("%s = select i1 %s, i32 0, i32 %s", v, isEOF, t)
	cg.push(b, v)
}

func (cg *codegenCtx) emitOutput(b *block) {
	t := cg.m.temp()
	b.emit("%s = load i32, ptr %%top_value", t)
	b.emit("call i32 @putchar(i32 %s)", t)
	cg.pop(b)
}

func (cg *codegenCtx) emitDup(b *block) {
	t := cg.m.temp()
	b.emit("%s = load i32, ptr %%top_value", t)
	cg.push(b, t)
}

func (cg *codegenCtx) emitSwap(b *block) {
	st := cg.m.temp()
	b.emit("%s = load i64, ptr %%stack_top", st)
	idx1 := cg.m.temp()
	b.emit("%s = sub i64 %s, 1", idx1, st)
	idx := cg.m.temp()
	b.emit("%s = and i64 %s, %d", idx, idx1, stackMask)
	ptr := cg.m.temp()
	b.emit("%s = getelementptr inbounds [%d x i32], ptr @stack, i64 0, i64 %s", ptr, stackSize, idx)
	second := cg.m.temp()
	b.emit("%s = load i32, ptr %s", second, ptr)
	top := cg.m.temp()
	b.emit("%s = load i32, ptr %%top_value", top)
	b.emit("store i32 %s, ptr %s", top, ptr)
	b.emit("store i32 %s, ptr %%top_value", second)
}

func (cg *codegenCtx) emitIncDec(b *block, delta int) {
	top := cg.m.temp()
	b.emit("%s = load i32, ptr %%top_value", top)
	newVal := cg.m.temp()
	b.emit("%s = add i32 %s, %d", newVal, top, delta)
	b.emit("store i32 %s, ptr %%top_value", newVal)
}

func (cg *codegenCtx) emitAdd(b *block) {
	a := cg.m.temp()
	b.emit("%s = load i32, ptr %%top_value", a)
	cg.pop(b)
	second := cg.m.temp()
	b.emit("%s = load i32, ptr %%top_value", second)
	sum := cg.m.temp()
	b.emit("%s = add i32 %s, %s", sum, a, second)
	b.emit("store i32 %s, ptr %%top_value", sum)
}

// emitSub computes |a - b|, matching spec.md §4.1's O2 resolution
// (original_source/src/stack-value.cpp's genuine subtract, not the
// self-subtraction bug present in the same file's Dec path).
func (cg *codegenCtx) emitSub(b *block) {
	a := cg.m.temp()
	b.emit("%s = load i32, ptr %%top_value", a)
	cg.pop(b)
	second := cg.m.temp()
	b.emit("%s = load i32, ptr %%top_value", second)
	d1 := cg.m.temp()
	b.emit("%s = sub i32 %s, %s", d1, a, second)
	d2 := cg.m.temp()
	b.emit("%s = sub i32 %s, %s", d2, second, a)
	cmp := cg.m.temp()
	b.emit("%s = icmp ugt i32 %s, %s", cmp, a, second)
	res := cg.m.temp()
	b.emit("%s = select i1 %s, i32 %s, i32 %s", res, cmp, d1, d2)
	b.emit("store i32 %s, ptr %%top_value", res)
}

func (cg *codegenCtx) emitBottom(b *block) {
	t := cg.m.temp()
	b.emit("%s = load i32, ptr %%top_value", t)
	cg.pop(b)
	sb := cg.m.temp()
	b.emit("%s = load i64, ptr %%stack_bottom", sb)
	ptr := cg.m.temp()
	b.emit("%s = getelementptr inbounds [%d x i32], ptr @stack, i64 0, i64 %s", ptr, stackSize, sb)
	b.emit("store i32 %s, ptr %s", t, ptr)
	sb2 := cg.m.temp()
	b.emit("%s = sub i64 %s, 1", sb2, sb)
	sb3 := cg.m.temp()
	b.emit("%s = and i64 %s, %d", sb3, sb2, stackMask)
	b.emit("store i64 %s, ptr %%stack_bottom", sb3)
}

func (cg *codegenCtx) emitAddToSecond(b *block, k int64) {
	ptr, _ := cg.secondPtr(b)
	v := cg.m.temp()
	b.emit("%s = load i32, ptr %s", v, ptr)
	v2 := cg.m.temp()
	b.emit("%s = add i32 %s, %d", v2, v, k)
	b.emit("store i32 %s, ptr %s", v2, ptr)
}

func (cg *codegenCtx) emitMultiplySecond(b *block, factor int64) {
	ptr, _ := cg.secondPtr(b)
	v := cg.m.temp()
	b.emit("%s = load i32, ptr %s", v, ptr)
	v2 := cg.m.temp()
	b.emit("%s = mul i32 %s, %d", v2, v, factor)
	b.emit("store i32 %s, ptr %s", v2, ptr)
}

func (cg *codegenCtx) emitSetSecondValue(b *block, v int64) {
	ptr, _ := cg.secondPtr(b)
	b.emit("store i32 %d, ptr %s", v, ptr)
}

// secondPtr computes the ring pointer to the slot directly below
// top_value, (stack_top - 1) & STACK_MASK, shared by the three extended
// opcodes that address the second stack slot without popping it.
func (cg *codegenCtx) secondPtr(b *block) (ptr, idx string) {
	st := cg.m.temp()
	b.emit("%s = load i64, ptr %%stack_top", st)
	idx1 := cg.m.temp()
	b.emit("%s = sub i64 %s, 1", idx1, st)
	idx = cg.m.temp()
	b.emit("%s = and i64 %s, %d", idx, idx1, stackMask)
	ptr = cg.m.temp()
	b.emit("%s = getelementptr inbounds [%d x i32], ptr @stack, i64 0, i64 %s", ptr, stackSize, idx)
	return ptr, idx
}

func (cg *codegenCtx) emitPopSecondValue(b *block) {
	st := cg.m.temp()
	b.emit("%s = load i64, ptr %%stack_top", st)
	st2 := cg.m.temp()
	b.emit("%s = sub i64 %s, 1", st2, st)
	st3 := cg.m.temp()
	b.emit("%s = and i64 %s, %d", st3, st2, stackMask)
	b.emit("store i64 %s, ptr %%stack_top", st3)
}

func (cg *codegenCtx) emitPushSecondValue(b *block, v int64) {
	st := cg.m.temp()
	b.emit("%s = load i64, ptr %%stack_top", st)
	ptr := cg.m.temp()
	b.emit("%s = getelementptr inbounds [%d x i32], ptr @stack, i64 0, i64 %s", ptr, stackSize, st)
	b.emit("store i32 %d, ptr %s", v, ptr)
	st2 := cg.m.temp()
	b.emit("%s = add i64 %s, 1", st2, st)
	st3 := cg.m.temp()
	b.emit("%s = and i64 %s, %d", st3, st2, stackMask)
	b.emit("store i64 %s, ptr %%stack_top", st3)
}

func (cg *codegenCtx) emitPushValueToBottom(b *block, v int64) {
	sb := cg.m.temp()
	b.emit("%s = load i64, ptr %%stack_bottom", sb)
	ptr := cg.m.temp()
	b.emit("%s = getelementptr inbounds [%d x i32], ptr @stack, i64 0, i64 %s", ptr, stackSize, sb)
	b.emit("store i32 %d, ptr %s", v, ptr)
	sb2 := cg.m.temp()
	b.emit("%s = sub i64 %s, 1", sb2, sb)
	sb3 := cg.m.temp()
	b.emit("%s = and i64 %s, %d", sb3, sb2, stackMask)
	b.emit("store i64 %s, ptr %%stack_bottom", sb3)
}

func (cg *codegenCtx) emitSetTop(b *block, v int64) {
	b.emit("store i32 %d, ptr %%top_value", v)
}
