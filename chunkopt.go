package main

// simulator runs the abstract stack simulation described in spec.md
// §4.2. It mirrors original_source/src/stack-simulator.cpp's
// StackSimulator, translated into idiomatic Go: a slice-backed abstract
// stack, a queue of values pushed to the real stack's bottom via Bottom,
// and the max-popped/had-io bookkeeping the synthesis step needs.
type simulator struct {
	origIndex  uint
	maxPopped  uint
	hadIO      bool
	stack      []value
	bottomVals []value
}

// newSimulator seeds the abstract stack with a single known-value entry
// equal to the chunk's own index, since XRF's invariant guarantees the
// real top of stack equals the current chunk index at entry.
func newSimulator(chunkIndex uint) *simulator {
	return &simulator{
		origIndex: chunkIndex,
		stack:     []value{valueFromKnown(uint32(chunkIndex))},
	}
}

// pop returns the top of the abstract stack, or a fresh Indexed value
// keyed by an incremented maxPopped if the chunk has simulated past its
// entry stack's known contents.
func (s *simulator) pop() value {
	if n := len(s.stack); n > 0 {
		v := s.stack[n-1]
		s.stack = s.stack[:n-1]
		return v
	}
	s.maxPopped++
	return valueFromIndex(s.maxPopped)
}

func (s *simulator) push(v value) {
	s.stack = append(s.stack, v)
}

func (s *simulator) doAdd() {
	a := s.pop()
	b := s.pop()
	s.push(a.add(b))
}

func (s *simulator) doSub() {
	a := s.pop()
	b := s.pop()
	s.push(a.sub(b))
}

func (s *simulator) doDec() {
	s.push(s.pop().dec())
}

func (s *simulator) doInc() {
	s.push(s.pop().add(valueFromKnown(1)))
}

func (s *simulator) doDup() {
	v := s.pop()
	s.push(v)
	s.push(v)
}

func (s *simulator) doSwap() {
	a := s.pop()
	b := s.pop()
	s.push(a)
	s.push(b)
}

func (s *simulator) doInput() {
	s.push(opaqueValue())
	s.hadIO = true
}

func (s *simulator) doOutput() {
	s.pop()
	s.hadIO = true
}

func (s *simulator) doPop() {
	s.pop()
}

func (s *simulator) doBottom() {
	s.bottomVals = append(s.bottomVals, s.pop())
}

// top returns the current abstract top of stack without consuming it.
func (s *simulator) top() value {
	v := s.pop()
	s.push(v)
	return v
}

func allKnown(vs []value) bool {
	for _, v := range vs {
		if !v.hasValue {
			return false
		}
	}
	return true
}

// canSynthesize implements spec.md §4.2's six synthesis preconditions.
func (s *simulator) canSynthesize() bool {
	if s.hadIO || s.maxPopped > 1 || !allKnown(s.bottomVals) {
		return false
	}
	n := len(s.stack)
	if n < 1 || n > 2 {
		return false
	}
	if !s.stack[n-1].hasValue {
		return false
	}
	if n == 2 {
		second := s.stack[0]
		if !second.hasValue && !second.isIdentitySecond() {
			return false
		}
	}
	return true
}

// synthesize builds the condensed extended-opcode command sequence,
// following spec.md §4.2's synthesis ordering exactly.
func (s *simulator) synthesize() []Command {
	var out []Command

	for _, v := range s.bottomVals {
		out = append(out, Command{Op: OpPushValueToBottom, Payload: int64(v.val)})
	}

	newTop := s.stack[len(s.stack)-1]
	if newTop.val != uint32(s.origIndex) {
		out = append(out, Command{Op: OpSetTop, Payload: int64(newTop.val)})
	}

	switch len(s.stack) {
	case 2:
		second := s.stack[0]
		switch {
		case second.hasValue && s.maxPopped == 0:
			out = append(out, Command{Op: OpPushSecondValue, Payload: int64(second.val)})
		case second.hasValue && s.maxPopped == 1:
			out = append(out, Command{Op: OpSetSecondValue, Payload: int64(second.val)})
		case second.multiple > 1:
			out = append(out, Command{Op: OpMultiplySecond, Payload: int64(second.multiple)})
		case second.change != 0:
			out = append(out, Command{Op: OpAddToSecond, Payload: second.change})
		}
	case 1:
		if s.maxPopped == 1 {
			out = append(out, Command{Op: OpPopSecondValue})
		}
	}

	return out
}

// optimizeChunk runs the symbolic simulator over a single chunk's
// commands (spec.md §4.2). It never mutates the input chunk; it returns
// a new Chunk with (possibly) rewritten commands and a populated Next.
// Source position is always preserved.
func optimizeChunk(chunk Chunk, index uint) Chunk {
	out := chunk.clone()

	sim := newSimulator(index)
	optimizable := true

	for _, cmd := range chunk.Commands {
		switch cmd.Op {
		case OpAdd:
			sim.doAdd()
		case OpBottom:
			sim.doBottom()
		case OpOutput:
			sim.doOutput()
		case OpPop:
			sim.doPop()
		case OpDec:
			sim.doDec()
		case OpDup:
			sim.doDup()
		case OpInc:
			sim.doInc()
		case OpInput:
			sim.doInput()
		case OpJump:
			// Simulation of this chunk ends successfully right here;
			// the optimizer still reads the resulting top below.
		case OpNop:
			// no effect
		case OpSub:
			sim.doSub()
		case OpSwap:
			sim.doSwap()
		case OpIgnoreFirst, OpExit, OpIgnoreVisited, OpRandomize:
			optimizable = false
		}

		if !optimizable || cmd.Op == OpJump {
			break
		}
	}

	if !optimizable {
		return out
	}

	if top := sim.top(); top.hasValue {
		idx := int(top.val)
		out.Next = &idx
	}

	if sim.canSynthesize() {
		out.Commands = sim.synthesize()
	}

	return out
}

// OptimizeChunks runs optimizeChunk over every chunk in the program
// independently, as spec.md §4.2's per-chunk optimizer pass.
func OptimizeChunks(chunks []Chunk) []Chunk {
	out := make([]Chunk, len(chunks))
	for i, c := range chunks {
		out[i] = optimizeChunk(c, uint(i))
	}
	return out
}
