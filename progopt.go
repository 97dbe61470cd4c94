package main

// isFusable reports whether every command in chunk is one of the five
// pure top/second-manipulating extended opcodes, per spec.md §4.3's
// fusability predicate.
func isFusable(chunk Chunk) bool {
	if chunk.Next == nil {
		return false
	}
	for _, cmd := range chunk.Commands {
		switch cmd.Op {
		case OpAddToSecond, OpMultiplySecond, OpPushSecondValue, OpSetSecondValue, OpSetTop:
			// fusable
		default:
			return false
		}
	}
	return true
}

// condenseSetTop scans cmds right to left, keeping only the right-most
// SetTop and dropping any earlier ones, since only the final SetTop
// affects the successor dispatch (spec.md §4.3 step 4).
func condenseSetTop(cmds []Command) []Command {
	foundSetTop := false
	out := make([]Command, 0, len(cmds))
	// Walk right to left, then reverse, to match the algorithm's own
	// traversal direction while keeping the result in source order.
	for i := len(cmds) - 1; i >= 0; i-- {
		cmd := cmds[i]
		if cmd.Op == OpSetTop {
			if foundSetTop {
				continue
			}
			foundSetTop = true
		}
		out = append(out, cmd)
	}
	for l, r := 0, len(out)-1; l < r; l, r = l+1, r-1 {
		out[l], out[r] = out[r], out[l]
	}
	return out
}

// fuseChunk implements spec.md §4.3's per-chunk fusion algorithm: walk the
// chain of fusable successors starting at chunks[i], concatenating their
// commands, until hitting a non-fusable chunk (the chain's tail) or a
// fusion loop.
func fuseChunk(chunks []Chunk, i int) Chunk {
	var out Chunk
	cursor := i
	visited := make(map[int]bool)

	for cursor >= 0 && cursor < len(chunks) && isFusable(chunks[cursor]) {
		if visited[cursor] {
			// Infinite fusion loop: emit the original chunk unchanged.
			return chunks[i].clone()
		}
		visited[cursor] = true

		out.Commands = append(out.Commands, chunks[cursor].Commands...)
		next := *chunks[cursor].Next
		out.Next = &next
		cursor = next
	}

	if len(out.Commands) == 0 {
		return chunks[i].clone()
	}

	out.Line = chunks[i].Line
	out.Col = chunks[i].Col
	out.Commands = condenseSetTop(out.Commands)
	return out
}

// OptimizeProgram fuses chains of pure top/second-manipulating chunks
// into single chunks whose successor is the chain's tail, per spec.md
// §4.3. The result always has the same number of chunks as the input; no
// chunk is deleted, only its body and Next are rewritten.
func OptimizeProgram(chunks []Chunk) []Chunk {
	out := make([]Chunk, len(chunks))
	for i := range chunks {
		out[i] = fuseChunk(chunks, i)
	}
	return out
}
