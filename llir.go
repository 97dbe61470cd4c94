package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// stackSize and stackMask implement spec.md §3's ring-stack invariant:
// STACK_SIZE = 65536 cells, and every index computed into the ring is
// masked with STACK_MASK = 65535 immediately after arithmetic.
const (
	stackSize = 65536
	stackMask = stackSize - 1
)

// block accumulates the textual instructions of one basic block. It
// mirrors the teacher's emit.go Out type: a buffer that things get
// written into, with VerboseMode tracing everything that goes in.
type block struct {
	label      string
	lines      []string
	terminated bool
}

func (b *block) emit(format string, args ...any) {
	if b.terminated {
		panic("xrfc: emit into terminated block " + b.label)
	}
	line := fmt.Sprintf(format, args...)
	b.lines = append(b.lines, line)
	if VerboseMode {
		fmt.Fprintf(os.Stderr, "  %s: %s\n", b.label, line)
	}
}

func (b *block) terminate(format string, args ...any) {
	b.emit(format, args...)
	b.terminated = true
}

// moduleBuilder assembles an LLIR module as plain text: a global ring
// stack, per-chunk-predicate visited globals, getchar/putchar
// declarations, and a single externally-linked main function made up of
// the blocks appended to it. Grounded on the teacher's emit.go Writer
// abstraction and xplshn-gbc's QBE backend, which both build their output
// IR with a plain string buffer rather than a heavyweight IR-builder
// library (no repo in the retrieved pack depends on one).
type moduleBuilder struct {
	moduleID    string
	blocks      []*block
	byLabel     map[string]*block
	visitedVars map[int]string
	tempCounter int
	blockCount  int
}

func newModuleBuilder() *moduleBuilder {
	return &moduleBuilder{
		moduleID:    uuid.New().String(),
		byLabel:     make(map[string]*block),
		visitedVars: make(map[int]string),
	}
}

// newBlock creates and registers a fresh basic block with a unique label
// derived from base.
func (m *moduleBuilder) newBlock(base string) *block {
	label := base
	if _, exists := m.byLabel[label]; exists {
		m.blockCount++
		label = fmt.Sprintf("%s.%d", base, m.blockCount)
	}
	b := &block{label: label}
	m.blocks = append(m.blocks, b)
	m.byLabel[label] = b
	return b
}

// temp allocates a fresh SSA register name, %0, %1, ....
func (m *moduleBuilder) temp() string {
	name := fmt.Sprintf("%%t%d", m.tempCounter)
	m.tempCounter++
	return name
}

// visitedGlobal returns the (creating if needed) global name backing the
// IgnoreFirst/IgnoreVisited predicate state for chunkIdx, one private i1
// global per chunk that contains such a predicate (spec.md §3's backend
// module invariant).
func (m *moduleBuilder) visitedGlobal(chunkIdx int) string {
	if name, ok := m.visitedVars[chunkIdx]; ok {
		return name
	}
	name := fmt.Sprintf("@visited_%d", chunkIdx)
	m.visitedVars[chunkIdx] = name
	return name
}

// Render assembles the whole module as text in module-skeleton order
// (spec.md §4.4): module-id comment, globals, declarations, then main.
func (m *moduleBuilder) Render() string {
	var out strings.Builder

	fmt.Fprintf(&out, "; module-id: %s\n", m.moduleID)
	fmt.Fprintf(&out, "@stack = private global [%d x i32] zeroinitializer\n", stackSize)

	for _, idx := range sortedKeys(m.visitedVars) {
		fmt.Fprintf(&out, "%s = private global i1 false\n", m.visitedVars[idx])
	}

	out.WriteString("declare i32 @getchar()\n")
	out.WriteString("declare i32 @putchar(i32)\n")
	out.WriteString("\n")
	out.WriteString("define i32 @main() {\n")

	for _, b := range m.blocks {
		fmt.Fprintf(&out, "%s:\n", b.label)
		for _, line := range b.lines {
			fmt.Fprintf(&out, "  %s\n", line)
		}
	}

	out.WriteString("}\n")
	return out.String()
}

// sortedKeys returns the chunk indices that have visited globals, in
// ascending order, so module output is deterministic.
func sortedKeys(m map[int]string) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
