package main

import (
	"strings"
	"testing"
)

func TestGenerateLLIRModuleSkeleton(t *testing.T) {
	chunks := []Chunk{
		{Commands: []Command{{Op: OpExit}}},
	}
	out := GenerateLLIR(chunks)

	for _, want := range []string{
		"; module-id: ",
		"@stack = private global [65536 x i32] zeroinitializer",
		"declare i32 @getchar()",
		"declare i32 @putchar(i32)",
		"define i32 @main() {",
		"chunk_0:",
		"ret i32 0",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("module missing %q:\n%s", want, out)
		}
	}
}

func TestGenerateLLIRKnownNextShortcutsDispatch(t *testing.T) {
	next := 1
	chunks := []Chunk{
		{Commands: []Command{{Op: OpNop}}, Next: &next},
		{Commands: []Command{{Op: OpExit}}},
	}
	out := GenerateLLIR(chunks)

	if !strings.Contains(out, "br label %chunk_1") {
		t.Errorf("chunk with known Next should branch directly, got:\n%s", out)
	}
}

func TestGenerateLLIRFallsBackToDispatch(t *testing.T) {
	chunks := []Chunk{
		{Commands: []Command{{Op: OpNop}}},
	}
	out := GenerateLLIR(chunks)

	for _, want := range []string{"stack-jump:", "stack-error:", "unreachable", "switch i32"} {
		if !strings.Contains(out, want) {
			t.Errorf("module missing dispatch fragment %q:\n%s", want, out)
		}
	}
}

func TestGenerateLLIREmptyProgram(t *testing.T) {
	out := GenerateLLIR(nil)
	if !strings.Contains(out, "ret i32 0") {
		t.Errorf("empty program should still produce a valid main, got:\n%s", out)
	}
}

func TestGenerateLLIRIgnoreFirstSplitsAndRecordsVisit(t *testing.T) {
	// skip_sub ([Nop, Nop]) falls off the end into terminateNormal, so the
	// visited-flag store is actually reachable (unlike a skip_sub ending in
	// Exit, which bypasses that bookkeeping entirely per spec.md §4.4).
	chunks := []Chunk{
		{Commands: []Command{{Op: OpIgnoreFirst}, {Op: OpNop}, {Op: OpNop}, {Op: OpNop}}},
	}
	out := GenerateLLIR(chunks)

	for _, want := range []string{
		"@visited_0 = private global i1 false",
		"load i1, ptr @visited_0",
		"chunk_0_visited:",
		"chunk_0_fresh:",
		"store i1 true, ptr @visited_0",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("IgnoreFirst lowering missing %q:\n%s", want, out)
		}
	}
}

// TestGenerateLLIRIgnoreFirstExitSkipsVisitedStore covers the opposite
// case: when the first-visit path ends in Exit, the function returns
// before terminateNormal ever runs, so the visited flag is never stored
// (spec.md §4.4: "Exit terminates earlier with ret 0").
func TestGenerateLLIRIgnoreFirstExitSkipsVisitedStore(t *testing.T) {
	chunks := []Chunk{
		{Commands: []Command{{Op: OpIgnoreFirst}, {Op: OpNop}, {Op: OpExit}}},
	}
	out := GenerateLLIR(chunks)

	if strings.Contains(out, "store i1 true, ptr @visited_0") {
		t.Errorf("Exit on the first-visit path should bypass the visited-flag store, got:\n%s", out)
	}
}

func TestGenerateLLIRInputSubstitutesZeroOnEOF(t *testing.T) {
	chunks := []Chunk{
		{Commands: []Command{{Op: OpInput}, {Op: OpExit}}},
	}
	out := GenerateLLIR(chunks)

	for _, want := range []string{"call i32 @getchar()", "icmp eq i32", ", -1", "select i1"} {
		if !strings.Contains(out, want) {
			t.Errorf("Input lowering missing EOF substitution fragment %q:\n%s", want, out)
		}
	}
}

func TestGenerateLLIROutOfRangeNextFallsBackToDispatch(t *testing.T) {
	next := 1 // only chunk 0 exists; Next points past the end of the program
	chunks := []Chunk{
		{Commands: []Command{{Op: OpNop}}, Next: &next},
	}
	out := GenerateLLIR(chunks)

	if strings.Contains(out, "br label %chunk_1") {
		t.Errorf("out-of-range Next should not branch directly to a nonexistent block:\n%s", out)
	}
	if !strings.Contains(out, "br label %stack-jump") {
		t.Errorf("out-of-range Next should fall back to the dispatch block:\n%s", out)
	}
}

func TestGenerateLLIRRingMaskAfterStackTopArithmetic(t *testing.T) {
	chunks := []Chunk{
		{Commands: []Command{{Op: OpInput}, {Op: OpExit}}},
	}
	out := GenerateLLIR(chunks)

	// Every value stored into stack_top or stack_bottom must itself be the
	// result of an "and i64 ..., 65535" mask, regardless of how many
	// instructions separate the two (spec.md §8 property 6).
	maskedRegs := map[string]bool{}
	for _, line := range strings.Split(out, "\n") {
		trimmed := strings.TrimSpace(line)
		if fields := strings.Fields(trimmed); len(fields) >= 4 && fields[1] == "=" && fields[2] == "and" {
			maskedRegs[fields[0]] = true
		}
	}

	for _, line := range strings.Split(out, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "store i64") {
			continue
		}
		if !strings.Contains(trimmed, "ptr %stack_top") && !strings.Contains(trimmed, "ptr %stack_bottom") {
			continue
		}
		fields := strings.Fields(trimmed)
		reg := strings.TrimSuffix(fields[2], ",")
		if !strings.HasPrefix(reg, "%") {
			continue // literal initial seeding, not computed ring arithmetic
		}
		if !maskedRegs[reg] {
			t.Errorf("store %q writes an unmasked value into the ring index", trimmed)
		}
	}
}
