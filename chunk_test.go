package main

import (
	"strings"
	"testing"
)

func TestChunkCloneDoesNotAlias(t *testing.T) {
	next := 5
	orig := Chunk{
		Commands: []Command{{Op: OpNop}},
		Line:     1,
		Col:      1,
		Next:     &next,
	}

	clone := orig.clone()
	clone.Commands[0] = Command{Op: OpJump}
	*clone.Next = 99

	if orig.Commands[0].Op != OpNop {
		t.Errorf("cloning leaked a write back into the original Commands slice")
	}
	if *orig.Next != 5 {
		t.Errorf("cloning leaked a write back into the original Next pointer")
	}
}

func TestDumpChunks(t *testing.T) {
	next := 1
	chunks := []Chunk{
		{Commands: []Command{{Op: OpSetTop, Payload: 3}}, Line: 1, Col: 1, Next: &next},
	}
	out := DumpChunks(chunks)
	if out == "" {
		t.Fatal("DumpChunks returned empty output")
	}
	for _, want := range []string{"chunk 0", "SetTop 3", "-> 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("DumpChunks output %q missing fragment %q", out, want)
		}
	}
}
