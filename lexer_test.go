package main

import (
	"strings"
	"testing"
)

func TestLineReaderPositions(t *testing.T) {
	lr := newLineReader(strings.NewReader("ab\ncd"))

	type pos struct{ line, col int }
	var got []pos
	for {
		_, ok := lr.read()
		if !ok {
			break
		}
		got = append(got, pos{lr.curLine(), lr.curCol()})
	}

	want := []pos{{1, 1}, {1, 2}, {1, 3}, {2, 1}, {2, 2}}
	if len(got) != len(want) {
		t.Fatalf("got %d positions, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestLineReaderEOF(t *testing.T) {
	lr := newLineReader(strings.NewReader(""))
	if _, ok := lr.read(); ok {
		t.Fatal("read() on empty input should report EOF")
	}
}
