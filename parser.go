package main

import (
	"fmt"
	"io"
)

// ParseError is a single diagnostic produced while parsing an XRF source
// file, matching spec.md §6's "Error on line L, column C: MSG" format.
type ParseError struct {
	Line    int
	Col     int
	Message string
}

func (e ParseError) Error() string {
	return fmt.Sprintf("Error on line %d, column %d: %s", e.Line, e.Col, e.Message)
}

// maxParseErrors bounds the number of diagnostics collected before
// parsing gives up, per spec.md §6.
const maxParseErrors = 100

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	default:
		return false
	}
}

// Parse reads an XRF source from r and returns either a chunk list (in
// which every chunk has exactly five primitive commands, satisfying
// parser totality per spec.md §8 property 1) or a non-empty error list.
func Parse(r io.Reader) ([]Chunk, []ParseError) {
	lr := newLineReader(r)
	var chunks []Chunk
	var errs []ParseError

	for {
		b, ok := lr.read()
		if !ok {
			break
		}
		if isSpace(b) {
			continue
		}

		chunk, chunkErrs := parseChunk(lr, b)
		errs = append(errs, chunkErrs...)
		if len(chunkErrs) == 0 {
			chunks = append(chunks, chunk)
		}
		if len(errs) >= maxParseErrors {
			errs = append(errs, ParseError{Message: "Too many errors, quitting."})
			break
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return chunks, nil
}

// parseChunk consumes one whitespace-delimited run of characters starting
// with first (already read from lr) and interprets it as a chunk. It
// mirrors original_source/src/parser.cpp's parseChunk: every character in
// the run must be a valid hex digit, and the run's length must be exactly
// commandsPerChunk.
func parseChunk(lr *lineReader, first byte) (Chunk, []ParseError) {
	chunk := Chunk{Line: lr.curLine(), Col: lr.curCol()}
	var errs []ParseError

	b := first
	for {
		if op, ok := commandFromChar(b); ok {
			chunk.Commands = append(chunk.Commands, Command{Op: op})
		} else {
			errs = append(errs, ParseError{
				Line:    lr.curLine(),
				Col:     lr.curCol(),
				Message: fmt.Sprintf("Invalid command character: %c", b),
			})
		}

		next, ok := lr.read()
		if !ok || isSpace(next) {
			break
		}
		b = next
	}

	switch {
	case len(chunk.Commands) < commandsPerChunk:
		errs = append(errs, ParseError{
			Line:    chunk.Line,
			Col:     chunk.Col,
			Message: "Chunk doesn't have enough commands.",
		})
	case len(chunk.Commands) > commandsPerChunk:
		errs = append(errs, ParseError{
			Line:    chunk.Line,
			Col:     chunk.Col,
			Message: "Chunk has too many commands.",
		})
	}

	return chunk, errs
}
