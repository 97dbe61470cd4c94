package main

// value is a symbolic stack cell used only by the chunk optimizer's
// simulator (spec.md §4.2). It carries exactly one of:
//
//   - a known value (hasValue true): the cell's concrete contents
//   - an indexed origin (hasIndex true, hasValue false): "the index-th
//     value that was on the stack at chunk entry", transformed as
//     multiple*original + change
//   - neither: opaque, nothing is known about the cell
type value struct {
	hasValue bool
	val      uint32

	hasIndex bool
	index    uint

	change   int64
	multiple uint64
}

// valueFromIndex returns a value representing the index-th value popped
// from beneath the chunk's entry stack (1-indexed, per spec.md's pop
// underflow rule).
func valueFromIndex(index uint) value {
	return value{hasIndex: true, index: index, multiple: 1}
}

// valueFromKnown returns a value with a statically-known contents.
func valueFromKnown(v uint32) value {
	return value{hasValue: true, val: v}
}

// opaqueValue returns a value about which nothing is known.
func opaqueValue() value {
	return value{multiple: 1}
}

func (v value) isOpaque() bool {
	return !v.hasValue && !v.hasIndex
}

// add implements the value algebra's addition rule (spec.md §4.2):
// known+known sums concretely; self-add of the same indexed origin bumps
// the multiple; an indexed value plus a known value shifts the change;
// anything else collapses to opaque.
func (v value) add(w value) value {
	if v.hasValue {
		if w.hasValue {
			return valueFromKnown(v.val + w.val)
		}
		return opaqueValue()
	}
	if v.hasIndex {
		if w.hasIndex && w.index == v.index {
			out := v
			out.multiple += w.multiple
			return out
		}
		if w.hasValue {
			out := v
			out.change += int64(w.val)
			return out
		}
	}
	return opaqueValue()
}

// dec implements the value algebra's decrement rule under the O1
// discipline chosen in DESIGN.md: decrementing a known value of 0 goes
// fully opaque, rather than leaving a drifting change on an
// already-opaque value.
func (v value) dec() value {
	if v.hasValue {
		if v.val > 0 {
			return valueFromKnown(v.val - 1)
		}
		return opaqueValue()
	}
	return opaqueValue()
}

// sub implements |a-b| for two known values, per the O2 decision: this
// reads both operands, unlike the original's buggy self-subtraction.
// Any non-known operand collapses the result to opaque.
func (v value) sub(w value) value {
	if v.hasValue && w.hasValue {
		if v.val > w.val {
			return valueFromKnown(v.val - w.val)
		}
		return valueFromKnown(w.val - v.val)
	}
	return opaqueValue()
}

// isIdentitySecond reports whether v is exactly the caller's pre-entry
// second stack slot, unmodified: Indexed with index 1 and no change.
// This is the condition spec.md §4.2 synthesis step 6 requires to leave a
// fused chunk's second slot alone.
func (v value) isIdentitySecond() bool {
	return !v.hasValue && v.hasIndex && v.index == 1 && v.change == 0 && v.multiple == 1
}
