package core

import "strings"

// FocusMove is the navigation intent produced by a code entry edit.
type FocusMove int

const (
	FocusStay FocusMove = iota
	FocusNext
	FocusPrev
	FocusFirst
)

func (m FocusMove) String() string {
	switch m {
	case FocusNext:
		return "next"
	case FocusPrev:
		return "prev"
	case FocusFirst:
		return "first"
	default:
		return "stay"
	}
}

// FocusDirective tells the UI which cell should hold focus after an edit.
type FocusDirective struct {
	Move  FocusMove
	Index int
}

// CodeEntry is the per-cell OTP buffer. It is a value type: every edit
// returns a new buffer and leaves the receiver untouched.
type CodeEntry struct {
	digits []string
	focus  int
}

// NewCodeEntry returns an empty buffer with length cells.
func NewCodeEntry(length int) CodeEntry {
	if length <= 0 {
		length = DefaultConfig().CodeLength
	}
	return CodeEntry{digits: make([]string, length)}
}

// Len is the fixed number of cells.
func (b CodeEntry) Len() int { return len(b.digits) }

// Focus is the cell that currently holds focus.
func (b CodeEntry) Focus() int { return b.focus }

// Digits returns a copy of the cells.
func (b CodeEntry) Digits() []string {
	out := make([]string, len(b.digits))
	copy(out, b.digits)
	return out
}

// Digit returns the value at cell i.
func (b CodeEntry) Digit(i int) string {
	if i < 0 || i >= len(b.digits) {
		return ""
	}
	return b.digits[i]
}

func (b CodeEntry) clone() CodeEntry {
	return CodeEntry{digits: b.Digits(), focus: b.focus}
}

// SetDigit writes value at cell i, keeping only its first character.
// A non-empty write advances focus unless i is the last cell.
func (b CodeEntry) SetDigit(i int, value string) (CodeEntry, FocusDirective, error) {
	if i < 0 || i >= len(b.digits) {
		return b, FocusDirective{Move: FocusStay, Index: b.focus}, ErrIndexOutOfRange
	}
	next := b.clone()
	next.digits[i] = firstChar(value)
	next.focus = i
	if next.digits[i] != "" && i < len(next.digits)-1 {
		next.focus = i + 1
		return next, FocusDirective{Move: FocusNext, Index: next.focus}, nil
	}
	return next, FocusDirective{Move: FocusStay, Index: next.focus}, nil
}

// Backspace handles a backspace key at cell i. An empty cell past the
// first moves focus back; otherwise the cell is cleared in place.
func (b CodeEntry) Backspace(i int) (CodeEntry, FocusDirective, error) {
	if i < 0 || i >= len(b.digits) {
		return b, FocusDirective{Move: FocusStay, Index: b.focus}, ErrIndexOutOfRange
	}
	next := b.clone()
	if next.digits[i] == "" && i > 0 {
		next.focus = i - 1
		return next, FocusDirective{Move: FocusPrev, Index: next.focus}, nil
	}
	next.digits[i] = ""
	next.focus = i
	return next, FocusDirective{Move: FocusStay, Index: i}, nil
}

// WithFocus moves focus to i, clamped to the buffer.
func (b CodeEntry) WithFocus(i int) (CodeEntry, FocusDirective) {
	next := b.clone()
	switch {
	case i < 0:
		i = 0
	case i >= len(next.digits):
		i = len(next.digits) - 1
	}
	next.focus = i
	return next, FocusDirective{Move: FocusStay, Index: i}
}

// Composed returns the code when every cell is filled.
func (b CodeEntry) Composed() (string, bool) {
	var sb strings.Builder
	for _, d := range b.digits {
		if d == "" {
			return "", false
		}
		sb.WriteString(d)
	}
	return sb.String(), true
}

// Partial concatenates the non-empty cells in order.
func (b CodeEntry) Partial() string {
	return strings.Join(b.digits, "")
}

// Clear empties every cell and focuses the first one.
func (b CodeEntry) Clear() CodeEntry {
	return NewCodeEntry(len(b.digits))
}

func firstChar(s string) string {
	for _, r := range s {
		return string(r)
	}
	return ""
}
