// Package selection drives the interactive list, prompt and dispatch loop.
package selection

import (
	"fmt"
	"strconv"
	"strings"
)

// CommandKind is what the operator asked for at the prompt.
type CommandKind int

const (
	CmdSelect CommandKind = iota
	CmdQuit
	CmdRescan
)

// Command is a parsed prompt answer. Indices are zero-based, unique and in
// the order typed.
type Command struct {
	Kind    CommandKind
	Indices []int
}

// ParseError reports a prompt answer that selects nothing valid. No entry is
// dispatched when parsing fails.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid input '%s': %s", e.Input, e.Reason)
}

// Parse reads an answer against a list of count entries. It accepts q or an
// empty line to quit, r to rescan, all, or a comma list of 1-based numbers
// and inclusive a-b ranges.
func Parse(input string, count int) (Command, error) {
	sel := strings.TrimSpace(input)
	switch strings.ToLower(sel) {
	case "", "q":
		return Command{Kind: CmdQuit}, nil
	case "r":
		return Command{Kind: CmdRescan}, nil
	case "all":
		indices := make([]int, count)
		for i := range indices {
			indices[i] = i
		}
		return Command{Kind: CmdSelect, Indices: indices}, nil
	}

	var picked []int
	for _, part := range strings.Split(sel, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, err := parseToken(part)
		if err != nil {
			return Command{}, &ParseError{Input: sel, Reason: err.Error()}
		}
		for n := lo; n <= hi; n++ {
			if n < 1 || n > count {
				return Command{}, &ParseError{Input: sel, Reason: fmt.Sprintf("number %d is out of range (1-%d)", n, count)}
			}
			picked = append(picked, n-1)
		}
	}

	seen := make(map[int]bool, len(picked))
	indices := make([]int, 0, len(picked))
	for _, idx := range picked {
		if seen[idx] {
			continue
		}
		seen[idx] = true
		indices = append(indices, idx)
	}
	return Command{Kind: CmdSelect, Indices: indices}, nil
}

func parseToken(part string) (int, int, error) {
	a, b, isRange := strings.Cut(part, "-")
	if !isRange {
		n, err := strconv.Atoi(part)
		if err != nil {
			return 0, 0, fmt.Errorf("%q is not a number", part)
		}
		return n, n, nil
	}
	lo, err := strconv.Atoi(strings.TrimSpace(a))
	if err != nil {
		return 0, 0, fmt.Errorf("%q is not a range", part)
	}
	hi, err := strconv.Atoi(strings.TrimSpace(b))
	if err != nil {
		return 0, 0, fmt.Errorf("%q is not a range", part)
	}
	if lo > hi {
		return 0, 0, fmt.Errorf("range %q is reversed", part)
	}
	return lo, hi, nil
}
