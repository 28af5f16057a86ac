package review

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// TerminalProvider reviews duplicate groups over a line-based terminal.
// Every record starts approved; the reviewer either confirms the whole
// group, keeps a subset, skips, or quits.
type TerminalProvider struct {
	in  *bufio.Reader
	out io.Writer
}

// NewTerminalProvider reads decisions from in and writes prompts to out.
func NewTerminalProvider(in io.Reader, out io.Writer) *TerminalProvider {
	return &TerminalProvider{in: bufio.NewReader(in), out: out}
}

// ReviewGroup presents the candidates and reads one decision.
func (p *TerminalProvider) ReviewGroup(candidates []Candidate) ([]string, error) {
	fmt.Fprintf(p.out, "\n=== Potential Duplicate Group (%d records) ===\n", len(candidates))
	for i, c := range candidates {
		fmt.Fprintf(p.out, "  %d. %s\n", i+1, c.Display)
	}
	fmt.Fprintln(p.out, "Options:")
	fmt.Fprintln(p.out, "  a        - Approve all records as duplicates")
	fmt.Fprintln(p.out, "  1,3,...  - Approve only the listed records")
	fmt.Fprintln(p.out, "  s        - Skip this group")
	fmt.Fprintln(p.out, "  q        - Quit review session")

	for {
		fmt.Fprint(p.out, "Your decision: ")
		line, err := p.in.ReadString('\n')
		if err != nil && line == "" {
			return nil, ErrQuit
		}

		choice := strings.ToLower(strings.TrimSpace(line))
		switch choice {
		case "a", "":
			ids := make([]string, len(candidates))
			for i, c := range candidates {
				ids[i] = c.ID
			}
			return ids, nil
		case "s":
			return nil, nil
		case "q":
			return nil, ErrQuit
		}

		ids, ok := p.parseSelection(choice, candidates)
		if !ok {
			fmt.Fprintf(p.out, "Invalid choice %q. Please try again.\n", choice)
			continue
		}
		return ids, nil
	}
}

// parseSelection reads a comma or space separated list of 1-based indexes.
func (p *TerminalProvider) parseSelection(choice string, candidates []Candidate) ([]string, bool) {
	fields := strings.FieldsFunc(choice, func(r rune) bool {
		return r == ',' || r == ' '
	})
	if len(fields) == 0 {
		return nil, false
	}

	var ids []string
	seen := make(map[int]bool)
	for _, field := range fields {
		n, err := strconv.Atoi(field)
		if err != nil || n < 1 || n > len(candidates) {
			return nil, false
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		ids = append(ids, candidates[n-1].ID)
	}
	return ids, true
}

// ScriptedProvider replays a fixed sequence of approvals, one per group.
// Groups beyond the script are skipped. It backs non-interactive runs and
// tests.
type ScriptedProvider struct {
	Responses [][]string
	next      int
}

// ReviewGroup returns the next scripted response.
func (p *ScriptedProvider) ReviewGroup(candidates []Candidate) ([]string, error) {
	if p.next >= len(p.Responses) {
		return nil, nil
	}
	resp := p.Responses[p.next]
	p.next++
	return resp, nil
}

// ApproveAllProvider confirms every group in full without prompting.
type ApproveAllProvider struct{}

// ReviewGroup approves all candidates.
func (ApproveAllProvider) ReviewGroup(candidates []Candidate) ([]string, error) {
	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ID
	}
	return ids, nil
}
