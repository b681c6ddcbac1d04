package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// RenderText writes the human-readable report.
func RenderText(w io.Writer, s Summary) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Contract: %s\n", s.Contract)
	if s.RunID != "" {
		fmt.Fprintf(&b, "Run: %s\n", s.RunID)
	}
	b.WriteString("\n")

	for _, e := range s.Entries {
		writeEntry(&b, e)
	}

	fmt.Fprintf(&b, "\nSummary: %d passed, %d failed, %d faulted, %d total\n",
		s.Passed, s.Failed, s.Faulted, s.Total)

	if d := s.FirstFailure; d != nil {
		fmt.Fprintf(&b, "\nFirst failure: %s\n", d.Name)
		fmt.Fprintf(&b, "  expected: %s\n", d.Expected)
		fmt.Fprintf(&b, "  actual:   %s\n", d.Actual)
		if d.Diff != "" {
			b.WriteString(d.Diff)
		}
	} else if s.Total > 0 {
		b.WriteString("✓ All checks passed\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeEntry(b *strings.Builder, e Entry) {
	mark := "✓"
	switch e.Verdict {
	case VerdictFail:
		mark = "✗"
	case VerdictFault:
		mark = "!"
	}

	label := e.Name
	if e.Timing != nil {
		label += " (timing)"
	}
	fmt.Fprintf(b, "%s %s\n", mark, label)

	switch {
	case e.Verdict == VerdictFault:
		fmt.Fprintf(b, "  fault: %s\n", e.Fault)
	case e.Timing != nil:
		fmt.Fprintf(b, "  mean %s over %d runs (ceiling %s)\n", e.Timing.Mean, e.Timing.Runs, e.Timing.Ceiling)
		for _, msg := range e.Errors {
			fmt.Fprintf(b, "  %s\n", msg)
		}
	case e.Verdict == VerdictPass:
		fmt.Fprintf(b, "  %s\n", e.Actual)
	default:
		for _, msg := range e.Errors {
			fmt.Fprintf(b, "  %s\n", msg)
		}
	}
}

// RenderJSON writes the summary as indented JSON.
func RenderJSON(w io.Writer, s Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
