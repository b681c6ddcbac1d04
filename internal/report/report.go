// Package report collects scenario verdicts into a pass/fail summary and
// renders it for humans (text) and machines (JSON).
//
// A scenario passes iff its observed outcome structurally equals the
// expected one. Every failure is kept; the summary additionally carries a
// diagnostic for the first failure with a unified diff of expected versus
// actual.
package report

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/roach88/pagecheck/internal/harness"
	"github.com/roach88/pagecheck/internal/outcome"
)

// Verdict is the per-entry result.
type Verdict string

const (
	VerdictPass  Verdict = "pass"
	VerdictFail  Verdict = "fail"
	VerdictFault Verdict = "fault"
)

// Entry is one checked scenario or latency check.
type Entry struct {
	Name     string          `json:"name"`
	Route    string          `json:"route,omitempty"`
	Verdict  Verdict         `json:"verdict"`
	Expected outcome.Outcome `json:"expected"`
	Actual   outcome.Outcome `json:"actual"`
	Fault    string          `json:"fault,omitempty"`
	Errors   []string        `json:"errors,omitempty"`
	Timing   *Timing         `json:"timing,omitempty"`
}

// Timing is the latency part of a timing entry.
type Timing struct {
	Runs    int           `json:"runs"`
	Mean    time.Duration `json:"mean_ns"`
	Ceiling time.Duration `json:"ceiling_ns"`
}

// Diagnostic explains the first failure.
type Diagnostic struct {
	Name     string `json:"name"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Diff     string `json:"diff,omitempty"`
}

// Summary is the final report.
type Summary struct {
	Contract     string      `json:"contract"`
	RunID        string      `json:"run_id,omitempty"`
	Total        int         `json:"total"`
	Passed       int         `json:"passed"`
	Failed       int         `json:"failed"`
	Faulted      int         `json:"faulted"`
	Entries      []Entry     `json:"entries"`
	FirstFailure *Diagnostic `json:"first_failure,omitempty"`
}

// OK reports whether every entry passed.
func (s Summary) OK() bool {
	return s.Failed == 0 && s.Faulted == 0
}

// Builder accumulates entries. It is safe for concurrent use, though the
// runner feeds it sequentially.
type Builder struct {
	mu       sync.Mutex
	contract string
	runID    string
	entries  []Entry
}

// NewBuilder starts a report for one run against a contract.
func NewBuilder(contractName, runID string) *Builder {
	return &Builder{contract: contractName, runID: runID}
}

// Add records a (name, expected, actual) triple and returns the entry with
// its verdict.
func (b *Builder) Add(name string, expected, actual outcome.Outcome) Entry {
	e := Entry{Name: name, Expected: expected, Actual: actual, Verdict: VerdictFail}
	if expected.Equal(actual) {
		e.Verdict = VerdictPass
	} else {
		e.Errors = []string{fmt.Sprintf("expected %s, got %s", expected, actual)}
	}
	return b.add(e)
}

// AddResult records a harness scenario result.
func (b *Builder) AddResult(res *harness.Result) Entry {
	e := Entry{
		Name:     res.Name,
		Route:    res.Route,
		Expected: res.Expected,
		Actual:   res.Actual,
		Fault:    res.Fault,
		Errors:   res.Errors,
	}
	switch {
	case res.Fault != "":
		e.Verdict = VerdictFault
	case res.Pass:
		e.Verdict = VerdictPass
		e.Errors = nil
	default:
		e.Verdict = VerdictFail
	}
	return b.add(e)
}

// AddTiming records a latency check.
func (b *Builder) AddTiming(res *harness.TimingResult) Entry {
	e := Entry{
		Name:     res.Name,
		Route:    res.Route,
		Expected: res.Expected,
		Fault:    res.Fault,
		Timing: &Timing{
			Runs:    len(res.Samples),
			Mean:    res.Mean,
			Ceiling: res.Ceiling,
		},
	}
	switch {
	case res.Fault != "":
		e.Verdict = VerdictFault
	case res.Pass:
		e.Verdict = VerdictPass
		e.Actual = res.Expected
	default:
		e.Verdict = VerdictFail
	}
	if res.Failure != "" {
		e.Errors = []string{res.Failure}
	}
	return b.add(e)
}

// AddError records a scenario that could not run at all.
func (b *Builder) AddError(name string, err error) Entry {
	return b.add(Entry{Name: name, Verdict: VerdictFail, Errors: []string{err.Error()}})
}

func (b *Builder) add(e Entry) Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, e)
	return e
}

// Summary computes counts and the first-failure diagnostic.
func (b *Builder) Summary() Summary {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := Summary{
		Contract: b.contract,
		RunID:    b.runID,
		Total:    len(b.entries),
		Entries:  make([]Entry, len(b.entries)),
	}
	copy(s.Entries, b.entries)

	for _, e := range s.Entries {
		switch e.Verdict {
		case VerdictPass:
			s.Passed++
		case VerdictFault:
			s.Faulted++
		default:
			s.Failed++
		}
		if e.Verdict != VerdictPass && s.FirstFailure == nil {
			d := diagnose(e)
			s.FirstFailure = &d
		}
	}
	return s
}

func diagnose(e Entry) Diagnostic {
	d := Diagnostic{Name: e.Name, Expected: e.Expected.String(), Actual: e.Actual.String()}

	switch {
	case e.Fault != "":
		d.Actual = e.Fault
	case e.Timing != nil:
		d.Expected = fmt.Sprintf("%s, mean below %s", e.Expected, e.Timing.Ceiling)
		d.Actual = strings.Join(e.Errors, "; ")
	case e.Actual.IsZero() && len(e.Errors) > 0:
		d.Actual = strings.Join(e.Errors, "; ")
	}

	if !e.Expected.IsZero() && !e.Actual.IsZero() && !e.Expected.Equal(e.Actual) {
		diff, err := unifiedDiff(outcomeLines(e.Expected), outcomeLines(e.Actual))
		if err == nil {
			d.Diff = diff
		}
	}
	return d
}

// outcomeLines renders an outcome one attribute per line, without a
// trailing newline.
func outcomeLines(o outcome.Outcome) string {
	lines := []string{"kind: " + string(o.Kind)}
	switch o.Kind {
	case outcome.KindSuccess:
		lines = append(lines, "target: "+o.Target)
	case outcome.KindValidationError, outcome.KindAuthDenied:
		lines = append(lines, "message: "+o.Message)
	}
	return strings.Join(lines, "\n")
}

func unifiedDiff(from, to string) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(from),
		B:        difflib.SplitLines(to),
		FromFile: "expected",
		ToFile:   "actual",
		Context:  3,
	}
	return difflib.GetUnifiedDiffString(diff)
}

// SummaryOf rebuilds the summary of previously recorded entries.
func SummaryOf(contractName, runID string, entries []Entry) Summary {
	b := NewBuilder(contractName, runID)
	for _, e := range entries {
		b.add(e)
	}
	return b.Summary()
}
