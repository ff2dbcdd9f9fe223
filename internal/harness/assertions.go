package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/citesync/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for i, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %s %q\n", i+1, event.Step, event.Phase, event.Citations)
	}

	return buf.String()
}

// AssertionContext provides store access for referencing assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

func assertCitationText(result *Result, a Assertion) error {
	cits := result.Final.Citations
	if a.Index >= len(cits) {
		return &AssertionError{
			Type:     AssertCitationText,
			Expected: fmt.Sprintf("citation %d with contents %q", a.Index, a.Expect),
			Actual:   fmt.Sprintf("document has %d citations", len(cits)),
			Trace:    result.Trace,
		}
	}
	if cits[a.Index] != a.Expect {
		return &AssertionError{
			Type:     AssertCitationText,
			Expected: fmt.Sprintf("citation %d with contents %q", a.Index, a.Expect),
			Actual:   fmt.Sprintf("%q", cits[a.Index]),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertBibliographyContains(result *Result, a Assertion) error {
	if strings.Contains(result.Final.Bibliography, a.Text) {
		return nil
	}
	return &AssertionError{
		Type:     AssertBibliographyContains,
		Expected: fmt.Sprintf("bibliography containing %q", a.Text),
		Actual:   fmt.Sprintf("%q", result.Final.Bibliography),
		Trace:    result.Trace,
	}
}

func assertBibliographyEntries(result *Result, a Assertion) error {
	n := strings.Count(result.Final.Bibliography, `class="csl-entry"`)
	if n == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertBibliographyEntries,
		Expected: fmt.Sprintf("%d bibliography entries", a.Count),
		Actual:   fmt.Sprintf("%d entries", n),
		Trace:    result.Trace,
	}
}

func assertDecorationCount(result *Result, a Assertion) error {
	n := 0
	for _, d := range result.Final.Decorations {
		if strings.HasSuffix(d, " "+a.Class) {
			n++
		}
	}
	if n == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertDecorationCount,
		Expected: fmt.Sprintf("%d decorations with class %s", a.Count, a.Class),
		Actual:   fmt.Sprintf("%d in %v", n, result.Final.Decorations),
		Trace:    result.Trace,
	}
}

func assertOutcome(result *Result, a Assertion) error {
	if len(result.Trace) == 0 {
		return &AssertionError{Type: AssertOutcome, Expected: a.Phase, Actual: "empty trace"}
	}
	idx := len(result.Trace) - 1
	if a.Step > 0 {
		idx = a.Step - 1
	}
	if idx >= len(result.Trace) {
		return &AssertionError{
			Type:     AssertOutcome,
			Expected: fmt.Sprintf("phase %s after step %d", a.Phase, a.Step),
			Actual:   fmt.Sprintf("trace has %d steps", len(result.Trace)),
			Trace:    result.Trace,
		}
	}
	if got := result.Trace[idx].Phase; got != a.Phase {
		return &AssertionError{
			Type:     AssertOutcome,
			Expected: fmt.Sprintf("phase %s after step %d", a.Phase, idx+1),
			Actual:   got,
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertReferencing(actx *AssertionContext, result *Result, a Assertion) error {
	ids, err := actx.Store.CitationsReferencing(actx.Ctx, a.Item)
	if err != nil {
		return fmt.Errorf("referencing: %w", err)
	}
	if len(ids) == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertReferencing,
		Expected: fmt.Sprintf("%d citations referencing %s", a.Count, a.Item),
		Actual:   fmt.Sprintf("%v", ids),
		Trace:    result.Trace,
	}
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides database access for referencing assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertCitationText:
			err = assertCitationText(result, assertion)
		case AssertBibliographyContains:
			err = assertBibliographyContains(result, assertion)
		case AssertBibliographyEntries:
			err = assertBibliographyEntries(result, assertion)
		case AssertDecorationCount:
			err = assertDecorationCount(result, assertion)
		case AssertOutcome:
			err = assertOutcome(result, assertion)
		case AssertReferencing:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: referencing requires database context", i)
			} else {
				err = assertReferencing(actx, result, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
