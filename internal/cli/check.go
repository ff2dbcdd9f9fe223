package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/roach88/citesync/internal/bibliography"
	"github.com/roach88/citesync/internal/editor"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	ManuscriptOptions
}

// Issue is one problem found in a manuscript.
type Issue struct {
	Class   string `json:"class"`
	From    int    `json:"from"`
	To      int    `json:"to"`
	Item    string `json:"item,omitempty"`
	Message string `json:"message"`
}

// CheckResult lists the issues found in a manuscript.
type CheckResult struct {
	Manuscript string  `json:"manuscript"`
	Citations  int     `json:"citations"`
	Issues     []Issue `json:"issues"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{ManuscriptOptions: ManuscriptOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "check <manuscript.md>",
		Short: "Report unresolved and empty citations",
		Long: `Import a Markdown manuscript and report citations that reference items
missing from the library store, citations without items, and whether the
bibliography can be generated.

Exit codes:
  0 - No issues
  1 - One or more issues found
  2 - Command error (unreadable manuscript, bad style, etc.)

Examples:
  citesync check paper.md
  citesync check --db ./paper.db paper.md --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, opts, args[0])
		},
	}

	opts.bindFlags(cmd)

	return cmd
}

func runCheck(cmd *cobra.Command, opts *CheckOptions, path string) error {
	f := opts.formatter(cmd)

	s, err := openSession(cmd.Context(), path, &opts.ManuscriptOptions, opts.newLogger(cmd.ErrOrStderr()))
	if err != nil {
		return failStage(f, err)
	}

	result := CheckResult{
		Manuscript: path,
		Citations:  len(s.imported.Citations),
		Issues:     issuesFrom(s.editor.Decorations()),
	}

	var failure *CLIError
	if len(result.Issues) > 0 {
		failure = &CLIError{
			Code:    ErrCodeMissingItems,
			Message: fmt.Sprintf("%d issue(s) found", len(result.Issues)),
		}
	}
	if err := f.Report(result, failure, func(w io.Writer) {
		writeCheckText(w, result)
	}); err != nil {
		return err
	}

	if failure != nil {
		return NewExitError(ExitFailure, failure.Message)
	}
	return nil
}

// issuesFrom turns decorations into issues. The bibliography element's
// own marker is covered by its widget and is not reported twice.
func issuesFrom(decos []editor.Decoration) []Issue {
	issues := []Issue{}
	for _, d := range decos {
		switch {
		case d.Class == bibliography.ClassCitationMissing:
			item, _ := d.Spec["item"].(string)
			issues = append(issues, Issue{
				Class:   d.Class,
				From:    d.From,
				To:      d.To,
				Item:    item,
				Message: fmt.Sprintf("citation references unknown library item %q", item),
			})
		case d.Class == bibliography.ClassCitationEmpty:
			issues = append(issues, Issue{
				Class:   d.Class,
				From:    d.From,
				To:      d.To,
				Message: "citation has no items",
			})
		case d.Kind == editor.DecorationWidget && d.Widget != nil:
			issues = append(issues, Issue{
				Class:   d.Widget.Class,
				From:    d.From,
				To:      d.To,
				Message: d.Widget.Text,
			})
		}
	}
	return issues
}

type checkStyles struct {
	header lipgloss.Style
	ok     lipgloss.Style
	issue  lipgloss.Style
	pos    lipgloss.Style
	muted  lipgloss.Style
}

// newCheckStyles binds styles to w so colors are only emitted on a
// terminal.
func newCheckStyles(w io.Writer) checkStyles {
	r := lipgloss.NewRenderer(w)
	return checkStyles{
		header: r.NewStyle().Foreground(lipgloss.Color("#7f57b4")).Bold(true),
		ok:     r.NewStyle().Foreground(lipgloss.Color("#98c379")),
		issue:  r.NewStyle().Foreground(lipgloss.Color("#e06c75")).Bold(true),
		pos:    r.NewStyle().Foreground(lipgloss.Color("#436b77")),
		muted:  r.NewStyle().Foreground(lipgloss.Color("#9ba0bf")),
	}
}

func writeCheckText(w io.Writer, r CheckResult) {
	st := newCheckStyles(w)

	fmt.Fprintln(w, st.header.Render(r.Manuscript))
	fmt.Fprintln(w, st.muted.Render(fmt.Sprintf("%d citation(s)", r.Citations)))

	if len(r.Issues) == 0 {
		fmt.Fprintln(w, st.ok.Render("✓ No issues"))
		return
	}
	for _, is := range r.Issues {
		fmt.Fprintf(w, "%s %s %s\n",
			st.issue.Render("✗"),
			st.pos.Render(fmt.Sprintf("%d-%d", is.From, is.To)),
			is.Message,
		)
	}
	fmt.Fprintln(w, st.issue.Render(fmt.Sprintf("%d issue(s) found", len(r.Issues))))
}
