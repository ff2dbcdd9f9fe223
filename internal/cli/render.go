package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/citesync/internal/csl"
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	ManuscriptOptions
	HTML bool // print the bibliography body as stored instead of plain text
}

// RenderResult is the rendered state of a manuscript.
type RenderResult struct {
	Manuscript   string         `json:"manuscript"`
	Style        string         `json:"style"`
	Phase        string         `json:"phase"`
	Citations    []CitationView `json:"citations"`
	Bibliography []string       `json:"bibliography"`
	HTML         string         `json:"html,omitempty"`
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{ManuscriptOptions: ManuscriptOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "render <manuscript.md>",
		Short: "Render citations and bibliography for a manuscript",
		Long: `Import a Markdown manuscript, resolve its citations against the library
store and print the rendered in-text citations and bibliography.

A References section is added when the manuscript cites something but has
no bibliography heading.

Examples:
  citesync render paper.md
  citesync render --style author-date paper.md
  citesync render --style ./styles/house.cue --html paper.md`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, opts, args[0])
		},
	}

	opts.bindFlags(cmd)
	cmd.Flags().BoolVar(&opts.HTML, "html", false, "print the bibliography as HTML")

	return cmd
}

func runRender(cmd *cobra.Command, opts *RenderOptions, path string) error {
	f := opts.formatter(cmd)

	s, err := openSession(cmd.Context(), path, &opts.ManuscriptOptions, opts.newLogger(cmd.ErrOrStderr()))
	if err != nil {
		return failStage(f, err)
	}

	body := s.bibliographyHTML()
	result := RenderResult{
		Manuscript:   path,
		Style:        s.style.Name,
		Phase:        string(s.plugin.Coordinator().LastOutcome().Phase),
		Citations:    s.citations(),
		Bibliography: csl.BodyEntries(body),
	}
	if result.Bibliography == nil {
		result.Bibliography = []string{}
	}
	if opts.HTML {
		result.HTML = body
	}

	return f.Report(result, nil, func(w io.Writer) {
		writeRenderText(w, result)
	})
}

func writeRenderText(w io.Writer, r RenderResult) {
	fmt.Fprintf(w, "%s (%s)\n", r.Manuscript, r.Style)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Citations:")
	if len(r.Citations) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for i, c := range r.Citations {
		text := c.Text
		if text == "" {
			text = "(not rendered)"
		}
		fmt.Fprintf(w, "  %d. %s  %v\n", i+1, text, c.Items)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Bibliography:")
	if r.HTML != "" {
		fmt.Fprintf(w, "  %s\n", r.HTML)
		return
	}
	if len(r.Bibliography) == 0 {
		fmt.Fprintln(w, "  (empty)")
	}
	for _, entry := range r.Bibliography {
		fmt.Fprintf(w, "  %s\n", entry)
	}
}

// failStage reports a session error with its code.
func failStage(f *OutputFormatter, err error) error {
	var se *stageError
	if errors.As(err, &se) {
		return f.Fail(ExitCommandError, se.Code, se.Message, se.Err)
	}
	return f.Fail(ExitCommandError, ErrCodeGeneric, "render failed", err)
}
