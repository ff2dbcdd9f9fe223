package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/roach88/citesync/internal/bibliography"
	"github.com/roach88/citesync/internal/citation"
	"github.com/roach88/citesync/internal/config"
	"github.com/roach88/citesync/internal/csl"
	"github.com/roach88/citesync/internal/doc"
	"github.com/roach88/citesync/internal/editor"
	"github.com/roach88/citesync/internal/markdown"
	"github.com/roach88/citesync/internal/store"
)

// ManuscriptOptions holds the flags shared by commands that open a
// manuscript.
type ManuscriptOptions struct {
	*RootOptions
	Database string
	Style    string
	Locale   string
	Deferred bool
}

func (o *ManuscriptOptions) bindFlags(cmd *cobra.Command) {
	cfg := o.Config
	cmdFlags := cmd.Flags()
	cmdFlags.StringVar(&o.Database, "db", cfg.DBPath, "path to SQLite library store")
	cmdFlags.StringVar(&o.Style, "style", cfg.Style, "builtin style name or path to a .cue style file")
	cmdFlags.StringVar(&o.Locale, "locale", cfg.Locale, "BCP 47 locale for title casing")
	cmdFlags.BoolVar(&o.Deferred, "deferred", cfg.Deferred, "regenerate the bibliography off the editor goroutine")
}

// stageError tags a session failure with the error code to report.
type stageError struct {
	Code    string
	Message string
	Err     error
}

func (e *stageError) Error() string { return fmt.Sprintf("%s: %v", e.Message, e.Err) }
func (e *stageError) Unwrap() error { return e.Err }

// session is an imported manuscript loaded into an editor with the
// bibliography plugin attached and rendered once.
type session struct {
	path     string
	style    *csl.Style
	library  *citation.Library
	editor   *editor.Editor
	plugin   *bibliography.Plugin
	imported *markdown.Result
}

// openSession imports the manuscript at path, resolves its citations
// against the library store and runs the initial regeneration.
func openSession(ctx context.Context, path string, opts *ManuscriptOptions, logger *slog.Logger) (*session, error) {
	effective := config.Config{
		DBPath:   opts.Database,
		Style:    opts.Style,
		Locale:   opts.Locale,
		Format:   opts.Format,
		Deferred: opts.Deferred,
	}
	if err := effective.Validate(); err != nil {
		return nil, &stageError{Code: ErrCodeGeneric, Message: "invalid options", Err: err}
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, &stageError{Code: ErrCodeReadFailed, Message: "failed to read manuscript", Err: err}
	}

	imported, err := markdown.Import(src, markdown.WithBibliography(true))
	if err != nil {
		return nil, &stageError{Code: ErrCodeParseFailed, Message: "failed to import manuscript", Err: err}
	}

	style, err := loadStyle(opts.Style)
	if err != nil {
		return nil, &stageError{Code: ErrCodeStyle, Message: "failed to load style", Err: err}
	}

	lib, err := loadLibrary(ctx, opts.Database, citation.Manuscript{
		ID:        manuscriptID(path),
		Title:     imported.Title,
		Locale:    opts.Locale,
		NoteStyle: style.Class == csl.ClassNote,
	})
	if err != nil {
		return nil, &stageError{Code: ErrCodeStore, Message: "failed to load library", Err: err}
	}
	for _, c := range imported.Citations {
		lib.AddModel(c)
	}
	logger.Debug("manuscript imported",
		"path", path,
		"citations", len(imported.Citations),
		"items", len(lib.Items()),
	)

	proc := csl.NewProcessor(style, lib.Item, csl.WithLocale(opts.Locale), csl.WithLogger(logger))

	var wg sync.WaitGroup
	bibOpts := []bibliography.Option{bibliography.WithLogger(logger)}
	if opts.Deferred {
		bibOpts = append(bibOpts,
			bibliography.WithMode(bibliography.ModeDeferred),
			bibliography.WithSpawner(func(fn func()) {
				wg.Add(1)
				go func() {
					defer wg.Done()
					fn()
				}()
			}),
		)
	}

	s := &session{
		path:     path,
		style:    style,
		library:  lib,
		imported: imported,
		plugin:   bibliography.New(lib.Lookups(), bibliography.StaticProcessor(proc), bibOpts...),
	}
	s.editor = editor.New(imported.Doc, []editor.Plugin{s.plugin}, editor.WithLogger(logger))
	s.plugin.Coordinator().SetPoster(s.editor)

	if _, err := s.editor.Dispatch(bibliography.RefreshTransaction(s.editor.State())); err != nil {
		return nil, &stageError{Code: ErrCodeGeneric, Message: "failed to render manuscript", Err: err}
	}
	wg.Wait()
	s.editor.RunPending()

	if out := s.plugin.Coordinator().LastOutcome(); out.Err != nil {
		logger.Warn("bibliography regeneration reported errors", "phase", out.Phase, "error", out.Err)
	}
	return s, nil
}

// loadLibrary records the manuscript and snapshots the store.
func loadLibrary(ctx context.Context, dbPath string, m citation.Manuscript) (*citation.Library, error) {
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	if err := st.PutManuscript(ctx, m); err != nil {
		return nil, err
	}
	return st.Snapshot(ctx, m.ID)
}

// loadStyle resolves a builtin style name or a .cue file path.
func loadStyle(name string) (*csl.Style, error) {
	if strings.HasSuffix(name, ".cue") {
		return csl.LoadStyleFile(name)
	}
	return csl.Builtin(name)
}

// manuscriptID derives a stable manuscript id from the file name.
func manuscriptID(path string) string {
	base := filepath.Base(path)
	return "MPManuscript:" + strings.TrimSuffix(base, filepath.Ext(base))
}

// CitationView is one citation node as rendered.
type CitationView struct {
	ID    string   `json:"id"`
	Items []string `json:"items"`
	Text  string   `json:"text"`
}

func (s *session) citations() []CitationView {
	root := s.editor.State().Doc
	out := []CitationView{}
	for _, pos := range doc.FindNodes(root, doc.TypeCitation) {
		node := root.NodeAt(pos)
		view := CitationView{
			ID:    node.Attrs.String(citation.RidAttr),
			Items: []string{},
			Text:  csl.EntryText(node.Attrs.String(bibliography.ContentsAttr)),
		}
		if m, ok := s.library.Model(view.ID); ok {
			if c, ok := m.(*citation.Citation); ok {
				for _, ref := range c.Items {
					view.Items = append(view.Items, ref.BibliographyItem)
				}
			}
		}
		out = append(out, view)
	}
	return out
}

// bibliographyHTML returns the contents of the first bibliography element.
func (s *session) bibliographyHTML() string {
	root := s.editor.State().Doc
	elems := doc.FindNodes(root, doc.TypeBibliographyElement)
	if len(elems) == 0 {
		return ""
	}
	return root.NodeAt(elems[0]).Attrs.String(bibliography.ContentsAttr)
}
