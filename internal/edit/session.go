// Package edit coordinates editing a release's values document: loading it
// from the backend, rendering it as text, and submitting the edited text.
package edit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cameronsjo/helmdeck/internal/lock"
	"github.com/cameronsjo/helmdeck/internal/model"
	"github.com/cameronsjo/helmdeck/internal/snapshot"
	"github.com/cameronsjo/helmdeck/internal/values"
)

var (
	// ErrAmbiguous is returned in strict mode when the submitted text has
	// fields a YAML reader would interpret differently, or tab indentation.
	ErrAmbiguous = errors.New("document has ambiguous fields")

	// ErrNoRegistry is returned when the release has no registry mapping.
	ErrNoRegistry = errors.New("release has no registry mapping")

	// ErrNotOpen is returned when Text or Submit is called before Open.
	ErrNotOpen = errors.New("session is not open")
)

// Backend is the part of the release API an edit session uses.
type Backend interface {
	GetRelease(ctx context.Context, namespace, name string) (*model.Release, error)
	GetValues(ctx context.Context, namespace, name string) (*values.Mapping, error)
	UpdateValues(ctx context.Context, namespace, name string, doc *values.Mapping) (*model.Release, error)
}

// Options configures a Session.
type Options struct {
	// StateDir holds the per-release lock files. Empty disables locking.
	StateDir string

	// AllowNoRegistry permits editing releases without a registry mapping.
	AllowNoRegistry bool

	// Strict rejects submissions with lint findings other than
	// values.FindingUnstable.
	Strict bool

	// QuoteAmbiguous quotes strings in Text that would otherwise read back
	// as another type.
	QuoteAmbiguous bool

	// Snapshots, when set, receives the previous values before each update.
	Snapshots *snapshot.Store
}

// Result describes a submission.
type Result struct {
	// Changed is false when the submitted document equals the loaded one
	// and nothing was sent.
	Changed bool

	// Release is the backend's view after the update. Nil when unchanged.
	Release *model.Release

	// Findings are the lint notes for the submitted text.
	Findings []values.Finding

	// Snapshot names the saved copy of the previous values, if any.
	Snapshot string
}

// Session edits the values of one release. Open holds the release lock
// until Close, so two sessions for the same release cannot overlap.
type Session struct {
	backend   Backend
	namespace string
	name      string
	opts      Options

	lock    *lock.Lock
	release *model.Release
	loaded  *values.Mapping
}

// NewSession creates a session for the release identified as "namespace/name".
func NewSession(backend Backend, id string, opts Options) (*Session, error) {
	namespace, name, err := model.ParseReleaseID(id)
	if err != nil {
		return nil, err
	}
	return &Session{
		backend:   backend,
		namespace: namespace,
		name:      name,
		opts:      opts,
	}, nil
}

// ID returns the "namespace/name" identifier of the release.
func (s *Session) ID() string {
	return s.namespace + "/" + s.name
}

// Open locks the release and loads it with its current values.
func (s *Session) Open(ctx context.Context) error {
	if s.opts.StateDir != "" && s.lock == nil {
		l := lock.New(s.opts.StateDir, s.ID())
		if err := l.Acquire(); err != nil {
			return err
		}
		s.lock = l
	}

	if err := s.load(ctx); err != nil {
		s.Close()
		return err
	}
	return nil
}

func (s *Session) load(ctx context.Context) error {
	rel, err := s.backend.GetRelease(ctx, s.namespace, s.name)
	if err != nil {
		return fmt.Errorf("get release %s: %w", s.ID(), err)
	}
	if !rel.HasRegistry && !s.opts.AllowNoRegistry {
		return fmt.Errorf("%s: %w", s.ID(), ErrNoRegistry)
	}

	doc, err := s.backend.GetValues(ctx, s.namespace, s.name)
	if err != nil {
		return fmt.Errorf("get values for %s: %w", s.ID(), err)
	}
	if doc == nil {
		doc = values.NewMapping()
	}

	s.release = rel
	s.loaded = doc
	return nil
}

// Close releases the session lock. It is safe to call more than once.
func (s *Session) Close() error {
	if s.lock == nil {
		return nil
	}
	err := s.lock.Release()
	s.lock = nil
	return err
}

// Release returns the release loaded by Open.
func (s *Session) Release() *model.Release {
	return s.release
}

// Document returns a copy of the loaded values.
func (s *Session) Document() *values.Mapping {
	return s.loaded.Clone()
}

// Text returns the loaded values encoded for editing.
func (s *Session) Text() (string, error) {
	if s.loaded == nil {
		return "", ErrNotOpen
	}
	var opts []values.EncodeOption
	if s.opts.QuoteAmbiguous {
		opts = append(opts, values.QuoteAmbiguous())
	}
	return values.Encode(s.loaded, opts...), nil
}

// Submit decodes text and sends it to the backend if it differs from the
// loaded document. After a successful update the submitted document
// becomes the loaded one.
func (s *Session) Submit(ctx context.Context, text string) (*Result, error) {
	if s.loaded == nil {
		return nil, ErrNotOpen
	}

	doc := values.Decode(text)
	res := &Result{Findings: values.Lint(text)}

	if s.opts.Strict {
		if blocking := strictFindings(res.Findings); len(blocking) > 0 {
			return res, fmt.Errorf("%w: %s", ErrAmbiguous, strings.Join(blocking, "; "))
		}
	}

	return res, s.update(ctx, doc, res)
}

// SubmitDocument sends doc to the backend if it differs from the loaded
// document. No text is involved, so the result carries no findings.
func (s *Session) SubmitDocument(ctx context.Context, doc *values.Mapping) (*Result, error) {
	if s.loaded == nil {
		return nil, ErrNotOpen
	}
	res := &Result{}
	return res, s.update(ctx, doc, res)
}

func (s *Session) update(ctx context.Context, doc *values.Mapping, res *Result) error {
	if doc.Equal(s.loaded) {
		return nil
	}

	if s.opts.Snapshots != nil {
		name, err := s.opts.Snapshots.Save(s.ID(), s.loaded)
		if err != nil && name == "" {
			return fmt.Errorf("snapshot values for %s: %w", s.ID(), err)
		}
		res.Snapshot = name
	}

	rel, err := s.backend.UpdateValues(ctx, s.namespace, s.name, doc)
	if err != nil {
		return fmt.Errorf("update values for %s: %w", s.ID(), err)
	}

	res.Changed = true
	res.Release = rel
	s.loaded = doc
	if rel != nil {
		s.release = rel
	}
	return nil
}

// Apply runs a whole session for text under the release lock: open, then
// submit.
func Apply(ctx context.Context, backend Backend, id, text string, opts Options) (*Result, error) {
	inner := opts
	inner.StateDir = ""
	s, err := NewSession(backend, id, inner)
	if err != nil {
		return nil, err
	}

	var res *Result
	submit := func() error {
		if err := s.Open(ctx); err != nil {
			return err
		}
		var err error
		res, err = s.Submit(ctx, text)
		return err
	}

	if opts.StateDir == "" {
		err = submit()
	} else {
		err = lock.WithLock(opts.StateDir, s.ID(), submit)
	}
	return res, err
}

func strictFindings(findings []values.Finding) []string {
	var out []string
	for _, f := range findings {
		if f.Kind != values.FindingUnstable {
			out = append(out, f.String())
		}
	}
	return out
}
