// Package inbox imports outline files dropped into a directory as subjects.
//
// Each *.txt or *.md file becomes a subject named after the file stem and
// owned by the configured owner. A new file creates the subject; a changed
// file replaces its topics, reading "(lido)" suffixes as done marks.
// Removing a file never deletes the subject.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/starford/edital/internal/apperr"
	"github.com/starford/edital/internal/checksum"
	"github.com/starford/edital/internal/metrics"
	"github.com/starford/edital/internal/outline"
	"github.com/starford/edital/internal/tracker"
)

// Import outcomes.
const (
	Created = "created"
	Updated = "updated"
	Skipped = "skipped"
)

type entry struct {
	id       string
	checksum string
}

// Inbox links a directory to one owner's subjects.
type Inbox struct {
	dir     *Dir
	svc     *tracker.Service
	owner   string
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu   sync.Mutex
	seen map[string]entry // by stem
}

// New creates an inbox over dir for owner. m may be nil.
func New(dir *Dir, svc *tracker.Service, owner string, logger *slog.Logger, m *metrics.Metrics) *Inbox {
	if logger == nil {
		logger = slog.Default()
	}
	return &Inbox{
		dir:     dir,
		svc:     svc,
		owner:   owner,
		logger:  logger,
		metrics: m,
		seen:    make(map[string]entry),
	}
}

// Sync links every file in the directory to a subject. Files without a
// subject of the same name are imported; files whose subject already exists
// are only recorded, so a restart never overwrites progress made elsewhere.
func (in *Inbox) Sync(ctx context.Context) error {
	files, err := in.dir.List()
	if err != nil {
		return err
	}
	subjects, err := in.svc.List(ctx, in.owner)
	if err != nil {
		return err
	}
	byName := make(map[string]string, len(subjects))
	for _, s := range subjects {
		if _, dup := byName[s.Name]; !dup {
			byName[s.Name] = s.ID
		}
	}

	for _, f := range files {
		if id, ok := byName[f.Stem]; ok {
			in.remember(f.Stem, id, f.Checksum)
			in.logger.Debug("inbox: linked", slog.String("file", f.Name), slog.String("subject", id))
			continue
		}
		if _, err := in.Import(ctx, f.Name); err != nil {
			in.logger.Warn("inbox: import failed",
				slog.String("file", f.Name),
				slog.String("error", err.Error()))
		}
	}
	return nil
}

// Import reads one file and creates or replaces its subject. Unchanged
// content is skipped.
func (in *Inbox) Import(ctx context.Context, name string) (string, error) {
	data, err := in.dir.Read(name)
	if err != nil {
		return "", err
	}
	stem := Stem(name)
	if stem == "" {
		return "", fmt.Errorf("inbox: %s has no name: %w", name, apperr.ErrInvalid)
	}
	sum := checksum.Sum(data)

	prev, known := in.lookup(stem)
	if !known {
		id, err := in.findByName(ctx, stem)
		if err != nil {
			return "", err
		}
		if id != "" {
			prev, known = entry{id: id}, true
		}
	}
	if known && prev.checksum == sum {
		in.metrics.ObserveImport(Skipped)
		return Skipped, nil
	}

	if known {
		_, err := in.svc.Update(ctx, in.owner, prev.id, stem, string(data), "")
		switch {
		case err == nil:
			in.remember(stem, prev.id, sum)
			in.metrics.ObserveImport(Updated)
			in.logger.Info("inbox: updated", slog.String("file", name), slog.String("subject", prev.id))
			return Updated, nil
		case !errors.Is(err, apperr.ErrNotFound):
			return "", err
		}
		// The subject was deleted elsewhere; import the file afresh.
	}

	d, err := in.svc.CreateEdited(ctx, in.owner, stem, string(data))
	if err != nil {
		return "", err
	}
	in.remember(stem, d.ID, sum)
	in.metrics.ObserveImport(Created)
	in.logger.Info("inbox: created", slog.String("file", name), slog.String("subject", d.ID))
	return Created, nil
}

// Export writes every subject of the owner to the directory in edit format.
// Exported files are recorded so the watcher does not import them back.
func (in *Inbox) Export(ctx context.Context) (int, error) {
	subjects, err := in.svc.List(ctx, in.owner)
	if err != nil {
		return 0, err
	}
	for _, s := range subjects {
		name := FileName(s.Name)
		text := []byte(outline.Format(s.Topics) + "\n")
		if err := in.dir.Write(name, text); err != nil {
			return 0, err
		}
		in.remember(Stem(name), s.ID, checksum.Sum(text))
	}
	return len(subjects), nil
}

func (in *Inbox) findByName(ctx context.Context, name string) (string, error) {
	subjects, err := in.svc.List(ctx, in.owner)
	if err != nil {
		return "", err
	}
	for _, s := range subjects {
		if s.Name == name {
			return s.ID, nil
		}
	}
	return "", nil
}

// forget drops the link of a removed file. The subject is kept.
func (in *Inbox) forget(stem string) {
	in.mu.Lock()
	delete(in.seen, stem)
	in.mu.Unlock()
}

func (in *Inbox) remember(stem, id, sum string) {
	in.mu.Lock()
	in.seen[stem] = entry{id: id, checksum: sum}
	in.mu.Unlock()
}

func (in *Inbox) lookup(stem string) (entry, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	e, ok := in.seen[stem]
	return e, ok
}
