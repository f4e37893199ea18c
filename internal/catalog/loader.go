package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/examdeck/examdeck-backend/internal/store"
)

// Source identifies where the active catalog came from.
type Source string

const (
	SourceFile     Source = "file"
	SourceImported Source = "imported"
	SourceNone     Source = "none"
)

// Loader resolves the exam catalog at startup: exams.json on disk
// first, then a previously imported copy from the store, and finally
// an empty catalog (the UI will prompt for an import).
type Loader struct {
	path  string
	store *store.Store
	log   zerolog.Logger
}

// NewLoader creates a Loader for the configured exams file path.
func NewLoader(path string, st *store.Store, log zerolog.Logger) *Loader {
	return &Loader{
		path:  path,
		store: st,
		log:   log.With().Str("component", "catalog_loader").Logger(),
	}
}

// Resolve loads the catalog. Only an unreadable store is fatal: a
// missing or malformed exams.json falls through to the next source so
// a bad data file cannot take existing sessions down with it.
func (l *Loader) Resolve(ctx context.Context) (*Catalog, Source, error) {
	if raw, err := os.ReadFile(l.path); err == nil {
		c, parseErr := Parse(raw)
		if parseErr == nil {
			l.log.Info().Str("path", l.path).Int("exams", c.Len()).Msg("Catalog loaded from file")
			return c, SourceFile, nil
		}
		l.log.Warn().Err(parseErr).Str("path", l.path).Msg("Ignoring malformed exams file")
	} else if !errors.Is(err, os.ErrNotExist) {
		l.log.Warn().Err(err).Str("path", l.path).Msg("Exams file unreadable")
	}

	raw, err := l.store.GetCatalog(ctx)
	if err != nil {
		return nil, SourceNone, fmt.Errorf("load imported catalog: %w", err)
	}
	if raw != nil {
		c, parseErr := Parse(raw)
		if parseErr == nil {
			l.log.Info().Int("exams", c.Len()).Msg("Catalog loaded from imported copy")
			return c, SourceImported, nil
		}
		l.log.Warn().Err(parseErr).Msg("Discarding malformed imported catalog")
		if delErr := l.store.DeleteCatalog(ctx); delErr != nil {
			return nil, SourceNone, fmt.Errorf("discard malformed catalog: %w", delErr)
		}
	}

	l.log.Info().Msg("No exam data found; waiting for import")
	return Empty(), SourceNone, nil
}
