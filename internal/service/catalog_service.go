package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/examdeck/examdeck-backend/internal/catalog"
	"github.com/examdeck/examdeck-backend/internal/model"
	"github.com/examdeck/examdeck-backend/internal/store"
)

// CatalogService owns the active exam catalog and its replacement
// lifecycle (import, sample install, discard).
type CatalogService struct {
	store  *store.Store
	loader *catalog.Loader
	log    zerolog.Logger

	mu      sync.RWMutex
	current *catalog.Catalog
	source  catalog.Source
}

// NewCatalogService creates a CatalogService around an already
// resolved catalog.
func NewCatalogService(current *catalog.Catalog, source catalog.Source, st *store.Store, loader *catalog.Loader, log zerolog.Logger) *CatalogService {
	return &CatalogService{
		store:   st,
		loader:  loader,
		log:     log.With().Str("component", "catalog_service").Logger(),
		current: current,
		source:  source,
	}
}

// Exam looks up an exam definition in the active catalog.
func (s *CatalogService) Exam(examID int) (*model.ExamDefinition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Get(examID)
}

// Source reports where the active catalog came from.
func (s *CatalogService) Source() catalog.Source {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

// List returns the exam-list entries, overlaying the completed badge
// from stored sessions.
func (s *CatalogService) List(ctx context.Context) ([]model.ExamSummary, error) {
	finalized, err := s.store.ListFinalized(ctx)
	if err != nil {
		return nil, fmt.Errorf("list finalized sessions: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Summaries(finalized), nil
}

// Import validates an uploaded exams.json payload, persists it as the
// imported copy and makes it the active catalog. Existing session
// records are kept; they are only dropped by an explicit discard.
func (s *CatalogService) Import(ctx context.Context, raw []byte) (int, error) {
	c, err := catalog.Parse(raw)
	if err != nil {
		return 0, err
	}
	if err := s.store.PutCatalog(ctx, raw); err != nil {
		return 0, fmt.Errorf("persist imported catalog: %w", err)
	}

	s.mu.Lock()
	s.current = c
	s.source = catalog.SourceImported
	s.mu.Unlock()

	s.log.Info().Int("exams", c.Len()).Msg("Catalog imported")
	return c.Len(), nil
}

// InstallSample makes the bundled sample deck the active catalog,
// persisted exactly like an uploaded file.
func (s *CatalogService) InstallSample(ctx context.Context) (int, error) {
	return s.Import(ctx, catalog.Sample())
}

// Discard drops the imported catalog copy together with every stored
// session record, then resolves the catalog again from disk.
func (s *CatalogService) Discard(ctx context.Context) error {
	if err := s.store.DeleteCatalog(ctx); err != nil {
		return fmt.Errorf("discard catalog: %w", err)
	}
	if err := s.store.ClearStates(ctx); err != nil {
		return fmt.Errorf("clear sessions: %w", err)
	}

	c, source, err := s.loader.Resolve(ctx)
	if err != nil {
		return fmt.Errorf("reload catalog: %w", err)
	}

	s.mu.Lock()
	s.current = c
	s.source = source
	s.mu.Unlock()

	s.log.Info().Str("source", string(source)).Int("exams", c.Len()).Msg("Imported data discarded")
	return nil
}
