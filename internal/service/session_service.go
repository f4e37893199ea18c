package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/examdeck/examdeck-backend/internal/model"
	"github.com/examdeck/examdeck-backend/internal/session"
	"github.com/examdeck/examdeck-backend/internal/store"
)

// ErrExamNotFound is returned when the active catalog has no exam
// with the requested id.
var ErrExamNotFound = errors.New("exam not found")

// Notifier receives a fresh snapshot after every state change, so the
// presentation adapter can re-render.
type Notifier interface {
	Publish(examID int, snap *model.SessionSnapshot)
}

// SessionService orchestrates the session state machine against the
// catalog and the store: it opens sessions (reading the store once),
// applies mutations, persists synchronously after each one and fans
// the resulting snapshot out to subscribers.
type SessionService struct {
	catalog  *CatalogService
	store    *store.Store
	notifier Notifier
	log      zerolog.Logger

	mu     sync.Mutex
	active map[int]*session.Session
}

// NewSessionService creates a new SessionService. notifier may be nil.
func NewSessionService(catalogSvc *CatalogService, st *store.Store, notifier Notifier, log zerolog.Logger) *SessionService {
	return &SessionService{
		catalog:  catalogSvc,
		store:    st,
		notifier: notifier,
		log:      log.With().Str("component", "session_service").Logger(),
		active:   map[int]*session.Session{},
	}
}

// Open returns the snapshot of the session for examID, loading it from
// the store (or creating it fresh) on first access.
func (s *SessionService) Open(ctx context.Context, examID int) (*model.SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.open(ctx, examID)
	if err != nil {
		return nil, err
	}
	return sess.Snapshot(), nil
}

// open loads or creates the session for examID. Callers hold s.mu.
func (s *SessionService) open(ctx context.Context, examID int) (*session.Session, error) {
	if sess, ok := s.active[examID]; ok {
		return sess, nil
	}

	exam, ok := s.catalog.Exam(examID)
	if !ok {
		return nil, ErrExamNotFound
	}

	raw, err := s.store.GetState(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var sess *session.Session
	if raw == nil {
		sess = session.New(exam)
	} else if sess, err = session.Restore(exam, raw); err != nil {
		// A record we cannot parse is discarded, not fatal.
		s.log.Warn().Err(err).Int("exam_id", examID).Msg("Discarding corrupt session record")
		if delErr := s.store.DeleteState(ctx, examID); delErr != nil {
			return nil, fmt.Errorf("discard corrupt session: %w", delErr)
		}
		sess = session.New(exam)
	}

	s.active[examID] = sess
	return sess, nil
}

// SelectAnswer records (or toggles) an answer on the session.
func (s *SessionService) SelectAnswer(ctx context.Context, examID, questionID, answerID int) (*model.SessionSnapshot, error) {
	return s.apply(ctx, examID, func(sess *session.Session) bool {
		return sess.SelectAnswer(questionID, answerID)
	})
}

// GoNext advances navigation; at the end of the sequence it finalizes.
func (s *SessionService) GoNext(ctx context.Context, examID int) (*model.SessionSnapshot, error) {
	return s.apply(ctx, examID, (*session.Session).GoNext)
}

// GoPrevious retreats navigation.
func (s *SessionService) GoPrevious(ctx context.Context, examID int) (*model.SessionSnapshot, error) {
	return s.apply(ctx, examID, (*session.Session).GoPrevious)
}

// Reveal discloses the current question's correct answers and locks it.
func (s *SessionService) Reveal(ctx context.Context, examID int) (*model.SessionSnapshot, error) {
	return s.apply(ctx, examID, (*session.Session).Reveal)
}

// Finalize completes the attempt and moves to the summary.
func (s *SessionService) Finalize(ctx context.Context, examID int) (*model.SessionSnapshot, error) {
	return s.apply(ctx, examID, (*session.Session).Finalize)
}

// StartReviewAll walks the whole exam again from the first question.
func (s *SessionService) StartReviewAll(ctx context.Context, examID int) (*model.SessionSnapshot, error) {
	return s.apply(ctx, examID, (*session.Session).StartReviewAll)
}

// StartReviewWrong steps through incorrect-or-unanswered questions.
func (s *SessionService) StartReviewWrong(ctx context.Context, examID int) (*model.SessionSnapshot, error) {
	return s.apply(ctx, examID, (*session.Session).StartReviewWrong)
}

// Reset discards the persisted record and starts a fresh attempt.
func (s *SessionService) Reset(ctx context.Context, examID int) (*model.SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.open(ctx, examID)
	if err != nil {
		return nil, err
	}

	if err := s.store.DeleteState(ctx, examID); err != nil {
		return nil, fmt.Errorf("discard session record: %w", err)
	}
	sess.Reset()
	if err := s.persist(ctx, examID, sess); err != nil {
		return nil, err
	}

	snap := sess.Snapshot()
	s.publish(examID, snap)
	return snap, nil
}

// Summary recomputes the score tally for examID.
func (s *SessionService) Summary(ctx context.Context, examID int) (*model.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.open(ctx, examID)
	if err != nil {
		return nil, err
	}
	sum := sess.Summary()
	return &sum, nil
}

// DropActive forgets all in-memory sessions. Called when the catalog
// is replaced; sessions reload lazily against the new definitions.
func (s *SessionService) DropActive() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = map[int]*session.Session{}
}

// apply runs one mutation on the session for examID, persisting and
// publishing only when the operation reports a state change.
func (s *SessionService) apply(ctx context.Context, examID int, op func(*session.Session) bool) (*model.SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.open(ctx, examID)
	if err != nil {
		return nil, err
	}

	changed := op(sess)
	snap := sess.Snapshot()

	if changed {
		if err := s.persist(ctx, examID, sess); err != nil {
			return nil, err
		}
		s.publish(examID, snap)
	}
	return snap, nil
}

func (s *SessionService) persist(ctx context.Context, examID int, sess *session.Session) error {
	raw, err := json.Marshal(sess.State())
	if err != nil {
		return fmt.Errorf("encode session state: %w", err)
	}
	if err := s.store.PutState(ctx, examID, raw, sess.State().Finalized); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

func (s *SessionService) publish(examID int, snap *model.SessionSnapshot) {
	if s.notifier != nil {
		s.notifier.Publish(examID, snap)
	}
}
