// Package store owns the in-memory session collection and implements the
// core operations an external narrator drives a story with.
//
// The store is a single in-process actor: operations against the same
// session id must be issued sequentially. The mutex below keeps the session
// map itself consistent across goroutines, but interleaving two logical
// operations against one id from concurrent callers is undefined behavior.
package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/louisbranch/taleweave/internal/platform/errors"
	"github.com/louisbranch/taleweave/internal/platform/id"
	"github.com/louisbranch/taleweave/internal/story/path"
	"github.com/louisbranch/taleweave/internal/story/session"
)

// Store keeps story sessions in memory. Construct one per process with New
// and pass it by reference; it is never a package-level global.
type Store struct {
	mu          sync.Mutex
	sessions    map[string]session.Session
	clock       func() time.Time
	idGenerator func() (string, error)
}

// New creates an empty session store with default dependencies.
func New() *Store {
	return &Store{
		sessions:    make(map[string]session.Session),
		clock:       time.Now,
		idGenerator: id.NewID,
	}
}

// Create registers a new session holding a deep copy of initialDocument, so
// the caller's original tree can be freely mutated afterwards. No schema is
// enforced on the document.
func (s *Store) Create(ctx context.Context, initialDocument map[string]any) (session.Session, error) {
	if err := ctxErr(ctx); err != nil {
		return session.Session{}, err
	}

	sessionID, err := s.idGenerator()
	if err != nil {
		return session.Session{}, fmt.Errorf("generate session id: %w", err)
	}

	now := s.clock().UTC()
	created := session.Session{
		ID:        sessionID,
		CreatedAt: now,
		UpdatedAt: now,
		Document:  session.CloneDocument(initialDocument),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = created

	return created.Clone(), nil
}

// Get returns the session unmodified. It never bumps updatedAt and never
// touches delta or history state.
func (s *Store) Get(ctx context.Context, sessionID string) (session.Session, error) {
	if err := ctxErr(ctx); err != nil {
		return session.Session{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.sessions[sessionID]
	if !ok {
		return session.Session{}, notFound(sessionID)
	}
	return current.Clone(), nil
}

// List returns all sessions ordered by creation time.
func (s *Store) List(ctx context.Context) ([]session.Session, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := make([]session.Session, 0, len(s.sessions))
	for _, current := range s.sessions {
		sessions = append(sessions, current.Clone())
	}
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
		}
		return sessions[i].ID < sessions[j].ID
	})
	return sessions, nil
}

// Mutate writes value at the location addressed by pathExpr and upserts the
// pending delta entry for that field. The write happens on a copy that is
// swapped in only on success, so a failed mutate leaves the prior document
// untouched.
func (s *Store) Mutate(ctx context.Context, sessionID, pathExpr string, value any) (session.Session, error) {
	if err := ctxErr(ctx); err != nil {
		return session.Session{}, err
	}

	tokens, err := path.Parse(pathExpr)
	if err != nil {
		return session.Session{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.sessions[sessionID]
	if !ok {
		return session.Session{}, notFound(sessionID)
	}

	updated := current.Clone()
	initial, _ := path.Read(updated.Document, tokens)
	if err := path.Write(updated.Document, tokens, value); err != nil {
		return session.Session{}, err
	}

	now := s.clock().UTC()
	session.RecordDelta(updated.Document, path.Canonical(pathExpr), initial, value, now)
	updated.UpdatedAt = now

	s.sessions[sessionID] = updated
	return updated.Clone(), nil
}

// AdvanceNarrative records the narrative text shown to the player. It
// produces no delta entry; narration is not a tracked field mutation.
func (s *Store) AdvanceNarrative(ctx context.Context, sessionID, text string) (session.Session, error) {
	if err := ctxErr(ctx); err != nil {
		return session.Session{}, err
	}
	if strings.TrimSpace(text) == "" {
		return session.Session{}, errors.New(errors.CodeNarrativeEmpty, "narrative text is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.sessions[sessionID]
	if !ok {
		return session.Session{}, notFound(sessionID)
	}

	updated := current.Clone()
	session.SetNarrative(updated.Document, text)
	updated.UpdatedAt = s.clock().UTC()

	s.sessions[sessionID] = updated
	return updated.Clone(), nil
}

// OfferChoices stores the active choice set and clears the pending delta
// log; this is the only operation that clears it. The returned session still
// carries the deltas accumulated since the prior clear, so the caller can
// render "what changed" before they are gone on the next read.
func (s *Store) OfferChoices(ctx context.Context, sessionID string, options []string) (session.Session, error) {
	if err := ctxErr(ctx); err != nil {
		return session.Session{}, err
	}
	if len(options) == 0 {
		return session.Session{}, errors.New(errors.CodeChoicesEmpty, "at least one choice is required")
	}
	for i, option := range options {
		if strings.TrimSpace(option) == "" {
			return session.Session{}, errors.WithMetadata(errors.CodeChoiceBlank,
				"choices must not be blank", map[string]string{"index": fmt.Sprintf("%d", i)})
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.sessions[sessionID]
	if !ok {
		return session.Session{}, notFound(sessionID)
	}

	updated := current.Clone()
	session.SetActiveChoices(updated.Document, options)
	updated.UpdatedAt = s.clock().UTC()

	stored := updated.Clone()
	session.ClearPendingDeltas(stored.Document)
	s.sessions[sessionID] = stored

	return updated, nil
}

// SelectChoice appends a decision point built from the current narrative,
// the active choice set, and the given selection. It requires both a
// narrative and an active choice set; without them there is nothing to have
// chosen from. The active choice set is left in place so a late duplicate
// read still shows what was offered.
func (s *Store) SelectChoice(ctx context.Context, sessionID, selectedOption string, selectedIndex int) (session.Session, error) {
	if err := ctxErr(ctx); err != nil {
		return session.Session{}, err
	}
	if selectedIndex < 0 {
		return session.Session{}, errors.New(errors.CodeChoiceIndexNegative, "selected index must not be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.sessions[sessionID]
	if !ok {
		return session.Session{}, notFound(sessionID)
	}

	narrative := current.LastNarrative()
	if narrative == "" {
		return session.Session{}, errors.New(errors.CodeNoNarrative, "no narrative has been advanced for this session")
	}
	choices := current.ActiveChoices()
	if len(choices) == 0 {
		return session.Session{}, errors.New(errors.CodeNoPendingChoices, "no choices have been offered for this session")
	}

	now := s.clock().UTC()
	updated := current.Clone()
	session.AppendHistory(updated.Document, session.HistoryEntry{
		Narrative:      narrative,
		Options:        choices,
		SelectedOption: selectedOption,
		SelectedIndex:  selectedIndex,
		ChosenAt:       now,
	})
	session.SetLastChoice(updated.Document, session.ChoiceSelection{
		Option:   selectedOption,
		Index:    selectedIndex,
		ChosenAt: now,
	})
	updated.UpdatedAt = now

	s.sessions[sessionID] = updated
	return updated.Clone(), nil
}

// Delete removes a session. Sessions otherwise live until the process ends.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return notFound(sessionID)
	}
	delete(s.sessions, sessionID)
	return nil
}

func notFound(sessionID string) *errors.Error {
	return errors.WithMetadata(errors.CodeNotFound,
		fmt.Sprintf("session %s not found", sessionID),
		map[string]string{"session_id": sessionID})
}

func ctxErr(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}
