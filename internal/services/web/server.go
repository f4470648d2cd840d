package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/louisbranch/taleweave/internal/platform/errors"
	"github.com/louisbranch/taleweave/internal/story/session"
)

// SessionReader is the slice of the session store the viewer needs.
type SessionReader interface {
	List(ctx context.Context) ([]session.Session, error)
	Get(ctx context.Context, sessionID string) (session.Session, error)
	SelectChoice(ctx context.Context, sessionID, selectedOption string, selectedIndex int) (session.Session, error)
}

// Server hosts the session viewer endpoints.
type Server struct {
	store SessionReader
}

// NewServer builds a viewer bound to a session store.
func NewServer(store SessionReader) *Server {
	return &Server{store: store}
}

// RegisterRoutes registers viewer HTTP endpoints on the provided mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	if mux == nil {
		return
	}
	mux.HandleFunc("/sessions", s.handleSessionList)
	mux.HandleFunc("/sessions/", s.handleSessionRoutes)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/sessions", http.StatusFound)
	})
	mux.HandleFunc("/up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}

type sessionListEntry struct {
	ID        string
	UpdatedAt string
	Narrative string
}

type sessionListView struct {
	Sessions []sessionListEntry
}

type choiceOption struct {
	Index  int
	Option string
}

type deltaRow struct {
	Description string
}

type historyRow struct {
	Narrative      string
	SelectedOption string
	ChosenAt       string
}

type sessionView struct {
	ID            string
	Narrative     string
	Choices       []choiceOption
	PendingDeltas []deltaRow
	History       []historyRow
	DocumentJSON  string
}

func (s *Server) handleSessionList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessions, err := s.store.List(r.Context())
	if err != nil {
		s.renderError(w, err)
		return
	}

	view := sessionListView{Sessions: make([]sessionListEntry, 0, len(sessions))}
	for _, sess := range sessions {
		view.Sessions = append(view.Sessions, sessionListEntry{
			ID:        sess.ID,
			UpdatedAt: formatTime(sess.UpdatedAt),
			Narrative: sess.LastNarrative(),
		})
	}
	if err := templates.ExecuteTemplate(w, "sessions.html", view); err != nil {
		http.Error(w, "failed to render sessions", http.StatusInternalServerError)
	}
}

// handleSessionRoutes dispatches /sessions/{id} and /sessions/{id}/choose.
func (s *Server) handleSessionRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/sessions/")
	sessionID, action, _ := strings.Cut(rest, "/")
	if sessionID == "" {
		http.NotFound(w, r)
		return
	}

	switch action {
	case "":
		s.handleSessionDetail(w, r, sessionID)
	case "choose":
		s.handleSessionChoose(w, r, sessionID)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleSessionDetail(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sess, err := s.store.Get(r.Context(), sessionID)
	if err != nil {
		s.renderError(w, err)
		return
	}
	if err := templates.ExecuteTemplate(w, "session.html", newSessionView(sess)); err != nil {
		http.Error(w, "failed to render session", http.StatusInternalServerError)
	}
}

func (s *Server) handleSessionChoose(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	option := r.PostFormValue("option")
	index, err := strconv.Atoi(r.PostFormValue("index"))
	if err != nil {
		http.Error(w, "index must be an integer", http.StatusBadRequest)
		return
	}

	if _, err := s.store.SelectChoice(r.Context(), sessionID, option, index); err != nil {
		s.renderError(w, err)
		return
	}
	http.Redirect(w, r, "/sessions/"+sessionID, http.StatusSeeOther)
}

func newSessionView(sess session.Session) sessionView {
	view := sessionView{
		ID:        sess.ID,
		Narrative: sess.LastNarrative(),
	}
	for i, option := range sess.ActiveChoices() {
		view.Choices = append(view.Choices, choiceOption{Index: i, Option: option})
	}
	for _, delta := range sess.PendingDeltas() {
		view.PendingDeltas = append(view.PendingDeltas, deltaRow{Description: delta.Description})
	}
	for _, entry := range sess.History() {
		view.History = append(view.History, historyRow{
			Narrative:      entry.Narrative,
			SelectedOption: entry.SelectedOption,
			ChosenAt:       formatTime(entry.ChosenAt),
		})
	}
	if data, err := json.MarshalIndent(sess.Document, "", "  "); err == nil {
		view.DocumentJSON = string(data)
	}
	return view
}

type errorView struct {
	Message string
}

// renderError maps store errors onto HTTP status codes and renders the
// shared error page. Unknown errors stay generic so internals do not leak.
func (s *Server) renderError(w http.ResponseWriter, err error) {
	status := errors.HTTPStatus(err)
	message := "an unexpected error occurred"
	if status != http.StatusInternalServerError {
		message = err.Error()
	}
	w.WriteHeader(status)
	if renderErr := templates.ExecuteTemplate(w, "error.html", errorView{Message: message}); renderErr != nil {
		log.Printf("render error page: %v", renderErr)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// ListenAndServe runs the viewer on addr until the context is cancelled.
func ListenAndServe(ctx context.Context, addr string, store SessionReader) error {
	mux := http.NewServeMux()
	NewServer(store).RegisterRoutes(mux)

	srv := &http.Server{Addr: addr, Handler: mux}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown session viewer: %w", err)
		}
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("serve session viewer: %w", err)
		}
		return nil
	}
}
