package domain

import (
	"time"

	"github.com/louisbranch/taleweave/internal/story/session"
)

// SessionView is the full session payload returned by every story tool.
type SessionView struct {
	ID            string         `json:"id" jsonschema:"session identifier"`
	CreatedAt     string         `json:"created_at" jsonschema:"RFC3339 timestamp when the session was created"`
	UpdatedAt     string         `json:"updated_at" jsonschema:"RFC3339 timestamp when the session was last updated"`
	Document      map[string]any `json:"document" jsonschema:"full game document including bookkeeping fields"`
	Narrative     string         `json:"narrative,omitempty" jsonschema:"last narrative text shown to the player"`
	ActiveChoices []string       `json:"active_choices,omitempty" jsonschema:"currently offered choice set"`
	PendingDeltas []DeltaView    `json:"pending_deltas,omitempty" jsonschema:"field changes accumulated since choices were last offered"`
	History       []HistoryView  `json:"history,omitempty" jsonschema:"rolling decision history, oldest first, capped at 10"`
	LastChoice    *ChoiceView    `json:"last_choice,omitempty" jsonschema:"most recent recorded selection"`
}

// DeltaView is one pending field change.
type DeltaView struct {
	Field        string `json:"field" jsonschema:"path expression that was written"`
	InitialValue any    `json:"initial_value" jsonschema:"value observed before the first write since the last clear"`
	FinalValue   any    `json:"final_value" jsonschema:"value after the most recent write"`
	Timestamp    string `json:"timestamp" jsonschema:"RFC3339 timestamp of the most recent write"`
	Description  string `json:"description" jsonschema:"human-readable change summary"`
}

// HistoryView is one completed decision point.
type HistoryView struct {
	Narrative      string   `json:"narrative" jsonschema:"narrative text that was shown"`
	Options        []string `json:"options" jsonschema:"choice set that was offered"`
	SelectedOption string   `json:"selected_option" jsonschema:"option text that was chosen"`
	SelectedIndex  int      `json:"selected_index" jsonschema:"zero-based index of the chosen option"`
	ChosenAt       string   `json:"chosen_at" jsonschema:"RFC3339 timestamp of the selection"`
}

// ChoiceView is the most recent recorded selection.
type ChoiceView struct {
	Option   string `json:"option" jsonschema:"option text that was chosen"`
	Index    int    `json:"index" jsonschema:"zero-based index of the chosen option"`
	ChosenAt string `json:"chosen_at" jsonschema:"RFC3339 timestamp of the selection"`
}

// NewSessionView builds the tool output payload from a session.
func NewSessionView(s session.Session) SessionView {
	view := SessionView{
		ID:            s.ID,
		CreatedAt:     formatTimestamp(s.CreatedAt),
		UpdatedAt:     formatTimestamp(s.UpdatedAt),
		Document:      s.Document,
		Narrative:     s.LastNarrative(),
		ActiveChoices: s.ActiveChoices(),
	}

	for _, delta := range s.PendingDeltas() {
		view.PendingDeltas = append(view.PendingDeltas, DeltaView{
			Field:        delta.Field,
			InitialValue: delta.InitialValue,
			FinalValue:   delta.FinalValue,
			Timestamp:    formatTimestamp(delta.Timestamp),
			Description:  delta.Description,
		})
	}

	for _, entry := range s.History() {
		view.History = append(view.History, HistoryView{
			Narrative:      entry.Narrative,
			Options:        entry.Options,
			SelectedOption: entry.SelectedOption,
			SelectedIndex:  entry.SelectedIndex,
			ChosenAt:       formatTimestamp(entry.ChosenAt),
		})
	}

	if selection, ok := s.LastChoice(); ok {
		view.LastChoice = &ChoiceView{
			Option:   selection.Option,
			Index:    selection.Index,
			ChosenAt: formatTimestamp(selection.ChosenAt),
		}
	}

	return view
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
