// Package session defines the story session domain: an arbitrary document
// tree plus the bookkeeping the store derives from mutations.
//
// Bookkeeping lives inside the same document tree as caller content, under
// reserved underscore-prefixed keys, so a full document read always reflects
// it. The reserved keys are part of the session contract; callers of the
// core go through the typed accessors and never touch them directly.
package session

import (
	"encoding/json"
	"fmt"
	"time"
)

// Reserved document keys for store-maintained bookkeeping. Caller-chosen
// content keys must not start with an underscore.
const (
	keyPendingDeltas   = "_pendingDeltas"
	keyLastNarrative   = "_lastNarrative"
	keyDecisionHistory = "_decisionHistory"
	keyActiveChoices   = "_activeChoices"
	keyLastChoice      = "_lastChoice"
)

// historyCap bounds the rolling decision history. Oldest entries are evicted
// first once the cap is exceeded.
const historyCap = 10

// Session is one independent story instance identified by an opaque id.
type Session struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
	Document  map[string]any
}

// DeltaEntry records one field's observed change since the pending log was
// last cleared.
type DeltaEntry struct {
	Field        string
	InitialValue any
	FinalValue   any
	Timestamp    time.Time
	Description  string
}

// HistoryEntry records one completed decision point.
type HistoryEntry struct {
	Narrative      string
	Options        []string
	SelectedOption string
	SelectedIndex  int
	ChosenAt       time.Time
}

// ChoiceSelection records the most recent recorded choice.
type ChoiceSelection struct {
	Option   string
	Index    int
	ChosenAt time.Time
}

// CloneDocument deep-copies a document tree. Maps and slices are copied
// recursively; scalars are copied by value.
func CloneDocument(doc map[string]any) map[string]any {
	if doc == nil {
		return map[string]any{}
	}
	clone := cloneValue(doc)
	return clone.(map[string]any)
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, child := range v {
			out[key] = cloneValue(child)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, child := range v {
			out[i] = cloneValue(child)
		}
		return out
	default:
		return v
	}
}

// Clone deep-copies the session, including its document.
func (s Session) Clone() Session {
	s.Document = CloneDocument(s.Document)
	return s
}

// RecordDelta upserts the pending delta entry for field. The first write to
// a field since the last clear captures initial as the entry's initial
// value; later writes keep it and only refresh the final value, timestamp,
// and description.
func RecordDelta(doc map[string]any, field string, initial, final any, now time.Time) {
	deltas, _ := doc[keyPendingDeltas].([]any)

	for _, raw := range deltas {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if entry["field"] != field {
			continue
		}
		entry["finalValue"] = final
		entry["timestamp"] = now
		entry["description"] = describeDelta(field, entry["initialValue"], final)
		return
	}

	doc[keyPendingDeltas] = append(deltas, map[string]any{
		"field":        field,
		"initialValue": initial,
		"finalValue":   final,
		"timestamp":    now,
		"description":  describeDelta(field, initial, final),
	})
}

// ClearPendingDeltas empties the pending delta log.
func ClearPendingDeltas(doc map[string]any) {
	doc[keyPendingDeltas] = []any{}
}

// SetNarrative records the last narrative text shown. If the document holds
// a "story" map by caller convention, its progress entry tracks the same
// text.
func SetNarrative(doc map[string]any, text string) {
	doc[keyLastNarrative] = text
	if story, ok := doc["story"].(map[string]any); ok {
		story["progress"] = text
	}
}

// SetActiveChoices stores the offered choice set verbatim.
func SetActiveChoices(doc map[string]any, options []string) {
	stored := make([]any, len(options))
	for i, option := range options {
		stored[i] = option
	}
	doc[keyActiveChoices] = stored
}

// AppendHistory appends a completed decision point, evicting the oldest
// entry once the rolling cap is exceeded.
func AppendHistory(doc map[string]any, entry HistoryEntry) {
	history, _ := doc[keyDecisionHistory].([]any)

	options := make([]any, len(entry.Options))
	for i, option := range entry.Options {
		options[i] = option
	}
	history = append(history, map[string]any{
		"narrative":      entry.Narrative,
		"options":        options,
		"selectedOption": entry.SelectedOption,
		"selectedIndex":  entry.SelectedIndex,
		"chosenAt":       entry.ChosenAt,
	})
	if len(history) > historyCap {
		history = history[len(history)-historyCap:]
	}
	doc[keyDecisionHistory] = history
}

// SetLastChoice records the most recent selection.
func SetLastChoice(doc map[string]any, selection ChoiceSelection) {
	doc[keyLastChoice] = map[string]any{
		"option":   selection.Option,
		"index":    selection.Index,
		"chosenAt": selection.ChosenAt,
	}
}

// PendingDeltas decodes the pending delta log.
func (s Session) PendingDeltas() []DeltaEntry {
	raw, _ := s.Document[keyPendingDeltas].([]any)
	deltas := make([]DeltaEntry, 0, len(raw))
	for _, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		field, _ := entry["field"].(string)
		description, _ := entry["description"].(string)
		timestamp, _ := entry["timestamp"].(time.Time)
		deltas = append(deltas, DeltaEntry{
			Field:        field,
			InitialValue: entry["initialValue"],
			FinalValue:   entry["finalValue"],
			Timestamp:    timestamp,
			Description:  description,
		})
	}
	return deltas
}

// LastNarrative returns the last narrative text, or "" when none was set.
func (s Session) LastNarrative() string {
	text, _ := s.Document[keyLastNarrative].(string)
	return text
}

// ActiveChoices returns the currently offered choice set.
func (s Session) ActiveChoices() []string {
	raw, _ := s.Document[keyActiveChoices].([]any)
	options := make([]string, 0, len(raw))
	for _, item := range raw {
		if option, ok := item.(string); ok {
			options = append(options, option)
		}
	}
	return options
}

// History decodes the rolling decision history, oldest first.
func (s Session) History() []HistoryEntry {
	raw, _ := s.Document[keyDecisionHistory].([]any)
	entries := make([]HistoryEntry, 0, len(raw))
	for _, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		narrative, _ := entry["narrative"].(string)
		selectedOption, _ := entry["selectedOption"].(string)
		selectedIndex, _ := entry["selectedIndex"].(int)
		chosenAt, _ := entry["chosenAt"].(time.Time)
		rawOptions, _ := entry["options"].([]any)
		options := make([]string, 0, len(rawOptions))
		for _, rawOption := range rawOptions {
			if option, ok := rawOption.(string); ok {
				options = append(options, option)
			}
		}
		entries = append(entries, HistoryEntry{
			Narrative:      narrative,
			Options:        options,
			SelectedOption: selectedOption,
			SelectedIndex:  selectedIndex,
			ChosenAt:       chosenAt,
		})
	}
	return entries
}

// LastChoice returns the most recent recorded selection, if any.
func (s Session) LastChoice() (ChoiceSelection, bool) {
	entry, ok := s.Document[keyLastChoice].(map[string]any)
	if !ok {
		return ChoiceSelection{}, false
	}
	option, _ := entry["option"].(string)
	index, _ := entry["index"].(int)
	chosenAt, _ := entry["chosenAt"].(time.Time)
	return ChoiceSelection{Option: option, Index: index, ChosenAt: chosenAt}, true
}

// describeDelta renders the human-readable change summary, e.g.
// "characters[0].hp: 100 → 80".
func describeDelta(field string, initial, final any) string {
	return fmt.Sprintf("%s: %s → %s", field, formatValue(initial), formatValue(final))
}

func formatValue(value any) string {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprintf("%v", value)
	}
	return string(data)
}
