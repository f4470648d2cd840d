package session

import (
	"fmt"
	"reflect"
	"testing"
	"time"
)

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestCloneDocumentIsDeep(t *testing.T) {
	original := map[string]any{
		"title": "T",
		"characters": []any{
			map[string]any{"name": "Hero", "hp": 100},
		},
	}

	clone := CloneDocument(original)
	clone["title"] = "changed"
	clone["characters"].([]any)[0].(map[string]any)["hp"] = 1

	if original["title"] != "T" {
		t.Fatalf("title = %v, want T", original["title"])
	}
	hero := original["characters"].([]any)[0].(map[string]any)
	if hero["hp"] != 100 {
		t.Fatalf("hp = %v, want 100", hero["hp"])
	}
}

func TestCloneDocumentNil(t *testing.T) {
	clone := CloneDocument(nil)
	if clone == nil {
		t.Fatal("expected non-nil document")
	}
	if len(clone) != 0 {
		t.Fatalf("expected empty document, got %v", clone)
	}
}

func TestRecordDeltaUpsertsByField(t *testing.T) {
	doc := map[string]any{}

	RecordDelta(doc, "characters[0].hp", 100, 90, testTime)
	RecordDelta(doc, "characters[0].hp", 90, 80, testTime.Add(time.Second))

	deltas := Session{Document: doc}.PendingDeltas()
	if len(deltas) != 1 {
		t.Fatalf("len = %d, want 1", len(deltas))
	}
	entry := deltas[0]
	if entry.Field != "characters[0].hp" {
		t.Fatalf("field = %q", entry.Field)
	}
	if entry.InitialValue != 100 {
		t.Fatalf("initial = %v, want 100", entry.InitialValue)
	}
	if entry.FinalValue != 80 {
		t.Fatalf("final = %v, want 80", entry.FinalValue)
	}
	if !entry.Timestamp.Equal(testTime.Add(time.Second)) {
		t.Fatalf("timestamp = %v", entry.Timestamp)
	}
	if entry.Description != "characters[0].hp: 100 → 80" {
		t.Fatalf("description = %q", entry.Description)
	}
}

func TestRecordDeltaSeparateFields(t *testing.T) {
	doc := map[string]any{}

	RecordDelta(doc, "world.location", "tavern", "forest", testTime)
	RecordDelta(doc, "characters[0].hp", 100, 80, testTime)

	deltas := Session{Document: doc}.PendingDeltas()
	if len(deltas) != 2 {
		t.Fatalf("len = %d, want 2", len(deltas))
	}
	if deltas[0].Description != `world.location: "tavern" → "forest"` {
		t.Fatalf("description = %q", deltas[0].Description)
	}
}

func TestRecordDeltaAbsentInitialRendersNull(t *testing.T) {
	doc := map[string]any{}

	RecordDelta(doc, "world.weather", nil, "rain", testTime)

	deltas := Session{Document: doc}.PendingDeltas()
	if deltas[0].Description != `world.weather: null → "rain"` {
		t.Fatalf("description = %q", deltas[0].Description)
	}
}

func TestClearPendingDeltas(t *testing.T) {
	doc := map[string]any{}
	RecordDelta(doc, "a", 1, 2, testTime)

	ClearPendingDeltas(doc)

	if deltas := (Session{Document: doc}).PendingDeltas(); len(deltas) != 0 {
		t.Fatalf("len = %d, want 0", len(deltas))
	}
}

func TestSetNarrative(t *testing.T) {
	doc := map[string]any{}
	SetNarrative(doc, "You are hit.")

	s := Session{Document: doc}
	if s.LastNarrative() != "You are hit." {
		t.Fatalf("narrative = %q", s.LastNarrative())
	}
}

func TestSetNarrativeTracksStoryProgress(t *testing.T) {
	doc := map[string]any{"story": map[string]any{"chapter": 2}}
	SetNarrative(doc, "The gates open.")

	story := doc["story"].(map[string]any)
	if story["progress"] != "The gates open." {
		t.Fatalf("progress = %v", story["progress"])
	}
	if story["chapter"] != 2 {
		t.Fatalf("chapter = %v, want 2", story["chapter"])
	}
}

func TestSetActiveChoices(t *testing.T) {
	doc := map[string]any{}
	SetActiveChoices(doc, []string{"Flee", "Fight"})

	choices := Session{Document: doc}.ActiveChoices()
	if !reflect.DeepEqual(choices, []string{"Flee", "Fight"}) {
		t.Fatalf("choices = %v", choices)
	}
}

func TestAppendHistoryEvictsOldest(t *testing.T) {
	doc := map[string]any{}
	for i := 0; i < historyCap+3; i++ {
		AppendHistory(doc, HistoryEntry{
			Narrative:      fmt.Sprintf("scene %d", i),
			Options:        []string{"a", "b"},
			SelectedOption: "a",
			SelectedIndex:  0,
			ChosenAt:       testTime.Add(time.Duration(i) * time.Minute),
		})
	}

	history := Session{Document: doc}.History()
	if len(history) != historyCap {
		t.Fatalf("len = %d, want %d", len(history), historyCap)
	}
	if history[0].Narrative != "scene 3" {
		t.Fatalf("oldest = %q, want scene 3", history[0].Narrative)
	}
	if history[historyCap-1].Narrative != fmt.Sprintf("scene %d", historyCap+2) {
		t.Fatalf("newest = %q", history[historyCap-1].Narrative)
	}
}

func TestLastChoice(t *testing.T) {
	doc := map[string]any{}
	s := Session{Document: doc}

	if _, ok := s.LastChoice(); ok {
		t.Fatal("expected no last choice on a fresh document")
	}

	SetLastChoice(doc, ChoiceSelection{Option: "Fight", Index: 1, ChosenAt: testTime})

	selection, ok := s.LastChoice()
	if !ok {
		t.Fatal("expected a last choice")
	}
	if selection.Option != "Fight" || selection.Index != 1 {
		t.Fatalf("selection = %+v", selection)
	}
}

func TestSessionCloneIsolatesDocument(t *testing.T) {
	original := Session{
		ID:       "s1",
		Document: map[string]any{"title": "T"},
	}

	clone := original.Clone()
	clone.Document["title"] = "changed"

	if original.Document["title"] != "T" {
		t.Fatalf("title = %v, want T", original.Document["title"])
	}
}
