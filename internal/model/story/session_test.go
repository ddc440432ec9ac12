package story

import (
	"errors"
	"fmt"
	"testing"
)

func TestSessionBudget(t *testing.T) {
	s := Session{MaxChoices: 10, ChoicesMade: 4}
	if got := s.ChoicesRemaining(); got != 6 {
		t.Fatalf("expected 6 remaining, got %d", got)
	}
	if s.Terminal() {
		t.Fatal("session should not be terminal")
	}

	s.ChoicesMade = 10
	if !s.Terminal() || s.ChoicesRemaining() != 0 {
		t.Fatal("session should be terminal with nothing remaining")
	}
}

func TestSessionCloneIsDeep(t *testing.T) {
	intro := "Once"
	s := Session{
		History:     []HistoryEntry{{NodeText: "a"}},
		CurrentNode: NarrativeNode{Introduction: &intro, Choices: []string{"x"}},
	}

	c := s.Clone()
	c.History[0].NodeText = "b"
	c.CurrentNode.Choices[0] = "y"
	*c.CurrentNode.Introduction = "Twice"

	if s.History[0].NodeText != "a" || s.CurrentNode.Choices[0] != "x" || *s.CurrentNode.Introduction != "Once" {
		t.Fatal("clone shares memory with original")
	}
}

func TestDisplayMood(t *testing.T) {
	cases := map[string]string{"Tense": MoodTense, "happy": MoodHappy, "furious": MoodNeutral, "": MoodNeutral}
	for raw, want := range cases {
		n := NarrativeNode{Mood: raw}
		if got := n.DisplayMood(); got != want {
			t.Fatalf("DisplayMood(%q) = %q, want %q", raw, got, want)
		}
		if n.Mood != raw {
			t.Fatalf("raw mood rewritten")
		}
	}
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("%w: session abc", ErrNotFound)
	if KindOf(wrapped) != "not_found" {
		t.Fatalf("unexpected kind %s", KindOf(wrapped))
	}
	if KindOf(errors.New("boom")) != "internal_error" {
		t.Fatal("expected internal_error for unknown errors")
	}
}
