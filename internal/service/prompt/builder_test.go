package prompt

import (
	"strings"
	"testing"

	"github.com/zhouzirui/z-saga/backend/internal/model/story"
)

func TestStartPromptIncludesBudgetAndFormat(t *testing.T) {
	b := NewBuilder(Options{})
	p := b.Start("Koroghlu was the son of a blinded stable master.", "koroghlu", 12)

	for _, want := range []string{
		"epic tale of koroghlu",
		"Story Content:\nKoroghlu was the son",
		"total of 12 steps",
		"Introduction:",
		"Choices:",
		"neutral, tense, happy",
	} {
		if !strings.Contains(p, want) {
			t.Fatalf("start prompt missing %q:\n%s", want, p)
		}
	}
	if strings.Contains(p, "truncated") {
		t.Fatalf("short reference should not be marked as truncated")
	}
}

func TestStartPromptMarksTruncatedExcerpt(t *testing.T) {
	b := NewBuilder(Options{StartExcerpt: 10})
	p := b.Start(strings.Repeat("ə", 25), "dedegorgud", 10)

	if !strings.Contains(p, "excerpt, truncated") {
		t.Fatalf("expected truncation notice, got:\n%s", p)
	}
	if !strings.Contains(p, strings.Repeat("ə", 10)+"...") {
		t.Fatalf("expected 10 rune excerpt")
	}
	if strings.Contains(p, strings.Repeat("ə", 11)) {
		t.Fatalf("excerpt longer than limit")
	}
}

func TestContinuePromptUsesLastThreeEntries(t *testing.T) {
	history := []story.HistoryEntry{
		{NodeText: "first scene", ChoiceText: "a"},
		{NodeText: "second scene", ChoiceText: "b"},
		{NodeText: "third scene", ChoiceText: "c"},
		{NodeText: "fourth scene", ChoiceText: "d"},
	}
	b := NewBuilder(DefaultOptions())
	p := b.Continue(ContinueInput{
		Reference:   "reference",
		StoryName:   "koroghlu",
		Choice:      "Ride to Chamlibel",
		History:     history,
		ChoicesMade: 5,
		MaxChoices:  10,
	})

	if strings.Contains(p, "first scene") {
		t.Fatalf("oldest entry should be dropped:\n%s", p)
	}
	for _, want := range []string{
		"1. second scene -> Choice: b",
		"3. fourth scene -> Choice: d",
		`The protagonist chose: "Ride to Chamlibel"`,
		"Choices made so far: 5/10",
		"5 choices remaining",
		"- [Choice 5: 8-15 words]",
	} {
		if !strings.Contains(p, want) {
			t.Fatalf("continue prompt missing %q:\n%s", want, p)
		}
	}
	if strings.Contains(p, "Similarity:") {
		t.Fatalf("continuation prompt should not ask for a similarity score")
	}
}

func TestContinuePromptSwitchesToEnding(t *testing.T) {
	b := NewBuilder(DefaultOptions())
	p := b.Continue(ContinueInput{
		Reference:   "reference",
		StoryName:   "koroghlu",
		Choice:      "Accept the duel",
		ChoicesMade: 10,
		MaxChoices:  10,
	})

	if !strings.Contains(p, "must be the ENDING") {
		t.Fatalf("expected ending instruction:\n%s", p)
	}
	if !strings.Contains(p, "Similarity:") {
		t.Fatalf("ending prompt should ask for a similarity score")
	}
	if strings.Contains(p, "Choices:\n") || strings.Contains(p, "choices remaining") {
		t.Fatalf("ending prompt should not ask for choices:\n%s", p)
	}
	if strings.Contains(p, "Previous story progression") {
		t.Fatalf("empty history should not render a section")
	}
}

func TestTruncateRunes(t *testing.T) {
	if got, cut := truncateRunes("abc", 3); got != "abc" || cut {
		t.Fatalf("unexpected truncation: %q %v", got, cut)
	}
	if got, cut := truncateRunes("çöğüş", 2); got != "çö" || !cut {
		t.Fatalf("unexpected truncation: %q %v", got, cut)
	}
}
