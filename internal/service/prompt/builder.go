package prompt

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/zhouzirui/z-saga/backend/internal/model/story"
)

const (
	DefaultStartExcerpt    = 3000
	DefaultContinueExcerpt = 2000
	DefaultHistoryWindow   = 3
)

// Options bounds how much context goes into a prompt.
type Options struct {
	StartExcerpt    int
	ContinueExcerpt int
	HistoryWindow   int
}

// DefaultOptions returns the standard excerpt and history bounds.
func DefaultOptions() Options {
	return Options{
		StartExcerpt:    DefaultStartExcerpt,
		ContinueExcerpt: DefaultContinueExcerpt,
		HistoryWindow:   DefaultHistoryWindow,
	}
}

// Builder renders generator prompts. It is pure and safe for concurrent use.
type Builder struct {
	opts Options
}

// NewBuilder creates a builder; zero option values fall back to the defaults.
func NewBuilder(opts Options) *Builder {
	defaults := DefaultOptions()
	if opts.StartExcerpt <= 0 {
		opts.StartExcerpt = defaults.StartExcerpt
	}
	if opts.ContinueExcerpt <= 0 {
		opts.ContinueExcerpt = defaults.ContinueExcerpt
	}
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = defaults.HistoryWindow
	}
	return &Builder{opts: opts}
}

// ContinueInput carries everything a continuation prompt is built from.
// ChoicesMade counts the choice being submitted.
type ContinueInput struct {
	Reference   string
	StoryName   string
	Choice      string
	History     []story.HistoryEntry
	ChoicesMade int
	MaxChoices  int
}

// Start renders the opening prompt for a new session.
func (b *Builder) Start(reference, storyName string, maxChoices int) string {
	return fmt.Sprintf(`You are a master storyteller creating an interactive adventure based on the epic tale of %s.

%s

The user has selected a total of %d steps for the story. Plan the story arc so that it feels complete, meaningful, and satisfying within exactly %d steps (including the ending). The story should have a clear beginning, middle, and end.

1. INTRODUCTION: A captivating opening that sets the scene (2-3 sentences)
2. TEXT: The current story situation that presents the protagonist at a decision point (4-6 sentences)
3. MOOD: One word describing the emotional tone (choose ONLY from: %s)
4. CHOICES: Exactly 5 compelling choices that the protagonist can make (each choice should be 8-15 words)
5. CULTURAL_INFO: If there are cultural, traditional, or historical elements in this part of the story that might need explanation, provide a brief informative note (2-3 sentences). If no special cultural context is needed, omit this field.

Format your response as:
Introduction: [Your introduction here]
Text: [Your story text here]
Mood: [mood word - ONLY %s]
Choices:
- [Choice 1]
- [Choice 2]
- [Choice 3]
- [Choice 4]
- [Choice 5]
Cultural_Info: [Brief cultural explanation if needed, otherwise omit]

Make the story immersive and true to the epic's themes while allowing for player agency.`,
		storyName,
		excerptSection("Story Content", reference, b.opts.StartExcerpt),
		maxChoices,
		maxChoices,
		moodList(),
		moodList(),
	)
}

// Continue renders the prompt for the step after in.Choice. Once no choices
// remain it asks only for the ending shape.
func (b *Builder) Continue(in ContinueInput) string {
	remaining := in.MaxChoices - in.ChoicesMade

	var sb strings.Builder
	fmt.Fprintf(&sb, "Continue this interactive story based on the epic of %s.\n\n", in.StoryName)
	sb.WriteString(excerptSection("Original Story Context", in.Reference, b.opts.ContinueExcerpt))
	sb.WriteString("\n\n")

	if recent := b.recentHistory(in.History); recent != "" {
		sb.WriteString(recent)
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "The protagonist chose: %q\n", in.Choice)
	fmt.Fprintf(&sb, "Choices made so far: %d/%d\n\n", in.ChoicesMade, in.MaxChoices)

	if remaining > 0 {
		fmt.Fprintf(&sb, `Based on this choice, continue the story. Plan the story arc so that the narrative fits exactly %d steps, with a clear ending. You have %d choices remaining before the story must end.

Provide the CONTINUATION in this format:
Text: [4-6 sentences describing what happens next and the new situation]
Mood: [one word - ONLY: %s]
Choices:
- [Choice 1: 8-15 words]
- [Choice 2: 8-15 words]
- [Choice 3: 8-15 words]
- [Choice 4: 8-15 words]
- [Choice 5: 8-15 words]
Cultural_Info: [Brief cultural explanation if needed for this part, otherwise omit]

Make it engaging and true to the epic's spirit.`, in.MaxChoices, remaining, moodList())
		return sb.String()
	}

	fmt.Fprintf(&sb, `This must be the ENDING of the story. Provide a satisfying conclusion that feels complete and meaningful, not abrupt. Do not offer any further choices.

Provide the ENDING in this format:
Text: [4-6 sentences describing the conclusion]
Mood: [one word - ONLY: %s]
Similarity: [Rate 0.0-1.0 how closely the user's choices followed the original epic story. 1.0 = exactly like original, 0.5 = some similarities, 0.0 = completely different path]
Cultural_Info: [Brief cultural explanation if needed, otherwise omit]

Make it true to the epic's spirit.`, moodList())
	return sb.String()
}

func (b *Builder) recentHistory(history []story.HistoryEntry) string {
	if len(history) == 0 {
		return ""
	}
	if len(history) > b.opts.HistoryWindow {
		history = history[len(history)-b.opts.HistoryWindow:]
	}

	var sb strings.Builder
	sb.WriteString("Previous story progression:\n")
	for i, entry := range history {
		fmt.Fprintf(&sb, "%d. %s -> Choice: %s\n", i+1, entry.NodeText, entry.ChoiceText)
	}
	return sb.String()
}

// excerptSection labels the reference text and says so when it was cut.
func excerptSection(title, reference string, limit int) string {
	excerpt, truncated := truncateRunes(reference, limit)
	if truncated {
		return fmt.Sprintf("%s (excerpt, truncated to the first %d characters; the full epic continues beyond this point):\n%s...", title, limit, excerpt)
	}
	return fmt.Sprintf("%s:\n%s", title, excerpt)
}

func truncateRunes(s string, limit int) (string, bool) {
	if utf8.RuneCountInString(s) <= limit {
		return s, false
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i], true
		}
		count++
	}
	return s, false
}

func moodList() string {
	return strings.Join(story.Moods, ", ")
}
