package story

import "time"

// Budget bounds for a session.
const (
	MinChoices     = 10
	MaxChoices     = 50
	DefaultChoices = 15
)

// HistoryEntry records one transition taken by the player.
type HistoryEntry struct {
	NodeText   string    `json:"node_text" yaml:"node_text"`
	ChoiceText string    `json:"choice_text" yaml:"choice_text"`
	Mood       string    `json:"mood" yaml:"mood"`
	Timestamp  time.Time `json:"timestamp" yaml:"timestamp"`
}

// Session is the persisted state of one interactive story.
type Session struct {
	SessionID   string         `json:"session_id" yaml:"session_id"`
	StoryName   string         `json:"story_name" yaml:"story_name"`
	MaxChoices  int            `json:"max_choices" yaml:"max_choices"`
	ChoicesMade int            `json:"choices_made" yaml:"choices_made"`
	History     []HistoryEntry `json:"history" yaml:"history"`
	CurrentNode NarrativeNode  `json:"current_node" yaml:"current_node"`
	CreatedAt   time.Time      `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" yaml:"updated_at"`
}

// ChoicesRemaining is the number of continuations still allowed.
func (s Session) ChoicesRemaining() int {
	remaining := s.MaxChoices - s.ChoicesMade
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Terminal reports whether the choice budget is spent.
func (s Session) Terminal() bool {
	return s.ChoicesMade >= s.MaxChoices
}

// Clone returns a deep copy so callers can mutate without touching shared state.
func (s Session) Clone() Session {
	out := s
	out.History = append([]HistoryEntry(nil), s.History...)
	out.CurrentNode = s.CurrentNode.clone()
	return out
}

func (n NarrativeNode) clone() NarrativeNode {
	out := n
	if n.Choices != nil {
		out.Choices = append([]string{}, n.Choices...)
	}
	if n.Introduction != nil {
		v := *n.Introduction
		out.Introduction = &v
	}
	if n.CulturalInfo != nil {
		v := *n.CulturalInfo
		out.CulturalInfo = &v
	}
	if n.StorySimilarity != nil {
		v := *n.StorySimilarity
		out.StorySimilarity = &v
	}
	return out
}
