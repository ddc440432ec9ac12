package story

import "strings"

// Mood vocabulary the generator is asked to choose from.
const (
	MoodNeutral = "neutral"
	MoodTense   = "tense"
	MoodHappy   = "happy"
)

// Moods lists the recognized mood words in prompt order.
var Moods = []string{MoodNeutral, MoodTense, MoodHappy}

// NarrativeNode is one generated scene.
type NarrativeNode struct {
	Introduction    *string  `json:"introduction,omitempty" yaml:"introduction,omitempty"`
	Text            string   `json:"text" yaml:"text"`
	Mood            string   `json:"mood" yaml:"mood"`
	Choices         []string `json:"choices" yaml:"choices"`
	CulturalInfo    *string  `json:"cultural_info,omitempty" yaml:"cultural_info,omitempty"`
	StorySimilarity *float64 `json:"story_similarity,omitempty" yaml:"story_similarity,omitempty"`
}

// IsEnding reports whether the node concludes the story.
func (n NarrativeNode) IsEnding() bool {
	return len(n.Choices) == 0 && n.StorySimilarity != nil
}

// DisplayMood returns the mood for presentation. The stored value is never rewritten.
func (n NarrativeNode) DisplayMood() string {
	mood := strings.ToLower(strings.TrimSpace(n.Mood))
	for _, known := range Moods {
		if mood == known {
			return known
		}
	}
	return MoodNeutral
}

// Turn is a node as returned to clients after a transition.
type Turn struct {
	NarrativeNode
	SessionID        string `json:"session_id,omitempty"`
	ChoicesRemaining int    `json:"choices_remaining"`
}
