package narrative

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/z-saga/backend/internal/model/story"
)

func interpret(raw string) story.NarrativeNode {
	return Parse(raw).Node
}

func TestParseDocumentedFormat(t *testing.T) {
	raw := `Introduction: Long ago, in the mountains of Chamlibel...
Text: Koroghlu watches the road below as a caravan approaches.
The riders carry the banner of the Bolu bey.
Mood: tense
Choices:
- Ambush the caravan
- Send a scout
- Wait for nightfall
- Ride to meet them openly
- Return to the fortress
Cultural_Info: Chamlibel was the legendary stronghold of Koroghlu's warriors.`

	res := Parse(raw)
	require.Equal(t, StrategyStructured, res.Strategy)

	node := res.Node
	require.NotNil(t, node.Introduction)
	assert.Equal(t, "Long ago, in the mountains of Chamlibel...", *node.Introduction)
	assert.Equal(t, "Koroghlu watches the road below as a caravan approaches.\nThe riders carry the banner of the Bolu bey.", node.Text)
	assert.Equal(t, "tense", node.Mood)
	assert.Equal(t, []string{
		"Ambush the caravan",
		"Send a scout",
		"Wait for nightfall",
		"Ride to meet them openly",
		"Return to the fortress",
	}, node.Choices)
	require.NotNil(t, node.CulturalInfo)
	assert.Equal(t, "Chamlibel was the legendary stronghold of Koroghlu's warriors.", *node.CulturalInfo)
	assert.Nil(t, node.StorySimilarity)
}

func TestParseEnding(t *testing.T) {
	raw := "**Text:** The bey kneels and the valley is free.\n**Mood:** happy\n**Similarity:** 80%"

	node := interpret(raw)
	assert.Equal(t, "The bey kneels and the valley is free.", node.Text)
	assert.Equal(t, "happy", node.Mood)
	assert.Empty(t, node.Choices)
	assert.NotNil(t, node.Choices)
	require.NotNil(t, node.StorySimilarity)
	assert.InDelta(t, 0.8, *node.StorySimilarity, 1e-9)
	assert.True(t, node.IsEnding())
}

func TestParseFencedStructuredReply(t *testing.T) {
	res := Parse("```\nText: a\nMood: tense\n```")
	require.Equal(t, StrategyStructured, res.Strategy)
	assert.Equal(t, "a", res.Node.Text)
	assert.Equal(t, "tense", res.Node.Mood)

	node := interpret("```markdown\nText: The feast ends.\nMood: happy\nChoices:\n- Sing\n- Leave\nCultural_Info: Dede Gorgud names the boy.\n```")
	assert.Equal(t, []string{"Sing", "Leave"}, node.Choices)
	require.NotNil(t, node.CulturalInfo)
	assert.Equal(t, "Dede Gorgud names the boy.", *node.CulturalInfo)
}

func TestParseUnstructuredFallsBack(t *testing.T) {
	raw := "Once upon a time the horse Qirat ran faster than the wind."

	res := Parse(raw)
	assert.Equal(t, StrategyFallback, res.Strategy)
	assert.Equal(t, raw, res.Node.Text)
	assert.Equal(t, story.MoodNeutral, res.Node.Mood)
	assert.Equal(t, []string{}, res.Node.Choices)
	assert.Nil(t, res.Node.Introduction)
	assert.Nil(t, res.Node.StorySimilarity)
}

func TestParseEmptyReply(t *testing.T) {
	res := Parse("")
	assert.Equal(t, StrategyFallback, res.Strategy)
	assert.Equal(t, "", res.Node.Text)
	assert.Equal(t, []string{}, res.Node.Choices)
}

func TestSimilarityNormalization(t *testing.T) {
	cases := map[string]float64{
		"0.8":         0.8,
		"80%":         0.8,
		"8/10":        0.8,
		"8 out of 10": 0.8,
		"150":         1.0,
		"about 75":    0.75,
		"1":           1.0,
		"0":           0.0,
		".6":          0.6,
		"7.5/10":      0.75,
		"high, 90 %":  0.9,
		"unclear":     0.5,
		"":            0.5,
		"8/0":         0.08,
	}
	for input, want := range cases {
		t.Run(input, func(t *testing.T) {
			node := interpret("Text: done\nSimilarity: " + input)
			require.NotNil(t, node.StorySimilarity)
			assert.InDelta(t, want, *node.StorySimilarity, 1e-9)
		})
	}
}

func TestSimilarityResetsCursor(t *testing.T) {
	node := interpret("Text: The end.\nSimilarity: 0.7\nthis line belongs to nothing")
	assert.Equal(t, "The end.", node.Text)
	require.NotNil(t, node.StorySimilarity)
	assert.InDelta(t, 0.7, *node.StorySimilarity, 1e-9)
}

func TestChoiceMarkers(t *testing.T) {
	raw := `Text: A fork in the road.
Mood: neutral
Choices:
1. Take the left path
2) Take the right path
• Rest under the oak
* Mood: lighten it with a song
Climb the hill`

	node := interpret(raw)
	assert.Equal(t, []string{
		"Take the left path",
		"Take the right path",
		"Rest under the oak",
		"Mood: lighten it with a song",
		"Climb the hill",
	}, node.Choices)
	assert.Equal(t, "neutral", node.Mood)
}

func TestInlineChoicesAreSplit(t *testing.T) {
	node := interpret("Text: Night falls.\nChoices: Go north. Go south; Go east")
	assert.Equal(t, []string{"Go north", "Go south", "Go east"}, node.Choices)
}

func TestHeadersAreCaseInsensitive(t *testing.T) {
	node := interpret("## STORY: The feast begins.\nMOOD: Happy\ncultural info: Dede Gorgud blesses the guests.")
	assert.Equal(t, "The feast begins.", node.Text)
	assert.Equal(t, "Happy", node.Mood)
	require.NotNil(t, node.CulturalInfo)
	assert.Equal(t, "Dede Gorgud blesses the guests.", *node.CulturalInfo)
}

func TestCulturalInfoPlaceholderIsAbsent(t *testing.T) {
	for _, placeholder := range []string{"None", "N/A", "omit", "-", ""} {
		node := interpret("Text: x\nCultural_Info: " + placeholder)
		assert.Nil(t, node.CulturalInfo, placeholder)
	}
}

func TestUnknownMoodIsPreserved(t *testing.T) {
	node := interpret("Text: x\nMood: melancholic")
	assert.Equal(t, "melancholic", node.Mood)
	assert.Equal(t, story.MoodNeutral, node.DisplayMood())
}

func TestLinesBeforeFirstHeaderAreIgnored(t *testing.T) {
	node := interpret("Here is the next part of the story:\n\nText: The gates open.")
	assert.Equal(t, "The gates open.", node.Text)
}

func TestParseJSON(t *testing.T) {
	raw := "```json\n" + `{
  "Text": "Banu Chichek waits at the tent.",
  "mood": "tense",
  "choices": ["Enter the tent", "  ", "- Call her name"],
  "cultural_info": "none",
  "story_similarity": 85
}` + "\n```"

	res := Parse(raw)
	require.Equal(t, StrategyJSON, res.Strategy)
	assert.Equal(t, "Banu Chichek waits at the tent.", res.Node.Text)
	assert.Equal(t, "tense", res.Node.Mood)
	assert.Equal(t, []string{"Enter the tent", "Call her name"}, res.Node.Choices)
	assert.Nil(t, res.Node.CulturalInfo)
	require.NotNil(t, res.Node.StorySimilarity)
	assert.InDelta(t, 0.85, *res.Node.StorySimilarity, 1e-9)
}

func TestParseJSONCoercesChoices(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want []string
	}{
		{"string", `{"text": "t", "choices": "Go north. Go south; Go east"}`, []string{"Go north", "Go south", "Go east"}},
		{"number", `{"text": "t", "choices": 5}`, []string{}},
		{"null", `{"text": "t", "choices": null}`, []string{}},
		{"missing", `{"text": "t"}`, []string{}},
		{"mixed list", `{"text": "t", "choices": ["a", 1, "b"]}`, []string{"a", "b"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Parse(tc.raw)
			require.Equal(t, StrategyJSON, res.Strategy)
			assert.Equal(t, tc.want, res.Node.Choices)
		})
	}
}

func TestParseJSONWithTrailingText(t *testing.T) {
	res := Parse(`{"text": "The duel begins.", "mood": "tense"} I hope you enjoy it!`)
	require.Equal(t, StrategyJSON, res.Strategy)
	assert.Equal(t, "The duel begins.", res.Node.Text)
}

func TestMalformedJSONFallsThrough(t *testing.T) {
	res := Parse("{not json at all\nText: Still readable.\nMood: neutral")
	assert.Equal(t, StrategyStructured, res.Strategy)
	assert.Equal(t, "Still readable.", res.Node.Text)
}

func TestJSONWithoutKnownKeysFallsThrough(t *testing.T) {
	raw := `{"answer": 42}`
	res := Parse(raw)
	assert.Equal(t, StrategyFallback, res.Strategy)
	assert.Equal(t, raw, res.Node.Text)
}

func TestSplitChoices(t *testing.T) {
	assert.Equal(t, []string{"Go north", "Go south", "Go east"}, splitChoices("Go north. Go south; Go east"))
	assert.Equal(t, []string{"a", "b"}, splitChoices("- a\n\n* b\n"))
	assert.Equal(t, []string{}, splitChoices(" ;. "))
}
