package narrative

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/zhouzirui/z-saga/backend/internal/model/story"
)

// parseJSON decodes a reply that opens with an object. Keys are matched
// case-insensitively and values of the wrong type are coerced rather than rejected.
func parseJSON(s string) (story.NarrativeNode, bool) {
	var payload map[string]any
	if err := json.Unmarshal([]byte(s), &payload); err != nil {
		end := strings.LastIndexByte(s, '}')
		if end <= 0 || json.Unmarshal([]byte(s[:end+1]), &payload) != nil {
			return story.NarrativeNode{}, false
		}
	}

	fields := make(map[string]any, len(payload))
	for key, value := range payload {
		fields[strings.ReplaceAll(strings.ToLower(strings.TrimSpace(key)), " ", "_")] = value
	}

	var node story.NarrativeNode
	known := false
	if v, ok := lookup(fields, "introduction"); ok {
		node.Introduction = optionalText(stringValue(v))
		known = true
	}
	if v, ok := lookup(fields, "text", "story"); ok {
		node.Text = stringValue(v)
		known = true
	}
	if v, ok := lookup(fields, "mood"); ok {
		node.Mood = stringValue(v)
		known = true
	}
	if v, ok := lookup(fields, "choices"); ok {
		node.Choices = choiceList(v)
		known = true
	}
	if v, ok := lookup(fields, "cultural_info", "culturalinfo"); ok {
		node.CulturalInfo = optionalText(stringValue(v))
		known = true
	}
	if v, ok := lookup(fields, "story_similarity", "similarity"); ok {
		node.StorySimilarity = similarityValue(v)
		known = true
	}

	if !known {
		return story.NarrativeNode{}, false
	}
	if node.Choices == nil {
		node.Choices = []string{}
	}
	return node, true
}

func lookup(fields map[string]any, keys ...string) (any, bool) {
	for _, key := range keys {
		if v, ok := fields[key]; ok {
			return v, true
		}
	}
	return nil, false
}

func stringValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

// choiceList coerces any decoded value into an ordered list of non-empty choices.
func choiceList(v any) []string {
	switch val := v.(type) {
	case string:
		return splitChoices(val)
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			text, ok := item.(string)
			if !ok {
				continue
			}
			if choice := stripItemMarker(text); choice != "" {
				out = append(out, choice)
			}
		}
		return out
	default:
		return []string{}
	}
}

func similarityValue(v any) *float64 {
	var score float64
	switch val := v.(type) {
	case float64:
		score = normalizeScore(val)
	case string:
		score = parseSimilarity(val)
	default:
		return nil
	}
	return &score
}
