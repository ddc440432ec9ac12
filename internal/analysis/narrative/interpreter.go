// Package narrative turns free-form generator replies into narrative nodes.
//
// Replies are only loosely shaped by the prompt, so parsing never fails: a reply is
// read as a JSON object when it looks like one, otherwise as labelled text blocks,
// and anything unreadable becomes a plain text node.
package narrative

import (
	"strings"

	"github.com/zhouzirui/z-saga/backend/internal/model/story"
)

// Strategy names the path that produced a node.
type Strategy string

const (
	StrategyJSON       Strategy = "json"
	StrategyStructured Strategy = "structured"
	StrategyFallback   Strategy = "fallback"
)

// Result is a parsed node tagged with the strategy that produced it.
type Result struct {
	Node     story.NarrativeNode
	Strategy Strategy
}

// Parse interprets raw and reports how it was read. It never panics.
func Parse(raw string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = fallback(raw)
		}
	}()

	if candidate := stripCodeFence(strings.TrimSpace(raw)); strings.HasPrefix(candidate, "{") {
		if node, ok := parseJSON(candidate); ok {
			return Result{Node: node, Strategy: StrategyJSON}
		}
	}

	if node, ok := parseStructured(raw); ok {
		return Result{Node: node, Strategy: StrategyStructured}
	}

	return fallback(raw)
}

func fallback(raw string) Result {
	return Result{
		Node: story.NarrativeNode{
			Text:    raw,
			Mood:    story.MoodNeutral,
			Choices: []string{},
		},
		Strategy: StrategyFallback,
	}
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}

// optionalText returns nil for empty values and for the placeholders models write
// when told to omit a field.
func optionalText(value string) *string {
	value = strings.TrimSpace(value)
	switch strings.ToLower(strings.TrimRight(value, ".")) {
	case "", "none", "n/a", "na", "null", "nil", "-", "omit", "omitted", "not applicable":
		return nil
	}
	return &value
}
