package narrative

import (
	"strings"

	"github.com/zhouzirui/z-saga/backend/internal/model/story"
)

type field int

const (
	fieldNone field = iota
	fieldIntroduction
	fieldText
	fieldMood
	fieldChoices
	fieldCulturalInfo
	fieldSimilarity
)

var labels = map[string]field{
	"introduction":     fieldIntroduction,
	"text":             fieldText,
	"story":            fieldText,
	"mood":             fieldMood,
	"choices":          fieldChoices,
	"cultural_info":    fieldCulturalInfo,
	"cultural info":    fieldCulturalInfo,
	"similarity":       fieldSimilarity,
	"story_similarity": fieldSimilarity,
}

// lineParser reads labelled blocks. cursor is the field receiving lines and pending
// holds its lines until the next header or the end of input.
type lineParser struct {
	cursor     field
	pending    []string
	values     map[field]string
	choices    []string
	similarity *float64
	matched    bool
}

// isFence reports whether line opens or closes a markdown code block, such as
// "```" or "```text".
func isFence(line string) bool {
	rest, ok := strings.CutPrefix(line, "```")
	return ok && !strings.ContainsAny(rest, " \t`")
}

func parseStructured(raw string) (story.NarrativeNode, bool) {
	p := &lineParser{values: make(map[field]string)}
	for _, line := range strings.Split(raw, "\n") {
		p.feed(strings.TrimSpace(line))
	}
	p.flush()

	if !p.matched {
		return story.NarrativeNode{}, false
	}
	return p.node(), true
}

func (p *lineParser) feed(line string) {
	if line == "" || isFence(line) {
		return
	}

	if f, rest, ok := matchHeader(line); ok {
		p.flush()
		p.matched = true
		switch f {
		case fieldSimilarity:
			score := parseSimilarity(rest)
			p.similarity = &score
			p.cursor = fieldNone
		case fieldChoices:
			p.cursor = fieldChoices
			if rest != "" {
				p.choices = append(p.choices, splitChoices(rest)...)
			}
		default:
			p.cursor = f
			p.pending = []string{rest}
		}
		return
	}

	switch p.cursor {
	case fieldNone:
	case fieldChoices:
		if item := stripItemMarker(line); item != "" {
			p.choices = append(p.choices, item)
		}
	default:
		p.pending = append(p.pending, line)
	}
}

func (p *lineParser) flush() {
	if p.cursor != fieldNone && p.cursor != fieldChoices {
		p.values[p.cursor] = strings.TrimSpace(strings.Join(p.pending, "\n"))
	}
	p.pending = nil
}

func (p *lineParser) node() story.NarrativeNode {
	node := story.NarrativeNode{
		Text:            p.values[fieldText],
		Mood:            p.values[fieldMood],
		Choices:         p.choices,
		CulturalInfo:    optionalText(p.values[fieldCulturalInfo]),
		StorySimilarity: p.similarity,
	}
	if intro := p.values[fieldIntroduction]; intro != "" {
		node.Introduction = &intro
	}
	if node.Choices == nil {
		node.Choices = []string{}
	}
	return node
}

// matchHeader recognizes "Label: value" lines. Markdown heading marks and bold
// markers around the label are tolerated; single bullets are not, so "* Mood: x"
// under Choices stays a choice.
func matchHeader(line string) (field, string, bool) {
	candidate := strings.TrimSpace(strings.TrimLeft(line, "#"))
	candidate = strings.TrimPrefix(candidate, "**")

	colon := strings.IndexByte(candidate, ':')
	if colon <= 0 {
		return fieldNone, "", false
	}

	label := strings.ToLower(strings.TrimSuffix(candidate[:colon], "**"))
	f, ok := labels[label]
	if !ok {
		return fieldNone, "", false
	}

	rest := strings.TrimSpace(candidate[colon+1:])
	rest = strings.TrimSpace(strings.TrimPrefix(rest, "**"))
	return f, rest, true
}
