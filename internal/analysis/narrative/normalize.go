package narrative

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

const defaultSimilarity = 0.5

var (
	scorePattern       = regexp.MustCompile(`(?i)(\d*\.\d+|\d+)\s*(?:(%)|(?:/|out\s+of)\s*(\d*\.\d+|\d+))?`)
	choiceSeparators   = regexp.MustCompile(`[\n;.]`)
	enumerationPattern = regexp.MustCompile(`^\(?\d{1,2}[.)]\s+`)
	bulletMarkers      = []string{"-", "•", "*"}
)

// parseSimilarity reads the first numeral in text as a [0,1] score.
// "a/b" and "a out of b" are ratios and "a%" is a percentage; a bare number is a
// fraction when <= 1, a percentage when <= 100 and a rating out of ten otherwise.
func parseSimilarity(text string) float64 {
	m := scorePattern.FindStringSubmatch(text)
	if m == nil {
		return defaultSimilarity
	}

	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return defaultSimilarity
	}

	switch {
	case m[3] != "":
		if denominator, err := strconv.ParseFloat(m[3], 64); err == nil && denominator > 0 {
			return clampScore(value / denominator)
		}
	case m[2] == "%":
		return clampScore(value / 100)
	}
	return normalizeScore(value)
}

func normalizeScore(value float64) float64 {
	switch {
	case value <= 1:
	case value <= 100:
		value /= 100
	default:
		value /= 10
	}
	return clampScore(value)
}

func clampScore(value float64) float64 {
	if math.IsNaN(value) {
		return defaultSimilarity
	}
	return math.Max(0, math.Min(1, value))
}

// splitChoices breaks a single string of choices on newlines, semicolons and periods.
func splitChoices(s string) []string {
	pieces := choiceSeparators.Split(s, -1)
	out := make([]string, 0, len(pieces))
	for _, piece := range pieces {
		if choice := strings.Trim(piece, "-•* \t\r"); choice != "" {
			out = append(out, choice)
		}
	}
	return out
}

func stripItemMarker(line string) string {
	item := strings.TrimSpace(line)
	for _, marker := range bulletMarkers {
		if strings.HasPrefix(item, marker) {
			item = strings.TrimPrefix(item, marker)
			break
		}
	}
	item = enumerationPattern.ReplaceAllString(strings.TrimSpace(item), "")
	return strings.TrimSpace(item)
}
