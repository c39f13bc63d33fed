package runner

import (
	"strings"

	"evald/internal/tasks"
)

// scoreSample computes the non-judge metric for one record.
func scoreSample(t *tasks.Task, s tasks.Sample, output string) float64 {
	switch t.Metric {
	case tasks.MetricAcc:
		if extractChoice(output) == tasks.Letter(s.Answer) {
			return 1
		}
		return 0
	case tasks.MetricExactMatch:
		if normalizeText(output) == normalizeText(s.Target) {
			return 1
		}
		return 0
	}
	return 0
}

// extractChoice finds the first standalone choice letter in the output.
// Models answer "B", " B.", "The answer is B" and so on.
func extractChoice(out string) string {
	for i := 0; i < len(out); i++ {
		c := out[i]
		if c < 'A' || c > 'Z' {
			continue
		}
		// Standalone: not part of a longer word.
		prevOK := i == 0 || !isWordByte(out[i-1])
		nextOK := i+1 >= len(out) || !isWordByte(out[i+1])
		if prevOK && nextOK {
			return string(c)
		}
	}
	// Fall back to the first letter of the first word ("Both", "All"...)
	// never matches a choice label, which is the desired miss.
	return ""
}

func isWordByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// normalizeText lowercases, collapses whitespace, and strips trailing
// punctuation so exact_match tolerates formatting noise.
func normalizeText(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Join(strings.Fields(s), " ")
	s = strings.TrimRight(s, ".!?:;")
	return s
}
