package tasks

import (
	"fmt"
	"strings"
)

// choiceLetters labels multiple-choice options A..Z.
const choiceLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// BuildPrompt renders the prompt for sample, with demos as few-shot
// demonstrations (already drawn by the caller, disjoint from the sample).
func (t *Task) BuildPrompt(s Sample, demos []Sample) string {
	var b strings.Builder
	if t.Description != "" {
		b.WriteString(strings.TrimSpace(t.Description))
		b.WriteString("\n\n")
	}
	switch t.Kind {
	case KindMultipleChoice:
		for _, d := range demos {
			writeMC(&b, d)
			b.WriteString(" ")
			b.WriteString(letter(d.Answer))
			b.WriteString("\n\n")
		}
		writeMC(&b, s)
	default:
		for _, d := range demos {
			b.WriteString(strings.TrimSpace(d.Input))
			b.WriteString("\n")
			b.WriteString(d.Target)
			b.WriteString("\n\n")
		}
		b.WriteString(strings.TrimSpace(s.Input))
		b.WriteString("\n")
	}
	return b.String()
}

func writeMC(b *strings.Builder, s Sample) {
	fmt.Fprintf(b, "Question: %s\n", strings.TrimSpace(s.Question))
	for i, c := range s.Choices {
		fmt.Fprintf(b, "%s. %s\n", letter(i), c)
	}
	b.WriteString("Answer:")
}

func letter(i int) string {
	if i < 0 || i >= len(choiceLetters) {
		return "?"
	}
	return string(choiceLetters[i])
}

// Letter exposes the A..Z label for an answer index (used by scoring).
func Letter(i int) string { return letter(i) }
