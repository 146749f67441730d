package ai

import (
	"fmt"
	"strings"
)

const (
	summarySystem = "You write neutral, concise news summaries for a personal journal app. Output must follow the user's constraints exactly."
	topicsSystem  = "Suggest 3 short, timely journal prompts. Plain text, one per line, no bullets/numbering."

	promptBase = "IMPORTANT: You are summarizing the following text. Do NOT repeat or copy the original text. " +
		"Create a NEW summary in your own words. " +
		"Plain text only. No markdown or inline formatting (no *, _, #, backticks). " +
		"Use your own wording; do not copy exact phrases or repeat the headline. " +
		"Be neutral, concrete, and specific. No filler."
)

func buildPrompt(text string, mode Mode) string {
	var instructions string
	switch mode {
	case ModeOutline:
		instructions = "Return 5-8 one-line bullets. Each bullet should be on its own line.\n" +
			"Prefix each bullet with \"• \" (Unicode bullet) exactly.\n" +
			"No sub-bullets. No numbering. No extra commentary.\n" +
			"Each bullet should be a complete, standalone sentence."
	case ModeDetailed:
		instructions = "Write a clear 120-180 word paragraph covering: what happened, who is involved, where/when, why it matters, what's next.\n" +
			"One paragraph. No bullets."
	default:
		instructions = "Write 2-3 plain sentences (no bullets)."
	}

	return fmt.Sprintf("%s\n%s\nText to summarize:\n%s", promptBase, instructions, text)
}

func buildTopicsPrompt(titles []string) string {
	var b strings.Builder
	b.WriteString("Plain text only. No markdown, no numbering.\n")
	b.WriteString("Give 3 short daily journal prompts, one per line (no bullets). Keep each under 8 words.\n")
	b.WriteString("Headlines:\n")
	for i, title := range titles[:min(12, len(titles))] {
		fmt.Fprintf(&b, "%d. %s\n", i+1, compress(title))
	}
	return strings.TrimRight(b.String(), "\n")
}
