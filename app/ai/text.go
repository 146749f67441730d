package ai

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var (
	tagPattern        = regexp.MustCompile(`<[^>]+>`)
	boldPattern       = regexp.MustCompile(`(^|[^\w*])(?:\*\*|__)([^*_\s](?:[^*_\n]*?[^*_\s])?)(?:\*\*|__)([^\w*]|$)`)
	italicPattern     = regexp.MustCompile(`(^|[^\w*])[*_]([^*_\s](?:[^*_\n]*?[^*_\s])?)[*_]([^\w*]|$)`)
	bulletPrefix      = regexp.MustCompile(`(?m)^\s*(?:[•*\-]|\d+[.)\]])\s+`)
	listyLine         = regexp.MustCompile(`(?m)^\s*[•*\-\d]`)
	spaceBeforePunct  = regexp.MustCompile(`\s+([.,;:!?])`)
	sentenceBoundary  = regexp.MustCompile(`([.!?])\s+`)
	topicNumberPrefix = regexp.MustCompile(`^\d+[).\s-]*`)
)

// CleanInput strips markup, normalizes Unicode to NFKC and collapses
// whitespace.
func CleanInput(s string) string {
	s = tagPattern.ReplaceAllString(s, " ")
	s = norm.NFKC.String(s)
	return compress(s)
}

func compress(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate cuts s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "…"
}

// removeInlineEmphasis unwraps markdown emphasis delimited by non-word
// characters, leaving snake_case and arithmetic untouched.
func removeInlineEmphasis(s string) string {
	for _, pattern := range []*regexp.Regexp{boldPattern, italicPattern} {
		// Adjacent spans share a boundary character, so repeat until stable.
		for i := 0; i < 4; i++ {
			next := pattern.ReplaceAllString(s, "${1}${2}${3}")
			if next == s {
				break
			}
			s = next
		}
	}
	return s
}

func normalizeParagraph(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\r\n", "\n"))
	s = bulletPrefix.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, " * ", ". ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = removeInlineEmphasis(s)
	s = spaceBeforePunct.ReplaceAllString(s, "$1")
	s = compress(s)
	if s == "" {
		return ""
	}
	if !strings.ContainsAny(s[len(s)-1:], ".!?") && !strings.HasSuffix(s, "…") {
		s += "."
	}
	return s
}

func normalizeOutline(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\r\n", "\n"))
	s = strings.ReplaceAll(s, " * ", "\n")
	s = bulletPrefix.ReplaceAllString(s, "")
	s = removeInlineEmphasis(s)

	seen := make(map[string]bool)
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = "• " + capitalize(line)
		key := strings.ToLower(line)
		if seen[key] {
			continue
		}
		seen[key] = true
		lines = append(lines, line)
		if len(lines) == 8 {
			break
		}
	}

	return strings.Join(lines, "\n")
}

func normalizeOutput(s string, mode Mode) string {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return ""
	}

	if mode == ModeOutline {
		return normalizeOutline(raw)
	}

	if listyLine.MatchString(raw) || strings.Contains(raw, " * ") {
		return compress(normalizeParagraph(raw))
	}
	return compress(removeInlineEmphasis(raw))
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func splitSentences(s string) []string {
	marked := sentenceBoundary.ReplaceAllString(s, "$1\x00")
	var out []string
	for _, part := range strings.Split(marked, "\x00") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Fallback summarizes text locally by sentence extraction: the first three
// sentences for tldr, a spread of five for detailed and up to eight bullets
// for outline.
func Fallback(text string, mode Mode) string {
	clean := CleanInput(text)
	if clean == "" {
		return ""
	}
	sentences := splitSentences(clean)

	switch mode {
	case ModeOutline:
		lines := make([]string, 0, 8)
		for _, sentence := range sentences[:min(8, len(sentences))] {
			lines = append(lines, "• "+strings.TrimSpace(bulletPrefix.ReplaceAllString(sentence, "")))
		}
		return strings.Join(lines, "\n")

	case ModeDetailed:
		n := len(sentences)
		seen := make(map[int]bool)
		var picked []string
		for _, i := range []int{0, 1, n / 2, n - 2, n - 1} {
			if i < 0 || i >= n || seen[i] {
				continue
			}
			seen[i] = true
			picked = append(picked, sentences[i])
		}
		return normalizeParagraph(strings.Join(picked, " "))

	default:
		return normalizeParagraph(strings.Join(sentences[:min(3, len(sentences))], " "))
	}
}

// FallbackTopics derives journal prompts from the first three headlines.
func FallbackTopics(titles []string) []string {
	var out []string
	for _, title := range titles {
		if title = compress(title); title == "" {
			continue
		}
		out = append(out, "Reflect on: "+title)
		if len(out) == 3 {
			break
		}
	}
	return out
}

func parseTopicLines(s string, limit int) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(topicNumberPrefix.ReplaceAllString(strings.TrimSpace(line), ""))
		line = strings.TrimSpace(bulletPrefix.ReplaceAllString(line, ""))
		line = removeInlineEmphasis(line)
		if line == "" {
			continue
		}
		out = append(out, line)
		if len(out) == limit {
			break
		}
	}
	return out
}
