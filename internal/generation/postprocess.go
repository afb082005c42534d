package generation

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	hashtagPattern    = regexp.MustCompile(`#[\pL\pN_]+`)
	multiSpacePattern = regexp.MustCompile(`[ \t]{2,}`)
	multiBreakPattern = regexp.MustCompile(`\n{3,}`)
)

// NormalizeParagraphs converts provider output to a single paragraph
// convention: LF line endings, no trailing whitespace per line, and exactly
// one blank line between paragraphs.
func NormalizeParagraphs(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	s = strings.Join(lines, "\n")

	s = multiBreakPattern.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// ExtractHashtags returns up to max unique hashtags in order of appearance.
func ExtractHashtags(s string, max int) []string {
	if max <= 0 {
		return nil
	}
	seen := make(map[string]bool)
	var tags []string
	for _, match := range hashtagPattern.FindAllString(s, -1) {
		key := strings.ToLower(match)
		if seen[key] {
			continue
		}
		seen[key] = true
		tags = append(tags, match)
		if len(tags) == max {
			break
		}
	}
	return tags
}

// StripHashtags removes all hashtag tokens, then tidies the whitespace the
// removal leaves behind. Paragraph boundaries survive; a line that held only
// hashtags disappears entirely.
func StripHashtags(s string) string {
	s = hashtagPattern.ReplaceAllString(s, "")
	return tidy(s)
}

// StripEmoji removes emoji and emoji-joining characters. Non-emoji symbols
// (currency, arrows, punctuation) are kept.
func StripEmoji(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isEmoji(r) {
			continue
		}
		b.WriteRune(r)
	}
	return tidy(b.String())
}

func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F000 && r <= 0x1FAFF: // pictographs, emoticons, flags, symbols
		return true
	case r >= 0x2600 && r <= 0x27BF: // misc symbols and dingbats
		return true
	case r == 0xFE0F || r == 0xFE0E: // variation selectors
		return true
	case r == 0x200D: // zero-width joiner
		return true
	case r >= 0x1F1E6 && r <= 0x1F1FF: // regional indicators
		return true
	default:
		return false
	}
}

// tidy collapses doubled spaces and drops lines emptied by token removal
// while keeping paragraph breaks intact.
func tidy(s string) string {
	s = multiSpacePattern.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		trimmed := strings.TrimRightFunc(line, unicode.IsSpace)
		trimmed = strings.TrimLeft(trimmed, " ")
		// Blank lines are paragraph separators and stay; lines reduced to
		// nothing by stripping are dropped below via normalization.
		kept = append(kept, trimmed)
	}
	s = strings.Join(kept, "\n")
	s = multiBreakPattern.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// TruncateAtBoundary shortens s to at most max runes without splitting a word
// and without merging paragraphs. Zero or negative max means no limit.
func TruncateAtBoundary(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}

	cut := string(runes[:max])
	if idx := strings.LastIndexAny(cut, " \n"); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut)
}
