package ai

import (
	"errors"
	"regexp"
	"strings"
)

// MaxDescriptionLen caps the stored description in bytes.
const MaxDescriptionLen = 2000

var (
	fencePattern    = regexp.MustCompile("(?s)^```[a-zA-Z]*\\n?(.*?)\\n?```$")
	labelPattern    = regexp.MustCompile(`(?i)^\s*(description|listing description)\s*:\s*`)
	markdownPattern = regexp.MustCompile(`(?m)^\s*(#+\s*|[*-]\s+)`)
	blankLines      = regexp.MustCompile(`\n{3,}`)
	ErrEmptyOutput  = errors.New("empty_output")
)

// CleanDescription strips the formatting models tend to add despite instructions:
// code fences, a leading "Description:" label, headings and bullets.
func CleanDescription(text string) (string, error) {
	s := strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if m := fencePattern.FindStringSubmatch(s); len(m) >= 2 {
		s = strings.TrimSpace(m[1])
	}
	s = labelPattern.ReplaceAllString(s, "")
	s = markdownPattern.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "**", "")
	s = blankLines.ReplaceAllString(s, "\n\n")
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmptyOutput
	}
	if len(s) > MaxDescriptionLen {
		s = truncateAtSentence(s, MaxDescriptionLen)
	}
	return s, nil
}

func truncateAtSentence(s string, limit int) string {
	cut := s[:limit]
	if i := strings.LastIndexAny(cut, ".!?"); i > limit/2 {
		return cut[:i+1]
	}
	// avoid splitting a multi-byte rune
	for len(cut) > 0 && cut[len(cut)-1]&0xC0 == 0x80 {
		cut = cut[:len(cut)-1]
	}
	if len(cut) > 0 && cut[len(cut)-1] >= 0xC0 {
		cut = cut[:len(cut)-1]
	}
	return strings.TrimSpace(cut)
}
