package classify

import (
	"strings"
	"unicode/utf8"
)

// Skip reasons reported by ShouldSkip.
const (
	SkipTooShort  = "too_short"
	SkipNoText    = "no_text"
	SkipSpam      = "spam"
	SkipFlood     = "flood"
	floodRunLimit = 6
)

// ShouldSkip is the pre-filter gate for posts already classified Technical.
// It suppresses replies to content that looks technical but is not worth
// answering: near-empty posts, screenshot-only posts, advertising and
// character floods. Complaint and job-posting text is a classifier concern
// and is deliberately not re-checked here.
func (c *Classifier) ShouldSkip(title, body string) (bool, string) {
	cleanTitle := stripMarkup(title)
	cleanBody := stripMarkup(body)
	full := strings.ToLower(cleanTitle + " " + cleanBody)

	if utf8.RuneCountInString(full) < 20 {
		return true, SkipTooShort
	}
	if utf8.RuneCountInString(cleanBody) < 10 && !hasCodeFence(body) {
		return true, SkipNoText
	}
	if containsAny(full, c.rules.SpamKeywords) {
		return true, SkipSpam
	}
	if hasRuneFlood(full, floodRunLimit) {
		return true, SkipFlood
	}
	return false, ""
}

func hasCodeFence(raw string) bool {
	return strings.Contains(raw, "```") ||
		strings.Contains(raw, "<code") ||
		strings.Contains(raw, "<pre")
}

// hasRuneFlood reports whether any rune repeats limit or more times in a row.
func hasRuneFlood(s string, limit int) bool {
	var prev rune
	run := 0
	for _, r := range s {
		if r == prev {
			run++
			if run >= limit {
				return true
			}
		} else {
			prev = r
			run = 1
		}
	}
	return false
}
