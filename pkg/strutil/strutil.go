// Package strutil provides shared string utilities used across the URL
// analysis pipeline, chiefly the lexical measurements the feature
// extractor needs on hosts, paths, and full URLs.
package strutil

import (
	"math"
	"unicode/utf8"
)

// Truncate returns s cut to maxLen runes. If truncated, a "..." suffix
// is appended (included in maxLen). Returns s unchanged if
// utf8.RuneCountInString(s) <= maxLen.
// Safe for maxLen <= 0 (returns empty string).
// This function is rune-aware and never produces invalid UTF-8.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	runeCount := utf8.RuneCountInString(s)
	if runeCount <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string([]rune(s)[:maxLen])
	}
	return string([]rune(s)[:maxLen-3]) + "..."
}

// ShannonEntropy returns the Shannon entropy, in bits, of s's byte
// distribution. Normal domain labels land around 2.5-3.5; random or
// DGA-style labels tend to run 4.0 and above.
func ShannonEntropy(s string) float64 {
	if s == "" {
		return 0
	}
	var freq [256]int
	for i := 0; i < len(s); i++ {
		freq[s[i]]++
	}
	n := float64(len(s))
	var entropy float64
	for _, count := range freq {
		if count == 0 {
			continue
		}
		p := float64(count) / n
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// DigitRatio returns the fraction of s's runes that are ASCII digits,
// 0 when s is empty.
func DigitRatio(s string) float64 {
	if s == "" {
		return 0
	}
	var digits int
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return float64(digits) / float64(utf8.RuneCountInString(s))
}

// LetterRatio returns the fraction of s's runes that are ASCII letters.
func LetterRatio(s string) float64 {
	if s == "" {
		return 0
	}
	var letters int
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			letters++
		}
	}
	return float64(letters) / float64(utf8.RuneCountInString(s))
}

// LongestRun returns the length of the longest run of consecutive runes
// satisfying pred.
func LongestRun(s string, pred func(rune) bool) int {
	var longest, current int
	for _, r := range s {
		if pred(r) {
			current++
			if current > longest {
				longest = current
			}
		} else {
			current = 0
		}
	}
	return longest
}

// CountFunc returns the number of runes in s satisfying pred.
func CountFunc(s string, pred func(rune) bool) int {
	var n int
	for _, r := range s {
		if pred(r) {
			n++
		}
	}
	return n
}
