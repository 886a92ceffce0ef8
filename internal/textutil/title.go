package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// NormalizeTitle case-folds a title, applies NFKC so full-width forms
// compare equal to ASCII, drops punctuation and symbols, and collapses
// whitespace.
func NormalizeTitle(title string) string {
	folded := folder.String(norm.NFKC.String(title))
	var b strings.Builder
	b.Grow(len(folded))
	space := false
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		case unicode.IsSpace(r):
			space = true
		}
	}
	return b.String()
}

// TitleSimilarity scores two titles in [0,1] after normalization. The score
// is the share of positions where the longer title matches the shorter one
// rune for rune; containment of one title in the other scores at least 0.9.
func TitleSimilarity(a, b string) float64 {
	na, nb := NormalizeTitle(a), NormalizeTitle(b)
	if na == nb {
		return 1
	}
	if na == "" || nb == "" {
		return 0
	}
	longer, shorter := []rune(na), []rune(nb)
	if len(shorter) > len(longer) {
		longer, shorter = shorter, longer
	}
	matches := 0
	for i := range shorter {
		if longer[i] == shorter[i] {
			matches++
		}
	}
	score := float64(matches) / float64(len(longer))
	if strings.Contains(string(longer), string(shorter)) && score < 0.9 {
		return 0.9
	}
	return score
}

// Truncate clips s to at most max runes.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
