package distiller

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// SMSLimit is the hard length of a single SMS, in characters.
	SMSLimit = 160
	// SummaryLimit is the soft length of an English summary.
	SummaryLimit = 140
	// Ellipsis marks text that was cut.
	Ellipsis = "..."

	summaryCut = SummaryLimit - len(Ellipsis)
	wordBudget = SMSLimit - len(Ellipsis)
)

// FitSMS makes text fit into one SMS.
//
// Text that already fits is returned unchanged. Otherwise whole sentences of
// text are kept while they fit; when not even the first sentence fits, raw (the
// untrimmed collaborator reply) is cut at a word boundary and an ellipsis is
// appended. The second result reports whether anything was cut.
func FitSMS(text, raw string) (string, bool) {
	if runeLen(text) <= SMSLimit {
		return text, false
	}

	if fitted := fitSentences(text); fitted != "" && runeLen(fitted) <= SMSLimit {
		return fitted, true
	}

	return fitWords(raw), true
}

func fitSentences(text string) string {
	var acc string
	for _, sentence := range splitSentences(text) {
		next := acc + sentence + " "
		if runeLen(strings.TrimSpace(next)) > SMSLimit {
			break
		}
		acc = next
	}
	return strings.TrimSpace(acc)
}

func fitWords(raw string) string {
	var (
		b    strings.Builder
		size int
	)
	for _, word := range strings.Split(raw, " ") {
		step := runeLen(word) + 1
		if size+step > wordBudget {
			break
		}
		b.WriteString(word)
		b.WriteByte(' ')
		size += step
	}
	return strings.TrimSpace(b.String()) + Ellipsis
}

// splitSentences cuts text after '.', '!' or '?' when whitespace follows.
func splitSentences(text string) []string {
	runes := []rune(text)
	var sentences []string
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isTerminal(runes[i]) {
			continue
		}
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		if j == i+1 {
			continue
		}
		sentences = append(sentences, string(runes[start:i+1]))
		start = j
		i = j - 1
	}
	if start < len(runes) {
		sentences = append(sentences, string(runes[start:]))
	}
	return sentences
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func truncate(text string, limit int) string {
	if runeLen(text) <= limit {
		return text
	}
	return string([]rune(text)[:limit])
}

func runeLen(text string) int {
	return utf8.RuneCountInString(text)
}
