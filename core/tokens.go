package core

import "unicode"

// EstimateTokens approximates the token cost of text with a character-length
// heuristic: roughly one token per 2 characters for dense scripts (CJK and
// friends, where one rune often carries a full word) and one per 4
// characters otherwise. Exact accounting from a generation call is preferred
// when available; this is the fallback the ledger and compressor use.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	dense, other := 0, 0
	for _, r := range text {
		if isDenseScript(r) {
			dense++
		} else {
			other++
		}
	}
	tokens := dense/2 + other/4
	if tokens == 0 {
		tokens = 1
	}
	return tokens
}

// EstimateMessageTokens sums the estimated cost of every message's content.
func EstimateMessageTokens(msgs []Message) int {
	total := 0
	for _, m := range msgs {
		total += EstimateTokens(m.Content)
	}
	return total
}

func isDenseScript(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul)
}
