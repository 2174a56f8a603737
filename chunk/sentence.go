package chunk

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Sentence boundary detection. Handles ASCII terminators (.!?) with
// abbreviation and decimal-number awareness, plus wide (CJK) terminators
// when multilingual chunking is enabled.

// abbreviations that should NOT be treated as sentence boundaries.
var abbreviations = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true,
	"prof": true, "sr": true, "jr": true,
	"vs": true, "etc": true, "inc": true, "ltd": true,
	"e.g": true, "i.e": true, "viz": true, "al": true,
	"approx": true, "dept": true, "est": true,
	"fig": true, "no": true, "vol": true,
}

func isWideTerminator(r rune) bool {
	return r == '。' || r == '！' || r == '？'
}

func isASCIITerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// isAbbreviation checks if the text ending at dotPos (the '.') is a common
// abbreviation.
func isAbbreviation(text string, dotPos int) bool {
	start := dotPos
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(text[:start])
		if !unicode.IsLetter(r) && r != '.' {
			break
		}
		start -= size
	}
	word := strings.ToLower(strings.TrimSuffix(text[start:dotPos], "."))
	return abbreviations[word]
}

// isDecimalDot checks if the dot at dotPos is part of a number (e.g. 3.14, $1.50).
func isDecimalDot(text string, dotPos int) bool {
	if dotPos == 0 || dotPos+1 >= len(text) {
		return false
	}
	prev := text[dotPos-1]
	next := text[dotPos+1]
	return prev >= '0' && prev <= '9' && next >= '0' && next <= '9'
}

// terminatorAt reports whether the rune r at byte position pos ends a
// sentence. ASCII periods inside abbreviations or decimal numbers do not.
func terminatorAt(text string, pos int, r rune, multilingual bool) bool {
	if multilingual && isWideTerminator(r) {
		return true
	}
	if !isASCIITerminator(r) {
		return false
	}
	if r == '.' && (isDecimalDot(text, pos) || isAbbreviation(text, pos)) {
		return false
	}
	return true
}

// nextSentenceEnd returns the position immediately after the first sentence
// terminator in [from, limit), or -1 when none exists.
func nextSentenceEnd(text string, from, limit int, multilingual bool) int {
	for pos := from; pos < limit; {
		r, size := utf8.DecodeRuneInString(text[pos:limit])
		if r == utf8.RuneError && size <= 1 {
			pos++
			continue
		}
		if terminatorAt(text, pos, r, multilingual) {
			return pos + size
		}
		pos += size
	}
	return -1
}

// prevSentenceStart returns the start of the sentence nearest before pos,
// scanning no further back than min. The start is the first non-whitespace
// character after the preceding terminator. Returns -1 when no terminator
// exists in the scanned range.
func prevSentenceStart(text string, pos, min int, multilingual bool) int {
	for cur := pos; cur > min; {
		r, size := utf8.DecodeLastRuneInString(text[:cur])
		if r == utf8.RuneError && size <= 1 {
			cur--
			continue
		}
		cur -= size
		if !terminatorAt(text, cur, r, multilingual) {
			continue
		}
		start := cur + size
		for start < len(text) {
			ws, wsize := utf8.DecodeRuneInString(text[start:])
			if !unicode.IsSpace(ws) {
				break
			}
			start += wsize
		}
		return start
	}
	return -1
}
