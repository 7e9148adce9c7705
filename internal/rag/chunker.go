package rag

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	DefaultTargetTokens  = 1000
	DefaultOverlapTokens = 200
)

// charsPerToken is the rough length-based token estimate used everywhere the
// pipeline budgets text.
const charsPerToken = 4

var (
	spaceRunRe   = regexp.MustCompile(`[ \t]+`)
	blankLinesRe = regexp.MustCompile(`\n{3,}`)
)

// EstimateTokens approximates the token count of text by its length.
func EstimateTokens(text string) int {
	return len(text) / charsPerToken
}

// Normalize cleans raw extracted text: runs of spaces and tabs collapse to a
// single space, runs of blank lines collapse to one blank line, and control
// characters other than newline and tab are stripped.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range text {
		if r < 32 && r != '\n' && r != '\t' {
			continue
		}
		if r == 127 {
			continue
		}
		sb.WriteRune(r)
	}
	out := spaceRunRe.ReplaceAllString(sb.String(), " ")
	out = blankLinesRe.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

type Piece struct {
	Content string
	Index   int
}

// boundary delimiters in preference order: sentence end, paragraph break,
// line break, word break.
var boundaries = []string{". ", "\n\n", "\n", " "}

// Chunk splits normalized text into overlapping windows of roughly
// targetTokens each. A window that does not reach the end of the text is cut
// at the latest natural boundary inside its trailing overlap region, and the
// next window starts overlapTokens worth of characters before the cut, so
// consecutive chunks share their overlap verbatim.
func Chunk(text string, targetTokens, overlapTokens int) []Piece {
	if targetTokens <= 0 {
		targetTokens = DefaultTargetTokens
	}
	if overlapTokens < 0 || overlapTokens >= targetTokens {
		overlapTokens = DefaultOverlapTokens
	}
	targetChars := targetTokens * charsPerToken
	overlapChars := overlapTokens * charsPerToken

	var pieces []Piece
	start := 0
	for start < len(text) {
		end := start + targetChars
		if end >= len(text) {
			appendPiece(&pieces, text[start:])
			break
		}
		cut := findBoundary(text, end-overlapChars, end)
		if cut <= start {
			cut = end
		}
		cut = alignRune(text, cut)
		appendPiece(&pieces, text[start:cut])
		next := alignRune(text, cut-overlapChars)
		if next <= start {
			next = cut
		}
		start = next
	}
	return pieces
}

// findBoundary returns the cut position just after the latest preferred
// delimiter in [from, to), or to when none is found.
func findBoundary(text string, from, to int) int {
	if from < 0 {
		from = 0
	}
	window := text[from:to]
	for _, delim := range boundaries {
		if idx := strings.LastIndex(window, delim); idx >= 0 {
			return from + idx + len(delim)
		}
	}
	return to
}

// alignRune moves i back to the nearest rune start so byte-indexed cuts never
// split a multibyte character.
func alignRune(text string, i int) int {
	for i > 0 && i < len(text) && !utf8.RuneStart(text[i]) {
		i--
	}
	return i
}

func appendPiece(pieces *[]Piece, content string) {
	if strings.TrimSpace(content) == "" {
		return
	}
	*pieces = append(*pieces, Piece{Content: content, Index: len(*pieces)})
}
