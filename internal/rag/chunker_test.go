package rag

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	in := "Hola\r\nmundo.\r\rCol1\t\tCol2   fin.\n\n\n\nSiguiente\x00\x07 parrafo.\n"
	out := Normalize(in)

	require.NotContains(t, out, "\r")
	require.NotContains(t, out, "\x00")
	require.NotContains(t, out, "\x07")
	require.NotContains(t, out, "\n\n\n")
	require.NotContains(t, out, "  ")
	require.Equal(t, "Hola\nmundo.\n\nCol1 Col2 fin.\n\nSiguiente parrafo.", out)
}

func TestNormalizeEmpty(t *testing.T) {
	require.Equal(t, "", Normalize(""))
	require.Equal(t, "", Normalize(" \t \n \r\n "))
}

func TestChunkShortTextSinglePiece(t *testing.T) {
	text := "Un texto corto que cabe en una sola pieza."
	pieces := Chunk(text, 1000, 200)
	require.Len(t, pieces, 1)
	require.Equal(t, text, pieces[0].Content)
	require.Equal(t, 0, pieces[0].Index)
}

func TestChunkEmptyText(t *testing.T) {
	require.Empty(t, Chunk("", 1000, 200))
	require.Empty(t, Chunk("   ", 1000, 200))
}

func TestChunkCutsAtSentenceBoundary(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 100; i++ {
		sb.WriteString("Esta es una frase de relleno con contenido. ")
	}
	text := strings.TrimSpace(sb.String())

	pieces := Chunk(text, 100, 20)
	require.Greater(t, len(pieces), 1)
	// every non-final piece ends right after a sentence boundary
	for _, p := range pieces[:len(pieces)-1] {
		require.True(t, strings.HasSuffix(p.Content, ". "), "piece %d = %q", p.Index, p.Content[len(p.Content)-10:])
	}
}

func TestChunkOverlapReconstruction(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 200; i++ {
		sb.WriteString("palabra otracosa masrelleno contenido. ")
	}
	text := strings.TrimSpace(sb.String())

	targetTokens, overlapTokens := 100, 20
	pieces := Chunk(text, targetTokens, overlapTokens)
	require.Greater(t, len(pieces), 2)

	// dropping each piece's leading overlap reproduces the input exactly
	overlapChars := overlapTokens * charsPerToken
	var rebuilt strings.Builder
	rebuilt.WriteString(pieces[0].Content)
	for _, p := range pieces[1:] {
		require.Greater(t, len(p.Content), overlapChars)
		rebuilt.WriteString(p.Content[overlapChars:])
	}
	require.Equal(t, text, rebuilt.String())
}

func TestChunkContiguousIndices(t *testing.T) {
	text := strings.Repeat("aaaa bbbb cccc dddd. ", 300)
	pieces := Chunk(strings.TrimSpace(text), 50, 10)
	for i, p := range pieces {
		require.Equal(t, i, p.Index)
	}
}

func TestChunkNoBoundaryFallsBackToHardCut(t *testing.T) {
	text := strings.Repeat("x", 2000)
	pieces := Chunk(text, 100, 20)
	require.Greater(t, len(pieces), 1)
	require.Len(t, pieces[0].Content, 100*charsPerToken)
}

func TestChunkHardCutKeepsRunesIntact(t *testing.T) {
	// no delimiters at all, so every cut is a hard cut inside a run of
	// multibyte characters; the leading ascii byte puts every ñ at an odd
	// offset
	text := "a" + strings.Repeat("ñ", 1500)
	pieces := Chunk(text, 100, 20)
	require.Greater(t, len(pieces), 1)
	for _, p := range pieces {
		require.True(t, utf8.ValidString(p.Content), "piece %d is not valid utf-8", p.Index)
	}
}

func TestAlignRune(t *testing.T) {
	text := "año"
	// index 2 is the continuation byte of the two-byte ñ
	require.Equal(t, 1, alignRune(text, 2))
	require.Equal(t, 3, alignRune(text, 3))
	require.Equal(t, 0, alignRune(text, 0))
	require.Equal(t, len(text), alignRune(text, len(text)))
}

func TestEstimateTokens(t *testing.T) {
	require.Equal(t, 0, EstimateTokens(""))
	require.Equal(t, 1, EstimateTokens("abcd"))
	require.Equal(t, 25, EstimateTokens(strings.Repeat("a", 100)))
}
