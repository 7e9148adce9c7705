package rag

import (
	"testing"

	"github.com/stretchr/testify/require"

	appErr "github.com/nvalmar/luma/internal/pkg/errors"
)

func TestExtractPlainText(t *testing.T) {
	out, err := Extract([]byte("hola mundo"), "text/plain", "notas.txt")
	require.NoError(t, err)
	require.Equal(t, "hola mundo", out)
}

func TestExtractTextByExtension(t *testing.T) {
	out, err := Extract([]byte("contenido"), "application/octet-stream", "notas.TXT")
	require.NoError(t, err)
	require.Equal(t, "contenido", out)
}

func TestExtractMarkdownStripsMarkup(t *testing.T) {
	md := "# Título\n\nTexto con **negrita** y [enlace](https://example.com).\n\n```go\nfmt.Println(\"hola\")\n```\n"
	out, err := Extract([]byte(md), "text/markdown", "guia.md")
	require.NoError(t, err)
	require.Contains(t, out, "Título")
	require.Contains(t, out, "negrita")
	require.Contains(t, out, "enlace")
	require.Contains(t, out, `fmt.Println("hola")`)
	require.NotContains(t, out, "**")
	require.NotContains(t, out, "```")
	require.NotContains(t, out, "https://example.com")
}

func TestExtractUnsupportedFormat(t *testing.T) {
	_, err := Extract([]byte{0x50, 0x4b}, "application/zip", "archivo.zip")
	require.ErrorIs(t, err, appErr.ErrUnsupportedFormat)
}
