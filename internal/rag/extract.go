package rag

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	appErr "github.com/nvalmar/luma/internal/pkg/errors"
)

// Extract pulls plain text out of an uploaded file. PDF, markdown and plain
// text are recognized; anything else fails with ErrUnsupportedFormat.
func Extract(data []byte, mimeType, filename string) (string, error) {
	switch {
	case mimeType == "application/pdf" || hasExt(filename, ".pdf"):
		return extractPDF(data)
	case mimeType == "text/markdown" || hasExt(filename, ".md") || hasExt(filename, ".markdown"):
		return extractMarkdown(data), nil
	case strings.HasPrefix(mimeType, "text/") || hasExt(filename, ".txt"):
		return string(data), nil
	default:
		return "", appErr.ErrUnsupportedFormat
	}
}

func hasExt(filename, ext string) bool {
	return strings.EqualFold(filepath.Ext(filename), ext)
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if _, err := io.Copy(&sb, plain); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// extractMarkdown walks the parsed AST and keeps only text content, so
// formatting markup never pollutes chunk embeddings.
func extractMarkdown(data []byte) string {
	md := goldmark.New()
	reader := text.NewReader(data)
	doc := md.Parser().Parse(reader)

	var sb strings.Builder
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		if block, ok := node.(*ast.FencedCodeBlock); ok {
			for i := 0; i < block.Lines().Len(); i++ {
				line := block.Lines().At(i)
				sb.Write(line.Value(data))
			}
			sb.WriteString("\n\n")
			continue
		}
		txt := nodeText(node, data)
		if txt == "" {
			continue
		}
		sb.WriteString(txt)
		sb.WriteString("\n\n")
	}
	return sb.String()
}

func nodeText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if node.Kind() == ast.KindText {
			sb.Write(node.(*ast.Text).Segment.Value(source))
			sb.WriteString(" ")
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}
