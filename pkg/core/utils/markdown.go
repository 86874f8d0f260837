package utils

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

var markdownRenderer = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithUnsafe()),
)

// RenderMarkdown converts GitHub-flavored Markdown (tables included) to an HTML fragment.
func RenderMarkdown(input string) (string, error) {
	var buf bytes.Buffer
	if err := markdownRenderer.Convert([]byte(input), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

// HeadingCount parses input and counts headings of the given level (1-6). Used to sanity-check reports.
func HeadingCount(input string, level int) int {
	doc := markdownRenderer.Parser().Parse(text.NewReader([]byte(input)))
	count := 0
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok && h.Level == level {
			count++
		}
	}
	return count
}
