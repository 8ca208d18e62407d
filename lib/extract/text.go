package extract

import (
	"bytes"
	stdhtml "html"
	"regexp"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

var (
	whitespace = regexp.MustCompile(`[\s\p{Zs}]+`)
	markup     = regexp.MustCompile(`<[^>]+>`)
)

func selectText(n *html.Node, xpath string) string {
	if n == nil {
		return ""
	}
	node, err := htmlquery.Query(n, xpath)
	if err != nil {
		return ""
	}
	return digForText(node)
}

func digForText(n *html.Node) string {
	if n == nil {
		return ""
	}
	buf := new(bytes.Buffer)
	dig(n, buf)
	return compactWhitespace(buf.String())
}

func dig(n *html.Node, buf *bytes.Buffer) {
	if n == nil {
		return
	}
	if n.Type == html.TextNode {
		buf.WriteString(n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		dig(c, buf)
	}
}

// stripMarkup turns an HTML fragment into plain, whitespace-compacted text.
func stripMarkup(fragment string) string {
	s := markup.ReplaceAllString(fragment, "")
	return compactWhitespace(stdhtml.UnescapeString(s))
}

func compactWhitespace(s string) string {
	s = whitespace.ReplaceAllString(s, " ")
	s = strings.Trim(s, " ")
	return s
}
