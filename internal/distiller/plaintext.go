package distiller

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// markupPattern matches the start of a tag, closing tag, comment or doctype.
var markupPattern = regexp.MustCompile(`<[a-zA-Z/!]`)

var blockElements = map[string]bool{
	"br": true, "p": true, "div": true, "li": true, "tr": true, "td": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// PlainText reduces article content to whitespace-normalised text, dropping any markup.
// Content without tags is kept verbatim apart from entity decoding, so prose such
// as "rainfall<5mm" survives.
func PlainText(content string) (string, error) {
	if !markupPattern.MatchString(content) {
		return collapseSpaces(html.UnescapeString(content)), nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("parse content: %w", err)
	}
	doc.Find("script, style, noscript").Remove()

	var b strings.Builder
	var walk func(sel *goquery.Selection)
	walk = func(sel *goquery.Selection) {
		sel.Contents().Each(func(_ int, node *goquery.Selection) {
			switch name := goquery.NodeName(node); name {
			case "#text":
				b.WriteString(node.Text())
			case "#comment":
			default:
				walk(node)
				if blockElements[name] {
					b.WriteByte(' ')
				}
			}
		})
	}
	walk(doc.Selection)

	return collapseSpaces(b.String()), nil
}

func collapseSpaces(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
