package main

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var (
	mdParser   = goldmark.New().Parser()
	wikiLinkRe = regexp.MustCompile(`\[\[([^\]|]+)(?:\|[^\]]*)?\]\]`)
	linkStemRe = regexp.MustCompile(`^(?:\.\.?/)*([\p{L}\p{N}_/-]+?)(?:\.md)?$`)
)

// outline extracts the headings and the note link targets of a Markdown body.
// Links count when they point at a bare stem ("other", "./other",
// "sub/other.md") or use the [[stem]] form; code is ignored.
func outline(body string) ([]noteHeading, []string) {
	src := []byte(body)
	doc := mdParser.Parse(text.NewReader(src))

	var headings []noteHeading
	var links []string
	slugs := make(map[string]int)
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := n.(type) {
		case *ast.Heading:
			t := strings.TrimSpace(nodeText(n, src))
			if t != "" {
				headings = append(headings, noteHeading{Level: n.Level, Text: t, Anchor: uniqueSlug(slugs, t)})
			}
			return ast.WalkSkipChildren, nil
		case *ast.Link:
			if stem, ok := linkStem(string(n.Destination)); ok {
				links = append(links, stem)
			}
		case *ast.CodeBlock, *ast.FencedCodeBlock, *ast.CodeSpan:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return headings, append(links, wikiLinks(body)...)
}

// wikiLinks finds [[stem]] and [[stem|label]] links outside fenced code.
func wikiLinks(body string) []string {
	var links []string
	inCode := false
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(strings.TrimLeft(line, " \t"), "```") {
			inCode = !inCode
			continue
		}
		if inCode {
			continue
		}
		for _, m := range wikiLinkRe.FindAllStringSubmatch(line, -1) {
			links = append(links, strings.TrimSpace(m[1]))
		}
	}
	return links
}

func linkStem(dest string) (string, bool) {
	if strings.Contains(dest, ":") || strings.HasPrefix(dest, "#") {
		return "", false
	}
	m := linkStemRe.FindStringSubmatch(dest)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// nodeText concatenates the literal text below n.
func nodeText(n ast.Node, src []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch c := c.(type) {
		case *ast.Text:
			b.Write(c.Segment.Value(src))
			if c.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(c.Value)
		default:
			b.WriteString(nodeText(c, src))
		}
	}
	return b.String()
}

// slugify turns heading text into an anchor: lower case, words joined by
// hyphens, punctuation dropped.
func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-' || r == '_':
			dash = true
		}
	}
	return b.String()
}

func uniqueSlug(seen map[string]int, s string) string {
	slug := slugify(s)
	n := seen[slug]
	seen[slug] = n + 1
	if n == 0 {
		return slug
	}
	return slug + "-" + strconv.Itoa(n)
}
