package extract

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// collapseSpace trims s and folds internal whitespace runs to one space.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"head":     true,
}

// textLines renders the visible text of an HTML document as trimmed,
// non-empty lines. Every text node starts a new line.
func textLines(body []byte) ([]string, error) {
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var lines []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skippedElements[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			for _, line := range strings.Split(n.Data, "\n") {
				if line = strings.TrimSpace(line); line != "" {
					lines = append(lines, line)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return lines, nil
}

// linesContaining joins the lines containing any of subs (ignoring case).
func linesContaining(lines []string, subs ...string) string {
	var picked []string
	for _, line := range lines {
		if containsAny(line, subs) {
			picked = append(picked, line)
		}
	}
	return strings.Join(picked, " ")
}

// uniqueMatches returns values in first-seen order without duplicates.
func uniqueMatches(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
