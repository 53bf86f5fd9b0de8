package listing

import (
	"bytes"
	"fmt"
	"net/url"
	"path"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// nginx cuts long names in the link text and appends this marker
const truncatedMarker = "..>"

// ParseAutoindex extracts file names from an Apache/nginx style directory index page.
// The link text is used as the name. When the text was truncated by the server the
// unescaped href is used instead.
func ParseAutoindex(body []byte) (mapset.Set[string], error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("listing: parse html: %w", err)
	}

	var names []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.A {
			if href, ok := attr(n, "href"); ok {
				names = append(names, anchorName(text(n), href))
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return FilterEntries(names), nil
}

func anchorName(text, href string) string {
	name := strings.TrimSpace(text)
	if !strings.HasSuffix(name, truncatedMarker) {
		return name
	}
	if unescaped, err := url.PathUnescape(href); err == nil && !strings.HasSuffix(unescaped, "/") {
		return path.Base(unescaped)
	}
	return name
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func text(n *html.Node) string {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return sb.String()
}
