package websearch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/nvalmar/luma/internal/model"
)

const duckduckgoEndpoint = "https://html.duckduckgo.com/html/"

// DuckDuckGo scrapes the HTML search endpoint, which needs no API key.
type DuckDuckGo struct {
	client     *http.Client
	maxResults int
}

func NewDuckDuckGo(timeout time.Duration, maxResults int) *DuckDuckGo {
	if maxResults <= 0 {
		maxResults = 5
	}
	return &DuckDuckGo{
		client:     &http.Client{Timeout: timeout},
		maxResults: maxResults,
	}
}

func (d *DuckDuckGo) Search(ctx context.Context, query string, maxResults int) ([]model.WebResult, error) {
	if maxResults <= 0 || maxResults > d.maxResults {
		maxResults = d.maxResults
	}
	endpoint := duckduckgoEndpoint + "?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; luma/1.0)")
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo returned %s", resp.Status)
	}
	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, err
	}
	results := parseResults(doc)
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results, nil
}

// parseResults walks the document collecting result anchors and snippets by
// their stable css classes.
func parseResults(doc *html.Node) []model.WebResult {
	var results []model.WebResult
	var current *model.WebResult

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			class := attr(n, "class")
			switch {
			case strings.Contains(class, "result__a"):
				if current != nil {
					results = append(results, *current)
				}
				current = &model.WebResult{
					Title: nodeText(n),
					URL:   cleanURL(attr(n, "href")),
				}
			case strings.Contains(class, "result__snippet"):
				if current != nil {
					current.Snippet = nodeText(n)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	if current != nil {
		results = append(results, *current)
	}
	return results
}

// cleanURL unwraps duckduckgo's redirect links to the target url.
func cleanURL(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(c *html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
		for child := c.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}
