package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// DefaultResultSelector matches an organic result container on Google's
// desktop results page.
const DefaultResultSelector = ".tF2Cxc"

// Extractor pulls candidate links out of a search results page.
// Implementations never fail: unparseable input yields no links.
type Extractor interface {
	Extract(body []byte) []string
}

// SelectorExtractor returns the first anchor href inside each element matching
// a CSS selector, in document order.
type SelectorExtractor struct {
	selector string
	matcher  cascadia.Selector
}

var _ Extractor = (*SelectorExtractor)(nil)

// NewSelectorExtractor compiles selector once so a bad selector is caught at startup.
func NewSelectorExtractor(selector string) (*SelectorExtractor, error) {
	if strings.TrimSpace(selector) == "" {
		selector = DefaultResultSelector
	}
	m, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid result selector %q: %w", selector, err)
	}
	return &SelectorExtractor{selector: selector, matcher: m}, nil
}

func (e *SelectorExtractor) Extract(body []byte) []string {
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil
	}
	doc := goquery.NewDocumentFromNode(root)

	var links []string
	doc.FindMatcher(e.matcher).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Find("a").First().Attr("href")
		if !ok || href == "" {
			return
		}
		links = append(links, href)
	})
	return links
}

// DefaultIgnoredHosts are the search engine's own hosts, which appear in
// navigation and footer anchors on every results page.
var DefaultIgnoredHosts = []string{"google.com", "googleusercontent.com", "gstatic.com", "youtube.com"}

// AnchorExtractor returns every absolute http(s) anchor in the page whose host
// is not ignored. It does not depend on result markup, so it keeps working when
// the container class changes, at the cost of precision.
type AnchorExtractor struct {
	IgnoredHosts []string
}

var _ Extractor = (*AnchorExtractor)(nil)

// NewAnchorExtractor returns an AnchorExtractor ignoring DefaultIgnoredHosts.
func NewAnchorExtractor() *AnchorExtractor {
	hosts := make([]string, len(DefaultIgnoredHosts))
	copy(hosts, DefaultIgnoredHosts)
	return &AnchorExtractor{IgnoredHosts: hosts}
}

func (e *AnchorExtractor) Extract(body []byte) []string {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil
	}

	var links []string
	for n := range doc.Descendants() {
		if n.Type != html.ElementNode || n.Data != "a" {
			continue
		}
		for _, a := range n.Attr {
			if a.Key != "href" {
				continue
			}
			if e.keep(a.Val) {
				links = append(links, strings.TrimSpace(a.Val))
			}
			break
		}
	}
	return links
}

func (e *AnchorExtractor) keep(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}
	for _, h := range e.IgnoredHosts {
		h = strings.ToLower(h)
		if host == h || strings.HasSuffix(host, "."+h) {
			return false
		}
	}
	return true
}

// Chain tries each extractor in order and returns the first non-empty result.
type Chain []Extractor

var _ Extractor = Chain(nil)

func (c Chain) Extract(body []byte) []string {
	for _, e := range c {
		if links := e.Extract(body); len(links) > 0 {
			return links
		}
	}
	return nil
}
