package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/proprogresja/venue-events/internal/event"
	"github.com/proprogresja/venue-events/internal/rules"
)

// Pseudo selectors understood by FieldChain
const (
	SelectSelf      = "@self"
	SelectFirstLine = "@firstline"
)

// SelectorCascade is an ordered list of container selectors
type SelectorCascade []string

// Find returns the nodes of the first selector that matches anything, along with
// that selector. It returns nil and "" when no selector matches.
func (c SelectorCascade) Find(root *goquery.Selection) (*goquery.Selection, string) {
	for _, selector := range c {
		if strings.TrimSpace(selector) == "" {
			continue
		}
		if found := root.Find(selector); found.Length() > 0 {
			return found, selector
		}
	}
	return nil, ""
}

// FieldChain is an ordered list of ways to read one field from a container
type FieldChain []rules.FieldRule

// Value returns the first non-empty value in the chain
func (c FieldChain) Value(container *goquery.Selection) string {
	for _, rule := range c {
		if v := ruleValue(container, rule); v != "" {
			return v
		}
	}
	return ""
}

// Values returns every matching node's value for the first rule that yields any
func (c FieldChain) Values(container *goquery.Selection) []string {
	for _, rule := range c {
		if rule.Selector == SelectSelf || rule.Selector == SelectFirstLine {
			if v := ruleValue(container, rule); v != "" {
				return []string{v}
			}
			continue
		}

		var values []string
		container.Find(rule.Selector).Each(func(_ int, s *goquery.Selection) {
			if v := nodeValue(s, rule.Attr); v != "" {
				values = append(values, v)
			}
		})
		if len(values) > 0 {
			return values
		}
	}
	return nil
}

func ruleValue(container *goquery.Selection, rule rules.FieldRule) string {
	switch rule.Selector {
	case SelectSelf:
		return nodeValue(container, rule.Attr)
	case SelectFirstLine:
		return firstLine(container.Text())
	case "":
		return ""
	}
	return nodeValue(container.Find(rule.Selector).First(), rule.Attr)
}

func nodeValue(s *goquery.Selection, attr string) string {
	if s.Length() == 0 {
		return ""
	}
	if attr != "" {
		v, _ := s.Attr(attr)
		return cleanText(v)
	}
	return cleanText(s.Text())
}

// cleanText collapses all whitespace runs to single spaces
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = cleanText(line); line != "" {
			return line
		}
	}
	return ""
}

var headingTags = map[string]bool{"h1": true, "h2": true, "h3": true, "h4": true, "strong": true, "b": true}

// ScanFallback finds events on pages without recognizable event containers. Every
// leaf element whose text looks like a date becomes a candidate, named after the
// nearest heading before it in document order.
func ScanFallback(doc *goquery.Document) []event.RawEventCandidate {
	var (
		candidates []event.RawEventCandidate
		heading    string
		seen       = make(map[string]bool)
	)

	doc.Find("body *").Each(func(_ int, s *goquery.Selection) {
		tag := goquery.NodeName(s)
		if tag == "script" || tag == "style" || tag == "noscript" {
			return
		}

		text := cleanText(s.Text())
		if headingTags[tag] {
			// A heading that is itself a date does not name the event
			if text != "" && event.MatcherName(text) == "" {
				heading = text
			}
			return
		}
		if s.Children().Length() > 0 || text == "" || len(text) > 160 {
			return
		}
		if heading == "" || event.MatcherName(text) == "" {
			return
		}

		key := heading + "|" + text
		if seen[key] {
			return
		}
		seen[key] = true

		c := event.RawEventCandidate{
			Name:     heading,
			DateText: text,
			TimeText: text,
		}
		if href, ok := s.Closest("a").Attr("href"); ok {
			c.SourceURL = href
		}
		candidates = append(candidates, c)
	})

	return candidates
}
