// Package extract turns rendered product pages into ProductRecords using an
// ordered, data-driven heuristic rule list.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/stylistiq/fashionbot/internal/pipeline"
)

// Rule is one ordered extraction heuristic: tag kinds tried in order, each
// matched against a keyword set. The first element whose text or
// class/id/itemprop attributes contain a keyword wins.
type Rule struct {
	Field    string
	Tags     []string
	Keywords []string
}

// DefaultRules returns the heuristic rule list for product fields.
func DefaultRules() []Rule {
	return []Rule{
		{Field: "name", Tags: []string{"h1", "h2", "title"}, Keywords: []string{"product", "name", "title"}},
		{Field: "price", Tags: []string{"span", "div"}, Keywords: []string{"price", "amount", "money"}},
		{Field: "description", Tags: []string{"p", "div"}, Keywords: []string{"description", "details"}},
	}
}

// ImageMarkers are matched against img src/alt/class to pick a product shot.
var ImageMarkers = []string{"product", "item", "clothing", "dress"}

// Apply evaluates a rule against the document, first match wins. Returns
// the NotFound sentinel when no element matches.
func Apply(doc *goquery.Document, rule Rule) string {
	for _, tag := range rule.Tags {
		value := ""
		doc.Find(tag).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			if !matches(sel, rule.Keywords) {
				return true
			}
			value = strings.TrimSpace(sel.Text())
			return value == ""
		})
		if value != "" {
			return value
		}
	}
	return pipeline.NotFound
}

// Image scans every img element for a marker in src, alt or class and
// returns the first matching src.
func Image(doc *goquery.Document) string {
	src := pipeline.NotFound
	doc.Find("img").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		for _, attr := range []string{"src", "alt", "class"} {
			v, ok := sel.Attr(attr)
			if !ok {
				continue
			}
			if containsAny(strings.ToLower(v), ImageMarkers) {
				if s, ok := sel.Attr("src"); ok && s != "" {
					src = s
					return false
				}
			}
		}
		return true
	})
	return src
}

// Fields runs the full rule list plus image extraction over a rendered page
// and assembles the raw ProductRecord for sourceURL.
func Fields(doc *goquery.Document, rules []Rule, sourceURL string) pipeline.ProductRecord {
	rec := pipeline.ProductRecord{
		ID:          pipeline.ProductID(sourceURL),
		SourceURL:   sourceURL,
		Name:        pipeline.NotFound,
		Price:       pipeline.NotFound,
		Description: pipeline.NotFound,
		ImageURL:    Image(doc),
	}
	for _, rule := range rules {
		value := Apply(doc, rule)
		switch rule.Field {
		case "name":
			rec.Name = value
		case "price":
			rec.Price = value
		case "description":
			rec.Description = value
		}
	}
	return rec
}

func matches(sel *goquery.Selection, keywords []string) bool {
	if containsAny(strings.ToLower(sel.Text()), keywords) {
		return true
	}
	for _, attr := range []string{"class", "id", "itemprop"} {
		if v, ok := sel.Attr(attr); ok && containsAny(strings.ToLower(v), keywords) {
			return true
		}
	}
	return false
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
