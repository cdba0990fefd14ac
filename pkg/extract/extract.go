package extract

import (
	"strings"

	"listingscraper/pkg/metadata"
	"listingscraper/pkg/site"
)

// Links returns every image link the site's pattern matches, in page order.
// Duplicates are kept.
func Links(text string, kind site.Kind) ([]string, error) {
	p, err := site.PatternsFor(kind)
	if err != nil {
		return nil, err
	}

	matches := p.Link.FindAllStringSubmatch(text, -1)
	links := make([]string, 0, len(matches))
	for _, m := range matches {
		links = append(links, m[1])
	}
	return links, nil
}

// UniqueLinks collapses links to first-seen order
func UniqueLinks(links []string) []string {
	seen := make(map[string]struct{}, len(links))
	unique := make([]string, 0, len(links))
	for _, link := range links {
		if _, ok := seen[link]; ok {
			continue
		}
		seen[link] = struct{}{}
		unique = append(unique, link)
	}
	return unique
}

// Metadata builds the record for a page. Each field is looked up on its own,
// so a missing match leaves that field nil without affecting the rest.
func Metadata(text, sourceURL string, imageCount int, kind site.Kind) *metadata.Record {
	rec := metadata.NewRecord(sourceURL, kind.String(), imageCount)

	p, err := site.PatternsFor(kind)
	if err != nil {
		return rec
	}

	if m := p.Description.FindStringSubmatch(text); m != nil {
		desc := strings.TrimSpace(m[1])
		rec.Description = &desc
	}

	if p.Address != nil {
		applyAddress(rec, p.Address.FindStringSubmatch(text), p.Address.SubexpNames())
	}

	if p.Price != nil {
		if m := p.Price.FindStringSubmatch(text); m != nil {
			price := strings.ReplaceAll(m[1], ",", "")
			rec.Price = &price
		}
	}

	return rec
}

// applyAddress sets all five address fields or none of them
func applyAddress(rec *metadata.Record, match, names []string) {
	if match == nil {
		return
	}

	groups := make(map[string]string, len(names))
	for i, name := range names {
		if name != "" {
			groups[name] = match[i]
		}
	}

	targets := map[string]**string{
		"street":     &rec.Street,
		"city":       &rec.City,
		"state":      &rec.State,
		"zip":        &rec.Zip,
		"listing_id": &rec.ListingID,
	}
	for name := range targets {
		if groups[name] == "" {
			return
		}
	}
	for name, field := range targets {
		v := groups[name]
		*field = &v
	}
}
