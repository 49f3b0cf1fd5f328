package graph

import (
	"github.com/Sternrassler/notion-graph/pkg/notion"
)

// discover scans the page's blocks and table rows for embedded ids: page and
// collection mentions inside rich text, and child page blocks whose id is the
// page id. Mentions are also recorded on the page. Candidates are returned
// once each, in document order.
func discover(page *Page) []Reference {
	var candidates []Reference
	seen := make(map[string]bool)
	mentioned := make(map[string]bool)

	add := func(ref Reference) {
		if seen[ref.key()] {
			return
		}
		seen[ref.key()] = true
		candidates = append(candidates, ref)
	}
	mention := func(ref Reference) {
		if !mentioned[ref.key()] {
			mentioned[ref.key()] = true
			page.Mentions = append(page.Mentions, ref)
		}
		add(ref)
	}

	scan := func(block notion.Block) {
		if p, ok := block.Payload.(notion.ChildPagePayload); ok {
			add(Reference{Kind: RefPage, ID: block.ID, Label: p.Title})
		}
		for _, span := range block.Spans() {
			if id, ok := span.PageMention(); ok {
				mention(Reference{Kind: RefPage, ID: id, Label: span.PlainText})
			}
			if id, ok := span.DatabaseMention(); ok {
				mention(Reference{Kind: RefCollection, ID: id, Label: span.PlainText})
			}
		}
	}

	for _, block := range page.Blocks {
		scan(block)
		if block.Type == notion.TypeTable {
			for _, row := range page.TableRows[block.ID] {
				scan(row)
			}
		}
	}
	return candidates
}
