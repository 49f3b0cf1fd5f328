package graph

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Sternrassler/notion-graph/pkg/client"
	"github.com/Sternrassler/notion-graph/pkg/notion"
)

// expandPage claims id and builds its page with the full subgraph below it.
// It returns nil, nil when the id was already claimed. obj may carry an
// already fetched page record (root probe, collection query results).
// collectionID is set for collection items.
func (r *Run) expandPage(ctx context.Context, id string, parent *PageRef, collectionID string, obj *notion.PageObject) (*Page, error) {
	claimed, err := r.registry.Claim(ctx, id)
	if err != nil {
		expansionsTotal.WithLabelValues(kindPage, resultFailed).Inc()
		return nil, fmt.Errorf("claim page %s: %w", id, err)
	}
	if !claimed {
		expansionsTotal.WithLabelValues(kindPage, resultRejected).Inc()
		return nil, nil
	}

	start := time.Now()
	defer func() {
		expansionDuration.WithLabelValues(kindPage).Observe(time.Since(start).Seconds())
	}()

	if obj == nil {
		obj, err = r.api.Page(ctx, id)
		if err != nil {
			expansionsTotal.WithLabelValues(kindPage, resultFailed).Inc()
			return nil, err
		}
	}

	blocks, err := r.api.AllBlocks(ctx, id)
	if err != nil {
		expansionsTotal.WithLabelValues(kindPage, resultFailed).Inc()
		return nil, fmt.Errorf("fetch blocks of page %s: %w", id, err)
	}

	page := newPage(obj, parent)
	page.CollectionID = collectionID
	page.setBlocks(blocks)

	r.resolveBlocks(ctx, page)
	r.resolveProperties(ctx, page)
	r.expandDiscovered(ctx, page, discover(page))

	r.result.addPage(page)
	expansionsTotal.WithLabelValues(kindPage, resultDone).Inc()

	r.logger.Debug().
		Str("page_id", page.ID).
		Int("blocks", len(page.Blocks)).
		Int("subpages", len(page.Subpages)).
		Int("errors", len(page.Errors)).
		Msg("Page expanded")
	return page, nil
}

// resolveBlocks handles block types that need side fetches: table rows,
// embedded collections and attachments.
func (r *Run) resolveBlocks(ctx context.Context, page *Page) {
	for _, block := range page.Blocks {
		switch p := block.Payload.(type) {
		case notion.UnknownPayload:
			r.pageError(page, fmt.Errorf("%w: block %s of type %q", ErrUnrecognizedType, block.ID, p.Type))

		case notion.TablePayload:
			rows, err := r.api.Children(ctx, block.ID)
			if err != nil {
				r.pageError(page, fmt.Errorf("fetch rows of table %s: %w", block.ID, err))
				continue
			}
			page.TableRows[block.ID] = rows
			for _, row := range rows {
				if u, ok := row.Payload.(notion.UnknownPayload); ok {
					r.pageError(page, fmt.Errorf("%w: table row %s of type %q", ErrUnrecognizedType, row.ID, u.Type))
				}
			}

		case notion.ChildDatabasePayload:
			coll, err := r.expandCollection(ctx, block.ID, page.Ref(), nil)
			r.attachCollection(page, block.ID, coll, err)

		case notion.FilePayload:
			if p.IsHosted() {
				r.resolveAttachment(ctx, page, p.URL(), block.Type)
			}
		}
	}
}

// resolveProperties validates property types and resolves hosted files.
// Properties are visited in name order so error logs are stable.
func (r *Run) resolveProperties(ctx context.Context, page *Page) {
	names := make([]string, 0, len(page.Properties))
	for name := range page.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		prop := page.Properties[name]
		if !notion.KnownPropertyTypes[prop.Type] {
			r.pageError(page, fmt.Errorf("%w: property %q of type %q", ErrUnrecognizedType, name, prop.Type))
			continue
		}
		if prop.Type != "files" {
			continue
		}
		for _, f := range prop.Files {
			if f.IsHosted() {
				r.resolveAttachment(ctx, page, f.URL(), notion.TypeFile)
			}
		}
	}
}

func (r *Run) resolveAttachment(ctx context.Context, page *Page, url, kind string) {
	if r.attachments == nil {
		if _, ok := page.Attachments[url]; !ok {
			page.Attachments[url] = &Attachment{URL: url, BlockType: kind, Filename: notion.FilenameFromURL(url)}
		}
		return
	}
	if _, err := r.attachments.Resolve(ctx, page, url, kind); err != nil {
		r.pageError(page, err)
	}
}

// expandDiscovered claims and expands mention and child page candidates in
// discovery order. Each one is expanded by direct recursion.
func (r *Run) expandDiscovered(ctx context.Context, page *Page, candidates []Reference) {
	for _, ref := range candidates {
		switch ref.Kind {
		case RefPage:
			sub, err := r.expandPage(ctx, ref.ID, page.Ref(), "", nil)
			if err != nil {
				r.targetError(page, ref, err)
				continue
			}
			if sub != nil {
				page.Subpages = append(page.Subpages, sub)
			}

		case RefCollection:
			coll, err := r.expandCollection(ctx, ref.ID, page.Ref(), nil)
			r.attachCollection(page, ref.ID, coll, err)
		}
	}
}

func (r *Run) attachCollection(page *Page, id string, coll *Collection, err error) {
	if err != nil {
		r.targetError(page, Reference{Kind: RefCollection, ID: id}, err)
		return
	}
	if coll != nil {
		page.Collections = append(page.Collections, coll)
	}
}

// targetError records a failed sub-target on the page and in the aggregate.
// The page itself still completes.
func (r *Run) targetError(page *Page, ref Reference, err error) {
	event := r.logger.Warn()
	if errors.Is(err, client.ErrNotFound) || errors.Is(err, client.ErrForbidden) {
		event = r.logger.Info()
	}
	event.
		Str("page_id", page.ID).
		Str("target_id", ref.ID).
		Str("target_kind", string(ref.Kind)).
		Err(err).
		Msg("Skipping unreachable target")

	r.result.recordError(ref.ID, err)
	r.pageError(page, fmt.Errorf("%s %s: %w", ref.Kind, ref.ID, err))
}

func (r *Run) pageError(page *Page, err error) {
	entityErrorsTotal.WithLabelValues(kindPage).Inc()
	page.addError(err)
}
