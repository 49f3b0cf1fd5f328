package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/notion-graph/pkg/fanout"
	"github.com/Sternrassler/notion-graph/pkg/notion"
)

// expandCollection claims id, fetches its schema and items, and expands the
// items on a bounded pool. It returns nil, nil when the id was already claimed.
func (r *Run) expandCollection(ctx context.Context, id string, parent *PageRef, obj *notion.DatabaseObject) (*Collection, error) {
	claimed, err := r.registry.Claim(ctx, id)
	if err != nil {
		expansionsTotal.WithLabelValues(kindCollection, resultFailed).Inc()
		return nil, fmt.Errorf("claim collection %s: %w", id, err)
	}
	if !claimed {
		expansionsTotal.WithLabelValues(kindCollection, resultRejected).Inc()
		return nil, nil
	}

	start := time.Now()
	defer func() {
		expansionDuration.WithLabelValues(kindCollection).Observe(time.Since(start).Seconds())
	}()

	if obj == nil {
		obj, err = r.api.Database(ctx, id)
		if err != nil {
			expansionsTotal.WithLabelValues(kindCollection, resultFailed).Inc()
			return nil, err
		}
	}

	items, err := r.api.QueryDatabase(ctx, id)
	if err != nil {
		expansionsTotal.WithLabelValues(kindCollection, resultFailed).Inc()
		return nil, fmt.Errorf("query collection %s: %w", id, err)
	}

	coll := newCollection(obj, parent)
	r.logger.Debug().
		Str("collection_id", id).
		Int("items", len(items)).
		Int("workers", fanout.Workers(r.config.MaxWorkers, len(items))).
		Msg("Expanding collection items")

	results := fanout.Map(ctx, items, r.config.MaxWorkers, func(ctx context.Context, item notion.PageObject) (*Page, error) {
		return r.expandPage(ctx, item.ID, parent, coll.ID, &item)
	})

	pages := make([]*Page, 0, len(results))
	for i, res := range results {
		if res.Err != nil {
			entityErrorsTotal.WithLabelValues(kindCollection).Inc()
			r.logger.Warn().
				Str("collection_id", id).
				Str("page_id", items[i].ID).
				Err(res.Err).
				Msg("Collection item failed")
			r.result.recordError(items[i].ID, res.Err)
			continue
		}
		pages = append(pages, res.Value)
	}
	coll.AddItems(pages...)

	r.result.addCollection(coll)
	expansionsTotal.WithLabelValues(kindCollection, resultDone).Inc()
	return coll, nil
}
