// Package notion implements the resource fetchers: typed wire records for pages,
// blocks, databases and users, and the cursor-paginated endpoints that return them.
package notion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/notion-graph/pkg/client"
	"github.com/Sternrassler/notion-graph/pkg/logging"
)

// DefaultPageSize is the page_size sent with list requests (the API maximum).
const DefaultPageSize = 100

// ErrCursorLoop is returned when the API hands back the cursor it was just given.
var ErrCursorLoop = errors.New("pagination cursor did not advance")

// Executor runs one request through the retry policy and returns the body.
type Executor interface {
	Execute(ctx context.Context, req client.Request) ([]byte, error)
}

// API exposes the Notion endpoints used by the graph engine.
type API struct {
	exec     Executor
	pageSize int
	logger   zerolog.Logger
}

// NewAPI creates an API backed by exec.
func NewAPI(exec Executor) *API {
	return &API{
		exec:     exec,
		pageSize: DefaultPageSize,
		logger:   logging.NewLogger("notion-api"),
	}
}

// SetPageSize overrides the page_size used for list requests.
func (a *API) SetPageSize(n int) {
	if n > 0 {
		a.pageSize = n
	}
}

// Page fetches one page record.
func (a *API) Page(ctx context.Context, id string) (*PageObject, error) {
	var page PageObject
	if err := a.getJSON(ctx, "pages", "pages/"+url.PathEscape(id), nil, &page); err != nil {
		return nil, fmt.Errorf("fetch page %s: %w", id, err)
	}
	return &page, nil
}

// Database fetches one database schema.
func (a *API) Database(ctx context.Context, id string) (*DatabaseObject, error) {
	var db DatabaseObject
	if err := a.getJSON(ctx, "databases", "databases/"+url.PathEscape(id), nil, &db); err != nil {
		return nil, fmt.Errorf("fetch database %s: %w", id, err)
	}
	return &db, nil
}

// BlockChildren fetches one page of a block's children.
func (a *API) BlockChildren(ctx context.Context, blockID, cursor string) (*List[Block], error) {
	query := url.Values{"page_size": {strconv.Itoa(a.pageSize)}}
	if cursor != "" {
		query.Set("start_cursor", cursor)
	}

	var list List[Block]
	if err := a.getJSON(ctx, "blocks_children", "blocks/"+url.PathEscape(blockID)+"/children", query, &list); err != nil {
		return nil, fmt.Errorf("fetch children of %s: %w", blockID, err)
	}
	return &list, nil
}

// Children fetches every child of a block, following cursors, without recursing.
func (a *API) Children(ctx context.Context, blockID string) ([]Block, error) {
	return Paginate(ctx, func(ctx context.Context, cursor string) (*List[Block], error) {
		return a.BlockChildren(ctx, blockID, cursor)
	})
}

// AllBlocks returns the flattened block tree under parentID in depth-first order.
// Nested pages and table rows are not descended into: a child page is a separate
// graph node and table rows are fetched separately.
func (a *API) AllBlocks(ctx context.Context, parentID string) ([]Block, error) {
	children, err := a.Children(ctx, parentID)
	if err != nil {
		return nil, err
	}

	a.logger.Debug().
		Str("parent_id", parentID).
		Int("children", len(children)).
		Msg("Fetched block children")

	var out []Block
	for _, block := range children {
		out = append(out, block)
		if !block.HasChildren || !Descend(block.Type) {
			continue
		}
		nested, err := a.AllBlocks(ctx, block.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, nested...)
	}
	return out, nil
}

// Descend reports whether AllBlocks recurses into blocks of this type.
func Descend(blockType string) bool {
	return blockType != TypeChildPage && blockType != TypeTable
}

// QueryDatabase returns every item of a database, following cursors.
func (a *API) QueryDatabase(ctx context.Context, id string) ([]PageObject, error) {
	return Paginate(ctx, func(ctx context.Context, cursor string) (*List[PageObject], error) {
		body := map[string]any{"page_size": a.pageSize}
		if cursor != "" {
			body["start_cursor"] = cursor
		}

		data, err := a.exec.Execute(ctx, client.Request{
			Endpoint: "databases_query",
			Method:   "POST",
			URL:      "databases/" + url.PathEscape(id) + "/query",
			Body:     body,
		})
		if err != nil {
			return nil, fmt.Errorf("query database %s: %w", id, err)
		}

		var list List[PageObject]
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("decode query of %s: %w", id, err)
		}
		return &list, nil
	})
}

// Users returns the workspace user directory, following cursors.
func (a *API) Users(ctx context.Context) ([]User, error) {
	return Paginate(ctx, func(ctx context.Context, cursor string) (*List[User], error) {
		query := url.Values{"page_size": {strconv.Itoa(a.pageSize)}}
		if cursor != "" {
			query.Set("start_cursor", cursor)
		}
		var list List[User]
		if err := a.getJSON(ctx, "users", "users", query, &list); err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		return &list, nil
	})
}

// Download fetches the bytes behind a signed file URL. No credentials are sent.
func (a *API) Download(ctx context.Context, fileURL string) ([]byte, error) {
	data, err := a.exec.Execute(ctx, client.Request{
		Endpoint: "download",
		URL:      fileURL,
		Raw:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", FilenameFromURL(fileURL), err)
	}
	return data, nil
}

func (a *API) getJSON(ctx context.Context, endpoint, path string, query url.Values, v any) error {
	data, err := a.exec.Execute(ctx, client.Request{
		Endpoint: endpoint,
		URL:      path,
		Query:    query,
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}

// Paginate calls fetch until the envelope reports no more results and returns
// the concatenated results in order.
func Paginate[T any](ctx context.Context, fetch func(ctx context.Context, cursor string) (*List[T], error)) ([]T, error) {
	var (
		all    []T
		cursor string
	)
	for {
		page, err := fetch(ctx, cursor)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Results...)

		if !page.HasMore || page.NextCursor == nil || *page.NextCursor == "" {
			return all, nil
		}
		if *page.NextCursor == cursor {
			return nil, fmt.Errorf("%w: %q", ErrCursorLoop, cursor)
		}
		cursor = *page.NextCursor
	}
}
