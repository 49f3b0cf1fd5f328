// Package graph assembles a page or collection root into a complete,
// deduplicated graph of pages, collections and attachments.
//
// A Run is the per-run context: it owns the claim registry, the attachment
// store and the result aggregate, and is threaded through every expansion.
// Each id is expanded by at most one task; a task that loses the claim gets a
// nil entity and records a deferred Reference instead.
package graph

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/notion-graph/pkg/client"
	"github.com/Sternrassler/notion-graph/pkg/fanout"
	"github.com/Sternrassler/notion-graph/pkg/logging"
	"github.com/Sternrassler/notion-graph/pkg/notion"
	"github.com/Sternrassler/notion-graph/pkg/registry"
	"github.com/Sternrassler/notion-graph/pkg/users"
)

// Fetcher is the set of resource fetchers the assembler needs.
type Fetcher interface {
	Page(ctx context.Context, id string) (*notion.PageObject, error)
	Database(ctx context.Context, id string) (*notion.DatabaseObject, error)
	AllBlocks(ctx context.Context, parentID string) ([]notion.Block, error)
	Children(ctx context.Context, blockID string) ([]notion.Block, error)
	QueryDatabase(ctx context.Context, id string) ([]notion.PageObject, error)
	Users(ctx context.Context) ([]notion.User, error)
	Download(ctx context.Context, url string) ([]byte, error)
}

// Store persists attachment bytes.
type Store interface {
	WriteAttachment(filename string, data []byte) (string, error)
	Path() string
}

// Config holds assembler configuration.
type Config struct {
	// MaxWorkers caps each fan-out pool (default 50).
	MaxWorkers int

	// SkipAttachments records attachments without downloading them.
	SkipAttachments bool

	// SkipUsers leaves the user directory empty.
	SkipUsers bool
}

// DefaultConfig returns the default assembler configuration.
func DefaultConfig() Config {
	return Config{MaxWorkers: fanout.DefaultMaxWorkers}
}

// Run is one fetch run. It must not be reused.
type Run struct {
	api         Fetcher
	registry    registry.Registry
	attachments *AttachmentResolver
	config      Config
	logger      zerolog.Logger

	result *Result
	once   sync.Once
}

// NewRun creates a run. store may be nil when SkipAttachments is set.
func NewRun(api Fetcher, reg registry.Registry, store Store, cfg Config) (*Run, error) {
	if api == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if reg == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if store == nil && !cfg.SkipAttachments {
		return nil, fmt.Errorf("attachment store is required unless attachments are skipped")
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = fanout.DefaultMaxWorkers
	}

	r := &Run{
		api:      api,
		registry: reg,
		config:   cfg,
		logger:   logging.NewLogger("graph"),
		result:   newResult(),
	}
	if !cfg.SkipAttachments {
		r.attachments = NewAttachmentResolver(api, store)
		r.result.WorkDir = store.Path()
	}
	return r, nil
}

// Fetch expands rootID into a Result. The root is tried as a page first, then
// as a collection, whatever the page probe failed with. The run fails only when
// neither endpoint resolves it, with ErrRootNotFound when both report NotFound.
// Failures below the root are recorded in the Result.
func (r *Run) Fetch(ctx context.Context, rootID string) (*Result, error) {
	first := false
	r.once.Do(func() { first = true })
	if !first {
		return nil, ErrRunFinished
	}

	start := time.Now()
	r.logger.Info().Str("root_id", rootID).Msg("Starting fetch run")

	if err := r.expandRoot(ctx, rootID); err != nil {
		return nil, err
	}

	if r.config.SkipUsers {
		r.result.Users = users.Empty()
	} else {
		dir, err := users.Load(ctx, r.api)
		if err != nil {
			r.logger.Warn().Err(err).Msg("User directory unavailable")
			r.result.recordError(UsersErrorKey, err)
		}
		r.result.Users = dir
	}

	if claimed, err := r.registry.AllClaimed(ctx); err != nil {
		r.logger.Warn().Err(err).Msg("Could not list claimed ids")
	} else {
		r.result.Claimed = len(claimed)
	}

	r.logger.Info().
		Str("root_id", rootID).
		Int("pages", len(r.result.Pages)).
		Int("collections", len(r.result.Collections)).
		Int("errors", len(r.result.Errors)).
		Dur("duration", time.Since(start)).
		Msg("Fetch run complete")

	return r.result, nil
}

func (r *Run) expandRoot(ctx context.Context, rootID string) error {
	obj, err := r.api.Page(ctx, rootID)
	if err == nil {
		page, err := r.expandPage(ctx, rootID, nil, "", obj)
		if err != nil {
			return fmt.Errorf("expand root page %s: %w", rootID, err)
		}
		if page == nil {
			return fmt.Errorf("root page %s already claimed in this run", rootID)
		}
		r.result.RootPage = page
		return nil
	}
	pageErr := err

	db, err := r.api.Database(ctx, rootID)
	if err != nil {
		if errors.Is(pageErr, client.ErrNotFound) && errors.Is(err, client.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrRootNotFound, rootID)
		}
		return fmt.Errorf("resolve root %s: %w", rootID, errors.Join(pageErr, err))
	}
	if !errors.Is(pageErr, client.ErrNotFound) {
		r.logger.Debug().Str("root_id", rootID).Err(pageErr).Msg("Page probe failed, root is a collection")
	}

	coll, err := r.expandCollection(ctx, rootID, nil, db)
	if err != nil {
		return fmt.Errorf("expand root collection %s: %w", rootID, err)
	}
	r.result.RootCollection = coll
	return nil
}
