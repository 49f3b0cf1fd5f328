// Package users holds the run-scoped user directory used to turn user ids into
// display names.
package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/notion-graph/pkg/client"
	"github.com/Sternrassler/notion-graph/pkg/notion"
	"github.com/Sternrassler/notion-graph/pkg/registry"
)

// Source lists the workspace users.
type Source interface {
	Users(ctx context.Context) ([]notion.User, error)
}

// Directory maps user ids to display names for one run.
type Directory struct {
	names    map[string]string
	degraded bool
}

// Empty returns a directory that resolves every id to itself.
func Empty() *Directory {
	return &Directory{names: map[string]string{}}
}

// Load fetches the directory. A Forbidden response is not an error: the
// integration lacks the user capability, so lookups fall back to raw ids.
func Load(ctx context.Context, src Source) (*Directory, error) {
	list, err := src.Users(ctx)
	if err != nil {
		if errors.Is(err, client.ErrForbidden) {
			log.Warn().
				Str("component", "users").
				Err(err).
				Msg("User directory restricted, falling back to raw ids")
			d := Empty()
			d.degraded = true
			return d, nil
		}
		return Empty(), fmt.Errorf("load user directory: %w", err)
	}

	d := &Directory{names: make(map[string]string, len(list))}
	for _, u := range list {
		if u.Name == "" {
			continue
		}
		d.names[registry.NormalizeID(u.ID)] = u.Name
	}
	return d, nil
}

// DisplayName returns the user's name, or id itself when unknown.
func (d *Directory) DisplayName(id string) string {
	if d != nil {
		if name, ok := d.names[registry.NormalizeID(id)]; ok {
			return name
		}
	}
	return id
}

// Degraded reports whether the directory could not be read.
func (d *Directory) Degraded() bool {
	return d != nil && d.degraded
}

// Len returns the number of known users.
func (d *Directory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.names)
}
