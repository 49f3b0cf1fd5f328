package graph

import (
	"sort"
	"strings"
	"sync"

	"github.com/Sternrassler/notion-graph/pkg/registry"
	"github.com/Sternrassler/notion-graph/pkg/users"
)

// UsersErrorKey is the Errors key for a user directory failure.
const UsersErrorKey = "users"

// Result is the aggregate of one run. Entities are merged only once fully
// expanded; membership is keyed by normalized id so completion order does not
// matter.
type Result struct {
	mu sync.RWMutex

	// Exactly one of RootPage and RootCollection is set.
	RootPage       *Page
	RootCollection *Collection

	Pages       map[string]*Page
	Collections map[string]*Collection

	// Errors holds failures of entities that could not be expanded, by id.
	Errors map[string]error

	Users   *users.Directory
	WorkDir string

	// Claimed is the number of ids claimed during the run.
	Claimed int
}

func newResult() *Result {
	return &Result{
		Pages:       make(map[string]*Page),
		Collections: make(map[string]*Collection),
		Errors:      make(map[string]error),
	}
}

func (r *Result) addPage(p *Page) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := registry.NormalizeID(p.ID)
	if _, ok := r.Pages[id]; !ok {
		r.Pages[id] = p
	}
}

func (r *Result) addCollection(c *Collection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := registry.NormalizeID(c.ID)
	if _, ok := r.Collections[id]; !ok {
		r.Collections[id] = c
	}
}

// recordError keeps the first error seen for id.
func (r *Result) recordError(id string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id = registry.NormalizeID(id)
	if _, ok := r.Errors[id]; !ok {
		r.Errors[id] = err
	}
}

// RootID returns the id of the root entity.
func (r *Result) RootID() string {
	switch {
	case r.RootPage != nil:
		return r.RootPage.ID
	case r.RootCollection != nil:
		return r.RootCollection.ID
	default:
		return ""
	}
}

// Page looks up a page by id in either dashed or undashed form.
func (r *Result) Page(id string) (*Page, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.Pages[registry.NormalizeID(id)]
	return p, ok
}

// Collection looks up a collection by id.
func (r *Result) Collection(id string) (*Collection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.Collections[registry.NormalizeID(id)]
	return c, ok
}

// SortedPages returns every page ordered by id.
func (r *Result) SortedPages() []*Page {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pages := make([]*Page, 0, len(r.Pages))
	for _, p := range r.Pages {
		pages = append(pages, p)
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].ID < pages[j].ID })
	return pages
}

// SortedCollections returns every collection ordered by id.
func (r *Result) SortedCollections() []*Collection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	colls := make([]*Collection, 0, len(r.Collections))
	for _, c := range r.Collections {
		colls = append(colls, c)
	}
	sort.Slice(colls, func(i, j int) bool { return colls[i].ID < colls[j].ID })
	return colls
}

// PageErrorCount returns the number of errors logged on pages.
func (r *Result) PageErrorCount() int {
	n := 0
	for _, p := range r.SortedPages() {
		n += len(p.Errors)
	}
	return n
}

// Target is what a Reference resolves to. Exactly one field is set.
type Target struct {
	Page       *Page
	Collection *Collection
	Attachment *Attachment
}

// Resolve looks up the target of a deferred reference.
func (r *Result) Resolve(ref Reference) (Target, bool) {
	switch ref.Kind {
	case RefPage:
		if p, ok := r.Page(ref.ID); ok {
			return Target{Page: p}, true
		}
	case RefCollection:
		if c, ok := r.Collection(ref.ID); ok {
			return Target{Collection: c}, true
		}
	case RefAttachment:
		owner, ok := r.Page(ref.Owner)
		if !ok {
			return Target{}, false
		}
		if a, ok := owner.Attachments[ref.ID]; ok && a.Downloaded() {
			return Target{Attachment: a}, true
		}
	}
	return Target{}, false
}

// Substitute renders nodes, replacing each reference with fn's output.
// fn is called with ok=false for references that did not resolve.
func (r *Result) Substitute(nodes []Node, fn func(ref Reference, target Target, ok bool) string) string {
	var b strings.Builder
	for _, n := range nodes {
		if n.Ref == nil {
			b.WriteString(n.Text)
			continue
		}
		target, ok := r.Resolve(*n.Ref)
		b.WriteString(fn(*n.Ref, target, ok))
	}
	return b.String()
}

// Unresolved returns the distinct mentions that point outside the result.
func (r *Result) Unresolved() []Reference {
	var out []Reference
	seen := make(map[string]bool)
	for _, p := range r.SortedPages() {
		for _, ref := range p.Mentions {
			if seen[ref.key()] {
				continue
			}
			seen[ref.key()] = true
			if _, ok := r.Resolve(ref); !ok {
				out = append(out, ref)
			}
		}
	}
	return out
}
