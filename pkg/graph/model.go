package graph

import (
	"encoding/json"

	"github.com/Sternrassler/notion-graph/pkg/notion"
	"github.com/Sternrassler/notion-graph/pkg/registry"
)

// PageRef is a weak reference to a page: enough to link to it, no ownership.
type PageRef struct {
	ID    string
	Title string
}

// Page is a fully expanded page. It is written only by the task that claimed
// it and is read-only once merged into a Result.
type Page struct {
	ID         string
	Title      string
	URL        string
	Blocks     []notion.Block
	BlocksByID map[string]notion.Block
	Properties map[string]notion.Property

	// Parent is the page this one was discovered from, if any.
	Parent *PageRef

	// CollectionID is set for collection items.
	CollectionID string

	Subpages    []*Page
	Collections []*Collection
	Attachments map[string]*Attachment

	// TableRows holds row blocks by table block id. Rows never appear in Blocks.
	TableRows map[string][]notion.Block

	// Mentions lists every page or collection this page references inline,
	// whether or not this page's expansion was the one that fetched it.
	Mentions []Reference

	Errors []error
}

func newPage(obj *notion.PageObject, parent *PageRef) *Page {
	return &Page{
		ID:          obj.ID,
		Title:       obj.Title(),
		URL:         obj.URL,
		Properties:  obj.Properties,
		Parent:      parent,
		BlocksByID:  make(map[string]notion.Block),
		Attachments: make(map[string]*Attachment),
		TableRows:   make(map[string][]notion.Block),
	}
}

// Ref returns a weak reference to p.
func (p *Page) Ref() *PageRef {
	return &PageRef{ID: p.ID, Title: p.Title}
}

// Block looks a block up by id.
func (p *Page) Block(id string) (notion.Block, bool) {
	b, ok := p.BlocksByID[id]
	return b, ok
}

// Rows returns the row blocks of a table block.
func (p *Page) Rows(tableID string) []notion.Block {
	return p.TableRows[tableID]
}

// PlaceholderFor returns the token standing in for url, or "" when the
// attachment is unknown or its download failed.
func (p *Page) PlaceholderFor(url string) string {
	if a, ok := p.Attachments[url]; ok {
		return a.Token
	}
	return ""
}

// AttachmentRef returns a deferred reference to one of this page's attachments.
func (p *Page) AttachmentRef(url string) Reference {
	return Reference{Kind: RefAttachment, ID: url, Owner: p.ID}
}

func (p *Page) addError(err error) {
	p.Errors = append(p.Errors, err)
}

func (p *Page) setBlocks(blocks []notion.Block) {
	p.Blocks = blocks
	for _, b := range blocks {
		p.BlocksByID[b.ID] = b
	}
}

// Collection is an expanded database.
type Collection struct {
	ID          string
	Title       string
	TitleSource []notion.RichText
	Schema      map[string]json.RawMessage

	// Parent is the page embedding the collection, if any.
	Parent *PageRef

	// Items are the top-level item pages.
	Items []*Page

	// AllPages is every page in the collection's subtree. It is derived from
	// Items and rebuilt by AddItems.
	AllPages []*Page
}

func newCollection(obj *notion.DatabaseObject, parent *PageRef) *Collection {
	return &Collection{
		ID:          obj.ID,
		Title:       obj.TitleText(),
		TitleSource: obj.Title,
		Schema:      obj.Properties,
		Parent:      parent,
	}
}

// AddItems appends item pages, skipping ids already present, and rebuilds AllPages.
func (c *Collection) AddItems(pages ...*Page) {
	seen := make(map[string]bool, len(c.Items))
	for _, p := range c.Items {
		seen[registry.NormalizeID(p.ID)] = true
	}
	for _, p := range pages {
		if p == nil {
			continue
		}
		id := registry.NormalizeID(p.ID)
		if seen[id] {
			continue
		}
		seen[id] = true
		c.Items = append(c.Items, p)
	}
	c.AllPages = flatten(c.Items)
}

// flatten walks pages, their subpages and the items of collections they embed.
func flatten(pages []*Page) []*Page {
	var out []*Page
	seen := make(map[string]bool)

	var walk func(p *Page)
	walk = func(p *Page) {
		id := registry.NormalizeID(p.ID)
		if seen[id] {
			return
		}
		seen[id] = true
		out = append(out, p)
		for _, sub := range p.Subpages {
			walk(sub)
		}
		for _, c := range p.Collections {
			for _, item := range c.Items {
				walk(item)
			}
		}
	}
	for _, p := range pages {
		walk(p)
	}
	return out
}

// Attachment is a downloaded file referenced by a page.
type Attachment struct {
	// URL is the source URL and the attachment's identity within a page.
	URL       string
	BlockType string
	Filename  string

	// Token is the placeholder substituted at output time. Empty when the
	// download failed.
	Token string

	// Path is the local copy inside the run directory.
	Path string
	Size int
}

// IsImage reports whether the attachment renders inline as an image.
func (a *Attachment) IsImage() bool {
	return a.BlockType == notion.TypeImage
}

// Downloaded reports whether the bytes were stored.
func (a *Attachment) Downloaded() bool {
	return a.Token != ""
}

// RefKind is the target kind of a deferred reference.
type RefKind string

const (
	RefPage       RefKind = "page"
	RefCollection RefKind = "collection"
	RefAttachment RefKind = "attachment"
)

// Reference is a deferred link to another entity, resolved against the final
// Result instead of being read while the target may still be in progress.
type Reference struct {
	Kind RefKind
	// ID is the target id, or the source URL for attachments.
	ID string
	// Label is the text shown in the source, if any.
	Label string
	// Owner is the page holding an attachment reference.
	Owner string
}

func (r Reference) key() string {
	return string(r.Kind) + ":" + registry.NormalizeID(r.ID)
}

// Node is one element of a rendered fragment: literal text or a deferred reference.
type Node struct {
	Text string
	Ref  *Reference
}

// Nodes converts spans into nodes, turning page and collection mentions into
// references.
func Nodes(spans []notion.RichText) []Node {
	nodes := make([]Node, 0, len(spans))
	for _, span := range spans {
		if id, ok := span.PageMention(); ok {
			nodes = append(nodes, Node{Ref: &Reference{Kind: RefPage, ID: id, Label: span.PlainText}})
			continue
		}
		if id, ok := span.DatabaseMention(); ok {
			nodes = append(nodes, Node{Ref: &Reference{Kind: RefCollection, ID: id, Label: span.PlainText}})
			continue
		}
		nodes = append(nodes, Node{Text: span.PlainText})
	}
	return nodes
}
