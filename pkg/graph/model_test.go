package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/notion-graph/pkg/notion"
)

func TestCollectionAddItems_DedupAndRecompute(t *testing.T) {
	deep := &Page{ID: "deep"}
	nested := &Collection{ID: "inner", Items: []*Page{{ID: "inner-item"}}}
	a := &Page{ID: "a", Subpages: []*Page{deep}, Collections: []*Collection{nested}}
	b := &Page{ID: "b"}

	c := &Collection{ID: "c"}
	c.AddItems(a, nil)
	assert.Equal(t, []string{"a", "deep", "inner-item"}, pageIDs(c.AllPages))

	c.AddItems(b, &Page{ID: "A"})
	assert.Equal(t, []string{"a", "b"}, pageIDs(c.Items))
	assert.Equal(t, []string{"a", "deep", "inner-item", "b"}, pageIDs(c.AllPages))
}

func TestNodesAndSubstitute(t *testing.T) {
	target := &Page{ID: "6f0a1b2c-3d4e-5f60-7182-93a4b5c6d7e8", Title: "Target"}
	result := newResult()
	result.addPage(target)

	spans := []notion.RichText{
		{Type: "text", PlainText: "see "},
		{Type: "mention", PlainText: "Target", Mention: &notion.Mention{Type: "page", Page: &notion.ObjectRef{ID: "6f0a1b2c3d4e5f60718293a4b5c6d7e8"}}},
		{Type: "text", PlainText: " and "},
		{Type: "mention", PlainText: "Gone", Mention: &notion.Mention{Type: "database", Database: &notion.ObjectRef{ID: "db-x"}}},
	}

	nodes := Nodes(spans)
	require.Len(t, nodes, 4)
	assert.Equal(t, RefCollection, nodes[3].Ref.Kind)

	out := result.Substitute(nodes, func(ref Reference, tgt Target, ok bool) string {
		if !ok {
			return "[" + ref.Label + "]"
		}
		return "<" + tgt.Page.Title + ">"
	})
	assert.Equal(t, "see <Target> and [Gone]", out)
}

type fakeDownloader struct {
	calls map[string]int
	data  map[string][]byte
}

func (f *fakeDownloader) Download(_ context.Context, url string) ([]byte, error) {
	f.calls[url]++
	if d, ok := f.data[url]; ok {
		return d, nil
	}
	return nil, errors.New("gone")
}

type memStore struct {
	files map[string][]byte
}

func (m *memStore) WriteAttachment(filename string, data []byte) (string, error) {
	path := "/run/attachments/x/" + filename
	m.files[path] = data
	return path, nil
}

func (m *memStore) Path() string { return "/run" }

func TestAttachmentResolver(t *testing.T) {
	dl := &fakeDownloader{
		calls: map[string]int{},
		data:  map[string][]byte{"https://files/a.png": []byte("a")},
	}
	store := &memStore{files: map[string][]byte{}}
	ar := NewAttachmentResolver(dl, store)
	ar.newToken = func() string { return "tok" }

	page := newPage(&notion.PageObject{ID: "p"}, nil)

	first, err := ar.Resolve(context.Background(), page, "https://files/a.png", notion.TypeImage)
	require.NoError(t, err)
	second, err := ar.Resolve(context.Background(), page, "https://files/a.png", notion.TypeFile)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, dl.calls["https://files/a.png"])
	assert.Equal(t, "tok", first.Token)
	assert.Equal(t, "/run/attachments/x/a.png", first.Path)
	assert.Equal(t, []byte("a"), store.files[first.Path])

	failed, err := ar.Resolve(context.Background(), page, "https://files/b.pdf", notion.TypePDF)
	assert.ErrorIs(t, err, ErrAttachmentDownload)
	assert.False(t, failed.Downloaded())

	_, err = ar.Resolve(context.Background(), page, "https://files/b.pdf", notion.TypePDF)
	assert.NoError(t, err)
	assert.Equal(t, 1, dl.calls["https://files/b.pdf"], "failed downloads are not repeated on the same page")
}
