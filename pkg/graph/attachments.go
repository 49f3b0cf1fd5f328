package graph

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/notion-graph/pkg/logging"
	"github.com/Sternrassler/notion-graph/pkg/notion"
)

// Downloader fetches raw attachment bytes.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// AttachmentResolver downloads attachment bytes into the run directory and
// issues placeholder tokens.
type AttachmentResolver struct {
	downloader Downloader
	store      Store
	newToken   func() string
	logger     zerolog.Logger
}

// NewAttachmentResolver creates a resolver writing into store.
func NewAttachmentResolver(downloader Downloader, store Store) *AttachmentResolver {
	return &AttachmentResolver{
		downloader: downloader,
		store:      store,
		newToken:   uuid.NewString,
		logger:     logging.NewLogger("attachments"),
	}
}

// Resolve returns the page's attachment for url, downloading it on first use.
// A url is downloaded at most once per page, whether or not that succeeded. On
// failure the attachment is kept with an empty token and an error wrapping
// ErrAttachmentDownload is returned for the page's log.
func (ar *AttachmentResolver) Resolve(ctx context.Context, page *Page, url, kind string) (*Attachment, error) {
	if a, ok := page.Attachments[url]; ok {
		return a, nil
	}

	a := &Attachment{
		URL:       url,
		BlockType: kind,
		Filename:  notion.FilenameFromURL(url),
	}
	page.Attachments[url] = a

	data, err := ar.downloader.Download(ctx, url)
	if err != nil {
		attachmentDownloadsTotal.WithLabelValues(resultFailed).Inc()
		return a, fmt.Errorf("%w: %s on page %s: %w", ErrAttachmentDownload, a.Filename, page.ID, err)
	}

	path, err := ar.store.WriteAttachment(a.Filename, data)
	if err != nil {
		attachmentDownloadsTotal.WithLabelValues(resultFailed).Inc()
		return a, fmt.Errorf("%w: %s on page %s: %w", ErrAttachmentDownload, a.Filename, page.ID, err)
	}

	a.Path = path
	a.Size = len(data)
	a.Token = ar.newToken()

	attachmentDownloadsTotal.WithLabelValues(resultDone).Inc()
	attachmentBytesTotal.Add(float64(len(data)))
	ar.logger.Debug().
		Str("page_id", page.ID).
		Str("file", a.Filename).
		Str("kind", kind).
		Str("size", humanize.Bytes(uint64(len(data)))).
		Msg("Attachment downloaded")
	return a, nil
}
