package graph

import "errors"

var (
	// ErrRootNotFound is returned when the root id is neither a page nor a collection.
	ErrRootNotFound = errors.New("root not found as page or collection")

	// ErrUnrecognizedType is recorded on a page for a block or property of unknown shape.
	ErrUnrecognizedType = errors.New("unrecognized type")

	// ErrAttachmentDownload is recorded on a page when an attachment could not be stored.
	ErrAttachmentDownload = errors.New("attachment download failed")

	// ErrRunFinished is returned when a Run is fetched twice.
	ErrRunFinished = errors.New("run already fetched")
)
