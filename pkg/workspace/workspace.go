// Package workspace manages the per-run working directory where attachments are
// written before the output stage copies them into place.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/notion-graph/pkg/logging"
)

const (
	// RunsDirName groups run directories under the base directory.
	RunsDirName = "notion-graph-runs"

	// AttachmentsDirName is the attachment subdirectory of a run.
	AttachmentsDirName = "attachments"

	defaultFilename = "file"
)

// ErrClosed is returned when a cleaned-up workspace is used.
var ErrClosed = errors.New("workspace already cleaned up")

// Dir is one run's working directory.
type Dir struct {
	path   string
	runID  string
	closed bool
	logger zerolog.Logger
}

// New creates <base>/notion-graph-runs/<date>--<runID>. An empty base uses the
// system temp directory; an empty runID gets a fresh uuid.
func New(base, runID string) (*Dir, error) {
	if base == "" {
		base = os.TempDir()
	}
	if runID == "" {
		runID = uuid.NewString()
	}

	name := time.Now().UTC().Format("2006-01-02") + "--" + runID
	path := filepath.Join(base, RunsDirName, name)
	if err := os.MkdirAll(filepath.Join(path, AttachmentsDirName), 0o755); err != nil {
		return nil, fmt.Errorf("create run directory: %w", err)
	}

	logger := logging.WithRun(logging.NewLogger("workspace"), runID)
	logger.Debug().Str("path", path).Msg("Run directory created")

	return &Dir{path: path, runID: runID, logger: logger}, nil
}

// Path returns the run directory.
func (d *Dir) Path() string {
	return d.path
}

// RunID returns the id embedded in the directory name.
func (d *Dir) RunID() string {
	return d.runID
}

// AttachmentPath reserves a collision-resistant destination for filename:
// attachments/<random>/<filename>. The random directory is created.
func (d *Dir) AttachmentPath(filename string) (string, error) {
	if d.closed {
		return "", ErrClosed
	}

	dir := filepath.Join(d.path, AttachmentsDirName, uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create attachment directory: %w", err)
	}
	return filepath.Join(dir, SanitizeFilename(filename)), nil
}

// WriteAttachment stores data under a fresh attachment path and returns it.
func (d *Dir) WriteAttachment(filename string, data []byte) (string, error) {
	path, err := d.AttachmentPath(filename)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write attachment: %w", err)
	}

	d.logger.Debug().
		Str("file", filepath.Base(path)).
		Str("size", humanize.Bytes(uint64(len(data)))).
		Msg("Attachment stored")
	return path, nil
}

// Cleanup removes the run directory and everything in it.
func (d *Dir) Cleanup() error {
	if d.closed {
		return nil
	}
	d.closed = true
	if err := os.RemoveAll(d.path); err != nil {
		return fmt.Errorf("remove run directory: %w", err)
	}
	d.logger.Debug().Msg("Run directory removed")
	return nil
}

// SanitizeFilename keeps only the final path element of name and replaces
// characters that are unsafe on common filesystems.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	if name == "." || name == "/" || name == ".." || strings.TrimSpace(name) == "" {
		return defaultFilename
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case ':', '*', '?', '"', '<', '>', '|', 0:
			return '_'
		}
		return r
	}, name)
}
