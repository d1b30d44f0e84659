// Package filesystem provides a connector for local files and directories.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/domain"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/ports/driven"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/logger"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/normalisers"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// DefaultMaxFileSize is the largest file read during a sync (50 MiB).
const DefaultMaxFileSize int64 = 50 << 20

// Connector reads documents from a local file or directory tree.
// Hidden files and directories are skipped.
type Connector struct {
	rootPath    string
	maxFileSize int64
	watcher     *fsnotify.Watcher
}

// Option configures a Connector.
type Option func(*Connector)

// WithMaxFileSize sets the maximum size of files read. Larger files are skipped.
func WithMaxFileSize(n int64) Option {
	return func(c *Connector) {
		if n > 0 {
			c.maxFileSize = n
		}
	}
}

// New creates a filesystem connector rooted at rootPath.
// rootPath may be a bare path or a file:// URI.
func New(rootPath string, opts ...Option) *Connector {
	c := &Connector{
		rootPath:    ResolvePath(rootPath),
		maxFileSize: DefaultMaxFileSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ResolvePath converts a file:// URI to a local path. Bare paths pass through.
func ResolvePath(uri string) string {
	return strings.TrimPrefix(uri, "file://")
}

// Type returns the connector type identifier.
func (c *Connector) Type() string {
	return "filesystem"
}

// RootPath returns the resolved root.
func (c *Connector) RootPath() string {
	return c.rootPath
}

// Validate checks the root exists and is readable.
func (c *Connector) Validate(_ context.Context) error {
	if c.rootPath == "" {
		return fmt.Errorf("%w: empty path", domain.ErrInvalidInput)
	}
	info, err := os.Stat(c.rootPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %s does not exist", domain.ErrNotFound, c.rootPath)
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", c.rootPath, err)
	}
	if info.IsDir() {
		if _, err := os.ReadDir(c.rootPath); err != nil {
			return fmt.Errorf("read dir %s: %w", c.rootPath, err)
		}
	}
	return nil
}

// FullSync walks the root and emits every readable, non-hidden file.
func (c *Connector) FullSync(ctx context.Context) (<-chan domain.RawDocument, <-chan error) {
	docs := make(chan domain.RawDocument)
	errs := make(chan error, 1)

	go func() {
		defer close(docs)
		defer close(errs)

		if err := c.Validate(ctx); err != nil {
			errs <- err
			return
		}

		walkErr := filepath.WalkDir(c.rootPath, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				logger.Warn("Skipping %s: %v", path, err)
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if path != c.rootPath && isHidden(d.Name()) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() || !d.Type().IsRegular() {
				return nil
			}

			doc, ok := c.readFile(path)
			if !ok {
				return nil
			}
			select {
			case docs <- doc:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if walkErr != nil {
			errs <- fmt.Errorf("walk %s: %w", c.rootPath, walkErr)
		}
	}()

	return docs, errs
}

// ReadDocument loads one file as a raw document, named by its base name.
// A missing file is domain.ErrNotFound; a directory or a file over
// DefaultMaxFileSize is domain.ErrInvalidInput.
func ReadDocument(path string) (*domain.RawDocument, error) {
	path = ResolvePath(path)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s does not exist", domain.ErrNotFound, path)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", domain.ErrInvalidInput, path)
	}
	if info.Size() > DefaultMaxFileSize {
		return nil, fmt.Errorf("%w: %s is larger than %d bytes", domain.ErrInvalidInput, path, DefaultMaxFileSize)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	doc := buildDocument(path, content, info)
	return &doc, nil
}

// readFile loads a single file. Unreadable and oversize files are skipped.
func (c *Connector) readFile(path string) (domain.RawDocument, bool) {
	info, err := os.Stat(path)
	if err != nil {
		logger.Warn("Skipping %s: %v", path, err)
		return domain.RawDocument{}, false
	}
	if info.Size() > c.maxFileSize {
		logger.Warn("Skipping %s: %d bytes exceeds limit of %d", path, info.Size(), c.maxFileSize)
		return domain.RawDocument{}, false
	}
	content, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("Skipping %s: %v", path, err)
		return domain.RawDocument{}, false
	}
	return buildDocument(path, content, info), true
}

func buildDocument(path string, content []byte, info os.FileInfo) domain.RawDocument {
	doc := domain.RawDocument{
		Name:     filepath.Base(path),
		URI:      path,
		MIMEType: normalisers.DetectMIMEType(path),
		Content:  content,
		Metadata: map[string]any{
			"path": path,
		},
	}
	if info != nil {
		doc.Metadata["size"] = info.Size()
		doc.Metadata["modified"] = info.ModTime()
	}
	return doc
}

// Watch reports changes under the root until ctx is cancelled.
// New subdirectories are added to the watch as they appear.
func (c *Connector) Watch(ctx context.Context) (<-chan domain.RawDocumentChange, error) {
	if err := c.Validate(ctx); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	c.watcher = watcher

	if err := c.addWatchTree(c.rootPath); err != nil {
		_ = watcher.Close()
		c.watcher = nil
		return nil, err
	}

	changes := make(chan domain.RawDocumentChange, 64)

	go func() {
		defer close(changes)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				change := c.handleFsEvent(event)
				if change == nil {
					continue
				}
				select {
				case changes <- *change:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("Watcher error: %v", err)
			}
		}
	}()

	return changes, nil
}

// addWatchTree registers root and every non-hidden directory below it.
func (c *Connector) addWatchTree(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		// fsnotify watches the parent to see a single file being replaced.
		return c.watcher.Add(filepath.Dir(root))
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := c.watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// handleFsEvent maps an fsnotify event to a document change.
// Returns nil for events that should be ignored.
func (c *Connector) handleFsEvent(event fsnotify.Event) *domain.RawDocumentChange {
	path := event.Name
	if isHidden(filepath.Base(path)) {
		return nil
	}
	if !c.inScope(path) {
		return nil
	}

	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		return &domain.RawDocumentChange{
			Type: domain.ChangeDeleted,
			Document: domain.RawDocument{
				Name: filepath.Base(path),
				URI:  path,
			},
		}
	}

	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil
	}
	if info.IsDir() {
		if event.Has(fsnotify.Create) && c.watcher != nil {
			if err := c.addWatchTree(path); err != nil {
				logger.Warn("Failed to watch %s: %v", path, err)
			}
		}
		return nil
	}

	doc, ok := c.readFile(path)
	if !ok {
		return nil
	}
	changeType := domain.ChangeUpdated
	if event.Has(fsnotify.Create) {
		changeType = domain.ChangeCreated
	}
	return &domain.RawDocumentChange{Type: changeType, Document: doc}
}

// inScope reports whether path is the watched file or lies below the root.
func (c *Connector) inScope(path string) bool {
	info, err := os.Stat(c.rootPath)
	if err == nil && !info.IsDir() {
		return filepath.Clean(path) == filepath.Clean(c.rootPath)
	}
	return true
}

// Close stops any active watch.
func (c *Connector) Close() error {
	if c.watcher != nil {
		err := c.watcher.Close()
		c.watcher = nil
		return err
	}
	return nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
