// Package filesystem provides a BlobStorage implementation backed by the
// local filesystem. It stores encoded stills as immutable blob files named
// by their photo ID.
package filesystem

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/photomat/photomat/internal/domain"
	"github.com/photomat/photomat/internal/store"
)

// Ensure BlobStore implements store.BlobStorage
var _ store.BlobStorage = (*BlobStore)(nil)

// BlobStore implements store.BlobStorage using the local filesystem.
// Files are named by the photo ID (with a fixed suffix) to simplify lookup.
type BlobStore struct {
	root string
}

// New returns a filesystem-backed blob store rooted at dir. The directory
// must already exist with secure permissions (0700 recommended).
func New(root string) (*BlobStore, error) {
	fi, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return nil, errors.New("blob root is not a directory")
	}
	return &BlobStore{root: root}, nil
}

// path constructs the full path to the blob file for a given photo ID.
func (b *BlobStore) path(id string) string { return filepath.Join(b.root, id+".blob") }

// Write stores exactly size bytes from r into a file associated with id.
func (b *BlobStore) Write(id string, r io.Reader, size int64) error {
	if err := validateID(id); err != nil {
		return err
	}
	p := b.path(id)
	// #nosec G304: path is constructed from a fixed root plus a validated ID with a fixed suffix; no traversal possible.
	f, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.CopyN(f, r, size)
	if err != nil {
		// delete partial file on error
		_ = os.Remove(p)
		return err
	}
	if err = f.Sync(); err != nil {
		return err
	}
	return nil
}

// Open returns a reader over the blob for id. Reads never delete: both
// preview and delivery fetches may read the same file until explicit
// consumption removes it.
func (b *BlobStore) Open(id string) (io.ReadCloser, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	return os.Open(b.path(id)) // #nosec G304 path constructed internally
}

// Delete removes the blob file for a given photo id. Absent files are not
// an error; Delete backs the idempotent kiosk-side removal.
func (b *BlobStore) Delete(id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	if err := os.Remove(b.path(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// List returns all blob IDs currently present. Higher layers derive
// orphans by diffing against index-reported external IDs.
func (b *BlobStore) List() ([]string, error) {
	entries, err := os.ReadDir(b.root)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if filepath.Ext(name) != ".blob" {
			continue
		}
		// Basic freshness guard: skip very recent files (<1s) to avoid races.
		if info, err := e.Info(); err == nil && time.Since(info.ModTime()) < time.Second {
			continue
		}
		ids = append(ids, name[:len(name)-5])
	}
	return ids, nil
}

// validateID enforces that the blob ID is a canonical 32-character
// lowercase hexadecimal photo ID. No separators, fixed length, so the
// derived filename cannot escape the root.
func validateID(id string) error {
	_, err := domain.ParseID(id)
	return err
}
