package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const tempDirName = ".tmp"

// FSStore keeps blobs as plain files under a root directory. Writes go to
// a temp file first and are renamed into place, so a key either holds the
// complete upload or nothing.
type FSStore struct {
	root     string
	fileMode os.FileMode
	dirMode  os.FileMode
}

func NewFSStore(root string) (*FSStore, error) {
	root = filepath.Clean(root)
	s := &FSStore{root: root, fileMode: 0644, dirMode: 0755}
	if err := os.MkdirAll(filepath.Join(root, tempDirName), s.dirMode); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}
	return s, nil
}

func (s *FSStore) Root() string {
	return s.root
}

func (s *FSStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (int64, error) {
	if err := ValidateKey(key); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(filepath.Join(s.root, tempDirName), uuid.NewString())
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmp, r)
	if err != nil {
		_ = tmp.Close()
		return 0, fmt.Errorf("writing blob %q: %w", key, err)
	}
	if err := tmp.Chmod(s.fileMode); err != nil {
		_ = tmp.Close()
		return 0, fmt.Errorf("chmod blob %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("closing blob %q: %w", key, err)
	}

	dest := s.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(dest), s.dirMode); err != nil {
		return 0, fmt.Errorf("creating blob directory: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return 0, fmt.Errorf("committing blob %q: %w", key, err)
	}
	committed = true
	return written, nil
}

func (s *FSStore) Open(ctx context.Context, key string) (io.ReadCloser, *BlobInfo, error) {
	if err := ValidateKey(key); err != nil {
		return nil, nil, err
	}
	f, err := os.Open(s.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("blob %q: %w", key, ErrNotFound)
		}
		return nil, nil, fmt.Errorf("open blob %q: %w", key, err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("stat blob %q: %w", key, err)
	}

	info := &BlobInfo{Key: key, Size: st.Size(), ModifiedAt: st.ModTime()}
	if mt, err := mimetype.DetectReader(f); err == nil {
		info.ContentType = mt.String()
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("rewind blob %q: %w", key, err)
	}
	return f, info, nil
}

func (s *FSStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := ValidateKey(key); err != nil {
		return false, err
	}
	st, err := os.Stat(s.pathFor(key))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !st.IsDir(), nil
}

// Delete is idempotent: deleting a missing key succeeds.
func (s *FSStore) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	p := s.pathFor(key)
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete blob %q: %w", key, err)
	}
	s.cleanupEmptyDirs(p)
	return nil
}

func (s *FSStore) Ping(ctx context.Context) error {
	st, err := os.Stat(s.root)
	if err != nil {
		return err
	}
	if !st.IsDir() {
		return fmt.Errorf("upload root %q is not a directory", s.root)
	}
	return nil
}

func (s *FSStore) pathFor(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

// cleanupEmptyDirs walks up from a deleted blob and removes empty parents,
// stopping at the root.
func (s *FSStore) cleanupEmptyDirs(p string) {
	parent := filepath.Dir(p)
	for parent != s.root && parent != "." && parent != string(filepath.Separator) {
		entries, err := os.ReadDir(parent)
		if err != nil || len(entries) > 0 {
			break
		}
		if err := os.Remove(parent); err != nil {
			break
		}
		parent = filepath.Dir(parent)
	}
}
