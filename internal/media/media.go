package media

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// MaxUploadSize caps a single image upload.
const MaxUploadSize = 10 << 20

var ErrUnsupportedType = errors.New("unsupported image type")

var imageExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".heic": true,
}

// Store writes uploads under Root with random names and hands back paths
// relative to Root, which is what the database keeps.
type Store struct {
	Root string
}

func NewStore(root string) *Store {
	return &Store{Root: root}
}

// SaveImage copies r to <Root>/<dir>/<uuid><ext>. The original file name is
// only used for its extension.
func (s *Store) SaveImage(dir, filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !imageExt[ext] {
		return "", ErrUnsupportedType
	}

	if err := os.MkdirAll(filepath.Join(s.Root, dir), 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	rel := filepath.ToSlash(filepath.Join(dir, uuid.NewString()+ext))
	f, err := os.Create(filepath.Join(s.Root, rel))
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}

	if _, err := io.Copy(f, io.LimitReader(r, MaxUploadSize)); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close file: %w", err)
	}
	return rel, nil
}

// Remove deletes a file saved by SaveImage; a missing file is not an error.
func (s *Store) Remove(rel string) error {
	err := os.Remove(filepath.Join(s.Root, filepath.FromSlash(rel)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
