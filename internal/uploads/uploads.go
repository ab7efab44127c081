// Package uploads is the narrow shim spec §1 calls an "opaque blob store
// with validated extensions and size caps" — avatar/audio upload itself is
// an external collaborator, out of scope for the realtime core. This
// package only gives internal/httpapi's avatar upload something concrete
// to call.
package uploads

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/busfahrer/server/internal/apperr"
	"github.com/busfahrer/server/internal/ids"
)

var allowedExt = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
	".gif":  true,
	".mp3":  true,
	".ogg":  true,
}

type Store struct {
	dir      string
	maxBytes int64
}

func NewStore(dir string, maxBytes int64) *Store {
	return &Store{dir: dir, maxBytes: maxBytes}
}

// Save validates ext and size, writes the blob, and returns an opaque
// reference the caller persists on the user's profile.
func (s *Store) Save(ext string, r io.Reader) (string, error) {
	if !allowedExt[ext] {
		return "", apperr.Precondition("Upload Error", fmt.Sprintf("unsupported file extension %q", ext))
	}

	limited := io.LimitReader(r, s.maxBytes+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return "", apperr.Internal("Upload Error", err)
	}
	if int64(len(data)) > s.maxBytes {
		return "", apperr.Precondition("Upload Error", "file exceeds the maximum allowed size")
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", apperr.Internal("Upload Error", err)
	}

	ref := ids.New() + ext
	if err := os.WriteFile(filepath.Join(s.dir, ref), data, 0o644); err != nil {
		return "", apperr.Internal("Upload Error", err)
	}

	return ref, nil
}

// Delete best-effort removes a previously stored blob; failures are
// non-fatal per spec §5.
func (s *Store) Delete(ref string) {
	if ref == "" {
		return
	}
	_ = os.Remove(filepath.Join(s.dir, ref))
}
